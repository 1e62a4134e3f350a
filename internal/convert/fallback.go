// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"github.com/pdiddy/blob2pdf/pkg/types"
)

// FallbackSubject is the Info-dictionary Subject of every placeholder PDF.
// Downstream audits key on this literal to tell placeholders from genuine
// conversions; it is a committed compatibility surface.
const FallbackSubject = "FALLBACK"

// BuildPlaceholder writes a one-page PDF describing the source file and
// embedding its raw bytes as an attachment under the original filename. It
// succeeds even when the source is corrupt or empty: the attachment does not
// require that the bytes be valid in their claimed format.
func BuildPlaceholder(src types.SourceFile, outDir, reason string) (string, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", src.Path, err)
	}

	name := filepath.Base(src.Path)
	ext := filepath.Ext(src.Path)
	if ext == "" {
		ext = "(none)"
	}

	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetSubject(FallbackSubject, false)
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	doc.Text(100, 92, "Original file: "+name)
	doc.Text(100, 112, "File type: "+ext)
	doc.Text(100, 132, "Reason: "+reason)
	doc.Text(100, 162, "This file could not be converted to PDF.")
	doc.Text(100, 182, "The original file is attached to this PDF.")
	doc.SetAttachments([]fpdf.Attachment{{
		Content:     data,
		Filename:    name,
		Description: "Original file preserved by the migration",
	}})

	dst := outputPath(outDir, src)
	if err := doc.OutputFileAndClose(dst); err != nil {
		return "", fmt.Errorf("writing placeholder %s: %w", dst, err)
	}
	return dst, nil
}
