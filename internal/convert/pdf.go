// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pdiddy/blob2pdf/pkg/types"
)

// relaxedConf returns a pdfcpu configuration tolerant of the slightly
// out-of-spec PDFs office tools emit.
func relaxedConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// pdfConverter passes PDF input through unchanged. When attachOriginal is
// set the output is re-saved with the source embedded, preserving provenance
// for suspect files.
type pdfConverter struct {
	attachOriginal bool
}

func (p *pdfConverter) Convert(ctx context.Context, src types.SourceFile, outDir string) (string, error) {
	if err := api.ValidateFile(src.Path, relaxedConf()); err != nil {
		return "", newError(types.ErrCorruptInput, "validating %s: %w", filepath.Base(src.Path), err)
	}

	dst := outputPath(outDir, src)
	if samePath(src.Path, dst) {
		return src.Path, nil
	}
	if err := copyFile(src.Path, dst); err != nil {
		return "", err
	}

	if p.attachOriginal {
		if err := attachOriginal(dst, src.Path); err != nil {
			return "", err
		}
	}
	return dst, nil
}

// attachOriginal embeds origPath into the PDF at pdfPath, keeping the
// original filename. The PDF is rewritten to a sibling temp file and
// atomically replaced.
func attachOriginal(pdfPath, origPath string) error {
	tmp, err := os.CreateTemp(filepath.Dir(pdfPath), "attach-*.pdf")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := api.AddAttachmentsFile(pdfPath, tmpPath, []string{origPath}, false, relaxedConf()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("attaching %s to %s: %w", filepath.Base(origPath), filepath.Base(pdfPath), err)
	}
	if err := os.Rename(tmpPath, pdfPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", pdfPath, err)
	}
	return nil
}

// outputPath is the PDF destination for a source file: outDir/<stem>.pdf.
func outputPath(outDir string, src types.SourceFile) string {
	base := filepath.Base(src.Path)
	return filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
