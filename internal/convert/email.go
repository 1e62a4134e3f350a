// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/pdiddy/blob2pdf/pkg/types"
)

// emailConverter renders a stored message as an HTML document — header
// block plus body — and prints it through the HTML strategy. The message's
// own attachments are embedded into the resulting PDF so nothing is lost.
type emailConverter struct {
	html Converter
}

func (e *emailConverter) Convert(ctx context.Context, src types.SourceFile, outDir string) (string, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", src.Path, err)
	}

	if bytes.HasPrefix(data, cfbHeader) {
		// Binary Outlook .msg container; the MIME engine cannot open it.
		return "", newError(types.ErrEngineFault,
			"binary Outlook message %s is not MIME; OpenSharedItem-era containers need export to .eml", filepath.Base(src.Path))
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return "", newError(types.ErrCorruptInput, "parsing message %s: %v", filepath.Base(src.Path), err)
	}

	doc, err := buildEmailHTML(env)
	if err != nil {
		return "", newError(types.ErrCorruptInput, "%s: %v", filepath.Base(src.Path), err)
	}

	stem := strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path))
	tmpHTML := filepath.Join(outDir, stem+"_temp.html")
	if err := os.WriteFile(tmpHTML, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", tmpHTML, err)
	}
	defer os.Remove(tmpHTML)

	rendered, err := e.html.Convert(ctx, types.SourceFile{Key: src.Key, Path: tmpHTML}, outDir)
	if err != nil {
		return "", err
	}

	dst := outputPath(outDir, src)
	if rendered != dst {
		if err := os.Rename(rendered, dst); err != nil {
			return "", fmt.Errorf("renaming %s: %w", rendered, err)
		}
	}

	if len(env.Attachments) > 0 {
		if err := embedMessageAttachments(dst, env.Attachments); err != nil {
			return "", err
		}
	}
	return dst, nil
}

// buildEmailHTML renders the message headers and body as a standalone HTML
// document. The HTML body part is preferred; plain text is escaped into a
// pre block.
func buildEmailHTML(env *enmime.Envelope) (string, error) {
	var body string
	switch {
	case env.HTML != "":
		body = env.HTML
	case env.Text != "":
		body = "<pre>" + html.EscapeString(env.Text) + "</pre>"
	default:
		return "", fmt.Errorf("no text/html or text/plain body found")
	}

	subject := env.GetHeader("Subject")
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"UTF-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n</head>\n<body>\n", html.EscapeString(subject))
	b.WriteString(`<div style="font-family: Arial, sans-serif; border-bottom: 1px solid #ccc; padding-bottom: 10px; margin-bottom: 20px;">` + "\n")
	for _, h := range []string{"From", "To", "Subject", "Date"} {
		fmt.Fprintf(&b, "<p><strong>%s:</strong> %s</p>\n", h, html.EscapeString(env.GetHeader(h)))
	}
	b.WriteString("</div>\n")
	b.WriteString(body)
	b.WriteString("\n</body>\n</html>\n")
	return b.String(), nil
}

// embedMessageAttachments writes the message parts to disk and attaches them
// to the PDF under their original filenames.
func embedMessageAttachments(pdfPath string, parts []*enmime.Part) error {
	tmpDir, err := os.MkdirTemp("", "blob2pdf-mail-*")
	if err != nil {
		return fmt.Errorf("creating attachment dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	var paths []string
	for i, p := range parts {
		name := p.FileName
		if name == "" {
			name = fmt.Sprintf("attachment-%d", i+1)
		}
		path := filepath.Join(tmpDir, filepath.Base(name))
		if err := os.WriteFile(path, p.Content, 0o644); err != nil {
			return fmt.Errorf("writing attachment %s: %w", name, err)
		}
		paths = append(paths, path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(pdfPath), "attach-*.pdf")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := api.AddAttachmentsFile(pdfPath, tmpPath, paths, false, relaxedConf()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("embedding %d message attachments: %w", len(paths), err)
	}
	if err := os.Rename(tmpPath, pdfPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", pdfPath, err)
	}
	return nil
}
