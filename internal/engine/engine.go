// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine invokes the external conversion engines — a headless office
// suite and a headless browser — as subprocesses. The engines are black
// boxes: this package only builds their command lines, bounds them with the
// caller's context, and reports what they produced.
package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec. Run returns the
// combined output so callers can surface engine diagnostics in errors.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

var defaultExec executor = &osExecutor{}

// Office renders office documents (word processing, spreadsheets,
// presentations) to PDF. A filter selects the engine's export module.
type Office interface {
	// Name returns the engine binary name.
	Name() string

	// Render converts srcPath to a PDF in outDir using the given export
	// filter ("" for the engine default) and returns the output path.
	// A context deadline is surfaced as a context.DeadlineExceeded error.
	Render(ctx context.Context, srcPath, outDir, filter string) (string, error)
}

// Browser prints a local document to PDF through a headless browser.
type Browser interface {
	// Name returns the engine binary name.
	Name() string

	// PrintToPDF renders srcPath and writes the PDF to dstPath.
	PrintToPDF(ctx context.Context, srcPath, dstPath string) error
}

// officeBins are tried in order when detecting the office engine.
var officeBins = []string{"libreoffice", "soffice"}

// browserBins are tried in order when detecting the browser engine.
var browserBins = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"microsoft-edge",
	"msedge",
}

// sofficeEngine drives LibreOffice's headless convert-to mode.
type sofficeEngine struct {
	bin  string
	exec executor
}

func (s *sofficeEngine) Name() string { return s.bin }

func (s *sofficeEngine) Render(ctx context.Context, srcPath, outDir, filter string) (string, error) {
	target := "pdf"
	if filter != "" {
		target = "pdf:" + filter
	}

	out, err := s.exec.Run(ctx, s.bin,
		"--headless", "--norestore", "--invisible",
		"--convert-to", target,
		"--outdir", outDir,
		srcPath,
	)
	if ctx.Err() != nil {
		return "", fmt.Errorf("%s rendering %s: %w", s.bin, filepath.Base(srcPath), ctx.Err())
	}
	if err != nil {
		return "", fmt.Errorf("%s failed for %s: %w: %s", s.bin, filepath.Base(srcPath), err, excerpt(out))
	}

	dst := filepath.Join(outDir, stem(srcPath)+".pdf")
	if _, err := os.Stat(dst); err != nil {
		// LibreOffice exits 0 but writes nothing for documents it cannot
		// open, encrypted files included.
		return "", fmt.Errorf("%s produced no output for %s: %s", s.bin, filepath.Base(srcPath), excerpt(out))
	}
	return dst, nil
}

// chromiumEngine drives a Chromium-family browser's print-to-pdf mode.
type chromiumEngine struct {
	bin  string
	exec executor
}

func (c *chromiumEngine) Name() string { return c.bin }

func (c *chromiumEngine) PrintToPDF(ctx context.Context, srcPath, dstPath string) error {
	// A throwaway profile keeps concurrent-profile locks out of the way.
	profile, err := os.MkdirTemp("", "blob2pdf-browser-*")
	if err != nil {
		return fmt.Errorf("creating browser profile dir: %w", err)
	}
	defer os.RemoveAll(profile)

	out, err := c.exec.Run(ctx, c.bin,
		"--headless=new",
		"--disable-gpu",
		"--disable-extensions",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--user-data-dir="+profile,
		"--no-pdf-header-footer",
		"--print-to-pdf="+dstPath,
		srcPath,
	)
	if ctx.Err() != nil {
		return fmt.Errorf("%s rendering %s: %w", c.bin, filepath.Base(srcPath), ctx.Err())
	}
	if err != nil {
		return fmt.Errorf("%s failed for %s: %w: %s", c.bin, filepath.Base(srcPath), err, excerpt(out))
	}
	if _, err := os.Stat(dstPath); err != nil {
		return fmt.Errorf("%s did not create output for %s: %s", c.bin, filepath.Base(srcPath), excerpt(out))
	}
	return nil
}

// DetectOffice finds an installed office engine, trying the known binaries
// in order.
func DetectOffice() (Office, error) {
	return detectOffice(defaultExec)
}

func detectOffice(exec executor) (Office, error) {
	for _, bin := range officeBins {
		if _, err := exec.LookPath(bin); err == nil {
			return &sofficeEngine{bin: bin, exec: exec}, nil
		}
	}
	return nil, fmt.Errorf("no office engine available: none of %v found on PATH", officeBins)
}

// DetectBrowser finds an installed headless-capable browser, trying the
// known binaries in order.
func DetectBrowser() (Browser, error) {
	return detectBrowser(defaultExec)
}

func detectBrowser(exec executor) (Browser, error) {
	for _, bin := range browserBins {
		if _, err := exec.LookPath(bin); err == nil {
			return &chromiumEngine{bin: bin, exec: exec}, nil
		}
	}
	return nil, fmt.Errorf("no browser engine available: none of %v found on PATH", browserBins)
}

// stem returns the file name without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// excerpt trims engine output to a single short line for error messages.
func excerpt(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
