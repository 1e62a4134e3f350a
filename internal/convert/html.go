// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"path/filepath"

	"github.com/pdiddy/blob2pdf/internal/engine"
	"github.com/pdiddy/blob2pdf/pkg/types"
)

// htmlConverter prints HTML documents to PDF through the headless browser.
type htmlConverter struct {
	browser engine.Browser
}

func (h *htmlConverter) Convert(ctx context.Context, src types.SourceFile, outDir string) (string, error) {
	if h.browser == nil {
		return "", newError(types.ErrEngineFault, "no browser engine available for %s", filepath.Base(src.Path))
	}

	abs, err := filepath.Abs(src.Path)
	if err != nil {
		return "", err
	}
	dst := outputPath(outDir, src)
	if err := h.browser.PrintToPDF(ctx, "file://"+abs, dst); err != nil {
		return "", err
	}
	return dst, nil
}
