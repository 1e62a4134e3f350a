// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns arbitrary source files into PDFs. A registry maps
// each detected file category to a conversion strategy; the orchestrator
// runs detection, dispatch, and the placeholder fallback that guarantees an
// output (with the original embedded) even when no converter can help.
package convert

import (
	"context"

	"github.com/pdiddy/blob2pdf/internal/engine"
	"github.com/pdiddy/blob2pdf/pkg/types"
)

// Converter produces a PDF for one source file in outDir and returns the
// output path. Failures carry a category via *Error where the converter can
// name one; engine-level faults surface as wrapped engine errors.
type Converter interface {
	Convert(ctx context.Context, src types.SourceFile, outDir string) (string, error)
}

// Registry is the fixed lookup table from file category to converter.
type Registry struct {
	byCategory map[types.FileCategory]Converter
}

// NewRegistry wires the conversion strategies. Either engine may be nil
// when not installed; the strategies that need it then fail with an engine
// fault, which degrades those files to the fallback path.
func NewRegistry(office engine.Office, browser engine.Browser, opts Options) *Registry {
	html := &htmlConverter{browser: browser}
	return &Registry{
		byCategory: map[types.FileCategory]Converter{
			types.CategoryPDF:        &pdfConverter{attachOriginal: opts.PDFAttachOriginal},
			types.CategoryWord:       &officeConverter{eng: office, filter: "writer_pdf_Export"},
			types.CategoryExcel:      &officeConverter{eng: office, filter: "calc_pdf_Export"},
			types.CategoryPowerPoint: &officeConverter{eng: office, filter: "impress_pdf_Export"},
			types.CategoryImage:      &imageConverter{},
			types.CategoryHTML:       html,
			types.CategoryEmail:      &emailConverter{html: html},
		},
	}
}

// ConverterFor returns the converter for a category, or false when no
// strategy exists (CategoryUnsupported).
func (r *Registry) ConverterFor(cat types.FileCategory) (Converter, bool) {
	c, ok := r.byCategory[cat]
	return c, ok
}
