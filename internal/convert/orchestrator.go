// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/blob2pdf/internal/detect"
	"github.com/pdiddy/blob2pdf/pkg/types"
)

// Options controls per-file processing behavior.
type Options struct {
	// AttachOriginal embeds the source file into successfully converted
	// outputs (PDF passthrough excepted), preserving provenance.
	AttachOriginal bool

	// PDFAttachOriginal re-saves passthrough PDFs with the source embedded.
	// Off by default: the output is the original.
	PDFAttachOriginal bool

	// OfficeTimeout and BrowserTimeout bound the external engines. A hung
	// engine degrades the file to fallback instead of stalling the batch.
	OfficeTimeout  time.Duration
	BrowserTimeout time.Duration
}

const (
	defaultOfficeTimeout  = 2 * time.Minute
	defaultBrowserTimeout = time.Minute
)

// Orchestrator runs one file through detection, dispatch, and — whenever the
// real converter is missing or fails — the placeholder fallback. Every input
// except zero-byte markers ends in exactly one terminal result.
type Orchestrator struct {
	reg  *Registry
	opts Options
}

// NewOrchestrator builds an orchestrator over the given registry. Zero
// timeouts take the defaults.
func NewOrchestrator(reg *Registry, opts Options) *Orchestrator {
	if opts.OfficeTimeout <= 0 {
		opts.OfficeTimeout = defaultOfficeTimeout
	}
	if opts.BrowserTimeout <= 0 {
		opts.BrowserTimeout = defaultBrowserTimeout
	}
	return &Orchestrator{reg: reg, opts: opts}
}

// Process converts src into a PDF under outDir and returns the terminal
// result. Zero-byte input is skipped outright; unsupported or failing
// conversions degrade to a placeholder carrying the original bytes; only a
// placeholder that itself cannot be written yields a Failure.
func (o *Orchestrator) Process(ctx context.Context, src types.SourceFile, outDir string) types.ConversionResult {
	start := time.Now()

	info, err := os.Stat(src.Path)
	if err != nil {
		return types.ConversionResult{
			Outcome:  types.OutcomeFailure,
			Category: types.ErrStorageFault,
			Message:  fmt.Sprintf("stat %s: %v", src.Path, err),
			Elapsed:  time.Since(start),
		}
	}
	if info.Size() == 0 {
		// Zero-byte objects are folder markers, not documents.
		return types.ConversionResult{Outcome: types.OutcomeSkipped, Elapsed: time.Since(start)}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return types.ConversionResult{
			Outcome:  types.OutcomeFailure,
			Category: types.ErrStorageFault,
			Message:  fmt.Sprintf("creating %s: %v", outDir, err),
			Elapsed:  time.Since(start),
		}
	}

	cat, err := detect.DetectFile(src.Path)
	if err != nil {
		return o.fallback(src, outDir, types.ErrCorruptInput,
			fmt.Sprintf("detecting type of %s: %v", src.Path, err), start)
	}

	conv, ok := o.reg.ConverterFor(cat)
	if !ok {
		return o.fallback(src, outDir, types.ErrUnsupportedFormat,
			fmt.Sprintf("Unsupported file extension %q", filepath.Ext(src.Path)), start)
	}

	cctx, cancel := o.boundContext(ctx, cat)
	out, err := conv.Convert(cctx, src, outDir)
	cancel()
	if err != nil {
		return o.fallback(src, outDir, CategoryOf(err), err.Error(), start)
	}

	if o.opts.AttachOriginal && cat != types.CategoryPDF {
		if err := attachOriginal(out, src.Path); err != nil {
			return o.fallback(src, outDir, types.ErrEngineFault, err.Error(), start)
		}
	}

	return types.ConversionResult{
		Outcome:    types.OutcomeSuccess,
		OutputPath: out,
		Elapsed:    time.Since(start),
	}
}

// boundContext applies the engine timeout for categories that shell out.
// Local strategies (pdf, image) run unbounded; they do no engine calls.
func (o *Orchestrator) boundContext(ctx context.Context, cat types.FileCategory) (context.Context, context.CancelFunc) {
	switch cat {
	case types.CategoryWord, types.CategoryExcel, types.CategoryPowerPoint:
		return context.WithTimeout(ctx, o.opts.OfficeTimeout)
	case types.CategoryHTML, types.CategoryEmail:
		return context.WithTimeout(ctx, o.opts.BrowserTimeout)
	default:
		return context.WithCancel(ctx)
	}
}

// fallback routes a file to the placeholder builder. The error descriptor is
// carried in the result for logging regardless of whether the placeholder
// succeeds.
func (o *Orchestrator) fallback(src types.SourceFile, outDir string, cat types.ErrorCategory, msg string, start time.Time) types.ConversionResult {
	out, err := BuildPlaceholder(src, outDir, msg)
	if err != nil {
		return types.ConversionResult{
			Outcome:  types.OutcomeFailure,
			Category: cat,
			Message:  fmt.Sprintf("%s; placeholder also failed: %v", msg, err),
			Elapsed:  time.Since(start),
		}
	}
	return types.ConversionResult{
		Outcome:    types.OutcomeFallback,
		OutputPath: out,
		Category:   cat,
		Message:    msg,
		Elapsed:    time.Since(start),
	}
}
