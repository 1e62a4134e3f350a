// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package migrate drives the batch migration: it lists the input blobs,
// routes each one through the conversion orchestrator, delivers the PDF to
// the output prefix (or a local directory), and appends the migration log.
package migrate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/blob2pdf/internal/detect"
	"github.com/pdiddy/blob2pdf/internal/storage"
	"github.com/pdiddy/blob2pdf/pkg/types"
)

// processor is the conversion surface the runner needs; the orchestrator
// satisfies it and tests substitute fakes.
type processor interface {
	Process(ctx context.Context, src types.SourceFile, outDir string) types.ConversionResult
}

// Recorder persists per-file results beyond the migration log. Optional.
type Recorder interface {
	Record(key string, res types.ConversionResult) error
}

// Options are the per-invocation batch controls.
type Options struct {
	Force       bool   // reprocess files whose output already exists
	MaxFiles    int    // stop after this many files processed (0 = no cap)
	FilterExt   string // only process files with this extension
	TestAll     int    // per-category cap for smoke runs (0 = disabled)
	Analyse     bool   // report the input inventory and exit
	Progress    bool   // report migrated-vs-total and exit
	LocalOutput string // write PDFs under this directory instead of uploading
	FileList    string // process only the keys named in this file
}

// Summary aggregates one batch run.
type Summary struct {
	Listed    int
	Processed int
	Succeeded int
	Fallbacks int
	Failures  int
	Skipped   int
}

// Runner executes batch runs against one container.
type Runner struct {
	cfg    types.Config
	store  storage.Client
	proc   processor
	log    *Log
	ledger Recorder // may be nil
	out    io.Writer
	logger *slog.Logger
}

// NewRunner assembles a batch runner. ledger may be nil; out receives the
// human-readable per-file progress lines.
func NewRunner(cfg types.Config, store storage.Client, proc processor, log *Log, ledger Recorder, out io.Writer, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, store: store, proc: proc, log: log, ledger: ledger, out: out, logger: logger}
}

// Run executes one batch pass. Analyse and Progress are report-only modes.
// Context cancellation stops the run between files, leaving the log
// consistent.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary

	objects, err := r.listInputs(ctx, opts)
	if err != nil {
		return sum, err
	}
	sum.Listed = len(objects)

	existing, err := r.existingOutputs(ctx, opts)
	if err != nil {
		return sum, err
	}

	if opts.Analyse {
		return sum, r.analyse(objects, existing)
	}
	if opts.Progress {
		return sum, r.progress(objects, existing)
	}

	workDir, err := os.MkdirTemp("", "blob2pdf-run-*")
	if err != nil {
		return sum, fmt.Errorf("creating work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	perCategory := map[types.FileCategory]int{}

	for i, obj := range objects {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if opts.MaxFiles > 0 && sum.Processed >= opts.MaxFiles {
			break
		}

		rel := strings.TrimPrefix(obj.Key, r.cfg.InputPrefix)
		switch {
		case rel == "" || strings.HasSuffix(obj.Key, "/") || obj.Size == 0:
			sum.Skipped++
			continue
		case r.excluded(rel):
			sum.Skipped++
			continue
		case opts.FilterExt != "" && !hasExt(obj.Key, opts.FilterExt):
			sum.Skipped++
			continue
		}

		cat, _ := detect.FromExtension(filepath.Ext(obj.Key))
		if cat == "" {
			cat = types.CategoryUnsupported
		}
		if opts.TestAll > 0 {
			if perCategory[cat] >= opts.TestAll {
				sum.Skipped++
				continue
			}
		}

		target := r.targetKey(rel)
		if !opts.Force && !r.cfg.OverwriteOutput && opts.LocalOutput == "" && existing[target] {
			sum.Skipped++
			continue
		}

		sum.Processed++
		perCategory[cat]++

		srcPath := filepath.Join(workDir, fmt.Sprintf("src-%d", i), filepath.Base(obj.Key))
		if err := storage.WithRetry(ctx, r.cfg.StorageRetries, func() error {
			return r.store.Download(ctx, obj.Key, srcPath)
		}); err != nil {
			r.log.Error(obj.Key, err.Error())
			r.record(obj.Key, types.ConversionResult{Outcome: types.OutcomeFailure, Category: types.ErrStorageFault, Message: err.Error()})
			sum.Failures++
			fmt.Fprintf(r.out, "[%d/%d] ERROR %s: %v\n", sum.Processed, len(objects), obj.Key, err)
			continue
		}

		outDir := filepath.Join(workDir, fmt.Sprintf("out-%d", i))
		res := r.proc.Process(ctx, types.SourceFile{Key: obj.Key, Path: srcPath, Size: obj.Size}, outDir)
		r.record(obj.Key, res)

		switch res.Outcome {
		case types.OutcomeSkipped:
			sum.Skipped++
			continue
		case types.OutcomeFailure:
			r.log.Error(obj.Key, res.Message)
			sum.Failures++
			fmt.Fprintf(r.out, "[%d/%d] ERROR %s: %s\n", sum.Processed, len(objects), obj.Key, res.Message)
			continue
		}

		dest, err := r.deliver(ctx, opts, cat, rel, target, res.OutputPath)
		if err != nil {
			r.log.Error(obj.Key, err.Error())
			r.record(obj.Key, types.ConversionResult{Outcome: types.OutcomeFailure, Category: types.ErrStorageFault, Message: err.Error()})
			sum.Failures++
			fmt.Fprintf(r.out, "[%d/%d] ERROR %s: %v\n", sum.Processed, len(objects), obj.Key, err)
			continue
		}

		if res.Outcome == types.OutcomeFallback {
			sum.Fallbacks++
			r.log.Fallback(obj.Key, res.Message, res.Elapsed)
			fmt.Fprintf(r.out, "[%d/%d] FALLBACK %s (%s)\n", sum.Processed, len(objects), obj.Key, res.Category)
		} else {
			sum.Succeeded++
			r.log.OK(cat, perCategory[cat], obj.Key, dest, res.Elapsed)
			fmt.Fprintf(r.out, "[%d/%d] OK %s -> %s\n", sum.Processed, len(objects), obj.Key, dest)
		}

		os.RemoveAll(filepath.Dir(srcPath))
		os.RemoveAll(outDir)
	}

	r.logger.Info("batch complete",
		"listed", sum.Listed, "processed", sum.Processed, "ok", sum.Succeeded,
		"fallback", sum.Fallbacks, "failed", sum.Failures, "skipped", sum.Skipped)
	return sum, nil
}

// listInputs returns the batch's input objects: the full listing under the
// input prefix, narrowed to the file list when one is given.
func (r *Runner) listInputs(ctx context.Context, opts Options) ([]storage.ObjectInfo, error) {
	var objects []storage.ObjectInfo
	err := storage.WithRetry(ctx, r.cfg.StorageRetries, func() error {
		var e error
		objects, e = r.store.List(ctx, r.cfg.InputPrefix)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("listing input blobs: %w", err)
	}
	if opts.FileList == "" {
		return objects, nil
	}

	wanted, err := readFileList(opts.FileList)
	if err != nil {
		return nil, err
	}
	var selected []storage.ObjectInfo
	for _, obj := range objects {
		if wanted[obj.Key] {
			selected = append(selected, obj)
			delete(wanted, obj.Key)
		}
	}
	for key := range wanted {
		r.logger.Warn("listed file not found in container", "key", key)
	}
	return selected, nil
}

// existingOutputs indexes the output prefix for idempotent skips. Not needed
// when forcing or overwriting; report modes always want the index.
func (r *Runner) existingOutputs(ctx context.Context, opts Options) (map[string]bool, error) {
	if (opts.Force || r.cfg.OverwriteOutput) && !opts.Progress && !opts.Analyse {
		return nil, nil
	}
	var outputs []storage.ObjectInfo
	err := storage.WithRetry(ctx, r.cfg.StorageRetries, func() error {
		var e error
		outputs, e = r.store.List(ctx, r.cfg.OutputPrefix)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("listing output blobs: %w", err)
	}
	existing := make(map[string]bool, len(outputs))
	for _, obj := range outputs {
		existing[obj.Key] = true
	}
	return existing, nil
}

// deliver places the produced PDF: uploaded under the target key, or copied
// into a per-category directory under the local output directory.
func (r *Runner) deliver(ctx context.Context, opts Options, cat types.FileCategory, rel, target, outputPath string) (string, error) {
	if opts.LocalOutput != "" {
		dest := filepath.Join(opts.LocalOutput, string(cat), swapExt(filepath.Base(rel)))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
		}
		if err := copyLocal(outputPath, dest); err != nil {
			return "", err
		}
		return dest, nil
	}

	overwrite := opts.Force || r.cfg.OverwriteOutput
	err := storage.WithRetry(ctx, r.cfg.StorageRetries, func() error {
		return r.store.Upload(ctx, outputPath, target, overwrite)
	})
	if err != nil {
		if errors.Is(err, storage.ErrBlobExists) {
			return "", fmt.Errorf("BlobAlreadyExists: %s", target)
		}
		return "", err
	}
	return target, nil
}

func (r *Runner) record(key string, res types.ConversionResult) {
	if r.ledger == nil {
		return
	}
	if err := r.ledger.Record(key, res); err != nil {
		r.logger.Warn("recording result", "key", key, "error", err)
	}
}

// excluded reports whether the relative path sits under a configured
// excluded directory.
func (r *Runner) excluded(rel string) bool {
	for _, p := range r.cfg.ExcludePrefixes {
		if p != "" && strings.HasPrefix(rel, p) {
			return true
		}
	}
	return false
}

// targetKey maps a relative input path to its output key: same layout under
// the output prefix, extension swapped to .pdf.
func (r *Runner) targetKey(rel string) string {
	return r.cfg.OutputPrefix + swapExt(rel)
}

func swapExt(rel string) string {
	return strings.TrimSuffix(rel, filepath.Ext(rel)) + ".pdf"
}

func hasExt(key, ext string) bool {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.EqualFold(filepath.Ext(key), ext)
}

// readFileList parses a key-per-line file; blank lines and # comments are
// ignored.
func readFileList(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file list %s: %w", path, err)
	}
	defer f.Close()

	keys := map[string]bool{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys[line] = true
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading file list %s: %w", path, err)
	}
	return keys, nil
}

func copyLocal(src, dst string) error {
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
		return fmt.Errorf("copying to %s: %w", dst, err)
	}
	return out.Close()
}
