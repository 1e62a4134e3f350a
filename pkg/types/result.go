// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared value types of the migration pipeline:
// file categories, conversion outcomes, error categories, and configuration.
package types

import "time"

// FileCategory is the detected format family of a source file. It selects
// the conversion strategy.
type FileCategory string

const (
	CategoryPDF         FileCategory = "pdf"
	CategoryWord        FileCategory = "word"
	CategoryExcel       FileCategory = "excel"
	CategoryPowerPoint  FileCategory = "powerpoint"
	CategoryImage       FileCategory = "image"
	CategoryHTML        FileCategory = "html"
	CategoryEmail       FileCategory = "email"
	CategoryUnsupported FileCategory = "unsupported"
)

// Outcome is the terminal state of processing one source file.
type Outcome string

const (
	// OutcomeSuccess means a real converter produced the PDF.
	OutcomeSuccess Outcome = "success"

	// OutcomeFallback means conversion was impossible or failed and a
	// placeholder PDF carrying the original file was produced instead.
	OutcomeFallback Outcome = "fallback"

	// OutcomeFailure means not even the placeholder could be produced.
	// No output file exists for the source.
	OutcomeFailure Outcome = "failure"

	// OutcomeSkipped means the file was not processed at all
	// (zero-byte folder marker).
	OutcomeSkipped Outcome = "skipped"
)

// ErrorCategory is the heuristic classification of a per-file failure. The
// categories are backend-agnostic; mapping an engine's raw error text onto
// them is best effort.
type ErrorCategory string

const (
	// ErrUnsupportedFormat: no converter matched. Routes to fallback; not
	// an error in itself.
	ErrUnsupportedFormat ErrorCategory = "unsupported-format"

	// ErrCorruptInput: a converter rejected malformed content.
	ErrCorruptInput ErrorCategory = "corrupt-input"

	// ErrPasswordProtected: the converter reported an access denial.
	ErrPasswordProtected ErrorCategory = "password-protected"

	// ErrEngineTimeout: an external engine exceeded its wall-clock bound.
	ErrEngineTimeout ErrorCategory = "engine-timeout"

	// ErrEngineFault: the external engine crashed or misbehaved.
	ErrEngineFault ErrorCategory = "engine-fault"

	// ErrStorageFault: remote fetch or put failed after retries.
	ErrStorageFault ErrorCategory = "storage-fault"
)

// SourceFile identifies one input. Key is the blob name for remote sources
// or the input path for local ones; Path is where the bytes live locally.
type SourceFile struct {
	Key  string
	Path string
	Size int64
}

// ConversionResult is the outcome of processing one SourceFile. Exactly one
// is produced per file per run (skipped files excepted).
type ConversionResult struct {
	Outcome    Outcome
	OutputPath string

	// Category and Message describe the error behind a Fallback or Failure
	// outcome. Empty on Success and Skipped.
	Category ErrorCategory
	Message  string

	Elapsed time.Duration
}
