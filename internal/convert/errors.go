// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/blob2pdf/pkg/types"
)

// Error wraps a conversion failure with its heuristic category. Converters
// return it when they can name the category themselves; anything else is
// classified after the fact by CategoryOf.
type Error struct {
	Category types.ErrorCategory
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %v", e.Category, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds a categorized conversion error.
func newError(cat types.ErrorCategory, format string, args ...any) *Error {
	return &Error{Category: cat, Err: fmt.Errorf(format, args...)}
}

// CategoryOf maps an error onto the failure taxonomy. Explicit categories
// win; otherwise the raw text is matched best-effort, defaulting to an
// engine fault.
func CategoryOf(err error) types.ErrorCategory {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.ErrEngineTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password") || strings.Contains(msg, "encrypted"):
		return types.ErrPasswordProtected
	case strings.Contains(msg, "corrupt") ||
		strings.Contains(msg, "malformed") ||
		strings.Contains(msg, "unknown format") ||
		strings.Contains(msg, "unexpected eof"):
		return types.ErrCorruptInput
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return types.ErrEngineTimeout
	default:
		return types.ErrEngineFault
	}
}
