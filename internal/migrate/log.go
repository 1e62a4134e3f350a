// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package migrate

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pdiddy/blob2pdf/pkg/types"
)

// logTimeFormat matches the historical migration log files; downstream
// tooling parses these lines, so the layout is a compatibility surface.
const logTimeFormat = "2006-01-02 15:04:05,000"

// Log appends one line per terminal file state to the migration log. The
// file is the canonical record of the migration: OK lines name source and
// destination, FALLBACK and ERROR lines name source and reason.
type Log struct {
	mu sync.Mutex
	f  *os.File
}

// OpenLog opens (or creates) the migration log for appending.
func OpenLog(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening migration log %s: %w", path, err)
	}
	return &Log{f: f}, nil
}

// OK records a successful conversion. n is the category's running count.
func (l *Log) OK(cat types.FileCategory, n int, key, dest string, elapsed time.Duration) {
	l.write("INFO", fmt.Sprintf("OK %s %d %s -> %s [%.1fs]", cat, n, key, dest, elapsed.Seconds()))
}

// Fallback records a file that degraded to a placeholder PDF.
func (l *Log) Fallback(key, msg string, elapsed time.Duration) {
	l.write("WARNING", fmt.Sprintf("FALLBACK %s : %s [%.1fs]", key, msg, elapsed.Seconds()))
}

// Error records a file that produced no output at all.
func (l *Log) Error(key, msg string) {
	l.write("ERROR", fmt.Sprintf("ERROR %s : %s", key, msg))
}

func (l *Log) write(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.f, "%s %s %s\n", time.Now().Format(logTimeFormat), level, msg)
}

func (l *Log) Close() error { return l.f.Close() }
