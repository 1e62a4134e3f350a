// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package failures turns migration logs into actionable recovery lists. The
// extract operation groups failed files into per-category list files; the
// update operation prunes a list of files that later migrated successfully.
package failures

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// The log parser is anchored on the level+tag pair rather than any path
// prefix, so logs from different containers parse the same way.
var (
	errorLineRE = regexp.MustCompile(`(?:ERROR ERROR|WARNING FALLBACK|FALLBACK|ERROR)\s+(\S[^:]*?)\s*:\s*(.*)`)
	okLineRE    = regexp.MustCompile(` OK \w+ \d+ (.+?) ->`)
)

// Entry is one failed file with the message the log recorded for it.
type Entry struct {
	Key     string
	Message string
}

// ParseLog reads a migration log and returns the failure entries and the
// set of keys that have at least one success line. A key can appear in
// both: a retry can succeed after an earlier failure.
func ParseLog(path string) ([]Entry, map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log %s: %w", path, err)
	}
	defer f.Close()

	var failed []Entry
	succeeded := map[string]bool{}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if m := okLineRE.FindStringSubmatch(line); m != nil {
			succeeded[strings.TrimSpace(m[1])] = true
			continue
		}
		if m := errorLineRE.FindStringSubmatch(line); m != nil {
			failed = append(failed, Entry{Key: strings.TrimSpace(m[1]), Message: m[2]})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading log %s: %w", path, err)
	}
	return failed, succeeded, nil
}

// Extract classifies the log's failures and writes one
// failed_<category>.txt per non-empty category under outDir, keys sorted
// and deduplicated. Files that later succeeded are dropped, as are
// conditional-write refusals (the output already existed, nothing failed).
// The returned map holds what was written.
func Extract(logPath, outDir string, rules Rules) (map[string][]string, error) {
	entries, succeeded, err := ParseLog(logPath)
	if err != nil {
		return nil, err
	}

	byCat := map[string]map[string]bool{}
	for _, e := range entries {
		if succeeded[e.Key] || strings.Contains(e.Message, "BlobAlreadyExists") {
			continue
		}
		cat := rules.Classify(e.Message)
		if cat == "" {
			cat = fallbackCategory(e.Key)
		}
		if byCat[cat] == nil {
			byCat[cat] = map[string]bool{}
		}
		byCat[cat][e.Key] = true
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", outDir, err)
	}

	written := map[string][]string{}
	for _, cat := range Categories {
		keySet := byCat[cat]
		if len(keySet) == 0 {
			continue
		}
		keys := make([]string, 0, len(keySet))
		for k := range keySet {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		path := filepath.Join(outDir, "failed_"+cat+".txt")
		if err := writeList(path, keys); err != nil {
			return nil, err
		}
		written[cat] = keys
	}
	return written, nil
}

// Update rewrites a failure list, dropping every key the log now records as
// succeeded. It returns the remaining and removed keys.
func Update(listPath, logPath string) (remaining, removed []string, err error) {
	keys, err := readList(listPath)
	if err != nil {
		return nil, nil, err
	}
	_, succeeded, err := ParseLog(logPath)
	if err != nil {
		return nil, nil, err
	}

	for _, k := range keys {
		if succeeded[k] {
			removed = append(removed, k)
		} else {
			remaining = append(remaining, k)
		}
	}

	if err := writeList(listPath, remaining); err != nil {
		return nil, nil, err
	}
	return remaining, removed, nil
}

func readList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening list %s: %w", path, err)
	}
	defer f.Close()

	var keys []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			keys = append(keys, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading list %s: %w", path, err)
	}
	return keys, nil
}

func writeList(path string, keys []string) error {
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing list %s: %w", path, err)
	}
	return nil
}
