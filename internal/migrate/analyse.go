// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package migrate

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/blob2pdf/internal/detect"
	"github.com/pdiddy/blob2pdf/internal/storage"
)

// analyse prints the input inventory: per-extension counts, how many are
// supported, and how many already have output.
func (r *Runner) analyse(objects []storage.ObjectInfo, existing map[string]bool) error {
	byExt := map[string]int{}
	var files, supported, zero, excludedCount, done int

	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Key, r.cfg.InputPrefix)
		if rel == "" || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		files++
		if obj.Size == 0 {
			zero++
			continue
		}
		if r.excluded(rel) {
			excludedCount++
			continue
		}

		ext := strings.ToLower(filepath.Ext(obj.Key))
		if ext == "" {
			ext = "(none)"
		}
		byExt[ext]++
		if _, ok := detect.FromExtension(ext); ok {
			supported++
		}
		if existing[r.targetKey(rel)] {
			done++
		}
	}

	fmt.Fprintf(r.out, "Input prefix: %s (%d files)\n", r.cfg.InputPrefix, files)
	fmt.Fprintf(r.out, "Zero-byte markers: %d, excluded: %d\n", zero, excludedCount)
	fmt.Fprintf(r.out, "Supported by extension: %d\n", supported)
	fmt.Fprintf(r.out, "Already migrated: %d\n\n", done)

	exts := make([]string, 0, len(byExt))
	for ext := range byExt {
		exts = append(exts, ext)
	}
	sort.Slice(exts, func(i, j int) bool {
		if byExt[exts[i]] != byExt[exts[j]] {
			return byExt[exts[i]] > byExt[exts[j]]
		}
		return exts[i] < exts[j]
	})
	for _, ext := range exts {
		marker := " "
		if _, ok := detect.FromExtension(ext); ok {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %-8s %6d\n", marker, ext, byExt[ext])
	}
	known := detect.SupportedExtensions()
	sort.Strings(known)
	fmt.Fprintf(r.out, "\n* convertible (%s)\n", strings.Join(known, " "))
	return nil
}

// progress prints how much of the input already has an output blob.
func (r *Runner) progress(objects []storage.ObjectInfo, existing map[string]bool) error {
	var total, done int
	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Key, r.cfg.InputPrefix)
		if rel == "" || strings.HasSuffix(obj.Key, "/") || obj.Size == 0 || r.excluded(rel) {
			continue
		}
		total++
		if existing[r.targetKey(rel)] {
			done++
		}
	}

	pct := 0.0
	if total > 0 {
		pct = 100 * float64(done) / float64(total)
	}
	fmt.Fprintf(r.out, "Migrated %d of %d files (%.1f%%)\n", done, total, pct)
	return nil
}
