// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package migrate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/blob2pdf/internal/storage"
	"github.com/pdiddy/blob2pdf/pkg/types"
)

func init() {
	// Avoid real backoff sleeps in tests exercising the retry path.
	storage.RetryBaseDelay = time.Millisecond
}

// fakeStore is an in-memory storage.Client.
type fakeStore struct {
	objects []storage.ObjectInfo
	blobs   map[string][]byte
	uploads map[string][]byte

	downloadErrs map[string]int // key -> remaining failures
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		blobs:        map[string][]byte{},
		uploads:      map[string][]byte{},
		downloadErrs: map[string]int{},
	}
}

func (s *fakeStore) add(key string, data []byte) {
	s.objects = append(s.objects, storage.ObjectInfo{Key: key, Size: int64(len(data))})
	s.blobs[key] = data
}

func (s *fakeStore) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for _, obj := range s.objects {
		if strings.HasPrefix(obj.Key, prefix) {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (s *fakeStore) Download(ctx context.Context, key, path string) error {
	if n := s.downloadErrs[key]; n > 0 {
		s.downloadErrs[key] = n - 1
		return fmt.Errorf("download %s: connection reset", key)
	}
	data, ok := s.blobs[key]
	if !ok {
		return fmt.Errorf("blob %s not found", key)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *fakeStore) Upload(ctx context.Context, path, key string, overwrite bool) error {
	if _, exists := s.uploads[key]; exists && !overwrite {
		return fmt.Errorf("uploading %s: %w", key, storage.ErrBlobExists)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	s.uploads[key] = data
	return nil
}

func (s *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s.uploads[key]
	return ok, nil
}

// fakeProcessor returns a scripted outcome per key and writes a stub PDF so
// delivery has something to move.
type fakeProcessor struct {
	outcomes map[string]types.ConversionResult
	calls    []string
}

func (p *fakeProcessor) Process(ctx context.Context, src types.SourceFile, outDir string) types.ConversionResult {
	p.calls = append(p.calls, src.Key)
	res, ok := p.outcomes[src.Key]
	if !ok {
		res = types.ConversionResult{Outcome: types.OutcomeSuccess}
	}
	if res.Outcome == types.OutcomeSuccess || res.Outcome == types.OutcomeFallback {
		os.MkdirAll(outDir, 0o755)
		base := filepath.Base(src.Key)
		out := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
		os.WriteFile(out, []byte("%PDF-stub"), 0o644)
		res.OutputPath = out
	}
	res.Elapsed = 100 * time.Millisecond
	return res
}

func testConfig() types.Config {
	return types.Config{
		StorageAccountName: "acct",
		ContainerName:      "docs",
		InputPrefix:        "in/",
		OutputPrefix:       "out/",
		ExcludePrefixes:    []string{"Logs/", "Mapping Tables/"},
		StorageRetries:     2,
	}
}

type testRig struct {
	store   *fakeStore
	proc    *fakeProcessor
	runner  *Runner
	logPath string
	out     *bytes.Buffer
}

func newRig(t *testing.T, cfg types.Config) *testRig {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "migration.log")
	log, err := OpenLog(logPath)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	store := newFakeStore()
	proc := &fakeProcessor{outcomes: map[string]types.ConversionResult{}}
	out := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testRig{
		store:   store,
		proc:    proc,
		runner:  NewRunner(cfg, store, proc, log, nil, out, logger),
		logPath: logPath,
		out:     out,
	}
}

func (r *testRig) logContents(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(r.logPath)
	require.NoError(t, err)
	return string(data)
}

func TestRunConvertsAndUploads(t *testing.T) {
	rig := newRig(t, testConfig())
	rig.store.add("in/a.docx", []byte("docx bytes"))
	rig.store.add("in/sub/b.xlsx", []byte("xlsx bytes"))

	sum, err := rig.runner.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Processed)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Contains(t, rig.store.uploads, "out/a.pdf")
	assert.Contains(t, rig.store.uploads, "out/sub/b.pdf")

	log := rig.logContents(t)
	assert.Contains(t, log, "INFO OK word 1 in/a.docx -> out/a.pdf")
	assert.Contains(t, log, "INFO OK excel 1 in/sub/b.xlsx -> out/sub/b.pdf")
}

func TestRunLogsPerCategoryCounts(t *testing.T) {
	rig := newRig(t, testConfig())
	rig.store.add("in/a.docx", []byte("x"))
	rig.store.add("in/b.docx", []byte("x"))
	rig.store.add("in/c.xlsx", []byte("x"))

	_, err := rig.runner.Run(context.Background(), Options{})
	require.NoError(t, err)

	log := rig.logContents(t)
	assert.Contains(t, log, "INFO OK word 1 in/a.docx -> out/a.pdf")
	assert.Contains(t, log, "INFO OK word 2 in/b.docx -> out/b.pdf")
	assert.Contains(t, log, "INFO OK excel 1 in/c.xlsx -> out/c.pdf")
}

func TestRunSkipsExistingOutputs(t *testing.T) {
	rig := newRig(t, testConfig())
	rig.store.add("in/a.docx", []byte("docx"))
	rig.store.add("out/a.pdf", []byte("%PDF already there"))

	sum, err := rig.runner.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Processed)
	assert.Equal(t, 1, sum.Skipped)

	// Force reprocesses and overwrites.
	sum, err = rig.runner.Run(context.Background(), Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.Succeeded)
}

func TestRunOverwriteConfigReprocesses(t *testing.T) {
	cfg := testConfig()
	cfg.OverwriteOutput = true
	rig := newRig(t, cfg)
	rig.store.add("in/a.docx", []byte("docx"))
	rig.store.add("out/a.pdf", []byte("%PDF already there"))
	rig.store.uploads["out/a.pdf"] = []byte("%PDF already there")

	sum, err := rig.runner.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, "%PDF-stub", string(rig.store.uploads["out/a.pdf"]))
}

func TestRunSkipsZeroByteAndExcluded(t *testing.T) {
	rig := newRig(t, testConfig())
	rig.store.add("in/marker/", nil)
	rig.store.add("in/empty.docx", nil)
	rig.store.add("in/Logs/run.txt", []byte("log data"))
	rig.store.add("in/Mapping Tables/map.xlsx", []byte("map"))
	rig.store.add("in/real.docx", []byte("content"))

	sum, err := rig.runner.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 4, sum.Skipped)
	assert.Equal(t, []string{"in/real.docx"}, rig.proc.calls)
}

func TestRunMaxFiles(t *testing.T) {
	rig := newRig(t, testConfig())
	for i := 0; i < 5; i++ {
		rig.store.add(fmt.Sprintf("in/f%d.docx", i), []byte("x"))
	}

	sum, err := rig.runner.Run(context.Background(), Options{MaxFiles: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Processed)
}

func TestRunFilterExtension(t *testing.T) {
	rig := newRig(t, testConfig())
	rig.store.add("in/a.docx", []byte("x"))
	rig.store.add("in/b.XLSX", []byte("x"))
	rig.store.add("in/c.pdf", []byte("x"))

	sum, err := rig.runner.Run(context.Background(), Options{FilterExt: "xlsx"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, []string{"in/b.XLSX"}, rig.proc.calls)
}

func TestRunTestAllCapsPerCategory(t *testing.T) {
	rig := newRig(t, testConfig())
	rig.store.add("in/a.docx", []byte("x"))
	rig.store.add("in/b.doc", []byte("x"))
	rig.store.add("in/c.rtf", []byte("x"))
	rig.store.add("in/d.xlsx", []byte("x"))
	rig.store.add("in/e.png", []byte("x"))

	sum, err := rig.runner.Run(context.Background(), Options{TestAll: 1})
	require.NoError(t, err)
	// One word, one excel, one image.
	assert.Equal(t, 3, sum.Processed)
}

func TestRunFallbackIsUploadedAndLogged(t *testing.T) {
	rig := newRig(t, testConfig())
	rig.store.add("in/broken.docx", []byte("x"))
	rig.proc.outcomes["in/broken.docx"] = types.ConversionResult{
		Outcome:  types.OutcomeFallback,
		Category: types.ErrCorruptInput,
		Message:  "soffice produced no output for broken.docx",
	}

	sum, err := rig.runner.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Fallbacks)
	assert.Contains(t, rig.store.uploads, "out/broken.pdf")
	assert.Contains(t, rig.logContents(t), "WARNING FALLBACK in/broken.docx : soffice produced no output")
}

func TestRunDownloadFailureIsLoggedError(t *testing.T) {
	cfg := testConfig()
	rig := newRig(t, cfg)
	rig.store.add("in/flaky.docx", []byte("x"))
	rig.store.downloadErrs["in/flaky.docx"] = 10 // beyond the retry budget

	sum, err := rig.runner.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failures)
	assert.Contains(t, rig.logContents(t), "ERROR ERROR in/flaky.docx :")
}

func TestRunDownloadRetriesTransient(t *testing.T) {
	rig := newRig(t, testConfig())
	rig.store.add("in/flaky.docx", []byte("x"))
	rig.store.downloadErrs["in/flaky.docx"] = 1 // one transient failure

	sum, err := rig.runner.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)
}

func TestRunFileList(t *testing.T) {
	rig := newRig(t, testConfig())
	rig.store.add("in/a.docx", []byte("x"))
	rig.store.add("in/b.docx", []byte("x"))
	rig.store.add("in/c.docx", []byte("x"))

	listPath := filepath.Join(t.TempDir(), "keys.txt")
	require.NoError(t, os.WriteFile(listPath, []byte("# retry these\nin/a.docx\n\nin/c.docx\nin/missing.docx\n"), 0o644))

	sum, err := rig.runner.Run(context.Background(), Options{FileList: listPath})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Processed)
	assert.ElementsMatch(t, []string{"in/a.docx", "in/c.docx"}, rig.proc.calls)
}

func TestRunLocalOutput(t *testing.T) {
	rig := newRig(t, testConfig())
	rig.store.add("in/sub/a.docx", []byte("x"))

	localDir := t.TempDir()
	sum, err := rig.runner.Run(context.Background(), Options{LocalOutput: localDir, Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Empty(t, rig.store.uploads)

	// PDFs land in per-category directories, flattened to the stem.
	data, err := os.ReadFile(filepath.Join(localDir, "word", "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-stub", string(data))
}

func TestRunAnalyse(t *testing.T) {
	rig := newRig(t, testConfig())
	rig.store.add("in/a.docx", []byte("x"))
	rig.store.add("in/b.docx", []byte("x"))
	rig.store.add("in/weird.xyz", []byte("x"))
	rig.store.add("in/empty.docx", nil)
	rig.store.add("out/a.pdf", []byte("%PDF"))

	sum, err := rig.runner.Run(context.Background(), Options{Analyse: true})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Processed)

	report := rig.out.String()
	assert.Contains(t, report, ".docx")
	assert.Contains(t, report, ".xyz")
	assert.Contains(t, report, "Supported by extension: 2")
	assert.Contains(t, report, "Zero-byte markers: 1")
	assert.Contains(t, report, "Already migrated: 1")
	assert.Contains(t, report, "* convertible (.bmp .csv")
	assert.Empty(t, rig.proc.calls)
}

func TestRunProgress(t *testing.T) {
	rig := newRig(t, testConfig())
	rig.store.add("in/a.docx", []byte("x"))
	rig.store.add("in/b.docx", []byte("x"))
	rig.store.add("out/a.pdf", []byte("%PDF"))

	_, err := rig.runner.Run(context.Background(), Options{Progress: true})
	require.NoError(t, err)
	assert.Contains(t, rig.out.String(), "Migrated 1 of 2 files (50.0%)")
	assert.Empty(t, rig.proc.calls)
}

func TestRunCancelledBetweenFiles(t *testing.T) {
	rig := newRig(t, testConfig())
	rig.store.add("in/a.docx", []byte("x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rig.runner.Run(ctx, Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestTargetKey(t *testing.T) {
	r := &Runner{cfg: testConfig()}
	cases := []struct{ rel, want string }{
		{"a.docx", "out/a.pdf"},
		{"sub/dir/b.TIF", "out/sub/dir/b.pdf"},
		{"noext", "out/noext.pdf"},
		{"dots.in.name.xls", "out/dots.in.name.pdf"},
	}
	for _, tc := range cases {
		if got := r.targetKey(tc.rel); got != tc.want {
			t.Errorf("targetKey(%q) = %q, want %q", tc.rel, got, tc.want)
		}
	}
}
