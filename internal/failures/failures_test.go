// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package failures

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `2026-03-01 09:00:00,001 INFO OK word 1 in/good.docx -> out/good.pdf [1.2s]
2026-03-01 09:00:01,002 ERROR ERROR in/slow.docx : soffice rendering slow.docx: context deadline exceeded
2026-03-01 09:00:02,003 ERROR ERROR in/denied.xlsx : server failed to authenticate the request
2026-03-01 09:00:03,004 WARNING FALLBACK in/mail.msg : binary Outlook message mail.msg is not MIME [0.1s]
2026-03-01 09:00:04,005 WARNING FALLBACK in/photo.png : cannot identify image file photo.png [0.0s]
2026-03-01 09:00:05,006 WARNING FALLBACK in/locked.docx : locked.docx is a password protected file (encrypted package) [0.0s]
2026-03-01 09:00:06,007 WARNING FALLBACK in/odd.xyz : Unsupported file extension ".xyz" [0.0s]
2026-03-01 09:00:07,008 WARNING FALLBACK in/broken.doc : soffice produced no output for broken.doc [4.0s]
2026-03-01 09:00:08,009 ERROR ERROR in/dup.pdf : uploading out/dup.pdf: BlobAlreadyExists
2026-03-01 09:00:09,010 ERROR ERROR in/retry.docx : download: connection reset by peer
2026-03-01 09:05:00,000 INFO OK word 2 in/retry.docx -> out/retry.pdf [2.0s]
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migration.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseLog(t *testing.T) {
	entries, succeeded, err := ParseLog(writeLog(t, sampleLog))
	require.NoError(t, err)

	assert.True(t, succeeded["in/good.docx"])
	assert.True(t, succeeded["in/retry.docx"])
	assert.Len(t, succeeded, 2)

	require.Len(t, entries, 9)
	assert.Equal(t, "in/slow.docx", entries[0].Key)
	assert.Contains(t, entries[0].Message, "deadline exceeded")
	assert.Equal(t, "in/mail.msg", entries[2].Key)
}

func TestParseLogKeysWithSpaces(t *testing.T) {
	log := "2026-03-01 09:00:00,001 WARNING FALLBACK in/Mapping Tables/code list.xls : boom [0.1s]\n" +
		"2026-03-01 09:00:01,002 INFO OK excel 1 in/Annual Reports/fy 2025.xlsx -> out/Annual Reports/fy 2025.pdf [3.0s]\n"
	entries, succeeded, err := ParseLog(writeLog(t, log))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "in/Mapping Tables/code list.xls", entries[0].Key)
	assert.True(t, succeeded["in/Annual Reports/fy 2025.xlsx"])
}

func TestExtract(t *testing.T) {
	outDir := t.TempDir()
	written, err := Extract(writeLog(t, sampleLog), outDir, DefaultRules())
	require.NoError(t, err)

	want := map[string][]string{
		"network-timeout":    {"in/slow.docx"},
		"auth-expired":       {"in/denied.xlsx"},
		"msg-com-error":      {"in/mail.msg"},
		"corrupt-image":      {"in/photo.png"},
		"password-protected": {"in/locked.docx"},
		"unsupported-format": {"in/odd.xyz"},
		"corrupt-office":     {"in/broken.doc"},
	}
	assert.Equal(t, want, written)

	for cat, keys := range want {
		data, err := os.ReadFile(filepath.Join(outDir, "failed_"+cat+".txt"))
		require.NoError(t, err)
		assert.Equal(t, strings.Join(keys, "\n")+"\n", string(data))
	}

	// Later success and BlobAlreadyExists entries produce no list lines.
	for _, keys := range written {
		assert.NotContains(t, keys, "in/retry.docx")
		assert.NotContains(t, keys, "in/dup.pdf")
	}
}

func TestExtractDeduplicatesAndSorts(t *testing.T) {
	log := "x ERROR ERROR in/b.doc : produced no output\n" +
		"x ERROR ERROR in/a.doc : produced no output\n" +
		"x ERROR ERROR in/b.doc : produced no output\n"
	written, err := Extract(writeLog(t, log), t.TempDir(), DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, []string{"in/a.doc", "in/b.doc"}, written["corrupt-office"])
}

func TestExtractFallbackCategory(t *testing.T) {
	log := "x ERROR ERROR in/strange.tif : exit status 139\n" +
		"x ERROR ERROR in/strange.msg : exit status 139\n" +
		"x ERROR ERROR in/strange.doc : exit status 139\n"
	written, err := Extract(writeLog(t, log), t.TempDir(), DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, []string{"in/strange.tif"}, written["corrupt-image"])
	assert.Equal(t, []string{"in/strange.msg"}, written["msg-com-error"])
	assert.Equal(t, []string{"in/strange.doc"}, written["corrupt-office"])
}

func TestUpdate(t *testing.T) {
	listPath := filepath.Join(t.TempDir(), "failed_corrupt-office.txt")
	require.NoError(t, os.WriteFile(listPath, []byte("in/a.doc\nin/b.doc\nin/c.doc\n"), 0o644))

	log := "2026-03-02 10:00:00,000 INFO OK word 1 in/b.doc -> out/b.pdf [1.0s]\n"
	remaining, removed, err := Update(listPath, writeLog(t, log))
	require.NoError(t, err)
	assert.Equal(t, []string{"in/a.doc", "in/c.doc"}, remaining)
	assert.Equal(t, []string{"in/b.doc"}, removed)

	data, err := os.ReadFile(listPath)
	require.NoError(t, err)
	assert.Equal(t, "in/a.doc\nin/c.doc\n", string(data))
}

func TestUpdateEmptiesList(t *testing.T) {
	listPath := filepath.Join(t.TempDir(), "failed_network-timeout.txt")
	require.NoError(t, os.WriteFile(listPath, []byte("in/a.doc\n"), 0o644))

	log := "x INFO OK word 1 in/a.doc -> out/a.pdf [1.0s]\n"
	remaining, removed, err := Update(listPath, writeLog(t, log))
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.Equal(t, []string{"in/a.doc"}, removed)

	data, err := os.ReadFile(listPath)
	require.NoError(t, err)
	assert.Empty(t, string(data))
}

func TestClassifyOrder(t *testing.T) {
	rules := DefaultRules()
	// Timeout wins over office corruption even when both vocabularies occur.
	assert.Equal(t, "network-timeout", rules.Classify("soffice produced no output: timed out"))
	assert.Equal(t, "password-protected", rules.Classify("Workbook is ENCRYPTED"))
	assert.Equal(t, "", rules.Classify("exit status 139"))
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("corrupt-image:\n  - pixel soup\n"), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "corrupt-image", rules.Classify("pixel soup detected"))
	// Replaced whole: the default image patterns are gone.
	assert.NotEqual(t, "corrupt-image", rules.Classify("cannot identify image file x.png"))
	// Untouched categories keep defaults.
	assert.Equal(t, "network-timeout", rules.Classify("timed out"))
}

func TestLoadRulesRejectsUnknownCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gremlins:\n  - boo\n"), 0o644))
	_, err := LoadRules(path)
	require.Error(t, err)
}
