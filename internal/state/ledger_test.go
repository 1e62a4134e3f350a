// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/blob2pdf/pkg/types"
)

func TestLedgerRecordAndSummarize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "runs.db")

	l, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, l.Record("in/a.docx", types.ConversionResult{
		Outcome: types.OutcomeSuccess, Elapsed: 1200 * time.Millisecond,
	}))
	require.NoError(t, l.Record("in/b.xls", types.ConversionResult{
		Outcome: types.OutcomeFallback, Category: types.ErrCorruptInput,
		Message: "calc export failed", Elapsed: 400 * time.Millisecond,
	}))
	require.NoError(t, l.Record("in/c.msg", types.ConversionResult{
		Outcome: types.OutcomeFailure, Category: types.ErrStorageFault, Message: "download failed",
	}))
	require.NoError(t, l.Close())

	r, err := OpenForReading(path)
	require.NoError(t, err)
	defer r.Close()

	sum, err := r.LastRunSummary()
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.ByOutcome["success"])
	assert.Equal(t, 1, sum.ByOutcome["fallback"])
	assert.Equal(t, 1, sum.ByOutcome["failure"])
	assert.Equal(t, 1, sum.ByCategory["corrupt-input"])
	assert.Equal(t, 1, sum.ByCategory["storage-fault"])
	assert.False(t, sum.StartedAt.IsZero())
}

func TestLedgerPrefersRunWithResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Record("in/a.docx", types.ConversionResult{Outcome: types.OutcomeSuccess}))
	firstRun := l.runID
	require.NoError(t, l.Close())

	// A second run that records nothing (e.g. everything skipped).
	l2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l2.Close())

	r, err := OpenForReading(path)
	require.NoError(t, err)
	defer r.Close()

	sum, err := r.LastRunSummary()
	require.NoError(t, err)
	assert.Equal(t, firstRun, sum.RunID)
	assert.Equal(t, 1, sum.Total)
}

func TestOpenForReadingMissing(t *testing.T) {
	_, err := OpenForReading(filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
}
