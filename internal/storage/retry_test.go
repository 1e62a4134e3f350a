// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Use a tiny base delay so tests finish quickly.
	RetryBaseDelay = 1 * time.Millisecond
}

func TestWithRetry_ImmediateSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_TransientThenSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 5, func() error {
		calls++
		if calls <= 2 {
			return &azcore.ResponseError{StatusCode: 503}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 2, func() error {
		calls++
		return &azcore.ResponseError{StatusCode: 500}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_PermanentError(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 5, func() error {
		calls++
		return &azcore.ResponseError{StatusCode: 403}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_BlobExistsNotRetried(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 5, func() error {
		calls++
		return fmt.Errorf("uploading out/a.pdf: %w", ErrBlobExists)
	})
	require.ErrorIs(t, err, ErrBlobExists)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, 5, func() error {
		return errors.New("connection reset by peer")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"throttled", &azcore.ResponseError{StatusCode: 429}, true},
		{"request timeout", &azcore.ResponseError{StatusCode: 408}, true},
		{"server error", &azcore.ResponseError{StatusCode: 502}, true},
		{"auth failure", &azcore.ResponseError{StatusCode: 401}, false},
		{"not found", &azcore.ResponseError{StatusCode: 404}, false},
		{"blob exists", ErrBlobExists, false},
		{"deadline", context.DeadlineExceeded, false},
		{"transport blip", errors.New("read: connection reset by peer"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isTransient(tc.err))
		})
	}
}
