// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package storage

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// transient storage failures. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// WithRetry runs op, retrying transient storage failures with exponential
// backoff. The delay starts at RetryBaseDelay and doubles each attempt.
//
// When maxRetries is 0 the default (3) is used. Permanent failures, the
// conditional-write refusal included, return immediately. If the context is
// cancelled during a backoff wait the function returns ctx.Err().
func WithRetry(ctx context.Context, maxRetries int, op func() error) error {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil || !isTransient(err) || attempt >= maxRetries {
			return err
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// isTransient reports whether a storage error is worth retrying. Service
// errors with throttling or server-side status codes are; anything the
// caller did wrong is not.
func isTransient(err error) bool {
	if errors.Is(err, ErrBlobExists) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case respErr.StatusCode == 408 || respErr.StatusCode == 429:
			return true
		case respErr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}
	// Transport-level failures (reset connections, DNS blips) surface as
	// plain errors without a response.
	return true
}
