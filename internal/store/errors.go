// errors.go — typed storage errors and the retry policy from SPEC_FULL §4.1.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrPersistenceFailed is returned (wrapped) when a storage operation fails
// after its underlying cause. Callers compare with errors.Is.
var ErrPersistenceFailed = errors.New("persistence_failed")

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = errors.New("not found")

// retryBackoffs is the exponential backoff schedule from §4.1: the Ingest
// Transport may retry a rejected batch up to three times before closing the
// connection with reason persistence_failed.
var retryBackoffs = []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 900 * time.Millisecond}

// RetryBatch runs fn up to len(retryBackoffs)+1 times, sleeping the backoff
// schedule between attempts, stopping early on success or context
// cancellation. It returns the last error if every attempt failed.
func RetryBatch(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= len(retryBackoffs) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoffs[attempt]):
		}
	}
}
