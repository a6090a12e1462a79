package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the cache backend cannot be reached.
var ErrUnavailable = errors.New("cache unavailable")

// RetryableError marks a transient backend failure.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err as transient. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

const retryAttempts = 3

// retryDelay is the wait before the second attempt; it doubles after that.
var retryDelay = 100 * time.Millisecond

// RetryWithBackoff calls fn until it succeeds, returns an error not marked
// Retryable, or has failed retryAttempts times.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	delay := retryDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !IsRetryable(err) || attempt == retryAttempts {
			return err
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}
