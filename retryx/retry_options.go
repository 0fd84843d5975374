package retryx

import (
	"context"
	"time"
)

type retryOptions struct {
	ctx            context.Context
	retryCount     int
	unlimited      bool
	interval       time.Duration
	maxInterval    time.Duration
	maxElapsedTime time.Duration
	notify         func(err error, next time.Duration)
}

type RetryOption func(*retryOptions)

func newRetryOptions(opts []RetryOption) *retryOptions {
	o := &retryOptions{
		retryCount:     DefaultMaxRetries,
		interval:       DefaultInterval,
		maxInterval:    DefaultMaxInterval,
		maxElapsedTime: DefaultMaxElapsedTime,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithRetryCount sets the number of attempts. Values below 1 keep DefaultMaxRetries.
func WithRetryCount(count int) RetryOption {
	return func(o *retryOptions) {
		if count > 0 {
			o.retryCount = count
		}
	}
}

// WithUnlimitedRetries retries until fn succeeds, returns a permanent error or the context is done.
func WithUnlimitedRetries() RetryOption {
	return func(o *retryOptions) {
		o.unlimited = true
	}
}

// WithInterval sets the wait between attempts, or the first wait of an exponential retry.
func WithInterval(interval time.Duration) RetryOption {
	return func(o *retryOptions) {
		if interval > 0 {
			o.interval = interval
		}
	}
}

func WithMaxInterval(interval time.Duration) RetryOption {
	return func(o *retryOptions) {
		if interval > 0 {
			o.maxInterval = interval
		}
	}
}

func WithMaxElapsedTime(elapsed time.Duration) RetryOption {
	return func(o *retryOptions) {
		if elapsed > 0 {
			o.maxElapsedTime = elapsed
		}
	}
}

// WithContext stops retrying as soon as ctx is done. The context error is then returned.
func WithContext(ctx context.Context) RetryOption {
	return func(o *retryOptions) {
		o.ctx = ctx
	}
}

// WithNotify registers a callback invoked after every failed attempt that will be retried.
func WithNotify(notify func(err error, next time.Duration)) RetryOption {
	return func(o *retryOptions) {
		o.notify = notify
	}
}
