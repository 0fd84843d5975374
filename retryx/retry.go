package retryx

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	DefaultInterval       = 500 * time.Millisecond
	DefaultMaxInterval    = 2 * time.Second
	DefaultMaxElapsedTime = 5 * time.Second
	DefaultMaxRetries     = 3
)

// ConstantRetry calls fn until it succeeds, waiting the same interval between attempts.
// It gives up after DefaultMaxRetries attempts unless WithRetryCount or WithUnlimitedRetries say otherwise.
func ConstantRetry(fn func() error, opts ...RetryOption) error {
	o := newRetryOptions(opts)
	return o.retry(fn, backoff.NewConstantBackOff(o.interval))
}

// ExponentialRetry calls fn until it succeeds, doubling the wait between attempts up to
// the max interval. It also gives up once the max elapsed time is spent.
func ExponentialRetry(fn func() error, opts ...RetryOption) error {
	o := newRetryOptions(opts)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = o.interval
	bo.MaxInterval = o.maxInterval
	bo.MaxElapsedTime = o.maxElapsedTime
	bo.Reset()

	return o.retry(fn, bo)
}

// Permanent wraps err so that the retry stops right away and returns err.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func (o *retryOptions) retry(fn func() error, bo backoff.BackOff) error {
	if o.ctx != nil {
		bo = backoff.WithContext(bo, o.ctx)
	}

	attempts := 0
	err := backoff.RetryNotify(func() error {
		err := fn()
		if err == nil {
			return nil
		}

		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return err
		}

		attempts++
		if !o.unlimited && attempts >= o.retryCount {
			return backoff.Permanent(err)
		}
		return err
	}, bo, o.notify)

	if err != nil && o.ctx != nil && o.ctx.Err() != nil {
		return o.ctx.Err()
	}
	return err
}
