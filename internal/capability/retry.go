package capability

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds retries of transient upstream failures.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// NoRetry performs exactly one attempt.
func NoRetry() RetryPolicy {
	return RetryPolicy{}
}

// Retry runs op until it succeeds, returns a non-transient error, the retry budget is
// spent or ctx is done. The last operation error is returned in preference to ctx.Err().
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	eb := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		eb.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		eb.MaxInterval = policy.MaxInterval
	}
	eb.MaxElapsedTime = 0

	var lastErr error
	result, err := backoff.RetryWithData(func() (T, error) {
		v, err := op(ctx)
		if err != nil {
			lastErr = err
			if !IsTransient(err) {
				return v, backoff.Permanent(err)
			}
		}
		return v, err
	}, backoff.WithContext(backoff.WithMaxRetries(eb, policy.MaxRetries), ctx))

	if err != nil && lastErr != nil && err == ctx.Err() {
		return result, lastErr
	}
	return result, err
}
