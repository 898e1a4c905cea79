package retry

import (
	"context"
	"time"
)

// DefaultMaxBackoff caps the delay when Policy.MaxBackoff is zero.
const DefaultMaxBackoff = 60 * time.Second

// Policy 描述一次调用的重试策略。
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
	// Retryable 为空时所有错误都可重试。
	Retryable func(error) bool
	// OnRetry 在每次等待前调用。
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Delay returns the wait before attempt+1, i.e. min(Backoff*2^(attempt-1), MaxBackoff).
func (p Policy) Delay(attempt int) time.Duration {
	ceiling := p.MaxBackoff
	if ceiling <= 0 {
		ceiling = DefaultMaxBackoff
	}
	if attempt < 1 {
		attempt = 1
	}
	d := p.Backoff
	for i := 1; i < attempt; i++ {
		if d >= ceiling {
			return ceiling
		}
		d *= 2
	}
	if d > ceiling {
		return ceiling
	}
	return d
}

func (p Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// Do runs op until it succeeds, the attempts are used up, or the failure is not retryable.
// The last failure is returned unchanged.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= attempts || !p.retryable(err) {
			return zero, err
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Upstream is the policy for text-generation calls: 3 attempts starting at 5s.
func Upstream(retryable func(error) bool) Policy {
	return Policy{MaxAttempts: 3, Backoff: 5 * time.Second, Retryable: retryable}
}

// Delivery retries email API calls: 3 attempts starting at 2s.
func Delivery(retryable func(error) bool) Policy {
	return Policy{MaxAttempts: 3, Backoff: 2 * time.Second, Retryable: retryable}
}

// Store retries database writes that hit a busy or locked database: 3 attempts starting at 1s.
func Store(retryable func(error) bool) Policy {
	return Policy{MaxAttempts: 3, Backoff: time.Second, Retryable: retryable}
}
