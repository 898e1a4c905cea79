package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("rate limit exceeded")

func TestDoSucceedsOnLastAttempt(t *testing.T) {
	const attempts = 4
	calls := 0
	p := Policy{MaxAttempts: attempts, Backoff: time.Millisecond}

	got, err := Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls < attempts {
			return "", errFlaky
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, attempts, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	fatal := errors.New("invalid api key")
	p := Policy{
		MaxAttempts: 5,
		Backoff:     time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
	}

	_, err := Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDoReturnsLastFailure(t *testing.T) {
	calls := 0
	var observed []int
	p := Policy{
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
		OnRetry:     func(attempt int, _ error, _ time.Duration) { observed = append(observed, attempt) },
	}

	_, err := Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("attempt " + string(rune('0'+calls)))
	})

	require.Error(t, err)
	assert.Equal(t, "attempt 3", err.Error())
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, observed)
}

func TestDoNeverRetriesSuccess(t *testing.T) {
	calls := 0
	p := Policy{
		MaxAttempts: 3,
		OnRetry:     func(int, error, time.Duration) { t.Fatal("unexpected retry") },
	}
	_, err := Do(context.Background(), p, func(context.Context) (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDelaySchedule(t *testing.T) {
	p := Policy{Backoff: time.Second, MaxBackoff: 5 * time.Second}

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		5 * time.Second,
		5 * time.Second,
	}
	var prev time.Duration
	for i, w := range want {
		d := p.Delay(i + 1)
		assert.Equal(t, w, d, "attempt %d", i+1)
		assert.GreaterOrEqual(t, d, prev)
		prev = d
	}
}

func TestDelayDefaultCeiling(t *testing.T) {
	p := Policy{Backoff: 5 * time.Second}
	assert.Equal(t, DefaultMaxBackoff, p.Delay(20))
}

func TestDoObserverSeesDelays(t *testing.T) {
	var delays []time.Duration
	p := Policy{
		MaxAttempts: 4,
		Backoff:     time.Millisecond,
		MaxBackoff:  3 * time.Millisecond,
		OnRetry:     func(_ int, _ error, d time.Duration) { delays = append(delays, d) },
	}
	_, _ = Do(context.Background(), p, func(context.Context) (int, error) { return 0, errFlaky })

	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}, delays)
}

func TestDoHonoursCancellationDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxAttempts: 3,
		Backoff:     time.Hour,
		OnRetry:     func(int, error, time.Duration) { cancel() },
	}
	_, err := Do(ctx, p, func(context.Context) (int, error) { return 0, errFlaky })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPresets(t *testing.T) {
	never := func(error) bool { return false }
	cases := map[string]struct {
		p       Policy
		backoff time.Duration
	}{
		"upstream": {Upstream(never), 5 * time.Second},
		"delivery": {Delivery(never), 2 * time.Second},
		"store":    {Store(never), time.Second},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, 3, tc.p.MaxAttempts)
			assert.Equal(t, tc.backoff, tc.p.Delay(1))
			assert.Equal(t, 2*tc.backoff, tc.p.Delay(2))
			assert.False(t, tc.p.retryable(errors.New("x")))
		})
	}
}
