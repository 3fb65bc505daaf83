package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusError int

func (e statusError) Error() string   { return http.StatusText(int(e)) }
func (e statusError) StatusCode() int { return int(e) }

func fastConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    maxAttempts,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		RateLimitDelay: time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return nil
	}, nil, fastConfig(3))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRecoversAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil, fastConfig(5))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return errors.New("always")
	}, nil, fastConfig(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max attempts")
	assert.Equal(t, 3, calls)
}

func TestFatalErrorStopsImmediately(t *testing.T) {
	calls := 0
	fatal := &FatalError{Err: errors.New("bad subreddit")}
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return fatal
	}, nil, fastConfig(5))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, fatal.Err)
}

func TestWrappedFatalErrorStopsImmediately(t *testing.T) {
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return fmt.Errorf("request failed: %w", &FatalError{Err: errors.New("forbidden")})
	}, nil, fastConfig(5))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRateLimitErrorBacksLimiterOff(t *testing.T) {
	lim := NewAdaptiveLimiter(4, 1, 5, 1, 0.5)
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		if calls == 1 {
			return fmt.Errorf("throttled: %w", statusError(http.StatusTooManyRequests))
		}
		return nil
	}, lim, fastConfig(3))
	require.NoError(t, err)
	// 4 halved to 2 on the 429, then +1 on the success.
	assert.InDelta(t, 3, lim.CurrentLimit(), 0.01)
}

func TestSuccessRaisesLimitToCap(t *testing.T) {
	lim := NewAdaptiveLimiter(4, 1, 5, 1, 0.5)
	for i := 0; i < 5; i++ {
		lim.Success()
	}
	assert.InDelta(t, 5, lim.CurrentLimit(), 0.01)
}

func TestRateLimitedRespectsFloor(t *testing.T) {
	lim := NewAdaptiveLimiter(2, 1, 5, 1, 0.5)
	for i := 0; i < 5; i++ {
		lim.RateLimited()
	}
	assert.InDelta(t, 1, lim.CurrentLimit(), 0.01)
}

func TestWithRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithRetryConfig(ctx, func() error {
		t.Fatal("fn ran after cancel")
		return nil
	}, nil, fastConfig(3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifiersSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("reddit returned 429: %w", statusError(429))
	assert.True(t, isRateLimitError(wrapped))
	assert.False(t, isServerError(wrapped))

	server := fmt.Errorf("reddit returned 503: %w", statusError(503))
	assert.True(t, isServerError(server))
	assert.False(t, isRateLimitError(server))

	assert.False(t, isRateLimitError(errors.New("plain")))
}
