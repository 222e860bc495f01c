package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "chatscrape/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(max int) *Config {
	return &Config{
		MaxAttempts: max,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     func(err error) bool { return true },
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterStaysInBand(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 140*time.Millisecond)
		assert.LessOrEqual(t, d, 260*time.Millisecond)
	}
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, fastConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("persistent error")
	}, fastConfig(3))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	clientErr := errs.WithCode(errs.ErrorTypeClientError, 400, "bad line")

	cfg := fastConfig(5)
	cfg.RetryIf = DefaultRetryIf

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return clientErr
	}, cfg)

	assert.Same(t, clientErr, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	cfg := fastConfig(10)
	cfg.Backoff = &ConstantBackoff{Delay: 50 * time.Millisecond}

	err := Do(ctx, func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}, cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeServerError, "503")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeNetwork, "refused")))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeClientError, "400")))
	assert.True(t, DefaultRetryIf(errors.New("untyped")))
}

func TestErrorTypeBackoff(t *testing.T) {
	etb := NewErrorTypeBackoff()

	network, ok := etb.GetBackoffForError(errs.ErrorTypeNetwork).(*ExponentialBackoff)
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, network.BaseDelay)

	rateLimit, ok := etb.GetBackoffForError(errs.ErrorTypeRateLimit).(*ExponentialBackoff)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, rateLimit.BaseDelay)

	assert.Same(t, etb.DefaultBackoff, etb.GetBackoffForError(errs.ErrorTypeUnknown))
}

func TestDoUsesErrorAwareDelays(t *testing.T) {
	etb := &ErrorTypeBackoff{
		NetworkErrorBackoff: &ConstantBackoff{Delay: time.Millisecond},
		RateLimitBackoff:    &ConstantBackoff{Delay: 2 * time.Millisecond},
		ServerErrorBackoff:  &ConstantBackoff{Delay: 3 * time.Millisecond},
		DefaultBackoff:      &ConstantBackoff{Delay: 4 * time.Millisecond},
	}

	var delays []time.Duration
	failures := []error{
		errs.New(errs.ErrorTypeRateLimit, "429"),
		errs.New(errs.ErrorTypeServerError, "502"),
	}
	attempts := 0

	err := Do(context.Background(), func(ctx context.Context) error {
		defer func() { attempts++ }()
		if attempts < len(failures) {
			return failures[attempts]
		}
		return nil
	}, &Config{
		MaxAttempts: 5,
		Backoff:     etb,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2 * time.Millisecond, 3 * time.Millisecond}, delays)
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, Wait(ctx, 0), context.Canceled)
}
