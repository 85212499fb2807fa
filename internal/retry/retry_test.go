package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noSleep records requested waits without waiting.
func noSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	var waits []time.Duration
	p := Policy{MaxRetries: 3, BaseBackoff: time.Second, Sleep: noSleep(&waits)}

	calls := 0
	err := p.Do(context.Background(), "upload", func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, waits)
}

func TestDoRetriesTransientWithExponentialBackoff(t *testing.T) {
	var waits []time.Duration
	p := Policy{MaxRetries: 3, BaseBackoff: time.Second, Sleep: noSleep(&waits)}

	calls := 0
	err := p.Do(context.Background(), "generate", func() error {
		calls++
		if calls < 3 {
			return Transient(errors.New("status 503"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, waits)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	var waits []time.Duration
	p := Policy{MaxRetries: 5, BaseBackoff: time.Second, Sleep: noSleep(&waits)}

	permanent := errors.New("status 400")
	calls := 0
	err := p.Do(context.Background(), "generate", func() error {
		calls++
		return permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.Empty(t, waits)
}

func TestDoExhaustsRetries(t *testing.T) {
	var waits []time.Duration
	p := Policy{MaxRetries: 2, BaseBackoff: time.Second, Sleep: noSleep(&waits)}

	cause := errors.New("connection reset")
	calls := 0
	err := p.Do(context.Background(), "upload", func() error {
		calls++
		return Transient(cause)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls) // MaxRetries + 1
	assert.Len(t, waits, 2)
	assert.Contains(t, err.Error(), "upload: retries exhausted after 3 attempts")
	assert.ErrorIs(t, err, cause)
}

func TestDoZeroPolicyTriesOnce(t *testing.T) {
	var p Policy

	calls := 0
	err := p.Do(context.Background(), "upload", func() error {
		calls++
		return Transient(errors.New("boom"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoAbortsWhenSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxRetries:  5,
		BaseBackoff: time.Millisecond,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	calls := 0
	err := p.Do(ctx, "generate", func() error {
		calls++
		return Transient(errors.New("status 500"))
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoffGrowthAndCap(t *testing.T) {
	p := Policy{BaseBackoff: time.Second, MaxBackoff: 10 * time.Second}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second}, // capped
		{10, 10 * time.Second},
		{62, 10 * time.Second}, // shift overflow still capped
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.expected, p.Backoff(tt.attempt))
		})
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	p := Policy{BaseBackoff: time.Second, MaxBackoff: 30 * time.Second, Jitter: true}

	for i := 0; i < 50; i++ {
		d := p.Backoff(1)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.Less(t, d, 3*time.Second)
	}
}

func TestTransientMarker(t *testing.T) {
	assert.Nil(t, Transient(nil))

	cause := errors.New("timeout")
	err := Transient(cause)
	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "timeout", err.Error())

	assert.False(t, IsTransient(cause))
	assert.False(t, IsTransient(nil))

	wrapped := fmt.Errorf("upload failed: %w", err)
	assert.True(t, IsTransient(wrapped))
}
