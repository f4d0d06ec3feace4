package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffSchedule(t *testing.T) {
	b := Backoff{Base: 200 * time.Millisecond, Max: 2 * time.Second, MaxAttempts: 5}

	require.Equal(t, time.Duration(0), b.Delay(0))
	require.Equal(t, 200*time.Millisecond, b.Delay(1))
	require.Equal(t, 400*time.Millisecond, b.Delay(2))
	require.Equal(t, 800*time.Millisecond, b.Delay(3))
	require.Equal(t, 1600*time.Millisecond, b.Delay(4))
	require.Equal(t, 2*time.Second, b.Delay(5))
	require.Equal(t, 2*time.Second, b.Delay(6))
	// Shift overflow territory still answers the cap.
	require.Equal(t, 2*time.Second, b.Delay(64))
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	b := Backoff{Base: time.Millisecond, Max: time.Millisecond, MaxAttempts: 5}
	permanent := errors.New("no")

	calls := 0
	err := b.retry(context.Background(), func() error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	b := Backoff{Base: time.Millisecond, Max: time.Millisecond, MaxAttempts: 3}
	transient := errors.New("later")

	calls := 0
	err := b.retry(context.Background(), func() error {
		calls++
		return &retryableError{transient}
	})
	require.ErrorIs(t, err, transient)
	require.Equal(t, 4, calls) // initial try plus three retries
}

func TestRetryRecovers(t *testing.T) {
	b := Backoff{Base: time.Millisecond, Max: time.Millisecond, MaxAttempts: 3}

	calls := 0
	err := b.retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &retryableError{errors.New("later")}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetryHonorsContext(t *testing.T) {
	b := Backoff{Base: time.Hour, Max: time.Hour, MaxAttempts: 3}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- b.retry(ctx, func() error {
			calls++
			return &retryableError{errors.New("later")}
		})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		require.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("retry did not stop on cancellation")
	}
}
