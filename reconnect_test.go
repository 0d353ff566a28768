package fchat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingDialer fails a fixed number of attempts, then hands out scripted
// wires. It records how many sleep seconds elapsed before each attempt.
type countingDialer struct {
	mu          sync.Mutex
	failures    int
	attempts    int
	secondsAt   []int
	sleepCount  *int
	sleepCountM *sync.Mutex
}

func (d *countingDialer) Dial(context.Context, string) (WireConn, error) {
	d.sleepCountM.Lock()
	elapsed := *d.sleepCount
	d.sleepCountM.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts++
	d.secondsAt = append(d.secondsAt, elapsed)
	if d.attempts <= d.failures {
		return nil, errors.New("connection refused")
	}
	return newScriptedWire(), nil
}

func newCountingReconnector(failures int) (*Reconnector, *countingDialer) {
	var sleepMu sync.Mutex
	sleepCount := 0
	dialer := &countingDialer{
		failures:    failures,
		sleepCount:  &sleepCount,
		sleepCountM: &sleepMu,
	}
	r := &Reconnector{
		Config: testConfig(),
		Sink:   newRecordingSink(),
		Dialer: dialer,
		sleepSecond: func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sleepMu.Lock()
			sleepCount++
			sleepMu.Unlock()
			return nil
		},
	}
	return r, dialer
}

// TestReconnectBackoffSequence verifies the doubling delays: immediate
// first attempt, then 10s, 20s, 40s, and capped at 60s.
func TestReconnectBackoffSequence(t *testing.T) {
	r, dialer := newCountingReconnector(5)

	conn, err := r.Run(context.Background())
	require.NoError(t, err)
	defer conn.Dispose()

	// Cumulative seconds slept before each of the six attempts.
	assert.Equal(t, []int{0, 10, 30, 70, 130, 190}, dialer.secondsAt)
}

// TestReconnectImmediateSuccess verifies a fresh reconnector's initial
// connect dials without waiting.
func TestReconnectImmediateSuccess(t *testing.T) {
	r, dialer := newCountingReconnector(0)

	conn, err := r.Run(context.Background())
	require.NoError(t, err)
	defer conn.Dispose()

	assert.Equal(t, []int{0}, dialer.secondsAt)
}

// TestReconnectRedialWaitsInitialDelay verifies a run following an
// established connection counts down the full initial interval before its
// first redial attempt, instead of redialing the dropped session
// instantly.
func TestReconnectRedialWaitsInitialDelay(t *testing.T) {
	r, dialer := newCountingReconnector(0)

	conn, err := r.Run(context.Background())
	require.NoError(t, err)
	conn.Dispose()

	var mu sync.Mutex
	var ticks []int
	r.OnCountdown = func(remaining int) {
		mu.Lock()
		ticks = append(ticks, remaining)
		mu.Unlock()
	}

	conn2, err := r.Run(context.Background())
	require.NoError(t, err)
	defer conn2.Dispose()

	// The fresh reconnector dialed at 0s; the redial only after 10 slept
	// seconds, announced by a full countdown.
	assert.Equal(t, []int{0, 10}, dialer.secondsAt)
	assert.Equal(t, []int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}, ticks)
}

// TestReconnectCountdown verifies the per-second countdown reported during
// the first backoff wait.
func TestReconnectCountdown(t *testing.T) {
	r, _ := newCountingReconnector(1)

	var mu sync.Mutex
	var ticks []int
	r.OnCountdown = func(remaining int) {
		mu.Lock()
		ticks = append(ticks, remaining)
		mu.Unlock()
	}

	conn, err := r.Run(context.Background())
	require.NoError(t, err)
	defer conn.Dispose()

	assert.Equal(t, []int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}, ticks)
}

// TestReconnectSessionGone verifies the alive guard aborts the loop.
func TestReconnectSessionGone(t *testing.T) {
	r, dialer := newCountingReconnector(10)
	r.Alive = func() bool { return false }

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrSessionGone)
	assert.Zero(t, dialer.attempts, "no dial once the session is gone")
}

// TestReconnectSessionGoneAfterFailure verifies the guard is rechecked
// after a wait, not only at entry.
func TestReconnectSessionGoneAfterFailure(t *testing.T) {
	r, dialer := newCountingReconnector(10)

	alive := true
	var mu sync.Mutex
	r.Alive = func() bool {
		mu.Lock()
		defer mu.Unlock()
		return alive
	}
	r.OnCountdown = func(int) {
		mu.Lock()
		alive = false
		mu.Unlock()
	}

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrSessionGone)
	assert.Equal(t, 1, dialer.attempts)
}

// TestReconnectCancellation verifies cancellation during a wait surfaces
// the context error, distinct from dial failures.
func TestReconnectCancellation(t *testing.T) {
	r, _ := newCountingReconnector(10)

	ctx, cancel := context.WithCancel(context.Background())
	r.OnCountdown = func(int) { cancel() }

	_, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
