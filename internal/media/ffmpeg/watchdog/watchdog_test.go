// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package watchdog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClock struct {
	mu           sync.Mutex
	now          time.Time
	latestTicker *mockTicker
}

func (m *mockClock) Now() time.Time { m.mu.Lock(); defer m.mu.Unlock(); return m.now }
func (m *mockClock) NewTicker(d time.Duration) ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latestTicker = &mockTicker{c: make(chan time.Time)}
	return m.latestTicker
}

func (m *mockClock) advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func (m *mockClock) ticker(t *testing.T) *mockTicker {
	t.Helper()
	var tk *mockTicker
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		tk = m.latestTicker
		return tk != nil
	}, time.Second, 5*time.Millisecond)
	return tk
}

type mockTicker struct {
	c chan time.Time
}

func (m *mockTicker) C() <-chan time.Time { return m.c }
func (m *mockTicker) Stop()               {}

func startWatchdog(t *testing.T) (*Watchdog, *mockClock, *mockTicker, <-chan error, context.CancelFunc) {
	t.Helper()
	clock := &mockClock{now: time.Now()}
	w := New(2*time.Second, 5*time.Second)
	w.clock = clock

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	return w, clock, clock.ticker(t), errCh, cancel
}

func TestWatchdog_StartTimeout(t *testing.T) {
	w, clock, tk, errCh, cancel := startWatchdog(t)
	defer cancel()

	clock.advance(3 * time.Second)
	tk.c <- clock.Now()

	assert.ErrorIs(t, <-errCh, ErrStartTimeout)
	assert.Equal(t, StateTimedOut, w.State())
}

func TestWatchdog_StallTimeout(t *testing.T) {
	w, clock, tk, errCh, cancel := startWatchdog(t)
	defer cancel()

	w.Beat()
	assert.Equal(t, StateRunning, w.State())

	clock.advance(4 * time.Second)
	tk.c <- clock.Now()
	w.Beat()

	clock.advance(6 * time.Second)
	tk.c <- clock.Now()

	assert.ErrorIs(t, <-errCh, ErrStalled)
	assert.Equal(t, StateStalled, w.State())
	assert.Equal(t, uint64(2), w.Frames())
}

func TestWatchdog_PausedNeverStalls(t *testing.T) {
	w, clock, tk, errCh, cancel := startWatchdog(t)

	w.Beat()
	w.SetPaused(true)
	clock.advance(time.Minute)
	tk.c <- clock.Now()
	assert.Equal(t, StatePaused, w.State())

	// Resuming restarts the stall window.
	w.SetPaused(false)
	assert.Equal(t, StateRunning, w.State())
	clock.advance(4 * time.Second)
	tk.c <- clock.Now()

	cancel()
	assert.NoError(t, <-errCh)
}

func TestWatchdog_CompleteStopsRun(t *testing.T) {
	w, _, _, errCh, cancel := startWatchdog(t)
	defer cancel()

	w.Complete()
	assert.NoError(t, <-errCh)
	assert.Equal(t, StateCompleted, w.State())
}

func TestNewDerivesInterval(t *testing.T) {
	assert.Equal(t, time.Second, New(5*time.Second, 10*time.Second).interval)
	assert.Equal(t, 100*time.Millisecond, New(400*time.Millisecond, time.Second).interval)
}

func TestWatchdog_PrerollFrameWhilePaused(t *testing.T) {
	w := New(2*time.Second, 5*time.Second)
	w.SetPaused(true)
	w.Beat()
	assert.Equal(t, StatePaused, w.State())

	w.SetPaused(false)
	assert.Equal(t, StateRunning, w.State(), "a frame seen while paused completes startup")
}
