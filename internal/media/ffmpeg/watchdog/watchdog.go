// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package watchdog detects decoders that stop delivering frames.
package watchdog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/playbin/internal/log"
)

var (
	// ErrStartTimeout means no first frame arrived within the start bound.
	ErrStartTimeout = errors.New("decoder produced no frame before start timeout")
	// ErrStalled means a playing decoder stopped producing frames.
	ErrStalled = errors.New("decoder stalled")
)

type State int

const (
	StateStarting State = iota
	StateRunning
	StatePaused
	StateStalled
	StateTimedOut
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStalled:
		return "stalled"
	case StateTimedOut:
		return "timed_out"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

type clock interface {
	Now() time.Time
	NewTicker(d time.Duration) ticker
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) Now() time.Time                   { return time.Now() }
func (realClock) NewTicker(d time.Duration) ticker { return &realTicker{time.NewTicker(d)} }

type realTicker struct {
	*time.Ticker
}

func (rt *realTicker) C() <-chan time.Time { return rt.Ticker.C }

// Watchdog tracks frame heartbeats of one decoder process.
// Paused decoders are never reported as stalled.
type Watchdog struct {
	mu sync.Mutex

	startTimeout time.Duration
	stallTimeout time.Duration
	interval     time.Duration

	lastBeat time.Time
	frames   uint64
	state    State
	resume   State

	cancel context.CancelFunc
	clock  clock
}

// New creates a watchdog. The check interval is derived from the smaller timeout.
func New(startTimeout, stallTimeout time.Duration) *Watchdog {
	interval := time.Second
	if m := min(startTimeout, stallTimeout) / 4; m > 0 && m < interval {
		interval = m
	}
	return &Watchdog{
		startTimeout: startTimeout,
		stallTimeout: stallTimeout,
		interval:     interval,
		clock:        realClock{},
	}
}

// Run checks heartbeats until ctx is done, Complete is called, or a timeout
// fires. It returns ErrStartTimeout or ErrStalled on detection, nil otherwise.
func (w *Watchdog) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.mu.Lock()
	w.cancel = cancel
	w.lastBeat = w.clock.Now()
	if w.state == StateCompleted {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	t := w.clock.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C():
			if err := w.check(); err != nil {
				return err
			}
		}
	}
}

// Beat records one delivered frame.
func (w *Watchdog) Beat() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastBeat = w.clock.Now()
	w.frames++
	switch {
	case w.state == StateStarting:
		w.state = StateRunning
		log.L().Debug().Msg("watchdog: first frame received")
	case w.state == StatePaused && w.resume == StateStarting:
		w.resume = StateRunning
	}
}

// SetPaused suspends stall detection while the consumer holds the decoder.
// Resuming restarts the stall window.
func (w *Watchdog) SetPaused(paused bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case paused && (w.state == StateStarting || w.state == StateRunning):
		w.resume = w.state
		w.state = StatePaused
	case !paused && w.state == StatePaused:
		w.state = w.resume
		w.lastBeat = w.clock.Now()
	}
}

// Complete ends monitoring without an error.
func (w *Watchdog) Complete() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = StateCompleted
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *Watchdog) check() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	elapsed := w.clock.Now().Sub(w.lastBeat)

	switch w.state {
	case StateStarting:
		if elapsed > w.startTimeout {
			w.state = StateTimedOut
			return ErrStartTimeout
		}
	case StateRunning:
		if elapsed > w.stallTimeout {
			w.state = StateStalled
			return ErrStalled
		}
	}
	return nil
}

// State returns current watchdog state.
func (w *Watchdog) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Frames returns the number of heartbeats seen.
func (w *Watchdog) Frames() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}
