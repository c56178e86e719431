// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"sync"
	"sync/atomic"
)

// Transport is the mutable playback state shared between control calls and
// pipeline callbacks. It holds no reference to the Player.
type Transport struct {
	loop atomic.Bool

	rateMu sync.Mutex
	rate   float64
}

func newTransport() *Transport {
	return &Transport{rate: 1}
}

// SetLooping takes effect at the next end of stream.
func (t *Transport) SetLooping(v bool) { t.loop.Store(v) }

func (t *Transport) Looping() bool { return t.loop.Load() }

// Rate returns the current playback rate, waiting for a pending update.
func (t *Transport) Rate() float64 {
	t.rateMu.Lock()
	defer t.rateMu.Unlock()
	return t.rate
}

// TryUpdateRate runs apply with the rate lock held if the lock is free. The
// new rate is stored only when apply succeeds. If another update holds the
// lock, apply is not run and ok is false.
func (t *Transport) TryUpdateRate(rate float64, apply func(rate float64) error) (ok bool, err error) {
	if !t.rateMu.TryLock() {
		return false, nil
	}
	defer t.rateMu.Unlock()

	if err := apply(rate); err != nil {
		return true, err
	}
	t.rate = rate
	return true, nil
}
