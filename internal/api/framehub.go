// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"sync"

	"github.com/ManuGH/playbin/internal/metrics"
	"github.com/ManuGH/playbin/internal/player"
)

// FrameHub fans decoded frames out to stream subscribers. Each subscriber
// holds at most one pending frame; a slow reader only ever sees the latest.
type FrameHub struct {
	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	closed bool
}

type subscription struct {
	ch   chan *player.Frame
	once sync.Once
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

func NewFrameHub() *FrameHub {
	return &FrameHub{subs: make(map[string]map[*subscription]struct{})}
}

// Publish hands f to every subscriber of id without blocking.
func (h *FrameHub) Publish(id string, f *player.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[id] {
		select {
		case sub.ch <- f:
			continue
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- f:
		default:
		}
	}
}

// Subscribe returns a channel of frames for id and a cancel func. The
// channel is closed by cancel, by Drop(id) and by Close.
func (h *FrameHub) Subscribe(id string) (<-chan *player.Frame, func()) {
	sub := &subscription{ch: make(chan *player.Frame, 1)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.close()
		return sub.ch, func() {}
	}
	if h.subs[id] == nil {
		h.subs[id] = make(map[*subscription]struct{})
	}
	h.subs[id][sub] = struct{}{}
	h.mu.Unlock()
	metrics.StreamSubscribers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[id]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(h.subs, id)
				}
			}
			h.mu.Unlock()
			sub.close()
			metrics.StreamSubscribers.Dec()
		})
	}
	return sub.ch, cancel
}

// Drop ends every subscription of id, e.g. when the player is removed.
func (h *FrameHub) Drop(id string) {
	h.mu.Lock()
	set := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()
	for sub := range set {
		sub.close()
	}
}

// Subscribers returns the number of open subscriptions for id.
func (h *FrameHub) Subscribers(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}

// Close ends every subscription. Later Subscribe calls get a closed channel.
func (h *FrameHub) Close() {
	h.mu.Lock()
	h.closed = true
	all := h.subs
	h.subs = make(map[string]map[*subscription]struct{})
	h.mu.Unlock()
	for _, set := range all {
		for sub := range set {
			sub.close()
		}
	}
}
