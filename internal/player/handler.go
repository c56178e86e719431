// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/ManuGH/playbin/internal/log"
	"github.com/ManuGH/playbin/internal/media"
	"github.com/ManuGH/playbin/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultEventBuffer is the capacity of the merged event stream.
const DefaultEventBuffer = 64

// ErrHandlerClosed is returned by Start after Close.
var ErrHandlerClosed = errors.New("handler closed")

type entry struct {
	gen      uint64
	player   *Player
	controls *Controls
	frame    *Frame
	lastErr  error
}

// Handler owns the active players, merges their channels into one event
// stream and caches the latest frame per player.
type Handler struct {
	factory media.Factory
	opts    Options
	logger  zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	gen     uint64
	closed  bool

	events    chan Message
	done      chan struct{}
	closeOnce sync.Once
	forward   errgroup.Group
}

// NewHandler returns an empty registry building players with factory.
func NewHandler(factory media.Factory, opts Options) *Handler {
	return &Handler{
		factory: factory,
		opts:    opts,
		logger:  log.WithComponent("handler"),
		entries: make(map[string]*entry),
		events:  make(chan Message, DefaultEventBuffer),
		done:    make(chan struct{}),
	}
}

// Events is the merged stream of every registered player's messages. It is
// closed by Close once all forwarders have stopped.
func (h *Handler) Events() <-chan Message {
	return h.events
}

// Start builds a player from b and registers it under b.ID(). An existing
// player with the same id is closed before the new one is built.
func (h *Handler) Start(ctx context.Context, b Builder) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return newError(OpStartPlayer, b.ID(), ErrClosed, ErrHandlerClosed)
	}
	old := h.entries[b.ID()]
	delete(h.entries, b.ID())
	h.mu.Unlock()

	if old != nil {
		h.logger.Info().Str(log.FieldPlayerID, b.ID()).Msg("replacing player with duplicate id")
		_ = old.player.Close()
		metrics.PlayersActive.Dec()
	}

	p, ch, err := New(ctx, h.factory, b, h.opts)
	if err != nil {
		h.logger.Error().Err(err).Str(log.FieldPlayerID, b.ID()).Msg("failed to start player")
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = p.Close()
		return newError(OpStartPlayer, b.ID(), ErrClosed, ErrHandlerClosed)
	}
	if prev := h.entries[b.ID()]; prev != nil {
		// A concurrent Start for the same id registered first.
		defer func() {
			_ = prev.player.Close()
			metrics.PlayersActive.Dec()
		}()
	}
	h.gen++
	gen := h.gen
	h.entries[b.ID()] = &entry{gen: gen, player: p, controls: &Controls{}}
	h.forward.Go(func() error {
		h.forwardFrom(ch, gen)
		return nil
	})
	h.mu.Unlock()

	metrics.PlayersActive.Inc()
	h.logger.Info().Str(log.FieldPlayerID, b.ID()).Int("players", h.Len()).Msg("player started")
	return nil
}

// forwardFrom copies one player's channel into the merged stream until the
// channel closes, stamping each message with the player's registration.
// After Close, remaining messages are discarded.
func (h *Handler) forwardFrom(ch <-chan Message, gen uint64) {
	for msg := range ch {
		msg = stamp(msg, gen)
		select {
		case h.events <- msg:
			metrics.IncMessageForwarded(msg.Kind())
		case <-h.done:
			metrics.IncMessageDropped(msg.Kind(), "closed")
		}
	}
}

// HandleEvent routes one drained message back into the registry: frames
// overwrite the cached frame and errors are remembered. Messages for unknown
// ids, and messages still in flight from a player that was replaced under
// the same id, are ignored and reported as false.
func (h *Handler) HandleEvent(msg Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[msg.PlayerID()]
	if !ok {
		return false
	}
	if g := generationOf(msg); g != 0 && g != e.gen {
		metrics.IncMessageDropped(msg.Kind(), "stale")
		return false
	}
	switch m := msg.(type) {
	case FrameMessage:
		e.frame = m.Frame
	case ErrorMessage:
		e.lastErr = m.Err
	case StateMessage:
		if m.New == media.StatePlaying {
			e.lastErr = nil
		}
	}
	return true
}

// Player looks a player up. A missing id means "not ready yet".
func (h *Handler) Player(id string) (*Player, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.entries[id]
	if !ok {
		return nil, false
	}
	return e.player, true
}

// Frame returns the latest frame handled for id.
func (h *Handler) Frame(id string) (*Frame, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.entries[id]
	if !ok || e.frame == nil {
		return nil, false
	}
	return e.frame, true
}

// LastError returns the last asynchronous error seen for id.
func (h *Handler) LastError(id string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if e, ok := h.entries[id]; ok {
		return e.lastErr
	}
	return nil
}

// Control applies a UI control event to the player registered under id.
func (h *Handler) Control(id string, ev ControlEvent) (bool, error) {
	h.mu.RLock()
	e, ok := h.entries[id]
	h.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, e.controls.Apply(e.player, ev)
}

// PendingSeek returns the proposed scrub position for id, if any.
func (h *Handler) PendingSeek(id string) (float64, bool) {
	h.mu.RLock()
	e, ok := h.entries[id]
	h.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return e.controls.Pending()
}

// IDs returns the registered ids in sorted order.
func (h *Handler) IDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.entries))
	for id := range h.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered players.
func (h *Handler) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Remove closes and deregisters the player under id.
func (h *Handler) Remove(id string) bool {
	h.mu.Lock()
	e, ok := h.entries[id]
	delete(h.entries, id)
	h.mu.Unlock()
	if !ok {
		return false
	}
	_ = e.player.Close()
	metrics.PlayersActive.Dec()
	h.logger.Info().Str(log.FieldPlayerID, id).Msg("player removed")
	return true
}

// Close closes every player, stops the forwarders and closes Events.
func (h *Handler) Close() error {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		entries := h.entries
		h.entries = make(map[string]*entry)
		h.mu.Unlock()

		close(h.done)
		var wg sync.WaitGroup
		for _, e := range entries {
			wg.Add(1)
			go func(p *Player) {
				defer wg.Done()
				_ = p.Close()
				metrics.PlayersActive.Dec()
			}(e.player)
		}
		wg.Wait()
		_ = h.forward.Wait()
		close(h.events)
		h.logger.Info().Int("players", len(entries)).Msg("handler closed")
	})
	return nil
}
