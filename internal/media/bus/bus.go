// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus delivers pipeline messages to a single sync handler on a
// dedicated dispatch goroutine, decoupling runtime goroutines from the
// consumer's callback.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/playbin/internal/log"
	"github.com/ManuGH/playbin/internal/media"
	"github.com/ManuGH/playbin/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultCapacity is the queue depth between posters and the dispatcher.
const DefaultCapacity = 64

const dropLogEvery = 100

var dropCount atomic.Uint64

// Bus is an in-process message queue with exactly one consumer.
type Bus struct {
	name    string
	handler media.MessageFunc
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan media.Message
	done   chan struct{}
}

// New starts the dispatch goroutine. A nil handler discards messages.
func New(name string, handler media.MessageFunc, capacity int) *Bus {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	b := &Bus{
		name:    name,
		handler: handler,
		logger:  log.WithPlayer("bus", name),
		ch:      make(chan media.Message, capacity),
		done:    make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, media.ErrClosed):
		return "closed"
	default:
		return "context_done"
	}
}

func (b *Bus) drop(msg media.Message, err error) {
	reason := dropReason(err)
	metrics.IncBusDrop(msg.Type.String(), reason)
	count := dropCount.Add(1)
	if count%dropLogEvery == 0 {
		b.logger.Warn().
			Str("type", msg.Type.String()).
			Str("reason", reason).
			Uint64("dropped", count).
			Msg("bus dropped messages")
	}
}

// Post enqueues msg, blocking while the queue is full until ctx is done.
// Messages posted after Close are dropped with media.ErrClosed.
func (b *Bus) Post(ctx context.Context, msg media.Message) error {
	if ctx == nil {
		return fmt.Errorf("post context is nil")
	}
	if msg.Source == "" {
		msg.Source = b.name
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.drop(msg, media.ErrClosed)
		return media.ErrClosed
	}
	select {
	case b.ch <- msg:
		return nil
	case <-ctx.Done():
		b.drop(msg, ctx.Err())
		return fmt.Errorf("post %s: %w", msg.Type, ctx.Err())
	}
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for msg := range b.ch {
		metrics.IncBusDispatch(msg.Type.String())
		if b.handler != nil {
			b.handler(msg)
		}
	}
}

// Close stops accepting messages, lets the dispatcher drain what is queued
// and waits for it to return. It must not be called from the handler.
func (b *Bus) Close() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
	b.mu.Unlock()
	<-b.done
}

// Done is closed once the dispatcher has returned.
func (b *Bus) Done() <-chan struct{} {
	return b.done
}
