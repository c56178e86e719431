// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"slices"
	"sync"

	"github.com/ManuGH/playbin/internal/media"
	"github.com/ManuGH/playbin/internal/metrics"
)

// DefaultQueueSize bounds a player's background channel.
const DefaultQueueSize = 8

// controlSlack is the room kept above the frame bound for state, error and
// EOS messages, so a backlog of frames never crowds them out.
const controlSlack = 8

// queue is a bounded channel that sheds frames first. Frames are admitted
// while fewer than size messages are queued; control messages may use
// another controlSlack slots. On overflow the oldest frame is dropped, and
// only a queue holding no frames at all gives up its oldest control
// message. Producers are the frame goroutine and the bus dispatcher; the
// single consumer reads C().
type queue struct {
	mu     sync.Mutex
	size   int
	ch     chan Message
	closed bool
}

func newQueue(size int) *queue {
	if size < 1 {
		size = DefaultQueueSize
	}
	return &queue{size: size, ch: make(chan Message, size+controlSlack)}
}

func (q *queue) C() <-chan Message { return q.ch }

func (q *queue) limit(m Message) int {
	if _, ok := m.(FrameMessage); ok {
		return q.size
	}
	return cap(q.ch)
}

// push never blocks. After close it returns media.ErrFlow: the consumer is
// gone.
func (q *queue) push(m Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		metrics.IncMessageDropped(m.Kind(), "closed")
		return media.ErrFlow
	}
	// Only producers add, and they hold mu, so this send cannot block.
	if len(q.ch) < q.limit(m) {
		q.ch <- m
		return nil
	}
	q.shed(m)
	return nil
}

// shed takes the queued messages out, drops until m fits and puts them back
// in order. The consumer may keep receiving meanwhile; it only ever sees
// messages in push order.
func (q *queue) shed(m Message) {
	pending := make([]Message, 0, cap(q.ch))
	for drained := false; !drained; {
		select {
		case old := <-q.ch:
			pending = append(pending, old)
		default:
			drained = true
		}
	}

	_, incomingFrame := m.(FrameMessage)
	for len(pending) >= q.limit(m) {
		i := slices.IndexFunc(pending, func(old Message) bool {
			_, ok := old.(FrameMessage)
			return ok
		})
		if i < 0 && incomingFrame {
			// Nothing older to shed: the new frame is the oldest frame.
			metrics.IncMessageDropped(m.Kind(), "overflow")
			q.refill(pending)
			return
		}
		if i < 0 {
			i = 0
		}
		metrics.IncMessageDropped(pending[i].Kind(), "overflow")
		pending = slices.Delete(pending, i, i+1)
	}
	q.refill(append(pending, m))
}

func (q *queue) refill(pending []Message) {
	for _, m := range pending {
		q.ch <- m
	}
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
