// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package mediatest provides an in-memory media runtime for tests of code
// built on the media contract.
package mediatest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/playbin/internal/media"
	"github.com/ManuGH/playbin/internal/media/bus"
)

// SeekCall records one Seek invocation.
type SeekCall struct {
	Rate     float64
	Flags    media.SeekFlags
	Position time.Duration
}

// Factory builds fake pipelines. Exported fields configure pipelines created
// afterwards.
type Factory struct {
	Caps        media.Caps
	Duration    time.Duration
	HasDuration bool
	// PrerollDelay makes transitions into Paused/Playing asynchronous.
	PrerollDelay time.Duration
	// PrerollErr fails every preroll with this error.
	PrerollErr error
	// NewErr fails NewPipeline.
	NewErr error

	mu        sync.Mutex
	pipelines []*Pipeline
}

// NewFactory returns a factory producing 320x240@25 pipelines of 10s.
func NewFactory() *Factory {
	return &Factory{
		Caps:        media.Caps{Width: 320, Height: 240, Framerate: media.Fraction{Num: 25, Den: 1}},
		Duration:    10 * time.Second,
		HasDuration: true,
	}
}

// NewPipeline implements media.Factory.
func (f *Factory) NewPipeline(cfg media.PipelineConfig) (media.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NewErr != nil {
		return nil, f.NewErr
	}
	p := &Pipeline{
		PropertySet:  media.DefaultProperties(),
		name:         cfg.Name,
		onFrame:      cfg.OnFrame,
		caps:         f.Caps,
		duration:     f.Duration,
		hasDuration:  f.HasDuration,
		prerollDelay: f.PrerollDelay,
		prerollErr:   f.PrerollErr,
		settled:      closed(),
	}
	p.bus = bus.New(cfg.Name, cfg.OnMessage, 0)
	f.pipelines = append(f.pipelines, p)
	return p, nil
}

// Pipelines returns every pipeline built so far.
func (f *Factory) Pipelines() []*Pipeline {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Pipeline(nil), f.pipelines...)
}

// Last returns the most recently built pipeline, or nil.
func (f *Factory) Last() *Pipeline {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pipelines) == 0 {
		return nil
	}
	return f.pipelines[len(f.pipelines)-1]
}

func closed() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Pipeline is a fake media.Pipeline. Frames and messages are injected with
// EmitFrame and Post; frames run on the caller's goroutine, messages on the
// bus dispatch goroutine.
type Pipeline struct {
	*media.PropertySet

	name    string
	onFrame media.FrameFunc
	bus     *bus.Bus

	mu           sync.Mutex
	frameMu      sync.Mutex
	state        media.State
	caps         media.Caps
	negotiated   bool
	duration     time.Duration
	hasDuration  bool
	position     time.Duration
	prerollDelay time.Duration
	prerollErr   error
	stateErr     error
	pending      bool
	transErr     error
	settled      chan struct{}
	seeks        []SeekCall
	seekErr      error
	onSeek       func(SeekCall)
	eosSent      int
	closed       bool
	timer        *time.Timer
}

// FailStateChanges makes every later SetState call return err.
func (p *Pipeline) FailStateChanges(err error) {
	p.mu.Lock()
	p.stateErr = err
	p.mu.Unlock()
}

// SetCaps replaces the caps reported after the next preroll.
func (p *Pipeline) SetCaps(c media.Caps) {
	p.mu.Lock()
	p.caps = c
	p.mu.Unlock()
}

func (p *Pipeline) SetState(target media.State) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return media.ErrClosed
	}
	if p.stateErr != nil {
		err := p.stateErr
		p.mu.Unlock()
		return err
	}
	uri, _ := p.PropertySet.String(media.PropURI)
	if target >= media.StateReady && uri == "" {
		p.mu.Unlock()
		return media.ErrNoURI
	}

	if target < media.StatePaused || p.state >= media.StatePaused {
		old := p.state
		p.state = target
		if target == media.StateNull {
			p.negotiated = false
			p.position = 0
		}
		p.mu.Unlock()
		p.postState(old, target)
		return nil
	}

	if p.prerollDelay <= 0 {
		p.mu.Unlock()
		p.finishPreroll(target, uri)
		return nil
	}
	if !p.pending {
		p.pending = true
		p.settled = make(chan struct{})
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.prerollDelay, func() { p.finishPreroll(target, uri) })
	p.mu.Unlock()
	return nil
}

func (p *Pipeline) finishPreroll(target media.State, uri string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	old := p.state
	var msgs []media.Message
	if p.prerollErr != nil {
		p.transErr = p.prerollErr
		if p.state < media.StateReady {
			p.state = media.StateReady
		}
		msgs = append(msgs, media.Message{Type: media.MessageError, Err: p.prerollErr})
	} else {
		p.transErr = nil
		p.negotiated = true
		p.state = target
		msgs = append(msgs,
			media.Message{Type: media.MessageCapsNegotiated, Caps: p.caps},
			media.Message{Type: media.MessageStateChanged, Old: old, New: target},
		)
		p.PropertySet.Store(media.PropCurrentURI, uri)
	}
	if p.pending {
		p.pending = false
		close(p.settled)
	}
	p.mu.Unlock()

	for _, m := range msgs {
		p.Post(m)
	}
}

func (p *Pipeline) postState(old, s media.State) {
	if old != s {
		p.Post(media.Message{Type: media.MessageStateChanged, Old: old, New: s})
	}
}

func (p *Pipeline) WaitState(ctx context.Context) (media.State, error) {
	p.mu.Lock()
	ch := p.settled
	p.mu.Unlock()

	select {
	case <-ch:
	case <-ctx.Done():
		return p.State(), fmt.Errorf("%w: %w", media.ErrStateTimeout, ctx.Err())
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.transErr
}

func (p *Pipeline) State() media.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) Caps() (media.Caps, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.caps, p.negotiated
}

func (p *Pipeline) Seek(rate float64, flags media.SeekFlags, position time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return media.ErrClosed
	}
	if rate <= 0 {
		p.mu.Unlock()
		return fmt.Errorf("seek: rate must be positive, got %g", rate)
	}
	if p.state < media.StatePaused {
		p.mu.Unlock()
		return media.ErrNotPrerolled
	}
	if p.seekErr != nil {
		err := p.seekErr
		p.mu.Unlock()
		return err
	}
	call := SeekCall{Rate: rate, Flags: flags, Position: position}
	hook := p.onSeek
	p.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.seeks = append(p.seeks, call)
	p.position = position
	return nil
}

// OnSeek installs a hook run inside Seek before the seek is recorded.
func (p *Pipeline) OnSeek(fn func(SeekCall)) {
	p.mu.Lock()
	p.onSeek = fn
	p.mu.Unlock()
}

// FailSeeks makes every later Seek return err.
func (p *Pipeline) FailSeeks(err error) {
	p.mu.Lock()
	p.seekErr = err
	p.mu.Unlock()
}

// Seeks returns every accepted seek in order.
func (p *Pipeline) Seeks() []SeekCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SeekCall(nil), p.seeks...)
}

func (p *Pipeline) Position() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state < media.StatePaused {
		return 0, false
	}
	return p.position, true
}

// SetPosition moves the fake clock.
func (p *Pipeline) SetPosition(d time.Duration) {
	p.mu.Lock()
	p.position = d
	p.mu.Unlock()
}

func (p *Pipeline) Duration() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.negotiated {
		return 0, false
	}
	return p.duration, p.hasDuration
}

func (p *Pipeline) SendEOS() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return media.ErrClosed
	}
	p.eosSent++
	p.mu.Unlock()
	p.Post(media.Message{Type: media.MessageEOS})
	return nil
}

// EOSSent reports how many times SendEOS was called.
func (p *Pipeline) EOSSent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eosSent
}

// EmitFrame runs the frame callback with one RGBA frame of the current caps.
func (p *Pipeline) EmitFrame(data []byte, pts time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return media.ErrClosed
	}
	caps := p.caps
	p.position = pts
	p.mu.Unlock()

	if p.onFrame == nil {
		return nil
	}
	// Serialized like a real streaming thread.
	p.frameMu.Lock()
	defer p.frameMu.Unlock()
	return p.onFrame(&sink{sample: &media.Sample{Data: data, PTS: pts}, caps: caps})
}

// Post delivers msg through the bus.
func (p *Pipeline) Post(msg media.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = p.bus.Post(ctx, msg)
}

func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
	}
	if p.pending {
		p.pending = false
		p.transErr = media.ErrClosed
		close(p.settled)
	}
	p.state = media.StateNull
	p.mu.Unlock()

	// Wait for an in-flight frame callback.
	p.frameMu.Lock()
	p.frameMu.Unlock() //nolint:staticcheck // barrier
	p.bus.Close()
	return nil
}

// Closed reports whether Close was called.
func (p *Pipeline) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type sink struct {
	sample *media.Sample
	caps   media.Caps
}

func (s *sink) PullSample() (*media.Sample, error) {
	if s.sample == nil {
		return nil, media.ErrFlow
	}
	out := s.sample
	s.sample = nil
	return out, nil
}

func (s *sink) CurrentCaps() (media.Caps, bool) {
	return s.caps, s.caps.Validate() == nil
}

var (
	_ media.Factory  = (*Factory)(nil)
	_ media.Pipeline = (*Pipeline)(nil)
)
