// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package player is the playback engine: a Player wraps one media pipeline
// plus its transport state, and a Handler multiplexes many players into one
// event stream.
package player

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/playbin/internal/log"
	"github.com/ManuGH/playbin/internal/media"
	"github.com/ManuGH/playbin/internal/metrics"
	"github.com/rs/zerolog"
)

// Defaults for Options.
const (
	DefaultCapsTimeout   = 5 * time.Second
	DefaultRestartOffset = 2 * time.Second
)

// Options tune player construction. Zero fields take the defaults.
type Options struct {
	CapsTimeout   time.Duration // bound on caps negotiation in SetSource
	RestartOffset time.Duration // loop restart position
	QueueSize     int           // background channel capacity
}

func (o Options) withDefaults() Options {
	if o.CapsTimeout <= 0 {
		o.CapsTimeout = DefaultCapsTimeout
	}
	if o.RestartOffset < 0 {
		o.RestartOffset = 0
	} else if o.RestartOffset == 0 {
		o.RestartOffset = DefaultRestartOffset
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	return o
}

// VideoDetails is the negotiated video format of the current source.
type VideoDetails struct {
	Width     int
	Height    int
	Framerate float64
}

// Player is the per-stream engine handle.
type Player struct {
	id        string
	autoStart bool
	opts      Options

	pipeline  media.Pipeline
	transport *Transport
	queue     *queue
	logger    zerolog.Logger

	mu      sync.RWMutex
	details *VideoDetails

	closeOnce sync.Once
	closed    atomic.Bool
}

// callbacks is what the pipeline's goroutines may touch: the id, the
// transport state, the queue and the pipeline handle. Never the Player.
type callbacks struct {
	id            string
	transport     *Transport
	queue         *queue
	pipeline      media.Pipeline
	restartOffset time.Duration
	logger        zerolog.Logger
}

func (c *callbacks) onFrame(s media.Sink) error {
	sample, err := s.PullSample()
	if err != nil {
		return err
	}
	caps, ok := s.CurrentCaps()
	if !ok {
		return media.ErrNotNegotiated
	}
	frame := &Frame{Width: caps.Width, Height: caps.Height, Pixels: sample.Data, PTS: sample.PTS}
	if err := c.queue.push(FrameMessage{ID: c.id, Frame: frame}); err != nil {
		return media.ErrFlow
	}
	return nil
}

func (c *callbacks) onMessage(m media.Message) {
	switch m.Type {
	case media.MessageEOS:
		looped := false
		if c.transport.Looping() {
			pos := c.restartOffset
			// A clip no longer than the offset would land on its own end.
			if dur, ok := c.pipeline.Duration(); ok && dur <= pos {
				pos = 0
			}
			rate := c.transport.Rate()
			err := c.pipeline.Seek(rate, media.SeekFlagFlush, pos)
			switch {
			case errors.Is(err, media.ErrClosed):
				// The player is closing; there is nothing to restart.
			case err != nil:
				c.logger.Error().Err(err).Msg("loop restart failed")
				_ = c.queue.push(ErrorMessage{ID: c.id, Err: newError(OpSeek, c.id, ErrStateChange, err)})
			default:
				looped = true
				c.logger.Debug().Dur(log.FieldPosition, pos).Float64(log.FieldRate, rate).Msg("looping")
			}
		}
		_ = c.queue.push(EOSMessage{ID: c.id, Looped: looped})
	case media.MessageStateChanged:
		_ = c.queue.push(StateMessage{ID: c.id, Old: m.Old, New: m.New})
	case media.MessageError:
		c.logger.Error().Err(m.Err).Msg("pipeline error")
		_ = c.queue.push(ErrorMessage{ID: c.id, Err: m.Err})
	case media.MessageWarning:
		c.logger.Warn().Err(m.Err).Msg("pipeline warning")
	case media.MessageCapsNegotiated:
		c.logger.Debug().Str("caps", m.Caps.String()).Msg("caps negotiated")
	}
}

// New builds a player from b and returns it with its background channel.
// If b carries a uri, SetSource runs before New returns.
func New(ctx context.Context, factory media.Factory, b Builder, opts Options) (*Player, <-chan Message, error) {
	opts = opts.withDefaults()
	logger := log.WithPlayer("player", b.ID())

	cb := &callbacks{
		id:            b.ID(),
		transport:     newTransport(),
		queue:         newQueue(opts.QueueSize),
		restartOffset: opts.RestartOffset,
		logger:        logger,
	}

	pl, err := factory.NewPipeline(media.PipelineConfig{
		Name:      b.ID(),
		OnFrame:   cb.onFrame,
		OnMessage: cb.onMessage,
	})
	if err != nil {
		cb.queue.close()
		return nil, nil, newError(OpCreate, b.ID(), ErrPipeline, err)
	}
	cb.pipeline = pl

	if err := pl.SetBool(media.PropInstantURI, true); err != nil {
		_ = pl.Close()
		cb.queue.close()
		return nil, nil, newError(OpCreate, b.ID(), ErrPipeline, err)
	}

	p := &Player{
		id:        b.ID(),
		autoStart: b.AutoStart(),
		opts:      opts,
		pipeline:  pl,
		transport: cb.transport,
		queue:     cb.queue,
		logger:    logger,
	}
	logger.Info().Bool(log.FieldAutoStart, p.autoStart).Msg("player created")

	if uri, ok := b.URI(); ok {
		if err := p.SetSource(ctx, uri); err != nil {
			_ = p.Close()
			return nil, nil, err
		}
	}
	return p, p.queue.C(), nil
}

func (p *Player) ID() string      { return p.id }
func (p *Player) AutoStart() bool { return p.autoStart }

// SetSource points the pipeline at uri, starts it and waits, bounded by the
// caps timeout, for the frame format to be negotiated. Without auto-start the
// player is paused afterwards. Every error returned matches ErrSource.
func (p *Player) SetSource(ctx context.Context, uri string) error {
	if p.closed.Load() {
		return newError(OpSetSource, p.id, ErrSource, ErrClosed)
	}
	p.logger.Info().Str(log.FieldURI, uri).Msg("setting source")

	p.mu.Lock()
	p.details = nil
	p.mu.Unlock()

	if err := p.pipeline.SetString(media.PropURI, uri); err != nil {
		return newError(OpSetSource, p.id, ErrSource, err)
	}
	if err := p.pipeline.SetState(media.StatePlaying); err != nil {
		return newError(OpSetSource, p.id, ErrStateChange, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.CapsTimeout)
	defer cancel()
	p.logger.Debug().Msg("waiting for decoder to get source capabilities")
	if _, err := p.pipeline.WaitState(ctx); err != nil {
		var mfe *media.MissingFieldError
		if errors.As(err, &mfe) {
			return newError(OpSetSource, p.id, ErrMissingElement, err)
		}
		return newError(OpSetSource, p.id, ErrSource, err)
	}

	caps, ok := p.pipeline.Caps()
	if !ok {
		return newError(OpSetSource, p.id, ErrMissingElement, media.ErrNotNegotiated)
	}
	if err := caps.Validate(); err != nil {
		return newError(OpSetSource, p.id, ErrMissingElement, err)
	}

	details := &VideoDetails{Width: caps.Width, Height: caps.Height, Framerate: caps.Framerate.Float64()}
	p.mu.Lock()
	p.details = details
	p.mu.Unlock()
	p.logger.Debug().
		Int(log.FieldWidth, details.Width).
		Int(log.FieldHeight, details.Height).
		Float64(log.FieldFPS, details.Framerate).
		Msg("source capabilities")

	if !p.autoStart {
		p.logger.Debug().Msg("auto start off, pausing")
		if err := p.pipeline.SetState(media.StatePaused); err != nil {
			return newError(OpSetSource, p.id, ErrStateChange, err)
		}
	}
	p.logger.Debug().Msg("source set")
	return nil
}

// Source returns the uri currently playing, if any.
func (p *Player) Source() (string, bool) {
	uri, err := p.pipeline.String(media.PropCurrentURI)
	if err != nil || uri == "" {
		return "", false
	}
	return uri, true
}

// VideoDetails returns the negotiated format, once SetSource succeeded.
func (p *Player) VideoDetails() (VideoDetails, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.details == nil {
		return VideoDetails{}, false
	}
	return *p.details, true
}

func (p *Player) setState(op string, s media.State) error {
	p.logger.Debug().Str(log.FieldNewState, s.String()).Msg("set state")
	if err := p.pipeline.SetState(s); err != nil {
		p.logger.Error().Err(err).Str(log.FieldNewState, s.String()).Msg("element failed to change its state")
		return newError(op, p.id, ErrStateChange, err)
	}
	return nil
}

// Play requests the playing state.
func (p *Player) Play() error { return p.setState(OpPlay, media.StatePlaying) }

// Pause requests the paused state.
func (p *Player) Pause() error { return p.setState(OpPause, media.StatePaused) }

// IsPlaying polls the pipeline state without blocking.
func (p *Player) IsPlaying() bool {
	return p.pipeline.State() == media.StatePlaying
}

// State returns the pipeline state without blocking.
func (p *Player) State() media.State {
	return p.pipeline.State()
}

// Stop sends end of stream. The pipeline is not torn down.
func (p *Player) Stop() error {
	p.logger.Debug().Msg("sending eos")
	if err := p.pipeline.SendEOS(); err != nil {
		return newError(OpStop, p.id, ErrStateChange, err)
	}
	return nil
}

func (p *Player) SetVolume(v float64) error {
	p.logger.Debug().Float64(log.FieldVolume, v).Msg("volume set")
	if err := p.pipeline.SetFloat(media.PropVolume, v); err != nil {
		return newError(OpSetVolume, p.id, ErrStateChange, err)
	}
	return nil
}

func (p *Player) Volume() float64 {
	v, _ := p.pipeline.Float(media.PropVolume)
	return v
}

func (p *Player) SetMuted(muted bool) error {
	p.logger.Debug().Bool(log.FieldMuted, muted).Msg("muted set")
	if err := p.pipeline.SetBool(media.PropMute, muted); err != nil {
		return newError(OpSetMuted, p.id, ErrStateChange, err)
	}
	return nil
}

func (p *Player) Muted() bool {
	m, _ := p.pipeline.Bool(media.PropMute)
	return m
}

// SetLooping takes effect at the next end of stream.
func (p *Player) SetLooping(looping bool) {
	p.logger.Debug().Bool(log.FieldLooping, looping).Msg("looping set")
	p.transport.SetLooping(looping)
}

func (p *Player) Looping() bool { return p.transport.Looping() }

// Seek issues an immediate flushing seek at the current playback rate.
func (p *Player) Seek(d time.Duration) error {
	p.logger.Debug().Dur(log.FieldPosition, d).Msg("seeking")
	if err := p.pipeline.Seek(p.transport.Rate(), media.SeekFlagFlush, d); err != nil {
		return newError(OpSeek, p.id, ErrStateChange, err)
	}
	return nil
}

// Position returns the playback position, zero while unknown.
func (p *Player) Position() time.Duration {
	d, ok := p.pipeline.Position()
	if !ok {
		return 0
	}
	return d
}

// Duration returns the media duration, zero while unknown.
func (p *Player) Duration() time.Duration {
	d, ok := p.pipeline.Duration()
	if !ok {
		return 0
	}
	return d
}

// SetPlaybackRate changes the rate with a flushing seek at the current
// position. If another rate update is in flight this call is skipped and
// returns nil.
func (p *Player) SetPlaybackRate(rate float64) error {
	p.logger.Debug().Float64(log.FieldRate, rate).Msg("set rate")
	if rate <= 0 {
		return newError(OpSetRate, p.id, ErrStateChange, errors.New("rate must be positive"))
	}
	applied, err := p.transport.TryUpdateRate(rate, func(rate float64) error {
		return p.pipeline.Seek(rate, media.SeekFlagFlush, p.Position())
	})
	if !applied {
		metrics.RateUpdatesSkippedTotal.Inc()
		p.logger.Debug().Float64(log.FieldRate, rate).Msg("rate update in flight, skipped")
		return nil
	}
	if err != nil {
		return newError(OpSetRate, p.id, ErrStateChange, err)
	}
	return nil
}

func (p *Player) PlaybackRate() float64 { return p.transport.Rate() }

// RestartStream plays from the beginning.
func (p *Player) RestartStream() error {
	if err := p.Play(); err != nil {
		return err
	}
	if err := p.Seek(0); err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			pe.Op = OpRestart
		}
		return err
	}
	return nil
}

// Close tears the pipeline down, then closes the background channel. Once
// Close returns no callback for this player is running.
func (p *Player) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		err = p.pipeline.Close()
		p.queue.close()
		p.logger.Info().Msg("player closed")
	})
	return err
}
