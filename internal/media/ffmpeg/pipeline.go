// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/playbin/internal/log"
	"github.com/ManuGH/playbin/internal/media"
	"github.com/ManuGH/playbin/internal/media/bus"
	"github.com/ManuGH/playbin/internal/metrics"
	"github.com/rs/zerolog"
)

// Pipeline implements media.Pipeline. Moving from Ready to Paused or Playing
// prerolls asynchronously: probe, start the decoder, wait for the first frame.
type Pipeline struct {
	*media.PropertySet

	name    string
	cfg     Config
	onFrame media.FrameFunc
	bus     *bus.Bus
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	state         media.State
	target        media.State
	pending       bool
	settled       chan struct{}
	transErr      error
	gen           uint64
	cancelPreroll context.CancelFunc
	caps          media.Caps
	hasCaps       bool
	input         string
	duration      time.Duration
	hasDuration   bool
	rate          float64
	startPos      time.Duration
	dec           *decoder
	closed        bool

	current  atomic.Int32 // mirrors state for non-blocking reads
	position atomic.Int64
	wg       sync.WaitGroup
}

func newPipeline(cfg Config, pc media.PipelineConfig) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		PropertySet: media.DefaultProperties(),
		name:        pc.Name,
		cfg:         cfg,
		onFrame:     pc.OnFrame,
		logger:      log.WithPlayer("pipeline", pc.Name),
		ctx:         ctx,
		cancel:      cancel,
		rate:        1,
		settled:     closedChan(),
	}
	p.bus = bus.New(pc.Name, pc.OnMessage, cfg.BusCapacity)
	p.PropertySet.OnChange(p.propertyChanged)
	return p
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (p *Pipeline) post(msg media.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.PostTimeout)
	defer cancel()
	_ = p.bus.Post(ctx, msg)
}

// setStateLocked records a settled state and returns the change message.
func (p *Pipeline) setStateLocked(s media.State) (media.Message, bool) {
	old := p.state
	p.state = s
	p.current.Store(int32(s))
	if old == s {
		return media.Message{}, false
	}
	p.logger.Debug().Str(log.FieldOldState, old.String()).Str(log.FieldNewState, s.String()).Msg("state changed")
	return media.Message{Type: media.MessageStateChanged, Old: old, New: s}, true
}

// settleLocked ends a pending transition.
func (p *Pipeline) settleLocked(err error) {
	if !p.pending {
		return
	}
	p.pending = false
	p.transErr = err
	if p.cancelPreroll != nil {
		p.cancelPreroll()
		p.cancelPreroll = nil
	}
	close(p.settled)
}

func (p *Pipeline) uri() string {
	uri, _ := p.PropertySet.String(media.PropURI)
	return uri
}

// SetState implements media.Pipeline.
func (p *Pipeline) SetState(target media.State) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return media.ErrClosed
	}

	var stale *decoder
	var msgs []media.Message

	switch {
	case target <= media.StateReady:
		if target == media.StateReady && p.uri() == "" {
			p.mu.Unlock()
			return media.ErrNoURI
		}
		p.gen++
		p.settleLocked(nil)
		p.transErr = nil
		stale, p.dec = p.dec, nil
		if target == media.StateNull {
			p.hasCaps = false
			p.hasDuration = false
			p.position.Store(0)
		}
		p.startPos = 0
		p.target = target
		if msg, ok := p.setStateLocked(target); ok {
			msgs = append(msgs, msg)
		}

	case p.pending:
		p.target = target

	case p.state >= media.StatePaused:
		p.target = target
		if p.dec != nil {
			p.dec.setPlaying(target == media.StatePlaying)
		}
		if msg, ok := p.setStateLocked(target); ok {
			msgs = append(msgs, msg)
		}

	default:
		uri := p.uri()
		if uri == "" {
			p.mu.Unlock()
			return media.ErrNoURI
		}
		if p.state == media.StateNull {
			if msg, ok := p.setStateLocked(media.StateReady); ok {
				msgs = append(msgs, msg)
			}
		}
		p.beginPrerollLocked(target, uri)
	}
	p.mu.Unlock()

	if stale != nil {
		stale.stop()
	}
	for _, msg := range msgs {
		p.post(msg)
	}
	return nil
}

func (p *Pipeline) beginPrerollLocked(target media.State, uri string) {
	p.gen++
	p.pending = true
	p.target = target
	p.transErr = nil
	p.settled = make(chan struct{})
	ctx, cancel := context.WithCancel(p.ctx)
	p.cancelPreroll = cancel

	p.wg.Add(1)
	go p.preroll(ctx, p.gen, uri)
}

func (p *Pipeline) preroll(ctx context.Context, gen uint64, uri string) {
	defer p.wg.Done()
	logger := p.logger.With().Str(log.FieldURI, uri).Logger()

	normalized, err := NormalizeURI(uri)
	if err != nil {
		p.failPreroll(gen, fmt.Errorf("%w: %w", media.ErrNotNegotiated, err), true)
		return
	}
	input, err := InputFor(normalized)
	if err != nil {
		p.failPreroll(gen, fmt.Errorf("%w: %w", media.ErrNotNegotiated, err), true)
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	res, err := Probe(probeCtx, p.cfg.FFprobeBin, input)
	cancel()
	if err != nil {
		p.failPreroll(gen, fmt.Errorf("%w: %w", media.ErrNotNegotiated, err), true)
		return
	}
	if err := res.Caps.Validate(); err != nil {
		p.failPreroll(gen, err, true)
		return
	}
	caps := OutputCaps(res.Caps, p.cfg.ScaleWidth, p.cfg.ScaleHeight)

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	start, rate := p.startPos, p.rate
	p.position.Store(int64(start))
	dec, err := p.startDecoderLocked(input, caps, start, rate)
	p.mu.Unlock()
	if err != nil {
		p.failPreroll(gen, err, true)
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.StartTimeout)
	err = dec.waitPreroll(waitCtx)
	cancel()
	if err != nil {
		dec.stop()
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			p.failPreroll(gen, fmt.Errorf("%w: no frame within %s", media.ErrNotNegotiated, p.cfg.StartTimeout), true)
			return
		}
		// Decoder exit failures are posted by the decoder itself.
		p.failPreroll(gen, err, false)
		return
	}

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		dec.stop()
		return
	}
	p.caps, p.hasCaps = caps, true
	p.input = input
	p.duration, p.hasDuration = res.Duration, res.HasDuration
	p.dec = dec
	dec.setPlaying(p.target == media.StatePlaying)
	msgs := []media.Message{{Type: media.MessageCapsNegotiated, Caps: caps}}
	if msg, ok := p.setStateLocked(p.target); ok {
		msgs = append(msgs, msg)
	}
	p.settleLocked(nil)
	reseek := p.startPos != start || p.rate != rate
	nextPos, nextRate := p.startPos, p.rate
	p.mu.Unlock()

	p.PropertySet.Store(media.PropCurrentURI, normalized)
	logger.Info().
		Int(log.FieldWidth, caps.Width).
		Int(log.FieldHeight, caps.Height).
		Float64(log.FieldFPS, caps.Framerate.Float64()).
		Dur(log.FieldDuration, res.Duration).
		Msg("pipeline prerolled")
	for _, msg := range msgs {
		p.post(msg)
	}
	if reseek {
		// A seek arrived after the decoder had already been started.
		if err := p.Seek(nextRate, media.SeekFlagFlush, nextPos); err != nil {
			logger.Warn().Err(err).Msg("deferred seek failed")
		}
	}
}

func (p *Pipeline) failPreroll(gen uint64, err error, postErr bool) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.settleLocked(err)
	p.mu.Unlock()

	p.logger.Error().Err(err).Msg("preroll failed")
	if postErr && !errors.Is(err, context.Canceled) {
		p.post(media.Message{Type: media.MessageError, Err: err})
	}
}

func (p *Pipeline) startDecoderLocked(input string, caps media.Caps, start time.Duration, rate float64) (*decoder, error) {
	return startDecoder(decoderConfig{
		bin:          p.cfg.FFmpegBin,
		input:        input,
		start:        start,
		caps:         caps,
		rate:         rate,
		killTimeout:  p.cfg.KillTimeout,
		startTimeout: p.cfg.StartTimeout,
		stallTimeout: p.cfg.StallTimeout,
		onFrame: func(s *media.Sample) error {
			if p.onFrame == nil {
				return nil
			}
			return p.onFrame(&frameSink{sample: s, caps: caps})
		},
		post:     p.post,
		position: &p.position,
		logger:   p.logger,
	})
}

// propertyChanged applies uri switches while instant-uri is set.
func (p *Pipeline) propertyChanged(name string, v any) {
	if name != media.PropURI {
		return
	}
	instant, _ := p.PropertySet.Bool(media.PropInstantURI)
	uri, _ := v.(string)

	p.mu.Lock()
	if p.closed || !instant || uri == "" || (p.state < media.StatePaused && !p.pending) {
		p.mu.Unlock()
		return
	}
	target := p.target
	if !p.pending {
		target = p.state
	}
	stale := p.dec
	p.dec = nil
	p.startPos = 0
	p.settleLocked(nil)
	p.beginPrerollLocked(target, uri)
	p.mu.Unlock()

	p.logger.Info().Str(log.FieldURI, uri).Msg("switching uri in place")
	if stale != nil {
		stale.stop()
	}
}

// WaitState implements media.Pipeline.
func (p *Pipeline) WaitState(ctx context.Context) (media.State, error) {
	for {
		p.mu.Lock()
		if !p.pending {
			s, err := p.state, p.transErr
			p.mu.Unlock()
			return s, err
		}
		ch := p.settled
		p.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return p.State(), fmt.Errorf("%w: %w", media.ErrStateTimeout, ctx.Err())
		}
	}
}

// State implements media.Pipeline.
func (p *Pipeline) State() media.State {
	return media.State(p.current.Load())
}

// Caps implements media.Pipeline.
func (p *Pipeline) Caps() (media.Caps, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.caps, p.hasCaps
}

// Seek implements media.Pipeline. Every seek flushes: the running decoder is
// replaced by one started at position, whose first frame is delivered even
// while paused.
func (p *Pipeline) Seek(rate float64, flags media.SeekFlags, position time.Duration) error {
	if rate <= 0 {
		metrics.IncSeek("invalid")
		return fmt.Errorf("seek: rate must be positive, got %g", rate)
	}
	if position < 0 {
		position = 0
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return media.ErrClosed
	}
	// Clamp once, so deferred seeks and restarts reuse the clamped value.
	if p.hasDuration && position > p.duration {
		position = p.duration
	}
	if p.pending {
		p.startPos, p.rate = position, rate
		p.mu.Unlock()
		metrics.IncSeek("deferred")
		return nil
	}
	if p.state < media.StatePaused || !p.hasCaps {
		p.mu.Unlock()
		metrics.IncSeek("error")
		return media.ErrNotPrerolled
	}
	input := p.input
	stale := p.dec
	p.dec = nil
	p.rate = rate
	p.startPos = position
	p.position.Store(int64(position))
	caps, playing := p.caps, p.state == media.StatePlaying
	p.mu.Unlock()

	// The old decoder must be gone before the new one delivers frames.
	if stale != nil {
		stale.stop()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return media.ErrClosed
	}
	if p.dec != nil {
		// Another seek started a decoder meanwhile; this one supersedes it.
		p.dec.stop()
		p.dec = nil
	}
	dec, err := p.startDecoderLocked(input, caps, position, rate)
	if err != nil {
		metrics.IncSeek("error")
		return fmt.Errorf("seek: %w", err)
	}
	p.dec = dec
	dec.setPlaying(playing)
	metrics.IncSeek("ok")
	p.logger.Debug().
		Dur(log.FieldPosition, position).
		Float64(log.FieldRate, rate).
		Bool("flush", flags&media.SeekFlagFlush != 0).
		Msg("seek")
	return nil
}

// Position implements media.Pipeline.
func (p *Pipeline) Position() (time.Duration, bool) {
	if p.State() < media.StatePaused {
		return 0, false
	}
	return time.Duration(p.position.Load()), true
}

// Duration implements media.Pipeline.
func (p *Pipeline) Duration() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration, p.hasDuration
}

// SendEOS implements media.Pipeline. The decoder is stopped and EOS is
// posted; state is left untouched.
func (p *Pipeline) SendEOS() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return media.ErrClosed
	}
	stale := p.dec
	p.dec = nil
	p.mu.Unlock()

	if stale != nil {
		stale.stop()
	}
	p.post(media.Message{Type: media.MessageEOS})
	return nil
}

// Close implements media.Pipeline.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.gen++
	p.settleLocked(media.ErrClosed)
	stale := p.dec
	p.dec = nil
	p.mu.Unlock()

	p.cancel()
	if stale != nil {
		stale.stop()
	}
	p.wg.Wait()
	p.bus.Close()

	p.mu.Lock()
	p.setStateLocked(media.StateNull)
	p.mu.Unlock()
	p.logger.Debug().Msg("pipeline closed")
	return nil
}

var _ media.Pipeline = (*Pipeline)(nil)
