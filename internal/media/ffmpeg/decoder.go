// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/playbin/internal/log"
	"github.com/ManuGH/playbin/internal/media"
	"github.com/ManuGH/playbin/internal/media/ffmpeg/watchdog"
	"github.com/ManuGH/playbin/internal/metrics"
	"github.com/ManuGH/playbin/internal/procgroup"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// decoderConfig describes one ffmpeg process. Decoders never touch pipeline
// state directly: they report through the callbacks and the shared position.
type decoderConfig struct {
	bin          string
	input        string
	start        time.Duration
	caps         media.Caps
	rate         float64
	killTimeout  time.Duration
	startTimeout time.Duration
	stallTimeout time.Duration

	onFrame  func(*media.Sample) error
	post     func(media.Message)
	position *atomic.Int64
	logger   zerolog.Logger
}

// decoder supervises one ffmpeg process that writes raw RGBA frames to
// stdout. The first frame is always delivered (preroll); later frames wait
// for the playing gate and are paced at framerate x rate.
type decoder struct {
	cfg decoderConfig

	proc    *procgroup.Process
	stdout  io.ReadCloser
	stderr  *stderrTail
	limiter *rate.Limiter
	wd      *watchdog.Watchdog

	ctx    context.Context
	cancel context.CancelFunc

	playing  atomic.Bool
	wake     chan struct{}
	stopping atomic.Bool
	flowErr  atomic.Pointer[error]

	prerollOnce sync.Once
	prerolled   chan struct{}
	prerollErr  error

	wg sync.WaitGroup
}

func startDecoder(cfg decoderConfig) (*decoder, error) {
	args, err := BuildDecodeArgs(InputSpec{Path: cfg.input, Start: cfg.start}, OutputSpec{Caps: cfg.caps})
	if err != nil {
		return nil, err
	}
	if cfg.rate <= 0 {
		cfg.rate = 1
	}

	cmd := exec.Command(cfg.bin, args...) // #nosec G204
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	proc, err := procgroup.Start(cmd)
	if err != nil {
		metrics.IncDecoderStart("error")
		return nil, fmt.Errorf("start decoder: %w", err)
	}
	metrics.IncDecoderStart("ok")

	fps := cfg.caps.Framerate.Float64() * cfg.rate
	stall := cfg.stallTimeout
	// Slow rates legitimately leave long gaps between frames.
	if gap := time.Duration(2 * float64(time.Second) / fps); gap > stall {
		stall = gap
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &decoder{
		cfg:       cfg,
		proc:      proc,
		stdout:    stdout,
		stderr:    newStderrTail(stderrTailLines),
		limiter:   rate.NewLimiter(rate.Limit(fps), 1),
		wd:        watchdog.New(cfg.startTimeout, stall),
		ctx:       ctx,
		cancel:    cancel,
		wake:      make(chan struct{}, 1),
		prerolled: make(chan struct{}),
	}
	d.cfg.logger = cfg.logger.With().Int(log.FieldPID, proc.Pid()).Logger()
	d.cfg.logger.Debug().
		Dur(log.FieldPosition, cfg.start).
		Float64(log.FieldRate, cfg.rate).
		Str("caps", cfg.caps.String()).
		Msg("decoder started")

	stderrDone := make(chan struct{})
	readerDone := make(chan struct{})

	d.wg.Add(4)
	go func() {
		defer d.wg.Done()
		defer close(stderrDone)
		d.stderr.collect(stderr)
	}()
	go func() {
		defer d.wg.Done()
		defer close(readerDone)
		d.read()
	}()
	go func() {
		defer d.wg.Done()
		// Wait closes the pipes, so both readers must be finished first.
		<-readerDone
		<-stderrDone
		if err := proc.Wait(); err != nil && !d.stopping.Load() && d.flowErr.Load() == nil {
			d.finishPreroll(d.failure())
		} else {
			d.finishPreroll(nil)
		}
		d.supervise()
	}()
	go func() {
		defer d.wg.Done()
		d.watch()
	}()
	return d, nil
}

func (d *decoder) read() {
	defer func() { _ = d.stdout.Close() }()

	size := d.cfg.caps.FrameSize()
	frameDur := time.Duration(float64(time.Second) / d.cfg.caps.Framerate.Float64())

	for n := 0; ; n++ {
		if n > 0 {
			if !d.waitPlaying() {
				return
			}
			if err := d.limiter.Wait(d.ctx); err != nil {
				return
			}
		}

		frame := make([]byte, size)
		if _, err := io.ReadFull(d.stdout, frame); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !d.stopping.Load() {
				d.cfg.logger.Warn().Err(err).Msg("decoder stdout read failed")
			}
			return
		}

		pts := d.cfg.start + time.Duration(n)*frameDur
		d.cfg.position.Store(int64(pts))
		d.wd.Beat()
		metrics.FramesDecodedTotal.Inc()
		d.finishPreroll(nil)

		if d.stopping.Load() {
			return
		}
		if err := d.cfg.onFrame(&media.Sample{Data: frame, PTS: pts}); err != nil {
			d.flowErr.Store(&err)
			d.cfg.logger.Warn().Err(err).Msg("frame consumer failed, stopping decoder")
			_ = d.proc.Kill()
			return
		}
	}
}

// waitPlaying blocks while paused. It returns false once the decoder stops.
func (d *decoder) waitPlaying() bool {
	for !d.playing.Load() {
		select {
		case <-d.wake:
		case <-d.ctx.Done():
			return false
		}
	}
	return d.ctx.Err() == nil
}

func (d *decoder) setPlaying(playing bool) {
	d.playing.Store(playing)
	d.wd.SetPaused(!playing)
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *decoder) finishPreroll(err error) {
	d.prerollOnce.Do(func() {
		d.prerollErr = err
		close(d.prerolled)
	})
}

// waitPreroll blocks until the first frame was delivered or the process
// ended. A process that exits cleanly without frames prerolls successfully
// and reports EOS on the bus.
func (d *decoder) waitPreroll(ctx context.Context) error {
	select {
	case <-d.prerolled:
		return d.prerollErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *decoder) failure() error {
	lines := d.stderr.last(5)
	if len(lines) == 0 {
		return fmt.Errorf("decoder exited: %w", d.proc.Err())
	}
	return fmt.Errorf("decoder exited: %w: %s", d.proc.Err(), strings.Join(lines, "; "))
}

// supervise runs once the process has been reaped.
func (d *decoder) supervise() {
	d.wd.Complete()
	if d.stopping.Load() {
		metrics.IncDecoderExit("stopped")
		return
	}
	if p := d.flowErr.Load(); p != nil {
		metrics.IncDecoderExit("flow")
		d.cfg.post(media.Message{Type: media.MessageError, Err: fmt.Errorf("%w: %w", media.ErrFlow, *p)})
		return
	}
	if d.proc.Err() != nil {
		err := d.failure()
		metrics.IncDecoderExit("error")
		d.cfg.logger.Error().Err(err).Strs("stderr", d.stderr.last(20)).Msg("decoder failed")
		d.cfg.post(media.Message{Type: media.MessageError, Err: err})
		return
	}
	metrics.IncDecoderExit("eos")
	d.cfg.logger.Debug().Msg("decoder reached end of stream")
	d.cfg.post(media.Message{Type: media.MessageEOS})
}

func (d *decoder) watch() {
	err := d.wd.Run(d.ctx)
	if err == nil || d.stopping.Load() {
		return
	}
	metrics.DecoderStallTotal.Inc()
	d.cfg.logger.Warn().Err(err).Str("watchdog", d.wd.State().String()).Msg("decoder stall detected")
	d.cfg.post(media.Message{Type: media.MessageWarning, Err: err})
}

// stop terminates the process group and waits for every decoder goroutine.
// Messages from a stopped decoder are suppressed. Safe to call repeatedly.
func (d *decoder) stop() {
	if d.stopping.Swap(true) {
		d.wg.Wait()
		return
	}
	d.cancel()
	// Unblock a reader stuck on a full pipe before signalling.
	_ = d.stdout.Close()

	_ = d.proc.Stop(d.cfg.killTimeout)
	d.wg.Wait()
}
