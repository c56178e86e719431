// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ManuGH/playbin/internal/media"
	"github.com/ManuGH/playbin/internal/media/mediatest"
	"github.com/ManuGH/playbin/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testURI = "file:///media/clip.mp4"

// next reads from ch until a message of type T arrives.
func next[T Message](t *testing.T, ch <-chan Message) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case m, ok := <-ch:
			require.True(t, ok, "channel closed")
			if v, ok := m.(T); ok {
				return v
			}
		case <-timeout:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
		}
	}
}

func TestNewWithoutSource(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p, ch, err := New(context.Background(), mediatest.NewFactory(), NewBuilder("a"), Options{})
	require.NoError(t, err)
	defer p.Close()
	require.NotNil(t, ch)

	assert.Equal(t, "a", p.ID())
	assert.False(t, p.IsPlaying())
	assert.Equal(t, media.StateNull, p.State())
	_, ok := p.Source()
	assert.False(t, ok)
	_, ok = p.VideoDetails()
	assert.False(t, ok)
	assert.Zero(t, p.Position())
	assert.Zero(t, p.Duration())
	assert.Equal(t, 1.0, p.PlaybackRate())
}

func TestAutoStartOffLeavesPlayerPaused(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p, ch, err := New(context.Background(), mediatest.NewFactory(), NewBuilder("a").WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	assert.False(t, p.IsPlaying())
	assert.Equal(t, media.StatePaused, p.State())

	details, ok := p.VideoDetails()
	require.True(t, ok)
	assert.Equal(t, VideoDetails{Width: 320, Height: 240, Framerate: 25}, details)

	uri, ok := p.Source()
	require.True(t, ok)
	assert.Equal(t, testURI, uri)
	assert.Equal(t, 10*time.Second, p.Duration())

	first := next[StateMessage](t, ch)
	assert.Equal(t, media.StatePlaying, first.New)
	second := next[StateMessage](t, ch)
	assert.Equal(t, media.StatePaused, second.New)
}

func TestAutoStartOnPlays(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	f.PrerollDelay = 10 * time.Millisecond
	p, _, err := New(context.Background(), f, NewBuilder("a").WithAutoStart(true).WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	assert.True(t, p.IsPlaying())
	instant, err := f.Last().Bool(media.PropInstantURI)
	require.NoError(t, err)
	assert.True(t, instant)
}

func TestNewPipelineFailure(t *testing.T) {
	f := mediatest.NewFactory()
	f.NewErr = errors.New("no runtime")

	_, _, err := New(context.Background(), f, NewBuilder("a"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPipeline)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, OpCreate, pe.Op)
	assert.Equal(t, "a", pe.PlayerID)
}

func TestSetSourcePrerollFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	f.PrerollErr = media.ErrNotNegotiated
	_, _, err := New(context.Background(), f, NewBuilder("a").WithURI(testURI), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSource)
	assert.ErrorIs(t, err, media.ErrNotNegotiated)
	assert.True(t, f.Last().Closed())
}

func TestSetSourceMissingCapsField(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	f.Caps = media.Caps{Height: 240, Framerate: media.Fraction{Num: 25, Den: 1}}
	p, _, err := New(context.Background(), f, NewBuilder("a"), Options{})
	require.NoError(t, err)
	defer p.Close()

	err = p.SetSource(context.Background(), testURI)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingElement)
	assert.ErrorIs(t, err, ErrSource)
	var mfe *media.MissingFieldError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, "width", mfe.Field)
	_, ok := p.VideoDetails()
	assert.False(t, ok)
}

func TestSetSourceCapsTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	f.PrerollDelay = time.Hour
	p, _, err := New(context.Background(), f, NewBuilder("a"), Options{CapsTimeout: 20 * time.Millisecond})
	require.NoError(t, err)
	defer p.Close()

	err = p.SetSource(context.Background(), testURI)
	assert.ErrorIs(t, err, ErrSource)
	assert.ErrorIs(t, err, media.ErrStateTimeout)
}

func TestSetSourceAfterClose(t *testing.T) {
	p, _, err := New(context.Background(), mediatest.NewFactory(), NewBuilder("a"), Options{})
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	err = p.SetSource(context.Background(), testURI)
	assert.ErrorIs(t, err, ErrSource)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFramesReachChannel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	p, ch, err := New(context.Background(), f, NewBuilder("a").WithAutoStart(true).WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	pixels := make([]byte, 320*240*4)
	pixels[0] = 0xff
	require.NoError(t, f.Last().EmitFrame(pixels, 40*time.Millisecond))

	fm := next[FrameMessage](t, ch)
	assert.Equal(t, "a", fm.PlayerID())
	assert.Equal(t, 320, fm.Frame.Width)
	assert.Equal(t, 240, fm.Frame.Height)
	assert.Equal(t, 40*time.Millisecond, fm.Frame.PTS)

	img := fm.Frame.Image()
	require.NotNil(t, img)
	assert.Equal(t, uint8(0xff), img.Pix[0])
	assert.Equal(t, 320, img.Bounds().Dx())
}

func TestFrameCallbackAfterConsumerGone(t *testing.T) {
	cb := &callbacks{id: "a", transport: newTransport(), queue: newQueue(1)}
	cb.queue.close()
	s := &stubSink{sample: &media.Sample{Data: []byte{1, 2, 3, 4}}, caps: media.Caps{Width: 1, Height: 1, Framerate: media.Fraction{Num: 1, Den: 1}}}
	assert.ErrorIs(t, cb.onFrame(s), media.ErrFlow)
}

type stubSink struct {
	sample *media.Sample
	caps   media.Caps
}

func (s *stubSink) PullSample() (*media.Sample, error) { return s.sample, nil }
func (s *stubSink) CurrentCaps() (media.Caps, bool)    { return s.caps, true }

func TestLoopRestartsAtOffset(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	p, ch, err := New(context.Background(), f, NewBuilder("a").WithAutoStart(true).WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	p.SetLooping(true)
	assert.True(t, p.Looping())
	f.Last().SetPosition(10 * time.Second)
	require.NoError(t, p.Stop())

	eos := next[EOSMessage](t, ch)
	assert.True(t, eos.Looped)
	assert.Equal(t, 2*time.Second, p.Position())
	assert.True(t, p.IsPlaying())

	seeks := f.Last().Seeks()
	require.Len(t, seeks, 1)
	assert.Equal(t, mediatest.SeekCall{Rate: 1, Flags: media.SeekFlagFlush, Position: 2 * time.Second}, seeks[0])
}

func TestLoopShortClipRestartsAtZero(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	f.Duration = time.Second
	p, ch, err := New(context.Background(), f, NewBuilder("a").WithAutoStart(true).WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	p.SetLooping(true)
	require.NoError(t, p.Stop())
	assert.True(t, next[EOSMessage](t, ch).Looped)
	assert.Zero(t, p.Position())
}

func TestEOSWithoutLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	p, ch, err := New(context.Background(), f, NewBuilder("a").WithAutoStart(true).WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Stop())
	assert.False(t, next[EOSMessage](t, ch).Looped)
	assert.Empty(t, f.Last().Seeks())
	assert.Equal(t, 1, f.Last().EOSSent())
}

func TestLoopRestartFailureReported(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	p, ch, err := New(context.Background(), f, NewBuilder("a").WithAutoStart(true).WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	boom := errors.New("seek refused")
	f.Last().FailSeeks(boom)
	p.SetLooping(true)
	require.NoError(t, p.Stop())

	em := next[ErrorMessage](t, ch)
	assert.ErrorIs(t, em.Err, boom)
	assert.ErrorIs(t, em.Err, ErrStateChange)
	assert.False(t, next[EOSMessage](t, ch).Looped)
}

func TestLoopRestartOnClosingPipelineIsQuiet(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	p, ch, err := New(context.Background(), f, NewBuilder("a").WithAutoStart(true).WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	f.Last().FailSeeks(media.ErrClosed)
	p.SetLooping(true)
	require.NoError(t, p.Stop())

	timeout := time.After(2 * time.Second)
	for {
		select {
		case m, ok := <-ch:
			require.True(t, ok, "channel closed")
			_, isErr := m.(ErrorMessage)
			require.False(t, isErr, "a restart racing Close is not an error")
			if eos, ok := m.(EOSMessage); ok {
				assert.False(t, eos.Looped)
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for EOS")
		}
	}
}

func TestPipelineErrorForwarded(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	p, ch, err := New(context.Background(), f, NewBuilder("a").WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	f.Last().Post(media.Message{Type: media.MessageError, Err: media.ErrFlow})
	assert.ErrorIs(t, next[ErrorMessage](t, ch).Err, media.ErrFlow)
}

func TestSeekIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	p, _, err := New(context.Background(), f, NewBuilder("a").WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Seek(3*time.Second))
	first := p.Position()
	require.NoError(t, p.Seek(3*time.Second))
	assert.Equal(t, first, p.Position())
	assert.Equal(t, 3*time.Second, p.Position())
	assert.Len(t, f.Last().Seeks(), 2)
}

func TestSeekBeforeSource(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p, _, err := New(context.Background(), mediatest.NewFactory(), NewBuilder("a"), Options{})
	require.NoError(t, err)
	defer p.Close()

	err = p.Seek(time.Second)
	assert.ErrorIs(t, err, ErrStateChange)
	assert.ErrorIs(t, err, media.ErrNotPrerolled)
}

func TestSetPlaybackRate(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	p, _, err := New(context.Background(), f, NewBuilder("a").WithAutoStart(true).WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	f.Last().SetPosition(4 * time.Second)
	require.NoError(t, p.SetPlaybackRate(2))
	assert.Equal(t, 2.0, p.PlaybackRate())

	require.NoError(t, p.Seek(time.Second))
	seeks := f.Last().Seeks()
	require.Len(t, seeks, 2)
	assert.Equal(t, mediatest.SeekCall{Rate: 2, Flags: media.SeekFlagFlush, Position: 4 * time.Second}, seeks[0])
	assert.Equal(t, 2.0, seeks[1].Rate)
}

func TestSetPlaybackRateRejectsNonPositive(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p, _, err := New(context.Background(), mediatest.NewFactory(), NewBuilder("a").WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	assert.ErrorIs(t, p.SetPlaybackRate(0), ErrStateChange)
	assert.ErrorIs(t, p.SetPlaybackRate(-1), ErrStateChange)
	assert.Equal(t, 1.0, p.PlaybackRate())
}

func TestSetPlaybackRateFailureKeepsRate(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	p, _, err := New(context.Background(), f, NewBuilder("a").WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	f.Last().FailSeeks(errors.New("refused"))
	err = p.SetPlaybackRate(2)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, OpSetRate, pe.Op)
	assert.Equal(t, 1.0, p.PlaybackRate())
}

func TestConcurrentRateUpdateIsSkipped(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	p, _, err := New(context.Background(), f, NewBuilder("a").WithAutoStart(true).WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	entered := make(chan struct{})
	release := make(chan struct{})
	f.Last().OnSeek(func(c mediatest.SeekCall) {
		if c.Rate == 2 {
			close(entered)
			<-release
		}
	})

	before := testutil.ToFloat64(metrics.RateUpdatesSkippedTotal)
	done := make(chan error, 1)
	go func() { done <- p.SetPlaybackRate(2) }()
	<-entered

	assert.NoError(t, p.SetPlaybackRate(3))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RateUpdatesSkippedTotal)-before)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 2.0, p.PlaybackRate())
	assert.Len(t, f.Last().Seeks(), 1)
}

func TestVolumeAndMute(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p, _, err := New(context.Background(), mediatest.NewFactory(), NewBuilder("a"), Options{})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 1.0, p.Volume())
	assert.False(t, p.Muted())
	require.NoError(t, p.SetVolume(0.25))
	require.NoError(t, p.SetMuted(true))
	assert.Equal(t, 0.25, p.Volume())
	assert.True(t, p.Muted())

	err = p.SetVolume(11)
	assert.ErrorIs(t, err, ErrStateChange)
	assert.Equal(t, 0.25, p.Volume())
}

func TestPlayPause(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	p, ch, err := New(context.Background(), f, NewBuilder("a").WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Play())
	assert.True(t, p.IsPlaying())
	require.NoError(t, p.Pause())
	assert.False(t, p.IsPlaying())
	assert.Equal(t, media.StatePaused, p.State())

	// preroll, auto-start pause, play, pause
	var states []media.State
	for range 4 {
		states = append(states, next[StateMessage](t, ch).New)
	}
	assert.Equal(t, []media.State{media.StatePlaying, media.StatePaused, media.StatePlaying, media.StatePaused}, states)
}

func TestStateChangeFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	p, _, err := New(context.Background(), f, NewBuilder("a").WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	f.Last().FailStateChanges(errors.New("refused"))
	err = p.Play()
	assert.ErrorIs(t, err, ErrStateChange)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, OpPlay, pe.Op)
	assert.ErrorIs(t, p.Pause(), ErrStateChange)
}

func TestRestartStream(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	p, _, err := New(context.Background(), f, NewBuilder("a").WithURI(testURI), Options{})
	require.NoError(t, err)
	defer p.Close()

	f.Last().SetPosition(7 * time.Second)
	require.NoError(t, p.RestartStream())
	assert.True(t, p.IsPlaying())
	assert.Zero(t, p.Position())

	f.Last().FailSeeks(errors.New("refused"))
	err = p.RestartStream()
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, OpRestart, pe.Op)
}

func TestCloseClosesChannel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := mediatest.NewFactory()
	p, ch, err := New(context.Background(), f, NewBuilder("a").WithAutoStart(true).WithURI(testURI), Options{})
	require.NoError(t, err)
	require.NoError(t, p.Close())

	for range ch {
	}
	assert.True(t, f.Last().Closed())
	assert.ErrorIs(t, f.Last().EmitFrame(nil, 0), media.ErrClosed)
}
