// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mediatest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/playbin/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestFakePrerollAsync(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var mu sync.Mutex
	var got []media.MessageType
	f := NewFactory()
	f.PrerollDelay = 20 * time.Millisecond
	pl, err := f.NewPipeline(media.PipelineConfig{Name: "a", OnMessage: func(m media.Message) {
		mu.Lock()
		got = append(got, m.Type)
		mu.Unlock()
	}})
	require.NoError(t, err)
	defer pl.Close()

	require.NoError(t, pl.SetString(media.PropURI, "file:///a.mp4"))
	require.NoError(t, pl.SetState(media.StatePlaying))
	assert.Equal(t, media.StateNull, pl.State())

	s, err := pl.WaitState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, media.StatePlaying, s)

	caps, ok := pl.Caps()
	require.True(t, ok)
	assert.Equal(t, 320, caps.Width)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []media.MessageType{media.MessageCapsNegotiated, media.MessageStateChanged}, got)
}

func TestFakeWaitStateTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := NewFactory()
	f.PrerollDelay = time.Hour
	pl, err := f.NewPipeline(media.PipelineConfig{Name: "a"})
	require.NoError(t, err)
	defer pl.Close()

	require.NoError(t, pl.SetString(media.PropURI, "file:///a.mp4"))
	require.NoError(t, pl.SetState(media.StatePaused))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = pl.WaitState(ctx)
	assert.ErrorIs(t, err, media.ErrStateTimeout)
}

func TestFakeSeekRecordsPosition(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := NewFactory()
	pl, err := f.NewPipeline(media.PipelineConfig{Name: "a"})
	require.NoError(t, err)
	defer pl.Close()
	fake := f.Last()

	assert.ErrorIs(t, pl.Seek(1, media.SeekFlagFlush, time.Second), media.ErrNotPrerolled)

	require.NoError(t, pl.SetString(media.PropURI, "file:///a.mp4"))
	require.NoError(t, pl.SetState(media.StatePaused))
	require.NoError(t, pl.Seek(1.5, media.SeekFlagFlush, 3*time.Second))

	pos, ok := pl.Position()
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, pos)
	assert.Equal(t, []SeekCall{{Rate: 1.5, Flags: media.SeekFlagFlush, Position: 3 * time.Second}}, fake.Seeks())
}
