// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/playbin/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDecodeArgs(t *testing.T) {
	caps := media.Caps{Width: 320, Height: 180, Framerate: media.Fraction{Num: 25, Den: 1}}

	args, err := BuildDecodeArgs(InputSpec{Path: "/media/a.mp4", Start: 2500 * time.Millisecond}, OutputSpec{Caps: caps})
	require.NoError(t, err)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-ss 2.500 -i /media/a.mp4")
	assert.Contains(t, joined, "-map 0:v:0")
	assert.Contains(t, joined, "-vf fps=25/1,format=rgba,scale=320:180,setsar=1")
	assert.Contains(t, joined, "-pix_fmt rgba -f rawvideo pipe:1")
	assert.Equal(t, "pipe:1", args[len(args)-1])
}

func TestBuildDecodeArgsNoSeekAtZero(t *testing.T) {
	caps := media.Caps{Width: 2, Height: 2, Framerate: media.Fraction{Num: 1, Den: 1}}
	args, err := BuildDecodeArgs(InputSpec{Path: "x"}, OutputSpec{Caps: caps})
	require.NoError(t, err)
	assert.NotContains(t, args, "-ss")
}

func TestBuildDecodeArgsValidation(t *testing.T) {
	_, err := BuildDecodeArgs(InputSpec{}, OutputSpec{})
	assert.Error(t, err)

	_, err = BuildDecodeArgs(InputSpec{Path: "x"}, OutputSpec{Caps: media.Caps{Width: 2}})
	var mfe *media.MissingFieldError
	assert.ErrorAs(t, err, &mfe)
}

func TestOutputCaps(t *testing.T) {
	src := media.Caps{Width: 1920, Height: 1080, Framerate: media.Fraction{Num: 25, Den: 1}}

	assert.Equal(t, src, OutputCaps(src, 0, 0))

	got := OutputCaps(src, 640, 0)
	assert.Equal(t, 640, got.Width)
	assert.Equal(t, 360, got.Height)
	assert.Equal(t, src.Framerate, got.Framerate)

	got = OutputCaps(src, 0, 101)
	assert.Equal(t, 178, got.Width)
	assert.Equal(t, 101, got.Height)

	got = OutputCaps(src, 100, 100)
	assert.Equal(t, 100, got.Width)
	assert.Equal(t, 100, got.Height)
}
