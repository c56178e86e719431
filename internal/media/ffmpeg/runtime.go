// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ffmpeg implements the media pipeline contract on top of ffmpeg and
// ffprobe subprocesses: ffprobe negotiates caps, one ffmpeg process per
// playback segment decodes to raw RGBA on stdout.
package ffmpeg

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/ManuGH/playbin/internal/log"
	"github.com/ManuGH/playbin/internal/media"
)

// Defaults applied by NewFactory for zero Config fields.
const (
	DefaultKillTimeout  = 3 * time.Second
	DefaultProbeTimeout = 5 * time.Second
	DefaultStartTimeout = 5 * time.Second
	DefaultStallTimeout = 10 * time.Second
	DefaultPostTimeout  = time.Second
	stderrTailLines     = 256
)

// ErrRuntimeUnavailable means ffmpeg or ffprobe could not be resolved.
var ErrRuntimeUnavailable = errors.New("ffmpeg runtime unavailable")

// Config tunes the ffmpeg runtime.
type Config struct {
	FFmpegBin    string
	FFprobeBin   string
	KillTimeout  time.Duration // SIGTERM grace before SIGKILL
	ProbeTimeout time.Duration
	StartTimeout time.Duration // first frame bound for the watchdog
	StallTimeout time.Duration
	PostTimeout  time.Duration // how long a decoder waits on a full bus
	ScaleWidth   int
	ScaleHeight  int
	BusCapacity  int
}

func (c Config) withDefaults() Config {
	if c.FFmpegBin == "" {
		c.FFmpegBin = "ffmpeg"
	}
	if c.FFprobeBin == "" {
		c.FFprobeBin = "ffprobe"
	}
	if c.KillTimeout <= 0 {
		c.KillTimeout = DefaultKillTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = DefaultStartTimeout
	}
	if c.StallTimeout <= 0 {
		c.StallTimeout = DefaultStallTimeout
	}
	if c.PostTimeout <= 0 {
		c.PostTimeout = DefaultPostTimeout
	}
	return c
}

// Binary lookups are resolved once per process and name.
var lookups sync.Map // string -> func() (string, error)

func resolve(bin string) (string, error) {
	fn, _ := lookups.LoadOrStore(bin, sync.OnceValues(func() (string, error) {
		path, err := exec.LookPath(bin)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrRuntimeUnavailable, bin, err)
		}
		logger := log.WithComponent("ffmpeg")
		logger.Info().Str("binary", bin).Str(log.FieldPath, path).Msg("media runtime binary resolved")
		return path, nil
	}))
	return fn.(func() (string, error))()
}

// Factory builds ffmpeg-backed pipelines.
type Factory struct {
	cfg Config
}

// NewFactory returns a Factory. Binaries are resolved lazily on the first
// NewPipeline call.
func NewFactory(cfg Config) *Factory {
	return &Factory{cfg: cfg.withDefaults()}
}

// Available reports whether both binaries resolve.
func (f *Factory) Available() error {
	if _, err := resolve(f.cfg.FFmpegBin); err != nil {
		return err
	}
	_, err := resolve(f.cfg.FFprobeBin)
	return err
}

// NewPipeline implements media.Factory.
func (f *Factory) NewPipeline(pc media.PipelineConfig) (media.Pipeline, error) {
	ffmpegPath, err := resolve(f.cfg.FFmpegBin)
	if err != nil {
		return nil, err
	}
	ffprobePath, err := resolve(f.cfg.FFprobeBin)
	if err != nil {
		return nil, err
	}
	cfg := f.cfg
	cfg.FFmpegBin, cfg.FFprobeBin = ffmpegPath, ffprobePath
	return newPipeline(cfg, pc), nil
}

var _ media.Factory = (*Factory)(nil)
