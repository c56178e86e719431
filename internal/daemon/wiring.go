// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"github.com/ManuGH/playbin/internal/config"
	"github.com/ManuGH/playbin/internal/media/ffmpeg"
	"github.com/ManuGH/playbin/internal/player"
)

// EngineConfig maps the engine section onto the ffmpeg runtime.
func EngineConfig(cfg config.Config) ffmpeg.Config {
	return ffmpeg.Config{
		FFmpegBin:    cfg.Engine.FFmpegBin,
		FFprobeBin:   cfg.Engine.FFprobeBin,
		KillTimeout:  cfg.Engine.KillTimeout,
		ProbeTimeout: cfg.Engine.ProbeTimeout,
		StartTimeout: cfg.Player.CapsTimeout,
		StallTimeout: cfg.Engine.StallTimeout,
		ScaleWidth:   cfg.Engine.ScaleWidth,
		ScaleHeight:  cfg.Engine.ScaleHeight,
	}
}

// PlayerOptions maps the player defaults onto player.Options.
func PlayerOptions(cfg config.Config) player.Options {
	return player.Options{
		CapsTimeout:   cfg.Player.CapsTimeout,
		RestartOffset: cfg.Player.RestartOffset,
		QueueSize:     cfg.Player.FrameQueue,
	}
}

func builderFor(spec config.PlayerSpec) player.Builder {
	b := player.NewBuilder(spec.ID).WithAutoStart(spec.AutoStart)
	if spec.URI != "" {
		b = b.WithURI(spec.URI)
	}
	return b
}

func settingsFor(spec config.PlayerSpec) player.Settings {
	return player.Settings{
		Loop:   spec.Loop,
		Volume: spec.Volume,
		Muted:  spec.Muted,
		Rate:   spec.Rate,
	}
}
