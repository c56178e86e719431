// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

// ToFile renders the effective configuration as a complete YAML document.
// Loading the result with no env overrides yields cfg again.
func ToFile(cfg Config) FileConfig {
	f := FileConfig{
		LogLevel:     ptr(cfg.LogLevel),
		LogService:   ptr(cfg.LogService),
		DataDir:      ptr(cfg.DataDir),
		Listen:       ptr(cfg.Listen),
		RateLimitRPM: ptr(cfg.RateLimitRPM),
		Engine: &FileEngine{
			FFmpegBin:    ptr(cfg.Engine.FFmpegBin),
			FFprobeBin:   ptr(cfg.Engine.FFprobeBin),
			KillTimeout:  ptr(cfg.Engine.KillTimeout),
			ProbeTimeout: ptr(cfg.Engine.ProbeTimeout),
			StallTimeout: ptr(cfg.Engine.StallTimeout),
			ScaleWidth:   ptr(cfg.Engine.ScaleWidth),
			ScaleHeight:  ptr(cfg.Engine.ScaleHeight),
		},
		Player: &FilePlayer{
			CapsTimeout:   ptr(cfg.Player.CapsTimeout),
			RestartOffset: ptr(cfg.Player.RestartOffset),
			FrameQueue:    ptr(cfg.Player.FrameQueue),
		},
	}
	for _, p := range cfg.Players {
		f.Players = append(f.Players, FilePlayerSpec{
			ID:        p.ID,
			URI:       p.URI,
			AutoStart: p.AutoStart,
			Loop:      p.Loop,
			Volume:    ptr(p.Volume),
			Muted:     p.Muted,
			Rate:      ptr(p.Rate),
		})
	}
	return f
}

func ptr[T any](v T) *T { return &v }
