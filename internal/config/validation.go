// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/ManuGH/playbin/internal/validate"
)

const minTimeout = 100 * time.Millisecond

var playerIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidPlayerID reports whether id can name a player in URLs and logs.
func ValidPlayerID(id string) bool {
	return playerIDPattern.MatchString(id)
}

// Validate checks cfg and reports every problem at once. It creates DataDir
// if missing.
func Validate(cfg Config) error {
	v := validate.New()

	v.LogLevel("LogLevel", cfg.LogLevel)
	v.ListenAddr("Listen", cfg.Listen)
	v.Directory("DataDir", cfg.DataDir, false)
	v.NonNegative("RateLimitRPM", cfg.RateLimitRPM)

	v.NotEmpty("Engine.FFmpegBin", cfg.Engine.FFmpegBin)
	v.NotEmpty("Engine.FFprobeBin", cfg.Engine.FFprobeBin)
	v.MinDuration("Engine.KillTimeout", cfg.Engine.KillTimeout, minTimeout)
	v.MinDuration("Engine.ProbeTimeout", cfg.Engine.ProbeTimeout, minTimeout)
	v.MinDuration("Engine.StallTimeout", cfg.Engine.StallTimeout, minTimeout)
	v.Range("Engine.ScaleWidth", cfg.Engine.ScaleWidth, 0, 7680)
	v.Range("Engine.ScaleHeight", cfg.Engine.ScaleHeight, 0, 4320)

	v.MinDuration("Player.CapsTimeout", cfg.Player.CapsTimeout, minTimeout)
	v.MinDuration("Player.RestartOffset", cfg.Player.RestartOffset, 0)
	v.Range("Player.FrameQueue", cfg.Player.FrameQueue, 1, 1024)

	seen := make(map[string]struct{}, len(cfg.Players))
	for i, p := range cfg.Players {
		field := fmt.Sprintf("Players[%d]", i)
		if !ValidPlayerID(p.ID) {
			v.AddError(field+".ID", "must match "+playerIDPattern.String(), p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			v.AddError(field+".ID", "duplicate player id", p.ID)
		}
		seen[p.ID] = struct{}{}
		v.MediaURI(field+".URI", p.URI)
		v.FloatRange(field+".Volume", p.Volume, 0, 10)
		if p.Rate <= 0 || p.Rate > 16 {
			v.AddError(field+".Rate", "rate must be in (0, 16]", p.Rate)
		}
	}

	return v.Err()
}
