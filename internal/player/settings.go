// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import "errors"

// Settings are the transport values a host applies right after Start.
type Settings struct {
	Loop   bool
	Volume float64
	Muted  bool
	Rate   float64 // 0 keeps the current rate
}

// Apply sets every field of s on p and joins the failures.
func (s Settings) Apply(p *Player) error {
	p.SetLooping(s.Loop)
	var errs []error
	if err := p.SetVolume(s.Volume); err != nil {
		errs = append(errs, err)
	}
	if err := p.SetMuted(s.Muted); err != nil {
		errs = append(errs, err)
	}
	// Rate changes need a prerolled pipeline.
	if s.Rate > 0 && s.Rate != p.PlaybackRate() {
		if _, ok := p.Source(); ok {
			if err := p.SetPlaybackRate(s.Rate); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
