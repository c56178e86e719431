// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"github.com/ManuGH/playbin/internal/media"
)

// frameSink hands exactly one sample to the frame callback.
type frameSink struct {
	sample *media.Sample
	caps   media.Caps
}

func (s *frameSink) PullSample() (*media.Sample, error) {
	if s.sample == nil {
		return nil, media.ErrFlow
	}
	sample := s.sample
	s.sample = nil
	return sample, nil
}

func (s *frameSink) CurrentCaps() (media.Caps, bool) {
	return s.caps, s.caps.Validate() == nil
}

var _ media.Sink = (*frameSink)(nil)
