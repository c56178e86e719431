// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"fmt"
	"strconv"
	"strings"
)

// Fraction is a rational number, used for frame rates.
type Fraction struct {
	Num int
	Den int
}

// ParseFraction parses "30000/1001" or "25". "0/0" yields the zero Fraction.
func ParseFraction(s string) (Fraction, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Fraction{}, fmt.Errorf("empty fraction")
	}
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.Atoi(num)
	if err != nil {
		return Fraction{}, fmt.Errorf("parse fraction %q: %w", s, err)
	}
	d := 1
	if found {
		if d, err = strconv.Atoi(den); err != nil {
			return Fraction{}, fmt.Errorf("parse fraction %q: %w", s, err)
		}
	}
	if d == 0 {
		return Fraction{}, nil
	}
	return Fraction{Num: n, Den: d}, nil
}

// Float64 returns the value of f, or 0 for a zero denominator.
func (f Fraction) Float64() float64 {
	if f.Den == 0 {
		return 0
	}
	return float64(f.Num) / float64(f.Den)
}

// IsZero reports whether f carries no usable rate.
func (f Fraction) IsZero() bool {
	return f.Num <= 0 || f.Den <= 0
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

// Caps describes the negotiated format at the frame sink. Frames are always
// tightly packed RGBA, so a frame is Width*Height*4 bytes.
type Caps struct {
	Width     int
	Height    int
	Framerate Fraction
}

// FrameSize returns the size in bytes of one RGBA frame.
func (c Caps) FrameSize() int {
	return c.Width * c.Height * 4
}

// Validate returns a *MissingFieldError naming the first absent field.
func (c Caps) Validate() error {
	switch {
	case c.Width <= 0:
		return &MissingFieldError{Field: "width"}
	case c.Height <= 0:
		return &MissingFieldError{Field: "height"}
	case c.Framerate.IsZero():
		return &MissingFieldError{Field: "framerate"}
	}
	return nil
}

func (c Caps) String() string {
	return fmt.Sprintf("video/x-raw,format=RGBA,width=%d,height=%d,framerate=%s", c.Width, c.Height, c.Framerate)
}
