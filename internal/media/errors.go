// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"errors"
	"fmt"
)

var (
	// ErrFlow is returned by a frame callback whose consumer is gone. The
	// runtime treats it as a fatal sink condition and stops producing.
	ErrFlow = errors.New("flow error: frame consumer gone")

	ErrNotNegotiated   = errors.New("caps not negotiated")
	ErrNoURI           = errors.New("no uri set")
	ErrClosed          = errors.New("pipeline closed")
	ErrStateTimeout    = errors.New("state change did not settle")
	ErrUnknownProperty = errors.New("unknown property")
	ErrPropertyType    = errors.New("property type mismatch")
	ErrReadOnly        = errors.New("property is read-only")
	ErrNotPrerolled    = errors.New("pipeline not prerolled")
)

// MissingFieldError reports a capability field absent after negotiation.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing caps field %q", e.Field)
}
