// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldPlayerID  = "player_id"

	// Pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"

	// Media fields
	FieldURI       = "uri"
	FieldWidth     = "width"
	FieldHeight    = "height"
	FieldFPS       = "fps"
	FieldPosition  = "position"
	FieldDuration  = "duration"
	FieldRate      = "rate"
	FieldVolume    = "volume"
	FieldMuted     = "muted"
	FieldLooping   = "looping"
	FieldAutoStart = "auto_start"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path fields
	FieldPath = "path"
)
