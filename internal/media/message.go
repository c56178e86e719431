// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"fmt"
	"time"
)

// MessageType enumerates bus notifications.
type MessageType int

const (
	MessageEOS MessageType = iota + 1
	MessageStateChanged
	MessageError
	MessageCapsNegotiated
	MessageWarning
)

func (t MessageType) String() string {
	switch t {
	case MessageEOS:
		return "eos"
	case MessageStateChanged:
		return "state_changed"
	case MessageError:
		return "error"
	case MessageCapsNegotiated:
		return "caps_negotiated"
	case MessageWarning:
		return "warning"
	default:
		return fmt.Sprintf("message(%d)", int(t))
	}
}

// Message is one bus notification. Which fields are set depends on Type:
// StateChanged carries Old/New, Error and Warning carry Err, CapsNegotiated
// carries Caps.
type Message struct {
	Type   MessageType
	Source string
	Old    State
	New    State
	Err    error
	Caps   Caps
}

// Sample is one decoded frame. Data is tightly packed RGBA.
type Sample struct {
	Data []byte
	PTS  time.Duration
}
