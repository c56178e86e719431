package media

import (
	"context"
	"time"
)

// Property names understood by every pipeline.
const (
	PropVolume     = "volume"
	PropMute       = "mute"
	PropURI        = "uri"
	PropCurrentURI = "current-uri"
	PropInstantURI = "instant-uri"
)

// SeekFlags modify Seek.
type SeekFlags uint

const (
	SeekFlagNone SeekFlags = 0
	// SeekFlagFlush discards in-flight frames buffered at the old position.
	SeekFlagFlush SeekFlags = 1 << 0
)

// Properties is the typed view over a pipeline's property bag.
type Properties interface {
	Float(name string) (float64, error)
	SetFloat(name string, v float64) error
	Bool(name string) (bool, error)
	SetBool(name string, v bool) error
	String(name string) (string, error)
	SetString(name string, v string) error
}

// Sink is handed to the frame callback. It is only valid for the duration of
// the call.
type Sink interface {
	PullSample() (*Sample, error)
	CurrentCaps() (Caps, bool)
}

// FrameFunc is invoked on a runtime-owned goroutine once per decoded frame.
// Returning an error (usually ErrFlow) stops the pipeline.
type FrameFunc func(Sink) error

// MessageFunc is invoked synchronously on the bus dispatch goroutine.
type MessageFunc func(Message)

// Pipeline is one decode graph from a source URI to an RGBA frame sink.
type Pipeline interface {
	Properties

	// SetState requests a transition. Transitions into Paused or Playing from
	// below may complete asynchronously; use WaitState to observe the result.
	SetState(State) error
	// WaitState blocks until no transition is pending and returns the settled
	// state, or the error that ended the transition.
	WaitState(ctx context.Context) (State, error)
	// State returns the current state without blocking.
	State() State

	// Caps returns the caps negotiated at the sink, once known.
	Caps() (Caps, bool)

	Seek(rate float64, flags SeekFlags, position time.Duration) error
	Position() (time.Duration, bool)
	Duration() (time.Duration, bool)

	// SendEOS ends the stream without tearing the pipeline down.
	SendEOS() error

	// Close releases the pipeline. Once Close returns no callback is running
	// and none will be invoked again.
	Close() error
}

// PipelineConfig carries the callbacks bound at construction.
type PipelineConfig struct {
	Name      string
	OnFrame   FrameFunc
	OnMessage MessageFunc
}

// Factory constructs pipelines for one runtime.
type Factory interface {
	NewPipeline(cfg PipelineConfig) (Pipeline, error)
}
