// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

// Builder describes how to start a player. It is an immutable value: the
// With methods return modified copies.
type Builder struct {
	id        string
	autoStart bool
	uri       string
	hasURI    bool
}

// NewBuilder returns a builder for id with auto-start off and no uri.
func NewBuilder(id string) Builder {
	return Builder{id: id}
}

// WithAutoStart sets whether the player starts playing once the source is set.
func (b Builder) WithAutoStart(autoStart bool) Builder {
	b.autoStart = autoStart
	return b
}

// WithURI sets the source applied during construction.
func (b Builder) WithURI(uri string) Builder {
	b.uri = uri
	b.hasURI = true
	return b
}

func (b Builder) ID() string      { return b.id }
func (b Builder) AutoStart() bool { return b.autoStart }

// URI returns the initial source, if any.
func (b Builder) URI() (string, bool) {
	return b.uri, b.hasURI
}
