// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportDefaults(t *testing.T) {
	tr := newTransport()
	assert.False(t, tr.Looping())
	assert.Equal(t, 1.0, tr.Rate())

	tr.SetLooping(true)
	assert.True(t, tr.Looping())
}

func TestTryUpdateRateStoresOnSuccess(t *testing.T) {
	tr := newTransport()
	var applied float64
	ok, err := tr.TryUpdateRate(2, func(rate float64) error {
		applied = rate
		return nil
	})
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, 2.0, applied)
	assert.Equal(t, 2.0, tr.Rate())
}

func TestTryUpdateRateKeepsOldRateOnError(t *testing.T) {
	tr := newTransport()
	boom := errors.New("boom")
	ok, err := tr.TryUpdateRate(3, func(float64) error { return boom })
	assert.True(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, tr.Rate())
}

func TestTryUpdateRateSkipsWhileContended(t *testing.T) {
	tr := newTransport()
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = tr.TryUpdateRate(2, func(float64) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	called := false
	ok, err := tr.TryUpdateRate(4, func(float64) error {
		called = true
		return nil
	})
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.False(t, called)

	close(release)
	<-done
	assert.Equal(t, 2.0, tr.Rate())
}
