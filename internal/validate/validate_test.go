// SPDX-License-Identifier: MIT

package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorAggregatesErrors(t *testing.T) {
	v := New()
	v.Range("queue", 0, 1, 64)
	v.FloatRange("volume", 11, 0, 10)
	v.NotEmpty("id", "  ")
	require.False(t, v.IsValid())

	err := v.Err()
	require.Error(t, err)
	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors(), 3)
	assert.Contains(t, err.Error(), "queue")
	assert.Contains(t, err.Error(), "; ")
}

func TestValidatorValid(t *testing.T) {
	v := New()
	v.Range("queue", 8, 1, 64)
	v.NonNegative("z", 0)
	v.MinDuration("caps", time.Second, 100*time.Millisecond)
	v.OneOf("level", "info", []string{"debug", "info"})
	assert.True(t, v.IsValid())
	assert.NoError(t, v.Err())
}

func TestListenAddr(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{":8080", false},
		{"127.0.0.1:0", false},
		{"[::1]:9000", false},
		{"8080", true},
		{"host:port", true},
		{":70000", true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			v := New()
			v.ListenAddr("listen", tt.addr)
			assert.Equal(t, tt.wantErr, !v.IsValid())
		})
	}
}

func TestMediaURI(t *testing.T) {
	tests := []struct {
		uri     string
		wantErr bool
	}{
		{"/media/a.mp4", false},
		{"relative.mp4", false},
		{"file:///media/a.mp4", false},
		{"file://localhost/media/a.mp4", false},
		{"file://nas/media/a.mp4", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			v := New()
			v.MediaURI("uri", tt.uri)
			assert.Equal(t, tt.wantErr, !v.IsValid())
		})
	}
}

func TestDirectory(t *testing.T) {
	root := t.TempDir()

	v := New()
	v.Directory("data", filepath.Join(root, "new"), false)
	assert.True(t, v.IsValid())
	assert.DirExists(t, filepath.Join(root, "new"))

	v = New()
	v.Directory("data", filepath.Join(root, "missing"), true)
	assert.False(t, v.IsValid())

	file := filepath.Join(root, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	v = New()
	v.Directory("data", file, false)
	assert.False(t, v.IsValid())

	v = New()
	v.Directory("data", "../etc", false)
	assert.False(t, v.IsValid())
}

func TestValidatorLogLevel(t *testing.T) {
	v := New()
	v.LogLevel("LogLevel", "trace")
	assert.True(t, v.IsValid())

	v.LogLevel("LogLevel", "WARN")
	v.LogLevel("LogLevel", "loud")
	require.Len(t, v.Errors(), 2)
	assert.Equal(t, "LogLevel", v.Errors()[0].Field)
	assert.Contains(t, v.Errors()[0].Message, "debug")
}
