// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestToFileLoadsBackUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "playbin.yaml", `
dataDir: `+dir+`
engine:
  ffprobeBin: /opt/ffmpeg/ffprobe
  scaleHeight: 360
player:
  capsTimeout: 1500ms
players:
  - id: lobby
    uri: /media/lobby.mp4
    loop: true
    volume: 0.5
`)
	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)

	out, err := yaml.Marshal(ToFile(cfg))
	require.NoError(t, err)
	assert.Contains(t, string(out), "capsTimeout: 1.5s")

	again := writeFile(t, dir, "dump.yaml", string(out))
	got, err := NewLoader(again, "test").Load()
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
