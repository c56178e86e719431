// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/playbin/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvDataDir, dir)
	path := filepath.Join(dir, "playbin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestConfigValidate(t *testing.T) {
	path := writeConfig(t, "players:\n  - id: lobby\n    uri: /media/lobby.mp4\n")

	var stdout, stderr bytes.Buffer
	code := runConfigCLI([]string{"validate", "-f", path}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "is valid (1 players)")
}

func TestConfigValidateUsesDataDirDefault(t *testing.T) {
	writeConfig(t, "listen: \":9000\"\n")

	var stdout, stderr bytes.Buffer
	code := runConfigCLI([]string{"validate"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "playbin.yaml is valid")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	path := writeConfig(t, "players:\n  - id: \"bad id\"\n    uri: /a.mp4\n    rate: -1\n")

	var stdout, stderr bytes.Buffer
	code := runConfigCLI([]string{"validate", "--file", path}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Players[0].ID")
	assert.Contains(t, stderr.String(), "Players[0].Rate")
}

func TestConfigDump(t *testing.T) {
	path := writeConfig(t, "player:\n  frameQueue: 4\n")

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, runConfigCLI([]string{"dump", "-f", path}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "frameQueue: 4")
	assert.Contains(t, stdout.String(), "capsTimeout: 5s")

	stdout.Reset()
	require.Equal(t, 0, runConfigCLI([]string{"dump", "-f", path, "--format=json"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), `"FrameQueue": 4`)

	assert.Equal(t, 2, runConfigCLI([]string{"dump", "-f", path, "--format=toml"}, &stdout, &stderr))
}

func TestConfigUnknownSubcommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, runConfigCLI([]string{"frobnicate"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage:")
}
