package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFFprobeBin(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := filepath.Join(dir, "ffmpeg")
	ffprobe := filepath.Join(dir, "ffprobe")
	require.NoError(t, os.WriteFile(ffmpeg, nil, 0o700))

	assert.Equal(t, "/opt/ffprobe", ResolveFFprobeBin(" /opt/ffprobe ", ffmpeg))
	assert.Equal(t, DefaultFFprobeBin, ResolveFFprobeBin("", "ffmpeg"))
	assert.Equal(t, DefaultFFprobeBin, ResolveFFprobeBin("", ffmpeg), "sibling missing")

	require.NoError(t, os.WriteFile(ffprobe, nil, 0o700))
	assert.Equal(t, ffprobe, ResolveFFprobeBin("", ffmpeg))
	assert.Equal(t, DefaultFFprobeBin, ResolveFFprobeBin("", filepath.Join(dir, "ffmpeg-7")))
	assert.Equal(t, DefaultFFprobeBin, ResolveFFprobeBin("", filepath.Join(dir, "avconv")))
}

func TestResolveFFprobeBinKeepsVersionSuffix(t *testing.T) {
	dir := t.TempDir()
	probe := filepath.Join(dir, "ffprobe-7")
	require.NoError(t, os.WriteFile(probe, nil, 0o700))

	assert.Equal(t, probe, ResolveFFprobeBin("", filepath.Join(dir, "ffmpeg-7")))
	assert.Equal(t, DefaultFFprobeBin, ResolveFFprobeBin("", filepath.Join(dir, "ffmpeg-6")))
}

func TestResolveFFprobeBinIgnoresDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ffprobe"), 0o700))
	got := resolveFFprobeBinWithStat("", filepath.Join(dir, "ffmpeg"), os.Stat)
	assert.Equal(t, DefaultFFprobeBin, got)
}
