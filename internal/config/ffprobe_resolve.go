package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveFFprobeBin picks the ffprobe matching the configured ffmpeg.
//
// An explicit ffprobeBin wins. Otherwise an ffmpeg given as a path gets the
// ffprobe installed next to it, with the same suffix ("ffmpeg-7" pairs with
// "ffprobe-7", "ffmpeg.exe" with "ffprobe.exe"), if that file exists. Anything
// else falls back to a PATH lookup of DefaultFFprobeBin.
func ResolveFFprobeBin(ffprobeBin, ffmpegBin string) string {
	return resolveFFprobeBinWithStat(ffprobeBin, ffmpegBin, os.Stat)
}

func resolveFFprobeBinWithStat(ffprobeBin, ffmpegBin string, stat func(string) (os.FileInfo, error)) string {
	if explicit := strings.TrimSpace(ffprobeBin); explicit != "" {
		return explicit
	}
	if sibling, ok := ffprobeSibling(strings.TrimSpace(ffmpegBin)); ok {
		if fi, err := stat(sibling); err == nil && fi.Mode().IsRegular() {
			return sibling
		}
	}
	return DefaultFFprobeBin
}

// ffprobeSibling is false for bare names, which are PATH lookups.
func ffprobeSibling(ffmpegBin string) (string, bool) {
	dir, name := filepath.Split(ffmpegBin)
	if dir == "" {
		return "", false
	}
	suffix, ok := strings.CutPrefix(name, "ffmpeg")
	if !ok {
		return "", false
	}
	return filepath.Join(dir, "ffprobe"+suffix), true
}
