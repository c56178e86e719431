// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/playbin/internal/media"
)

// InputSpec defines the source of one decoder process.
type InputSpec struct {
	Path  string        // local path or URL as ffmpeg expects it
	Start time.Duration // input seek offset (-ss before -i)
}

// OutputSpec defines the raw frames written to stdout.
type OutputSpec struct {
	Caps media.Caps // output caps after scaling, see OutputCaps
}

// OutputCaps derives the sink caps from the probed source caps and the
// configured scale. A zero width or height keeps the source aspect ratio;
// both zero keep the source size. Scaled sides are rounded to even values.
func OutputCaps(src media.Caps, width, height int) media.Caps {
	out := src
	switch {
	case width > 0 && height > 0:
		out.Width, out.Height = width, height
	case width > 0 && src.Width > 0:
		out.Width = width
		out.Height = even(src.Height * width / src.Width)
	case height > 0 && src.Height > 0:
		out.Height = height
		out.Width = even(src.Width * height / src.Height)
	}
	return out
}

func even(v int) int {
	if v < 2 {
		return 2
	}
	return v &^ 1
}

// BuildDecodeArgs constructs the ffmpeg arguments for one decode graph:
// source, decode, convert to RGBA, scale, raw frames on stdout.
// No shell is involved, so the input path needs no quoting.
func BuildDecodeArgs(in InputSpec, out OutputSpec) ([]string, error) {
	if in.Path == "" {
		return nil, fmt.Errorf("missing input")
	}
	if err := out.Caps.Validate(); err != nil {
		return nil, fmt.Errorf("output caps: %w", err)
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error", // stderr is captured into the line ring
		"-nostats",
	}
	if in.Start > 0 {
		args = append(args, "-ss", formatSeconds(in.Start))
	}
	args = append(args,
		"-i", in.Path,
		"-map", "0:v:0",
		"-an", "-sn", "-dn",
		"-vf", videoFilter(out.Caps),
		"-pix_fmt", "rgba",
		"-f", "rawvideo",
		"pipe:1",
	)
	return args, nil
}

func videoFilter(c media.Caps) string {
	filters := []string{
		"fps=" + c.Framerate.String(),
		"format=rgba",
		fmt.Sprintf("scale=%d:%d", c.Width, c.Height),
		"setsar=1",
	}
	return strings.Join(filters, ",")
}

// BuildProbeArgs constructs the ffprobe arguments for capability negotiation.
func BuildProbeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-print_format", "json",
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate,duration:format=duration",
		path,
	}
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
