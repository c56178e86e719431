package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/playbin/internal/media"
	"github.com/ManuGH/playbin/internal/metrics"
)

// ErrNoVideoStream is returned when the source carries no video stream.
var ErrNoVideoStream = errors.New("no video stream found")

// ProbeResult is the negotiated source description.
type ProbeResult struct {
	Caps        media.Caps
	Duration    time.Duration
	HasDuration bool
}

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe negotiates source capabilities with ffprobe. Missing fields are left
// zero; callers validate with Caps.Validate.
func Probe(ctx context.Context, ffprobeBin, input string) (ProbeResult, error) {
	start := time.Now()
	res, err := probe(ctx, ffprobeBin, input)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ProbeDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	return res, err
}

func probe(ctx context.Context, ffprobeBin, input string) (ProbeResult, error) {
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, ffprobeBin, BuildProbeArgs(input)...) // #nosec G204
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return ProbeResult{}, fmt.Errorf("ffprobe: %w", ctx.Err())
		}
		return ProbeResult{}, fmt.Errorf("ffprobe failed (exit %d): %w: %s",
			cmd.ProcessState.ExitCode(), err, truncateForLog(stderr.String(), 500))
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (ProbeResult, error) {
	var data probeOutput
	if err := json.Unmarshal(out, &data); err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe JSON parse failed: %w: %s", err, truncateForLog(string(out), 500))
	}
	if len(data.Streams) == 0 {
		return ProbeResult{}, ErrNoVideoStream
	}

	s := data.Streams[0]
	res := ProbeResult{
		Caps: media.Caps{Width: s.Width, Height: s.Height},
	}

	// avg_frame_rate is the better estimate for VFR sources; r_frame_rate is
	// the fallback when the container does not report an average.
	for _, raw := range []string{s.AvgFrameRate, s.RFrameRate} {
		if f, err := media.ParseFraction(raw); err == nil && !f.IsZero() {
			res.Caps.Framerate = f
			break
		}
	}

	for _, raw := range []string{data.Format.Duration, s.Duration} {
		if d, ok := parseSeconds(raw); ok {
			res.Duration = d
			res.HasDuration = true
			break
		}
	}
	return res, nil
}

func parseSeconds(raw string) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "N/A" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

func truncateForLog(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
