// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"
)

const maxStderrLine = 64 << 10

// stderrTail keeps the last lines a decoder printed, so a failed exit can be
// reported with ffmpeg's own explanation.
type stderrTail struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

func newStderrTail(capacity int) *stderrTail {
	if capacity < 1 {
		capacity = 1
	}
	return &stderrTail{lines: make([]string, capacity)}
}

func (t *stderrTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines[t.next] = line
	t.next = (t.next + 1) % len(t.lines)
	if t.next == 0 {
		t.full = true
	}
}

// last returns up to n lines, oldest first.
func (t *stderrTail) last(n int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ordered []string
	if t.full {
		ordered = append(ordered, t.lines[t.next:]...)
	}
	ordered = append(ordered, t.lines[:t.next]...)
	if n < len(ordered) {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

// collect reads r until EOF. An overlong line stops the tail but the rest of
// the stream is still drained so ffmpeg never blocks on a full stderr pipe.
func (t *stderrTail) collect(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxStderrLine)
	scanner.Split(scanLogLines)
	for scanner.Scan() {
		t.add(scanner.Text())
	}
	if scanner.Err() != nil {
		_, _ = io.Copy(io.Discard, r)
	}
}

// scanLogLines splits on '\n' and on the bare '\r' ffmpeg uses to redraw
// progress lines.
func scanLogLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
