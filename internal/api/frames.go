// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ManuGH/playbin/internal/fsutil"
	"github.com/ManuGH/playbin/internal/log"
	"github.com/ManuGH/playbin/internal/player"
	"github.com/go-chi/chi/v5"
	"github.com/google/renameio/v2"
)

const (
	streamBoundary = "playbinframe"
	jpegQuality    = 80
)

var errShortFrame = errors.New("frame buffer shorter than its dimensions")

func checkFrame(f *player.Frame) error {
	if f.Width <= 0 || f.Height <= 0 || len(f.Pixels) < f.Width*f.Height*4 {
		return errShortFrame
	}
	return nil
}

func encodePNG(w io.Writer, f *player.Frame) error {
	if err := checkFrame(f); err != nil {
		return err
	}
	return png.Encode(w, f.Image())
}

// latestFrame resolves {id} to its cached frame, writing 404 while the
// player is missing or still loading.
func (s *Server) latestFrame(w http.ResponseWriter, r *http.Request) (string, *player.Frame, bool) {
	id := chi.URLParam(r, "id")
	if _, ok := s.reg.Player(id); !ok {
		writeNotFound(w, r, "player")
		return id, nil, false
	}
	f, ok := s.reg.Frame(id)
	if !ok {
		w.Header().Set("Retry-After", "1")
		writeNotFound(w, r, "frame")
		return id, nil, false
	}
	return id, f, true
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	_, f, ok := s.latestFrame(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := encodePNG(&buf, f); err != nil {
		writeProblem(w, r, http.StatusInternalServerError, "encode frame", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-PTS", strconv.FormatInt(f.PTS.Milliseconds(), 10))
	_, _ = w.Write(buf.Bytes())
}

// handleStream serves frames as multipart MJPEG until the client goes away
// or the player is removed.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.reg.Player(id); !ok {
		writeNotFound(w, r, "player")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, r, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}

	frames, cancel := s.hub.Subscribe(id)
	defer cancel()

	logger := log.WithContext(r.Context(), log.WithPlayer("api", id))
	logger.Debug().Msg("stream subscriber connected")

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Start with the cached frame so clients see a picture while paused.
	if f, ok := s.reg.Frame(id); ok {
		if err := writePart(w, f); err != nil {
			return
		}
		flusher.Flush()
	}

	var buf bytes.Buffer
	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Msg("stream subscriber disconnected")
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			buf.Reset()
			if err := writePartBuf(w, &buf, f); err != nil {
				logger.Debug().Err(err).Msg("stream write failed")
				return
			}
			flusher.Flush()
		}
	}
}

func writePart(w io.Writer, f *player.Frame) error {
	var buf bytes.Buffer
	return writePartBuf(w, &buf, f)
}

func writePartBuf(w io.Writer, buf *bytes.Buffer, f *player.Frame) error {
	if err := checkFrame(f); err != nil {
		return err
	}
	if err := jpeg.Encode(buf, f.Image(), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", streamBoundary, buf.Len()); err != nil {
		return err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// handleSnapshot writes the latest frame as PNG to
// <data>/snapshots/<id>.png, atomically replacing the previous one.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id, f, ok := s.latestFrame(w, r)
	if !ok {
		return
	}
	path, err := s.writeSnapshot(id, f)
	if err != nil {
		writeProblem(w, r, http.StatusInternalServerError, "write snapshot", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"path": path,
		"pts":  f.PTS.Seconds(),
	})
}

func (s *Server) writeSnapshot(id string, f *player.Frame) (string, error) {
	if err := os.MkdirAll(filepath.Join(s.cfg.DataDir, "snapshots"), 0o750); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	path, err := fsutil.ConfineRelPath(s.cfg.DataDir, filepath.Join("snapshots", id+".png"))
	if err != nil {
		return "", err
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o640))
	if err != nil {
		return "", fmt.Errorf("create pending snapshot: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			s.logger.Debug().Err(err).Str(log.FieldPlayerID, id).Msg("cleanup pending snapshot")
		}
	}()

	if err := encodePNG(pending, f); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("replace snapshot: %w", err)
	}
	s.logger.Info().Str(log.FieldPlayerID, id).Str(log.FieldPath, path).Msg("snapshot written")
	return path, nil
}
