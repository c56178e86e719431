package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ManuGH/playbin/internal/log"
	"github.com/ManuGH/playbin/internal/player"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, r *http.Request, code int, msg string, err error) {
	resp := errorResponse{Error: msg, RequestID: log.RequestIDFromContext(r.Context())}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, code, resp)
}

func writeNotFound(w http.ResponseWriter, r *http.Request, what string) {
	writeProblem(w, r, http.StatusNotFound, what+" not found", nil)
}

// writePlayerError maps the player error kinds onto HTTP statuses.
func writePlayerError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, player.ErrMissingElement):
		code, msg = http.StatusUnprocessableEntity, "missing element"
	case errors.Is(err, player.ErrSource):
		code, msg = http.StatusUnprocessableEntity, "source error"
	case errors.Is(err, player.ErrClosed):
		code, msg = http.StatusServiceUnavailable, "player closed"
	case errors.Is(err, player.ErrPipeline):
		code, msg = http.StatusServiceUnavailable, "pipeline error"
	case errors.Is(err, player.ErrStateChange):
		code, msg = http.StatusConflict, "state change error"
	}
	logger := log.WithContext(r.Context(), log.WithComponent("api"))
	logger.Warn().Err(err).Int("status", code).Msg("player operation failed")
	writeProblem(w, r, code, msg, err)
}

// decodeJSON strictly decodes a bounded request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
