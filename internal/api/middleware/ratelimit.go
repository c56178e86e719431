// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

const controlWindow = time.Minute

// ControlRateLimit allows each client rpm control requests per minute and
// per player, so a client hammering one player leaves the others usable.
// rpm <= 0 disables limiting.
func ControlRateLimit(rpm int) func(http.Handler) http.Handler {
	if rpm <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		rpm,
		controlWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP, keyByPlayer),
		httprate.WithLimitHandler(rejectControl),
	)
}

// keyByPlayer is empty on routes without a player id.
func keyByPlayer(r *http.Request) (string, error) {
	return chi.URLParam(r, "id"), nil
}

func rejectControl(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(int(controlWindow.Seconds())))
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
}
