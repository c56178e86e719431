// SPDX-License-Identifier: MIT

package middleware

import (
	"github.com/ManuGH/playbin/internal/log"
	"github.com/go-chi/chi/v5"
)

// NewRouter returns a chi router carrying the chain shared by every route:
// panic recovery, request ids, HTTP metrics, access log.
func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Recoverer, RequestID, Metrics(), log.Middleware())
	return r
}
