package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"wasgate/internal/http/responses"
)

// NewRateLimit cria um middleware de rate limiting por IP. É a proteção
// do processo, independente dos limites de envio por usuário.
func NewRateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			responses.TooManyRequests(w, "Too many requests", nil)
		}),
	)
}
