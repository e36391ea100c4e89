package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/firepit-chat/firepit/internal/platform/httpx"
	"github.com/firepit-chat/firepit/internal/shared"
)

// KeyFunc derives the rate-limit identifier for a request.
type KeyFunc func(r *http.Request) string

// KeyByPrincipal keys on the authenticated user, falling back to the remote
// address for anonymous requests.
func KeyByPrincipal(r *http.Request) string {
	if p := shared.PrincipalFromContext(r.Context()); p != nil {
		return "user:" + p.UserID
	}
	return "ip:" + r.RemoteAddr
}

// Middleware enforces the config on every request passing through, emitting
// standard rate-limit headers and a 429 problem response when the window is
// exhausted.
func (l *Limiter) Middleware(cfg Config, key KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	if key == nil {
		key = KeyByPrincipal
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Check(key(r), cfg)
			if err != nil {
				if logger != nil {
					logger.Error("rate limit check", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			if !res.Allowed {
				retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				httpx.RespondError(w, httpx.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
