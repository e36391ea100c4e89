package permissions

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/firepit-chat/firepit/internal/shared"
)

// Middleware wires capability checks into HTTP routes. It expects the route
// to carry a serverID URL parameter and the request context to carry a
// principal.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Require ensures the current principal holds the capability within the
// route's server before the handler runs.
func (m Middleware) Require(c Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			serverID := chi.URLParam(r, "serverID")
			if serverID == "" {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			allowed, err := m.Service.Allows(r.Context(), serverID, principal.UserID, "", c)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("permission check", slog.String("capability", c.String()), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
