package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/firepit-chat/firepit/internal/observability"
	"github.com/firepit-chat/firepit/internal/permissions"
	"github.com/firepit-chat/firepit/internal/platform/httpx"
	"github.com/firepit-chat/firepit/internal/roles"
	"github.com/firepit-chat/firepit/internal/servers"
	"github.com/firepit-chat/firepit/internal/shared"
	"github.com/firepit-chat/firepit/internal/upstream"
	"github.com/firepit-chat/firepit/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	TokenStore         *shared.TokenStore
	PermissionsHandler *permissions.Handler
	RolesHandler       *roles.Handler
	ServersHandler     *servers.Handler
	Releases           *upstream.ReleaseClient
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with firepit defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:     params.Logger,
		Config:     params.Config,
		TokenStore: params.TokenStore,
		Metrics:    params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Releases != nil {
		r.Get("/meta/version", func(w http.ResponseWriter, r *http.Request) {
			release, err := params.Releases.Latest(r.Context())
			if err != nil {
				params.Logger.Warn("version check", slog.Any("error", err))
				httpx.Problem(w, http.StatusBadGateway, "Upstream Unavailable", "release feed not reachable")
				return
			}
			httpx.JSON(w, http.StatusOK, release)
		})
	}

	if params.ServersHandler != nil {
		params.ServersHandler.MountRoutes(r)
	}
	if params.RolesHandler != nil {
		params.RolesHandler.MountRoutes(r)
	}
	if params.PermissionsHandler != nil {
		params.PermissionsHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
