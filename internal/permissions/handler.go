package permissions

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/firepit-chat/firepit/internal/platform/httpx"
	"github.com/firepit-chat/firepit/internal/shared"
)

// Handler exposes effective-permission queries over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers permission routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/servers/{serverID}/members/{userID}/permissions", h.effective)
}

func (h *Handler) effective(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")
	userID := chi.URLParam(r, "userID")
	channelID := r.URL.Query().Get("channel")

	set, err := h.service.Effective(r.Context(), serverID, userID, channelID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("resolve effective permissions",
			slog.String("server_id", serverID),
			slog.String("user_id", userID),
			slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusOK, set)
}
