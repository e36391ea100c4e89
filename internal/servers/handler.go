package servers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/firepit-chat/firepit/internal/platform/httpx"
	"github.com/firepit-chat/firepit/internal/ratelimit"
	"github.com/firepit-chat/firepit/internal/shared"
)

// Handler wires HTTP endpoints for servers and membership.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	limiter   *ratelimit.Limiter
	joinLimit ratelimit.Config
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, limiter *ratelimit.Limiter, joinLimit ratelimit.Config) *Handler {
	if joinLimit.MaxRequests <= 0 {
		joinLimit = ratelimit.Config{MaxRequests: 10, Window: time.Minute}
	}
	return &Handler{
		logger:    logger,
		service:   service,
		limiter:   limiter,
		joinLimit: joinLimit,
		validator: validator.New(),
	}
}

// MountRoutes registers server routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/servers/{serverID}", h.getServer)
	r.Get("/servers/{serverID}/members", h.listMembers)
	r.Group(func(r chi.Router) {
		r.Use(h.limiter.Middleware(h.joinLimit, ratelimit.KeyByPrincipal, h.logger))
		r.Post("/servers", h.createServer)
		r.Post("/servers/{serverID}/join", h.join)
		r.Delete("/servers/{serverID}/members/{userID}", h.leave)
	})
}

type serverResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type memberResponse struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

type createServerPayload struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

func (h *Handler) createServer(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var payload createServerPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	server, err := h.service.CreateServer(r.Context(), payload.Name, principal.UserID)
	if err != nil {
		h.respondErr(w, "create server", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, serverResponse{ID: server.ID, Name: server.Name, OwnerID: server.OwnerID, CreatedAt: server.CreatedAt})
}

func (h *Handler) getServer(w http.ResponseWriter, r *http.Request) {
	server, err := h.service.GetServer(r.Context(), chi.URLParam(r, "serverID"))
	if err != nil {
		h.respondErr(w, "get server", err)
		return
	}
	httpx.JSON(w, http.StatusOK, serverResponse{ID: server.ID, Name: server.Name, OwnerID: server.OwnerID, CreatedAt: server.CreatedAt})
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := h.service.Join(r.Context(), chi.URLParam(r, "serverID"), principal.UserID); err != nil {
		h.respondErr(w, "join server", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) leave(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	serverID := chi.URLParam(r, "serverID")
	userID := chi.URLParam(r, "userID")
	// Members may remove themselves; removing someone else needs the kick
	// capability and goes through the role-guarded admin surface instead.
	if principal.UserID != userID {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	if err := h.service.Leave(r.Context(), serverID, userID); err != nil {
		h.respondErr(w, "leave server", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context(), chi.URLParam(r, "serverID"))
	if err != nil {
		h.respondErr(w, "list members", err)
		return
	}
	out := make([]memberResponse, len(members))
	for i, m := range members {
		out[i] = memberResponse{UserID: m.UserID, JoinedAt: m.JoinedAt}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, httpx.ErrDuplicate):
		httpx.RespondError(w, httpx.ErrDuplicate)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
