package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/firepit-chat/firepit/internal/permissions"
	"github.com/firepit-chat/firepit/internal/platform/httpx"
	"github.com/firepit-chat/firepit/internal/ratelimit"
	"github.com/firepit-chat/firepit/internal/shared"
)

// Handler wires HTTP endpoints for role management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     permissions.Middleware
	limiter   *ratelimit.Limiter
	editLimit ratelimit.Config
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard permissions.Middleware, limiter *ratelimit.Limiter, editLimit ratelimit.Config) *Handler {
	if editLimit.MaxRequests <= 0 {
		editLimit = ratelimit.Config{MaxRequests: 30, Window: time.Minute}
	}
	return &Handler{
		logger:    logger,
		service:   service,
		guard:     guard,
		limiter:   limiter,
		editLimit: editLimit,
		validator: validator.New(),
	}
}

// MountRoutes registers role routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/servers/{serverID}/roles", h.listRoles)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(permissions.CapManageRoles))
		r.Use(h.limiter.Middleware(h.editLimit, ratelimit.KeyByPrincipal, h.logger))
		r.Post("/servers/{serverID}/roles", h.createRole)
		r.Put("/servers/{serverID}/roles/{roleID}", h.updateRole)
		r.Post("/servers/{serverID}/roles/{roleID}/default", h.setDefault)
		r.Delete("/servers/{serverID}/roles/{roleID}", h.deleteRole)
		r.Put("/servers/{serverID}/roles/{roleID}/members/{userID}", h.assignRole)
		r.Delete("/servers/{serverID}/roles/{roleID}/members/{userID}", h.removeRole)
		r.Put("/servers/{serverID}/channels/{channelID}/overrides/{roleID}", h.setOverride)
		r.Delete("/servers/{serverID}/channels/{channelID}/overrides/{roleID}", h.deleteOverride)
	})
}

type roleResponse struct {
	ID            string          `json:"id"`
	ServerID      string          `json:"server_id"`
	Name          string          `json:"name"`
	Position      int             `json:"position"`
	Grants        map[string]bool `json:"grants"`
	DefaultOnJoin bool            `json:"default_on_join"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func toRoleResponse(role Role) roleResponse {
	return roleResponse{
		ID:            role.ID,
		ServerID:      role.ServerID,
		Name:          role.Name,
		Position:      role.Position,
		Grants:        role.Grants,
		DefaultOnJoin: role.DefaultOnJoin,
		CreatedAt:     role.CreatedAt,
		UpdatedAt:     role.UpdatedAt,
	}
}

type rolePayload struct {
	Name          string          `json:"name" validate:"required,min=1,max=100"`
	Position      int             `json:"position" validate:"gte=0"`
	Grants        map[string]bool `json:"grants"`
	DefaultOnJoin bool            `json:"default_on_join"`
}

type overridePayload struct {
	Allow []string `json:"allow" validate:"dive,min=1"`
	Deny  []string `json:"deny" validate:"dive,min=1"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListRoles(r.Context(), chi.URLParam(r, "serverID"))
	if err != nil {
		h.respondErr(w, "list roles", err)
		return
	}
	out := make([]roleResponse, len(list))
	for i, role := range list {
		out[i] = toRoleResponse(role)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var payload rolePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.CreateRole(r.Context(), chi.URLParam(r, "serverID"), payload.Name, payload.Position, payload.Grants, payload.DefaultOnJoin)
	if err != nil {
		h.respondErr(w, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(role))
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	var payload rolePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.UpdateRole(r.Context(), chi.URLParam(r, "roleID"), payload.Name, payload.Position, payload.Grants)
	if err != nil {
		h.respondErr(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) setDefault(w http.ResponseWriter, r *http.Request) {
	err := h.service.SetDefault(r.Context(), chi.URLParam(r, "serverID"), chi.URLParam(r, "roleID"))
	if err != nil {
		h.respondErr(w, "set default role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRole(r.Context(), chi.URLParam(r, "roleID")); err != nil {
		h.respondErr(w, "delete role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	if err := h.service.AssignRole(r.Context(), chi.URLParam(r, "roleID"), chi.URLParam(r, "userID")); err != nil {
		h.respondErr(w, "assign role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveRole(r.Context(), chi.URLParam(r, "roleID"), chi.URLParam(r, "userID")); err != nil {
		h.respondErr(w, "remove role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setOverride(w http.ResponseWriter, r *http.Request) {
	var payload overridePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	err := h.service.SetOverride(r.Context(), chi.URLParam(r, "channelID"), chi.URLParam(r, "roleID"), payload.Allow, payload.Deny)
	if err != nil {
		h.respondErr(w, "set override", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteOverride(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteOverride(r.Context(), chi.URLParam(r, "channelID"), chi.URLParam(r, "roleID"))
	if err != nil {
		h.respondErr(w, "delete override", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrUnknownCapability):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, httpx.ErrDuplicate):
		httpx.RespondError(w, httpx.ErrDuplicate)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
