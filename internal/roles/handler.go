package roles

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shohoj-krishi/shohoj-krishi/internal/platform/httpx"
)

// Handler serves the role registry read-only over HTTP so the web client
// can render navigation without shipping its own copy of the tables.
type Handler struct{}

// NewHandler constructs a registry Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// MountRoutes registers the registry routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/roles", h.handleList)
	r.Get("/api/roles/{role}/tabs", h.handleTabs)
	r.Get("/api/roles/{role}/permissions", h.handlePermissions)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": Known()})
}

func (h *Handler) handleTabs(w http.ResponseWriter, r *http.Request) {
	role, ok := ParseRole(chi.URLParam(r, "role"))
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown role")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role": role,
		"tabs": TabsForRole(role),
	})
}

func (h *Handler) handlePermissions(w http.ResponseWriter, r *http.Request) {
	role, ok := ParseRole(chi.URLParam(r, "role"))
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown role")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":        role,
		"permissions": Permissions(role),
	})
}
