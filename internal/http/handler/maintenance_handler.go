package handler

import (
	"net/http"
	"strings"

	"github.com/cargolinq/freight-auth-service/internal/http/response"
	"github.com/cargolinq/freight-auth-service/internal/observability"
	"github.com/cargolinq/freight-auth-service/internal/service"
)

// MaintenanceHandler exposes the session sweep for external schedulers.
// Requests must carry the maintenance secret; with no secret configured the
// endpoint pretends not to exist.
type MaintenanceHandler struct {
	reaper *service.SessionReaper
	secret string
}

func NewMaintenanceHandler(reaper *service.SessionReaper, secret string) *MaintenanceHandler {
	return &MaintenanceHandler{reaper: reaper, secret: strings.TrimSpace(secret)}
}

func (h *MaintenanceHandler) CleanupSessions(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "not found", nil)
		return
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.secret {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid maintenance credential", nil)
		return
	}

	deleted, err := h.reaper.RunOnce(r.Context())
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "session cleanup failed", nil)
		return
	}

	observability.Audit(r, "maintenance.session_cleanup", "deleted", deleted)
	response.JSON(w, r, http.StatusOK, map[string]any{"deleted_sessions": deleted})
}
