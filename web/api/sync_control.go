package api

import (
	"context"
	"encoding/json"
	"net/http"

	"fittrack/models"

	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Sync Control API Handlers
//
// These endpoints power the UI controls for the device-side orchestrator: a
// status indicator, an enable/disable toggle, and a "Sync Now" button. If
// sync is not configured on this instance, status renders a disabled state
// and the mutating endpoints return 503.
// ============================================================================

// SyncStatus handles GET /api/v1/sync/status
func SyncStatus(ctx rweb.Context) error {
	userGUID := GetCurrentUserGUID(ctx)
	if userGUID == "" {
		return writeError(ctx, http.StatusUnauthorized, "authentication required")
	}

	orch := models.GetOrchestrator()
	if orch == nil {
		return writeSuccess(ctx, http.StatusOK, models.OrchestratorStatus{
			Enabled:   false,
			Connected: false,
		})
	}

	return writeSuccess(ctx, http.StatusOK, orch.GetStatus())
}

// SyncToggle handles POST /api/v1/sync/toggle
// Request body: {"enabled": true} or {"enabled": false}
func SyncToggle(ctx rweb.Context) error {
	userGUID := GetCurrentUserGUID(ctx)
	if userGUID == "" {
		return writeError(ctx, http.StatusUnauthorized, "authentication required")
	}

	orch := models.GetOrchestrator()
	if orch == nil {
		return writeError(ctx, http.StatusServiceUnavailable, "sync is not configured")
	}

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.Unmarshal(ctx.Request().Body(), &req); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	orch.SetEnabled(req.Enabled)

	return writeSuccess(ctx, http.StatusOK, orch.GetStatus())
}

// SyncNow handles POST /api/v1/sync/now
// Triggers an immediate reconciliation pass including a snapshot pull.
// Returns 409 Conflict if a pass is already running — passes are never
// queued.
func SyncNow(ctx rweb.Context) error {
	userGUID := GetCurrentUserGUID(ctx)
	if userGUID == "" {
		return writeError(ctx, http.StatusUnauthorized, "authentication required")
	}

	orch := models.GetOrchestrator()
	if orch == nil {
		return writeError(ctx, http.StatusServiceUnavailable, "sync is not configured")
	}

	if err := orch.SyncNow(context.Background()); err != nil {
		if err.Error() == "sync already in progress" || err.Error() == "sync is disabled" {
			return writeError(ctx, http.StatusConflict, err.Error())
		}
		return writeError(ctx, http.StatusInternalServerError, serr.Wrap(err, "sync failed").Error())
	}

	return writeSuccess(ctx, http.StatusOK, orch.GetStatus())
}
