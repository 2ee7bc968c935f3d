package api

import (
	"encoding/json"
	"net/http"

	"fittrack/models"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
)

// PushProgress handles POST /api/v1/progress
// Creates or replaces a progress entry by its client-generated id.
func PushProgress(ctx rweb.Context) error {
	userGUID := GetCurrentUserGUID(ctx)
	if userGUID == "" {
		return writeError(ctx, http.StatusUnauthorized, "authentication required")
	}

	var entry models.ProgressEntry
	if err := json.Unmarshal(ctx.Request().Body(), &entry); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}

	if entry.ID == "" {
		return writeError(ctx, http.StatusBadRequest, "id is required")
	}
	if entry.Date == "" {
		return writeError(ctx, http.StatusBadRequest, "date is required")
	}
	if entry.CreatedAt == "" {
		entry.CreatedAt = models.NowStamp()
	}

	if err := models.UpsertServerProgress(userGUID, entry); err != nil {
		logger.LogErr(serr.Wrap(err, "failed to store progress entry"), "user_guid", userGUID, "id", entry.ID)
		return writeError(ctx, http.StatusInternalServerError, "failed to store progress entry")
	}

	return writeSuccess(ctx, http.StatusOK, entry)
}

// DeleteProgress handles DELETE /api/v1/progress/:id
func DeleteProgress(ctx rweb.Context) error {
	userGUID := GetCurrentUserGUID(ctx)
	if userGUID == "" {
		return writeError(ctx, http.StatusUnauthorized, "authentication required")
	}

	id := ctx.Request().Param("id")
	if id == "" {
		return writeError(ctx, http.StatusBadRequest, "id is required")
	}

	if err := models.DeleteServerProgress(userGUID, id); err != nil {
		logger.LogErr(serr.Wrap(err, "failed to delete progress entry"), "user_guid", userGUID, "id", id)
		return writeError(ctx, http.StatusInternalServerError, "failed to delete progress entry")
	}

	return writeSuccess(ctx, http.StatusOK, map[string]bool{"deleted": true})
}
