package api

import (
	"encoding/json"
	"net/http"

	"fittrack/models"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
)

// PushWorkout handles POST /api/v1/workouts
// Creates or replaces a workout by its client-generated id. Idempotent so a
// device retrying after a timeout cannot duplicate the record.
func PushWorkout(ctx rweb.Context) error {
	userGUID := GetCurrentUserGUID(ctx)
	if userGUID == "" {
		return writeError(ctx, http.StatusUnauthorized, "authentication required")
	}

	var workout models.WorkoutLog
	if err := json.Unmarshal(ctx.Request().Body(), &workout); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}

	if workout.ID == "" {
		return writeError(ctx, http.StatusBadRequest, "id is required")
	}
	if workout.Date == "" {
		return writeError(ctx, http.StatusBadRequest, "date is required")
	}

	// The server's copy is by definition synced
	now := models.NowStamp()
	workout.SyncedAt = &now
	if workout.CreatedAt == "" {
		workout.CreatedAt = now
	}

	if err := models.UpsertServerWorkout(userGUID, workout); err != nil {
		logger.LogErr(serr.Wrap(err, "failed to store workout"), "user_guid", userGUID, "id", workout.ID)
		return writeError(ctx, http.StatusInternalServerError, "failed to store workout")
	}

	return writeSuccess(ctx, http.StatusOK, workout)
}

// DeleteWorkout handles DELETE /api/v1/workouts/:id
// Removing an already-absent workout still succeeds — tombstone drains
// retry, and the retry must confirm.
func DeleteWorkout(ctx rweb.Context) error {
	userGUID := GetCurrentUserGUID(ctx)
	if userGUID == "" {
		return writeError(ctx, http.StatusUnauthorized, "authentication required")
	}

	id := ctx.Request().Param("id")
	if id == "" {
		return writeError(ctx, http.StatusBadRequest, "id is required")
	}

	if err := models.DeleteServerWorkout(userGUID, id); err != nil {
		logger.LogErr(serr.Wrap(err, "failed to delete workout"), "user_guid", userGUID, "id", id)
		return writeError(ctx, http.StatusInternalServerError, "failed to delete workout")
	}

	return writeSuccess(ctx, http.StatusOK, map[string]bool{"deleted": true})
}
