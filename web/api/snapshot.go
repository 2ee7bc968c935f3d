package api

import (
	"net/http"

	"fittrack/models"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
)

// GetSnapshot handles GET /api/v1/snapshot
// Returns the authenticated user's full server-side state: profile,
// workouts, nutrition by date, and progress entries. This is what the
// device merge engine reconciles against after reconnect.
func GetSnapshot(ctx rweb.Context) error {
	userGUID := GetCurrentUserGUID(ctx)
	if userGUID == "" {
		return writeError(ctx, http.StatusUnauthorized, "authentication required")
	}

	snap, err := models.GetServerSnapshot(userGUID)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to build snapshot"), "user_guid", userGUID)
		return writeError(ctx, http.StatusInternalServerError, "failed to build snapshot")
	}

	logger.Info("Snapshot served",
		"user_guid", userGUID,
		"workouts", len(snap.Workouts),
		"nutrition_dates", len(snap.NutritionByDate),
		"progress_entries", len(snap.ProgressEntries),
	)
	return writeSuccess(ctx, http.StatusOK, snap)
}

// DeleteAllData handles DELETE /api/v1/data
// Wipes the user's server-side records. Explicit user action only — the
// device-side tombstone bookkeeping is bypassed entirely.
func DeleteAllData(ctx rweb.Context) error {
	userGUID := GetCurrentUserGUID(ctx)
	if userGUID == "" {
		return writeError(ctx, http.StatusUnauthorized, "authentication required")
	}

	if err := models.DeleteAllServerData(userGUID); err != nil {
		logger.LogErr(serr.Wrap(err, "failed to delete user data"), "user_guid", userGUID)
		return writeError(ctx, http.StatusInternalServerError, "failed to delete data")
	}

	logger.Info("All user data deleted", "user_guid", userGUID)
	return writeSuccess(ctx, http.StatusOK, map[string]bool{"deleted": true})
}
