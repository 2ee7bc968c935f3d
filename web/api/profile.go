package api

import (
	"encoding/json"
	"net/http"

	"fittrack/models"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
)

// PutProfile handles PUT /api/v1/profile
// Upserts the user's single profile record.
func PutProfile(ctx rweb.Context) error {
	userGUID := GetCurrentUserGUID(ctx)
	if userGUID == "" {
		return writeError(ctx, http.StatusUnauthorized, "authentication required")
	}

	var profile models.UserProfile
	if err := json.Unmarshal(ctx.Request().Body(), &profile); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}

	if profile.Name == "" {
		return writeError(ctx, http.StatusBadRequest, "name is required")
	}
	switch profile.Goal {
	case "", models.GoalLoseWeight, models.GoalMaintain, models.GoalGainMuscle:
	default:
		return writeError(ctx, http.StatusBadRequest, "invalid goal")
	}

	if err := models.UpsertServerProfile(userGUID, profile); err != nil {
		logger.LogErr(serr.Wrap(err, "failed to store profile"), "user_guid", userGUID)
		return writeError(ctx, http.StatusInternalServerError, "failed to store profile")
	}

	return writeSuccess(ctx, http.StatusOK, profile)
}
