package api

import (
	"encoding/json"
	"net/http"
	"time"

	"fittrack/models"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
)

// PutNutrition handles PUT /api/v1/nutrition/:date
// Upserts the nutrition log for one calendar date. The date in the path is
// authoritative; a mismatched body date is rejected rather than silently
// remapped.
func PutNutrition(ctx rweb.Context) error {
	userGUID := GetCurrentUserGUID(ctx)
	if userGUID == "" {
		return writeError(ctx, http.StatusUnauthorized, "authentication required")
	}

	date := ctx.Request().Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}

	var log models.NutritionLog
	if err := json.Unmarshal(ctx.Request().Body(), &log); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}
	if log.Date != "" && log.Date != date {
		return writeError(ctx, http.StatusBadRequest, "body date does not match path date")
	}
	log.Date = date

	if err := models.UpsertServerNutrition(userGUID, log); err != nil {
		logger.LogErr(serr.Wrap(err, "failed to store nutrition log"), "user_guid", userGUID, "date", date)
		return writeError(ctx, http.StatusInternalServerError, "failed to store nutrition log")
	}

	return writeSuccess(ctx, http.StatusOK, log)
}

// DeleteNutrition handles DELETE /api/v1/nutrition/:date
func DeleteNutrition(ctx rweb.Context) error {
	userGUID := GetCurrentUserGUID(ctx)
	if userGUID == "" {
		return writeError(ctx, http.StatusUnauthorized, "authentication required")
	}

	date := ctx.Request().Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}

	if err := models.DeleteServerNutrition(userGUID, date); err != nil {
		logger.LogErr(serr.Wrap(err, "failed to delete nutrition log"), "user_guid", userGUID, "date", date)
		return writeError(ctx, http.StatusInternalServerError, "failed to delete nutrition log")
	}

	return writeSuccess(ctx, http.StatusOK, map[string]bool{"deleted": true})
}
