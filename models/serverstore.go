package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Server-side snapshot storage
//
// The companion API's view of one user's data: one profile row, and one row
// per workout / nutrition date / progress entry, all keyed by the user's
// GUID. Record ids are client-generated, so writes are idempotent upserts —
// a device retrying a push after a timeout must not duplicate records.
//
// Deletes here are hard deletes. Tombstones live on the device; once the
// server confirms a delete the row is simply gone.
// ============================================================================

const DDLCreateProfilesTable = `
CREATE TABLE IF NOT EXISTS profiles (
    user_guid        VARCHAR PRIMARY KEY,
    name             VARCHAR NOT NULL,
    age              INTEGER,
    height_cm        DOUBLE,
    weight_kg        DOUBLE,
    goal             VARCHAR,
    calorie_target   INTEGER,
    protein_target_g INTEGER,
    updated_at       VARCHAR,
    stored_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const DDLCreateWorkoutLogsTable = `
CREATE TABLE IF NOT EXISTS workout_logs (
    user_guid  VARCHAR NOT NULL,
    id         VARCHAR NOT NULL,
    date       VARCHAR NOT NULL,
    created_at VARCHAR,
    synced_at  VARCHAR,
    exercises  VARCHAR,
    notes      VARCHAR,
    stored_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_guid, id)
);
`

const DDLCreateNutritionLogsTable = `
CREATE TABLE IF NOT EXISTS nutrition_logs (
    user_guid       VARCHAR NOT NULL,
    date            VARCHAR NOT NULL,
    meals           VARCHAR,
    total_calories  INTEGER,
    total_protein_g DOUBLE,
    updated_at      VARCHAR,
    stored_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_guid, date)
);
`

const DDLCreateProgressEntriesTable = `
CREATE TABLE IF NOT EXISTS progress_entries (
    user_guid    VARCHAR NOT NULL,
    id           VARCHAR NOT NULL,
    date         VARCHAR NOT NULL,
    weight_kg    DOUBLE,
    body_fat_pct DOUBLE,
    waist_cm     DOUBLE,
    notes        VARCHAR,
    created_at   VARCHAR,
    stored_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_guid, id)
);
`

// UpsertServerProfile writes the user's single profile row.
func UpsertServerProfile(userGUID string, p UserProfile) error {
	_, err := db.Exec(`
		INSERT INTO profiles (user_guid, name, age, height_cm, weight_kg, goal,
		                      calorie_target, protein_target_g, updated_at, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_guid) DO UPDATE SET
		    name = excluded.name, age = excluded.age,
		    height_cm = excluded.height_cm, weight_kg = excluded.weight_kg,
		    goal = excluded.goal, calorie_target = excluded.calorie_target,
		    protein_target_g = excluded.protein_target_g,
		    updated_at = excluded.updated_at, stored_at = excluded.stored_at`,
		userGUID, p.Name, p.Age, p.HeightCm, p.WeightKg, p.Goal,
		p.CalorieTarget, p.ProteinTargetG, p.UpdatedAt, time.Now(),
	)
	if err != nil {
		return serr.Wrap(err, "failed to upsert profile")
	}
	return nil
}

// UpsertServerWorkout writes one workout row, replacing any previous push of
// the same client id.
func UpsertServerWorkout(userGUID string, w WorkoutLog) error {
	exercises, err := json.Marshal(w.Exercises)
	if err != nil {
		return serr.Wrap(err, "failed to encode exercises")
	}

	var syncedAt sql.NullString
	if w.SyncedAt != nil {
		syncedAt = sql.NullString{String: *w.SyncedAt, Valid: true}
	}

	_, err = db.Exec(`
		INSERT INTO workout_logs (user_guid, id, date, created_at, synced_at, exercises, notes, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_guid, id) DO UPDATE SET
		    date = excluded.date, created_at = excluded.created_at,
		    synced_at = excluded.synced_at, exercises = excluded.exercises,
		    notes = excluded.notes, stored_at = excluded.stored_at`,
		userGUID, w.ID, w.Date, w.CreatedAt, syncedAt, string(exercises), w.Notes, time.Now(),
	)
	if err != nil {
		return serr.Wrap(err, "failed to upsert workout")
	}
	return nil
}

// DeleteServerWorkout removes one workout row. Deleting an absent row is
// fine — the device retries deletes, and the second attempt must succeed.
func DeleteServerWorkout(userGUID, id string) error {
	if _, err := db.Exec(`DELETE FROM workout_logs WHERE user_guid = ? AND id = ?`, userGUID, id); err != nil {
		return serr.Wrap(err, "failed to delete workout")
	}
	return nil
}

// UpsertServerNutrition writes the nutrition row for one date.
func UpsertServerNutrition(userGUID string, log NutritionLog) error {
	meals, err := json.Marshal(log.Meals)
	if err != nil {
		return serr.Wrap(err, "failed to encode meals")
	}

	_, err = db.Exec(`
		INSERT INTO nutrition_logs (user_guid, date, meals, total_calories, total_protein_g, updated_at, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_guid, date) DO UPDATE SET
		    meals = excluded.meals, total_calories = excluded.total_calories,
		    total_protein_g = excluded.total_protein_g,
		    updated_at = excluded.updated_at, stored_at = excluded.stored_at`,
		userGUID, log.Date, string(meals), log.TotalCalories, log.TotalProteinG,
		log.UpdatedAt, time.Now(),
	)
	if err != nil {
		return serr.Wrap(err, "failed to upsert nutrition log")
	}
	return nil
}

// DeleteServerNutrition removes the nutrition row for one date.
func DeleteServerNutrition(userGUID, date string) error {
	if _, err := db.Exec(`DELETE FROM nutrition_logs WHERE user_guid = ? AND date = ?`, userGUID, date); err != nil {
		return serr.Wrap(err, "failed to delete nutrition log")
	}
	return nil
}

// UpsertServerProgress writes one progress-entry row.
func UpsertServerProgress(userGUID string, e ProgressEntry) error {
	var bodyFat, waist sql.NullFloat64
	if e.BodyFatPct != nil {
		bodyFat = sql.NullFloat64{Float64: *e.BodyFatPct, Valid: true}
	}
	if e.WaistCm != nil {
		waist = sql.NullFloat64{Float64: *e.WaistCm, Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO progress_entries (user_guid, id, date, weight_kg, body_fat_pct, waist_cm, notes, created_at, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_guid, id) DO UPDATE SET
		    date = excluded.date, weight_kg = excluded.weight_kg,
		    body_fat_pct = excluded.body_fat_pct, waist_cm = excluded.waist_cm,
		    notes = excluded.notes, created_at = excluded.created_at,
		    stored_at = excluded.stored_at`,
		userGUID, e.ID, e.Date, e.WeightKg, bodyFat, waist, e.Notes, e.CreatedAt, time.Now(),
	)
	if err != nil {
		return serr.Wrap(err, "failed to upsert progress entry")
	}
	return nil
}

// DeleteServerProgress removes one progress-entry row.
func DeleteServerProgress(userGUID, id string) error {
	if _, err := db.Exec(`DELETE FROM progress_entries WHERE user_guid = ? AND id = ?`, userGUID, id); err != nil {
		return serr.Wrap(err, "failed to delete progress entry")
	}
	return nil
}

// GetServerSnapshot assembles the full-state read for one user.
func GetServerSnapshot(userGUID string) (*Snapshot, error) {
	snap := &Snapshot{
		Workouts:        []WorkoutLog{},
		NutritionByDate: map[string]NutritionLog{},
		ProgressEntries: []ProgressEntry{},
	}

	profile, err := getServerProfile(userGUID)
	if err != nil {
		return nil, err
	}
	snap.Profile = profile

	if snap.Workouts, err = getServerWorkouts(userGUID); err != nil {
		return nil, err
	}
	if snap.NutritionByDate, err = getServerNutrition(userGUID); err != nil {
		return nil, err
	}
	if snap.ProgressEntries, err = getServerProgress(userGUID); err != nil {
		return nil, err
	}

	return snap, nil
}

func getServerProfile(userGUID string) (*UserProfile, error) {
	p := &UserProfile{}
	err := db.QueryRow(`
		SELECT name, age, height_cm, weight_kg, goal, calorie_target, protein_target_g, updated_at
		FROM profiles WHERE user_guid = ?`, userGUID,
	).Scan(&p.Name, &p.Age, &p.HeightCm, &p.WeightKg, &p.Goal,
		&p.CalorieTarget, &p.ProteinTargetG, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, serr.Wrap(err, "failed to query profile")
	}
	return p, nil
}

func getServerWorkouts(userGUID string) ([]WorkoutLog, error) {
	rows, err := db.Query(`
		SELECT id, date, created_at, synced_at, exercises, notes
		FROM workout_logs WHERE user_guid = ?
		ORDER BY date DESC, created_at DESC`, userGUID)
	if err != nil {
		return nil, serr.Wrap(err, "failed to query workouts")
	}
	defer rows.Close()

	workouts := []WorkoutLog{}
	for rows.Next() {
		var w WorkoutLog
		var syncedAt sql.NullString
		var exercises sql.NullString
		if err := rows.Scan(&w.ID, &w.Date, &w.CreatedAt, &syncedAt, &exercises, &w.Notes); err != nil {
			return nil, serr.Wrap(err, "failed to scan workout row")
		}
		if syncedAt.Valid {
			w.SyncedAt = &syncedAt.String
		}
		if exercises.Valid && exercises.String != "" {
			if err := json.Unmarshal([]byte(exercises.String), &w.Exercises); err != nil {
				return nil, serr.Wrap(err, "failed to decode exercises", "workout_id", w.ID)
			}
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "error iterating workout rows")
	}
	return workouts, nil
}

func getServerNutrition(userGUID string) (map[string]NutritionLog, error) {
	rows, err := db.Query(`
		SELECT date, meals, total_calories, total_protein_g, updated_at
		FROM nutrition_logs WHERE user_guid = ?`, userGUID)
	if err != nil {
		return nil, serr.Wrap(err, "failed to query nutrition logs")
	}
	defer rows.Close()

	logs := map[string]NutritionLog{}
	for rows.Next() {
		var log NutritionLog
		var meals sql.NullString
		if err := rows.Scan(&log.Date, &meals, &log.TotalCalories, &log.TotalProteinG, &log.UpdatedAt); err != nil {
			return nil, serr.Wrap(err, "failed to scan nutrition row")
		}
		if meals.Valid && meals.String != "" {
			if err := json.Unmarshal([]byte(meals.String), &log.Meals); err != nil {
				return nil, serr.Wrap(err, "failed to decode meals", "date", log.Date)
			}
		}
		logs[log.Date] = log
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "error iterating nutrition rows")
	}
	return logs, nil
}

func getServerProgress(userGUID string) ([]ProgressEntry, error) {
	rows, err := db.Query(`
		SELECT id, date, weight_kg, body_fat_pct, waist_cm, notes, created_at
		FROM progress_entries WHERE user_guid = ?
		ORDER BY date DESC`, userGUID)
	if err != nil {
		return nil, serr.Wrap(err, "failed to query progress entries")
	}
	defer rows.Close()

	entries := []ProgressEntry{}
	for rows.Next() {
		var e ProgressEntry
		var bodyFat, waist sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.Date, &e.WeightKg, &bodyFat, &waist, &e.Notes, &e.CreatedAt); err != nil {
			return nil, serr.Wrap(err, "failed to scan progress row")
		}
		if bodyFat.Valid {
			e.BodyFatPct = &bodyFat.Float64
		}
		if waist.Valid {
			e.WaistCm = &waist.Float64
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "error iterating progress rows")
	}
	return entries, nil
}

// DeleteAllServerData wipes every snapshot table for one user. Explicit user
// action only; account rows are untouched.
func DeleteAllServerData(userGUID string) error {
	stmts := []string{
		`DELETE FROM profiles WHERE user_guid = ?`,
		`DELETE FROM workout_logs WHERE user_guid = ?`,
		`DELETE FROM nutrition_logs WHERE user_guid = ?`,
		`DELETE FROM progress_entries WHERE user_guid = ?`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt, userGUID); err != nil {
			return serr.Wrap(err, "failed to delete user data")
		}
	}
	return nil
}
