package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Device-Side Data Model
//
// AppData is the single root document a device holds for one signed-in user
// (or one guest session). It is loaded from the local store at startup,
// mutated in memory throughout the session, and persisted after every
// mutation. The embedded LocalSyncState records which parts of the document
// still need to reach the server.
//
// All timestamps are RFC3339 strings so the document round-trips cleanly
// through msgpack and JSON without timezone surprises.
// ============================================================================

// Goal values accepted in UserProfile.Goal.
const (
	GoalLoseWeight = "lose_weight"
	GoalMaintain   = "maintain"
	GoalGainMuscle = "gain_muscle"
)

// UserProfile is the one-per-user record. Never array-valued; a nil profile
// means onboarding has not completed.
type UserProfile struct {
	Name           string  `json:"name" msgpack:"name"`
	Age            int     `json:"age" msgpack:"age"`
	HeightCm       float64 `json:"height_cm" msgpack:"height_cm"`
	WeightKg       float64 `json:"weight_kg" msgpack:"weight_kg"`
	Goal           string  `json:"goal" msgpack:"goal"`
	CalorieTarget  int     `json:"calorie_target" msgpack:"calorie_target"`
	ProteinTargetG int     `json:"protein_target_g" msgpack:"protein_target_g"`
	UpdatedAt      string  `json:"updated_at" msgpack:"updated_at"`
}

// ExerciseEntry is one exercise within a workout log.
type ExerciseEntry struct {
	Name     string  `json:"name" msgpack:"name"`
	Sets     int     `json:"sets" msgpack:"sets"`
	Reps     int     `json:"reps" msgpack:"reps"`
	WeightKg float64 `json:"weight_kg" msgpack:"weight_kg"`
	Notes    string  `json:"notes,omitempty" msgpack:"notes"`
}

// WorkoutLog is one logged workout. The ID is client-generated so records
// can be created offline. SyncedAt carries the workout's pending state:
// nil means the record has not been confirmed on the server.
type WorkoutLog struct {
	ID        string          `json:"id" msgpack:"id"`
	Date      string          `json:"date" msgpack:"date"` // calendar date, YYYY-MM-DD
	CreatedAt string          `json:"created_at" msgpack:"created_at"`
	SyncedAt  *string         `json:"synced_at" msgpack:"synced_at"`
	Exercises []ExerciseEntry `json:"exercises" msgpack:"exercises"`
	Notes     string          `json:"notes,omitempty" msgpack:"notes"`
}

// MealEntry is one food item within a day's nutrition log.
type MealEntry struct {
	Time     string  `json:"time" msgpack:"time"`
	Item     string  `json:"item" msgpack:"item"`
	Calories int     `json:"calories" msgpack:"calories"`
	ProteinG float64 `json:"protein_g" msgpack:"protein_g"`
	CarbsG   float64 `json:"carbs_g" msgpack:"carbs_g"`
	FatG     float64 `json:"fat_g" msgpack:"fat_g"`
}

// NutritionLog is the single nutrition record for one calendar date.
// There is no separate id — the date is the key, and writes are upserts.
type NutritionLog struct {
	Date          string      `json:"date" msgpack:"date"`
	Meals         []MealEntry `json:"meals" msgpack:"meals"`
	TotalCalories int         `json:"total_calories" msgpack:"total_calories"`
	TotalProteinG float64     `json:"total_protein_g" msgpack:"total_protein_g"`
	UpdatedAt     string      `json:"updated_at" msgpack:"updated_at"`
}

// ProgressEntry is one body-measurement snapshot. Unlike nutrition, the same
// date can repeat — one entry per logging event, keyed by client id.
type ProgressEntry struct {
	ID         string   `json:"id" msgpack:"id"`
	Date       string   `json:"date" msgpack:"date"`
	WeightKg   float64  `json:"weight_kg" msgpack:"weight_kg"`
	BodyFatPct *float64 `json:"body_fat_pct,omitempty" msgpack:"body_fat_pct"`
	WaistCm    *float64 `json:"waist_cm,omitempty" msgpack:"waist_cm"`
	Notes      string   `json:"notes,omitempty" msgpack:"notes"`
	CreatedAt  string   `json:"created_at" msgpack:"created_at"`
}

// AppSettings holds device-local reminder configuration. Settings are not
// pushed to the server — they describe this device, not the account.
type AppSettings struct {
	WorkoutReminder bool   `json:"workout_reminder" msgpack:"workout_reminder"`
	WaterReminder   bool   `json:"water_reminder" msgpack:"water_reminder"`
	ReminderTime    string `json:"reminder_time" msgpack:"reminder_time"` // HH:MM, device-local
}

// LocalSyncState is the pending/tombstone ledger embedded in AppData.
//
// Pending sets record local edits not yet confirmed on the server; tombstone
// sets record local deletes not yet confirmed. A key never appears in both
// the pending and tombstone set of the same kind — delete takes precedence.
// Workouts have no pending set: a workout is pending exactly when its
// SyncedAt is nil.
type LocalSyncState struct {
	ProfilePending        bool     `json:"profile_pending" msgpack:"profile_pending"`
	NutritionPendingDates []string `json:"nutrition_pending_dates" msgpack:"nutrition_pending_dates"`
	ProgressPendingIDs    []string `json:"progress_pending_ids" msgpack:"progress_pending_ids"`

	DeletedWorkoutIDs     []string `json:"deleted_workout_ids" msgpack:"deleted_workout_ids"`
	DeletedNutritionDates []string `json:"deleted_nutrition_dates" msgpack:"deleted_nutrition_dates"`
	DeletedProgressIDs    []string `json:"deleted_progress_ids" msgpack:"deleted_progress_ids"`

	// RetryCounts tracks consecutive push/delete failures per queued item,
	// keyed "kind:key". Items at the retry ceiling are skipped by automatic
	// passes until an explicit SyncNow resets them.
	RetryCounts map[string]int `json:"retry_counts,omitempty" msgpack:"retry_counts"`

	LastSuccessfulSyncAt *string `json:"last_successful_sync_at" msgpack:"last_successful_sync_at"`
}

// AppData is the root local document, one instance per signed-in identity.
type AppData struct {
	Profile         *UserProfile            `json:"profile" msgpack:"profile"`
	Workouts        []WorkoutLog            `json:"workouts" msgpack:"workouts"`
	NutritionByDate map[string]NutritionLog `json:"nutrition_by_date" msgpack:"nutrition_by_date"`
	ProgressEntries []ProgressEntry         `json:"progress_entries" msgpack:"progress_entries"`
	Sync            LocalSyncState          `json:"sync" msgpack:"sync"`
	Settings        AppSettings             `json:"settings" msgpack:"settings"`
}

// Snapshot is a full read of one user's server-side data. It carries no
// sync bookkeeping and no settings — those never leave the device.
type Snapshot struct {
	Profile         *UserProfile            `json:"profile"`
	Workouts        []WorkoutLog            `json:"workouts"`
	NutritionByDate map[string]NutritionLog `json:"nutrition_by_date"`
	ProgressEntries []ProgressEntry         `json:"progress_entries"`
}

// DefaultAppData returns a fresh, empty document. Used on first launch, on
// session switch, and as the recovery value when a persisted document fails
// to decode.
func DefaultAppData() AppData {
	return AppData{
		Workouts:        []WorkoutLog{},
		NutritionByDate: map[string]NutritionLog{},
		ProgressEntries: []ProgressEntry{},
		Sync: LocalSyncState{
			NutritionPendingDates: []string{},
			ProgressPendingIDs:    []string{},
			DeletedWorkoutIDs:     []string{},
			DeletedNutritionDates: []string{},
			DeletedProgressIDs:    []string{},
		},
	}
}

// Normalize repairs nil collections after decoding so callers never have to
// nil-check maps or slices. Documents written by older app versions may omit
// fields entirely.
func (d *AppData) Normalize() {
	if d.Workouts == nil {
		d.Workouts = []WorkoutLog{}
	}
	if d.NutritionByDate == nil {
		d.NutritionByDate = map[string]NutritionLog{}
	}
	if d.ProgressEntries == nil {
		d.ProgressEntries = []ProgressEntry{}
	}
	if d.Sync.NutritionPendingDates == nil {
		d.Sync.NutritionPendingDates = []string{}
	}
	if d.Sync.ProgressPendingIDs == nil {
		d.Sync.ProgressPendingIDs = []string{}
	}
	if d.Sync.DeletedWorkoutIDs == nil {
		d.Sync.DeletedWorkoutIDs = []string{}
	}
	if d.Sync.DeletedNutritionDates == nil {
		d.Sync.DeletedNutritionDates = []string{}
	}
	if d.Sync.DeletedProgressIDs == nil {
		d.Sync.DeletedProgressIDs = []string{}
	}
}

// NewRecordID generates a client-side unique id for workout and progress
// records so they can be created offline and pushed later.
func NewRecordID() string {
	return uuid.New().String()
}

// NowStamp returns the current time as an RFC3339 string, the timestamp
// format used throughout the local document and the wire protocol.
func NowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
