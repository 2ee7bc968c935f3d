package models_test

import (
	"reflect"
	"testing"

	"fittrack/models"
)

func strPtr(s string) *string { return &s }

// TestMergeLocalWinsOnCollision verifies that an unsynced local workout
// survives a pull even when the server holds a different copy under the
// same id.
func TestMergeLocalWinsOnCollision(t *testing.T) {
	local := models.DefaultAppData()
	local.Workouts = []models.WorkoutLog{
		{ID: "w1", Date: "2026-02-16", CreatedAt: "2026-02-16T08:00:00Z"},
	}

	remote := models.Snapshot{
		Workouts: []models.WorkoutLog{
			{ID: "w1", Date: "2026-02-15", CreatedAt: "2026-02-15T08:00:00Z", SyncedAt: strPtr("2026-02-15T08:01:00Z")},
		},
	}

	merged := models.MergeSnapshot(local, remote)

	if len(merged.Workouts) != 1 {
		t.Fatalf("expected 1 workout, got %d", len(merged.Workouts))
	}
	if merged.Workouts[0].Date != "2026-02-16" {
		t.Errorf("expected local copy to win, got date %q", merged.Workouts[0].Date)
	}
	if merged.Workouts[0].SyncedAt != nil {
		t.Error("local unsynced copy should stay unsynced after merge")
	}
}

// TestMergeTombstoneExcludesRemote verifies that a locally deleted record is
// not resurrected by a pull.
func TestMergeTombstoneExcludesRemote(t *testing.T) {
	local := models.DefaultAppData()
	local.Sync.MarkDeleted(models.KindWorkout, "w2")
	local.Sync.MarkDeleted(models.KindNutrition, "2026-02-10")
	local.Sync.MarkDeleted(models.KindProgress, "p2")

	remote := models.Snapshot{
		Workouts: []models.WorkoutLog{
			{ID: "w2", Date: "2026-02-10", CreatedAt: "2026-02-10T08:00:00Z", SyncedAt: strPtr("2026-02-10T08:01:00Z")},
		},
		NutritionByDate: map[string]models.NutritionLog{
			"2026-02-10": {Date: "2026-02-10", TotalCalories: 1800},
		},
		ProgressEntries: []models.ProgressEntry{
			{ID: "p2", Date: "2026-02-10", WeightKg: 80},
		},
	}

	merged := models.MergeSnapshot(local, remote)

	if len(merged.Workouts) != 0 {
		t.Errorf("tombstoned workout resurrected: %v", merged.Workouts)
	}
	if len(merged.NutritionByDate) != 0 {
		t.Errorf("tombstoned nutrition date resurrected: %v", merged.NutritionByDate)
	}
	if len(merged.ProgressEntries) != 0 {
		t.Errorf("tombstoned progress entry resurrected: %v", merged.ProgressEntries)
	}
	// Tombstones themselves pass through untouched; the push phase clears them.
	if !merged.Sync.IsDeleted(models.KindWorkout, "w2") {
		t.Error("tombstone should survive the merge")
	}
}

// TestMergeProfileDirection verifies the pending flag decides which profile
// wins.
func TestMergeProfileDirection(t *testing.T) {
	localProfile := &models.UserProfile{Name: "Local", UpdatedAt: "2026-02-16T08:00:00Z"}
	remoteProfile := &models.UserProfile{Name: "Remote", UpdatedAt: "2026-02-16T09:00:00Z"}

	// Pending local edit wins even against a newer-looking remote.
	local := models.DefaultAppData()
	local.Profile = localProfile
	local.Sync.ProfilePending = true
	merged := models.MergeSnapshot(local, models.Snapshot{Profile: remoteProfile})
	if merged.Profile.Name != "Local" {
		t.Errorf("pending local profile should win, got %q", merged.Profile.Name)
	}

	// Without a pending edit, remote wins.
	local.Sync.ProfilePending = false
	merged = models.MergeSnapshot(local, models.Snapshot{Profile: remoteProfile})
	if merged.Profile.Name != "Remote" {
		t.Errorf("remote profile should win when nothing is pending, got %q", merged.Profile.Name)
	}

	// Remote absent falls back to local either way.
	merged = models.MergeSnapshot(local, models.Snapshot{})
	if merged.Profile == nil || merged.Profile.Name != "Local" {
		t.Error("local profile should survive an empty remote")
	}
}

// TestMergeUnionAndOrder verifies disjoint records union and the result is
// ordered newest-first.
func TestMergeUnionAndOrder(t *testing.T) {
	local := models.DefaultAppData()
	local.Workouts = []models.WorkoutLog{
		{ID: "wNew", Date: "2026-02-16", CreatedAt: "2026-02-16T07:00:00Z"},
	}
	local.NutritionByDate["2026-02-16"] = models.NutritionLog{Date: "2026-02-16", TotalCalories: 2000}
	local.ProgressEntries = []models.ProgressEntry{
		{ID: "pNew", Date: "2026-02-16", WeightKg: 79.5},
	}

	remote := models.Snapshot{
		Workouts: []models.WorkoutLog{
			{ID: "wOld", Date: "2026-02-14", CreatedAt: "2026-02-14T07:00:00Z", SyncedAt: strPtr("2026-02-14T07:01:00Z")},
		},
		NutritionByDate: map[string]models.NutritionLog{
			"2026-02-14": {Date: "2026-02-14", TotalCalories: 1900},
		},
		ProgressEntries: []models.ProgressEntry{
			{ID: "pOld", Date: "2026-02-14", WeightKg: 80.2},
		},
	}

	merged := models.MergeSnapshot(local, remote)

	if len(merged.Workouts) != 2 || merged.Workouts[0].ID != "wNew" || merged.Workouts[1].ID != "wOld" {
		t.Errorf("expected workouts [wNew wOld], got %v", merged.Workouts)
	}
	if len(merged.NutritionByDate) != 2 {
		t.Errorf("expected 2 nutrition dates, got %v", merged.NutritionByDate)
	}
	if len(merged.ProgressEntries) != 2 || merged.ProgressEntries[0].ID != "pNew" {
		t.Errorf("expected newest progress entry first, got %v", merged.ProgressEntries)
	}
}

// TestMergeBackfillsRemoteTimestamps verifies legacy remote workouts without
// CreatedAt/SyncedAt get both stamped.
func TestMergeBackfillsRemoteTimestamps(t *testing.T) {
	local := models.DefaultAppData()
	remote := models.Snapshot{
		Workouts: []models.WorkoutLog{{ID: "legacy", Date: "2025-11-01"}},
	}

	merged := models.MergeSnapshot(local, remote)

	if len(merged.Workouts) != 1 {
		t.Fatalf("expected 1 workout, got %d", len(merged.Workouts))
	}
	w := merged.Workouts[0]
	if w.CreatedAt == "" {
		t.Error("expected CreatedAt backfilled")
	}
	if w.SyncedAt == nil {
		t.Error("expected SyncedAt backfilled: the record is already on the server")
	}
}

// TestMergeIdempotent verifies merging the same snapshot twice gives the
// same document as merging it once.
func TestMergeIdempotent(t *testing.T) {
	local := models.DefaultAppData()
	local.Workouts = []models.WorkoutLog{
		{ID: "w1", Date: "2026-02-16", CreatedAt: "2026-02-16T08:00:00Z"},
	}
	local.Sync.MarkDeleted(models.KindProgress, "pGone")

	remote := models.Snapshot{
		Workouts: []models.WorkoutLog{
			{ID: "w0", Date: "2026-02-12", CreatedAt: "2026-02-12T08:00:00Z", SyncedAt: strPtr("2026-02-12T08:01:00Z")},
		},
		NutritionByDate: map[string]models.NutritionLog{
			"2026-02-12": {Date: "2026-02-12", TotalCalories: 2100},
		},
		ProgressEntries: []models.ProgressEntry{
			{ID: "pGone", Date: "2026-02-12", WeightKg: 81},
			{ID: "pKeep", Date: "2026-02-13", WeightKg: 80.5},
		},
	}

	once := models.MergeSnapshot(local, remote)
	twice := models.MergeSnapshot(once, remote)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

// TestMergeEmptyRemote verifies an empty snapshot leaves local data intact.
func TestMergeEmptyRemote(t *testing.T) {
	local := models.DefaultAppData()
	local.Workouts = []models.WorkoutLog{
		{ID: "w1", Date: "2026-02-16", CreatedAt: "2026-02-16T08:00:00Z"},
	}
	local.NutritionByDate["2026-02-16"] = models.NutritionLog{Date: "2026-02-16"}
	local.Settings.WorkoutReminder = true

	merged := models.MergeSnapshot(local, models.Snapshot{})

	if len(merged.Workouts) != 1 || len(merged.NutritionByDate) != 1 {
		t.Error("local records should survive an empty remote snapshot")
	}
	if !merged.Settings.WorkoutReminder {
		t.Error("settings must pass through the merge untouched")
	}
}
