package models

import (
	"os"
	"testing"
)

// setupLocalStoreTestDB initializes a clean test database for local store tests
func setupLocalStoreTestDB(t *testing.T) func() {
	t.Helper()

	os.Remove("./test_localstore.ddb")
	os.Remove("./test_localstore.ddb.wal")

	if err := InitTestDB("./test_localstore.ddb"); err != nil {
		t.Fatalf("failed to initialize test database: %v", err)
	}

	return func() {
		CloseDB()
		os.Remove("./test_localstore.ddb")
		os.Remove("./test_localstore.ddb.wal")
	}
}

// TestLocalStoreRoundTrip verifies a saved document loads back with its
// records and sync bookkeeping intact.
func TestLocalStoreRoundTrip(t *testing.T) {
	cleanup := setupLocalStoreTestDB(t)
	defer cleanup()

	store := NewLocalStore()

	data := DefaultAppData()
	data.Profile = &UserProfile{Name: "Ana", Age: 31, Goal: GoalGainMuscle, UpdatedAt: NowStamp()}
	data.Workouts = []WorkoutLog{
		{ID: "w1", Date: "2026-02-16", CreatedAt: NowStamp(), Exercises: []ExerciseEntry{
			{Name: "Squat", Sets: 5, Reps: 5, WeightKg: 100},
		}},
	}
	data.NutritionByDate["2026-02-16"] = NutritionLog{Date: "2026-02-16", TotalCalories: 2200, UpdatedAt: NowStamp()}
	data.Sync.MarkPending(KindNutrition, "2026-02-16")
	data.Sync.MarkDeleted(KindProgress, "pGone")
	data.Sync.RecordRetryFailure(KindNutrition, "2026-02-16")

	if err := store.SaveAppData("alice", data); err != nil {
		t.Fatalf("SaveAppData: %v", err)
	}

	loaded := store.LoadAppData("alice")

	if loaded.Profile == nil || loaded.Profile.Name != "Ana" {
		t.Errorf("profile did not round-trip: %+v", loaded.Profile)
	}
	if len(loaded.Workouts) != 1 || len(loaded.Workouts[0].Exercises) != 1 {
		t.Errorf("workouts did not round-trip: %+v", loaded.Workouts)
	}
	if loaded.Workouts[0].SyncedAt != nil {
		t.Error("nil SyncedAt must stay nil through the round trip")
	}
	if !containsKey(loaded.Sync.NutritionPendingDates, "2026-02-16") {
		t.Error("pending set did not round-trip")
	}
	if !loaded.Sync.IsDeleted(KindProgress, "pGone") {
		t.Error("tombstone did not round-trip")
	}
	if loaded.Sync.RetryCount(KindNutrition, "2026-02-16") != 1 {
		t.Error("retry counts did not round-trip")
	}
}

// TestLocalStoreSaveOverwrites verifies a second save replaces the document.
func TestLocalStoreSaveOverwrites(t *testing.T) {
	cleanup := setupLocalStoreTestDB(t)
	defer cleanup()

	store := NewLocalStore()

	first := DefaultAppData()
	first.NutritionByDate["2026-02-14"] = NutritionLog{Date: "2026-02-14"}
	if err := store.SaveAppData("alice", first); err != nil {
		t.Fatalf("SaveAppData: %v", err)
	}

	second := DefaultAppData()
	second.NutritionByDate["2026-02-16"] = NutritionLog{Date: "2026-02-16"}
	if err := store.SaveAppData("alice", second); err != nil {
		t.Fatalf("SaveAppData (overwrite): %v", err)
	}

	loaded := store.LoadAppData("alice")
	if _, stale := loaded.NutritionByDate["2026-02-14"]; stale {
		t.Error("overwritten document still visible")
	}
	if _, ok := loaded.NutritionByDate["2026-02-16"]; !ok {
		t.Error("latest document not loaded")
	}
}

// TestLocalStoreMissingUser verifies an unknown user gets a usable default
// document, never an error.
func TestLocalStoreMissingUser(t *testing.T) {
	cleanup := setupLocalStoreTestDB(t)
	defer cleanup()

	store := NewLocalStore()
	data := store.LoadAppData("nobody")

	if data.Workouts == nil || data.NutritionByDate == nil || data.ProgressEntries == nil {
		t.Error("default document must have all collections initialized")
	}
	if data.PendingTotal() != 0 {
		t.Errorf("fresh document must have no pending work, got %d", data.PendingTotal())
	}
}

// TestLocalStoreRecoversFromMalformedBlob verifies a corrupt stored document
// falls back to a fresh default instead of failing the load.
func TestLocalStoreRecoversFromMalformedBlob(t *testing.T) {
	cleanup := setupLocalStoreTestDB(t)
	defer cleanup()

	_, err := db.Exec(`INSERT INTO app_data (user_id, doc) VALUES (?, ?)`,
		"corrupt", []byte("definitely not msgpack"))
	if err != nil {
		t.Fatalf("failed to seed corrupt blob: %v", err)
	}

	store := NewLocalStore()
	data := store.LoadAppData("corrupt")

	if data.Workouts == nil || len(data.Workouts) != 0 {
		t.Errorf("expected fresh default after corrupt load, got %+v", data)
	}
}

// TestLocalStoreDelete verifies deletion, and that deleting an absent user
// succeeds.
func TestLocalStoreDelete(t *testing.T) {
	cleanup := setupLocalStoreTestDB(t)
	defer cleanup()

	store := NewLocalStore()

	data := DefaultAppData()
	data.NutritionByDate["2026-02-16"] = NutritionLog{Date: "2026-02-16"}
	if err := store.SaveAppData("alice", data); err != nil {
		t.Fatalf("SaveAppData: %v", err)
	}

	if err := store.DeleteAppData("alice"); err != nil {
		t.Fatalf("DeleteAppData: %v", err)
	}
	if loaded := store.LoadAppData("alice"); len(loaded.NutritionByDate) != 0 {
		t.Error("document still loadable after delete")
	}

	if err := store.DeleteAppData("nobody"); err != nil {
		t.Errorf("deleting an absent user must succeed, got %v", err)
	}
}
