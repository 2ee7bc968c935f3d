package models

import "testing"

func TestSessionLogWorkoutIsPendingUntilSynced(t *testing.T) {
	s := NewSession("tester", newMemStore())

	s.LogWorkout(WorkoutLog{Date: "2026-02-16"})

	data := s.Current()
	if len(data.Workouts) != 1 {
		t.Fatalf("expected 1 workout, got %d", len(data.Workouts))
	}
	w := data.Workouts[0]
	if w.ID == "" || w.CreatedAt == "" {
		t.Errorf("expected id and created_at assigned, got %+v", w)
	}
	if w.SyncedAt != nil {
		t.Error("new workout must start unsynced")
	}
	if data.PendingTotal() != 1 {
		t.Errorf("expected 1 pending item, got %d", data.PendingTotal())
	}
}

func TestSessionDeleteWorkoutTombstones(t *testing.T) {
	s := NewSession("tester", newMemStore())

	s.LogWorkout(WorkoutLog{ID: "w1", Date: "2026-02-16"})
	s.DeleteWorkout("w1")

	data := s.Current()
	if len(data.Workouts) != 0 {
		t.Errorf("expected workout removed, got %v", data.Workouts)
	}
	if !data.Sync.IsDeleted(KindWorkout, "w1") {
		t.Error("expected tombstone for deleted workout")
	}

	// Re-logging the same id un-deletes it.
	s.LogWorkout(WorkoutLog{ID: "w1", Date: "2026-02-17"})
	data = s.Current()
	if data.Sync.IsDeleted(KindWorkout, "w1") {
		t.Error("re-logging a deleted id must clear the tombstone")
	}
	if len(data.Workouts) != 1 {
		t.Errorf("expected workout resurrected, got %v", data.Workouts)
	}
}

func TestSessionNutritionUpsertIsSingular(t *testing.T) {
	s := NewSession("tester", newMemStore())

	s.UpsertNutrition(NutritionLog{Date: "2026-02-16", TotalCalories: 1800})
	s.UpsertNutrition(NutritionLog{Date: "2026-02-16", TotalCalories: 2100})

	data := s.Current()
	if len(data.NutritionByDate) != 1 {
		t.Fatalf("expected one log per date, got %d", len(data.NutritionByDate))
	}
	if data.NutritionByDate["2026-02-16"].TotalCalories != 2100 {
		t.Error("second upsert must replace the first")
	}
	if len(data.Sync.NutritionPendingDates) != 1 {
		t.Errorf("expected the date pending once, got %v", data.Sync.NutritionPendingDates)
	}
}

func TestSessionSettingsAreNotSynced(t *testing.T) {
	s := NewSession("tester", newMemStore())

	dirty := false
	s.OnDirty(func() { dirty = true })

	s.UpdateSettings(AppSettings{WorkoutReminder: true, ReminderTime: "07:30"})

	data := s.Current()
	if !data.Settings.WorkoutReminder {
		t.Error("settings not stored")
	}
	if data.PendingTotal() != 0 {
		t.Error("settings must not enqueue sync work")
	}
	if dirty {
		t.Error("settings-only mutation must not fire the dirty callback")
	}
}

func TestSessionPersistsEveryMutation(t *testing.T) {
	store := newMemStore()
	s := NewSession("tester", store)

	s.AddProgress(ProgressEntry{Date: "2026-02-16", WeightKg: 79.8})

	// A second session over the same store sees the write.
	reloaded := NewSession("tester", store)
	data := reloaded.Current()
	if len(data.ProgressEntries) != 1 {
		t.Fatalf("mutation not persisted, got %v", data.ProgressEntries)
	}
	if len(data.Sync.ProgressPendingIDs) != 1 {
		t.Error("pending mark not persisted with the record")
	}
}

func TestSessionResetReplacesDocument(t *testing.T) {
	store := newMemStore()
	s := NewSession("tester", store)

	s.LogWorkout(WorkoutLog{Date: "2026-02-16"})
	s.Reset()

	data := s.Current()
	if data.PendingTotal() != 0 || len(data.Workouts) != 0 {
		t.Errorf("expected fresh document after reset, got %+v", data)
	}
	if persisted := store.LoadAppData("tester"); len(persisted.Workouts) != 0 {
		t.Error("reset must persist the fresh document")
	}
}

func TestSessionCurrentIsACopy(t *testing.T) {
	s := NewSession("tester", newMemStore())
	s.UpsertNutrition(NutritionLog{Date: "2026-02-16", TotalCalories: 1800})

	snap := s.Current()
	snap.NutritionByDate["2026-02-16"] = NutritionLog{Date: "2026-02-16", TotalCalories: 9999}
	snap.Sync.NutritionPendingDates = nil

	data := s.Current()
	if data.NutritionByDate["2026-02-16"].TotalCalories != 1800 {
		t.Error("mutating a snapshot must not affect the session document")
	}
	if len(data.Sync.NutritionPendingDates) != 1 {
		t.Error("mutating a snapshot's sync state must not affect the session")
	}
}
