package models_test

import (
	"testing"

	"fittrack/models"
)

// TestTombstonePrecedence verifies that marking a record deleted after
// marking it pending leaves the key only in the tombstone set.
func TestTombstonePrecedence(t *testing.T) {
	cases := []struct {
		kind models.RecordKind
		key  string
	}{
		{models.KindNutrition, "2026-02-16"},
		{models.KindProgress, "p1"},
	}

	for _, tc := range cases {
		sync := models.LocalSyncState{}
		sync.MarkPending(tc.kind, tc.key)
		sync.MarkDeleted(tc.kind, tc.key)

		if !sync.IsDeleted(tc.kind, tc.key) {
			t.Errorf("%s: expected %q tombstoned after MarkDeleted", tc.kind, tc.key)
		}

		switch tc.kind {
		case models.KindNutrition:
			if len(sync.NutritionPendingDates) != 0 {
				t.Errorf("nutrition: key still pending after delete: %v", sync.NutritionPendingDates)
			}
		case models.KindProgress:
			if len(sync.ProgressPendingIDs) != 0 {
				t.Errorf("progress: key still pending after delete: %v", sync.ProgressPendingIDs)
			}
		}
	}
}

// TestEditUndeletes verifies that a new edit clears a matching tombstone.
func TestEditUndeletes(t *testing.T) {
	sync := models.LocalSyncState{}

	sync.MarkDeleted(models.KindNutrition, "2026-02-10")
	sync.MarkPending(models.KindNutrition, "2026-02-10")

	if sync.IsDeleted(models.KindNutrition, "2026-02-10") {
		t.Error("expected tombstone cleared by new edit")
	}
	if len(sync.NutritionPendingDates) != 1 || sync.NutritionPendingDates[0] != "2026-02-10" {
		t.Errorf("expected date pending, got %v", sync.NutritionPendingDates)
	}

	// Workouts carry pending state on the record, so MarkPending only
	// clears the tombstone.
	sync.MarkDeleted(models.KindWorkout, "w1")
	sync.MarkPending(models.KindWorkout, "w1")
	if sync.IsDeleted(models.KindWorkout, "w1") {
		t.Error("expected workout tombstone cleared by re-log")
	}
}

// TestResolveIdempotent verifies that resolving an absent key is a no-op and
// that resolves stamp the last-sync time.
func TestResolveIdempotent(t *testing.T) {
	sync := models.LocalSyncState{}

	sync.MarkPending(models.KindProgress, "p1")
	sync.ResolvePending(models.KindProgress, "p1")
	sync.ResolvePending(models.KindProgress, "p1") // second resolve is a no-op

	if len(sync.ProgressPendingIDs) != 0 {
		t.Errorf("expected empty pending set, got %v", sync.ProgressPendingIDs)
	}
	if sync.LastSuccessfulSyncAt == nil {
		t.Error("expected LastSuccessfulSyncAt stamped by resolve")
	}

	sync.ResolveDeleted(models.KindWorkout, "never-existed")
	if len(sync.DeletedWorkoutIDs) != 0 {
		t.Errorf("expected empty tombstone set, got %v", sync.DeletedWorkoutIDs)
	}
}

// TestProfilePendingFlag verifies the profile's boolean pending flag
// transitions.
func TestProfilePendingFlag(t *testing.T) {
	sync := models.LocalSyncState{}

	sync.MarkPending(models.KindProfile, "")
	if !sync.ProfilePending {
		t.Error("expected ProfilePending true after MarkPending")
	}

	sync.ResolvePending(models.KindProfile, "")
	if sync.ProfilePending {
		t.Error("expected ProfilePending false after ResolvePending")
	}
}

// TestRetryCounts verifies per-item failure accounting and reset.
func TestRetryCounts(t *testing.T) {
	sync := models.LocalSyncState{}

	sync.RecordRetryFailure(models.KindNutrition, "2026-02-16")
	sync.RecordRetryFailure(models.KindNutrition, "2026-02-16")
	if got := sync.RetryCount(models.KindNutrition, "2026-02-16"); got != 2 {
		t.Errorf("expected retry count 2, got %d", got)
	}

	// Success clears the count for that item
	sync.MarkPending(models.KindNutrition, "2026-02-16")
	sync.ResolvePending(models.KindNutrition, "2026-02-16")
	if got := sync.RetryCount(models.KindNutrition, "2026-02-16"); got != 0 {
		t.Errorf("expected retry count cleared on resolve, got %d", got)
	}

	sync.RecordRetryFailure(models.KindWorkout, "w1")
	sync.ResetRetries()
	if got := sync.RetryCount(models.KindWorkout, "w1"); got != 0 {
		t.Errorf("expected retry count cleared by reset, got %d", got)
	}
}

// TestPendingTotal counts queued work across all kinds, including unsynced
// workouts.
func TestPendingTotal(t *testing.T) {
	data := models.DefaultAppData()
	if data.PendingTotal() != 0 {
		t.Fatalf("expected fresh document to have no pending work, got %d", data.PendingTotal())
	}

	data.Profile = &models.UserProfile{Name: "Ana"}
	data.Sync.MarkPending(models.KindProfile, "")
	data.Sync.MarkPending(models.KindNutrition, "2026-02-16")
	data.Sync.MarkDeleted(models.KindProgress, "p9")
	data.Workouts = append(data.Workouts, models.WorkoutLog{ID: "w1", Date: "2026-02-16"})

	if got := data.PendingTotal(); got != 4 {
		t.Errorf("expected pending total 4, got %d", got)
	}
}
