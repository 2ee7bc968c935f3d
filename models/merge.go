package models

import "sort"

// ============================================================================
// Snapshot Merge Engine
//
// MergeSnapshot combines a freshly pulled server snapshot with current local
// state. It is a deterministic, total function with no side effects — the
// orchestrator applies its result and handles persistence separately.
//
// The conflict policy is deliberately simple: local wins on any id/key
// collision, and tombstones beat everything. There are no per-field
// timestamps and no three-way merge; an unsynced local edit always survives
// a pull, even when the server holds a newer-looking copy under the same id.
// ============================================================================

// MergeSnapshot produces the next local document from the current local
// document and a remote snapshot.
//
// Rules, in order:
//  1. Remote records tombstoned locally are dropped — a confirmed-later
//     delete must not be resurrected by a pull.
//  2. Local collections are re-filtered by the same tombstones. Tombstoned
//     records should already be absent locally; the re-filter guarantees the
//     invariant holds in the output regardless.
//  3. Remote workouts missing CreatedAt/SyncedAt get both backfilled with
//     now (legacy-schema or partially written snapshots).
//  4. Workouts and progress entries union by id, local winning collisions.
//  5. Nutrition merges per date key, local winning collisions.
//  6. Profile: local wins only while ProfilePending (falling back to remote
//     if local has none); otherwise remote wins (falling back to local).
//  7. Workouts sort descending by (date, createdAt); progress entries
//     descending by date. The ordering is a determinism contract for
//     consumers, not a correctness requirement.
//
// Sync and Settings pass through from local untouched.
func MergeSnapshot(local AppData, remote Snapshot) AppData {
	out := AppData{
		Sync:     local.Sync,
		Settings: local.Settings,
	}

	out.Profile = mergeProfile(local, remote)
	out.Workouts = mergeWorkouts(local, remote)
	out.NutritionByDate = mergeNutrition(local, remote)
	out.ProgressEntries = mergeProgress(local, remote)

	sortWorkouts(out.Workouts)
	sortProgress(out.ProgressEntries)

	return out
}

func mergeProfile(local AppData, remote Snapshot) *UserProfile {
	// Profile has no id or per-field timestamp to arbitrate with, so the
	// pending flag decides merge direction.
	if local.Sync.ProfilePending {
		if local.Profile != nil {
			return local.Profile
		}
		return remote.Profile
	}
	if remote.Profile != nil {
		return remote.Profile
	}
	return local.Profile
}

func mergeWorkouts(local AppData, remote Snapshot) []WorkoutLog {
	tombs := local.Sync.DeletedWorkoutIDs
	byID := make(map[string]WorkoutLog)
	order := make([]string, 0, len(remote.Workouts)+len(local.Workouts))

	for _, w := range remote.Workouts {
		if containsKey(tombs, w.ID) {
			continue
		}
		// Backfill missing timestamps from legacy snapshots. A remote record
		// is by definition already on the server, so stamp SyncedAt too.
		if w.CreatedAt == "" || w.SyncedAt == nil {
			now := NowStamp()
			if w.CreatedAt == "" {
				w.CreatedAt = now
			}
			if w.SyncedAt == nil {
				w.SyncedAt = &now
			}
		}
		if _, seen := byID[w.ID]; !seen {
			order = append(order, w.ID)
		}
		byID[w.ID] = w
	}

	// Local entries overwrite remote entries of the same id.
	for _, w := range local.Workouts {
		if containsKey(tombs, w.ID) {
			continue
		}
		if _, seen := byID[w.ID]; !seen {
			order = append(order, w.ID)
		}
		byID[w.ID] = w
	}

	merged := make([]WorkoutLog, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	return merged
}

func mergeNutrition(local AppData, remote Snapshot) map[string]NutritionLog {
	tombs := local.Sync.DeletedNutritionDates
	merged := make(map[string]NutritionLog)

	for date, log := range remote.NutritionByDate {
		if containsKey(tombs, date) {
			continue
		}
		merged[date] = log
	}
	for date, log := range local.NutritionByDate {
		if containsKey(tombs, date) {
			continue
		}
		merged[date] = log
	}
	return merged
}

func mergeProgress(local AppData, remote Snapshot) []ProgressEntry {
	tombs := local.Sync.DeletedProgressIDs
	byID := make(map[string]ProgressEntry)
	order := make([]string, 0, len(remote.ProgressEntries)+len(local.ProgressEntries))

	for _, e := range remote.ProgressEntries {
		if containsKey(tombs, e.ID) {
			continue
		}
		if _, seen := byID[e.ID]; !seen {
			order = append(order, e.ID)
		}
		byID[e.ID] = e
	}
	for _, e := range local.ProgressEntries {
		if containsKey(tombs, e.ID) {
			continue
		}
		if _, seen := byID[e.ID]; !seen {
			order = append(order, e.ID)
		}
		byID[e.ID] = e
	}

	merged := make([]ProgressEntry, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	return merged
}

// sortWorkouts orders newest-first by calendar date, then creation time.
// RFC3339 and YYYY-MM-DD strings compare correctly lexicographically.
func sortWorkouts(ws []WorkoutLog) {
	sort.SliceStable(ws, func(i, j int) bool {
		if ws[i].Date != ws[j].Date {
			return ws[i].Date > ws[j].Date
		}
		return ws[i].CreatedAt > ws[j].CreatedAt
	})
}

// sortProgress orders newest-first by date, stable so same-date entries keep
// their relative order.
func sortProgress(es []ProgressEntry) {
	sort.SliceStable(es, func(i, j int) bool {
		return es[i].Date > es[j].Date
	})
}
