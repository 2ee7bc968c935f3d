package models

// ============================================================================
// Pending-Change Tracker
//
// Pure state transitions over LocalSyncState, applied atomically with the
// corresponding data mutation (the Session does both under one lock). The
// tracker is what gives the orchestrator an accurate queue to drain.
//
// Invariant maintained by every operation: a key is never present in both
// the pending set and the tombstone set of the same kind. Deletion always
// wins — MarkDeleted removes the key from the pending set, and a fresh edit
// un-deletes by removing the key from the tombstone set.
// ============================================================================

// RecordKind identifies which of the four record types a tracker operation
// applies to.
type RecordKind string

const (
	KindProfile   RecordKind = "profile"
	KindWorkout   RecordKind = "workout"
	KindNutrition RecordKind = "nutrition"
	KindProgress  RecordKind = "progress"
)

// addToSet appends key if absent, preserving insertion order so queues drain
// oldest-first.
func addToSet(set []string, key string) []string {
	for _, k := range set {
		if k == key {
			return set
		}
	}
	return append(set, key)
}

// removeFromSet removes key if present. Removing an absent key is a no-op,
// which makes the resolve operations idempotent.
func removeFromSet(set []string, key string) []string {
	for i, k := range set {
		if k == key {
			return append(set[:i], set[i+1:]...)
		}
	}
	return set
}

// containsKey reports set membership.
func containsKey(set []string, key string) bool {
	for _, k := range set {
		if k == key {
			return true
		}
	}
	return false
}

// MarkPending records an unpushed local edit for the given kind/key.
// If the key was tombstoned, the tombstone is cleared — a new edit
// un-deletes the record.
//
// Workouts are not tracked here: their pending state is SyncedAt == nil on
// the record itself. MarkPending(KindWorkout, ...) only clears a matching
// tombstone so that re-logging a deleted workout id resurrects it cleanly.
func (s *LocalSyncState) MarkPending(kind RecordKind, key string) {
	switch kind {
	case KindProfile:
		s.ProfilePending = true
	case KindNutrition:
		s.DeletedNutritionDates = removeFromSet(s.DeletedNutritionDates, key)
		s.NutritionPendingDates = addToSet(s.NutritionPendingDates, key)
	case KindProgress:
		s.DeletedProgressIDs = removeFromSet(s.DeletedProgressIDs, key)
		s.ProgressPendingIDs = addToSet(s.ProgressPendingIDs, key)
	case KindWorkout:
		s.DeletedWorkoutIDs = removeFromSet(s.DeletedWorkoutIDs, key)
	}
}

// ResolvePending clears a pending mark after a successful push and stamps
// LastSuccessfulSyncAt. Idempotent — resolving an absent key is a no-op.
func (s *LocalSyncState) ResolvePending(kind RecordKind, key string) {
	switch kind {
	case KindProfile:
		s.ProfilePending = false
	case KindNutrition:
		s.NutritionPendingDates = removeFromSet(s.NutritionPendingDates, key)
	case KindProgress:
		s.ProgressPendingIDs = removeFromSet(s.ProgressPendingIDs, key)
	}
	s.clearRetries(kind, key)
	s.stampSyncTime()
}

// MarkDeleted tombstones a locally deleted record. The key is removed from
// the pending set first — deletion overrides any in-flight edit. The caller
// removes the record from its live collection in the same transaction.
func (s *LocalSyncState) MarkDeleted(kind RecordKind, key string) {
	switch kind {
	case KindWorkout:
		s.DeletedWorkoutIDs = addToSet(s.DeletedWorkoutIDs, key)
	case KindNutrition:
		s.NutritionPendingDates = removeFromSet(s.NutritionPendingDates, key)
		s.DeletedNutritionDates = addToSet(s.DeletedNutritionDates, key)
	case KindProgress:
		s.ProgressPendingIDs = removeFromSet(s.ProgressPendingIDs, key)
		s.DeletedProgressIDs = addToSet(s.DeletedProgressIDs, key)
	}
	s.clearRetries(kind, key)
}

// ResolveDeleted clears a tombstone after the server confirms the delete and
// stamps LastSuccessfulSyncAt. Idempotent.
func (s *LocalSyncState) ResolveDeleted(kind RecordKind, key string) {
	switch kind {
	case KindWorkout:
		s.DeletedWorkoutIDs = removeFromSet(s.DeletedWorkoutIDs, key)
	case KindNutrition:
		s.DeletedNutritionDates = removeFromSet(s.DeletedNutritionDates, key)
	case KindProgress:
		s.DeletedProgressIDs = removeFromSet(s.DeletedProgressIDs, key)
	}
	s.clearRetries(kind, key)
	s.stampSyncTime()
}

// IsDeleted reports whether the key is tombstoned for the given kind.
func (s *LocalSyncState) IsDeleted(kind RecordKind, key string) bool {
	switch kind {
	case KindWorkout:
		return containsKey(s.DeletedWorkoutIDs, key)
	case KindNutrition:
		return containsKey(s.DeletedNutritionDates, key)
	case KindProgress:
		return containsKey(s.DeletedProgressIDs, key)
	}
	return false
}

// PendingTotal counts queued items across all kinds: tombstones, pending
// sets, the profile flag, and unsynced workouts. The orchestrator's debounce
// trigger fires when this transitions to nonzero.
func (d *AppData) PendingTotal() int {
	total := len(d.Sync.DeletedWorkoutIDs) +
		len(d.Sync.DeletedNutritionDates) +
		len(d.Sync.DeletedProgressIDs) +
		len(d.Sync.NutritionPendingDates) +
		len(d.Sync.ProgressPendingIDs)
	if d.Sync.ProfilePending && d.Profile != nil {
		total++
	}
	for _, w := range d.Workouts {
		if w.SyncedAt == nil {
			total++
		}
	}
	return total
}

// retryKey builds the RetryCounts map key for one queued item.
func retryKey(kind RecordKind, key string) string {
	return string(kind) + ":" + key
}

// RecordRetryFailure bumps the consecutive-failure count for an item.
func (s *LocalSyncState) RecordRetryFailure(kind RecordKind, key string) {
	if s.RetryCounts == nil {
		s.RetryCounts = map[string]int{}
	}
	s.RetryCounts[retryKey(kind, key)]++
}

// RetryCount returns the consecutive-failure count for an item.
func (s *LocalSyncState) RetryCount(kind RecordKind, key string) int {
	return s.RetryCounts[retryKey(kind, key)]
}

// ResetRetries clears all retry counts. Called by an explicit "Sync Now" so
// items parked at the retry ceiling get another chance.
func (s *LocalSyncState) ResetRetries() {
	s.RetryCounts = nil
}

func (s *LocalSyncState) clearRetries(kind RecordKind, key string) {
	if s.RetryCounts != nil {
		delete(s.RetryCounts, retryKey(kind, key))
	}
}

func (s *LocalSyncState) stampSyncTime() {
	now := NowStamp()
	s.LastSuccessfulSyncAt = &now
}
