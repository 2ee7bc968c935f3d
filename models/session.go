package models

import (
	"sync"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Session — the explicit state container for one signed-in identity.
//
// All reads go through Current() and all writes through Update(), so no
// caller ever holds a stale reference to the document across an async
// boundary. Every mutation applies its tracker bookkeeping in the same
// critical section as the data change, then persists to the local store and
// notifies the orchestrator that there may be work to push.
// ============================================================================

// Session owns the in-memory AppData for one user and mediates every
// mutation against it.
type Session struct {
	userID string
	store  LocalStore

	mu   sync.Mutex
	data AppData

	// onDirty is invoked (outside the lock) after any mutation that leaves
	// queued work. The orchestrator installs its debounce trigger here.
	onDirty func()
}

// NewSession loads the user's document from the local store and wraps it.
func NewSession(userID string, store LocalStore) *Session {
	return &Session{
		userID: userID,
		store:  store,
		data:   store.LoadAppData(userID),
	}
}

// UserID returns the identity this session is scoped to.
func (s *Session) UserID() string {
	return s.userID
}

// OnDirty registers the callback fired after mutations that leave pending
// work. Must be set before concurrent use.
func (s *Session) OnDirty(fn func()) {
	s.onDirty = fn
}

// Current returns a snapshot copy of the document. Collections are copied
// one level deep; callers must not mutate records in place — all writes go
// through Update or the typed mutators.
func (s *Session) Current() AppData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAppData(s.data)
}

// Update applies fn to the document atomically, persists the result, and
// fires the dirty callback if queued work remains. This is the single write
// path — the typed mutators below and the orchestrator both go through it.
func (s *Session) Update(fn func(d *AppData)) {
	s.mu.Lock()
	fn(&s.data)
	s.data.Normalize()
	snapshot := cloneAppData(s.data)
	s.mu.Unlock()

	// Persistence is fire-and-forget: a failed write is logged and the next
	// mutation retries it implicitly by writing the whole document again.
	if err := s.store.SaveAppData(s.userID, snapshot); err != nil {
		logger.LogErr(serr.Wrap(err, "failed to persist app data"), "user_id", s.userID)
	}

	if snapshot.PendingTotal() > 0 && s.onDirty != nil {
		s.onDirty()
	}
}

// SetProfile stores the profile and marks it pending.
func (s *Session) SetProfile(p UserProfile) {
	s.Update(func(d *AppData) {
		p.UpdatedAt = NowStamp()
		d.Profile = &p
		d.Sync.MarkPending(KindProfile, "")
	})
}

// LogWorkout inserts or replaces a workout. The record's nil SyncedAt is its
// pending mark; MarkPending only clears any tombstone for a reused id.
func (s *Session) LogWorkout(w WorkoutLog) {
	s.Update(func(d *AppData) {
		if w.ID == "" {
			w.ID = NewRecordID()
		}
		if w.CreatedAt == "" {
			w.CreatedAt = NowStamp()
		}
		w.SyncedAt = nil
		replaced := false
		for i := range d.Workouts {
			if d.Workouts[i].ID == w.ID {
				d.Workouts[i] = w
				replaced = true
				break
			}
		}
		if !replaced {
			d.Workouts = append(d.Workouts, w)
		}
		sortWorkouts(d.Workouts)
		d.Sync.MarkPending(KindWorkout, w.ID)
	})
}

// DeleteWorkout removes the workout locally and tombstones it, in one step.
func (s *Session) DeleteWorkout(id string) {
	s.Update(func(d *AppData) {
		kept := d.Workouts[:0]
		for _, w := range d.Workouts {
			if w.ID != id {
				kept = append(kept, w)
			}
		}
		d.Workouts = kept
		d.Sync.MarkDeleted(KindWorkout, id)
	})
}

// UpsertNutrition writes the day's nutrition log (at most one per date) and
// marks the date pending.
func (s *Session) UpsertNutrition(log NutritionLog) {
	s.Update(func(d *AppData) {
		log.UpdatedAt = NowStamp()
		d.NutritionByDate[log.Date] = log
		d.Sync.MarkPending(KindNutrition, log.Date)
	})
}

// DeleteNutrition removes the date's log and tombstones the date.
func (s *Session) DeleteNutrition(date string) {
	s.Update(func(d *AppData) {
		delete(d.NutritionByDate, date)
		d.Sync.MarkDeleted(KindNutrition, date)
	})
}

// AddProgress inserts or replaces a progress entry and marks it pending.
func (s *Session) AddProgress(e ProgressEntry) {
	s.Update(func(d *AppData) {
		if e.ID == "" {
			e.ID = NewRecordID()
		}
		if e.CreatedAt == "" {
			e.CreatedAt = NowStamp()
		}
		replaced := false
		for i := range d.ProgressEntries {
			if d.ProgressEntries[i].ID == e.ID {
				d.ProgressEntries[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			d.ProgressEntries = append(d.ProgressEntries, e)
		}
		sortProgress(d.ProgressEntries)
		d.Sync.MarkPending(KindProgress, e.ID)
	})
}

// DeleteProgress removes the entry locally and tombstones its id.
func (s *Session) DeleteProgress(id string) {
	s.Update(func(d *AppData) {
		kept := d.ProgressEntries[:0]
		for _, e := range d.ProgressEntries {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		d.ProgressEntries = kept
		d.Sync.MarkDeleted(KindProgress, id)
	})
}

// UpdateSettings writes device-local settings. Settings are not synced, so
// no pending mark is set.
func (s *Session) UpdateSettings(settings AppSettings) {
	s.Update(func(d *AppData) {
		d.Settings = settings
	})
}

// Reset replaces the document with a fresh default. Used on logout and
// session switch — the document is fully replaced, never merged.
func (s *Session) Reset() {
	s.mu.Lock()
	s.data = DefaultAppData()
	snapshot := cloneAppData(s.data)
	s.mu.Unlock()

	if err := s.store.SaveAppData(s.userID, snapshot); err != nil {
		logger.LogErr(serr.Wrap(err, "failed to persist reset app data"), "user_id", s.userID)
	}
}

// cloneAppData copies the document one collection level deep. Record structs
// are value types; their inner slices are shared but treated as immutable by
// convention (mutators always replace whole records).
func cloneAppData(d AppData) AppData {
	out := d

	if d.Profile != nil {
		p := *d.Profile
		out.Profile = &p
	}
	out.Workouts = append([]WorkoutLog(nil), d.Workouts...)
	out.ProgressEntries = append([]ProgressEntry(nil), d.ProgressEntries...)

	out.NutritionByDate = make(map[string]NutritionLog, len(d.NutritionByDate))
	for k, v := range d.NutritionByDate {
		out.NutritionByDate[k] = v
	}

	out.Sync.NutritionPendingDates = append([]string(nil), d.Sync.NutritionPendingDates...)
	out.Sync.ProgressPendingIDs = append([]string(nil), d.Sync.ProgressPendingIDs...)
	out.Sync.DeletedWorkoutIDs = append([]string(nil), d.Sync.DeletedWorkoutIDs...)
	out.Sync.DeletedNutritionDates = append([]string(nil), d.Sync.DeletedNutritionDates...)
	out.Sync.DeletedProgressIDs = append([]string(nil), d.Sync.DeletedProgressIDs...)
	if d.Sync.RetryCounts != nil {
		out.Sync.RetryCounts = make(map[string]int, len(d.Sync.RetryCounts))
		for k, v := range d.Sync.RetryCounts {
			out.Sync.RetryCounts[k] = v
		}
	}
	return out
}
