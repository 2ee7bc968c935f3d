package models

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Sync Orchestrator
//
// Drives reconciliation between the session's document and the remote
// snapshot service. One pass runs the sequential phases:
//
//   delete-drain → profile push → nutrition push → progress push →
//   workout push → (optional) snapshot pull + merge
//
// Each phase fully drains its queue before the next starts, and a failure on
// any one item leaves that item queued and moves on — a single network error
// never aborts the pass or blocks unrelated record types.
//
// Triggers: a debounced automatic pass (push-only) fires shortly after local
// edits, coalescing bursts into one round trip; a periodic ticker sweeps
// leftovers; "Sync Now" and session establishment additionally pull.
//
// Re-entrancy: the in-progress guard makes a pass request a no-op while one
// is running. Passes are never queued.
// ============================================================================

const (
	// debounceDelay coalesces rapid local edits into one network pass.
	debounceDelay = 1200 * time.Millisecond

	// maxBackoff caps the exponential pause after consecutive failed passes.
	maxBackoff = 5 * time.Minute

	// maxItemRetries parks an individual item after this many consecutive
	// failures. Parked items are skipped by automatic passes and revived by
	// an explicit SyncNow.
	maxItemRetries = 8
)

// Orchestrator reconciles one session against the remote snapshot service.
type Orchestrator struct {
	session *Session
	remote  SnapshotService
	config  *SyncConfig

	passMu     sync.Mutex  // serializes passes
	inProgress atomic.Bool // observable "pass running" flag
	enabled    atomic.Bool
	cancelFunc context.CancelFunc

	debounceMu    sync.Mutex
	debounceTimer *time.Timer

	statusMu    sync.Mutex
	lastSync    time.Time
	lastAttempt time.Time
	lastError   error

	consecutiveFailures int
}

// OrchestratorStatus exposes sync state for the control API.
type OrchestratorStatus struct {
	Enabled      bool       `json:"enabled"`
	Connected    bool       `json:"connected"` // true if the last pass fully succeeded
	InProgress   bool       `json:"in_progress"`
	LastSync     *time.Time `json:"last_sync"`
	LastError    string     `json:"last_error,omitempty"`
	PendingTotal int        `json:"pending_total"`
}

// orchestratorInstance is the package-level singleton, following the same
// pattern as var db.
var orchestratorInstance *Orchestrator

// NewOrchestrator wires the orchestrator to a session and remote service and
// installs the debounce trigger on the session's dirty callback.
func NewOrchestrator(session *Session, remote SnapshotService, cfg *SyncConfig) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, serr.Wrap(err, "invalid sync config")
	}

	o := &Orchestrator{
		session: session,
		remote:  remote,
		config:  cfg,
	}
	o.enabled.Store(cfg.Enabled)
	session.OnDirty(o.scheduleDebounced)

	orchestratorInstance = o
	return o, nil
}

// GetOrchestrator returns the package-level orchestrator, or nil when sync
// is not configured. Callers must nil-check.
func GetOrchestrator() *Orchestrator {
	return orchestratorInstance
}

// Start launches the background loop. The first pass runs immediately and
// includes a pull — a freshly established session reconciles against the
// server before the user resumes editing.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	o.cancelFunc = cancel

	go o.loop(ctx)
	logger.Info("Sync orchestrator started",
		"server_url", o.config.ServerURL,
		"user_id", o.session.UserID(),
		"interval", o.config.Interval.String(),
	)
}

// Stop shuts down the background loop and cancels any scheduled debounce.
func (o *Orchestrator) Stop() {
	o.debounceMu.Lock()
	if o.debounceTimer != nil {
		o.debounceTimer.Stop()
		o.debounceTimer = nil
	}
	o.debounceMu.Unlock()

	if o.cancelFunc != nil {
		o.cancelFunc()
	}
	logger.Info("Sync orchestrator stopped")
}

// SetEnabled toggles the orchestrator at runtime.
func (o *Orchestrator) SetEnabled(enabled bool) {
	o.enabled.Store(enabled)
	logger.Info("Sync orchestrator toggled", "enabled", enabled)
}

// IsEnabled reports whether automatic sync is active.
func (o *Orchestrator) IsEnabled() bool {
	return o.enabled.Load()
}

// SyncNow runs an explicit user-triggered pass including a snapshot pull.
// Items parked at the retry ceiling get their counts reset first. Returns
// an error if sync is disabled or a pass is already running.
func (o *Orchestrator) SyncNow(ctx context.Context) error {
	if !o.enabled.Load() {
		return serr.New("sync is disabled")
	}
	if o.inProgress.Load() {
		return serr.New("sync already in progress")
	}

	o.session.Update(func(d *AppData) {
		d.Sync.ResetRetries()
	})

	return o.runPass(ctx, passOptions{pull: true})
}

// GetStatus returns current sync state for the control API.
func (o *Orchestrator) GetStatus() *OrchestratorStatus {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	current := o.session.Current()
	status := &OrchestratorStatus{
		Enabled:      o.enabled.Load(),
		Connected:    o.consecutiveFailures == 0 && !o.lastSync.IsZero(),
		InProgress:   o.inProgress.Load(),
		PendingTotal: current.PendingTotal(),
	}
	if !o.lastSync.IsZero() {
		t := o.lastSync
		status.LastSync = &t
	}
	if o.lastError != nil {
		status.LastError = o.lastError.Error()
	}
	return status
}

// scheduleDebounced arms the debounce timer after a local edit. Edits that
// land while the timer is armed coalesce into the already-scheduled pass.
func (o *Orchestrator) scheduleDebounced() {
	if !o.enabled.Load() || o.inProgress.Load() {
		return
	}

	o.debounceMu.Lock()
	defer o.debounceMu.Unlock()
	if o.debounceTimer != nil {
		return // already armed
	}

	o.debounceTimer = time.AfterFunc(debounceDelay, func() {
		o.debounceMu.Lock()
		o.debounceTimer = nil
		o.debounceMu.Unlock()

		if !o.enabled.Load() {
			return
		}
		if err := o.runPass(context.Background(), passOptions{auto: true}); err != nil {
			logger.LogErr(err, "debounced sync pass failed")
		}
	})
}

// loop runs the periodic sweep: an immediate startup pass with pull, then
// push-only passes on the configured interval, gated by exponential backoff
// after consecutive failures.
func (o *Orchestrator) loop(ctx context.Context) {
	if o.enabled.Load() {
		if err := o.runPass(ctx, passOptions{pull: true}); err != nil {
			logger.LogErr(err, "initial sync pass failed")
		}
	}

	ticker := time.NewTicker(o.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !o.enabled.Load() {
				continue
			}

			o.statusMu.Lock()
			failures := o.consecutiveFailures
			sinceAttempt := time.Since(o.lastAttempt)
			o.statusMu.Unlock()

			// Skip ticks until the backoff window has elapsed. The ticker
			// keeps firing at the normal interval regardless.
			if failures > 0 && sinceAttempt < o.backoffWithJitter(failures) {
				continue
			}

			if err := o.runPass(ctx, passOptions{auto: true}); err != nil {
				logger.LogErr(err, "periodic sync pass failed",
					"consecutive_failures", failures+1,
				)
			}
		}
	}
}

// passOptions control one reconciliation pass.
type passOptions struct {
	pull bool // fetch and merge a remote snapshot after the push phases
	auto bool // automatic trigger — honor per-item retry ceilings
}

// runPass executes one reconciliation pass. Re-entrant guard: if a pass is
// already running the request is dropped, never queued.
func (o *Orchestrator) runPass(ctx context.Context, opts passOptions) error {
	if !o.passMu.TryLock() {
		return nil // another pass is running
	}
	defer o.passMu.Unlock()

	o.inProgress.Store(true)
	defer o.inProgress.Store(false)

	o.statusMu.Lock()
	o.lastAttempt = time.Now()
	o.statusMu.Unlock()

	userID := o.session.UserID()
	failed := 0

	failed += o.drainDeletes(ctx, userID, opts)
	failed += o.pushProfile(ctx, userID, opts)
	failed += o.pushNutrition(ctx, userID, opts)
	failed += o.pushProgress(ctx, userID, opts)
	failed += o.pushWorkouts(ctx, userID, opts)

	var pullErr error
	if opts.pull {
		pullErr = o.pullAndMerge(ctx, userID)
	}

	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	if failed > 0 || pullErr != nil {
		o.consecutiveFailures++
		if pullErr != nil {
			o.lastError = pullErr
		} else {
			o.lastError = serr.New("some items failed to sync and remain queued")
		}
		logger.Info("Sync pass completed with failures",
			"failed_items", failed,
			"pulled", opts.pull && pullErr == nil,
		)
		if pullErr != nil {
			return serr.Wrap(pullErr, "snapshot pull failed")
		}
		return nil // item failures stay queued; not a pass-level error
	}

	o.consecutiveFailures = 0
	o.lastError = nil
	o.lastSync = time.Now()
	logger.Info("Sync pass completed", "user_id", userID, "pulled", opts.pull)
	return nil
}

// shouldSkip reports whether an automatic pass should leave a parked item
// alone. Explicit passes already reset the counts in SyncNow.
func (o *Orchestrator) shouldSkip(sync *LocalSyncState, opts passOptions, kind RecordKind, key string) bool {
	return opts.auto && sync.RetryCount(kind, key) >= maxItemRetries
}

// drainDeletes sends every tombstoned delete to the server. Confirmed
// deletes clear their tombstone; failures keep it for the next pass.
func (o *Orchestrator) drainDeletes(ctx context.Context, userID string, opts passOptions) (failed int) {
	snap := o.session.Current()

	type deletion struct {
		kind RecordKind
		key  string
		call func(context.Context) error
	}
	var queue []deletion

	for _, id := range snap.Sync.DeletedWorkoutIDs {
		id := id
		queue = append(queue, deletion{KindWorkout, id, func(c context.Context) error {
			return o.remote.DeleteWorkout(c, userID, id)
		}})
	}
	for _, date := range snap.Sync.DeletedNutritionDates {
		date := date
		queue = append(queue, deletion{KindNutrition, date, func(c context.Context) error {
			return o.remote.DeleteNutrition(c, userID, date)
		}})
	}
	for _, id := range snap.Sync.DeletedProgressIDs {
		id := id
		queue = append(queue, deletion{KindProgress, id, func(c context.Context) error {
			return o.remote.DeleteProgress(c, userID, id)
		}})
	}

	for _, d := range queue {
		if o.shouldSkip(&snap.Sync, opts, d.kind, d.key) {
			continue
		}
		if err := d.call(ctx); err != nil {
			failed++
			o.recordItemFailure(d.kind, d.key, err)
			continue
		}
		d := d
		o.session.Update(func(data *AppData) {
			data.Sync.ResolveDeleted(d.kind, d.key)
		})
	}
	return failed
}

// pushProfile pushes the profile when it exists and is pending.
func (o *Orchestrator) pushProfile(ctx context.Context, userID string, opts passOptions) (failed int) {
	snap := o.session.Current()
	if snap.Profile == nil || !snap.Sync.ProfilePending {
		return 0
	}
	if o.shouldSkip(&snap.Sync, opts, KindProfile, "") {
		return 0
	}

	if err := o.remote.PutProfile(ctx, userID, *snap.Profile); err != nil {
		o.recordItemFailure(KindProfile, "", err)
		return 1
	}
	o.session.Update(func(d *AppData) {
		d.Sync.ResolvePending(KindProfile, "")
	})
	return 0
}

// pushNutrition pushes every pending date. A pending date whose log no
// longer exists locally is stale and resolves without a network call.
func (o *Orchestrator) pushNutrition(ctx context.Context, userID string, opts passOptions) (failed int) {
	snap := o.session.Current()

	for _, date := range snap.Sync.NutritionPendingDates {
		date := date
		if snap.Sync.IsDeleted(KindNutrition, date) {
			continue // tombstone owns this key now
		}
		log, exists := snap.NutritionByDate[date]
		if !exists {
			o.session.Update(func(d *AppData) {
				d.Sync.ResolvePending(KindNutrition, date)
			})
			continue
		}
		if o.shouldSkip(&snap.Sync, opts, KindNutrition, date) {
			continue
		}

		if err := o.remote.PutNutrition(ctx, userID, date, log); err != nil {
			failed++
			o.recordItemFailure(KindNutrition, date, err)
			continue
		}
		o.session.Update(func(d *AppData) {
			d.Sync.ResolvePending(KindNutrition, date)
		})
	}
	return failed
}

// pushProgress mirrors pushNutrition, keyed by entry id.
func (o *Orchestrator) pushProgress(ctx context.Context, userID string, opts passOptions) (failed int) {
	snap := o.session.Current()

	byID := make(map[string]ProgressEntry, len(snap.ProgressEntries))
	for _, e := range snap.ProgressEntries {
		byID[e.ID] = e
	}

	for _, id := range snap.Sync.ProgressPendingIDs {
		id := id
		if snap.Sync.IsDeleted(KindProgress, id) {
			continue
		}
		entry, exists := byID[id]
		if !exists {
			o.session.Update(func(d *AppData) {
				d.Sync.ResolvePending(KindProgress, id)
			})
			continue
		}
		if o.shouldSkip(&snap.Sync, opts, KindProgress, id) {
			continue
		}

		if err := o.remote.PushProgress(ctx, userID, entry); err != nil {
			failed++
			o.recordItemFailure(KindProgress, id, err)
			continue
		}
		o.session.Update(func(d *AppData) {
			d.Sync.ResolvePending(KindProgress, id)
		})
	}
	return failed
}

// pushWorkouts pushes every workout with a nil SyncedAt. Success stamps
// SyncedAt on the live record, which is the workout form of ResolvePending.
func (o *Orchestrator) pushWorkouts(ctx context.Context, userID string, opts passOptions) (failed int) {
	snap := o.session.Current()

	for _, w := range snap.Workouts {
		w := w
		if w.SyncedAt != nil || snap.Sync.IsDeleted(KindWorkout, w.ID) {
			continue
		}
		if o.shouldSkip(&snap.Sync, opts, KindWorkout, w.ID) {
			continue
		}

		if err := o.remote.PushWorkout(ctx, userID, w); err != nil {
			failed++
			o.recordItemFailure(KindWorkout, w.ID, err)
			continue
		}
		o.session.Update(func(d *AppData) {
			now := NowStamp()
			for i := range d.Workouts {
				if d.Workouts[i].ID == w.ID {
					d.Workouts[i].SyncedAt = &now
					break
				}
			}
			d.Sync.clearRetries(KindWorkout, w.ID)
			d.Sync.stampSyncTime()
		})
	}
	return failed
}

// pullAndMerge fetches the remote snapshot, runs it through the merge
// engine, and replaces the document (sync and settings pass through).
func (o *Orchestrator) pullAndMerge(ctx context.Context, userID string) error {
	snap, err := o.remote.FetchSnapshot(ctx, userID)
	if err != nil {
		return serr.Wrap(err, "failed to fetch snapshot")
	}

	o.session.Update(func(d *AppData) {
		*d = MergeSnapshot(*d, *snap)
		d.Sync.stampSyncTime()
	})

	logger.Info("Merged remote snapshot", "user_id", userID)
	return nil
}

// recordItemFailure logs a failed push/delete and bumps the item's retry
// count. The item stays queued; the pass moves on to the next item.
func (o *Orchestrator) recordItemFailure(kind RecordKind, key string, err error) {
	logger.LogErr(err, "sync item failed, will retry on a later pass",
		"kind", string(kind),
		"key", key,
	)
	o.session.Update(func(d *AppData) {
		d.Sync.RecordRetryFailure(kind, key)
	})
}

// backoffWithJitter returns the pause after n consecutive failed passes:
// 1s, 2s, 4s, ... capped at maxBackoff, with up to 25% random jitter so
// multiple devices don't retry in lockstep.
func (o *Orchestrator) backoffWithJitter(n int) time.Duration {
	backoff := time.Second
	for i := 0; i < n; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			backoff = maxBackoff
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(backoff) / 4))
	return backoff + jitter
}
