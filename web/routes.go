package web

import (
	"fittrack/web/api"

	"github.com/rohanthewiz/rweb"
)

// setupRoutes configures the companion API surface. All record endpoints are
// scoped to the authenticated user; record ids and nutrition dates are
// client-chosen so devices can create records offline and push them later.
func setupRoutes(s *rweb.Server) {
	s.Get("/api/v1/health", api.Health)

	// Authentication — hands out the bearer tokens the device sync client
	// treats as opaque
	s.Post("/api/v1/auth/register", api.Register)
	s.Post("/api/v1/auth/login", api.Login)

	// Full-state read used by the device merge engine after reconnect
	s.Get("/api/v1/snapshot", api.GetSnapshot)

	// Per-record-type CRUD drained by the device orchestrator
	s.Put("/api/v1/profile", api.PutProfile)
	s.Post("/api/v1/workouts", api.PushWorkout)
	s.Delete("/api/v1/workouts/:id", api.DeleteWorkout)
	s.Put("/api/v1/nutrition/:date", api.PutNutrition)
	s.Delete("/api/v1/nutrition/:date", api.DeleteNutrition)
	s.Post("/api/v1/progress", api.PushProgress)
	s.Delete("/api/v1/progress/:id", api.DeleteProgress)

	// Full reset — explicit user action, bypasses tombstone bookkeeping
	s.Delete("/api/v1/data", api.DeleteAllData)

	// Local sync-orchestrator controls (status indicator, toggle, Sync Now)
	s.Get("/api/v1/sync/status", api.SyncStatus)
	s.Post("/api/v1/sync/toggle", api.SyncToggle)
	s.Post("/api/v1/sync/now", api.SyncNow)
}
