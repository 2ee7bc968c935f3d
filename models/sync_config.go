package models

import (
	"os"
	"strconv"
	"time"

	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Sync Configuration
//
// Loads device-sync settings from environment variables. When
// FITTRACK_SYNC_ENABLED is true, the instance runs the sync orchestrator
// against the configured server in addition to serving its own API.
// ============================================================================

// SyncConfig holds configuration for the device-side sync orchestrator.
type SyncConfig struct {
	Enabled        bool          // FITTRACK_SYNC_ENABLED
	ServerURL      string        // FITTRACK_SYNC_SERVER_URL — base URL of the companion API
	Username       string        // FITTRACK_SYNC_USERNAME
	Password       string        // FITTRACK_SYNC_PASSWORD
	Interval       time.Duration // FITTRACK_SYNC_INTERVAL — periodic pass interval
	RequestTimeout time.Duration // FITTRACK_SYNC_REQUEST_TIMEOUT — per-request cap
}

// defaultSyncInterval balances freshness against network overhead for a
// single-user setup; the debounce trigger handles burst responsiveness.
const defaultSyncInterval = 5 * time.Minute

// defaultRequestTimeout bounds each network call. A request that exceeds it
// is aborted and treated as a failure for that item.
const defaultRequestTimeout = 5 * time.Second

// LoadSyncConfig reads sync configuration from environment variables.
// Returns a config even when sync is disabled so callers can inspect state
// without nil checks.
func LoadSyncConfig() (*SyncConfig, error) {
	cfg := &SyncConfig{
		Interval:       defaultSyncInterval,
		RequestTimeout: defaultRequestTimeout,
	}

	if enabledStr := os.Getenv("FITTRACK_SYNC_ENABLED"); enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return nil, serr.Wrap(err, "invalid FITTRACK_SYNC_ENABLED value, expected true/false")
		}
		cfg.Enabled = enabled
	}

	cfg.ServerURL = os.Getenv("FITTRACK_SYNC_SERVER_URL")
	cfg.Username = os.Getenv("FITTRACK_SYNC_USERNAME")
	cfg.Password = os.Getenv("FITTRACK_SYNC_PASSWORD")

	if intervalStr := os.Getenv("FITTRACK_SYNC_INTERVAL"); intervalStr != "" {
		interval, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, serr.Wrap(err, "invalid FITTRACK_SYNC_INTERVAL value, expected duration like '5m' or '30s'")
		}
		cfg.Interval = interval
	}

	if timeoutStr := os.Getenv("FITTRACK_SYNC_REQUEST_TIMEOUT"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return nil, serr.Wrap(err, "invalid FITTRACK_SYNC_REQUEST_TIMEOUT value, expected duration like '5s'")
		}
		cfg.RequestTimeout = timeout
	}

	return cfg, nil
}

// Validate checks required fields when sync is enabled, so misconfiguration
// fails at startup rather than mid-pass.
func (c *SyncConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.ServerURL == "" {
		return serr.New("FITTRACK_SYNC_SERVER_URL is required when sync is enabled")
	}
	if c.Username == "" {
		return serr.New("FITTRACK_SYNC_USERNAME is required when sync is enabled")
	}
	if c.Password == "" {
		return serr.New("FITTRACK_SYNC_PASSWORD is required when sync is enabled")
	}
	if c.Interval < 10*time.Second {
		return serr.New("FITTRACK_SYNC_INTERVAL must be at least 10s to avoid hammering the server")
	}
	if c.RequestTimeout < time.Second {
		return serr.New("FITTRACK_SYNC_REQUEST_TIMEOUT must be at least 1s")
	}

	return nil
}
