package models

import (
	"database/sql"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
	"github.com/vmihailenco/msgpack/v5"
)

// ============================================================================
// Local Store
//
// Durable device-side persistence: one AppData document per user id, stored
// as a msgpack blob. Msgpack keeps the on-disk document roughly a third
// smaller than JSON, which matters for users with years of logs.
//
// The store is deliberately forgiving. A document that fails to decode is
// treated as absent and replaced by a fresh DefaultAppData — a corrupt local
// cache must never brick the app, since the server snapshot can restore the
// data on the next pull.
// ============================================================================

const DDLCreateAppDataTable = `
CREATE TABLE IF NOT EXISTS app_data (
    user_id    VARCHAR PRIMARY KEY,
    doc        BLOB NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// LocalStore is the key-value persistence contract the sync core uses.
// Load never fails from the caller's perspective; Save is best-effort.
type LocalStore interface {
	LoadAppData(userID string) AppData
	SaveAppData(userID string, data AppData) error
	DeleteAppData(userID string) error
}

// DuckLocalStore persists AppData documents in the embedded database.
type DuckLocalStore struct{}

// NewLocalStore returns the DuckDB-backed local store.
func NewLocalStore() *DuckLocalStore {
	return &DuckLocalStore{}
}

// LoadAppData returns the stored document for the user, or a fresh default
// when none exists or the stored blob fails shape validation. Decode
// failures are logged and recovered, never propagated.
func (ls *DuckLocalStore) LoadAppData(userID string) AppData {
	var blob []byte
	err := db.QueryRow(`SELECT doc FROM app_data WHERE user_id = ?`, userID).Scan(&blob)
	if err == sql.ErrNoRows {
		return DefaultAppData()
	}
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to load app data"), "user_id", userID)
		return DefaultAppData()
	}

	var data AppData
	if err := msgpack.Unmarshal(blob, &data); err != nil {
		logger.LogErr(serr.Wrap(err, "app data document is malformed, starting fresh"),
			"user_id", userID)
		return DefaultAppData()
	}

	data.Normalize()
	return data
}

// SaveAppData upserts the document. Called after every mutation; callers
// treat it as fire-and-forget and only log the returned error.
func (ls *DuckLocalStore) SaveAppData(userID string, data AppData) error {
	blob, err := msgpack.Marshal(data)
	if err != nil {
		return serr.Wrap(err, "failed to encode app data")
	}

	_, err = db.Exec(`
		INSERT INTO app_data (user_id, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		userID, blob, time.Now(),
	)
	if err != nil {
		return serr.Wrap(err, "failed to persist app data")
	}
	return nil
}

// DeleteAppData removes the user's document. Used on logout/reset, where the
// document is fully replaced rather than merged.
func (ls *DuckLocalStore) DeleteAppData(userID string) error {
	if _, err := db.Exec(`DELETE FROM app_data WHERE user_id = ?`, userID); err != nil {
		return serr.Wrap(err, "failed to delete app data")
	}
	return nil
}
