package models

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// db is the package-level DuckDB handle. One embedded database serves both
// roles of the binary: the server-side snapshot tables and the device-side
// app_data document store.
var db *sql.DB

// defaultDBPath is where the embedded database lives in normal operation.
const defaultDBPath = "./data/fittrack.ddb"

// InitDB opens the embedded database at the default path and runs migrations.
// Must be called before any model operation.
func InitDB() error {
	return initDBAt(defaultDBPath)
}

// InitTestDB opens a database at the given path for tests. Callers remove
// the file themselves before and after.
func InitTestDB(path string) error {
	return initDBAt(path)
}

func initDBAt(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return serr.Wrap(err, "failed to create data directory")
		}
	}

	var err error
	db, err = sql.Open("duckdb", path)
	if err != nil {
		return serr.Wrap(err, "failed to open database")
	}

	if err = migrate(); err != nil {
		return serr.Wrap(err, "failed to migrate database")
	}

	logger.Info("Database initialized", "path", path)
	return nil
}

// CloseDB closes the database handle.
func CloseDB() {
	if db != nil {
		db.Close()
		db = nil
	}
}

// migrate creates all tables and sequences if they don't exist. DDL lives
// next to the model it serves; this list is the single ordered registry.
func migrate() error {
	ddl := []string{
		DDLCreateUsersSequence,
		DDLCreateUsersTable,
		DDLCreateProfilesTable,
		DDLCreateWorkoutLogsTable,
		DDLCreateNutritionLogsTable,
		DDLCreateProgressEntriesTable,
		DDLCreateAppDataTable,
	}

	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			return serr.Wrap(err, "migration statement failed", "ddl", stmt)
		}
	}
	return nil
}
