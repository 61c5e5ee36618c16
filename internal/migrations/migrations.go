package migrations

import (
	"database/sql"
	"fmt"
)

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: 1,
		Name:    "Add channel and session indices",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_channel_events_channel ON channel_events(channel_id);
			CREATE INDEX IF NOT EXISTS idx_channel_events_session ON channel_events(session_id);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_channel_events_channel;
			DROP INDEX IF EXISTS idx_channel_events_session;
		`,
	},
	{
		Version: 2,
		Name:    "Add composite index for per-channel timelines",
		Up: `
			-- LoadForChannel filters by channel and orders by time
			CREATE INDEX IF NOT EXISTS idx_channel_events_channel_timestamp ON channel_events(channel_id, timestamp DESC);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_channel_events_channel_timestamp;
		`,
	},
}

// InitSchema creates all tables required across all modules
// This must be called before running migrations to ensure all tables exist
func InitSchema(db *sql.DB) error {
	schema := `
	-- Channel change log
	CREATE TABLE IF NOT EXISTS channel_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		session_id TEXT NOT NULL,
		channel_id TEXT NOT NULL DEFAULT '',
		channel_number INTEGER NOT NULL DEFAULT 0,
		channel_name TEXT NOT NULL DEFAULT '',
		event TEXT NOT NULL,
		field TEXT,
		value TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_channel_events_timestamp ON channel_events(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_channel_events_event ON channel_events(event);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Run executes all pending migrations on the database
func Run(db *sql.DB) error {
	// Initialize schema first to ensure all tables exist
	if err := InitSchema(db); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Create migrations tracking table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := GetCurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	// Apply pending migrations
	for _, migration := range AllMigrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", migration.Version, err)
		}
		if _, err := tx.Exec(migration.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version,
			migration.Name,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// GetCurrentVersion returns the current database schema version
func GetCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(`
		SELECT COALESCE(MAX(version), 0)
		FROM schema_migrations
	`).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	return version, nil
}
