package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hohoca/brachyplan/internal/migrations"
	"github.com/hohoca/brachyplan/internal/types"
	_ "github.com/mattn/go-sqlite3"
)

const timestampLayout = "2006-01-02 15:04:05"

// Manager stores channel change events in SQLite
type Manager struct {
	db  *sql.DB
	now func() time.Time
}

func NewManager(dbPath string) (*Manager, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	// Run database migrations
	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Manager{db: db, now: time.Now}, nil
}

// Save records one event. A zero timestamp is replaced by the current time.
func (m *Manager) Save(e types.ChannelEvent) (int64, error) {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = m.now()
	}

	query := `
		INSERT INTO channel_events (
			timestamp, session_id, channel_id, channel_number, channel_name, event, field, value
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := m.db.Exec(query,
		ts.Local().Format(timestampLayout),
		e.SessionID,
		e.ChannelID,
		e.ChannelNumber,
		e.ChannelName,
		e.Event,
		e.Field,
		e.Value,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save channel event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read channel event id: %w", err)
	}
	return id, nil
}

// Load returns the newest events first. A limit of 0 or less returns everything.
func (m *Manager) Load(limit int) ([]types.ChannelEvent, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := m.db.Query(`
		SELECT id, timestamp, session_id, channel_id, channel_number, channel_name, event, field, value
		FROM channel_events
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	return m.scanEvents(rows)
}

// LoadForChannel returns the events of one channel, newest first
func (m *Manager) LoadForChannel(channelID string) ([]types.ChannelEvent, error) {
	rows, err := m.db.Query(`
		SELECT id, timestamp, session_id, channel_id, channel_number, channel_name, event, field, value
		FROM channel_events
		WHERE channel_id = ?
		ORDER BY timestamp DESC, id DESC
	`, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for channel: %w", err)
	}
	defer rows.Close()

	return m.scanEvents(rows)
}

// LoadForSession returns the events recorded by one run, newest first
func (m *Manager) LoadForSession(sessionID string) ([]types.ChannelEvent, error) {
	rows, err := m.db.Query(`
		SELECT id, timestamp, session_id, channel_id, channel_number, channel_name, event, field, value
		FROM channel_events
		WHERE session_id = ?
		ORDER BY timestamp DESC, id DESC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for session: %w", err)
	}
	defer rows.Close()

	return m.scanEvents(rows)
}

func (m *Manager) scanEvents(rows *sql.Rows) ([]types.ChannelEvent, error) {
	var events []types.ChannelEvent

	for rows.Next() {
		var e types.ChannelEvent
		var timestamp string
		var field sql.NullString
		var value sql.NullString

		err := rows.Scan(
			&e.ID,
			&timestamp,
			&e.SessionID,
			&e.ChannelID,
			&e.ChannelNumber,
			&e.ChannelName,
			&e.Event,
			&field,
			&value,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel event: %w", err)
		}

		// Parse timestamp as local time
		parsedTime, err := time.ParseInLocation(timestampLayout, timestamp, time.Local)
		if err != nil {
			// Try RFC3339 format as fallback
			parsedTime, err = time.Parse(time.RFC3339, timestamp)
			if err != nil {
				parsedTime = time.Time{}
			}
		}
		e.Timestamp = parsedTime
		e.Field = field.String
		e.Value = value.String

		events = append(events, e)
	}

	return events, rows.Err()
}

func (m *Manager) Clear() error {
	_, err := m.db.Exec("DELETE FROM channel_events")
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (m *Manager) Delete(id int64) error {
	_, err := m.db.Exec("DELETE FROM channel_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete channel event: %w", err)
	}
	return nil
}

func (m *Manager) GetCount() (int, error) {
	var count int
	err := m.db.QueryRow("SELECT COUNT(*) FROM channel_events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get history count: %w", err)
	}
	return count, nil
}

func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
