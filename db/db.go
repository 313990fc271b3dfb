package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Timestamps are stored as UTC text in SQLite's own datetime format so that
// datetime() comparisons in ad-hoc queries keep working.
const timeLayout = "2006-01-02 15:04:05"

const schema = `
CREATE TABLE IF NOT EXISTS sensor_data (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id TEXT NOT NULL,
	sound_level REAL,
	temperature REAL,
	humidity REAL,
	co_level REAL,
	rssi INTEGER,
	timestamp TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sensor_data_timestamp ON sensor_data(timestamp);

CREATE TABLE IF NOT EXISTS alerts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	severity TEXT,
	message TEXT,
	value REAL,
	timestamp TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	resolved BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_alerts_resolved ON alerts(resolved, timestamp);

CREATE TABLE IF NOT EXISTS rfid_cards (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	card_id TEXT UNIQUE NOT NULL,
	student_name TEXT,
	rfid_uid TEXT UNIQUE NOT NULL,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS rfid_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	card_id TEXT NOT NULL REFERENCES rfid_cards(card_id),
	timestamp TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	action TEXT NOT NULL DEFAULT 'ENTRY'
);

CREATE INDEX IF NOT EXISTS idx_rfid_logs_timestamp ON rfid_logs(timestamp);
`

// Open opens (creating if needed) the SQLite database at path and applies the
// schema. ":memory:" works for tests.
func Open(path string) (*sql.DB, error) {
	dbConn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases shared and serializes writers
	dbConn.SetMaxOpenConns(1)

	if err := ApplySchema(dbConn); err != nil {
		dbConn.Close()
		return nil, err
	}
	return dbConn, nil
}

func ApplySchema(dbConn *sql.DB) error {
	if _, err := dbConn.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

// StartTransaction starts a new database transaction.
func StartTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}
