package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/thatsimonsguy/classroom-monitor/internal/model"
)

type AlertFilter struct {
	Resolved bool
	Type     string    // empty matches every type
	Since    time.Time // zero means no lower bound
	Limit    int
}

func insertAlert(tx *sql.Tx, a model.Alert) (int64, error) {
	res, err := tx.Exec(`INSERT INTO alerts (type, severity, message, value, timestamp, resolved) VALUES (?, ?, ?, ?, ?, ?)`,
		a.Type, a.Severity, a.Message, a.Value, formatTime(a.Timestamp), a.Resolved)
	if err != nil {
		return 0, fmt.Errorf("insert %s alert: %w", a.Type, err)
	}
	return res.LastInsertId()
}

// GetAlerts lists alerts matching f, newest first.
func GetAlerts(db *sql.DB, f AlertFilter) ([]model.Alert, error) {
	query := `SELECT id, type, severity, message, value, timestamp, resolved FROM alerts WHERE resolved = ?`
	args := []interface{}{f.Resolved}

	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, f.Type)
	}

	if !f.Since.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, formatTime(f.Since))
	}

	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, f.Limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	list := []model.Alert{}
	for rows.Next() {
		var a model.Alert
		var severity, message sql.NullString
		var value sql.NullFloat64
		var ts string
		if err := rows.Scan(&a.ID, &a.Type, &severity, &message, &value, &ts, &a.Resolved); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Severity = severity.String
		a.Message = message.String
		a.Value = value.Float64
		if a.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// ResolveAlert marks an alert resolved. It returns sql.ErrNoRows for an
// unknown ID.
func ResolveAlert(db *sql.DB, id int64) error {
	res, err := db.Exec(`UPDATE alerts SET resolved = TRUE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("resolve alert %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve alert %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("resolve alert %d: %w", id, sql.ErrNoRows)
	}
	return nil
}
