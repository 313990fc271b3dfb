package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/thatsimonsguy/classroom-monitor/internal/model"
)

var (
	ErrCardExists   = errors.New("card already registered")
	ErrCardNotFound = errors.New("card not registered")
)

// NormalizeUID upper-cases a reader UID so scans and registrations match
// regardless of how the reader formats hex.
func NormalizeUID(uid string) string {
	return strings.ToUpper(strings.TrimSpace(uid))
}

// RegisterCard stores a new card under a generated card ID.
func RegisterCard(db *sql.DB, uid, studentName string, now time.Time) (model.RFIDCard, error) {
	card := model.RFIDCard{
		CardID:      uuid.NewString(),
		StudentName: studentName,
		RFIDUID:     NormalizeUID(uid),
		CreatedAt:   now.UTC().Truncate(time.Second),
	}

	_, err := db.Exec(`INSERT INTO rfid_cards (card_id, student_name, rfid_uid, created_at) VALUES (?, ?, ?, ?)`,
		card.CardID, card.StudentName, card.RFIDUID, formatTime(card.CreatedAt))
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return model.RFIDCard{}, fmt.Errorf("register %s: %w", card.RFIDUID, ErrCardExists)
		}
		return model.RFIDCard{}, fmt.Errorf("register %s: %w", card.RFIDUID, err)
	}
	return card, nil
}

// GetCardByUID returns nil when no card carries uid.
func GetCardByUID(db *sql.DB, uid string) (*model.RFIDCard, error) {
	row := db.QueryRow(`SELECT card_id, student_name, rfid_uid, created_at FROM rfid_cards WHERE rfid_uid = ?`, NormalizeUID(uid))
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query card: %w", err)
	}
	return &card, nil
}

func scanCard(row rowScanner) (model.RFIDCard, error) {
	var c model.RFIDCard
	var name sql.NullString
	var ts string
	if err := row.Scan(&c.CardID, &name, &c.RFIDUID, &ts); err != nil {
		return c, err
	}
	c.StudentName = name.String
	t, err := parseTime(ts)
	if err != nil {
		return c, err
	}
	c.CreatedAt = t
	return c, nil
}

// GetCards lists registered cards, newest first.
func GetCards(db *sql.DB) ([]model.RFIDCard, error) {
	rows, err := db.Query(`SELECT card_id, student_name, rfid_uid, created_at FROM rfid_cards ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	list := []model.RFIDCard{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// DeleteCard removes a card and its access history. It returns sql.ErrNoRows
// for an unknown card ID.
func DeleteCard(db *sql.DB, cardID string) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM rfid_logs WHERE card_id = ?`, cardID); err != nil {
		RollbackTransaction(tx)
		return fmt.Errorf("delete logs for card %s: %w", cardID, err)
	}

	res, err := tx.Exec(`DELETE FROM rfid_cards WHERE card_id = ?`, cardID)
	if err != nil {
		RollbackTransaction(tx)
		return fmt.Errorf("delete card %s: %w", cardID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		RollbackTransaction(tx)
		return fmt.Errorf("delete card %s: %w", cardID, err)
	}
	if n == 0 {
		RollbackTransaction(tx)
		return fmt.Errorf("delete card %s: %w", cardID, sql.ErrNoRows)
	}
	return CommitTransaction(tx)
}

// LogAccess records an ENTRY or EXIT for the card carrying uid. It returns
// ErrCardNotFound when the UID was never registered.
func LogAccess(db *sql.DB, uid string, action model.AccessAction, at time.Time) (model.AccessLog, error) {
	card, err := GetCardByUID(db, uid)
	if err != nil {
		return model.AccessLog{}, err
	}
	if card == nil {
		return model.AccessLog{}, fmt.Errorf("log %s for %s: %w", action, NormalizeUID(uid), ErrCardNotFound)
	}

	entry := model.AccessLog{
		Timestamp:   at.UTC().Truncate(time.Second),
		Action:      action,
		StudentName: card.StudentName,
		RFIDUID:     card.RFIDUID,
	}
	res, err := db.Exec(`INSERT INTO rfid_logs (card_id, timestamp, action) VALUES (?, ?, ?)`,
		card.CardID, formatTime(entry.Timestamp), string(action))
	if err != nil {
		return model.AccessLog{}, fmt.Errorf("log %s for %s: %w", action, card.RFIDUID, err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return model.AccessLog{}, err
	}
	return entry, nil
}

// GetAccessLogs returns the most recent access events joined with their cards.
func GetAccessLogs(db *sql.DB, limit int) ([]model.AccessLog, error) {
	rows, err := db.Query(`SELECT l.id, l.timestamp, l.action, c.student_name, c.rfid_uid
		FROM rfid_logs l JOIN rfid_cards c ON c.card_id = l.card_id
		ORDER BY l.timestamp DESC, l.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query access logs: %w", err)
	}
	defer rows.Close()

	list := []model.AccessLog{}
	for rows.Next() {
		var l model.AccessLog
		var name sql.NullString
		var ts, action string
		if err := rows.Scan(&l.ID, &ts, &action, &name, &l.RFIDUID); err != nil {
			return nil, fmt.Errorf("failed to scan access log: %w", err)
		}
		l.Action = model.AccessAction(action)
		l.StudentName = name.String
		if l.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// GetAttendance summarizes ENTRY events in [from, to) per card, ordered by
// student name.
func GetAttendance(db *sql.DB, from, to time.Time) ([]model.Attendance, error) {
	rows, err := db.Query(`SELECT c.student_name, c.rfid_uid, COUNT(l.id), MIN(l.timestamp), MAX(l.timestamp)
		FROM rfid_logs l JOIN rfid_cards c ON c.card_id = l.card_id
		WHERE l.action = ? AND l.timestamp >= ? AND l.timestamp < ?
		GROUP BY c.card_id
		ORDER BY c.student_name, c.rfid_uid`,
		string(model.ActionEntry), formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	list := []model.Attendance{}
	for rows.Next() {
		var a model.Attendance
		var name sql.NullString
		var first, last string
		if err := rows.Scan(&name, &a.RFIDUID, &a.Entries, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		a.StudentName = name.String
		if a.FirstEntry, err = parseTime(first); err != nil {
			return nil, err
		}
		if a.LastEntry, err = parseTime(last); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// CountPresent counts distinct cards with an ENTRY in [from, to).
func CountPresent(db *sql.DB, from, to time.Time) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(DISTINCT card_id) FROM rfid_logs WHERE action = ? AND timestamp >= ? AND timestamp < ?`,
		string(model.ActionEntry), formatTime(from), formatTime(to)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count attendance: %w", err)
	}
	return n, nil
}
