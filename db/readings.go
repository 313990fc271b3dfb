package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/thatsimonsguy/classroom-monitor/internal/model"
)

const readingColumns = `id, device_id, sound_level, temperature, humidity, co_level, rssi, timestamp`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReading(row rowScanner) (model.SensorReading, error) {
	var r model.SensorReading
	var sound, temp, hum, co sql.NullFloat64
	var rssi sql.NullInt64
	var ts string

	if err := row.Scan(&r.ID, &r.DeviceID, &sound, &temp, &hum, &co, &rssi, &ts); err != nil {
		return r, err
	}

	r.SoundLevel = nullFloat(sound)
	r.Temperature = nullFloat(temp)
	r.Humidity = nullFloat(hum)
	r.COLevel = nullFloat(co)
	if rssi.Valid {
		v := int(rssi.Int64)
		r.RSSI = &v
	}

	t, err := parseTime(ts)
	if err != nil {
		return r, err
	}
	r.Timestamp = t
	return r, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func insertReading(tx *sql.Tx, r model.SensorReading) (int64, error) {
	res, err := tx.Exec(`INSERT INTO sensor_data (device_id, sound_level, temperature, humidity, co_level, rssi, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.DeviceID, r.SoundLevel, r.Temperature, r.Humidity, r.COLevel, r.RSSI, formatTime(r.Timestamp))
	if err != nil {
		return 0, fmt.Errorf("insert reading from %s: %w", r.DeviceID, err)
	}
	return res.LastInsertId()
}

// RecordReading stores a reading together with the alerts it raised, all or
// nothing. It returns the new reading ID.
func RecordReading(db *sql.DB, r model.SensorReading, raised []model.Alert) (int64, error) {
	tx, err := StartTransaction(db)
	if err != nil {
		return 0, err
	}

	id, err := insertReading(tx, r)
	if err != nil {
		RollbackTransaction(tx)
		return 0, err
	}

	for _, a := range raised {
		if _, err := insertAlert(tx, a); err != nil {
			RollbackTransaction(tx)
			return 0, err
		}
	}

	if err := CommitTransaction(tx); err != nil {
		return 0, err
	}
	return id, nil
}

// GetLatestReading returns the newest reading, or nil when there are none.
func GetLatestReading(db *sql.DB) (*model.SensorReading, error) {
	row := db.QueryRow(`SELECT ` + readingColumns + ` FROM sensor_data ORDER BY timestamp DESC, id DESC LIMIT 1`)
	r, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}
	return &r, nil
}

// GetReadingHistory returns up to limit readings, newest first.
func GetReadingHistory(db *sql.DB, limit int) ([]model.SensorReading, error) {
	rows, err := db.Query(`SELECT `+readingColumns+` FROM sensor_data ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	readings := []model.SensorReading{}
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// GetReadingStats aggregates every reading newer than since.
func GetReadingStats(db *sql.DB, since time.Time) (model.SensorStats, error) {
	var s model.SensorStats
	var avgSound, maxSound, avgTemp, maxTemp, minTemp, avgHum, avgCO, maxCO sql.NullFloat64

	err := db.QueryRow(`
		SELECT
			AVG(sound_level), MAX(sound_level),
			AVG(temperature), MAX(temperature), MIN(temperature),
			AVG(humidity),
			AVG(co_level), MAX(co_level),
			COUNT(*)
		FROM sensor_data
		WHERE timestamp > ?`, formatTime(since)).
		Scan(&avgSound, &maxSound, &avgTemp, &maxTemp, &minTemp, &avgHum, &avgCO, &maxCO, &s.TotalReadings)
	if err != nil {
		return s, fmt.Errorf("failed to get reading stats: %w", err)
	}

	s.AvgSound = nullFloat(avgSound)
	s.MaxSound = nullFloat(maxSound)
	s.AvgTemp = nullFloat(avgTemp)
	s.MaxTemp = nullFloat(maxTemp)
	s.MinTemp = nullFloat(minTemp)
	s.AvgHumidity = nullFloat(avgHum)
	s.AvgCO = nullFloat(avgCO)
	s.MaxCO = nullFloat(maxCO)
	return s, nil
}
