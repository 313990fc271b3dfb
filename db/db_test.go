package db

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/classroom-monitor/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	database, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func f64(v float64) *float64 { return &v }

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestRecordReading_RoundTrip(t *testing.T) {
	database := setupTestDB(t)
	rssi := -61

	id, err := RecordReading(database, model.SensorReading{
		DeviceID:    "CLASSROOM_01",
		SoundLevel:  f64(42.5),
		Temperature: f64(22.1),
		RSSI:        &rssi,
		Timestamp:   base,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	latest, err := GetLatestReading(database)
	require.NoError(t, err)
	require.NotNil(t, latest)

	assert.Equal(t, "CLASSROOM_01", latest.DeviceID)
	assert.Equal(t, 42.5, *latest.SoundLevel)
	assert.Equal(t, 22.1, *latest.Temperature)
	assert.Nil(t, latest.Humidity)
	assert.Nil(t, latest.COLevel)
	assert.Equal(t, -61, *latest.RSSI)
	assert.True(t, base.Equal(latest.Timestamp))
}

func TestGetLatestReading_Empty(t *testing.T) {
	database := setupTestDB(t)

	latest, err := GetLatestReading(database)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestGetReadingHistory_NewestFirstWithLimit(t *testing.T) {
	database := setupTestDB(t)

	for i := 0; i < 5; i++ {
		_, err := RecordReading(database, model.SensorReading{
			DeviceID:    "CLASSROOM_01",
			Temperature: f64(20 + float64(i)),
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		}, nil)
		require.NoError(t, err)
	}

	history, err := GetReadingHistory(database, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 24.0, *history[0].Temperature)
	assert.Equal(t, 22.0, *history[2].Temperature)
}

func TestGetReadingStats(t *testing.T) {
	database := setupTestDB(t)

	samples := []model.SensorReading{
		{DeviceID: "d", Temperature: f64(19), SoundLevel: f64(40), Timestamp: base.Add(-2 * time.Hour)},
		{DeviceID: "d", Temperature: f64(20), SoundLevel: f64(60), Timestamp: base.Add(-10 * time.Minute)},
		{DeviceID: "d", Temperature: f64(24), SoundLevel: f64(80), Timestamp: base.Add(-5 * time.Minute)},
	}
	for _, s := range samples {
		_, err := RecordReading(database, s, nil)
		require.NoError(t, err)
	}

	stats, err := GetReadingStats(database, base.Add(-time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalReadings)
	assert.InDelta(t, 22.0, *stats.AvgTemp, 1e-9)
	assert.Equal(t, 24.0, *stats.MaxTemp)
	assert.Equal(t, 20.0, *stats.MinTemp)
	assert.Equal(t, 80.0, *stats.MaxSound)
	assert.Nil(t, stats.AvgHumidity)
	assert.Nil(t, stats.MaxCO)
}

func TestRecordReading_StoresAlerts(t *testing.T) {
	database := setupTestDB(t)

	_, err := RecordReading(database, model.SensorReading{DeviceID: "d", COLevel: f64(14), Timestamp: base}, []model.Alert{
		{Type: "CO_LEVEL", Severity: "CRITICAL", Message: "High CO level: 14.00 PPM", Value: 14, Timestamp: base},
		{Type: "SOUND", Severity: "WARNING", Message: "loud", Value: 90, Timestamp: base.Add(time.Second)},
	})
	require.NoError(t, err)

	all, err := GetAlerts(database, AlertFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "SOUND", all[0].Type)
	assert.Equal(t, "CO_LEVEL", all[1].Type)
	assert.Equal(t, "CRITICAL", all[1].Severity)
	assert.False(t, all[1].Resolved)

	co, err := GetAlerts(database, AlertFilter{Type: "CO_LEVEL", Limit: 10})
	require.NoError(t, err)
	require.Len(t, co, 1)
	assert.Equal(t, 14.0, co[0].Value)
}

func TestRecordReading_RollsBackOnFailure(t *testing.T) {
	database := setupTestDB(t)

	_, err := database.Exec(`DROP TABLE alerts`)
	require.NoError(t, err)

	_, err = RecordReading(database, model.SensorReading{DeviceID: "d", Timestamp: base}, []model.Alert{
		{Type: "SOUND", Severity: "WARNING", Timestamp: base},
	})
	require.Error(t, err)

	latest, err := GetLatestReading(database)
	require.NoError(t, err)
	assert.Nil(t, latest, "reading should not survive a failed alert insert")
}

func TestResolveAlert(t *testing.T) {
	database := setupTestDB(t)

	_, err := RecordReading(database, model.SensorReading{DeviceID: "d", Timestamp: base}, []model.Alert{
		{Type: "TEMPERATURE", Severity: "WARNING", Value: 30, Timestamp: base},
	})
	require.NoError(t, err)

	open, err := GetAlerts(database, AlertFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, open, 1)

	require.NoError(t, ResolveAlert(database, open[0].ID))

	open, err = GetAlerts(database, AlertFilter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, open)

	resolved, err := GetAlerts(database, AlertFilter{Resolved: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.True(t, resolved[0].Resolved)

	err = ResolveAlert(database, 999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
