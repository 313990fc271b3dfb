package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/classroom-monitor/db"
	"github.com/thatsimonsguy/classroom-monitor/internal/config"
	"github.com/thatsimonsguy/classroom-monitor/internal/model"
)

func registerCard(t *testing.T, server *Server, uid, name string) model.RFIDCard {
	w := do(t, server, http.MethodPost, "/api/rfid/register", map[string]string{"rfidUid": uid, "studentName": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var card model.RFIDCard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &card))
	return card
}

func TestRFID_DisabledReaderHidesRoutes(t *testing.T) {
	database := setupTestDB(t)
	cfg := config.Default()
	cfg.Features.EnableRFIDReader = false
	server := NewServer(database, cfg, nil)
	server.now = func() time.Time { return fixedNow }

	w := do(t, server, http.MethodGet, "/api/rfid/cards", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "RFID reader is disabled")

	_, err := db.RegisterCard(database, "AA", "Asha", fixedNow)
	require.NoError(t, err)

	w = do(t, server, http.MethodPost, "/api/sensor-data", map[string]interface{}{
		"deviceId": "CLASSROOM_01",
		"rfidCard": "AA",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	logs, err := db.GetAccessLogs(database, 10)
	require.NoError(t, err)
	assert.Empty(t, logs, "cards reported while the reader is disabled are ignored")
}

func TestRFID_ScanAndLastScan(t *testing.T) {
	server, _, _ := setupTestServer(t)

	w := do(t, server, http.MethodGet, "/api/rfid/last-scan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":null,"timestamp":null,"message":"No RFID scanned yet"}`, w.Body.String())

	w = do(t, server, http.MethodPost, "/api/rfid/scan", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, server, http.MethodPost, "/api/rfid/scan", map[string]string{"rfidUid": "de:ad:be:ef"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, server, http.MethodGet, "/api/rfid/last-scan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var scan LastScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scan))
	require.NotNil(t, scan.UID)
	assert.Equal(t, "DE:AD:BE:EF", *scan.UID)
	assert.True(t, scan.Timestamp.Equal(fixedNow))

	// a scan is handed out once
	w = do(t, server, http.MethodGet, "/api/rfid/last-scan", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scan))
	assert.Nil(t, scan.UID)
}

func TestRFID_LastScanExpires(t *testing.T) {
	server, _, _ := setupTestServer(t)

	w := do(t, server, http.MethodPost, "/api/rfid/scan", map[string]string{"rfidUid": "AA"})
	require.Equal(t, http.StatusOK, w.Code)

	server.now = func() time.Time { return fixedNow.Add(server.config.Timing.RFIDCardTimeout() + time.Second) }
	w = do(t, server, http.MethodGet, "/api/rfid/last-scan", nil)

	var scan LastScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scan))
	assert.Nil(t, scan.UID)
	assert.Equal(t, "No RFID scanned yet", scan.Message)
}

func TestRFID_RegisterListDelete(t *testing.T) {
	server, _, _ := setupTestServer(t)

	w := do(t, server, http.MethodPost, "/api/rfid/register", map[string]string{"rfidUid": "AA"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	card := registerCard(t, server, "aa", "Asha")
	assert.Equal(t, "AA", card.RFIDUID)
	assert.NotEmpty(t, card.CardID)

	w = do(t, server, http.MethodPost, "/api/rfid/register", map[string]string{"rfidUid": "AA", "studentName": "Ben"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, server, http.MethodGet, "/api/rfid/cards", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cards []model.RFIDCard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cards))
	require.Len(t, cards, 1)
	assert.Equal(t, "Asha", cards[0].StudentName)

	w = do(t, server, http.MethodDelete, "/api/rfid/cards/"+card.CardID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, server, http.MethodDelete, "/api/rfid/cards/"+card.CardID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRFID_LogAccess(t *testing.T) {
	server, _, _ := setupTestServer(t)

	w := do(t, server, http.MethodPost, "/api/rfid/log", map[string]string{"rfidUid": "AA"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Card not registered")

	registerCard(t, server, "AA", "Asha")

	w = do(t, server, http.MethodPost, "/api/rfid/log", map[string]string{"rfidUid": "AA", "action": "LUNCH"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, server, http.MethodPost, "/api/rfid/log", map[string]string{"rfidUid": "AA"})
	require.Equal(t, http.StatusCreated, w.Code)
	var entry model.AccessLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, model.ActionEntry, entry.Action)
	assert.Equal(t, "Asha", entry.StudentName)

	w = do(t, server, http.MethodPost, "/api/rfid/log", map[string]string{"rfidUid": "AA", "action": "exit"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, server, http.MethodGet, "/api/rfid/logs?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []model.AccessLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, model.ActionExit, logs[0].Action)
}

func TestRFID_SensorPayloadLogsAttendance(t *testing.T) {
	server, database, _ := setupTestServer(t)
	registerCard(t, server, "AA", "Asha")

	w := do(t, server, http.MethodPost, "/api/sensor-data", map[string]interface{}{
		"deviceId": "CLASSROOM_01",
		"rfidCard": "aa",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var resp SensorDataResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.AttendanceLogged)

	w = do(t, server, http.MethodPost, "/api/sensor-data", map[string]interface{}{
		"deviceId": "CLASSROOM_01",
		"rfidCard": "FFFF",
	})
	require.Equal(t, http.StatusCreated, w.Code, "unknown cards never fail the reading")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.AttendanceLogged)

	logs, err := db.GetAccessLogs(database, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Timestamp.Equal(fixedNow))
}

func TestRFID_AttendanceUsesClassroomDay(t *testing.T) {
	server, database, _ := setupTestServer(t)
	registerCard(t, server, "AA", "Zoe")
	registerCard(t, server, "BB", "Asha")

	// fixedNow is 10:30 on 2 March in UTC+05:30, so the local day began at 18:30 UTC on 1 March
	for _, e := range []struct {
		uid string
		at  time.Time
	}{
		{"AA", time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)},
		{"AA", time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)},
		{"AA", fixedNow.Add(-time.Hour)},
		{"BB", fixedNow.Add(-30 * time.Minute)},
	} {
		_, err := db.LogAccess(database, e.uid, model.ActionEntry, e.at)
		require.NoError(t, err)
	}

	w := do(t, server, http.MethodGet, "/api/rfid/attendance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []model.Attendance
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Asha", list[0].StudentName)
	assert.Equal(t, "Zoe", list[1].StudentName)
	assert.Equal(t, 2, list[1].Entries)
	assert.True(t, list[1].FirstEntry.Equal(time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)))
}

func TestDashboardSummary(t *testing.T) {
	server, database, _ := setupTestServer(t)

	w := do(t, server, http.MethodGet, "/api/dashboard/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary DashboardSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Nil(t, summary.LatestSensor)
	assert.Equal(t, 0, summary.ActiveAlerts)

	var old []model.Alert
	for i := 0; i < 7; i++ {
		old = append(old, model.Alert{Type: "SOUND", Severity: "WARNING", Value: 90, Timestamp: fixedNow.Add(-time.Duration(i) * time.Minute)})
	}
	old = append(old, model.Alert{Type: "CO_LEVEL", Severity: "CRITICAL", Value: 12, Timestamp: fixedNow.Add(-2 * time.Hour)})
	_, err := db.RecordReading(database, model.SensorReading{DeviceID: "CLASSROOM_01", SoundLevel: f64(90), Timestamp: fixedNow.Add(-time.Minute)}, old)
	require.NoError(t, err)

	registerCard(t, server, "AA", "Asha")
	_, err = db.LogAccess(database, "AA", model.ActionEntry, fixedNow.Add(-time.Hour))
	require.NoError(t, err)
	_, err = db.LogAccess(database, "AA", model.ActionEntry, fixedNow)
	require.NoError(t, err)

	w = do(t, server, http.MethodGet, "/api/dashboard/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	require.NotNil(t, summary.LatestSensor)
	assert.Equal(t, 90.0, *summary.LatestSensor.SoundLevel)
	assert.Equal(t, 1, summary.Attendance)
	assert.Equal(t, 7, summary.ActiveAlerts)
	assert.Len(t, summary.RecentAlerts, 5)
	assert.Equal(t, 1, summary.Stats.TotalReadings)
}
