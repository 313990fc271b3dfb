package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/classroom-monitor/db"
	"github.com/thatsimonsguy/classroom-monitor/internal/alerts"
	"github.com/thatsimonsguy/classroom-monitor/internal/controllers/livenesscontroller"
	"github.com/thatsimonsguy/classroom-monitor/internal/datadog"
	"github.com/thatsimonsguy/classroom-monitor/internal/model"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	maxPayloadBytes  = 1 << 20

	// how far ahead of the hub clock a device timestamp may run
	maxClockSkew = 2 * time.Minute
)

// device timestamps arrive either as RFC 3339 or in SQLite's datetime layout
var readingTimeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

type SensorDataResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	ID               int64  `json:"id"`
	Alerts           int    `json:"alerts"`
	AttendanceLogged bool   `json:"attendanceLogged"`
}

type StatusResponse struct {
	Status                  model.SystemState `json:"status"`
	LastReading             *time.Time        `json:"lastReading"`
	MinutesSinceLastReading int               `json:"minutesSinceLastReading"`
	InSession               bool              `json:"inSession"`
	Timestamp               time.Time         `json:"timestamp"`
}

type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "OK",
		"timestamp": s.now().UTC(),
	})
}

func (s *Server) postSensorData(w http.ResponseWriter, r *http.Request) {
	var in alerts.Reading
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes)).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if in.DeviceID == "" {
		s.writeError(w, http.StatusBadRequest, "deviceId is required")
		return
	}

	received := s.now().UTC()
	reading := model.SensorReading{
		DeviceID:    in.DeviceID,
		SoundLevel:  in.SoundLevel,
		Temperature: in.Temperature,
		Humidity:    in.Humidity,
		COLevel:     in.COLevel,
		RSSI:        in.RSSI,
		Timestamp:   s.readingTime(in.Timestamp, received),
	}

	var raised []model.Alert
	for _, a := range alerts.Evaluate(s.config.Thresholds, s.config.Features, in) {
		raised = append(raised, model.Alert{
			Type:      string(a.Type),
			Severity:  string(a.Severity),
			Message:   a.Message,
			Value:     a.Value,
			Timestamp: received,
		})
	}

	id, err := db.RecordReading(s.db, reading, raised)
	if err != nil {
		log.Error().Err(err).Str("device_id", in.DeviceID).Msg("Failed to record sensor data")
		s.writeError(w, http.StatusInternalServerError, "Failed to record sensor data")
		return
	}

	datadog.ReportReading(reading, raised)

	log.Debug().
		Str("device_id", in.DeviceID).
		Int64("reading_id", id).
		Int("alerts", len(raised)).
		Msg("Sensor data recorded")

	attended := false
	if in.RFIDCard != "" && s.config.Features.EnableRFIDReader {
		attended = s.logCardEntry(in.DeviceID, in.RFIDCard, received)
	}

	if len(raised) > 0 && s.notifier != nil {
		s.forward(raised)
	}

	s.writeJSON(w, http.StatusCreated, SensorDataResponse{
		Success:          true,
		Message:          "Sensor data recorded",
		ID:               id,
		Alerts:           len(raised),
		AttendanceLogged: attended,
	})
}

// forward hands alerts to the notifier off the request path.
func (s *Server) forward(raised []model.Alert) {
	s.forwards.Add(1)
	go func() {
		defer s.forwards.Done()
		ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
		defer cancel()
		if err := s.notifier.Forward(ctx, raised); err != nil {
			log.Error().Err(err).Int("alerts", len(raised)).Msg("Failed to forward alerts")
		}
	}()
}

// readingTime parses a device timestamp. Zone-less values are wall-clock time
// in the classroom's zone. Anything unparseable or further than maxClockSkew
// ahead of received falls back to received.
func (s *Server) readingTime(raw string, received time.Time) time.Time {
	if raw == "" {
		return received
	}
	loc := s.config.Timezone.Location()
	for _, layout := range readingTimeLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err != nil {
			continue
		}
		if t.After(received.Add(maxClockSkew)) {
			log.Warn().Str("timestamp", raw).Time("received", received).Msg("Device timestamp is in the future, using receive time")
			return received
		}
		return t.UTC()
	}
	log.Debug().Str("timestamp", raw).Msg("Unparseable device timestamp, using receive time")
	return received
}

func (s *Server) getLatestReading(w http.ResponseWriter, r *http.Request) {
	latest, err := db.GetLatestReading(s.db)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get latest reading")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch sensor data")
		return
	}
	if latest == nil {
		s.writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	s.writeJSON(w, http.StatusOK, latest)
}

func (s *Server) getReadingHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limitParam(w, r, defaultListLimit)
	if !ok {
		return
	}

	history, err := db.GetReadingHistory(s.db, limit)
	if err != nil {
		log.Error().Err(err).Int("limit", limit).Msg("Failed to get reading history")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch sensor history")
		return
	}
	s.writeJSON(w, http.StatusOK, history)
}

func (s *Server) getReadingStats(w http.ResponseWriter, r *http.Request) {
	minutes := 60
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "minutes must be a positive integer")
			return
		}
		minutes = n
	}

	stats, err := db.GetReadingStats(s.db, s.now().Add(-time.Duration(minutes)*time.Minute))
	if err != nil {
		log.Error().Err(err).Msg("Failed to get reading stats")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch sensor statistics")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) getAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, ok := s.limitParam(w, r, defaultListLimit)
	if !ok {
		return
	}

	filter := db.AlertFilter{Type: q.Get("type"), Limit: limit}
	if filter.Type != "" && !alerts.IsValidType(filter.Type) {
		s.writeError(w, http.StatusBadRequest, "Invalid alert type. Valid types: SOUND, TEMPERATURE, HUMIDITY, CO_LEVEL")
		return
	}
	if raw := q.Get("resolved"); raw != "" {
		resolved, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "resolved must be a boolean")
			return
		}
		filter.Resolved = resolved
	}

	list, err := db.GetAlerts(s.db, filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get alerts")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch alerts")
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) resolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "alertID"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid alert ID")
		return
	}

	if err := db.ResolveAlert(s.db, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, http.StatusNotFound, "Alert not found")
			return
		}
		log.Error().Err(err).Int64("alert_id", id).Msg("Failed to resolve alert")
		s.writeError(w, http.StatusInternalServerError, "Failed to resolve alert")
		return
	}

	log.Info().Int64("alert_id", id).Msg("Alert resolved via API")
	s.writeJSON(w, http.StatusOK, ActionResponse{Success: true, Message: "Alert resolved"})
}

func (s *Server) getSystemStatus(w http.ResponseWriter, r *http.Request) {
	now := s.now()

	latest, err := db.GetLatestReading(s.db)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get latest reading")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch system status")
		return
	}

	resp := StatusResponse{
		Status:                  model.StateOffline,
		MinutesSinceLastReading: -1,
		InSession:               s.config.InSession(now),
		Timestamp:               now.UTC(),
	}
	if latest != nil {
		since := now.Sub(latest.Timestamp)
		resp.LastReading = &latest.Timestamp
		resp.MinutesSinceLastReading = int(since / time.Minute)
		if since < livenesscontroller.OnlineWindow {
			resp.Status = model.StateOnline
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.config.Redacted())
}

func (s *Server) limitParam(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, true
}
