package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/classroom-monitor/db"
	"github.com/thatsimonsguy/classroom-monitor/internal/model"
)

const (
	summaryWindow       = time.Hour
	summaryRecentAlerts = 5
)

type DashboardSummary struct {
	LatestSensor *model.SensorReading `json:"latestSensor"`
	Attendance   int                  `json:"attendance"`
	ActiveAlerts int                  `json:"activeAlerts"`
	RecentAlerts []model.Alert        `json:"recentAlerts"`
	Stats        model.SensorStats    `json:"stats"`
	Timestamp    time.Time            `json:"timestamp"`
}

// getDashboardSummary answers the dashboard's landing view in one call:
// newest reading, today's attendance, and unresolved alerts and sensor
// averages over the last hour.
func (s *Server) getDashboardSummary(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	since := now.Add(-summaryWindow)

	summary, err := s.summarize(now, since)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build dashboard summary")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch dashboard summary")
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) summarize(now, since time.Time) (DashboardSummary, error) {
	summary := DashboardSummary{Timestamp: now.UTC()}

	latest, err := db.GetLatestReading(s.db)
	if err != nil {
		return summary, err
	}
	summary.LatestSensor = latest

	if s.config.Features.EnableRFIDReader {
		from, to := s.today()
		if summary.Attendance, err = db.CountPresent(s.db, from, to); err != nil {
			return summary, err
		}
	}

	active, err := db.GetAlerts(s.db, db.AlertFilter{Since: since, Limit: maxListLimit})
	if err != nil {
		return summary, err
	}
	summary.ActiveAlerts = len(active)
	if len(active) > summaryRecentAlerts {
		active = active[:summaryRecentAlerts]
	}
	summary.RecentAlerts = active

	if summary.Stats, err = db.GetReadingStats(s.db, since); err != nil {
		return summary, err
	}
	return summary, nil
}
