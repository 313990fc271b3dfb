package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/classroom-monitor/db"
	"github.com/thatsimonsguy/classroom-monitor/internal/model"
)

const defaultAccessLogLimit = 50

// scanBuffer holds the most recent reader scan until a client picks it up.
type scanBuffer struct {
	mu  sync.Mutex
	uid string
	at  time.Time
}

func (b *scanBuffer) put(uid string, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uid = uid
	b.at = at
}

// take returns and clears the held scan. Scans older than ttl are dropped.
func (b *scanBuffer) take(now time.Time, ttl time.Duration) (string, time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	uid, at := b.uid, b.at
	b.uid = ""
	b.at = time.Time{}

	if uid == "" || now.Sub(at) > ttl {
		return "", time.Time{}, false
	}
	return uid, at, true
}

type ScanRequest struct {
	RFIDUID string `json:"rfidUid"`
}

type LastScanResponse struct {
	UID       *string    `json:"uid"`
	Timestamp *time.Time `json:"timestamp"`
	Message   string     `json:"message,omitempty"`
}

type RegisterRequest struct {
	RFIDUID     string `json:"rfidUid"`
	StudentName string `json:"studentName"`
}

type AccessRequest struct {
	RFIDUID string `json:"rfidUid"`
	Action  string `json:"action"`
}

func (s *Server) requireRFID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.config.Features.EnableRFIDReader {
			s.writeError(w, http.StatusNotFound, "RFID reader is disabled")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes)).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}
	return true
}

func (s *Server) postScan(w http.ResponseWriter, r *http.Request) {
	var in ScanRequest
	if !s.decode(w, r, &in) {
		return
	}
	uid := db.NormalizeUID(in.RFIDUID)
	if uid == "" {
		s.writeError(w, http.StatusBadRequest, "rfidUid is required")
		return
	}

	at := s.now().UTC()
	s.scans.put(uid, at)
	log.Info().Str("rfid_uid", uid).Msg("RFID card scanned")

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"uid":       uid,
		"timestamp": at,
	})
}

func (s *Server) getLastScan(w http.ResponseWriter, r *http.Request) {
	uid, at, ok := s.scans.take(s.now().UTC(), s.config.Timing.RFIDCardTimeout())
	if !ok {
		s.writeJSON(w, http.StatusOK, LastScanResponse{Message: "No RFID scanned yet"})
		return
	}
	s.writeJSON(w, http.StatusOK, LastScanResponse{UID: &uid, Timestamp: &at})
}

func (s *Server) registerCard(w http.ResponseWriter, r *http.Request) {
	var in RegisterRequest
	if !s.decode(w, r, &in) {
		return
	}
	in.StudentName = strings.TrimSpace(in.StudentName)
	if db.NormalizeUID(in.RFIDUID) == "" || in.StudentName == "" {
		s.writeError(w, http.StatusBadRequest, "rfidUid and studentName are required")
		return
	}

	card, err := db.RegisterCard(s.db, in.RFIDUID, in.StudentName, s.now())
	if err != nil {
		if errors.Is(err, db.ErrCardExists) {
			s.writeError(w, http.StatusConflict, "Card already registered")
			return
		}
		log.Error().Err(err).Msg("Failed to register card")
		s.writeError(w, http.StatusInternalServerError, "Failed to register card")
		return
	}

	log.Info().Str("card_id", card.CardID).Str("rfid_uid", card.RFIDUID).Msg("RFID card registered")
	s.writeJSON(w, http.StatusCreated, card)
}

func (s *Server) logAccess(w http.ResponseWriter, r *http.Request) {
	var in AccessRequest
	if !s.decode(w, r, &in) {
		return
	}
	if db.NormalizeUID(in.RFIDUID) == "" {
		s.writeError(w, http.StatusBadRequest, "rfidUid is required")
		return
	}

	action := model.ActionEntry
	if in.Action != "" {
		action = model.AccessAction(strings.ToUpper(in.Action))
	}
	if action != model.ActionEntry && action != model.ActionExit {
		s.writeError(w, http.StatusBadRequest, "action must be ENTRY or EXIT")
		return
	}

	entry, err := db.LogAccess(s.db, in.RFIDUID, action, s.now())
	if err != nil {
		if errors.Is(err, db.ErrCardNotFound) {
			s.writeError(w, http.StatusNotFound, "Card not registered")
			return
		}
		log.Error().Err(err).Msg("Failed to log card access")
		s.writeError(w, http.StatusInternalServerError, "Failed to log access")
		return
	}
	s.writeJSON(w, http.StatusCreated, entry)
}

// logCardEntry records attendance for a card reported alongside a reading.
func (s *Server) logCardEntry(deviceID, uid string, at time.Time) bool {
	entry, err := db.LogAccess(s.db, uid, model.ActionEntry, at)
	if errors.Is(err, db.ErrCardNotFound) {
		log.Warn().Str("device_id", deviceID).Str("rfid_uid", db.NormalizeUID(uid)).Msg("Unregistered RFID card reported")
		return false
	}
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to log RFID entry")
		return false
	}
	log.Info().Str("student", entry.StudentName).Str("rfid_uid", entry.RFIDUID).Msg("Attendance logged")
	return true
}

func (s *Server) getCards(w http.ResponseWriter, r *http.Request) {
	cards, err := db.GetCards(s.db)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get cards")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch cards")
		return
	}
	s.writeJSON(w, http.StatusOK, cards)
}

func (s *Server) deleteCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	if err := db.DeleteCard(s.db, cardID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, http.StatusNotFound, "Card not found")
			return
		}
		log.Error().Err(err).Str("card_id", cardID).Msg("Failed to delete card")
		s.writeError(w, http.StatusInternalServerError, "Failed to delete card")
		return
	}

	log.Info().Str("card_id", cardID).Msg("RFID card deleted")
	s.writeJSON(w, http.StatusOK, ActionResponse{Success: true, Message: "Card deleted"})
}

func (s *Server) getAccessLogs(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limitParam(w, r, defaultAccessLogLimit)
	if !ok {
		return
	}

	logs, err := db.GetAccessLogs(s.db, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get access logs")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch access logs")
		return
	}
	s.writeJSON(w, http.StatusOK, logs)
}

func (s *Server) getAttendance(w http.ResponseWriter, r *http.Request) {
	from, to := s.today()
	list, err := db.GetAttendance(s.db, from, to)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get attendance")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch attendance")
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

// today is the current calendar day in the classroom's zone.
func (s *Server) today() (time.Time, time.Time) {
	local := s.now().In(s.config.Timezone.Location())
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return start, start.AddDate(0, 0, 1)
}
