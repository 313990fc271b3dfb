package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/classroom-monitor/internal/config"
	"github.com/thatsimonsguy/classroom-monitor/internal/model"
)

const (
	defaultBasePath = "/api"
	defaultPort     = "5000"
	forwardTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Notifier receives the alerts raised by each ingested reading.
type Notifier interface {
	Forward(ctx context.Context, alerts []model.Alert) error
}

type Server struct {
	db       *sql.DB
	config   config.Config
	notifier Notifier
	now      func() time.Time

	// in-flight notifier calls
	forwards sync.WaitGroup

	scans scanBuffer
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the hub API. notifier may be nil.
func NewServer(database *sql.DB, cfg config.Config, notifier Notifier) *Server {
	return &Server{
		db:       database,
		config:   cfg,
		notifier: notifier,
		now:      time.Now,
	}
}

// BasePath is the path component of the device-facing API URL, "/api" when
// the URL has none.
func BasePath(cfg config.Config) string {
	u, err := url.Parse(cfg.Network.APIServerURL)
	if err != nil {
		return defaultBasePath
	}
	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return defaultBasePath
	}
	return p
}

// ListenAddr listens on every interface at the port devices are configured to
// reach, 5000 when the URL names none.
func ListenAddr(cfg config.Config) string {
	port := defaultPort
	if u, err := url.Parse(cfg.Network.APIServerURL); err == nil && u.Port() != "" {
		port = u.Port()
	}
	return net.JoinHostPort("0.0.0.0", port)
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors)

	r.Get("/health", s.health)

	r.Route(BasePath(s.config), func(r chi.Router) {
		r.Post("/sensor-data", s.postSensorData)
		r.Get("/sensor-data/latest", s.getLatestReading)
		r.Get("/sensor-data/history", s.getReadingHistory)
		r.Get("/sensor-stats", s.getReadingStats)

		r.Get("/alerts", s.getAlerts)
		r.Put("/alerts/{alertID}/resolve", s.resolveAlert)

		r.Get("/system/status", s.getSystemStatus)
		r.Get("/config", s.getConfig)
		r.Get("/dashboard/summary", s.getDashboardSummary)

		r.Route("/rfid", func(r chi.Router) {
			r.Use(s.requireRFID)
			r.Post("/scan", s.postScan)
			r.Get("/last-scan", s.getLastScan)
			r.Post("/register", s.registerCard)
			r.Post("/log", s.logAccess)
			r.Get("/cards", s.getCards)
			r.Delete("/cards/{cardID}", s.deleteCard)
			r.Get("/logs", s.getAccessLogs)
			r.Get("/attendance", s.getAttendance)
		})
	})

	return r
}

// Start serves until ctx is cancelled, then shuts down and waits for pending
// cloud forwards.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", addr).Str("base_path", BasePath(s.config)).Msg("Starting REST API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info().Msg("Shutting down REST API server")
	err := srv.Shutdown(shutdownCtx)
	<-errCh
	s.Wait()
	if err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return nil
}

// Wait blocks until every alert forward started by the server has finished.
func (s *Server) Wait() {
	s.forwards.Wait()
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
