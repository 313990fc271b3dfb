package shutdown

import (
	"database/sql"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/classroom-monitor/internal/datadog"
)

// Shutdown flushes metrics and closes the database. dbConn may be nil.
func Shutdown(dbConn *sql.DB) {
	datadog.Close()
	if dbConn != nil {
		if err := dbConn.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
	log.Info().Msg("Classroom monitor stopped")
}

func ShutdownWithError(dbConn *sql.DB, err error, msg string) {
	log.Error().Err(err).Msg(msg)
	Shutdown(dbConn)
	os.Exit(1)
}
