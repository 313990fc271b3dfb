package livenesscontroller

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/classroom-monitor/db"
	"github.com/thatsimonsguy/classroom-monitor/internal/config"
	"github.com/thatsimonsguy/classroom-monitor/internal/datadog"
)

// OnlineWindow is how recent the last reading must be for the device to count
// as online.
const OnlineWindow = 2 * time.Minute

type Transition int

const (
	NoChange Transition = iota
	WentOffline
	CameOnline
)

type Check struct {
	Online     bool
	Transition Transition
	Silence    time.Duration // time since the last reading, -1 if none
}

// evaluateLiveness works out the device state from the newest reading time.
func evaluateLiveness(wasOnline bool, last *time.Time, now time.Time) Check {
	c := Check{Silence: -1}
	if last != nil {
		c.Silence = now.Sub(*last)
		c.Online = c.Silence < OnlineWindow
	}

	switch {
	case wasOnline && !c.Online:
		c.Transition = WentOffline
	case !wasOnline && c.Online:
		c.Transition = CameOnline
	}
	return c
}

// RunLivenessController polls the newest reading every interval until ctx is
// done, logging online/offline transitions and reporting a device.online
// gauge.
func RunLivenessController(ctx context.Context, dbConn *sql.DB, cfg config.Config, interval time.Duration) {
	log.Info().Dur("interval", interval).Msg("Starting liveness controller")

	tags := []string{"device:" + cfg.Network.DeviceID, "classroom:" + cfg.Classroom.ID}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	online := false
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Liveness controller stopped")
			return
		case now := <-ticker.C:
			latest, err := db.GetLatestReading(dbConn)
			if err != nil {
				log.Error().Err(err).Msg("Could not read latest reading")
				continue
			}

			var last *time.Time
			if latest != nil {
				last = &latest.Timestamp
			}
			check := evaluateLiveness(online, last, now)
			online = check.Online
			report(cfg, check, now, tags)
		}
	}
}

func report(cfg config.Config, c Check, now time.Time, tags []string) {
	gauge := 0.0
	if c.Online {
		gauge = 1
	}
	datadog.Gauge("device.online", gauge, tags...)

	switch c.Transition {
	case WentOffline:
		// outside class hours the device is often powered down on purpose
		if cfg.InSession(now) {
			log.Warn().Str("device_id", cfg.Network.DeviceID).Dur("silence", c.Silence).Msg("Device went offline during class hours")
		} else {
			log.Info().Str("device_id", cfg.Network.DeviceID).Dur("silence", c.Silence).Msg("Device went offline")
		}
	case CameOnline:
		log.Info().Str("device_id", cfg.Network.DeviceID).Msg("Device is online")
	}
}
