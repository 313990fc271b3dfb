package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/classroom-monitor/internal/config"
	"github.com/thatsimonsguy/classroom-monitor/internal/model"
)

const (
	alertsPath   = "/alerts"
	retryBackoff = 500 * time.Millisecond
)

// Payload is what the cloud endpoint receives for each batch of alerts.
type Payload struct {
	DeviceID    string        `json:"deviceId"`
	ClassroomID string        `json:"classroomId"`
	Alerts      []model.Alert `json:"alerts"`
}

// CloudSync forwards alerts to the configured cloud server.
type CloudSync struct {
	client   *http.Client
	url      string
	attempts int
	backoff  time.Duration

	deviceID    string
	classroomID string
}

// NewCloudSync returns nil when cloud sync is switched off, so callers can
// treat a nil *CloudSync as "nothing to do".
func NewCloudSync(cfg config.Config) *CloudSync {
	if !cfg.Features.EnableCloudSync {
		log.Info().Msg("Cloud sync disabled")
		return nil
	}

	attempts := cfg.Timing.APIRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	c := &CloudSync{
		client:      &http.Client{Timeout: cfg.Timing.APITimeout()},
		url:         CloudURL(cfg.Integrations.CloudServerAddress),
		attempts:    attempts,
		backoff:     retryBackoff,
		deviceID:    cfg.Network.DeviceID,
		classroomID: cfg.Classroom.ID,
	}

	log.Info().
		Str("url", c.url).
		Int("attempts", c.attempts).
		Dur("timeout", c.client.Timeout).
		Msg("Cloud sync initialized")
	return c
}

// CloudURL turns a bare host into an https endpoint for alert uploads.
func CloudURL(address string) string {
	address = strings.TrimRight(address, "/")
	if !strings.Contains(address, "://") {
		address = "https://" + address
	}
	return address + alertsPath
}

// Forward posts the alerts, retrying failed attempts. An empty batch is a
// no-op.
func (c *CloudSync) Forward(ctx context.Context, alerts []model.Alert) error {
	if c == nil || len(alerts) == 0 {
		return nil
	}

	body, err := json.Marshal(Payload{DeviceID: c.deviceID, ClassroomID: c.classroomID, Alerts: alerts})
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if lastErr = c.send(ctx, body); lastErr == nil {
			log.Debug().Int("alerts", len(alerts)).Int("attempt", attempt).Msg("Alerts forwarded to cloud")
			return nil
		}

		log.Warn().Err(lastErr).Int("attempt", attempt).Int("max_attempts", c.attempts).Msg("Cloud sync attempt failed")

		if attempt < c.attempts {
			select {
			case <-ctx.Done():
				return fmt.Errorf("cloud sync cancelled: %w", ctx.Err())
			case <-time.After(c.backoff):
			}
		}
	}
	return fmt.Errorf("cloud sync failed after %d attempts: %w", c.attempts, lastErr)
}

func (c *CloudSync) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send alerts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cloud server returned non-success status: %d", resp.StatusCode)
	}
	return nil
}
