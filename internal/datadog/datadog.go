package datadog

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/classroom-monitor/internal/model"
)

var dogstatsd *statsd.Client

// InitMetrics connects to the DogStatsD agent. An empty addr leaves metrics
// off and every emit becomes a no-op.
func InitMetrics(addr, namespace string, tags []string) {
	if addr == "" {
		log.Info().Msg("Datadog agent address not set - metrics disabled")
		return
	}

	var err error
	dogstatsd, err = statsd.New(addr, statsd.WithNamespace(namespace), statsd.WithTags(tags))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create DogStatsD client")
		return
	}

	log.Info().
		Str("addr", addr).
		Str("namespace", namespace).
		Strs("tags", tags).
		Msg("Datadog metrics initialized")
}

func Close() {
	if dogstatsd != nil {
		dogstatsd.Close()
		dogstatsd = nil
	}
}

func Gauge(name string, value float64, tags ...string) {
	if dogstatsd != nil {
		if err := dogstatsd.Gauge(name, value, tags, 1); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
		}
	}
}

func Count(name string, value int64, tags ...string) {
	if dogstatsd != nil {
		if err := dogstatsd.Count(name, value, tags, 1); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit count metric")
		}
	}
}

// ReportReading emits one gauge per sensor value present in r and a count per
// raised alert. The classroom tag comes from the client's global tags.
func ReportReading(r model.SensorReading, raised []model.Alert) {
	tags := []string{"device:" + r.DeviceID}

	gauge := func(name string, v *float64) {
		if v != nil {
			Gauge(name, *v, tags...)
		}
	}
	gauge("sensor.sound_level", r.SoundLevel)
	gauge("sensor.temperature", r.Temperature)
	gauge("sensor.humidity", r.Humidity)
	gauge("sensor.co_level", r.COLevel)
	if r.RSSI != nil {
		Gauge("device.rssi", float64(*r.RSSI), tags...)
	}

	for _, a := range raised {
		alertTags := append(append([]string{}, tags...), "type:"+a.Type, "severity:"+a.Severity)
		Count("alerts.raised", 1, alertTags...)
	}
}
