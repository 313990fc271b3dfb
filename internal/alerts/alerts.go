package alerts

import (
	"fmt"

	"github.com/thatsimonsguy/classroom-monitor/internal/config"
)

type Type string

const (
	TypeSound       Type = "SOUND"
	TypeTemperature Type = "TEMPERATURE"
	TypeHumidity    Type = "HUMIDITY"
	TypeCOLevel     Type = "CO_LEVEL"
)

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Reading is one sample as reported by a device. Nil fields were not sent.
type Reading struct {
	DeviceID    string   `json:"deviceId"`
	SoundLevel  *float64 `json:"soundLevel,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	COLevel     *float64 `json:"coLevel,omitempty"`
	RSSI        *int     `json:"rssi,omitempty"`
	RFIDCard    string   `json:"rfidCard,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
}

type Alert struct {
	Type     Type     `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Value    float64  `json:"value"`
}

// Evaluate returns the alerts a reading raises. Sensors switched off in the
// feature flags are ignored even if the device reports a value.
func Evaluate(t config.ThresholdConfig, f config.FeatureFlags, r Reading) []Alert {
	var out []Alert

	if f.EnableSoundSensor && r.SoundLevel != nil && *r.SoundLevel > t.SoundLevel {
		out = append(out, Alert{TypeSound, SeverityWarning, fmt.Sprintf("High sound level detected: %.2f%%", *r.SoundLevel), *r.SoundLevel})
	}

	if f.EnableDHTSensor && r.Temperature != nil {
		temp := *r.Temperature
		if temp > t.TempHigh {
			out = append(out, Alert{TypeTemperature, SeverityWarning, fmt.Sprintf("High temperature: %.2f°C", temp), temp})
		}
		if temp < t.TempLow {
			out = append(out, Alert{TypeTemperature, SeverityWarning, fmt.Sprintf("Low temperature: %.2f°C", temp), temp})
		}
	}

	if f.EnableDHTSensor && r.Humidity != nil {
		hum := *r.Humidity
		if hum > t.HumidityHigh {
			out = append(out, Alert{TypeHumidity, SeverityInfo, fmt.Sprintf("High humidity: %.2f%%", hum), hum})
		}
		if hum < t.HumidityLow {
			out = append(out, Alert{TypeHumidity, SeverityInfo, fmt.Sprintf("Low humidity: %.2f%%", hum), hum})
		}
	}

	if f.EnableMQ7Sensor && r.COLevel != nil && *r.COLevel > t.COLevel {
		out = append(out, Alert{TypeCOLevel, SeverityCritical, fmt.Sprintf("High CO level: %.2f PPM", *r.COLevel), *r.COLevel})
	}

	return out
}

func IsValidType(t string) bool {
	switch Type(t) {
	case TypeSound, TypeTemperature, TypeHumidity, TypeCOLevel:
		return true
	default:
		return false
	}
}
