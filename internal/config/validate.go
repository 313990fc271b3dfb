package config

import (
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"strings"

	"github.com/thatsimonsguy/classroom-monitor/internal/board"
)

var standardBaudRates = map[int]struct{}{
	300: {}, 1200: {}, 2400: {}, 4800: {}, 9600: {}, 14400: {}, 19200: {},
	38400: {}, 57600: {}, 74880: {}, 115200: {}, 230400: {}, 250000: {},
	460800: {}, 500000: {}, 921600: {}, 1000000: {}, 2000000: {},
}

// Validate checks the configuration against the ESP32 pin map and every
// cross-field rule. It returns nil or a *ConfigurationError.
func (c *Config) Validate() error {
	return c.ValidateFor(board.ESP32)
}

func (c *Config) ValidateFor(b *board.Board) error {
	v := &collector{}

	c.validateNetwork(v)
	c.validatePins(v, b)
	c.validateCalibration(v)
	c.validateThresholds(v)
	c.validateTiming(v)
	c.validateClassroom(v)
	c.validateTimezone(v)
	c.validateIntegrations(v)
	c.validateDiagnostics(v)

	return v.err()
}

func (c *Config) validateNetwork(v *collector) {
	n := c.Network

	notEmpty(v, "network.ssid", n.SSID)
	if len(n.SSID) > 32 {
		v.add(RuleRange, len(n.SSID), "SSID must be at most 32 bytes", "network.ssid")
	}

	notEmpty(v, "network.password", n.Password)
	if n.Password != "" && (len(n.Password) < 8 || len(n.Password) > 63) {
		v.add(RuleRange, len(n.Password), "WPA2 passphrase must be 8 to 63 characters", "network.password")
	}

	notEmpty(v, "network.device_id", n.DeviceID)

	if strings.TrimSpace(n.APIServerURL) == "" {
		v.add(RuleRequired, n.APIServerURL, "value cannot be empty", "network.api_server_url")
		return
	}
	u, err := url.Parse(n.APIServerURL)
	switch {
	case err != nil:
		v.add(RuleFormat, n.APIServerURL, fmt.Sprintf("invalid URL: %v", err), "network.api_server_url")
	case u.Scheme != "http" && u.Scheme != "https":
		v.add(RuleFormat, n.APIServerURL, fmt.Sprintf("unsupported URL scheme %q (allowed: http, https)", u.Scheme), "network.api_server_url")
	case u.Host == "":
		v.add(RuleFormat, n.APIServerURL, "URL must have a host", "network.api_server_url")
	}
}

// pinRequirements maps each pin field to the capabilities its peripheral needs.
var pinRequirements = map[string][]board.Capability{
	"sound_sensor":  {board.Analog},
	"co_sensor":     {board.Analog},
	"humidity_temp": {board.Input, board.Output},
	"rfid_select":   {board.Output},
	"rfid_reset":    {board.Output},
	"led_wifi":      {board.Output},
	"led_data":      {board.Output},
	"buzzer":        {board.Output},
}

func (c *Config) validatePins(v *collector, b *board.Board) {
	usedPins := map[board.Pin]string{}

	for _, np := range c.Pins.Named() {
		fieldName := "pins." + np.Name

		if err := b.Check(np.Pin, pinRequirements[np.Name]...); err != nil {
			v.add(RulePinCapability, int(np.Pin), err.Error(), fieldName)
		}

		if other, exists := usedPins[np.Pin]; exists {
			v.add(RuleDuplicatePin, int(np.Pin), fmt.Sprintf("%s and %s both use pin %d", other, fieldName, np.Pin), other, fieldName)
		} else {
			usedPins[np.Pin] = fieldName
		}
	}

	switch c.Pins.HumidityTempSensorType {
	case DHT11, DHT21, DHT22:
	default:
		v.add(RuleFormat, c.Pins.HumidityTempSensorType,
			fmt.Sprintf("sensor type must be one of DHT11, DHT21, DHT22, got %q", c.Pins.HumidityTempSensorType),
			"pins.humidity_temp_sensor_type")
	}
}

func (c *Config) validateCalibration(v *collector) {
	cal := c.Calibration

	between(v, "calibration.sound_threshold_percent", cal.SoundThresholdPercent, 0, 100)
	positiveFloat(v, "calibration.sound_calibration_multiplier", cal.SoundCalibrationMultiplier)
	positiveFloat(v, "calibration.co_sensor_base_resistance", cal.COSensorBaseResistance)
	positiveFloat(v, "calibration.co_calibration_multiplier", cal.COCalibrationMultiplier)
}

func (c *Config) validateThresholds(v *collector) {
	t := c.Thresholds

	if !(t.TempHigh > t.TempLow) {
		v.add(RuleThresholdOrder, [2]float64{t.TempHigh, t.TempLow},
			fmt.Sprintf("temp_high (%g) must be greater than temp_low (%g)", t.TempHigh, t.TempLow),
			"thresholds.temp_high", "thresholds.temp_low")
	}
	if !(t.HumidityHigh > t.HumidityLow) {
		v.add(RuleThresholdOrder, [2]float64{t.HumidityHigh, t.HumidityLow},
			fmt.Sprintf("humidity_high (%g) must be greater than humidity_low (%g)", t.HumidityHigh, t.HumidityLow),
			"thresholds.humidity_high", "thresholds.humidity_low")
	}

	between(v, "thresholds.humidity_high", t.HumidityHigh, 0, 100)
	between(v, "thresholds.humidity_low", t.HumidityLow, 0, 100)
	between(v, "thresholds.sound_level", t.SoundLevel, 0, 100)
	positiveFloat(v, "thresholds.co_level", t.COLevel)
}

func (c *Config) validateTiming(v *collector) {
	t := c.Timing

	positiveInt(v, "timing.sample_interval_ms", t.SampleIntervalMs)
	positiveInt(v, "timing.wifi_max_attempts", t.WiFiMaxAttempts)
	positiveInt(v, "timing.wifi_retry_interval_ms", t.WiFiRetryIntervalMs)
	positiveInt(v, "timing.rfid_card_timeout_ms", t.RFIDCardTimeoutMs)
	positiveInt(v, "timing.wifi_timeout_seconds", t.WiFiTimeoutSeconds)
	positiveInt(v, "timing.api_timeout_ms", t.APITimeoutMs)
	positiveInt(v, "timing.api_retry_attempts", t.APIRetryAttempts)
}

func (c *Config) validateClassroom(v *collector) {
	cl := c.Classroom

	notEmpty(v, "classroom.id", cl.ID)
	notEmpty(v, "classroom.name", cl.Name)
	positiveInt(v, "classroom.capacity", cl.Capacity)

	start, startErr := ParseClock(cl.StartTime)
	if startErr != nil {
		v.add(RuleFormat, cl.StartTime, startErr.Error(), "classroom.start_time")
	}
	end, endErr := ParseClock(cl.EndTime)
	if endErr != nil {
		v.add(RuleFormat, cl.EndTime, endErr.Error(), "classroom.end_time")
	}
	if startErr == nil && endErr == nil && !start.Before(end) {
		v.add(RuleRange, [2]string{cl.StartTime, cl.EndTime},
			fmt.Sprintf("start_time %s must be before end_time %s", cl.StartTime, cl.EndTime),
			"classroom.start_time", "classroom.end_time")
	}
}

func (c *Config) validateTimezone(v *collector) {
	offset := c.Timezone.UTCOffsetHours

	if math.IsNaN(offset) || offset < -12 || offset > 14 {
		v.add(RuleRange, offset, fmt.Sprintf("UTC offset must be between -12 and +14 hours, got %g", offset), "timezone.utc_offset_hours")
		return
	}
	if quarters := offset * 4; quarters != math.Trunc(quarters) {
		v.add(RuleFormat, offset, fmt.Sprintf("UTC offset must be a multiple of 15 minutes, got %g hours", offset), "timezone.utc_offset_hours")
	}
}

func (c *Config) validateIntegrations(v *collector) {
	in := c.Integrations

	if c.Features.EnableEmailAlerts {
		if strings.TrimSpace(in.AlertEmail) == "" {
			v.add(RuleRequiredForFeature, in.AlertEmail, "alert_email is required when enable_email_alerts is set",
				"integrations.alert_email", "features.enable_email_alerts")
		} else if _, err := mail.ParseAddress(in.AlertEmail); err != nil {
			v.add(RuleFormat, in.AlertEmail, fmt.Sprintf("invalid email address: %v", err), "integrations.alert_email")
		}
	}

	if c.Features.EnableCloudSync && strings.TrimSpace(in.CloudServerAddress) == "" {
		v.add(RuleRequiredForFeature, in.CloudServerAddress, "cloud_server_address is required when enable_cloud_sync is set",
			"integrations.cloud_server_address", "features.enable_cloud_sync")
	}
}

func (c *Config) validateDiagnostics(v *collector) {
	d := c.Diagnostics

	if _, ok := standardBaudRates[d.SerialBaudRate]; !ok {
		v.add(RuleRange, d.SerialBaudRate, fmt.Sprintf("%d is not a standard serial baud rate", d.SerialBaudRate), "diagnostics.serial_baud_rate")
	}
	positiveInt(v, "diagnostics.json_buffer_size_bytes", d.JSONBufferSizeBytes)
}

func notEmpty(v *collector, field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(RuleRequired, value, "value cannot be empty", field)
	}
}

func positiveInt(v *collector, field string, value int) {
	if value <= 0 {
		v.add(RulePositive, value, fmt.Sprintf("must be greater than 0, got %d", value), field)
	}
}

func positiveFloat(v *collector, field string, value float64) {
	if !(value > 0) {
		v.add(RulePositive, value, fmt.Sprintf("must be greater than 0, got %g", value), field)
	}
}

func between(v *collector, field string, value, lo, hi float64) {
	if !(value >= lo && value <= hi) {
		v.add(RuleRange, value, fmt.Sprintf("must be between %g and %g, got %g", lo, hi, value), field)
	}
}
