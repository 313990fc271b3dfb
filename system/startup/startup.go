package startup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/thatsimonsguy/classroom-monitor/internal/config"
)

// RenderDeviceHeader renders cfg as the config.h the ESP32 firmware is built
// with. cfg should already have passed Validate.
func RenderDeviceHeader(cfg config.Config) []byte {
	var lines []string
	lines = append(lines, "// Generated by configcheck. Edit the source configuration, not this file.", "")

	section := func(title string) {
		lines = append(lines, "", fmt.Sprintf("// ==================== %s ====================", title))
	}
	def := func(name, value string) {
		lines = append(lines, fmt.Sprintf("#define %s %s", name, value))
	}
	str := func(name, value string) { def(name, strconv.Quote(value)) }
	num := func(name string, value float64) { def(name, strconv.FormatFloat(value, 'f', -1, 64)) }
	flt := func(name string, value float64) { def(name, cFloat(value)) }
	integer := func(name string, value int) { def(name, strconv.Itoa(value)) }
	flag := func(name string, on bool) {
		if on {
			def(name, "1")
		} else {
			def(name, "0")
		}
	}

	section("WiFi Configuration")
	str("WIFI_SSID", cfg.Network.SSID)
	str("WIFI_PASSWORD", cfg.Network.Password)
	str("API_SERVER", cfg.Network.APIServerURL)
	str("DEVICE_ID", cfg.Network.DeviceID)

	section("Hardware PIN Mapping")
	integer("SOUND_SENSOR_PIN", int(cfg.Pins.SoundSensor))
	integer("MQ7_PIN", int(cfg.Pins.COSensor))
	integer("DHT_PIN", int(cfg.Pins.HumidityTemp))
	def("DHT_TYPE", string(cfg.Pins.HumidityTempSensorType))
	integer("RFID_SS_PIN", int(cfg.Pins.RFIDSelect))
	integer("RFID_RST_PIN", int(cfg.Pins.RFIDReset))
	integer("LED_WIFI_PIN", int(cfg.Pins.LEDWiFi))
	integer("LED_DATA_PIN", int(cfg.Pins.LEDData))
	integer("BUZZER_PIN", int(cfg.Pins.Buzzer))

	section("SENSOR CALIBRATION")
	num("SOUND_THRESHOLD", cfg.Calibration.SoundThresholdPercent)
	flt("SOUND_CALIBRATION", cfg.Calibration.SoundCalibrationMultiplier)
	num("TEMP_OFFSET", cfg.Calibration.TempOffset)
	num("HUMIDITY_OFFSET", cfg.Calibration.HumidityOffset)
	flt("MQ7_RO", cfg.Calibration.COSensorBaseResistance)
	flt("MQ7_CALIBRATION", cfg.Calibration.COCalibrationMultiplier)

	section("ALERT THRESHOLDS")
	num("TEMP_HIGH_THRESHOLD", cfg.Thresholds.TempHigh)
	num("TEMP_LOW_THRESHOLD", cfg.Thresholds.TempLow)
	num("HUMIDITY_HIGH_THRESHOLD", cfg.Thresholds.HumidityHigh)
	num("HUMIDITY_LOW_THRESHOLD", cfg.Thresholds.HumidityLow)
	num("SOUND_LEVEL_THRESHOLD", cfg.Thresholds.SoundLevel)
	num("CO_LEVEL_THRESHOLD", cfg.Thresholds.COLevel)

	section("OPERATION PARAMETERS")
	integer("SAMPLE_INTERVAL", cfg.Timing.SampleIntervalMs)
	integer("WIFI_MAX_ATTEMPTS", cfg.Timing.WiFiMaxAttempts)
	integer("WIFI_RETRY_INTERVAL", cfg.Timing.WiFiRetryIntervalMs)
	integer("RFID_CARD_TIMEOUT", cfg.Timing.RFIDCardTimeoutMs)
	flag("DEBUG_SERIAL", cfg.Diagnostics.DebugSerialEnabled)
	integer("SERIAL_BAUD", cfg.Diagnostics.SerialBaudRate)

	section("FEATURE FLAGS")
	flag("ENABLE_SOUND_SENSOR", cfg.Features.EnableSoundSensor)
	flag("ENABLE_DHT_SENSOR", cfg.Features.EnableDHTSensor)
	flag("ENABLE_MQ7_SENSOR", cfg.Features.EnableMQ7Sensor)
	flag("ENABLE_RFID_READER", cfg.Features.EnableRFIDReader)
	flag("ENABLE_LED_INDICATORS", cfg.Features.EnableLEDIndicators)
	flag("ENABLE_BUZZER", cfg.Features.EnableBuzzer)

	section("NETWORK SETTINGS")
	integer("WIFI_TIMEOUT", cfg.Timing.WiFiTimeoutSeconds)
	integer("API_TIMEOUT", cfg.Timing.APITimeoutMs)
	integer("API_RETRY_ATTEMPTS", cfg.Timing.APIRetryAttempts)

	section("CLASSROOM SETTINGS")
	str("CLASSROOM_ID", cfg.Classroom.ID)
	str("CLASSROOM_NAME", cfg.Classroom.Name)
	integer("CLASSROOM_CAPACITY", cfg.Classroom.Capacity)
	str("CLASS_START_TIME", cfg.Classroom.StartTime)
	str("CLASS_END_TIME", cfg.Classroom.EndTime)

	section("TIMEZONE")
	num("TIMEZONE_OFFSET", cfg.Timezone.UTCOffsetHours)
	flag("USE_DST", cfg.Timezone.UseDaylightSaving)

	section("OPTIONAL FEATURES")
	flag("ENABLE_EMAIL_ALERTS", cfg.Features.EnableEmailAlerts)
	str("ALERT_EMAIL", cfg.Integrations.AlertEmail)
	flag("ENABLE_CLOUD_SYNC", cfg.Features.EnableCloudSync)
	str("CLOUD_SERVER", cfg.Integrations.CloudServerAddress)

	section("JSON PAYLOAD SIZE")
	integer("JSON_BUFFER_SIZE", cfg.Diagnostics.JSONBufferSizeBytes)

	return []byte(strings.Join(lines, "\n") + "\n")
}

// cFloat always carries a decimal point so the firmware sees a double literal.
func cFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func WriteDeviceHeader(path string, cfg config.Config) error {
	if err := renameio.WriteFile(path, RenderDeviceHeader(cfg), 0644); err != nil {
		return fmt.Errorf("write device header %s: %w", path, err)
	}
	return nil
}

type ServiceOptions struct {
	User       string
	WorkDir    string
	Binary     string
	ConfigFile string
	DBPath     string
}

// systemd splits ExecStart on whitespace and expands % specifiers and $
// variables, so path arguments are quoted and escaped.
var execArgEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "%", "%%", "$", "$$")

func execArg(s string) string {
	return `"` + execArgEscaper.Replace(s) + `"`
}

func renderServiceUnit(o ServiceOptions) string {
	execStart := fmt.Sprintf("%s -config %s -db %s", execArg(o.Binary), execArg(o.ConfigFile), execArg(o.DBPath))

	return fmt.Sprintf(`[Unit]
Description=Classroom monitor hub service
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User=%s
WorkingDirectory=%s
ExecStart=%s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, o.User, strings.ReplaceAll(o.WorkDir, "%", "%%"), execStart)
}

// InstallService writes the systemd unit that runs the hub.
func InstallService(unitPath string, o ServiceOptions) error {
	if o.Binary == "" || o.ConfigFile == "" || o.DBPath == "" {
		return fmt.Errorf("service unit needs binary, config file and database path")
	}
	if err := renameio.WriteFile(unitPath, []byte(renderServiceUnit(o)), 0644); err != nil {
		return fmt.Errorf("write service unit %s: %w", unitPath, err)
	}
	return nil
}
