package config

import (
	"time"

	"github.com/thatsimonsguy/classroom-monitor/internal/board"
)

type SensorType string

const (
	DHT11 SensorType = "DHT11"
	DHT21 SensorType = "DHT21"
	DHT22 SensorType = "DHT22"
)

type NetworkConfig struct {
	SSID         string `json:"ssid" yaml:"ssid"`
	Password     string `json:"password" yaml:"password"`
	APIServerURL string `json:"api_server_url" yaml:"api_server_url"`
	DeviceID     string `json:"device_id" yaml:"device_id"`
}

type PinConfig struct {
	// analog sensors
	SoundSensor board.Pin `json:"sound_sensor" yaml:"sound_sensor"`
	COSensor    board.Pin `json:"co_sensor" yaml:"co_sensor"`

	// digital sensors
	HumidityTemp           board.Pin  `json:"humidity_temp" yaml:"humidity_temp"`
	HumidityTempSensorType SensorType `json:"humidity_temp_sensor_type" yaml:"humidity_temp_sensor_type"`

	// rfid module
	RFIDSelect board.Pin `json:"rfid_select" yaml:"rfid_select"`
	RFIDReset  board.Pin `json:"rfid_reset" yaml:"rfid_reset"`

	// status indicators
	LEDWiFi board.Pin `json:"led_wifi" yaml:"led_wifi"`
	LEDData board.Pin `json:"led_data" yaml:"led_data"`
	Buzzer  board.Pin `json:"buzzer" yaml:"buzzer"`
}

type NamedPin struct {
	Name string
	Pin  board.Pin
}

// Named lists the assigned pins in declaration order.
func (p PinConfig) Named() []NamedPin {
	return []NamedPin{
		{"sound_sensor", p.SoundSensor},
		{"co_sensor", p.COSensor},
		{"humidity_temp", p.HumidityTemp},
		{"rfid_select", p.RFIDSelect},
		{"rfid_reset", p.RFIDReset},
		{"led_wifi", p.LEDWiFi},
		{"led_data", p.LEDData},
		{"buzzer", p.Buzzer},
	}
}

type CalibrationConfig struct {
	SoundThresholdPercent      float64 `json:"sound_threshold_percent" yaml:"sound_threshold_percent"`
	SoundCalibrationMultiplier float64 `json:"sound_calibration_multiplier" yaml:"sound_calibration_multiplier"`
	TempOffset                 float64 `json:"temp_offset" yaml:"temp_offset"`
	HumidityOffset             float64 `json:"humidity_offset" yaml:"humidity_offset"`
	COSensorBaseResistance     float64 `json:"co_sensor_base_resistance" yaml:"co_sensor_base_resistance"` // MQ-7 R0, kOhm
	COCalibrationMultiplier    float64 `json:"co_calibration_multiplier" yaml:"co_calibration_multiplier"`
}

type ThresholdConfig struct {
	TempHigh     float64 `json:"temp_high" yaml:"temp_high"` // °C
	TempLow      float64 `json:"temp_low" yaml:"temp_low"`
	HumidityHigh float64 `json:"humidity_high" yaml:"humidity_high"` // %
	HumidityLow  float64 `json:"humidity_low" yaml:"humidity_low"`
	SoundLevel   float64 `json:"sound_level" yaml:"sound_level"` // %
	COLevel      float64 `json:"co_level" yaml:"co_level"`       // ppm
}

type TimingConfig struct {
	SampleIntervalMs    int `json:"sample_interval_ms" yaml:"sample_interval_ms"`
	WiFiMaxAttempts     int `json:"wifi_max_attempts" yaml:"wifi_max_attempts"`
	WiFiRetryIntervalMs int `json:"wifi_retry_interval_ms" yaml:"wifi_retry_interval_ms"`
	RFIDCardTimeoutMs   int `json:"rfid_card_timeout_ms" yaml:"rfid_card_timeout_ms"`
	WiFiTimeoutSeconds  int `json:"wifi_timeout_seconds" yaml:"wifi_timeout_seconds"`
	APITimeoutMs        int `json:"api_timeout_ms" yaml:"api_timeout_ms"`
	APIRetryAttempts    int `json:"api_retry_attempts" yaml:"api_retry_attempts"`
}

func (t TimingConfig) SampleInterval() time.Duration {
	return time.Duration(t.SampleIntervalMs) * time.Millisecond
}

func (t TimingConfig) WiFiRetryInterval() time.Duration {
	return time.Duration(t.WiFiRetryIntervalMs) * time.Millisecond
}

func (t TimingConfig) RFIDCardTimeout() time.Duration {
	return time.Duration(t.RFIDCardTimeoutMs) * time.Millisecond
}

func (t TimingConfig) WiFiTimeout() time.Duration {
	return time.Duration(t.WiFiTimeoutSeconds) * time.Second
}

func (t TimingConfig) APITimeout() time.Duration {
	return time.Duration(t.APITimeoutMs) * time.Millisecond
}

type FeatureFlags struct {
	EnableSoundSensor   bool `json:"enable_sound_sensor" yaml:"enable_sound_sensor"`
	EnableDHTSensor     bool `json:"enable_dht_sensor" yaml:"enable_dht_sensor"`
	EnableMQ7Sensor     bool `json:"enable_mq7_sensor" yaml:"enable_mq7_sensor"`
	EnableRFIDReader    bool `json:"enable_rfid_reader" yaml:"enable_rfid_reader"`
	EnableLEDIndicators bool `json:"enable_led_indicators" yaml:"enable_led_indicators"`
	EnableBuzzer        bool `json:"enable_buzzer" yaml:"enable_buzzer"`
	EnableEmailAlerts   bool `json:"enable_email_alerts" yaml:"enable_email_alerts"`
	EnableCloudSync     bool `json:"enable_cloud_sync" yaml:"enable_cloud_sync"`
}

type ClassroomConfig struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Capacity  int    `json:"capacity" yaml:"capacity"`
	StartTime string `json:"start_time" yaml:"start_time"` // HH:MM
	EndTime   string `json:"end_time" yaml:"end_time"`
}

type TimezoneConfig struct {
	UTCOffsetHours    float64 `json:"utc_offset_hours" yaml:"utc_offset_hours"`
	UseDaylightSaving bool    `json:"use_daylight_saving" yaml:"use_daylight_saving"`
}

type IntegrationConfig struct {
	AlertEmail         string `json:"alert_email" yaml:"alert_email"`
	CloudServerAddress string `json:"cloud_server_address" yaml:"cloud_server_address"`
}

type DiagnosticsConfig struct {
	DebugSerialEnabled  bool `json:"debug_serial_enabled" yaml:"debug_serial_enabled"`
	SerialBaudRate      int  `json:"serial_baud_rate" yaml:"serial_baud_rate"`
	JSONBufferSizeBytes int  `json:"json_buffer_size_bytes" yaml:"json_buffer_size_bytes"`
}

// Config is the complete device configuration. It is built once at startup by a
// Loader and only read afterwards.
type Config struct {
	Network      NetworkConfig     `json:"network" yaml:"network"`
	Pins         PinConfig         `json:"pins" yaml:"pins"`
	Calibration  CalibrationConfig `json:"calibration" yaml:"calibration"`
	Thresholds   ThresholdConfig   `json:"thresholds" yaml:"thresholds"`
	Timing       TimingConfig      `json:"timing" yaml:"timing"`
	Features     FeatureFlags      `json:"features" yaml:"features"`
	Classroom    ClassroomConfig   `json:"classroom" yaml:"classroom"`
	Timezone     TimezoneConfig    `json:"timezone" yaml:"timezone"`
	Integrations IntegrationConfig `json:"integrations" yaml:"integrations"`
	Diagnostics  DiagnosticsConfig `json:"diagnostics" yaml:"diagnostics"`
}

// Default returns the stock single-classroom configuration. The network values
// are placeholders and are expected to be overridden per deployment.
func Default() Config {
	return Config{
		Network: NetworkConfig{
			SSID:         "YOUR_WIFI_SSID",
			Password:     "YOUR_WIFI_PASSWORD",
			APIServerURL: "http://YOUR_PC_IP:5000/api",
			DeviceID:     "CLASSROOM_01",
		},
		Pins: PinConfig{
			SoundSensor:            35,
			COSensor:               32,
			HumidityTemp:           25,
			HumidityTempSensorType: DHT22,
			RFIDSelect:             5,
			RFIDReset:              27,
			LEDWiFi:                13,
			LEDData:                12,
			Buzzer:                 26,
		},
		Calibration: CalibrationConfig{
			SoundThresholdPercent:      80,
			SoundCalibrationMultiplier: 1.0,
			TempOffset:                 0,
			HumidityOffset:             0,
			COSensorBaseResistance:     10.0,
			COCalibrationMultiplier:    1.0,
		},
		Thresholds: ThresholdConfig{
			TempHigh:     28,
			TempLow:      18,
			HumidityHigh: 70,
			HumidityLow:  30,
			SoundLevel:   80,
			COLevel:      10,
		},
		Timing: TimingConfig{
			SampleIntervalMs:    10000,
			WiFiMaxAttempts:     20,
			WiFiRetryIntervalMs: 5000,
			RFIDCardTimeoutMs:   5000,
			WiFiTimeoutSeconds:  20,
			APITimeoutMs:        5000,
			APIRetryAttempts:    3,
		},
		Features: FeatureFlags{
			EnableSoundSensor:   true,
			EnableDHTSensor:     true,
			EnableMQ7Sensor:     true,
			EnableRFIDReader:    true,
			EnableLEDIndicators: true,
			EnableBuzzer:        true,
			EnableEmailAlerts:   false,
			EnableCloudSync:     false,
		},
		Classroom: ClassroomConfig{
			ID:        "CLASSROOM_01",
			Name:      "Main Classroom",
			Capacity:  30,
			StartTime: "08:00",
			EndTime:   "16:00",
		},
		Timezone: TimezoneConfig{
			UTCOffsetHours:    5.5,
			UseDaylightSaving: false,
		},
		Integrations: IntegrationConfig{
			AlertEmail:         "admin@school.edu",
			CloudServerAddress: "cloud.example.com",
		},
		Diagnostics: DiagnosticsConfig{
			DebugSerialEnabled:  true,
			SerialBaudRate:      115200,
			JSONBufferSizeBytes: 256,
		},
	}
}

// Redacted returns a copy that is safe to log or serve.
func (c Config) Redacted() Config {
	if c.Network.Password != "" {
		c.Network.Password = "********"
	}
	return c
}
