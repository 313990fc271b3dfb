package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/thatsimonsguy/classroom-monitor/internal/board"
)

// EnvConfigFile names the config file read by Load.
const EnvConfigFile = "CLASSROOM_CONFIG_FILE"

type envOverride struct {
	key   string
	field string
	apply func(cfg *Config, value string) error
}

// Credentials and per-deployment identity come from the environment so they
// never have to be committed in a config file.
var envOverrides = []envOverride{
	{"CLASSROOM_WIFI_SSID", "network.ssid", setString(func(c *Config) *string { return &c.Network.SSID })},
	{"CLASSROOM_WIFI_PASSWORD", "network.password", setString(func(c *Config) *string { return &c.Network.Password })},
	{"CLASSROOM_API_SERVER", "network.api_server_url", setString(func(c *Config) *string { return &c.Network.APIServerURL })},
	{"CLASSROOM_DEVICE_ID", "network.device_id", setString(func(c *Config) *string { return &c.Network.DeviceID })},
	{"CLASSROOM_ID", "classroom.id", setString(func(c *Config) *string { return &c.Classroom.ID })},
	{"CLASSROOM_ALERT_EMAIL", "integrations.alert_email", setString(func(c *Config) *string { return &c.Integrations.AlertEmail })},
	{"CLASSROOM_CLOUD_SERVER", "integrations.cloud_server_address", setString(func(c *Config) *string { return &c.Integrations.CloudServerAddress })},
	{"CLASSROOM_ENABLE_EMAIL_ALERTS", "features.enable_email_alerts", setBool(func(c *Config) *bool { return &c.Features.EnableEmailAlerts })},
	{"CLASSROOM_ENABLE_CLOUD_SYNC", "features.enable_cloud_sync", setBool(func(c *Config) *bool { return &c.Features.EnableCloudSync })},
	{"CLASSROOM_SAMPLE_INTERVAL_MS", "timing.sample_interval_ms", setInt(func(c *Config) *int { return &c.Timing.SampleIntervalMs })},
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setBool(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("expected a boolean, got %q", v)
		}
		*field(c) = b
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("expected an integer, got %q", v)
		}
		*field(c) = i
		return nil
	}
}

// Loader builds a Config with precedence: environment > file > defaults.
type Loader struct {
	path   string
	lookup func(string) (string, bool)
}

// NewLoader returns a loader for path. An empty path loads defaults plus
// environment overrides only.
func NewLoader(path string) *Loader {
	return &Loader{path: path, lookup: os.LookupEnv}
}

// WithLookup replaces the environment lookup, mostly for tests.
func (l *Loader) WithLookup(lookup func(string) (string, bool)) *Loader {
	l.lookup = lookup
	return l
}

// Load reads the file named by CLASSROOM_CONFIG_FILE.
func Load() (Config, error) {
	return NewLoader(os.Getenv(EnvConfigFile)).Load()
}

func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if l.path != "" {
		format, err := FormatFromPath(l.path)
		if err != nil {
			return Config{}, err
		}
		data, err := os.ReadFile(l.path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decodeInto(&cfg, data, format); err != nil {
			return Config{}, err
		}
	}

	v := &collector{}
	l.applyEnv(&cfg, v)
	v.merge(cfg.Validate())

	if err := v.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (l *Loader) applyEnv(cfg *Config, v *collector) {
	for _, o := range envOverrides {
		value, ok := l.lookup(o.key)
		if !ok || value == "" {
			continue
		}
		if err := o.apply(cfg, value); err != nil {
			v.add(RuleFormat, value, fmt.Sprintf("%s: %v", o.key, err), o.field)
		}
	}
}

var placeholders = []string{"YOUR_WIFI_SSID", "YOUR_WIFI_PASSWORD", "YOUR_PC_IP"}

// Warnings lists settings that are valid but probably not what an operator
// wants in production.
func (c *Config) Warnings() []string {
	var warnings []string

	for _, p := range placeholders {
		if strings.Contains(c.Network.SSID, p) || strings.Contains(c.Network.Password, p) || strings.Contains(c.Network.APIServerURL, p) {
			warnings = append(warnings, fmt.Sprintf("network settings still contain placeholder %s", p))
		}
	}

	for _, np := range c.Pins.Named() {
		if board.ESP32.IsStrapping(np.Pin) {
			warnings = append(warnings, fmt.Sprintf("pins.%s uses strapping pin GPIO%d; check boot behaviour", np.Name, np.Pin))
		}
	}

	if c.Network.DeviceID != c.Classroom.ID {
		warnings = append(warnings, fmt.Sprintf("device_id %q differs from classroom.id %q; confirm this is intended", c.Network.DeviceID, c.Classroom.ID))
	}

	if c.Features.EnableEmailAlerts {
		warnings = append(warnings, "enable_email_alerts is set but no mail transport is built in")
	}

	return warnings
}
