package startup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/classroom-monitor/internal/config"
)

func TestRenderDeviceHeader_Defaults(t *testing.T) {
	out := string(RenderDeviceHeader(config.Default()))

	for _, line := range []string{
		`#define WIFI_SSID "YOUR_WIFI_SSID"`,
		`#define API_SERVER "http://YOUR_PC_IP:5000/api"`,
		`#define SOUND_SENSOR_PIN 35`,
		`#define DHT_TYPE DHT22`,
		`#define MQ7_RO 10.0`,
		`#define SOUND_CALIBRATION 1.0`,
		`#define TEMP_HIGH_THRESHOLD 28`,
		`#define SAMPLE_INTERVAL 10000`,
		`#define DEBUG_SERIAL 1`,
		`#define ENABLE_CLOUD_SYNC 0`,
		`#define TIMEZONE_OFFSET 5.5`,
		`#define CLASS_START_TIME "08:00"`,
		`#define JSON_BUFFER_SIZE 256`,
	} {
		assert.Contains(t, out, line+"\n")
	}
}

func TestRenderDeviceHeader_QuotesStrings(t *testing.T) {
	cfg := config.Default()
	cfg.Classroom.Name = `Room "B"`

	out := string(RenderDeviceHeader(cfg))
	assert.Contains(t, out, `#define CLASSROOM_NAME "Room \"B\""`)
}

func TestCFloat(t *testing.T) {
	assert.Equal(t, "10.0", cFloat(10))
	assert.Equal(t, "0.85", cFloat(0.85))
	assert.Equal(t, "-2.0", cFloat(-2))
}

func TestWriteDeviceHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.h")

	require.NoError(t, WriteDeviceHeader(path, config.Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, RenderDeviceHeader(config.Default()), data)
}

func TestInstallService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classroom-monitor.service")

	err := InstallService(path, ServiceOptions{
		User:       "monitor",
		WorkDir:    "/opt/classroom",
		Binary:     "/opt/classroom/classroom-monitor",
		ConfigFile: "/etc/classroom/config.yaml",
		DBPath:     "/var/lib/classroom/classroom.db",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	unit := string(data)
	assert.Contains(t, unit, "User=monitor\n")
	assert.Contains(t, unit, `ExecStart="/opt/classroom/classroom-monitor" -config "/etc/classroom/config.yaml" -db "/var/lib/classroom/classroom.db"`+"\n")

	assert.Error(t, InstallService(path, ServiceOptions{User: "monitor"}))
}

func TestInstallService_QuotesExecArguments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classroom-monitor.service")

	err := InstallService(path, ServiceOptions{
		User:       "monitor",
		WorkDir:    "/srv/Room 101",
		Binary:     "/srv/Room 101/classroom-monitor",
		ConfigFile: `/srv/Room 101/50% "final".yaml`,
		DBPath:     "/srv/Room 101/$data.db",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	unit := string(data)
	assert.Contains(t, unit, "WorkingDirectory=/srv/Room 101\n")
	assert.Contains(t, unit, `ExecStart="/srv/Room 101/classroom-monitor" -config "/srv/Room 101/50%% \"final\".yaml" -db "/srv/Room 101/$$data.db"`+"\n")
}
