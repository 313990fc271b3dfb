package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_WriteDefaultsThenValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classroom.yaml")

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"-write-defaults", path}, &stdout, &stderr))
	assert.FileExists(t, path)

	stdout.Reset()
	stderr.Reset()
	require.Equal(t, 0, run([]string{"-config", path}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "Configuration is valid")
	assert.Contains(t, stderr.String(), "warning: network settings still contain placeholder")
}

func TestRun_InvalidConfigListsEveryViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"thresholds": {"temp_high": 18, "temp_low": 28},
		"pins": {"co_sensor": 32, "buzzer": 32}
	}`), 0o644))

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"-config", path}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Configuration is invalid")
	assert.Contains(t, stderr.String(), "thresholds.temp_high")
	assert.Contains(t, stderr.String(), "pins.buzzer")
}

func TestRun_DumpRedacted(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"-config", "", "-dump", "json"}, &stdout, &stderr))

	assert.Contains(t, stdout.String(), `"password": "********"`)
	assert.NotContains(t, stdout.String(), "YOUR_WIFI_PASSWORD")
}

func TestRun_DumpUnknownFormat(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"-config", "", "-dump", "toml"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "unsupported config format")
}

func TestRun_HeaderAndServiceUnit(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "config.h")
	unit := filepath.Join(dir, "classroom-monitor.service")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", "", "-header", header, "-service-unit", unit}, &stdout, &stderr)
	require.Equal(t, 1, code, "service unit needs a config file")
	assert.FileExists(t, header)

	cfgPath := filepath.Join(dir, "classroom.json")
	require.Equal(t, 0, run([]string{"-write-defaults", cfgPath}, &stdout, &stderr))
	require.Equal(t, 0, run([]string{"-config", cfgPath, "-service-unit", unit}, &stdout, &stderr), stderr.String())

	data, err := os.ReadFile(unit)
	require.NoError(t, err)
	assert.Contains(t, string(data), `-config "`+cfgPath+`"`)
}
