package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "debug: false\n")

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "EcoCarto", settings.Main.Name)
	assert.InDelta(t, DefaultLatitude, settings.Map.Latitude, 1e-9)
	assert.InDelta(t, DefaultLongitude, settings.Map.Longitude, 1e-9)
	assert.Equal(t, DefaultZoom, settings.Map.Zoom)
	assert.Equal(t, 2015, settings.History.StartYear)
	assert.Equal(t, 2024, settings.History.EndYear)
	assert.Equal(t, 5, settings.Geocoding.SuggestionLimit)
	assert.Equal(t, 3, settings.Geocoding.MinQueryLength)
	assert.Equal(t, 300*time.Millisecond, settings.Geocoding.Debounce)
	assert.Equal(t, DefaultWAQIURL, settings.AirQuality.BaseURL)
	assert.Equal(t, "sqlite", settings.Datastore.Type)
	assert.Equal(t, "0.0.0.0:8080", settings.Server.Address())
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.Equal(t, path, ConfigFileUsed())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
airquality:
  token: filetoken
  timeout: 3s
map:
  latitude: 51.5074
  longitude: -0.1278
  name: London
server:
  port: "9090"
mqtt:
  enabled: true
  broker: tcp://broker:1883
  topic: eco
`)

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "filetoken", settings.AirQuality.Token)
	assert.Equal(t, 3*time.Second, settings.AirQuality.Timeout)
	assert.Equal(t, "London", settings.Map.Name)
	assert.Equal(t, "9090", settings.Server.Port)
	assert.True(t, settings.MQTT.Enabled)
	assert.Equal(t, "eco", settings.MQTT.Topic)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "airquality:\n  token: filetoken\n")
	t.Setenv("ECOCARTO_AQICN_TOKEN", "envtoken")
	t.Setenv("ECOCARTO_SERVER_PORT", "7070")

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "envtoken", settings.AirQuality.Token)
	assert.Equal(t, "7070", settings.Server.Port)
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	path := writeConfig(t, "debug: true\n")
	t.Setenv("ECOCARTO_SERVER_PORT", "not-a-port")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ECOCARTO_SERVER_PORT")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	path := writeConfig(t, "history:\n  startyear: 2030\n  endyear: 2020\n")

	_, err := Load(path)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Errors, 1)
	assert.Contains(t, ve.Errors[0], "history.startyear")
}

func TestDumpMasksSecrets(t *testing.T) {
	s := defaultSettings()
	s.AirQuality.Token = "abc123"
	s.MQTT.Password = "hunter2"

	out, err := Dump(s)
	require.NoError(t, err)

	text := string(out)
	assert.NotContains(t, text, "abc123")
	assert.NotContains(t, text, "hunter2")
	assert.Contains(t, text, "********")

	var round map[string]any
	require.NoError(t, yaml.Unmarshal(out, &round))
	assert.Contains(t, round, "airquality")
	assert.Equal(t, "abc123", s.AirQuality.Token, "original settings must be untouched")
}

func TestGetDefaultConfigPaths(t *testing.T) {
	paths, err := GetDefaultConfigPaths()
	require.NoError(t, err)
	require.NotEmpty(t, paths)
}
