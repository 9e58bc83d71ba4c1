package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/drone-detector/internal/detector"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
settings:
  logLevel: debug
  logFormat: json
  refreshInterval: 100ms
source:
  type: serial
  port: /dev/ttyUSB0
  parseErrorsThreshold: 10
radios:
  - name: left
    label: DATA_LEFT
    numChannels: 40
  - name: right
    label: DATA_RIGHT
    numChannels: 40
    firstChannel: 40
detector:
  sensitivity: 3.5
storage:
  enabled: true
  mode: all
mqtt:
  enabled: true
  broker: tcp://localhost:1883
  topic: site/alerts
`)

	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, LogFormatJSON, c.Settings.LogFormat)
	assert.Equal(t, 100*time.Millisecond, c.Settings.RefreshInterval.Duration())
	assert.Equal(t, "/dev/ttyUSB0", c.Source.Port)
	assert.Equal(t, 115200, c.Source.BaudRate, "defaults survive a partial section")
	assert.Equal(t, uint(10), c.Source.ParseErrorsThreshold)
	require.Len(t, c.Radios, 2)
	assert.Equal(t, 40, c.Radios[1].FirstChannel)
	assert.Equal(t, detector.Params{Sensitivity: 3.5, WindowRadius: 2, WidthLimit: 5, MarginBelowThreshold: 2}, c.Detector)
	assert.Equal(t, StoreAll, c.Storage.Mode)
	assert.Equal(t, "data", c.Storage.DataDirectory)
	assert.Equal(t, "tcp://localhost:1883", c.MQTT.Broker)
	assert.Equal(t, "site/alerts", c.MQTT.Topic)
	assert.Equal(t, byte(1), c.MQTT.QoS)

	level, err := c.Settings.Level()
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", level.String())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "settings: [broken"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "settings:\n  refreshInterval: soon\n"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(c *Config)
	}{
		{"missing port", func(c *Config) { c.Source.Port = " " }},
		{"bad log level", func(c *Config) { c.Source.Type = SourceSimulate; c.Settings.LogLevel = "loud" }},
		{"bad log format", func(c *Config) { c.Source.Type = SourceSimulate; c.Settings.LogFormat = "xml" }},
		{"bad source", func(c *Config) { c.Source.Type = "usb" }},
		{"bad parity", func(c *Config) { c.Source.Port = "/dev/ttyUSB0"; c.Source.Parity = "mark" }},
		{"no radios", func(c *Config) { c.Source.Type = SourceSimulate; c.Radios = nil }},
		{"duplicate label", func(c *Config) { c.Source.Type = SourceSimulate; c.Radios[1].Label = c.Radios[0].Label }},
		{"zero channels", func(c *Config) { c.Source.Type = SourceSimulate; c.Radios[0].NumChannels = 0 }},
		{"bad detector", func(c *Config) { c.Source.Type = SourceSimulate; c.Detector.WidthLimit = 0 }},
		{"bad storage mode", func(c *Config) { c.Source.Type = SourceSimulate; c.Storage.Enabled = true; c.Storage.Mode = "some" }},
		{"mqtt without broker", func(c *Config) { c.Source.Type = SourceSimulate; c.MQTT.Enabled = true }},
		{"zero refresh", func(c *Config) { c.Source.Type = SourceSimulate; c.Settings.RefreshInterval = 0 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewConfig()
			tc.modify(c)
			assert.Error(t, c.Validate())
		})
	}

	c := NewConfig()
	assert.Equal(t, "/dev/ttyUSB0", c.Source.Port)
	assert.NoError(t, c.Validate(), "defaults are valid without a config file")

	c.Source.Type = SourceSimulate
	assert.NoError(t, c.Validate())
}

func TestDuration_JSON(t *testing.T) {
	p, err := json.Marshal(Duration(1500 * time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(p))

	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"250ms"`), &d))
	assert.Equal(t, 250*time.Millisecond, d.Duration())

	assert.Error(t, json.Unmarshal([]byte(`"later"`), &d))
}

func TestLoadConfig_Example(t *testing.T) {
	c, err := LoadConfig(filepath.Join("..", "..", "..", "config.example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, SourceSerial, c.Source.Type)
	assert.Equal(t, uint(10), c.Source.ParseErrorsThreshold)
	require.Len(t, c.Radios, 2)
	assert.Equal(t, 40, c.Radios[1].FirstChannel)
	assert.Equal(t, detector.DefaultParams(), c.Detector)
	assert.False(t, c.MQTT.Enabled)
}
