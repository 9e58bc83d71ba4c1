package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/drone-detector/internal/acquisition"
	"github.com/roman-kulish/drone-detector/internal/alert"
	"github.com/roman-kulish/drone-detector/internal/detector"
)

const (
	SourceSerial   SourceType = "serial"
	SourceSimulate SourceType = "simulate"

	LogFormatText   LogFormat = "text"
	LogFormatJSON   LogFormat = "json"
	LogFormatPretty LogFormat = "pretty"

	// StoreDetections persists only frames that contain a candidate
	StoreDetections StorageMode = "detections"
	StoreAll        StorageMode = "all"

	DefaultRefreshInterval = 50 * time.Millisecond
	DefaultNumChannels     = 40
)

var (
	validSourceTypes = map[SourceType]struct{}{
		SourceSerial:   {},
		SourceSimulate: {},
	}

	validLogFormats = map[LogFormat]struct{}{
		LogFormatText:   {},
		LogFormatJSON:   {},
		LogFormatPretty: {},
	}

	validStorageModes = map[StorageMode]struct{}{
		StoreDetections: {},
		StoreAll:        {},
	}
)

type SourceType string

type LogFormat string

type StorageMode string

// Duration is a time.Duration expressed in configuration as a string, e.g. "50ms"
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(bytes []byte) error {
	var v string
	if err := json.Unmarshal(bytes, &v); err != nil {
		return err
	}

	duration, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("app.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config represents the main application configuration
type Config struct {
	Settings Settings        `yaml:"settings" json:"settings"`
	Source   SourceConfig    `yaml:"source" json:"source"`
	Radios   []RadioConfig   `yaml:"radios" json:"radios"`
	Detector detector.Params `yaml:"detector" json:"detector"`
	Storage  StorageConfig   `yaml:"storage" json:"storage"`
	Web      WebConfig       `yaml:"web" json:"web"`
	MQTT     MQTTConfig      `yaml:"mqtt" json:"mqtt"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel        string    `yaml:"logLevel" json:"logLevel"`
	LogFormat       LogFormat `yaml:"logFormat" json:"logFormat"`
	RefreshInterval Duration  `yaml:"refreshInterval" json:"refreshInterval"`
}

// Level parses LogLevel, e.g. "debug" or "INFO"
func (s Settings) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}
	return level, nil
}

// SourceConfig selects where scanner lines come from
type SourceConfig struct {
	Type                 SourceType `yaml:"type" json:"type"`
	Port                 string     `yaml:"port" json:"port"`
	BaudRate             int        `yaml:"baudRate" json:"baudRate"`
	DataBits             int        `yaml:"dataBits" json:"dataBits"`
	StopBits             int        `yaml:"stopBits" json:"stopBits"`
	Parity               string     `yaml:"parity" json:"parity"`
	ReadTimeout          Duration   `yaml:"readTimeout" json:"readTimeout"`
	ParseErrorsThreshold uint       `yaml:"parseErrorsThreshold" json:"parseErrorsThreshold"`
	SimulatorInterval    Duration   `yaml:"simulatorInterval" json:"simulatorInterval"`
	Seed                 uint64     `yaml:"seed" json:"seed,omitempty"`
}

// PortOptions returns the serial settings of the source
func (s SourceConfig) PortOptions() acquisition.PortOptions {
	return acquisition.PortOptions{
		BaudRate:    s.BaudRate,
		DataBits:    s.DataBits,
		StopBits:    s.StopBits,
		Parity:      s.Parity,
		ReadTimeout: s.ReadTimeout.Duration(),
	}
}

// RadioConfig represents a single receiver of the scanner
type RadioConfig struct {
	Name         string `yaml:"name" json:"name"`
	Label        string `yaml:"label" json:"label"`
	NumChannels  int    `yaml:"numChannels" json:"numChannels"`
	FirstChannel int    `yaml:"firstChannel" json:"firstChannel"`
	Color        string `yaml:"color" json:"color"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	Enabled       bool        `yaml:"enabled" json:"enabled"`
	DataDirectory string      `yaml:"dataDirectory" json:"dataDirectory"`
	Mode          StorageMode `yaml:"mode" json:"mode"`
}

// WebConfig represents the live view settings
type WebConfig struct {
	Enabled         bool     `yaml:"enabled" json:"enabled"`
	Listen          string   `yaml:"listen" json:"listen"`
	RefreshInterval Duration `yaml:"refreshInterval" json:"refreshInterval"`
	YAxisMax        int      `yaml:"yAxisMax" json:"yAxisMax"`
}

// MQTTConfig represents alert publishing settings
type MQTTConfig struct {
	Enabled          bool `yaml:"enabled" json:"enabled"`
	ClearAlerts      bool `yaml:"clearAlerts" json:"clearAlerts"`
	alert.MQTTConfig `yaml:",inline" json:"-"`
}

// NewConfig returns the configuration used for any value a file leaves out
func NewConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel:        "info",
			LogFormat:       LogFormatText,
			RefreshInterval: Duration(DefaultRefreshInterval),
		},
		Source: SourceConfig{
			Type:                 SourceSerial,
			Port:                 acquisition.DefaultPort,
			BaudRate:             acquisition.DefaultBaudRate,
			DataBits:             8,
			StopBits:             1,
			Parity:               "N",
			ReadTimeout:          Duration(acquisition.DefaultReadTimeout),
			ParseErrorsThreshold: acquisition.ParseErrorsThreshold,
			SimulatorInterval:    Duration(acquisition.DefaultSimulatorInterval),
		},
		Radios: []RadioConfig{
			{Name: "left", Label: acquisition.LabelLeft, NumChannels: DefaultNumChannels, FirstChannel: 0, Color: "cyan"},
			{Name: "right", Label: acquisition.LabelRight, NumChannels: DefaultNumChannels, FirstChannel: DefaultNumChannels, Color: "magenta"},
		},
		Detector: detector.DefaultParams(),
		Storage: StorageConfig{
			DataDirectory: "data",
			Mode:          StoreDetections,
		},
		Web: WebConfig{
			Enabled:         true,
			Listen:          ":8080",
			RefreshInterval: Duration(500 * time.Millisecond),
			YAxisMax:        15,
		},
		MQTT: MQTTConfig{
			MQTTConfig: alert.MQTTConfig{
				Topic: alert.DefaultTopic,
				QoS:   1,
			},
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults and validates the result
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	c := NewConfig()
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err = c.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return c, nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Settings.Level(); err != nil {
		errs = append(errs, err)
	}
	if _, ok := validLogFormats[c.Settings.LogFormat]; !ok {
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Settings.LogFormat))
	}
	if c.Settings.RefreshInterval <= 0 {
		errs = append(errs, errors.New("refresh interval must be positive"))
	}

	if _, ok := validSourceTypes[c.Source.Type]; !ok {
		errs = append(errs, fmt.Errorf("invalid source type %q", c.Source.Type))
	}
	if c.Source.Type == SourceSerial {
		if strings.TrimSpace(c.Source.Port) == "" {
			errs = append(errs, errors.New("serial port is required"))
		}
		if _, err := c.Source.PortOptions().Normalize(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Source.Type == SourceSimulate && c.Source.SimulatorInterval <= 0 {
		errs = append(errs, errors.New("simulator interval must be positive"))
	}

	if len(c.Radios) == 0 {
		errs = append(errs, errors.New("at least one radio is required"))
	}
	names := make(map[string]struct{}, len(c.Radios))
	labels := make(map[string]struct{}, len(c.Radios))
	for i, r := range c.Radios {
		switch {
		case r.Name == "" || r.Label == "":
			errs = append(errs, fmt.Errorf("radio %d: name and label are required", i))
		case r.NumChannels <= 0:
			errs = append(errs, fmt.Errorf("radio %s: numChannels must be positive", r.Name))
		case r.FirstChannel < 0:
			errs = append(errs, fmt.Errorf("radio %s: firstChannel must not be negative", r.Name))
		}
		if _, ok := names[r.Name]; ok {
			errs = append(errs, fmt.Errorf("radio %s: duplicate name", r.Name))
		}
		if _, ok := labels[r.Label]; ok {
			errs = append(errs, fmt.Errorf("radio %s: duplicate label %s", r.Name, r.Label))
		}
		names[r.Name] = struct{}{}
		labels[r.Label] = struct{}{}
	}

	if err := c.Detector.Validate(); err != nil {
		errs = append(errs, err)
	}

	if _, ok := validStorageModes[c.Storage.Mode]; c.Storage.Enabled && !ok {
		errs = append(errs, fmt.Errorf("invalid storage mode %q", c.Storage.Mode))
	}

	if c.Web.Enabled {
		if c.Web.Listen == "" {
			errs = append(errs, errors.New("web listen address is required"))
		}
		if c.Web.RefreshInterval <= 0 {
			errs = append(errs, errors.New("web refresh interval must be positive"))
		}
		if c.Web.YAxisMax <= 0 {
			errs = append(errs, errors.New("web yAxisMax must be positive"))
		}
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, errors.New("mqtt broker is required"))
		}
		if c.MQTT.QoS > 2 {
			errs = append(errs, fmt.Errorf("invalid mqtt qos %d", c.MQTT.QoS))
		}
	}

	return errors.Join(errs...)
}
