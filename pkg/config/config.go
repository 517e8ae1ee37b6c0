// Package config loads the controller daemon's YAML configuration.
package config

import (
	"os"
	"regexp"
	"time"

	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	TransportHCI   = "hci"
	TransportBlueZ = "bluez"
)

type Config struct {
	Log             LogConfig       `yaml:"log"`
	Transport       TransportConfig `yaml:"transport"`
	Scan            ScanConfig      `yaml:"scan"`
	Light           LightConfig     `yaml:"light"`
	Database        DatabaseConfig  `yaml:"database"`
	MQTT            MQTTConfig      `yaml:"mqtt"`
	WebSocket       WebSocketConfig `yaml:"websocket"`
	ShutdownTimeout Duration        `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors bool   `yaml:"colors"`
}

// TransportConfig selects the BLE stack: raw HCI through go-ble or BlueZ over D-Bus
type TransportConfig struct {
	Kind        string   `yaml:"kind"`
	Adapter     string   `yaml:"adapter"` // BlueZ adapter name, e.g. hci0
	DialTimeout Duration `yaml:"dial_timeout"`
}

type ScanConfig struct {
	Duration    Duration `yaml:"duration"`
	AutoConnect bool     `yaml:"auto_connect"`
}

type LightConfig struct {
	WriteRate float64 `yaml:"write_rate"` // light-state writes per second, 0 = unlimited
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // empty keeps alarms in memory
}

type MQTTConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Broker    string `yaml:"broker"`
	ClientID  string `yaml:"client_id"`
	TopicRoot string `yaml:"topic_root"`
}

type WebSocketConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return Parse(data)
}

// Parse expands ${VAR} and ${VAR:default} references, decodes data and fills in defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default is the configuration used when no file is given
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Transport.Kind == "" {
		cfg.Transport.Kind = TransportHCI
	}
	if cfg.Transport.Adapter == "" {
		cfg.Transport.Adapter = "hci0"
	}
	if cfg.Transport.DialTimeout == 0 {
		cfg.Transport.DialTimeout = Duration(10 * time.Second)
	}
	if cfg.Scan.Duration == 0 {
		cfg.Scan.Duration = Duration(util.ScanDuration)
	}
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://localhost:1883"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "ble-light"
	}
	if cfg.MQTT.TopicRoot == "" {
		cfg.MQTT.TopicRoot = "ble-light"
	}
	if cfg.WebSocket.Listen == "" {
		cfg.WebSocket.Listen = ":8080"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

func (cfg *Config) validate() error {
	switch cfg.Transport.Kind {
	case TransportHCI, TransportBlueZ:
	default:
		return errors.Errorf("unknown transport kind %q", cfg.Transport.Kind)
	}
	if cfg.Light.WriteRate < 0 {
		return errors.Errorf("light.write_rate must not be negative, got %v", cfg.Light.WriteRate)
	}
	return nil
}

var envVar = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envVar.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVar.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})
}
