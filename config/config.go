// Package config loads and validates the pipeline configuration from
// layered JSON files with environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backend constants
const (
	StorageModeMemory    = "memory"    // In-memory only, for tests and dev
	StorageModeJetStream = "jetstream" // NATS JetStream streams and KV buckets
)

// Config represents the complete application configuration
type Config struct {
	MQTT      MQTTConfig      `json:"mqtt"`
	NATS      NATSConfig      `json:"nats"`
	HTTP      HTTPConfig      `json:"http"`
	Websocket WebsocketConfig `json:"websocket"`
	Metrics   MetricsConfig   `json:"metrics"`
	Health    HealthConfig    `json:"health"`
	Storage   StorageConfig   `json:"storage"`
}

// MQTTConfig defines the device bus connection settings
type MQTTConfig struct {
	URL            string        `json:"url"`
	ClientID       string        `json:"client_id,omitempty"`
	Username       string        `json:"username,omitempty"`
	Password       string        `json:"password,omitempty"`
	ConnectTimeout time.Duration `json:"connect_timeout,omitempty"`
	ReconnectWait  time.Duration `json:"reconnect_wait,omitempty"`
	KeepAlive      time.Duration `json:"keep_alive,omitempty"`
}

// NATSConfig defines the internal backbone connection settings
type NATSConfig struct {
	URLs          []string      `json:"urls,omitempty"`
	Name          string        `json:"name,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
}

// HTTPConfig defines the operator API settings
type HTTPConfig struct {
	Port        int      `json:"port"`
	CORSOrigins []string `json:"cors_origins,omitempty"`
}

// WebsocketConfig defines the realtime fan-out settings
type WebsocketConfig struct {
	Port int    `json:"port"`
	Path string `json:"path,omitempty"`
}

// MetricsConfig defines the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// HealthConfig defines the periodic health checker settings
type HealthConfig struct {
	CheckInterval time.Duration `json:"check_interval,omitempty"`
}

// StorageConfig selects and tunes the persistence backend
type StorageConfig struct {
	Backend       string        `json:"backend"`
	MaxReadingAge time.Duration `json:"max_reading_age,omitempty"`
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.MQTT.URL == "" {
		return errors.New("mqtt.url is required")
	}
	if len(c.NATS.URLs) == 0 {
		return errors.New("nats.urls is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d is out of range", c.HTTP.Port)
	}
	if c.Websocket.Port <= 0 || c.Websocket.Port > 65535 {
		return fmt.Errorf("websocket.port %d is out of range", c.Websocket.Port)
	}
	if c.HTTP.Port == c.Websocket.Port {
		return fmt.Errorf("http.port and websocket.port both set to %d", c.HTTP.Port)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port %d is out of range", c.Metrics.Port)
	}
	switch c.Storage.Backend {
	case StorageModeMemory, StorageModeJetStream:
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
	return nil
}

// String returns a JSON representation of the config with credentials
// blanked.
func (c *Config) String() string {
	clone := *c
	if clone.MQTT.Password != "" {
		clone.MQTT.Password = "[REDACTED]"
	}
	if clone.NATS.Password != "" {
		clone.NATS.Password = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(&clone, "", "  ")
	return string(data)
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: true,
		envPrefix:  "HVACSTREAM",
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()

	for _, path := range l.layers {
		rawConfig, err := l.loadRawJSON(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		cfg = l.mergeFromMap(cfg, rawConfig)
	}

	l.applyEnvOverrides(cfg)

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		MQTT: MQTTConfig{
			URL:            "tcp://localhost:1883",
			ClientID:       "hvacstream",
			ConnectTimeout: 10 * time.Second,
			ReconnectWait:  2 * time.Second,
			KeepAlive:      30 * time.Second,
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			Name:          "hvacstream",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		HTTP: HTTPConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Websocket: WebsocketConfig{
			Port: 8081,
			Path: "/ws",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Health: HealthConfig{
			CheckInterval: 15 * time.Second,
		},
		Storage: StorageConfig{
			Backend:       StorageModeJetStream,
			MaxReadingAge: 7 * 24 * time.Hour,
		},
	}
}

// loadRawJSON loads configuration from a JSON file as a map
func (l *Loader) loadRawJSON(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return nil, err
	}

	l.parseDurations(rawConfig)

	return rawConfig, nil
}

// durationKeys lists nested duration fields that files may express as
// strings like "30s" or "7d".
var durationKeys = [][2]string{
	{"mqtt", "connect_timeout"},
	{"mqtt", "reconnect_wait"},
	{"mqtt", "keep_alive"},
	{"nats", "reconnect_wait"},
	{"health", "check_interval"},
	{"storage", "max_reading_age"},
}

// parseDurations converts duration strings to nanoseconds for json
// unmarshaling
func (l *Loader) parseDurations(data map[string]any) {
	for _, key := range durationKeys {
		section, ok := data[key[0]].(map[string]any)
		if !ok {
			continue
		}
		raw, ok := section[key[1]].(string)
		if !ok {
			continue
		}
		if d, err := parseDurationWithDays(raw); err == nil {
			section[key[1]] = d.Nanoseconds()
		}
	}
}

// parseDurationWithDays parses durations that may include days (e.g., "7d")
func parseDurationWithDays(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days := strings.TrimSuffix(s, "d")
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// mergeFromMap merges configuration from a raw map, only overriding
// fields present in the map
func (l *Loader) mergeFromMap(base *Config, override map[string]any) *Config {
	if override == nil {
		return base
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return base
	}

	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return base
	}

	mergedMap := deepMergeMaps(baseMap, override)

	mergedJSON, err := json.Marshal(mergedMap)
	if err != nil {
		return base
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return base
	}

	return &merged
}

// deepMergeMaps recursively merges two maps, with override taking
// precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any)

	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		if baseMap, baseOk := base[k].(map[string]any); baseOk {
			if overrideMap, overrideOk := v.(map[string]any); overrideOk {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		result[k] = v
	}

	return result
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(l.envPrefix + "_MQTT_URL"); val != "" {
		cfg.MQTT.URL = val
	}
	if val := os.Getenv(l.envPrefix + "_MQTT_CLIENT_ID"); val != "" {
		cfg.MQTT.ClientID = val
	}
	if val := os.Getenv(l.envPrefix + "_MQTT_USERNAME"); val != "" {
		cfg.MQTT.Username = val
	}
	if val := os.Getenv(l.envPrefix + "_MQTT_PASSWORD"); val != "" {
		cfg.MQTT.Password = val
	}

	if val := os.Getenv(l.envPrefix + "_NATS_URLS"); val != "" {
		cfg.NATS.URLs = strings.Split(val, ",")
	}
	if val := os.Getenv(l.envPrefix + "_NATS_USERNAME"); val != "" {
		cfg.NATS.Username = val
	}
	if val := os.Getenv(l.envPrefix + "_NATS_PASSWORD"); val != "" {
		cfg.NATS.Password = val
	}

	if val := os.Getenv(l.envPrefix + "_HTTP_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.HTTP.Port = port
		}
	}
	if val := os.Getenv(l.envPrefix + "_WEBSOCKET_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Websocket.Port = port
		}
	}
	if val := os.Getenv(l.envPrefix + "_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Metrics.Port = port
		}
	}

	if val := os.Getenv(l.envPrefix + "_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
}
