package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that locate configuration inputs.
const (
	// EnvConfigPath names the YAML file to load.
	EnvConfigPath = "MOODCAST_CONFIG"

	// EnvFile names an optional dotenv file loaded before overrides.
	EnvFile = "MOODCAST_ENV_FILE"

	// DefaultConfigPath is used when EnvConfigPath is unset.
	DefaultConfigPath = "configs/config.yaml"

	// DefaultEnvFile is used when EnvFile is unset.
	DefaultEnvFile = ".env"
)

// Config is the root configuration shared by the gateway and the station.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Logging  LoggingConfig  `yaml:"logging"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Weather  WeatherConfig  `yaml:"weather"`
	History  HistoryConfig  `yaml:"history"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Station  StationConfig  `yaml:"station"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// GatewayConfig contains request handling settings for the gateway.
type GatewayConfig struct {
	// MoodFile is the MoodStore's backing file.
	MoodFile string `yaml:"mood_file"`

	// RequestTopic is where stations publish requests.
	RequestTopic string `yaml:"request_topic"`

	// UpstreamTimeout bounds a single weather lookup.
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
}

// WeatherConfig contains upstream weather service settings.
type WeatherConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Units   string `yaml:"units"`

	// RateLimit is requests per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// HistoryConfig contains the SQLite lookup history settings.
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the gateway status API settings.
type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Host      string             `yaml:"host"`
	Port      int                `yaml:"port"`
	Timeouts  APITimeoutConfig   `yaml:"timeouts"`
	WebSocket APIWebSocketConfig `yaml:"websocket"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// APIWebSocketConfig contains settings for the live event feed.
type APIWebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"` // seconds
	PongTimeout    int `yaml:"pong_timeout"`  // seconds
}

// StationConfig contains display station settings.
type StationConfig struct {
	// ClientID overrides mqtt.broker.client_id for the station process.
	ClientID string `yaml:"client_id"`

	// ReplyTimeout is how long the station waits for a reply.
	ReplyTimeout time.Duration `yaml:"reply_timeout"`

	// PollInterval is the granularity of the reply wait loop.
	PollInterval time.Duration `yaml:"poll_interval"`

	// DisplayWidth is the text renderer's line width in characters.
	DisplayWidth int `yaml:"display_width"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Dotenv file, if present (never overrides variables already set)
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: MOODCAST_SECTION_KEY
// For example: MOODCAST_MQTT_HOST, MOODCAST_WEATHER_API_KEY
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Path returns the config file path from MOODCAST_CONFIG, or the default.
func Path() string {
	if v := os.Getenv(EnvConfigPath); v != "" {
		return v
	}
	return DefaultConfigPath
}

// loadEnvFile loads the dotenv file named by MOODCAST_ENV_FILE. A missing
// file is not an error.
func loadEnvFile() error {
	path := os.Getenv(EnvFile)
	if path == "" {
		path = DefaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "moodcast-gateway",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Gateway: GatewayConfig{
			MoodFile:        "./data/moods.txt",
			RequestTopic:    "requests",
			UpstreamTimeout: 5 * time.Second,
		},
		Weather: WeatherConfig{
			BaseURL:   "http://api.openweathermap.org/data/2.5/weather",
			Units:     "metric",
			RateLimit: 1,
			Burst:     5,
		},
		History: HistoryConfig{
			Enabled:     true,
			Path:        "./data/moodcast.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			WebSocket: APIWebSocketConfig{
				MaxMessageSize: 4096,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Station: StationConfig{
			ClientID:     "moodcast-station",
			ReplyTimeout: 3000 * time.Millisecond,
			PollInterval: 50 * time.Millisecond,
			DisplayWidth: 20,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MOODCAST_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// MQTT
	if v := os.Getenv("MOODCAST_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MOODCAST_MQTT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MOODCAST_MQTT_PORT: %w", err)
		}
		cfg.MQTT.Broker.Port = port
	}
	if v := os.Getenv("MOODCAST_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.Broker.ClientID = v
	}
	if v := os.Getenv("MOODCAST_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MOODCAST_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Logging
	if v := os.Getenv("MOODCAST_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Gateway
	if v := os.Getenv("MOODCAST_GATEWAY_MOOD_FILE"); v != "" {
		cfg.Gateway.MoodFile = v
	}

	// Weather - keep the API key out of the YAML
	if v := os.Getenv("MOODCAST_WEATHER_API_KEY"); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv("MOODCAST_WEATHER_BASE_URL"); v != "" {
		cfg.Weather.BaseURL = v
	}

	// History
	if v := os.Getenv("MOODCAST_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}

	// InfluxDB
	if v := os.Getenv("MOODCAST_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// API
	if v := os.Getenv("MOODCAST_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("MOODCAST_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MOODCAST_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}

	// Station
	if v := os.Getenv("MOODCAST_STATION_CLIENT_ID"); v != "" {
		cfg.Station.ClientID = v
	}

	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Gateway validation
	if c.Gateway.MoodFile == "" {
		errs = append(errs, "gateway.mood_file is required")
	}
	if c.Gateway.RequestTopic == "" || strings.ContainsAny(c.Gateway.RequestTopic, "+#") {
		errs = append(errs, "gateway.request_topic must be a non-empty topic without wildcards")
	}
	if c.Gateway.UpstreamTimeout <= 0 {
		errs = append(errs, "gateway.upstream_timeout must be positive")
	}

	// Weather validation
	if c.Weather.BaseURL == "" {
		errs = append(errs, "weather.base_url is required")
	}
	if c.Weather.RateLimit < 0 {
		errs = append(errs, "weather.rate_limit must not be negative")
	}

	// History validation
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path is required when history is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.Enabled && (c.API.WebSocket.PingInterval <= 0 || c.API.WebSocket.PongTimeout <= 0) {
		errs = append(errs, "api.websocket.ping_interval and pong_timeout must be positive")
	}

	// Station validation
	if c.Station.ReplyTimeout <= 0 {
		errs = append(errs, "station.reply_timeout must be positive")
	}
	if c.Station.PollInterval <= 0 || c.Station.PollInterval > c.Station.ReplyTimeout {
		errs = append(errs, "station.poll_interval must be positive and no longer than station.reply_timeout")
	}
	if c.Station.DisplayWidth < 8 {
		errs = append(errs, "station.display_width must be at least 8")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
