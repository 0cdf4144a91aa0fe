package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Polling  PollingConfig  `toml:"polling"`
	Toast    ToastConfig    `toml:"toast"`
	Actions  ActionsConfig  `toml:"actions"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Mock     MockConfig     `toml:"mock"`
}

// ServerConfig points the client at the remote dashboard.
type ServerConfig struct {
	BaseURL   string `toml:"base_url"`
	TimeoutMS int    `toml:"timeout_ms"`
}

// Timeout is the per-request timeout for dashboard calls.
func (c ServerConfig) Timeout() time.Duration {
	return millis(c.TimeoutMS, 10*time.Second)
}

// PollingConfig holds the cadence of each poll loop.
type PollingConfig struct {
	DetailMS     int `toml:"detail_ms"`
	CollectionMS int `toml:"collection_ms"`
	IndicatorMS  int `toml:"indicator_ms"`
}

func (c PollingConfig) Detail() time.Duration     { return millis(c.DetailMS, time.Second) }
func (c PollingConfig) Collection() time.Duration { return millis(c.CollectionMS, 2*time.Second) }
func (c PollingConfig) Indicator() time.Duration  { return millis(c.IndicatorMS, 2*time.Second) }

// ToastConfig holds notification lifetimes.
type ToastConfig struct {
	DurationMS      int `toml:"duration_ms"`
	TimeoutNoticeMS int `toml:"timeout_notice_ms"`
}

func (c ToastConfig) Duration() time.Duration { return millis(c.DurationMS, 5*time.Second) }
func (c ToastConfig) TimeoutNotice() time.Duration {
	return millis(c.TimeoutNoticeMS, 8*time.Second)
}

// ActionsConfig throttles user-triggered requests.
type ActionsConfig struct {
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// DatabaseConfig contains the outcome journal location.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoggingConfig controls log level and the TUI log file.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// MockConfig contains the listen address of the mock dashboard.
type MockConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for [net/http.Server].
func (c MockConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func millis(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("%w: server.base_url is required", ErrInvalidConfig)
	}
	if c.Actions.RatePerSecond < 0 || c.Actions.Burst < 0 {
		return fmt.Errorf("%w: actions limits must not be negative", ErrInvalidConfig)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
