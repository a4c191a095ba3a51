package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Backends supported for the directory data provider.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config defines server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Stream StreamConfig `yaml:"stream"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Data   DataConfig   `yaml:"data"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	HubPath string `yaml:"hub_path"`
}

// StreamConfig tunes chunked delivery. Pacing is the wait inserted between
// records; it has no effect on correctness.
type StreamConfig struct {
	Pacing time.Duration `yaml:"pacing"`
}

// FetchConfig holds the artificial latencies of the one-shot fetch API.
type FetchConfig struct {
	Latency       time.Duration `yaml:"latency"`
	LookupLatency time.Duration `yaml:"lookup_latency"`
}

type DataConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			HubPath: "/hub",
		},
		Stream: StreamConfig{
			Pacing: 200 * time.Millisecond,
		},
		Fetch: FetchConfig{
			Latency:       300 * time.Millisecond,
			LookupLatency: 100 * time.Millisecond,
		},
		Data: DataConfig{
			Backend: BackendMemory,
			Path:    ":memory:",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("DIRSTREAM_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("DIRSTREAM_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("DIRSTREAM_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DIRSTREAM_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if hubPath := os.Getenv("DIRSTREAM_HUB_PATH"); hubPath != "" {
		cfg.Server.HubPath = hubPath
	}
	if err := envDuration("DIRSTREAM_STREAM_PACING", &cfg.Stream.Pacing); err != nil {
		return Config{}, err
	}
	if err := envDuration("DIRSTREAM_FETCH_LATENCY", &cfg.Fetch.Latency); err != nil {
		return Config{}, err
	}
	if err := envDuration("DIRSTREAM_LOOKUP_LATENCY", &cfg.Fetch.LookupLatency); err != nil {
		return Config{}, err
	}
	if backend := os.Getenv("DIRSTREAM_DATA_BACKEND"); backend != "" {
		cfg.Data.Backend = backend
	}
	if dataPath := os.Getenv("DIRSTREAM_DATA_PATH"); dataPath != "" {
		cfg.Data.Path = dataPath
	}
	if level := os.Getenv("DIRSTREAM_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c Config) validate() error {
	switch c.Data.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("invalid data backend %q", c.Data.Backend)
	}
	if c.Stream.Pacing < 0 {
		return fmt.Errorf("stream pacing must not be negative")
	}
	if c.Fetch.Latency < 0 || c.Fetch.LookupLatency < 0 {
		return fmt.Errorf("fetch latency must not be negative")
	}
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
