package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"` // "stdio" or "http"
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig carries the dashboard knobs: which project statuses count as
// active and which metrics order the champion ranking.
type MetricsConfig struct {
	ActiveStatuses   []string `yaml:"active_statuses"`
	RankingPrimary   string   `yaml:"ranking_primary"`
	RankingSecondary string   `yaml:"ranking_secondary"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		DB: DBConfig{
			Path: "axpulse.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			ActiveStatuses:   []string{"approved", "in_progress"},
			RankingPrimary:   "proposals",
			RankingSecondary: "approvals",
		},
	}

	if path := os.Getenv("AXPULSE_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("AXPULSE_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("AXPULSE_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AXPULSE_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if mode := os.Getenv("AXPULSE_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if dbPath := os.Getenv("AXPULSE_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("AXPULSE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if statuses := os.Getenv("AXPULSE_ACTIVE_STATUSES"); statuses != "" {
		cfg.Metrics.ActiveStatuses = splitList(statuses)
	}

	return cfg, nil
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

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
