package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config lists the tunable parameters for the Burrow broker.
type Config struct {
	ListenAddress string
	MetricsAddr   string
	MaxQueueDepth int
	LogLevel      string
	LogJSON       bool
}

const (
	defaultListenAddress = "127.0.0.1:9876"
	defaultMetricsAddr   = ":9100"
	defaultMaxQueueDepth = 256
	defaultLogLevel      = "info"
)

// Load derives configuration values from environment variables, falling back to defaults.
func Load() (Config, error) {
	cfg := Config{
		ListenAddress: defaultListenAddress,
		MetricsAddr:   defaultMetricsAddr,
		MaxQueueDepth: defaultMaxQueueDepth,
		LogLevel:      defaultLogLevel,
	}

	if v := os.Getenv("BURROW_LISTEN"); v != "" {
		cfg.ListenAddress = v
	}

	if v := os.Getenv("BURROW_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}

	if v := os.Getenv("BURROW_MAX_QUEUE"); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BURROW_MAX_QUEUE: %w", err)
		}
		if depth < 1 {
			return Config{}, fmt.Errorf("invalid BURROW_MAX_QUEUE: must be at least 1, got %d", depth)
		}
		cfg.MaxQueueDepth = depth
	}

	if v := os.Getenv("BURROW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv("BURROW_LOG_JSON"); v != "" {
		logJSON, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BURROW_LOG_JSON: %w", err)
		}
		cfg.LogJSON = logJSON
	}

	return cfg, nil
}
