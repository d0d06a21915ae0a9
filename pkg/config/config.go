package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`

	// APIBaseURL is the remote storefront, e.g. https://shop.example
	APIBaseURL string `yaml:"api_base_url"`
	// ListenAddr is the local API surface for UI processes.
	ListenAddr string `yaml:"listen_addr"`
	// DBPath is the sqlite file holding session, cart and outbox state.
	DBPath string `yaml:"db_path"`
	// RedisAddr enables the Redis catalog cache when set.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	NotifyInterval    time.Duration `yaml:"notify_interval"`
	ReplayInterval    time.Duration `yaml:"replay_interval"`
	ReplayMaxAttempts int           `yaml:"replay_max_attempts"`
}

// Load merges defaults, an optional YAML file and environment overrides, in
// that order.
func Load(path string) (Config, error) {
	cfg := Config{
		AppEnv:            "dev",
		LogLevel:          "info",
		APIBaseURL:        "http://localhost:3000",
		ListenAddr:        "127.0.0.1:7600",
		DBPath:            "storefront.db",
		NotifyInterval:    60 * time.Second,
		ReplayInterval:    30 * time.Second,
		ReplayMaxAttempts: 50,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.APIBaseURL = getEnv("STOREFRONT_API_URL", cfg.APIBaseURL)
	cfg.ListenAddr = getEnv("STOREFRONT_LISTEN_ADDR", cfg.ListenAddr)
	cfg.DBPath = getEnv("STOREFRONT_DB_PATH", cfg.DBPath)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.NotifyInterval = getEnvDuration("STOREFRONT_NOTIFY_INTERVAL", cfg.NotifyInterval)
	cfg.ReplayInterval = getEnvDuration("STOREFRONT_REPLAY_INTERVAL", cfg.ReplayInterval)
	cfg.ReplayMaxAttempts = getEnvInt("STOREFRONT_REPLAY_MAX_ATTEMPTS", cfg.ReplayMaxAttempts)

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
