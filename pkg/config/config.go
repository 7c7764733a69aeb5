package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds server configuration.
type Config struct {
	Port            string  `yaml:"port"`
	LogLevel        string  `yaml:"log_level"`
	StoreDriver     string  `yaml:"store_driver"`
	DatabaseURL     string  `yaml:"database_url"`
	DataDir         string  `yaml:"data_dir"`
	SignatureScheme string  `yaml:"signature_scheme"`
	HashAlgorithm   string  `yaml:"hash_algorithm"`
	ReplayGuard     string  `yaml:"replay_guard"`
	RedisAddr       string  `yaml:"redis_addr"`
	RateLimitRPS    float64 `yaml:"rate_limit_rps"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	OTelEnabled     bool    `yaml:"otel_enabled"`
	OTelEndpoint    string  `yaml:"otel_endpoint"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:            "8000",
		LogLevel:        "INFO",
		StoreDriver:     "memory",
		DataDir:         "data",
		SignatureScheme: "bitcoin",
		HashAlgorithm:   "sha256",
		ReplayGuard:     "off",
		RedisAddr:       "localhost:6379",
		RateLimitRPS:    10,
		RateLimitBurst:  20,
		OTelEndpoint:    "localhost:4317",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// NOTARY_CONFIG (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("NOTARY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.StoreDriver, "STORE_DRIVER")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.DataDir, "DATA_DIR")
	setString(&cfg.SignatureScheme, "SIGNATURE_SCHEME")
	setString(&cfg.HashAlgorithm, "HASH_ALGORITHM")
	setString(&cfg.ReplayGuard, "REPLAY_GUARD")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.OTelEndpoint, "OTEL_ENDPOINT")

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = rps
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimitBurst = burst
	}
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		cfg.OTelEnabled = v == "true"
	}

	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)
	cfg.ReplayGuard = strings.ToLower(cfg.ReplayGuard)
	return cfg, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// StoreDSN is DatabaseURL, or a file under DataDir for the local drivers.
func (c *Config) StoreDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	switch c.StoreDriver {
	case "file":
		return filepath.Join(c.DataDir, "chain.jsonl")
	case "sqlite":
		return filepath.Join(c.DataDir, "chain.db")
	default:
		return ""
	}
}
