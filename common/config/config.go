// Package config loads service settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"authentiscan/common/handoff"
	"authentiscan/common/validator"
)

// Store backends for the hand-off buffer
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds the settings of the web front
type Config struct {
	ServerAddr      string
	GinMode         string
	APIBaseURL      string
	MaxUploadSizeMB int
	HandoffStore    string
	RedisURL        string
	HandoffTTL      time.Duration
	LogLevel        string
	CORSOrigins     []string
}

// StubConfig holds the settings of the classifier stub
type StubConfig struct {
	ServerAddr      string
	GinMode         string
	MaxUploadSizeMB int
	LogLevel        string
}

// LoadDotEnv reads .env files into the process environment.
// A missing default .env is not an error; explicitly named files must exist.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); os.IsNotExist(err) {
			return nil
		}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads the web front configuration from the environment
func Load() (*Config, error) {
	maxSize, err := intEnv("MAX_UPLOAD_SIZE_MB", validator.DefaultMaxSizeMB)
	if err != nil {
		return nil, err
	}
	if maxSize <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_SIZE_MB must be positive, got %d", maxSize)
	}

	ttl, err := durationEnv("HANDOFF_TTL", handoff.DefaultTTL)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerAddr:      stringEnv("SERVER_ADDR", ":3000"),
		GinMode:         stringEnv("GIN_MODE", "debug"),
		APIBaseURL:      normalizeURL(stringEnv("API_BASE_URL", "http://localhost:8000")),
		MaxUploadSizeMB: maxSize,
		HandoffStore:    strings.ToLower(stringEnv("HANDOFF_STORE", StoreMemory)),
		RedisURL:        stringEnv("REDIS_URL", "redis://localhost:6379/0"),
		HandoffTTL:      ttl,
		LogLevel:        stringEnv("LOG_LEVEL", "info"),
		CORSOrigins:     listEnv("CORS_ORIGINS", []string{"http://localhost:3000"}),
	}

	if cfg.HandoffStore != StoreMemory && cfg.HandoffStore != StoreRedis {
		return nil, fmt.Errorf("HANDOFF_STORE must be %q or %q, got %q", StoreMemory, StoreRedis, cfg.HandoffStore)
	}
	return cfg, nil
}

// LoadStub reads the classifier stub configuration from the environment
func LoadStub() (*StubConfig, error) {
	maxSize, err := intEnv("MAX_UPLOAD_SIZE_MB", validator.DefaultMaxSizeMB)
	if err != nil {
		return nil, err
	}
	return &StubConfig{
		ServerAddr:      stringEnv("STUB_ADDR", ":8000"),
		GinMode:         stringEnv("GIN_MODE", "debug"),
		MaxUploadSizeMB: maxSize,
		LogLevel:        stringEnv("LOG_LEVEL", "info"),
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

func listEnv(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// normalizeURL adds a scheme when missing and drops trailing slashes
func normalizeURL(url string) string {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	return strings.TrimRight(url, "/")
}
