package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "JoinLine"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second
	defaultJoinRateLimit = 5
	defaultJoinRateWin   = time.Hour

	joinRateWinSecondsEnvVar  = "JOIN_RATE_WINDOW_SECONDS"
	joinRateWinDurationEnvVar = "JOIN_RATE_WINDOW"
	shutdownSecondsEnvVar     = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar    = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName         string
	AppEnv          string
	Port            string
	LogLevel        string
	DatabaseURL     string
	RedisURL        string
	AdminSecret     string
	TurnstileSecret string
	JoinRateLimit   int
	JoinRateWindow  time.Duration
	ShutdownPeriod  time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          getEnv("APP_ENV", defaultAppEnv),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		AdminSecret:     os.Getenv("ADMIN_SECRET_KEY"),
		TurnstileSecret: os.Getenv("TURNSTILE_SECRET_KEY"),
		JoinRateLimit:   defaultJoinRateLimit,
		JoinRateWindow:  defaultJoinRateWin,
		ShutdownPeriod:  defaultShutdownDelay,
	}

	if v := os.Getenv("JOIN_RATE_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid JOIN_RATE_LIMIT: %w", err)
		}
		cfg.JoinRateLimit = limit
	}

	if v := os.Getenv(joinRateWinSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", joinRateWinSecondsEnvVar, err)
		}
		cfg.JoinRateWindow = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(joinRateWinDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", joinRateWinDurationEnvVar, err)
		}
		cfg.JoinRateWindow = d
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if !cfg.IsDev() && cfg.RedisURL == "" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL or DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development environment, where the
// in-memory store and skipped captcha verification are acceptable.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
