// Package config provides configuration parsing for the predictor.
//
// It handles both command-line flags and environment variables, with
// flags taking precedence. The Config struct contains all runtime
// configuration for the predictor including:
//   - Model gateway settings (URL, timeout, model version)
//   - Prediction cache settings (backend, Redis connection, TTL)
//   - Filter-option artifact location
//   - Comparison milestone ages
//   - HTTP listen address and logging configuration
//
// Supported configuration sources (in order of precedence):
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all predictor configuration.
type Config struct {
	Listen    string
	LogFormat string
	LogLevel  string

	GatewayURL     string
	GatewayTimeout time.Duration
	ModelVersion   string

	Cache         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	OptionsDB string

	// MilestoneAges are the ages brand summaries report values at.
	MilestoneAges []int
}

// ParseFlags parses command-line flags and environment variables into a
// Config. Environment variables are used as fallbacks when flags are not
// provided.
func ParseFlags() *Config {
	cfg := &Config{}
	var milestones string

	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8082"), "HTTP listen address")

	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.StringVar(&cfg.GatewayURL, "gateway-url", getEnv("GATEWAY_URL", ""), "Model gateway base URL (required)")
	flag.DurationVar(&cfg.GatewayTimeout, "gateway-timeout", getEnvDuration("GATEWAY_TIMEOUT", 30*time.Second), "Model gateway request timeout")
	flag.StringVar(&cfg.ModelVersion, "model-version", getEnv("MODEL_VERSION", "latest"), "Model version requested from the gateway")

	flag.StringVar(&cfg.Cache, "cache", getEnv("CACHE", "memory"), "Prediction cache backend: memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	flag.DurationVar(&cfg.RedisTTL, "redis-ttl", getEnvDuration("REDIS_TTL", 12*time.Hour), "Redis prediction TTL")

	flag.StringVar(&cfg.OptionsDB, "options-db", getEnv("OPTIONS_DB", ""), "Path to the listings SQLite file (required)")

	flag.StringVar(&milestones, "milestone-ages", getEnv("MILESTONE_AGES", "5,10"), "Comma-separated ages brand summaries report values at")

	flag.Parse()

	if cfg.GatewayURL == "" {
		fmt.Fprintln(os.Stderr, "Error: --gateway-url is required")
		os.Exit(1)
	}
	if cfg.OptionsDB == "" {
		fmt.Fprintln(os.Stderr, "Error: --options-db is required")
		os.Exit(1)
	}
	if cfg.Cache != "memory" && cfg.Cache != "redis" {
		fmt.Fprintf(os.Stderr, "Error: invalid cache backend %q (must be memory or redis)\n", cfg.Cache)
		os.Exit(1)
	}

	ages, err := ParseMilestones(milestones)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --milestone-ages: %v\n", err)
		os.Exit(1)
	}
	cfg.MilestoneAges = ages

	return cfg
}

// ParseMilestones parses a comma-separated list of ages. Ages must be
// positive and strictly increasing.
func ParseMilestones(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	ages := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		age, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("age %q is not a number", p)
		}
		if age <= 0 {
			return nil, fmt.Errorf("age %d must be positive", age)
		}
		if len(ages) > 0 && age <= ages[len(ages)-1] {
			return nil, fmt.Errorf("ages must be strictly increasing, got %d after %d", age, ages[len(ages)-1])
		}
		ages = append(ages, age)
	}
	if len(ages) == 0 {
		return nil, fmt.Errorf("no ages given")
	}
	return ages, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
