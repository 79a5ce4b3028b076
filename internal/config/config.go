package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all environment configuration values for the application.
// These values are loaded from a .env file at startup.
type Config struct {
	// ServerPort is the port the HTTP server listens on
	ServerPort string

	// Env selects the log format: "dev" writes human readable console output
	Env string

	// LogLevel is a zerolog level name (debug, info, warn, error)
	LogLevel string

	// CorsOrigins is the list of origins allowed to call the API
	CorsOrigins []string

	// KDF selects how room keys are derived from password hashes: "raw" or "pbkdf2"
	KDF string

	// PBKDF2Iterations is only used when KDF is "pbkdf2"
	PBKDF2Iterations int

	// TokenTTL bounds the age of room tokens. Zero means tokens never expire.
	TokenTTL time.Duration

	// CookieMaxAge is the lifetime in seconds of the username and roomToken cookies
	CookieMaxAge int

	// JoinRatePerMinute and JoinRateBurst limit password attempts per client IP
	JoinRatePerMinute int
	JoinRateBurst     int

	// TrustProxy honours X-Forwarded-For / X-Real-IP for client addresses
	TrustProxy bool
}

// Load reads environment variables and returns a populated Config struct.
// It will load from a .env file if present, then read from environment variables.
// Falls back to sensible defaults if values are not set.
func Load() *Config {
	// Not an error if .env is missing, production sets real environment variables
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	config := &Config{
		ServerPort:        getEnv("PORT", "8080"),
		Env:               getEnv("APP_ENV", "dev"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		CorsOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		KDF:               strings.ToLower(getEnv("CHAT_KDF", "raw")),
		PBKDF2Iterations:  getEnvInt("CHAT_PBKDF2_ITERATIONS", 210000),
		TokenTTL:          getEnvDuration("CHAT_TOKEN_TTL", 0),
		CookieMaxAge:      getEnvInt("COOKIE_MAX_AGE", 3600),
		JoinRatePerMinute: getEnvInt("JOIN_RATE_PER_MIN", 10),
		JoinRateBurst:     getEnvInt("JOIN_RATE_BURST", 5),
		TrustProxy:        getEnvBool("TRUST_PROXY", false),
	}

	if config.KDF != "raw" && config.KDF != "pbkdf2" {
		log.Warn().Str("kdf", config.KDF).Msg("unknown CHAT_KDF, falling back to raw")
		config.KDF = "raw"
	}

	return config
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid integer, using default")
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid boolean, using default")
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid duration, using default")
		return defaultValue
	}
	return d
}

// splitList splits a comma-separated list and drops empty entries
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
