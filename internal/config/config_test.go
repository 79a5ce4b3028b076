package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "APP_ENV", "LOG_LEVEL", "CORS_ORIGINS", "CHAT_KDF",
		"CHAT_PBKDF2_ITERATIONS", "CHAT_TOKEN_TTL", "COOKIE_MAX_AGE", "JOIN_RATE_PER_MIN", "JOIN_RATE_BURST", "TRUST_PROXY"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("Load() ServerPort = %v, want 8080", cfg.ServerPort)
	}
	if cfg.Env != "dev" {
		t.Errorf("Load() Env = %v, want dev", cfg.Env)
	}
	if cfg.KDF != "raw" {
		t.Errorf("Load() KDF = %v, want raw", cfg.KDF)
	}
	if cfg.TokenTTL != 0 {
		t.Errorf("Load() TokenTTL = %v, want 0", cfg.TokenTTL)
	}
	if cfg.CookieMaxAge != 3600 {
		t.Errorf("Load() CookieMaxAge = %v, want 3600", cfg.CookieMaxAge)
	}
	if len(cfg.CorsOrigins) != 2 {
		t.Errorf("Load() CorsOrigins = %v, want 2 defaults", cfg.CorsOrigins)
	}
	if cfg.TrustProxy {
		t.Error("Load() TrustProxy = true, want false by default")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("CHAT_KDF", "PBKDF2")
	t.Setenv("CHAT_PBKDF2_ITERATIONS", "1000")
	t.Setenv("CHAT_TOKEN_TTL", "90m")
	t.Setenv("JOIN_RATE_BURST", "2")
	t.Setenv("TRUST_PROXY", "true")

	cfg := Load()

	if cfg.ServerPort != "9090" {
		t.Errorf("Load() ServerPort = %v, want 9090", cfg.ServerPort)
	}
	if cfg.Env != "prod" {
		t.Errorf("Load() Env = %v, want prod", cfg.Env)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Load() LogLevel = %v, want debug", cfg.LogLevel)
	}
	if len(cfg.CorsOrigins) != 2 || cfg.CorsOrigins[0] != "https://a.example" || cfg.CorsOrigins[1] != "https://b.example" {
		t.Errorf("Load() CorsOrigins = %v", cfg.CorsOrigins)
	}
	if cfg.KDF != "pbkdf2" {
		t.Errorf("Load() KDF = %v, want pbkdf2", cfg.KDF)
	}
	if cfg.PBKDF2Iterations != 1000 {
		t.Errorf("Load() PBKDF2Iterations = %v, want 1000", cfg.PBKDF2Iterations)
	}
	if cfg.TokenTTL != 90*time.Minute {
		t.Errorf("Load() TokenTTL = %v, want 90m", cfg.TokenTTL)
	}
	if cfg.JoinRateBurst != 2 {
		t.Errorf("Load() JoinRateBurst = %v, want 2", cfg.JoinRateBurst)
	}
	if !cfg.TrustProxy {
		t.Error("Load() TrustProxy = false, want true")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("CHAT_KDF", "argon9")
	t.Setenv("CHAT_TOKEN_TTL", "soon")
	t.Setenv("COOKIE_MAX_AGE", "-5")

	cfg := Load()

	if cfg.KDF != "raw" {
		t.Errorf("Load() KDF = %v, want raw fallback", cfg.KDF)
	}
	if cfg.TokenTTL != 0 {
		t.Errorf("Load() TokenTTL = %v, want 0 fallback", cfg.TokenTTL)
	}
	if cfg.CookieMaxAge != 3600 {
		t.Errorf("Load() CookieMaxAge = %v, want 3600 fallback", cfg.CookieMaxAge)
	}
}
