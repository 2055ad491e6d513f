package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "5000" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.JWTTTL != 7*24*time.Hour {
		t.Fatalf("expected 7 day token ttl, got %s", cfg.JWTTTL)
	}
	if cfg.FrontendURL != "http://localhost:3000" {
		t.Fatalf("expected default frontend url, got %s", cfg.FrontendURL)
	}
	if got := cfg.AllowedOrigins(); len(got) != 1 || got[0] != "http://localhost:3000" {
		t.Fatalf("unexpected allowed origins: %v", got)
	}
	if !cfg.MetricsEnabled {
		t.Fatalf("expected metrics enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("LOGIN_RATE_PER_SEC", "2.5")
	t.Setenv("REDIS_TLS", "true")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected database url override, got %s", cfg.DatabaseURL)
	}
	if cfg.JWTTTL != time.Hour {
		t.Fatalf("expected ttl override, got %s", cfg.JWTTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.LoginRatePerSec != 2.5 {
		t.Fatalf("expected login rate override, got %v", cfg.LoginRatePerSec)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRequiresSecretOutsideDevelopment(t *testing.T) {
	cfg := &Config{Env: "production", JWTTTL: time.Hour}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing secret to fail validation")
	}
	cfg.Env = "development"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected development without secret to pass, got %v", err)
	}
}

func TestInvalidNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("LOGIN_RATE_BURST", "lots")
	t.Setenv("JWT_TTL", "forever")
	cfg := Load()
	if cfg.LoginRateBurst != 10 {
		t.Fatalf("expected default burst, got %d", cfg.LoginRateBurst)
	}
	if cfg.JWTTTL != 7*24*time.Hour {
		t.Fatalf("expected default ttl, got %s", cfg.JWTTTL)
	}
}
