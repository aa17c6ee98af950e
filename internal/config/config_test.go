package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERVER_PORT", "REQUEST_TIMEOUT", "ALLOWED_ORIGINS", "DB_DRIVER", "DATABASE_URL",
		"SQLITE_PATH", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_HOST",
		"POSTGRES_PORT", "POSTGRES_SSLMODE", "DB_MAX_OPEN_CONNS", "LOG_LEVEL", "LOG_JSON",
		"SESSION_SECRET", "SESSION_TTL", "EPHEMERAL_IDENTITY", "RATE_LIMIT", "RATE_WINDOW",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_SQLiteDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "sqlite3")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.ServerPort != "5000" {
		t.Errorf("ServerPort = %q, want 5000", cfg.ServerPort)
	}
	if cfg.DatabaseDSN != "tasks.db" {
		t.Errorf("DatabaseDSN = %q, want tasks.db", cfg.DatabaseDSN)
	}
	if cfg.MaxOpenConns != 10 {
		t.Errorf("MaxOpenConns = %d, want 10", cfg.MaxOpenConns)
	}
	if !cfg.EphemeralIdentity {
		t.Error("EphemeralIdentity should default to true")
	}
	if cfg.SessionTTL != 24*time.Hour || cfg.RateWindow != time.Minute || cfg.RequestTimeout != 0 {
		t.Errorf("unexpected duration defaults: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Errorf("AllowedOrigins = %v, want empty", cfg.AllowedOrigins)
	}
}

func TestFromEnv_PostgresDSNFromParts(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "tasks")
	t.Setenv("POSTGRES_HOST", "db")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	want := "host=db user=app password=secret dbname=tasks port=5432 sslmode=disable"
	if cfg.DatabaseDSN != want {
		t.Errorf("DatabaseDSN = %q, want %q", cfg.DatabaseDSN, want)
	}
}

func TestFromEnv_PostgresMissingVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_USER", "app")

	_, err := FromEnv()
	if err == nil || !strings.Contains(err.Error(), "POSTGRES_PASSWORD") {
		t.Fatalf("expected missing POSTGRES_PASSWORD error, got %v", err)
	}
}

func TestFromEnv_DatabaseURLWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/tasks")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.DatabaseDSN != "postgres://u:p@localhost/tasks" {
		t.Errorf("DatabaseDSN = %q", cfg.DatabaseDSN)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("EPHEMERAL_IDENTITY", "false")
	t.Setenv("RATE_LIMIT", "0")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SESSION_SECRET", strings.Repeat("s", 32))
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.ServerPort != "8081" || cfg.EphemeralIdentity || cfg.RateLimit != 0 || cfg.LogLevel != "debug" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
}

func TestFromEnv_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown driver", "DB_DRIVER", "mysql"},
		{"non numeric port", "SERVER_PORT", "http"},
		{"short session secret", "SESSION_SECRET", "too-short"},
		{"zero pool", "DB_MAX_OPEN_CONNS", "0"},
		{"unknown log level", "LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DATABASE_URL", "file::memory:")
			t.Setenv("DB_DRIVER", "sqlite3")
			t.Setenv(tt.key, tt.val)

			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected validation error for %s=%q", tt.key, tt.val)
			}
		})
	}
}
