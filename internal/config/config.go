package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort     string        `validate:"required,numeric"`
	// RequestTimeout bounds each store call; zero waits indefinitely.
	RequestTimeout time.Duration `validate:"min=0"`
	AllowedOrigins []string

	DBDriver     string `validate:"oneof=postgres sqlite3"`
	DatabaseDSN  string `validate:"required"`
	MaxOpenConns int    `validate:"min=1"`

	LogLevel string `validate:"oneof=debug info warn error"`
	LogJSON  bool

	// SessionSecret enables server-issued session tokens when non-empty.
	SessionSecret     string        `validate:"omitempty,min=32"`
	SessionTTL        time.Duration `validate:"min=1s"`
	EphemeralIdentity bool

	RateLimit  int           `validate:"min=0"`
	RateWindow time.Duration `validate:"min=1ms"`
}

var validate = validator.New()

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the config from environment variables only.
func FromEnv() (*Config, error) {
	driver := getEnv("DB_DRIVER", "postgres")
	dsn, err := databaseDSN(driver)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "5000"),
		RequestTimeout:    getEnvAsDuration("REQUEST_TIMEOUT", 0),
		AllowedOrigins:    getEnvAsList("ALLOWED_ORIGINS"),
		DBDriver:          driver,
		DatabaseDSN:       dsn,
		MaxOpenConns:      getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogJSON:           getEnvAsBool("LOG_JSON", false),
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		EphemeralIdentity: getEnvAsBool("EPHEMERAL_IDENTITY", true),
		RateLimit:         getEnvAsInt("RATE_LIMIT", 60),
		RateWindow:        getEnvAsDuration("RATE_WINDOW", time.Minute),
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func databaseDSN(driver string) (string, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, nil
	}
	if driver == "sqlite3" {
		return getEnv("SQLITE_PATH", "tasks.db"), nil
	}

	requiredEnvVars := []string{
		"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_HOST",
	}
	for _, env := range requiredEnvVars {
		if os.Getenv(env) == "" {
			return "", fmt.Errorf("environment variable %s must be set (or DATABASE_URL)", env)
		}
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("POSTGRES_HOST"), os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("POSTGRES_DB"), getEnv("POSTGRES_PORT", "5432"), getEnv("POSTGRES_SSLMODE", "disable")), nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

// comma separated, blanks dropped
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
