package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

// Config holds the process settings.
type Config struct {
	DatabaseURL    string         `yaml:"database_url"`
	Driver         string         `yaml:"driver"`
	MaxConns       int            `yaml:"max_conns"`
	AcquireTimeout time.Duration  `yaml:"acquire_timeout"`
	JWTSecret      string         `yaml:"jwt_secret"`
	TokenDuration  time.Duration  `yaml:"token_duration"`
	LogLevel       string         `yaml:"log_level"`
	Admin          AdminConfig    `yaml:"admin"`
	Password       PasswordConfig `yaml:"password"`
}

// AdminConfig names the first administrator.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// PasswordConfig holds the argon2id cost parameters.
type PasswordConfig struct {
	Time    uint32 `yaml:"time"`
	Memory  uint32 `yaml:"memory_kib"`
	Threads uint8  `yaml:"threads"`
}

// LoadConfig builds the configuration from the environment (a .env file in
// the working directory is loaded first when present) and then overlays the
// YAML file at path, if any.
func LoadConfig(path string) (*Config, error) {
	// a missing .env is the normal production case
	_ = godotenv.Load()

	maxConns, err := strconv.Atoi(getEnv("TASSO_DB_MAX_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid TASSO_DB_MAX_CONNS: %w", err)
	}

	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Driver:         os.Getenv("TASSO_DB_DRIVER"),
		MaxConns:       maxConns,
		AcquireTimeout: 5 * time.Second,
		JWTSecret:      getEnv("TASSO_JWT_SECRET", insecureJWTSecret),
		TokenDuration:  12 * time.Hour,
		LogLevel:       getEnv("TASSO_LOG_LEVEL", "info"),
		Admin: AdminConfig{
			Username: getEnv("TASSO_ADMIN_USER", "admin"),
			Password: os.Getenv("TASSO_ADMIN_PASS"),
		},
		Password: PasswordConfig{Time: 3, Memory: 64 * 1024, Threads: 1},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverFor(cfg.DatabaseURL)
	}

	return cfg, nil
}

// DriverFor infers the database/sql driver from a connection string.
func DriverFor(url string) string {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") ||
		strings.Contains(url, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// Validate reports configuration the process cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is not set"))
	}
	switch c.Driver {
	case "postgres", "pgx", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported driver %q", c.Driver))
	}
	if c.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("max_conns must be positive, got %d", c.MaxConns))
	}
	if c.TokenDuration <= 0 {
		errs = append(errs, fmt.Errorf("token_duration must be positive, got %s", c.TokenDuration))
	}
	if c.JWTSecret == insecureJWTSecret && getEnv("TASSO_ENV", "development") != "development" {
		errs = append(errs, errors.New("TASSO_JWT_SECRET must be set outside development"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
