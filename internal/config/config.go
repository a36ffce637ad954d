// internal/config/config.go
//
// Process configuration.
// Responsibilities:
//   - Load .env (if present) and read settings from the environment with defaults.
//   - Reject settings the server cannot run with before anything is opened.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/coopsweeper/server/internal/game"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config is everything main needs to wire the server.
type Config struct {
	Port     string
	LogLevel string
	AppEnv   string

	Board game.Config

	StoreDriver    string
	DatabasePath   string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
	WriteQueue     int

	JWTSecret    string
	JWTExpiry    time.Duration
	CookieName   string
	ClientOrigin string
}

// Development reports whether human-readable console logging should be used.
func (c *Config) Development() bool { return c.AppEnv == "development" }

// Production toggles Secure/SameSite=None cookies.
func (c *Config) Production() bool { return c.AppEnv == "production" }

// Load reads .env (missing file is fine) and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (*Config, error) {
	var errs []error
	intVar := func(k string, def int) int {
		n, err := envInt(k, def)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}

	c := &Config{
		Port:     getEnv("PORT", "5175"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		AppEnv:   getEnv("APP_ENV", "development"),
		Board: game.Config{
			Rows:  intVar("BOARD_ROWS", game.DefaultRows),
			Cols:  intVar("BOARD_COLS", game.DefaultCols),
			Mines: intVar("BOARD_MINES", game.DefaultMines),
		},
		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
		DatabasePath:   getEnv("DATABASE_PATH", "./data/minesweeper.db"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        intVar("REDIS_DB", 0),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "ms:"),
		WriteQueue:     intVar("WRITE_QUEUE", 256),
		JWTSecret:      getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiry:      time.Duration(intVar("JWT_EXPIRES_DAYS", 14)) * 24 * time.Hour,
		CookieName:     getEnv("COOKIE_NAME", "ms_token"),
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:3000"),
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if err := c.Board.Validate(); err != nil {
		return fmt.Errorf("config: board %dx%d with %d mines: %w", c.Board.Rows, c.Board.Cols, c.Board.Mines, err)
	}
	switch c.StoreDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			return errors.New("config: DATABASE_PATH is required for the sqlite store")
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR is required for the redis store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.WriteQueue <= 0 {
		return fmt.Errorf("config: WRITE_QUEUE must be positive, got %d", c.WriteQueue)
	}
	if c.JWTExpiry <= 0 {
		return errors.New("config: JWT_EXPIRES_DAYS must be positive")
	}
	return nil
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt parses k as an int, returning def when unset.
func envInt(k string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("config: %s=%q is not an integer", k, v)
	}
	return n, nil
}
