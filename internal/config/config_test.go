package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable FromEnv reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "LOG_LEVEL", "APP_ENV", "BOARD_ROWS", "BOARD_COLS", "BOARD_MINES",
		"STORE_DRIVER", "DATABASE_PATH", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"REDIS_KEY_PREFIX", "WRITE_QUEUE", "JWT_SECRET", "JWT_EXPIRES_DAYS", "COOKIE_NAME",
		"CLIENT_ORIGIN",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	c, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "5175", c.Port)
	assert.Equal(t, "info", c.LogLevel)
	assert.True(t, c.Development())
	assert.False(t, c.Production())
	assert.Equal(t, 20, c.Board.Rows)
	assert.Equal(t, 10, c.Board.Cols)
	assert.Equal(t, 40, c.Board.Mines)
	assert.Equal(t, 160, c.Board.WinThreshold())
	assert.Equal(t, DriverSQLite, c.StoreDriver)
	assert.Equal(t, "./data/minesweeper.db", c.DatabasePath)
	assert.Equal(t, "ms:", c.RedisKeyPrefix)
	assert.Equal(t, 256, c.WriteQueue)
	assert.Equal(t, 14*24*time.Hour, c.JWTExpiry)
	assert.Equal(t, "ms_token", c.CookieName)
	assert.Equal(t, "http://localhost:3000", c.ClientOrigin)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOARD_ROWS", "9")
	t.Setenv("BOARD_COLS", "9")
	t.Setenv("BOARD_MINES", "10")
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("APP_ENV", "production")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 9, c.Board.Rows)
	assert.Equal(t, 10, c.Board.Mines)
	assert.Equal(t, DriverRedis, c.StoreDriver)
	assert.Equal(t, 3, c.RedisDB)
	assert.True(t, c.Production())
}

func TestFromEnv_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"non-numeric rows":     {"BOARD_ROWS": "twenty"},
		"too many mines":       {"BOARD_ROWS": "3", "BOARD_COLS": "3", "BOARD_MINES": "8"},
		"negative mines":       {"BOARD_MINES": "-1"},
		"unknown driver":       {"STORE_DRIVER": "postgres"},
		"redis without addr":   {"STORE_DRIVER": "redis"},
		"zero write queue":     {"WRITE_QUEUE": "0"},
		"zero token lifetime":  {"JWT_EXPIRES_DAYS": "0"},
		"non-numeric redis db": {"REDIS_DB": "x"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_MinesBoundary(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOARD_ROWS", "3")
	t.Setenv("BOARD_COLS", "3")
	t.Setenv("BOARD_MINES", "7")
	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 2, c.Board.WinThreshold())
}
