package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadForTests(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":     "postgres://localhost/pos",
		"REDIS_URL":        "redis://localhost:6379",
		"JWT_SECRET":       "secret",
		"PORT":             "9090",
		"TIMEZONE":         "Asia/Jakarta",
		"ACCESS_TOKEN_TTL": "30m",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, "Asia/Jakarta", cfg.Timezone)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379",
		"JWT_SECRET":   "secret",
	})
	require.Error(t, err)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	require.Equal(t, time.UTC, cfg.Location())
}
