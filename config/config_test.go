package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigAndConnectDB_TestEnv(t *testing.T) {
	t.Setenv("APPENV", "test")

	cfg := LoadConfig()
	require.NotNil(t, cfg)
	assert.Same(t, cfg, LoadConfig())

	db, err := ConnectDB()
	require.NoError(t, err)
	require.NotNil(t, db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
}

func TestConfigLocation(t *testing.T) {
	cfg := &Config{Timezone: "Asia/Jakarta"}
	loc := cfg.Location()
	_, offset := time.Date(2025, 1, 18, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 7*3600, offset)

	assert.Equal(t, time.UTC, (&Config{Timezone: "Not/AZone"}).Location())
	assert.Equal(t, time.UTC, (&Config{}).Location())
	var nilCfg *Config
	assert.Equal(t, time.UTC, nilCfg.Location())
}

func TestLoadConfigResolvesLocationOnce(t *testing.T) {
	cfg := LoadConfig()
	require.NotNil(t, cfg.loc)
	assert.Same(t, cfg.loc, cfg.Location())
	assert.Same(t, cfg.Location(), LoadConfig().Location())
	assert.Equal(t, resolveLocation(cfg.Timezone).String(), cfg.Location().String())
}

func TestConfigDSN(t *testing.T) {
	cfg := &Config{DBDriver: DriverMySQL, DBHost: "db", DBPort: 3306, DBName: "mindery", DBUSER: "root", DBPass: "secret"}
	assert.Equal(t, "root:secret@tcp(db:3306)/mindery?parseTime=true&loc=UTC", cfg.DSN())

	cfg.DBDriver = DriverPostgres
	cfg.DBPort = 5432
	assert.Contains(t, cfg.DSN(), "host=db port=5432 user=root password=secret dbname=mindery")
}

func TestGetEnvFallback(t *testing.T) {
	t.Setenv("MINDERY_TEST_KEY", "")
	assert.Equal(t, "fallback", getEnv("MINDERY_TEST_KEY", "fallback"))
	t.Setenv("MINDERY_TEST_KEY", "set")
	assert.Equal(t, "set", getEnv("MINDERY_TEST_KEY", "fallback"))
}
