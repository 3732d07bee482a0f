package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSQLiteDefaults(t *testing.T) {
	cfg := Config{Driver: "SQLite"}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, "subscriptions.db", cfg.Path)
	assert.Equal(t, 4, cfg.MaxConnections)
	assert.Equal(t, "subscriptions.db?_busy_timeout=0", cfg.DSN())
	assert.Equal(t, "sqlite3://subscriptions.db?_busy_timeout=0", cfg.MigrateURL())
}

func TestNormalizePostgres(t *testing.T) {
	cfg := Config{Driver: "postgresql", Host: "db", Port: "5432", User: "bot", Password: "p@ss", Name: "access"}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, "user=bot password=p@ss host=db port=5432 dbname=access sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://bot:p%40ss@db:5432/access?sslmode=disable", cfg.MigrateURL())
}

func TestNormalizeRejects(t *testing.T) {
	for name, cfg := range map[string]Config{
		"driver":   {Driver: "mysql"},
		"postgres": {Driver: DriverPostgres},
		"busy":     {Driver: DriverSQLite, BusyTimeoutMS: -1},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cfg.Normalize())
		})
	}
}
