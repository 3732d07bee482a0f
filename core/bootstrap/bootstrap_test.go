package bootstrap

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/accessbot/core/config"
	coredatabase "github.com/m3rciful/accessbot/core/database"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Config: &coreconfig.Config{},
		Database: coredatabase.Config{
			Driver: coredatabase.DriverSQLite,
			Path:   filepath.Join(t.TempDir(), "boot.db"),
		},
		LoggerInit: func(*coreconfig.Config) error { return nil },
	}
}

func TestRunMigratesAndSeeds(t *testing.T) {
	opts := testOptions(t)
	opts.Migrations = fstest.MapFS{
		"000001_items.up.sql":   {Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL);")},
		"000001_items.down.sql": {Data: []byte("DROP TABLE items;")},
	}
	var order []string
	opts.Modules.Seeders = []Seeder{
		SeederFunc{ID: "first", Fn: func(ctx context.Context, db *sqlx.DB) error {
			order = append(order, "first")
			_, err := db.ExecContext(ctx, `INSERT INTO items (id, name) VALUES (1, 'a')`)
			return err
		}},
		SeederFunc{ID: "second", Fn: func(context.Context, *sqlx.DB) error {
			order = append(order, "second")
			return nil
		}},
	}

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	defer res.DB.Close()

	var n int
	require.NoError(t, res.DB.Get(&n, `SELECT COUNT(*) FROM items`))
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRunStopsOnSeederError(t *testing.T) {
	opts := testOptions(t)
	boom := errors.New("boom")
	opts.Modules.Seeders = []Seeder{
		SeederFunc{ID: "bad", Fn: func(context.Context, *sqlx.DB) error { return boom }},
	}
	_, err := Run(context.Background(), opts)
	assert.ErrorIs(t, err, boom)
}

func TestRunMigrationFailure(t *testing.T) {
	opts := testOptions(t)
	opts.Migrations = fstest.MapFS{}
	opts.Migrate = func(context.Context, coredatabase.Config, fs.FS) error { return errors.New("bad schema") }
	_, err := Run(context.Background(), opts)
	assert.ErrorContains(t, err, "migrations failed")
}

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)
}
