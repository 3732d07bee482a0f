package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/accessbot/core/config"
	"github.com/m3rciful/accessbot/core/database"
	"github.com/m3rciful/accessbot/internal/config"
	"github.com/m3rciful/accessbot/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Telegram = coreconfig.TelegramConfig{Token: "123:abc", AdminID: 99, RunMode: coreconfig.RunModeLongpoll}
	cfg.Database = database.Config{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "app.db")}
	cfg.Access.BcryptCost = bcrypt.MinCost
	require.NoError(t, cfg.Database.Normalize())
	return cfg
}

func openStore(t *testing.T, cfg *config.Config) *store.Store {
	t.Helper()
	st, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestAdminPasswordSeeder(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Access.AdminPassword = "first"
	st := openStore(t, cfg)

	require.NoError(t, AdminPasswordSeeder(cfg).Seed(ctx, st.DB()))
	ok, err := st.VerifyAdminPassword(ctx, "first")
	require.NoError(t, err)
	assert.True(t, ok)

	cfg.Access.AdminPassword = "second"
	require.NoError(t, AdminPasswordSeeder(cfg).Seed(ctx, st.DB()))
	ok, err = st.VerifyAdminPassword(ctx, "first")
	require.NoError(t, err)
	assert.True(t, ok, "an existing password is kept")
}

func TestAdminPasswordSeederNoPassword(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	st := openStore(t, cfg)

	require.NoError(t, AdminPasswordSeeder(cfg).Seed(ctx, st.DB()))
	set, err := st.AdminPasswordSet(ctx)
	require.NoError(t, err)
	assert.False(t, set)
}

func TestTelegramRunOptions(t *testing.T) {
	cfg := testConfig(t)
	st := openStore(t, cfg)
	a := newApp(cfg, st.DB())

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.Same(t, cfg.CoreConfig(), opts.Config)
	assert.NotNil(t, opts.OnStart)

	endpoints := map[any]bool{}
	for _, r := range opts.Routes {
		endpoints[r.Endpoint] = true
	}
	for _, want := range []any{"/start", "/register", "/admin_panel", "/cancel", tele.OnCallback, tele.OnText, tele.OnDocument} {
		assert.True(t, endpoints[want], want)
	}

	var names []string
	for _, mw := range opts.Middlewares {
		names = append(names, mw.Name)
	}
	assert.Equal(t, "state", names[len(names)-1])

	_, ok := opts.Registry.GetCallback("approve_42")
	assert.True(t, ok)
	_, ok = opts.Registry.GetCallback("poll_maker")
	assert.True(t, ok)
}

func TestOptionMapping(t *testing.T) {
	cfg := testConfig(t)
	cfg.Access.ChannelID = -100
	cfg.Access.RegisterRetryAttempts = 3

	b := BotOptions(cfg)
	assert.Equal(t, int64(99), b.AdminID)
	assert.Equal(t, int64(-100), b.ChannelID)
	assert.True(t, b.RequireAdminLogin)

	s := StoreOptions(cfg)
	assert.Equal(t, 3, s.RetryAttempts)
	assert.Equal(t, cfg.Access.RetryBackoff(), s.RetryBackoff)
}
