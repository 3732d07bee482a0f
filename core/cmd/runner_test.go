package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/accessbot/core/config"
	coretelegram "github.com/m3rciful/accessbot/core/telegram"
)

type carrier struct{ core *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.core }

type app struct{}

func (app) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{}, nil
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/env/config.yaml")

	p, err := ResolveConfigPath("/flag.yaml", "", "config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/flag.yaml", p)

	p, err = ResolveConfigPath("", "", "config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/env/config.yaml", p)

	t.Setenv("CONFIG_PATH", "")
	p, err = ResolveConfigPath("", "", "config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", p)

	_, err = ResolveConfigPath("", "", "")
	assert.Error(t, err)
}

func TestRunWiresLifecycleHooks(t *testing.T) {
	var loaded string
	started, stopped := false, false
	err := Run(context.Background(), Options{
		ConfigPath: "custom.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loaded = path
			return carrier{core: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return app{}, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			if err := opts.OnStart(ctx, coretelegram.Runtime{}); err != nil {
				return err
			}
			started = true
			stopped = opts.OnStop(ctx, coretelegram.Runtime{}) == nil
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "custom.yaml", loaded)
	assert.True(t, started)
	assert.True(t, stopped)
}

func TestRunPropagatesBootstrapError(t *testing.T) {
	boom := errors.New("boom")
	err := Run(context.Background(), Options{
		ConfigPath: "x.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{core: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return nil, boom
		},
	})
	assert.ErrorIs(t, err, boom)
}

func TestRunRequiresHooks(t *testing.T) {
	assert.Error(t, Run(context.Background(), Options{ConfigPath: "x.yaml"}))
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, Options{
		ConfigPath: "x.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{core: &coreconfig.Config{}}, nil
		},
		Bootstrap:      func(context.Context, ConfigCarrier) (TelegramApp, error) { return app{}, nil },
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, _ coretelegram.RunOptions) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
