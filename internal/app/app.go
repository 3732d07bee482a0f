// Package app wires configuration, storage and the conversation handlers into
// a runnable Telegram bot.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/accessbot/core/bootstrap"
	coreconfig "github.com/m3rciful/accessbot/core/config"
	"github.com/m3rciful/accessbot/core/logger"
	tg "github.com/m3rciful/accessbot/core/telegram"
	"github.com/m3rciful/accessbot/core/telegram/router"
	"github.com/m3rciful/accessbot/core/telegram/state"
	"github.com/m3rciful/accessbot/core/telegram/ui"
	"github.com/m3rciful/accessbot/internal/bot"
	"github.com/m3rciful/accessbot/internal/config"
	"github.com/m3rciful/accessbot/internal/store"
	"github.com/m3rciful/accessbot/migrations"
)

// App is a bootstrapped bot ready to run.
type App struct {
	cfg      *config.Config
	db       *sqlx.DB
	store    *store.Store
	sessions state.Manager
	bot      *bot.Bot
}

// StoreOptions maps the access section onto the store.
func StoreOptions(cfg *config.Config) store.Options {
	return store.Options{
		RetryAttempts: cfg.Access.RegisterRetryAttempts,
		RetryBackoff:  cfg.Access.RetryBackoff(),
		BcryptCost:    cfg.Access.BcryptCost,
	}
}

// BotOptions maps configuration onto the conversation handlers.
func BotOptions(cfg *config.Config) bot.Options {
	return bot.Options{
		AdminID:           cfg.Telegram.AdminID,
		PaymentContact:    cfg.Access.PaymentContact,
		ChannelID:         cfg.Access.ChannelID,
		RequireAdminLogin: cfg.Access.RequireAdminLogin,
		AdminTools:        cfg.Access.AdminTools,
		InviteTTL:         cfg.Access.InviteTTL(),
	}
}

// Bootstrap initializes logging, connects, migrates and seeds, then builds
// the handlers.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, error) {
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   cfg.Database,
		Migrations: migrations.FS,
		Modules: bootstrap.Modules{
			Seeders: []bootstrap.Seeder{AdminPasswordSeeder(cfg)},
		},
	})
	if err != nil {
		return nil, err
	}
	return newApp(cfg, res.DB), nil
}

func newApp(cfg *config.Config, db *sqlx.DB) *App {
	st := store.New(db, cfg.Database, StoreOptions(cfg))
	sessions := state.NewMemoryManager()
	return &App{
		cfg:      cfg,
		db:       db,
		store:    st,
		sessions: sessions,
		bot:      bot.New(st, sessions, BotOptions(cfg)),
	}
}

// OpenStore prepares the store for offline commands. The logger is left on
// the slog default so command output stays readable.
func OpenStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   cfg.Database,
		Migrations: migrations.FS,
		LoggerInit: func(*coreconfig.Config) error { return nil },
	})
	if err != nil {
		return nil, err
	}
	return store.New(res.DB, cfg.Database, StoreOptions(cfg)), nil
}

// AdminPasswordSeeder stores access.admin_password when no admin password
// exists yet. A password changed later through the CLI is never overwritten.
func AdminPasswordSeeder(cfg *config.Config) bootstrap.Seeder {
	return bootstrap.SeederFunc{
		ID: "admin_password",
		Fn: func(ctx context.Context, db *sqlx.DB) error {
			if cfg.Access.AdminPassword == "" {
				return nil
			}
			st := store.New(db, cfg.Database, StoreOptions(cfg))
			set, err := st.AdminPasswordSet(ctx)
			if err != nil {
				return err
			}
			if set {
				logger.LogEvent(ctx, logger.SEED, slog.LevelDebug, "seed.admin_password",
					slog.String("status", "skip"),
					slog.String("reason", "already_set"),
				)
				return nil
			}
			return st.SetAdminPassword(ctx, cfg.Access.AdminPassword)
		},
	}
}

// CoreConfig exposes the shared core sections.
func (a *App) CoreConfig() *coreconfig.Config {
	return a.cfg.CoreConfig()
}

// TelegramRunOptions registers the handlers and assembles routes and
// middleware for the runtime.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	if err := a.bot.Register(reg); err != nil {
		return tg.RunOptions{}, fmt.Errorf("register handlers: %w", err)
	}
	reg.SetCallbackNotFound(a.bot.UnknownCallback())

	admin := a.bot.AdminOptions()
	fallbacks := textOptions(a.bot)
	fallbacks.Admin = admin

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{Admin: admin})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{Admin: admin}))
	routes = append(routes, router.TextRoutes(a.sessions, reg, fallbacks)...)

	core := a.cfg.CoreConfig()
	return tg.RunOptions{
		Config:            core,
		Registry:          reg,
		DispatcherOptions: a.cfg.Sender.DispatcherOptions(),
		AllowedUpdates:    []string{"message", "callback_query"},
		Middlewares: tg.DefaultMiddlewares(core, nil,
			tg.Middleware{Name: "state", Use: state.WithSession(a.sessions)},
		),
		Routes: routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.bot.SetMessenger(rt.Bot)
			return nil
		},
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			return a.Close()
		},
	}, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func textOptions(p ui.FallbackProvider) router.TextOptions {
	return router.TextOptions{
		UnknownText:     p.UnknownText(),
		UnknownDocument: p.UnknownDocument(),
	}
}
