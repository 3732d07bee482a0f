package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/accessbot/core/logger"
)

// Seeder loads startup data once the schema is current.
type Seeder interface {
	Name() string
	Seed(ctx context.Context, db *sqlx.DB) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc struct {
	ID string
	Fn func(ctx context.Context, db *sqlx.DB) error
}

// Name identifies the seeder in logs.
func (f SeederFunc) Name() string { return f.ID }

// Seed executes the underlying function.
func (f SeederFunc) Seed(ctx context.Context, db *sqlx.DB) error {
	return f.Fn(ctx, db)
}

// Modules groups optional bootstrapping hooks.
type Modules struct {
	Seeders []Seeder
}

func (m Modules) seed(ctx context.Context, db *sqlx.DB) error {
	for _, s := range m.Seeders {
		if s == nil {
			continue
		}
		start := time.Now()
		err := s.Seed(ctx, db)
		logger.LogEvent(ctx, logger.SEED, levelFor(err), "seed.run",
			slog.String("status", logger.Status(err)),
			slog.String("seeder", s.Name()),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
		if err != nil {
			return fmt.Errorf("seeder %s: %w", s.Name(), err)
		}
	}
	return nil
}

func levelFor(err error) slog.Level {
	if err != nil {
		return slog.LevelError
	}
	return slog.LevelInfo
}
