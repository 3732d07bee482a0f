package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/accessbot/core/logger"
)

const readyTimeout = 30 * time.Second

// RunMigrations brings the schema to the newest up migration found at the
// root of fsys. A schema that is already current is not an error.
func RunMigrations(ctx context.Context, cfg Config, fsys fs.FS) error {
	if err := cfg.Normalize(); err != nil {
		return err
	}
	if err := ensureDir(cfg); err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	err := WaitReady(waitCtx, cfg)
	cancel()
	if err != nil {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "db.migrate",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("database not ready: %w", err)
	}

	plan := scanMigrations(fsys)
	plan.log(ctx, cfg.Driver)

	src, err := iofs.New(fsys, ".")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.MigrateURL())
	if err != nil {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "db.migrate",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("initialize migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.LogEvent(ctx, logger.MIG, slog.LevelWarn, "db.migrate.close",
				slog.String("status", "fail"),
				slog.Any("err", errors.Join(srcErr, dbErr)),
			)
		}
	}()

	from, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := logger.RoundMS(time.Since(start))
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "apply",
			slog.String("status", "fail"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", took),
		)
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	to, _, _ := m.Version()

	logger.LogEvent(ctx, logger.MIG, slog.LevelInfo, "summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", plan.between(uint64(from), uint64(to))),
		slog.Duration("duration", took),
	)
	return nil
}

// migrationFile is one *.up.sql file and the version its name starts with.
type migrationFile struct {
	version uint64
	name    string
}

type migrationPlan []migrationFile

func scanMigrations(fsys fs.FS) migrationPlan {
	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil
	}
	plan := make(migrationPlan, 0, len(names))
	for _, name := range names {
		prefix, _, _ := strings.Cut(name, "_")
		v, _ := strconv.ParseUint(prefix, 10, 64)
		plan = append(plan, migrationFile{version: v, name: name})
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].version < plan[j].version })
	return plan
}

// between counts the files with from < version <= to.
func (p migrationPlan) between(from, to uint64) int {
	n := 0
	for _, f := range p {
		if f.version > from && f.version <= to {
			n++
		}
	}
	return n
}

func (p migrationPlan) log(ctx context.Context, driver string) {
	names := make([]string, len(p))
	for i, f := range p {
		names[i] = f.name
	}
	preview, truncated := logger.SummarizeStrings(names, 6)
	logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "resolve",
		slog.String("driver", driver),
		slog.Int("files_total", len(p)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)
}
