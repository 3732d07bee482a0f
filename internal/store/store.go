// Package store persists registered users and the shared admin credential.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/m3rciful/accessbot/core/database"
	"github.com/m3rciful/accessbot/core/logger"
	"github.com/m3rciful/accessbot/internal/auth"
	"github.com/m3rciful/accessbot/migrations"
)

var (
	// ErrUserExists is returned when registering an id that already has a row.
	ErrUserExists = errors.New("store: user already registered")
	// ErrUserNotFound is returned by lookups for unknown ids.
	ErrUserNotFound = errors.New("store: user not found")
	// ErrStoreBusy wraps the last contention error once retries are exhausted.
	ErrStoreBusy = errors.New("store: database busy")
)

const (
	defaultRetryAttempts = 5
	defaultRetryBackoff  = time.Second
)

// Options tunes write retries and hashing.
type Options struct {
	// RetryAttempts bounds attempts of a write that hits lock contention.
	RetryAttempts int
	// RetryBackoff is the fixed pause between attempts.
	RetryBackoff time.Duration
	BcryptCost   int
	// Migrations overrides the embedded schema, mostly for tests.
	Migrations fs.FS
}

// Store is the persistence layer backed by SQLite or PostgreSQL.
type Store struct {
	db   *sqlx.DB
	cfg  database.Config
	opts Options

	sleep func(ctx context.Context, d time.Duration) error
}

// New wraps an open connection pool.
func New(db *sqlx.DB, cfg database.Config, opts Options) *Store {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = defaultRetryAttempts
	}
	if opts.RetryBackoff < 0 {
		opts.RetryBackoff = 0
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = auth.DefaultCost
	}
	if opts.Migrations == nil {
		opts.Migrations = migrations.FS
	}
	return &Store{db: db, cfg: cfg, opts: opts, sleep: sleepContext}
}

// DB exposes the underlying pool for shutdown.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// InitializeSchema creates the tables and the single admin row if missing.
// It is safe to call on every startup.
func (s *Store) InitializeSchema(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := database.RunMigrations(ctx, s.cfg, s.opts.Migrations); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

// withRetry runs fn until it succeeds, fails with a non-contention error, or
// the attempt budget is spent.
func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.opts.RetryAttempts; attempt++ {
		err = fn()
		if err == nil || !isBusy(err) {
			return err
		}
		if attempt == s.opts.RetryAttempts {
			break
		}
		logger.LogEvent(ctx, logger.DB, slog.LevelWarn, "db.busy",
			slog.String("status", "retry"),
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", s.opts.RetryBackoff),
		)
		if werr := s.sleep(ctx, s.opts.RetryBackoff); werr != nil {
			return werr
		}
	}
	return fmt.Errorf("%w: %s gave up after %d attempts: %w", ErrStoreBusy, op, s.opts.RetryAttempts, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isBusy reports lock contention that is worth retrying.
func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		switch pe.Code {
		case "40001", "40P01", "55P03":
			return true
		}
	}
	return false
}

func isDuplicateKey(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}
