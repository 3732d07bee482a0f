package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/accessbot/core/logger"
	"github.com/m3rciful/accessbot/internal/auth"
)

var errAdminRowMissing = errors.New("store: admin row missing, run migrations")

func (s *Store) adminHash(ctx context.Context) (string, error) {
	var hash string
	if err := s.db.GetContext(ctx, &hash, `SELECT password_hash FROM admin WHERE id = 1`); err != nil {
		return "", fmt.Errorf("load admin credential: %w", err)
	}
	return hash, nil
}

// VerifyAdminPassword checks candidate against the shared admin password.
// While no password is set only the empty candidate matches.
func (s *Store) VerifyAdminPassword(ctx context.Context, candidate string) (bool, error) {
	hash, err := s.adminHash(ctx)
	if err != nil {
		return false, err
	}
	if hash == "" {
		return auth.EqualConstantTime(candidate, ""), nil
	}
	return auth.CheckPassword(hash, candidate), nil
}

// AdminPasswordSet reports whether a non-empty admin password is stored.
func (s *Store) AdminPasswordSet(ctx context.Context) (bool, error) {
	hash, err := s.adminHash(ctx)
	if err != nil {
		return false, err
	}
	return hash != "", nil
}

// SetAdminPassword replaces the admin password. The empty string resets it to
// the unset state.
func (s *Store) SetAdminPassword(ctx context.Context, password string) error {
	hash := ""
	if password != "" {
		if err := auth.Validate(password); err != nil {
			return err
		}
		var err error
		if hash, err = auth.HashPassword(password, s.opts.BcryptCost); err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
	}
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE admin SET password_hash = ?, updated_at = ? WHERE id = 1`),
		hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set admin password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errAdminRowMissing
	}
	logger.LogEvent(ctx, logger.SVCAccess, slog.LevelInfo, "admin.password_set",
		slog.String("status", "ok"),
		slog.Bool("cleared", password == ""),
	)
	return nil
}
