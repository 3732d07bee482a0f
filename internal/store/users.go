package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/accessbot/core/logger"
	"github.com/m3rciful/accessbot/internal/auth"
)

// User is a registered channel member candidate.
type User struct {
	UserID       int64        `db:"user_id"`
	Email        string       `db:"email"`
	PasswordHash string       `db:"password_hash"`
	Approved     bool         `db:"approved"`
	Subscribed   bool         `db:"subscribed"`
	CreatedAt    time.Time    `db:"created_at"`
	ApprovedAt   sql.NullTime `db:"approved_at"`
}

// PendingUser is a registered user still waiting for approval.
type PendingUser struct {
	UserID int64  `db:"user_id"`
	Email  string `db:"email"`
}

// Stats summarizes the access list.
type Stats struct {
	Approved int `db:"approved"`
	Pending  int `db:"pending"`
}

// LoginResult is the outcome of an email/password lookup.
type LoginResult int

const (
	LoginInvalid LoginResult = iota
	LoginPending
	LoginSuccess
)

func (r LoginResult) String() string {
	switch r {
	case LoginPending:
		return "pending"
	case LoginSuccess:
		return "success"
	default:
		return "invalid"
	}
}

// RegisterUser stores a new, unapproved user. Lock contention is retried with
// a fixed backoff; a duplicate id yields ErrUserExists.
func (s *Store) RegisterUser(ctx context.Context, userID int64, email, password string) error {
	email = strings.TrimSpace(email)
	if err := auth.Validate(password); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password, s.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	query := s.q(`INSERT INTO users (user_id, email, password_hash, approved, subscribed, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	start := time.Now()
	err = s.withRetry(ctx, "register_user", func() error {
		_, execErr := s.db.ExecContext(ctx, query, userID, email, hash, false, false, time.Now().UTC())
		return execErr
	})
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("register user %d: %w", userID, ErrUserExists)
		}
		return fmt.Errorf("register user %d: %w", userID, err)
	}

	logger.LogEvent(ctx, logger.SVCAccess, slog.LevelInfo, "user.registered",
		slog.String("status", "ok"),
		slog.Int64("target_user_id", userID),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// ApproveUser marks the user approved. Unknown ids are ignored.
func (s *Store) ApproveUser(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE users SET approved = ?, approved_at = ? WHERE user_id = ?`),
		true, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("approve user %d: %w", userID, err)
	}
	n, _ := res.RowsAffected()
	logger.LogEvent(ctx, logger.SVCAccess, slog.LevelInfo, "user.approved",
		slog.String("status", "ok"),
		slog.Int64("target_user_id", userID),
		slog.Int64("count", n),
	)
	return nil
}

// IsApproved is false for unknown ids.
func (s *Store) IsApproved(ctx context.Context, userID int64) (bool, error) {
	var approved bool
	err := s.db.GetContext(ctx, &approved, s.q(`SELECT approved FROM users WHERE user_id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is approved %d: %w", userID, err)
	}
	return approved, nil
}

// GetUser loads a single user by Telegram id.
func (s *Store) GetUser(ctx context.Context, userID int64) (User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.q(`
		SELECT user_id, email, password_hash, approved, subscribed, created_at, approved_at
		FROM users WHERE user_id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user %d: %w", userID, err)
	}
	return u, nil
}

// GetUserByTelegramID satisfies the helpers.CurrentUser lookup contract.
func (s *Store) GetUserByTelegramID(ctx context.Context, tgID int64) (User, error) {
	return s.GetUser(ctx, tgID)
}

// ListPendingUsers returns users awaiting approval, oldest first.
func (s *Store) ListPendingUsers(ctx context.Context) ([]PendingUser, error) {
	var users []PendingUser
	err := s.db.SelectContext(ctx, &users,
		s.q(`SELECT user_id, email FROM users WHERE approved = ? ORDER BY created_at, user_id`), false)
	if err != nil {
		return nil, fmt.Errorf("list pending users: %w", err)
	}
	return users, nil
}

// Login checks the credentials against every account registered with email.
func (s *Store) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var rows []struct {
		PasswordHash string `db:"password_hash"`
		Approved     bool   `db:"approved"`
	}
	err := s.db.SelectContext(ctx, &rows,
		s.q(`SELECT password_hash, approved FROM users WHERE email = ? ORDER BY created_at, user_id`),
		strings.TrimSpace(email))
	if err != nil {
		return LoginInvalid, fmt.Errorf("login lookup: %w", err)
	}
	for _, r := range rows {
		if !auth.CheckPassword(r.PasswordHash, password) {
			continue
		}
		if r.Approved {
			return LoginSuccess, nil
		}
		return LoginPending, nil
	}
	return LoginInvalid, nil
}

// Stats counts approved and pending users.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.GetContext(ctx, &st, `
		SELECT
			COALESCE(SUM(CASE WHEN approved THEN 1 ELSE 0 END), 0) AS approved,
			COALESCE(SUM(CASE WHEN approved THEN 0 ELSE 1 END), 0) AS pending
		FROM users`)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}
