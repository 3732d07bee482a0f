package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/m3rciful/accessbot/core/database"
)

func newTestStore(t *testing.T, opts Options) (*Store, database.Config) {
	t.Helper()
	cfg := database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "access.db"),
	}
	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.MinCost
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = 10 * time.Millisecond
	}
	st := New(db, cfg, opts)
	require.NoError(t, st.InitializeSchema(context.Background()))
	return st, cfg
}

func TestInitializeSchemaIdempotent(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t, Options{})

	require.NoError(t, st.InitializeSchema(ctx))
	require.NoError(t, st.InitializeSchema(ctx))

	var rows int
	require.NoError(t, st.db.GetContext(ctx, &rows, `SELECT COUNT(*) FROM admin`))
	assert.Equal(t, 1, rows)
}

func TestVerifyAdminPasswordDefaultEmpty(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t, Options{})

	ok, err := st.VerifyAdminPassword(ctx, "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.VerifyAdminPassword(ctx, "anything")
	require.NoError(t, err)
	assert.False(t, ok)

	set, err := st.AdminPasswordSet(ctx)
	require.NoError(t, err)
	assert.False(t, set)
}

func TestSetAdminPassword(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t, Options{})

	require.NoError(t, st.SetAdminPassword(ctx, "s3cret"))

	ok, err := st.VerifyAdminPassword(ctx, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.VerifyAdminPassword(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok, "empty candidate must fail once a password is set")

	var stored string
	require.NoError(t, st.db.GetContext(ctx, &stored, `SELECT password_hash FROM admin WHERE id = 1`))
	assert.NotEqual(t, "s3cret", stored)

	require.NoError(t, st.SetAdminPassword(ctx, ""))
	ok, err = st.VerifyAdminPassword(ctx, "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterAndApprove(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t, Options{})

	require.NoError(t, st.RegisterUser(ctx, 42, "a@b.com", "pw"))

	approved, err := st.IsApproved(ctx, 42)
	require.NoError(t, err)
	assert.False(t, approved)

	pending, err := st.ListPendingUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PendingUser{{UserID: 42, Email: "a@b.com"}}, pending)

	u, err := st.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.NotEqual(t, "pw", u.PasswordHash)
	assert.False(t, u.ApprovedAt.Valid)

	require.NoError(t, st.ApproveUser(ctx, 42))

	approved, err = st.IsApproved(ctx, 42)
	require.NoError(t, err)
	assert.True(t, approved)

	pending, err = st.ListPendingUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	u, err = st.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.True(t, u.ApprovedAt.Valid)
}

func TestApproveUnknownUserIsNoop(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t, Options{})

	require.NoError(t, st.ApproveUser(ctx, 7))

	_, err := st.GetUser(ctx, 7)
	assert.ErrorIs(t, err, ErrUserNotFound)

	approved, err := st.IsApproved(ctx, 7)
	require.NoError(t, err)
	assert.False(t, approved)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t, Options{})

	require.NoError(t, st.RegisterUser(ctx, 1, "a@b.com", "pw"))
	err := st.RegisterUser(ctx, 1, "other@b.com", "pw2")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLoginOutcomes(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t, Options{})

	require.NoError(t, st.RegisterUser(ctx, 1, "a@b.com", "pw"))

	res, err := st.Login(ctx, "a@b.com", "wrong")
	require.NoError(t, err)
	assert.Equal(t, LoginInvalid, res)

	res, err = st.Login(ctx, "nobody@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, LoginInvalid, res)

	res, err = st.Login(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, LoginPending, res)

	require.NoError(t, st.ApproveUser(ctx, 1))
	res, err = st.Login(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, LoginSuccess, res)
	assert.Equal(t, "success", res.String())
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t, Options{})

	require.NoError(t, st.RegisterUser(ctx, 1, "a@b.com", "pw"))
	require.NoError(t, st.RegisterUser(ctx, 2, "b@b.com", "pw"))
	require.NoError(t, st.RegisterUser(ctx, 3, "c@b.com", "pw"))
	require.NoError(t, st.ApproveUser(ctx, 2))

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Approved: 1, Pending: 2}, stats)
}

func busyErr() error {
	return sqlite3.Error{Code: sqlite3.ErrBusy}
}

func TestWithRetryRecoversFromContention(t *testing.T) {
	st, _ := newTestStore(t, Options{})
	var slept []time.Duration
	st.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	calls := 0
	err := st.withRetry(context.Background(), "test", func() error {
		calls++
		if calls < 5 {
			return busyErr()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, calls)
	assert.Len(t, slept, 4)
	for _, d := range slept {
		assert.Equal(t, 10*time.Millisecond, d)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	st, _ := newTestStore(t, Options{})
	st.sleep = func(context.Context, time.Duration) error { return nil }

	calls := 0
	err := st.withRetry(context.Background(), "test", func() error {
		calls++
		return busyErr()
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreBusy)
	var se sqlite3.Error
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, 5, calls)
}

func TestWithRetryDoesNotRetryOtherErrors(t *testing.T) {
	st, _ := newTestStore(t, Options{})
	boom := errors.New("boom")

	calls := 0
	err := st.withRetry(context.Background(), "test", func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrStoreBusy)
	assert.Equal(t, 1, calls)
}

// holdWriteLock opens an independent connection and keeps a write
// transaction open until the returned release function runs.
func holdWriteLock(t *testing.T, cfg database.Config) (release func()) {
	t.Helper()
	other, err := sql.Open(database.DriverSQLite, cfg.DSN())
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.Close() })

	tx, err := other.Begin()
	require.NoError(t, err)
	_, err = tx.Exec(`INSERT INTO users (user_id, email, password_hash) VALUES (999, 'lock@b.com', 'x')`)
	require.NoError(t, err)

	done := false
	return func() {
		if !done {
			done = true
			assert.NoError(t, tx.Commit())
		}
	}
}

func TestRegisterUserWaitsForLockedStore(t *testing.T) {
	ctx := context.Background()
	st, cfg := newTestStore(t, Options{RetryBackoff: 100 * time.Millisecond})

	release := holdWriteLock(t, cfg)
	timer := time.AfterFunc(150*time.Millisecond, release)
	defer timer.Stop()

	require.NoError(t, st.RegisterUser(ctx, 42, "a@b.com", "pw"))

	pending, err := st.ListPendingUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestRegisterUserFailsWhenLockOutlastsRetries(t *testing.T) {
	ctx := context.Background()
	st, cfg := newTestStore(t, Options{RetryBackoff: 5 * time.Millisecond})

	release := holdWriteLock(t, cfg)
	err := st.RegisterUser(ctx, 42, "a@b.com", "pw")
	release()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreBusy)

	_, err = st.GetUser(ctx, 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
