package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/accessbot/core/telegram/teletest"
)

func okHandler(calls *int) tele.HandlerFunc {
	return func(tele.Context) error {
		*calls++
		return nil
	}
}

func TestAdminOnlyByID(t *testing.T) {
	calls, rejected := 0, 0
	h := AdminOnlyMiddleware(AdminOptions{
		AdminID:  7,
		OnReject: func(tele.Context) error { rejected++; return nil },
	})(okHandler(&calls))

	require.NoError(t, h(teletest.NewText(7, "/admin_panel")))
	require.NoError(t, h(teletest.NewText(8, "/admin_panel")))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, rejected)
}

func TestAdminOnlyAuthorizedWins(t *testing.T) {
	calls := 0
	h := AdminOnlyMiddleware(AdminOptions{
		AdminID:    7,
		Authorized: func(c tele.Context) bool { return c.Sender().ID == 9 },
	})(okHandler(&calls))

	require.NoError(t, h(teletest.NewText(7, "x")))
	require.NoError(t, h(teletest.NewText(9, "x")))
	assert.Equal(t, 1, calls)
}

func TestAdminOptionsOpenByDefault(t *testing.T) {
	assert.True(t, AdminOptions{}.Allows(teletest.NewText(1, "x")))
}

func TestRateLimit(t *testing.T) {
	now := time.Unix(1000, 0)
	calls, limited := 0, 0
	h := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
		Now:       func() time.Time { return now },
	})(okHandler(&calls))

	require.NoError(t, h(teletest.NewText(1, "a")))
	require.NoError(t, h(teletest.NewText(1, "b")))
	require.NoError(t, h(teletest.NewText(2, "c")))
	require.NoError(t, h(teletest.NewCallback(1, "approve_users")))
	now = now.Add(2 * time.Second)
	require.NoError(t, h(teletest.NewText(1, "d")))

	assert.Equal(t, 4, calls)
	assert.Equal(t, 1, limited)
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(teletest.NewText(1, "x"))
	assert.True(t, errors.Is(err, ErrPanic))
}

func TestMessageMetrics(t *testing.T) {
	c := teletest.NewText(1, "x")
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		_ = c.Send("one")
		return c.Send("two", &tele.ReplyMarkup{})
	})
	require.NoError(t, h(c))
	msgs, kb := GetCounters(c)
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
}

func TestCommandOf(t *testing.T) {
	assert.Equal(t, "/start", commandOf("/start"))
	assert.Equal(t, "/start", commandOf("/start@accessbot"))
	assert.Equal(t, "/register", commandOf("/register extra"))
	assert.Empty(t, commandOf("a@b.com secret"))
}

func TestSeenUpdatesExpire(t *testing.T) {
	s := &seenUpdates{at: make(map[int]time.Time)}
	now := time.Unix(1_700_000_000, 0)
	assert.True(t, s.first(1, now))
	assert.False(t, s.first(1, now.Add(time.Second)))
	assert.True(t, s.first(2, now.Add(time.Second)))
	assert.True(t, s.first(1, now.Add(seenTTL+time.Second)))
	assert.Len(t, s.order, 2)
}

func TestIntervalLimiterPrunesStale(t *testing.T) {
	lim := &intervalLimiter{interval: time.Second, last: make(map[int64]time.Time)}
	now := time.Unix(1000, 0)
	for id := int64(0); id <= pruneAt; id++ {
		require.True(t, lim.allow(id, now))
	}
	require.Len(t, lim.last, pruneAt+1)

	assert.True(t, lim.allow(-1, now.Add(2*time.Second)))
	assert.Len(t, lim.last, 1)
}
