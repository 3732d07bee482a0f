package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/accessbot/core/logger"
	tghelpers "github.com/m3rciful/accessbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// pruneAt is the number of tracked users above which stale entries are
// dropped on the next call.
const pruneAt = 1024

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude holds update kinds ("callback", "message", "inline_query")
	// that are never limited.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Now overrides the clock in tests.
	Now func() time.Time
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// intervalLimiter admits one update per user per interval.
type intervalLimiter struct {
	interval time.Duration
	mu       sync.Mutex
	last     map[int64]time.Time
}

func (l *intervalLimiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.last) > pruneAt {
		for id, ts := range l.last {
			if now.Sub(ts) >= l.interval {
				delete(l.last, id)
			}
		}
	}
	if ts, ok := l.last[userID]; ok && now.Sub(ts) < l.interval {
		return false
	}
	l.last[userID] = now
	return true
}

// RateLimitMiddleware drops updates that arrive from a user sooner than
// Interval after their previous one. OnLimited, if set, runs for each
// dropped update.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	lim := &intervalLimiter{interval: opts.Interval, last: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := updateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip || lim.allow(user.ID, now()) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "skip"),
				slog.String("kind", kind),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
