package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/accessbot/core/logger"
	"github.com/m3rciful/accessbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/accessbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const seenTTL = 10 * time.Second

// seenUpdates remembers recently logged update ids so an update routed
// through several wrapped handlers is logged once.
type seenUpdates struct {
	mu    sync.Mutex
	at    map[int]time.Time
	order []int
}

var receipts = &seenUpdates{at: make(map[int]time.Time)}

// first reports whether id was not seen within seenTTL of now.
func (s *seenUpdates) first(id int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.order) > 0 {
		head := s.order[0]
		if now.Sub(s.at[head]) <= seenTTL {
			break
		}
		delete(s.at, head)
		s.order = s.order[1:]
	}
	if _, ok := s.at[id]; ok {
		return false
	}
	s.at[id] = now
	s.order = append(s.order, id)
	return true
}

// LoggerMiddleware binds the request context to c and logs one sampled
// update.received record per update. Message text is never logged since
// conversation steps carry credentials; only the leading command is.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		upd := c.Update()
		if !logger.ShouldSampleDebug() || !receipts.first(upd.ID, time.Now()) {
			return next(c)
		}

		attrs := []slog.Attr{slog.String("status", "ok")}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
		}
		if u := c.Sender(); u != nil && u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		switch {
		case upd.Callback != nil:
			if key, _ := callbacks.ParseCallbackData(upd.Callback); key != "" {
				attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
			}
		case upd.Message != nil:
			if t := c.Text(); t != "" {
				attrs = append(attrs, slog.Int("text_len", len(t)))
				if cmd := commandOf(t); cmd != "" {
					attrs = append(attrs, slog.String("command", cmd))
				}
			}
		}
		logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", attrs...)
		return next(c)
	}
}

// commandOf returns the leading /command of t without arguments or a bot
// mention, or "" for free text.
func commandOf(t string) string {
	if len(t) < 2 || t[0] != '/' {
		return ""
	}
	for i, r := range t {
		if r == ' ' || r == '@' || r == '\n' {
			return t[:i]
		}
	}
	return logger.SanitizeLimit(t, 64)
}
