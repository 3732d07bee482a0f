package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/accessbot/core/logger"
	tghelpers "github.com/m3rciful/accessbot/core/telegram/helpers"
	"github.com/m3rciful/accessbot/core/telegram/middleware"
	"github.com/m3rciful/accessbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// summary produces the handler.handled record of one update.
type summary struct {
	c      tele.Context
	start  time.Time
	extras []slog.Attr
}

func newSummary(c tele.Context, extras ...slog.Attr) *summary {
	return &summary{c: c, start: time.Now(), extras: extras}
}

// run names the handler in the request context, runs h and logs the result.
func (s *summary) run(name string, h tele.HandlerFunc) error {
	tghelpers.WithHandler(s.c, name)
	var err error
	if h != nil {
		err = h(s.c)
	}
	s.log(name, logger.Status(err), err)
	return err
}

// skip logs that nothing handled the update.
func (s *summary) skip(name string) {
	s.log(name, "skip", nil)
}

func (s *summary) log(name, status string, err error) {
	ctx := tghelpers.WithHandler(s.c, name)
	msgs, kb := middleware.GetCounters(s.c)
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", name),
		slog.String("outcome", logger.Status(err)),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", time.Since(s.start)),
	}
	if st := state.FromContext(s.c); st != state.StateIdle {
		attrs = append(attrs, slog.String("state", string(st)))
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.TG, level, "handler.handled", append(attrs, s.extras...)...)
}

// wrap applies the middleware every routed handler runs behind.
func wrap(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}

// gate puts h behind the admin check when adminOnly is set.
func gate(h tele.HandlerFunc, adminOnly bool, admin middleware.AdminOptions) tele.HandlerFunc {
	if !adminOnly || h == nil {
		return h
	}
	return middleware.AdminOnlyMiddleware(admin)(h)
}

// handlerName turns a command or callback key into a log-friendly name.
func handlerName(key string) string {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(key, " ", "_"))
}

// deriveErrorCode prefers a Code() method anywhere in the chain, then the
// type name of the innermost error.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var c interface{ Code() string }
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	for next := errors.Unwrap(err); next != nil; next = errors.Unwrap(err) {
		err = next
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
