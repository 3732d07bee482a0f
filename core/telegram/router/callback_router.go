package router

import (
	"log/slog"

	"github.com/m3rciful/accessbot/core/logger"
	tg "github.com/m3rciful/accessbot/core/telegram"
	"github.com/m3rciful/accessbot/core/telegram/callbacks"
	"github.com/m3rciful/accessbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions configures the callback route. NotFound defaults to the
// registry's unknown-callback handler.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
	Admin    middleware.AdminOptions
}

// CallbackRoute routes every callback query through reg. A query the
// handler left unanswered gets an empty answer so the client stops its
// spinner.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		defer func() { _ = callbacks.Answer(c, "") }()

		key, payload := callbacks.ParseCallbackData(c.Callback())
		extras := []slog.Attr{slog.String("cb_key", logger.SanitizeLimit(key, 128))}
		if payload != "" {
			extras = append(extras, slog.String("payload", logger.SanitizeLimit(payload, 128)))
		}
		name := "callback." + handlerName(key)

		cb, ok := reg.GetCallback(key)
		if !ok || cb.Handler == nil {
			h := opts.NotFound
			if h == nil {
				h = reg.CallbackNotFound()
			}
			return newSummary(c, append(extras, slog.String("reason", "not_found"))...).run(name, h)
		}
		return newSummary(c, extras...).run(name, gate(cb.Handler, cb.AdminOnly, opts.Admin))
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: wrap(handler)}
}
