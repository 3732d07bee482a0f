package middleware

import (
	"log/slog"

	"github.com/m3rciful/accessbot/core/logger"
	tghelpers "github.com/m3rciful/accessbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	// AdminID restricts access to one Telegram user when Authorized is nil.
	AdminID int64
	// Authorized decides per update; it takes precedence over AdminID.
	Authorized func(c tele.Context) bool
	OnReject   tele.HandlerFunc
}

// Allows reports whether the sender passes the check. With neither AdminID
// nor Authorized set every sender passes.
func (o AdminOptions) Allows(c tele.Context) bool {
	if o.Authorized != nil {
		return o.Authorized(c)
	}
	if o.AdminID == 0 {
		return true
	}
	sender := c.Sender()
	return sender != nil && sender.ID == o.AdminID
}

// AdminOnlyMiddleware ensures that only authorized senders reach downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.Allows(c) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "admin.reject",
				slog.String("status", "skip"),
				slog.String("reason", "unauthorized"),
			)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
