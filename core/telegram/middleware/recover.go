package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/accessbot/core/logger"
	tghelpers "github.com/m3rciful/accessbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// ErrPanic is returned in place of a recovered handler panic.
var ErrPanic = errors.New("telegram: handler panicked")

// RecoverMiddleware turns a handler panic into ErrPanic so one failing update
// never stops the bot.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
					slog.String("status", "fail"),
					slog.String("err", logger.SanitizeLimit(fmt.Sprint(r), 256)),
					slog.String("stack", string(debug.Stack())),
				)
				err = fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()
		return next(c)
	}
}
