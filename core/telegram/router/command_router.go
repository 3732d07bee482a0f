package router

import (
	"log/slog"

	"github.com/m3rciful/accessbot/core/logger"
	tg "github.com/m3rciful/accessbot/core/telegram"
	"github.com/m3rciful/accessbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures command routes.
type CommandRouteOptions struct {
	Admin middleware.AdminOptions
}

// CommandRoutes returns one route per registered command.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for name, cmd := range cmds {
		routes = append(routes, tg.Route{
			Endpoint: name,
			Handler:  commandHandler(name, cmd.Handler, cmd.AdminOnly, opts.Admin),
		})
	}
	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

func commandHandler(name string, h tele.HandlerFunc, adminOnly bool, admin middleware.AdminOptions) tele.HandlerFunc {
	h = gate(h, adminOnly, admin)
	return wrap(func(c tele.Context) error {
		return newSummary(c).run(handlerName(name), h)
	})
}
