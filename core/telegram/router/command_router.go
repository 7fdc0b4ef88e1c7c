package router

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pharmtutor/core/logger"
	tg "github.com/m3rciful/pharmtutor/core/telegram"
	"github.com/m3rciful/pharmtutor/core/telegram/middleware"
)

// CommandRouteOptions decides who may run admin-only commands.
type CommandRouteOptions struct {
	IsAdmin       func(userID int64) bool
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes binds every registered command to its slash endpoint.
// Admin-only commands pass through the admin check first.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	admin := middleware.AdminOptions{IsAdmin: opts.IsAdmin, OnReject: opts.OnAdminReject}

	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for _, cmd := range cmds {
		name := handlerName("", cmd.Name)
		guarded := middleware.Guard(admin, cmd.AdminOnly, cmd.Handler)
		h := func(c tele.Context) error { return serve(c, name, guarded) }
		routes = append(routes, tg.Route{
			Endpoint: cmd.Name,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(h)),
		})
	}
	logger.TWire.LogAttrs(context.Background(), slog.LevelInfo, "routes wired",
		slog.String("event", "tg.wire"),
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
