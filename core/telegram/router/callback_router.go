package router

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/pharmtutor/core/telegram"
	"github.com/m3rciful/pharmtutor/core/telegram/callbacks"
	"github.com/m3rciful/pharmtutor/core/telegram/middleware"
)

// CallbackOptions sets the handler for callbacks of unregistered
// namespaces when the registry has none.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute dispatches inline button presses by namespace. Every
// callback is answered once the handler returns; handlers that already
// showed a toast make that answer a no-op.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		defer func() { _ = c.Respond() }()

		ns := callbacks.Namespace(c)
		name := handlerName("callback", ns)
		if h, ok := reg.GetCallback(ns); ok {
			return serve(c, name, h, slog.String("namespace", ns))
		}
		fallback := reg.CallbackNotFound()
		if fallback == nil {
			fallback = opts.NotFound
		}
		return serve(c, name, fallback,
			slog.String("namespace", ns),
			slog.String("cause", "not_found"),
		)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
