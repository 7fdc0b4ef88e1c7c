package router

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/pharmtutor/core/telegram"
	"github.com/m3rciful/pharmtutor/core/telegram/middleware"
)

// FSM is a multi-step flow that claims the text of users it is serving.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions sets the handlers for messages nothing else claimed.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes routes plain text and documents. Text goes to the FSM when the
// sender is mid-flow, else to a public command named by the text, else to
// the registry's text fallback, else to UnknownText. Documents go to the FSM
// or UnknownDocument.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	inFlow := func(c tele.Context) bool {
		user := c.Sender()
		return fsm != nil && user != nil && fsm.InProgress(user.ID)
	}

	onText := func(c tele.Context) error {
		if inFlow(c) {
			return serve(c, "fsm", fsm.ManagerHandler)
		}
		if reg != nil {
			// Admin commands are reachable only through their command route.
			if cmd, ok := reg.LookupCommand(c.Text()); ok && !cmd.AdminOnly {
				return serve(c, handlerName("", cmd.Name), cmd.Handler)
			}
			if fb := reg.TextFallback(); fb != nil {
				return serve(c, "fallback", fb)
			}
		}
		return serve(c, "unknown_text", opts.UnknownText)
	}

	onDocument := func(c tele.Context) error {
		if inFlow(c) {
			return serve(c, "fsm_document", fsm.ManagerHandler)
		}
		return serve(c, "unexpected_document", opts.UnknownDocument)
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(onText)},
		{Endpoint: tele.OnDocument, Handler: wrap(onDocument)},
	}
}
