package middleware

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pharmtutor/core/logger"
	tghelpers "github.com/m3rciful/pharmtutor/core/telegram/helpers"
)

// AdminOptions configures the admin gate. A nil IsAdmin admits nobody.
type AdminOptions struct {
	IsAdmin  func(userID int64) bool
	OnReject tele.HandlerFunc
}

// Guard returns h as is for public commands and gated by AdminOnly otherwise.
func Guard(opts AdminOptions, adminOnly bool, h tele.HandlerFunc) tele.HandlerFunc {
	if !adminOnly {
		return h
	}
	return AdminOnly(opts)(h)
}

// AdminOnly lets only admins through. Everyone else gets OnReject, if set,
// and a warning in the log.
func AdminOnly(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user != nil && opts.IsAdmin != nil && opts.IsAdmin(user.ID) {
				return next(c)
			}
			ctx := tghelpers.BuildContext(c)
			logger.TG.LogAttrs(ctx, slog.LevelWarn, "admin command refused",
				slog.String("event", "admin.denied"),
				slog.String("outcome", "noop"),
				slog.String("text", logger.SanitizeLimit(c.Text(), 64)),
			)
			if opts.OnReject == nil {
				return nil
			}
			return opts.OnReject(c)
		}
	}
}
