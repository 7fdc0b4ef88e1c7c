package middleware

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pharmtutor/core/logger"
	tghelpers "github.com/m3rciful/pharmtutor/core/telegram/helpers"
)

// Limiter admits or refuses one update from a user.
type Limiter interface {
	Allow(userID int64) bool
}

// Update kinds, as named in rate_limit.exclude_updates.
const (
	KindCallback    = "callback"
	KindMessage     = "message"
	KindInlineQuery = "inline_query"
	KindOther       = "other"
)

type RateLimitOptions struct {
	Limiter Limiter
	// Exclude lists update kinds that bypass the limiter.
	Exclude map[string]struct{}
	// OnLimited answers a refused update. Its error is logged, not returned.
	OnLimited tele.HandlerFunc
	// Observe sees every decision the limiter makes.
	Observe func(kind string, admitted bool)
}

// UpdateKind classifies the update carried by c.
func UpdateKind(c tele.Context) string {
	switch upd := c.Update(); {
	case upd.Callback != nil:
		return KindCallback
	case upd.Message != nil:
		return KindMessage
	case upd.Query != nil:
		return KindInlineQuery
	default:
		return KindOther
	}
}

// RateLimitMiddleware stops refused updates before any handler runs.
// Updates without a sender and excluded kinds are never counted.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if opts.Limiter == nil || user == nil {
				return next(c)
			}
			kind := UpdateKind(c)
			if _, excluded := opts.Exclude[kind]; excluded {
				return next(c)
			}

			ok := opts.Limiter.Allow(user.ID)
			if opts.Observe != nil {
				opts.Observe(kind, ok)
			}
			if ok {
				return next(c)
			}

			ctx := tghelpers.BuildContext(c)
			logger.Limit.LogAttrs(ctx, slog.LevelWarn, "rate limited",
				slog.String("event", "tg.rate_limit"),
				slog.String("outcome", "rate_limited"),
				slog.String("kind", kind),
			)
			if opts.OnLimited == nil {
				return nil
			}
			if err := opts.OnLimited(c); err != nil {
				logger.Limit.LogAttrs(ctx, slog.LevelDebug, "slow-down notice failed",
					slog.String("event", "tg.rate_limit.notice"),
					slog.String("err", err.Error()),
				)
			}
			return nil
		}
	}
}

// SlowDownNotice shows text as a toast for callbacks and as a reply for messages.
func SlowDownNotice(text string) tele.HandlerFunc {
	return func(c tele.Context) error {
		switch {
		case c.Callback() != nil:
			return c.Respond(&tele.CallbackResponse{Text: text})
		case c.Message() != nil:
			return c.Reply(text)
		}
		return nil
	}
}
