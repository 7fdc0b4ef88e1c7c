package telegram

import (
	"strings"

	coreconfig "github.com/m3rciful/pharmtutor/core/config"
	"github.com/m3rciful/pharmtutor/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MiddlewareOptions carries the collaborators of the shared middleware chain.
type MiddlewareOptions struct {
	Limiter   middleware.Limiter
	OnLimited tele.HandlerFunc
	Observe   func(kind string, admitted bool)
}

// DefaultMiddlewares builds the shared middleware chain for bots.
// Order: recover, rate limit, per-user serialisation, logger, reply tally.
func DefaultMiddlewares(cfg *coreconfig.Config, opts MiddlewareOptions) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}

	if cfg != nil && opts.Limiter != nil {
		ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, t := range cfg.RateLimit.ExcludeUpdates {
			ex[strings.ToLower(t)] = struct{}{}
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Limiter:   opts.Limiter,
				Exclude:   ex,
				OnLimited: opts.OnLimited,
				Observe:   opts.Observe,
			}),
		})
	}

	mws = append(mws,
		Middleware{Name: "serialize", Use: middleware.SerializePerUser()},
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "replies", Use: middleware.ReplyTally},
	)

	return mws
}
