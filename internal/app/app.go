// Package app assembles the bot: configuration, database, content, progress
// store, conversation flows, Telegram wiring and background workers.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	corebootstrap "github.com/m3rciful/pharmtutor/core/bootstrap"
	corecmd "github.com/m3rciful/pharmtutor/core/cmd"
	"github.com/m3rciful/pharmtutor/core/logger"
	"github.com/m3rciful/pharmtutor/core/ratelimit"
	tg "github.com/m3rciful/pharmtutor/core/telegram"
	"github.com/m3rciful/pharmtutor/core/telegram/middleware"
	"github.com/m3rciful/pharmtutor/core/telegram/router"
	"github.com/m3rciful/pharmtutor/core/telegram/sender"
	"github.com/m3rciful/pharmtutor/core/telegram/state"
	"github.com/m3rciful/pharmtutor/core/telegram/ui"
	"github.com/m3rciful/pharmtutor/internal/chat"
	"github.com/m3rciful/pharmtutor/internal/content"
	"github.com/m3rciful/pharmtutor/internal/conversation"
	"github.com/m3rciful/pharmtutor/internal/metrics"
	"github.com/m3rciful/pharmtutor/internal/ops"
	"github.com/m3rciful/pharmtutor/internal/progress"
	"github.com/m3rciful/pharmtutor/internal/tutor"
)

const (
	sweepInterval   = time.Minute
	janitorInterval = 10 * time.Minute
)

// App holds the assembled bot.
type App struct {
	cfg     *Config
	db      *sqlx.DB
	metrics *metrics.Collector
	store   *progress.Store
	content *content.Holder
	limiter *ratelimit.Window
	bot     *chat.Bot
	ops     *ops.Server

	cancel context.CancelFunc
	group  *errgroup.Group
}

var _ corecmd.TelegramApp = (*App)(nil)

// Bootstrap initialises logging, connects and migrates the database, then
// builds the app.
func Bootstrap(cfg *Config) (*App, error) {
	res, err := corebootstrap.Run(corebootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	a, err := New(cfg, res.DB)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	return a, nil
}

// New builds the app over an open, migrated database.
func New(cfg *Config, db *sqlx.DB) (*App, error) {
	m := metrics.New()

	holder, err := content.NewHolder(cfg.Content.Path, content.WithReloadHook(m.ObserveReload))
	if err != nil {
		return nil, fmt.Errorf("app: content: %w", err)
	}

	store := progress.NewStore(db, progress.Options{Observe: m.ObserveStore})

	limiter := ratelimit.New(ratelimit.Options{
		Limit:  cfg.RateLimit.Limit,
		Window: cfg.RateLimit.Window(),
	})

	tu := tutor.New(tutor.Options{
		Content: holder,
		Store:   store,
		Observe: func(s conversation.State, o conversation.Outcome, took time.Duration) {
			m.ObserveTurn(string(s), string(o), took)
		},
	})

	bot := chat.New(chat.Options{
		Router:     tu.Router(),
		Decode:     tutor.Decode,
		Sessions:   state.NewMemoryStore[conversation.Session](),
		Namespaces: tutor.Namespaces(),
		Admin:      tu,
		Reload:     holder.Reload,
	})

	m.GaugeFunc("sessions", "Conversation sessions held in memory.", func() float64 { return float64(bot.Sessions()) })
	m.GaugeFunc("ratelimit_tracked_users", "Users with admissions inside the rate window.", func() float64 { return float64(limiter.Tracked()) })

	return &App{
		cfg:     cfg,
		db:      db,
		metrics: m,
		store:   store,
		content: holder,
		limiter: limiter,
		bot:     bot,
		ops:     ops.New(ops.Options{Listen: cfg.Ops.Listen, Store: store, Metrics: m.Handler()}),
	}, nil
}

// TelegramRunOptions wires the registry, middlewares and routes and hooks
// the background workers into the bot lifecycle.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := &a.cfg.Config

	reg := tg.NewRegistry()
	a.bot.Register(reg)

	var fallback ui.FallbackProvider = a.bot
	routes := router.TextRoutes(a.bot, reg, router.TextOptions{
		UnknownText:     fallback.UnknownText(),
		UnknownDocument: fallback.UnknownDocument(),
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{NotFound: fallback.UnknownCallback()}))
	routes = append(routes, router.CommandRoutes(reg, router.CommandRouteOptions{
		IsAdmin:       core.IsAdmin,
		OnAdminReject: chat.AdminReject,
	})...)

	return tg.RunOptions{
		Config:   core,
		Registry: reg,
		DispatcherOptions: sender.Options{
			QueueSize:    256,
			Workers:      4,
			MaxRetries:   2,
			RetryBackoff: 300 * time.Millisecond,
			MaxDuration:  10 * time.Second,
			Observe:      a.metrics.ObserveSend,
		},
		Middlewares: tg.DefaultMiddlewares(core, tg.MiddlewareOptions{
			Limiter:   a.limiter,
			OnLimited: middleware.SlowDownNotice(chat.SlowDown),
			Observe:   a.metrics.ObserveUpdate,
		}),
		Routes:  routes,
		OnStart: a.start,
		OnStop:  a.stop,
	}, nil
}

// start launches the background workers. They stop with ctx or on stop.
func (a *App) start(ctx context.Context, _ tg.Runtime) error {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	a.cancel, a.group = cancel, g

	g.Go(func() error { return a.ops.Run(gctx) })
	if a.cfg.Content.Watch {
		g.Go(func() error { return a.content.Watch(gctx, content.DefaultDebounce) })
	}
	g.Go(func() error {
		a.limiter.RunSweeper(gctx, sweepInterval)
		return nil
	})
	g.Go(func() error {
		a.bot.EvictIdle(gctx, a.cfg.Session.IdleTTL(), janitorInterval)
		return nil
	})

	logger.L.LogAttrs(ctx, slog.LevelInfo, "workers started",
		slog.String("event", "app.workers"),
		slog.Bool("ops", a.cfg.Ops.Listen != ""),
		slog.Bool("content_watch", a.cfg.Content.Watch),
	)
	return nil
}

// stop halts the workers and closes the database.
func (a *App) stop(context.Context, tg.Runtime) error {
	var err error
	if a.cancel != nil {
		a.cancel()
		err = a.group.Wait()
	}
	if cerr := a.db.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("app: close db: %w", cerr)
	}
	return err
}
