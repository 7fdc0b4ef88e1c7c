package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/pharmtutor/core/config"
	"github.com/m3rciful/pharmtutor/core/logger"
	tghelpers "github.com/m3rciful/pharmtutor/core/telegram/helpers"
	tgsender "github.com/m3rciful/pharmtutor/core/telegram/sender"
)

// Middleware is a named global middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds a handler to a telebot endpoint: a command string or one of
// the tele.On* constants.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions configures RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	// DispatcherOptions configures the send pool unless Dispatcher is set.
	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	// KeepWebhook skips removing a stale webhook before long polling.
	KeepWebhook bool

	// OnStart runs after wiring and before polling; an error aborts the run.
	OnStart func(ctx context.Context, rt Runtime) error
	// OnStop runs after polling stopped and before the send pool drains.
	OnStop func(ctx context.Context, rt Runtime) error
}

// Runtime is what lifecycle hooks get to see of the running bot.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot, wires middlewares and routes, and serves
// updates until ctx is cancelled. Cancellation is a clean stop.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	cfg := opts.Config
	if cfg == nil {
		return errors.New("telegram: nil config provided")
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	start := time.Now()
	poller := newPoller(cfg)
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: newHTTPClient(pollTimeout(cfg)),
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logMode(ctx, cfg, poller, time.Since(start))

	if cfg.Telegram.RunMode == coreconfig.RunModeLongpoll && !opts.KeepWebhook {
		if err := bot.RemoveWebhook(false); err != nil {
			logger.TG.LogAttrs(ctx, slog.LevelWarn, "failed to delete webhook",
				slog.String("event", "delete_webhook"),
				slog.String("err", err.Error()),
			)
		}
	}

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	tghelpers.SetDispatcher(dispatcher)
	defer func() {
		dispatcher.Close()
		tghelpers.SetDispatcher(nil)
	}()

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	InitBotCommands(bot, reg)

	rt := Runtime{Bot: bot, Dispatcher: dispatcher, Registry: reg}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			// OnStop still releases what the app acquired before the failure.
			if opts.OnStop != nil {
				err = errors.Join(err, opts.OnStop(context.WithoutCancel(ctx), rt))
			}
			return err
		}
	}

	polling := make(chan struct{})
	go func() {
		defer close(polling)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-polling
	case <-polling:
	}

	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func logMode(ctx context.Context, cfg *coreconfig.Config, poller tele.Poller, took time.Duration) {
	attrs := []slog.Attr{
		slog.String("event", "mode"),
		slog.Duration("duration", took),
	}
	if wh, ok := poller.(*tele.Webhook); ok {
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
		)
	} else {
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Duration("poll_timeout", pollTimeout(cfg)),
		)
	}
	logger.TG.LogAttrs(ctx, slog.LevelInfo, "telegram mode", attrs...)
}
