// Package cmd runs a Telegram app from its config file until SIGINT or
// SIGTERM.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/pharmtutor/core/config"
	"github.com/m3rciful/pharmtutor/core/logger"
	coretelegram "github.com/m3rciful/pharmtutor/core/telegram"
)

// ConfigCarrier is an app config embedding the core config.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp supplies the options the bot runs with.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options wires the app into Run.
type Options struct {
	ConfigPath string
	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(cfg ConfigCarrier) (TelegramApp, error)

	// RunTelegram replaces coretelegram.RunTelegram, for tests.
	RunTelegram func(ctx context.Context, opts coretelegram.RunOptions) error
	// Signals replaces the process signal context, for tests.
	Signals func() (context.Context, context.CancelFunc)
}

// Run loads the config, bootstraps the app and serves updates. The logger
// is flushed on return.
func Run(opts Options) error {
	if opts.LoadConfig == nil || opts.Bootstrap == nil {
		return errors.New("cmd: LoadConfig and Bootstrap are required")
	}
	if opts.ConfigPath == "" {
		return errors.New("cmd: config path not provided")
	}
	startedAt := time.Now()

	cfg, err := opts.LoadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("cmd: load config %s: %w", opts.ConfigPath, err)
	}
	if cfg.CoreConfig() == nil {
		return errors.New("cmd: loaded config is missing core configuration")
	}
	app, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
		}
	}()

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options: %w", err)
	}
	announce(&runOpts, startedAt)

	signals := opts.Signals
	if signals == nil {
		signals = func() (context.Context, context.CancelFunc) {
			return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		}
	}
	ctx, cancel := signals()
	defer cancel()

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

// announce logs readiness after the app's own OnStart and the shutdown
// before its OnStop.
func announce(o *coretelegram.RunOptions, startedAt time.Time) {
	appStart, appStop := o.OnStart, o.OnStop
	o.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if appStart != nil {
			if err := appStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready", slog.Duration("startup_duration", time.Since(startedAt)))
		return nil
	}
	o.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown")
		if appStop != nil {
			return appStop(ctx, rt)
		}
		return nil
	}
}
