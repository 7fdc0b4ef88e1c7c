// Package bootstrap brings up the process infrastructure in order:
// logging, schema migrations, then the database pool.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/pharmtutor/core/config"
	coredatabase "github.com/m3rciful/pharmtutor/core/database"
	"github.com/m3rciful/pharmtutor/core/logger"
)

var ErrNilConfig = errors.New("bootstrap: nil config")

// Options selects the stages. Nil funcs use the package defaults.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Migrate    func(coredatabase.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
}

// Result is what the stages produced.
type Result struct {
	DB *sqlx.DB
}

// StageError names the stage that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return "bootstrap: " + e.Stage + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

// Run executes the stages. Migrations run before the pool opens so SQLite
// never sees two writers.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, ErrNilConfig
	}
	opts.defaults()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, &StageError{Stage: "logger", Err: err}
	}
	ctx := context.Background()
	start := time.Now()

	if err := opts.Migrate(opts.Database); err != nil {
		return nil, failed(ctx, "migrate", err)
	}
	db, err := opts.Connect(opts.Database)
	if err != nil {
		return nil, failed(ctx, "connect", err)
	}

	logger.L.LogAttrs(ctx, slog.LevelInfo, "bootstrap done",
		slog.String("event", "bootstrap"),
		slog.String("outcome", "ok"),
		slog.String("driver", opts.Database.Driver),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return &Result{DB: db}, nil
}

func (o *Options) defaults() {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
}

func failed(ctx context.Context, stage string, err error) error {
	logger.L.LogAttrs(ctx, slog.LevelError, "bootstrap failed",
		slog.String("event", "bootstrap"),
		slog.String("outcome", "fail"),
		slog.String("stage", stage),
		slog.String("err", err.Error()),
	)
	return &StageError{Stage: stage, Err: err}
}
