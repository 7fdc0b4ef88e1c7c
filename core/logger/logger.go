// Package logger is the structured logging layer: a slog handler writing
// ordered kv or JSON lines through an async writer, component loggers and
// per-update correlation fields carried in context.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/pharmtutor/core/buildinfo"
	coreconfig "github.com/m3rciful/pharmtutor/core/config"
)

var (
	initOnce sync.Once
	closeMu  sync.Mutex
	sink     *asyncWriter
	files    []io.Closer

	levelVar     slog.LevelVar
	debugSampler sampler
	traceAll     bool

	// L is the root logger. Before InitLogger it is slog.Default().
	L *slog.Logger

	// DB logs database connection events.
	DB *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// MIG logs schema migrations.
	MIG *slog.Logger
	// TWire logs Telegram wiring steps.
	TWire *slog.Logger
	// Conv logs conversation routing.
	Conv *slog.Logger
	// Limit logs rate limiter decisions.
	Limit *slog.Logger
	// Store logs progress store activity.
	Store *slog.Logger
	// Content logs catalog loading and reloads.
	Content *slog.Logger
	// Ops logs the health and metrics server.
	Ops *slog.Logger
)

func init() {
	L = slog.Default()
	bindComponents()
	debugSampler.set(1, 50)
}

func bindComponents() {
	DB = Component("db")
	TG = Component("tg")
	MIG = Component("db.migrate")
	TWire = Component("tg.wire")
	Conv = Component("conv")
	Limit = Component("ratelimit")
	Store = Component("store")
	Content = Component("content")
	Ops = Component("ops")
}

// settings is the resolved logging section of the config.
type settings struct {
	level   slog.Level
	format  logFormat
	order   []string
	profile string
	sampleN int
	sampleD int
	file    string
}

func resolve(cfg *coreconfig.Config) settings {
	s := settings{
		level:   slog.LevelInfo,
		format:  formatJSON,
		order:   defaultKeyOrder,
		profile: "prod",
		sampleN: 1,
		sampleD: 50,
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	s.level = parseLevel(lc.Level)
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	if order := splitList(lc.KeysOrder); len(order) > 0 && lc.KeysOrder != "default" {
		s.order = order
	}
	if ratio := strings.TrimSpace(lc.DebugSample); ratio != "" {
		s.sampleN, s.sampleD = parseRatio(ratio)
	}
	if dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && name != "" {
		s.file = filepath.Join(dir, name)
	}
	return s
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// InitLogger installs the structured handler as the slog default and
// rebinds the component loggers. Only the first call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		s := resolve(cfg)
		levelVar.Set(s.level)
		debugSampler.set(s.sampleN, s.sampleD)
		traceAll = truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE"))

		outputs := []io.Writer{os.Stdout}
		if s.file != "" {
			var f *os.File
			if f, err = openLogFile(s.file); err != nil {
				return
			}
			outputs = append(outputs, f)
			files = append(files, f)
		}
		sink = newAsyncWriter(outputs, 0)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   sink,
			format:   s.format,
			keyOrder: s.order,
		}))
		slog.SetDefault(L)
		bindComponents()

		Info(context.Background(), "app", "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", s.profile),
		)
	})
	return err
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return f, nil
}

// Shutdown flushes queued lines and closes log files. Later calls are no-ops.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	var errs []error
	if sink != nil {
		errs = append(errs, sink.Close())
		sink = nil
	}
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	files = nil
	return errors.Join(errs...)
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Component returns L scoped to a component name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With(slog.String("component", name))
}

// LogEvent writes one record with the event attribute first. A nil log
// falls back to the logger carried by ctx.
func LogEvent(ctx context.Context, log *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if log == nil {
		log = FromContext(ctx)
	}
	if log == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	log.LogAttrs(ctx, level, event, attrs...)
}

// Debug logs a debug event for component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

// Info logs an info event for component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

// Warn logs a warning event for component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

// Error logs an error event for component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug record should be
// written. TRACE=1 in the environment admits all of them.
func ShouldSampleDebug() bool {
	return traceAll || debugSampler.allow()
}
