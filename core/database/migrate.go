package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/pharmtutor/core/logger"
	"github.com/m3rciful/pharmtutor/migrations"
)

const previewFiles = 6

// RunMigrations applies the embedded up migrations for the configured driver.
func RunMigrations(cfg Config) error {
	return RunMigrationsFS(cfg, migrations.FS)
}

// RunMigrationsFS applies the up migrations found in fsys/<driver>.
// Running it against an up-to-date database is a no-op.
func RunMigrationsFS(cfg Config, fsys fs.FS) error {
	if err := cfg.Normalize(); err != nil {
		return err
	}
	ctx := context.Background()

	if cfg.Driver == DriverPostgres {
		// golang-migrate fails fast on a refused connection; wait for the server first.
		db, err := Connect(cfg)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		_ = db.Close()
	}

	upFiles, err := upMigrations(fsys, cfg.Driver)
	if err != nil {
		return fmt.Errorf("migrate: list %s: %w", cfg.Driver, err)
	}
	logger.MIG.LogAttrs(ctx, slog.LevelDebug, "migrations resolved",
		append([]slog.Attr{slog.String("event", "mig.resolve"), slog.String("path", cfg.Driver)},
			fileAttrs(upFiles)...)...)

	src, err := iofs.New(fsys, cfg.Driver)
	if err != nil {
		return migrateFailed(ctx, "source", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.MigrateURL())
	if err != nil {
		return migrateFailed(ctx, "init", err)
	}
	m.Log = migrateLog{ctx: ctx}
	defer m.Close()

	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return migrateFailed(ctx, "version", err)
	}
	if dirty {
		return migrateFailed(ctx, "version", fmt.Errorf("database is dirty at version %d", from))
	}

	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return migrateFailed(ctx, "apply", err)
	}
	to, _, _ := m.Version()
	applied := selectApplied(upFiles, uint64(from), uint64(to))

	logger.MIG.LogAttrs(ctx, slog.LevelInfo, "migrations summary",
		append([]slog.Attr{
			slog.String("event", "mig.summary"),
			slog.String("driver", cfg.Driver),
			slog.Uint64("from_ver", uint64(from)),
			slog.Uint64("to_ver", uint64(to)),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		}, fileAttrs(applied)...)...)
	return nil
}

func migrateFailed(ctx context.Context, stage string, err error) error {
	logger.MIG.LogAttrs(ctx, slog.LevelError, "migration failed",
		slog.String("event", "mig.fail"),
		slog.String("stage", stage),
		slog.String("err", err.Error()),
	)
	return fmt.Errorf("migrate %s: %w", stage, err)
}

// fileAttrs describes a file list as a count plus a short preview.
func fileAttrs(files []string) []slog.Attr {
	attrs := []slog.Attr{slog.Int("files", len(files))}
	preview, truncated := logger.SummarizeStrings(files, previewFiles)
	if preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
	}
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	return attrs
}

// upMigrations lists the *.up.sql names in dir, sorted.
func upMigrations(fsys fs.FS, dir string) ([]string, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.up.sql"))
	if err != nil {
		return nil, err
	}
	for i, n := range names {
		names[i] = path.Base(n)
	}
	slices.Sort(names)
	return names, nil
}

func fileVersion(name string) uint64 {
	head, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(head, 10, 64)
	return v
}

// selectApplied returns the files with versions in (from, to].
func selectApplied(files []string, from, to uint64) []string {
	if to <= from {
		return nil
	}
	var out []string
	for _, f := range files {
		if v := fileVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}

// migrateLog forwards golang-migrate progress lines to the migration logger.
type migrateLog struct {
	ctx context.Context
}

func (l migrateLog) Printf(format string, v ...any) {
	logger.MIG.LogAttrs(l.ctx, slog.LevelDebug, "migrate",
		slog.String("event", "mig.step"),
		slog.String("detail", strings.TrimSpace(fmt.Sprintf(format, v...))),
	)
}

func (migrateLog) Verbose() bool { return false }
