package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/m3rciful/pharmtutor/core/logger"
)

// DefaultDebounce collapses bursts of file events into one reload.
const DefaultDebounce = 500 * time.Millisecond

// Source hands out the catalog current at call time.
type Source interface {
	Current() *Catalog
}

// Static is a Source that never changes.
type Static struct{ C *Catalog }

// Current returns the wrapped catalog.
func (s Static) Current() *Catalog { return s.C }

// Holder owns the live catalog and swaps it atomically on reload.
type Holder struct {
	path     string
	cur      atomic.Pointer[Catalog]
	onReload func(err error)
}

// HolderOption customises a Holder.
type HolderOption func(*Holder)

// WithReloadHook registers a callback invoked after every reload attempt.
func WithReloadHook(fn func(err error)) HolderOption {
	return func(h *Holder) { h.onReload = fn }
}

// NewHolder loads the catalog at path (embedded when empty).
func NewHolder(path string, opts ...HolderOption) (*Holder, error) {
	h := &Holder{path: path}
	for _, opt := range opts {
		opt(h)
	}
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	h.cur.Store(c)
	logCatalog("catalog loaded", path, c)
	return h, nil
}

// Current returns the live catalog.
func (h *Holder) Current() *Catalog {
	return h.cur.Load()
}

// Path returns the catalog file path; empty means embedded.
func (h *Holder) Path() string {
	return h.path
}

// Reload re-reads the catalog. On failure the previous catalog stays live.
func (h *Holder) Reload() (Counts, error) {
	c, err := Load(h.path)
	if h.onReload != nil {
		h.onReload(err)
	}
	if err != nil {
		logger.Content.Error("catalog reload failed",
			slog.String("event", "content.reload"),
			slog.String("path", h.path),
			slog.String("err", err.Error()),
		)
		return h.Current().Counts(), err
	}
	h.cur.Store(c)
	logCatalog("catalog reloaded", h.path, c)
	return c.Counts(), nil
}

// Watch reloads the catalog whenever its file changes, until ctx is done.
// Events are debounced. The embedded catalog has nothing to watch.
func (h *Holder) Watch(ctx context.Context, debounce time.Duration) error {
	if h.path == "" {
		<-ctx.Done()
		return nil
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("content: watcher: %w", err)
	}
	defer w.Close()

	// editors replace files on save, so watch the directory
	dir := filepath.Dir(h.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("content: watch %s: %w", dir, err)
	}
	target := filepath.Clean(h.path)
	logger.Content.Info("catalog watch started",
		slog.String("event", "content.watch"),
		slog.String("path", target),
	)

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if errors.Is(werr, fsnotify.ErrEventOverflow) {
				timer.Reset(debounce)
				continue
			}
			logger.Content.Warn("catalog watch error",
				slog.String("event", "content.watch"),
				slog.String("err", werr.Error()),
			)
		case <-timer.C:
			_, _ = h.Reload()
		}
	}
}

func logCatalog(msg, path string, c *Catalog) {
	n := c.Counts()
	if path == "" {
		path = "embedded"
	}
	logger.Content.Info(msg,
		slog.String("event", "content.load"),
		slog.String("path", path),
		slog.Int("catalog_items", n.Drugs+n.Questions+n.Cases+n.Interactions+n.Glossary+n.Neurotransmitters+n.Tips),
	)
}
