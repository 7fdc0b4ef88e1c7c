// Package ratelimit implements the per-user sliding window admission check.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of events admitted per user within one window.
	DefaultLimit = 30
	// DefaultWindow is the length of the sliding window.
	DefaultWindow = 60 * time.Second
)

// Clock returns the current instant. Tests substitute a fake.
type Clock func() time.Time

// Options configure a Window.
type Options struct {
	Limit  int
	Window time.Duration
	Now    Clock
}

// Window admits at most Limit events per user in any trailing Window.
// The zero value is not usable; construct with New.
type Window struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    Clock
	hits   map[int64][]time.Time
}

// New builds a limiter, filling defaults for zero options.
func New(opts Options) *Window {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Window{
		limit:  opts.Limit,
		window: opts.Window,
		now:    opts.Now,
		hits:   make(map[int64][]time.Time),
	}
}

// Limit reports the configured per-window limit.
func (w *Window) Limit() int { return w.limit }

// Span reports the configured window length.
func (w *Window) Span() time.Duration { return w.window }

// Allow records an event for userID at the limiter's clock and reports whether it is admitted.
func (w *Window) Allow(userID int64) bool {
	return w.AllowAt(userID, w.now())
}

// AllowAt is Allow with an explicit instant.
// Timestamps with now-t >= window are pruned first; the event is admitted
// and recorded only while fewer than limit timestamps remain.
func (w *Window) AllowAt(userID int64, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	live := prune(w.hits[userID], now, w.window)
	if len(live) >= w.limit {
		w.hits[userID] = live
		return false
	}
	w.hits[userID] = append(live, now)
	return true
}

// Remaining reports how many more events userID may send at now.
func (w *Window) Remaining(userID int64, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	live := prune(w.hits[userID], now, w.window)
	if len(live) == 0 {
		delete(w.hits, userID)
	} else {
		w.hits[userID] = live
	}
	return w.limit - len(live)
}

// Sweep drops users whose timestamps have all expired and returns how many were removed.
func (w *Window) Sweep(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	removed := 0
	for id, ts := range w.hits {
		live := prune(ts, now, w.window)
		if len(live) == 0 {
			delete(w.hits, id)
			removed++
			continue
		}
		w.hits[id] = live
	}
	return removed
}

// Tracked reports the number of users with retained timestamps.
func (w *Window) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.hits)
}

// prune keeps timestamps younger than window, reusing the backing array.
func prune(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if now.Sub(t) < window {
			kept = append(kept, t)
		}
	}
	return kept
}

// RunSweeper calls Sweep every interval until ctx is done.
func (w *Window) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = w.window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(w.now())
		}
	}
}
