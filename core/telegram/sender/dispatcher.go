// Package sender runs outbound Bot API calls on a bounded worker pool with
// retries, so handlers return before Telegram answers. Jobs for one chat
// always land on the same worker and run in the order they were queued.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/pharmtutor/core/logger"
	"github.com/m3rciful/pharmtutor/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned by Enqueue when every slot is taken.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options sizes the pool and bounds retrying. Zero values take defaults.
type Options struct {
	// QueueSize is split evenly between the workers' queues.
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds one job across all of its attempts.
	MaxDuration time.Duration
	// Observe receives every finished job: its action, the attempts made
	// and the final error.
	Observe func(action string, attempts int, err error)
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes queued calls on a fixed set of workers, each
// draining its own queue.
type Dispatcher struct {
	opts Options

	mu     sync.RWMutex
	closed bool
	lanes  []chan job
	next   atomic.Uint64
	wg     sync.WaitGroup
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, lanes: make([]chan job, opts.Workers)}
	size := max(opts.QueueSize/opts.Workers, 1)
	d.wg.Add(opts.Workers)
	for i := range d.lanes {
		lane := make(chan job, size)
		d.lanes[i] = lane
		go func() {
			defer d.wg.Done()
			for j := range lane {
				d.execute(j)
			}
		}()
	}
	return d
}

// lane picks the worker queue for ctx: by chat, then by user, and round
// robin for calls that carry neither.
func (d *Dispatcher) lane(ctx context.Context) chan job {
	f := logger.FieldsFrom(ctx)
	key := f.ChatID
	if key == 0 {
		key = f.UserID
	}
	n := uint64(len(d.lanes))
	if key == 0 {
		return d.lanes[d.next.Add(1)%n]
	}
	return d.lanes[uint64(key)%n]
}

// Enqueue schedules run without blocking. run may be called more than once
// and must tolerate that. Calls sharing a chat in ctx run one at a time in
// the order they were queued.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.lane(ctx) <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for the queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, lane := range d.lanes {
			close(lane)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) execute(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts, err := d.attempt(ctx, j)
	if d.opts.Observe != nil {
		d.opts.Observe(j.action, attempts, err)
	}

	level, event := slog.LevelDebug, "send.done"
	attrs := []slog.Attr{
		slog.String("action", j.action),
		slog.String("endpoint", j.endpoint),
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		level, event = slog.LevelError, "send.fail"
		attrs = append(attrs,
			slog.String("status", "fail"),
			slog.String("err", tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")),
			slog.String("error_kind", netutil.Kind(err)),
		)
	}
	logger.TG.LogAttrs(j.ctx, level, event, append([]slog.Attr{slog.String("event", event)}, attrs...)...)
}

// attempt calls j.run until it succeeds, fails for good or ctx expires.
func (d *Dispatcher) attempt(ctx context.Context, j job) (int, error) {
	limit := d.opts.MaxRetries + 1
	var err error
	for n := 1; ; n++ {
		if err = j.run(); err == nil {
			return n, nil
		}
		delay, retry := netutil.Backoff(err, n, d.opts.RetryBackoff)
		if !retry || n == limit {
			return n, err
		}
		logger.TG.LogAttrs(j.ctx, slog.LevelDebug, "send.retry",
			slog.String("event", "send.retry"),
			slog.String("action", j.action),
			slog.Int("attempt", n),
			slog.Duration("delay", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return n, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}
