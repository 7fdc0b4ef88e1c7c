package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"time"

	"github.com/m3rciful/pharmtutor/core/logger"
)

// TextHandler handles free text in a state.
type TextHandler func(ctx context.Context, t Turn, cur Session, text string) (Result, error)

// ActionHandler handles a decoded callback in a state.
type ActionHandler func(ctx context.Context, t Turn, cur Session, act Action) (Result, error)

// Route lists what a state accepts.
type Route struct {
	Text TextHandler
	// Actions maps a namespace to its handler.
	Actions map[string]ActionHandler
	// Default receives actions whose namespace is not in Actions, and
	// undecodable callbacks wrapped in Raw.
	Default ActionHandler
}

// Outcome classifies a dispatched event.
type Outcome string

const (
	// Handled means a handler ran and its result was committed.
	Handled Outcome = "ok"
	// Unmatched means the state had no handler; the session is unchanged.
	Unmatched Outcome = "noop"
	// Restarted means the restart command reset the session.
	Restarted Outcome = "restart"
	// Faulted means a handler failed; the prior session is kept.
	Faulted Outcome = "fault"
)

// Dispatch is the result of routing one event.
type Dispatch struct {
	Session Session
	Replies []Reply
	Outcome Outcome
	Err     error
}

// Options configure a Router.
type Options struct {
	// Entry builds the initial session with no scratch fields.
	Entry func() Session
	// Welcome produces replies for a restart.
	Welcome func(ctx context.Context, t Turn) []Reply
	// BackNamespace names the namespace handled by Back. Defaults to "back".
	BackNamespace string
	// Back handles BackNamespace actions for states that do not register their own.
	Back ActionHandler
	// Hint is sent when an event has no handler in the current state.
	Hint func(cur Session) Reply
	// Fault is sent when a handler fails.
	Fault Reply
	// Observe receives every dispatch with the state it started in.
	Observe func(state State, outcome Outcome, took time.Duration)
}

// Router dispatches events to the handlers registered for each state.
// Registration happens before use; Dispatch is safe for concurrent use.
type Router struct {
	opts   Options
	routes map[State]Route
}

// NewRouter builds a router. Entry is required.
func NewRouter(opts Options) *Router {
	if opts.Entry == nil {
		panic("conversation: Entry is required")
	}
	if opts.BackNamespace == "" {
		opts.BackNamespace = "back"
	}
	return &Router{opts: opts, routes: make(map[State]Route)}
}

// Handle registers the route of a state, replacing any previous one.
func (r *Router) Handle(state State, route Route) {
	r.routes[state] = route
}

// Entry returns a fresh entry session.
func (r *Router) Entry() Session {
	return r.opts.Entry()
}

// States lists registered states in sorted order.
func (r *Router) States() []State {
	out := make([]State, 0, len(r.routes))
	for s := range r.routes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Route returns the registered route of a state.
func (r *Router) Route(state State) (Route, bool) {
	rt, ok := r.routes[state]
	return rt, ok
}

// Accepts reports whether state has a handler for ev.
func (r *Router) Accepts(state State, ev Event) bool {
	if _, ok := ev.(Restart); ok {
		return true
	}
	rt, ok := r.routes[state]
	if !ok {
		return false
	}
	return r.pick(rt, ev) != nil
}

// Dispatch routes ev for the session cur. A nil cur is treated as the entry session.
// It never returns a nil Session.
func (r *Router) Dispatch(ctx context.Context, t Turn, cur Session, ev Event) Dispatch {
	if cur == nil {
		cur = r.opts.Entry()
	}
	start := time.Now()
	d := r.dispatch(logger.WithState(ctx, string(cur.State())), t, cur, ev)
	if r.opts.Observe != nil {
		r.opts.Observe(cur.State(), d.Outcome, time.Since(start))
	}
	return d
}

func (r *Router) dispatch(ctx context.Context, t Turn, cur Session, ev Event) Dispatch {
	if _, ok := ev.(Restart); ok {
		return r.restart(ctx, t, cur)
	}

	rt, ok := r.routes[cur.State()]
	if !ok {
		logger.Warn(ctx, "conv", "state.unregistered",
			slog.String("state", string(cur.State())),
		)
		return r.restart(ctx, t, cur)
	}

	call := r.pick(rt, ev)
	if call == nil {
		return r.unmatched(ctx, cur, ev)
	}

	res, err := invoke(ctx, t, cur, call)
	if err != nil {
		logger.Error(ctx, "conv", "turn.fault",
			slog.String("state", string(cur.State())),
			slog.String("err", err.Error()),
		)
		return Dispatch{Session: cur, Replies: []Reply{r.opts.Fault}, Outcome: Faulted, Err: err}
	}

	next := res.Next
	if next == nil {
		next = cur
	}
	if next.State() != cur.State() {
		logger.Debug(ctx, "conv", "turn.transition",
			slog.String("state", string(cur.State())),
			slog.String("next_state", string(next.State())),
		)
	}
	return Dispatch{Session: next, Replies: res.Replies, Outcome: Handled}
}

func (r *Router) restart(ctx context.Context, t Turn, cur Session) Dispatch {
	var replies []Reply
	if r.opts.Welcome != nil {
		// a failing welcome must not block the reset
		func() {
			defer func() {
				if p := recover(); p != nil {
					logger.Error(ctx, "conv", "restart.welcome_panic",
						slog.String("err", fmt.Sprint(p)),
					)
					replies = nil
				}
			}()
			replies = r.opts.Welcome(ctx, t)
		}()
	}
	logger.Debug(ctx, "conv", "turn.restart",
		slog.String("state", string(cur.State())),
	)
	return Dispatch{Session: r.opts.Entry(), Replies: replies, Outcome: Restarted}
}

func (r *Router) unmatched(ctx context.Context, cur Session, ev Event) Dispatch {
	attrs := []slog.Attr{slog.String("state", string(cur.State()))}
	if cb, ok := ev.(Callback); ok {
		attrs = append(attrs, slog.String("action", cb.Raw.String()))
	}
	logger.Debug(ctx, "conv", "turn.unmatched", attrs...)

	var replies []Reply
	if r.opts.Hint != nil {
		replies = []Reply{r.opts.Hint(cur)}
	}
	return Dispatch{Session: cur, Replies: replies, Outcome: Unmatched}
}

type call func(ctx context.Context, t Turn, cur Session) (Result, error)

func (r *Router) pick(rt Route, ev Event) call {
	switch e := ev.(type) {
	case Text:
		if rt.Text == nil {
			return nil
		}
		return func(ctx context.Context, t Turn, cur Session) (Result, error) {
			return rt.Text(ctx, t, cur, e.Body)
		}
	case Callback:
		if e.Action == nil {
			if rt.Default == nil {
				return nil
			}
			raw := Raw{Tok: e.Raw}
			return func(ctx context.Context, t Turn, cur Session) (Result, error) {
				return rt.Default(ctx, t, cur, raw)
			}
		}
		ns := e.Action.Token().Namespace
		h := rt.Actions[ns]
		if h == nil && ns == r.opts.BackNamespace {
			h = r.opts.Back
		}
		if h == nil {
			h = rt.Default
		}
		if h == nil {
			return nil
		}
		return func(ctx context.Context, t Turn, cur Session) (Result, error) {
			return h(ctx, t, cur, e.Action)
		}
	}
	return nil
}

func invoke(ctx context.Context, t Turn, cur Session, fn call) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "conv", "turn.panic",
				slog.String("state", string(cur.State())),
				slog.String("err", fmt.Sprint(p)),
				slog.String("stack", string(debug.Stack())),
			)
			res = Result{}
			err = fmt.Errorf("conversation: handler panic: %v", p)
		}
	}()
	return fn(ctx, t, cur)
}
