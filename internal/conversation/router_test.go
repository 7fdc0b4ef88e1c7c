package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type home struct{}

func (home) State() State { return "home" }

type asking struct{ Draft string }

func (asking) State() State { return "asking" }

type pick struct{ N int }

func (p pick) Token() Token { return Token{Namespace: "pick", Payload: "x"} }

type back struct{}

func (back) Token() Token { return Token{Namespace: "back", Payload: "main"} }

type other struct{}

func (other) Token() Token { return Token{Namespace: "other"} }

var (
	welcome = Reply{Text: "welcome"}
	hint    = Reply{Text: "use the menu"}
	fault   = Reply{Text: "oops"}
)

type observed struct {
	state   State
	outcome Outcome
}

func newTestRouter(t *testing.T, log *[]observed) *Router {
	t.Helper()
	r := NewRouter(Options{
		Entry:   func() Session { return home{} },
		Welcome: func(context.Context, Turn) []Reply { return []Reply{welcome} },
		Back: OnAction(func(_ context.Context, _ Turn, _ Session, _ back) (Result, error) {
			return Go(home{}, Reply{Text: "menu"}), nil
		}),
		Hint:  func(Session) Reply { return hint },
		Fault: fault,
		Observe: func(s State, o Outcome, _ time.Duration) {
			if log != nil {
				*log = append(*log, observed{s, o})
			}
		},
	})
	r.Handle("home", Route{
		Text: OnText(func(_ context.Context, _ Turn, _ home, text string) (Result, error) {
			switch text {
			case "ask":
				return Go(asking{}, Reply{Text: "what?"}), nil
			case "boom":
				panic("kaboom")
			case "fail":
				return Result{}, errors.New("store down")
			}
			return Stay(Reply{Text: "stay"}), nil
		}),
	})
	r.Handle("asking", Route{
		Text: OnText(func(_ context.Context, _ Turn, cur asking, text string) (Result, error) {
			return Go(asking{Draft: cur.Draft + text}), nil
		}),
		Actions: map[string]ActionHandler{
			"pick": OnAction(func(_ context.Context, _ Turn, _ asking, p pick) (Result, error) {
				return Go(home{}, Reply{Text: "picked"}), nil
			}),
		},
		Default: func(context.Context, Turn, Session, Action) (Result, error) {
			return Stay(Reply{Text: "default"}), nil
		},
	})
	return r
}

func TestRestartFromEveryStateYieldsCleanEntry(t *testing.T) {
	r := newTestRouter(t, nil)
	for _, cur := range []Session{nil, home{}, asking{Draft: "partial"}} {
		d := r.Dispatch(context.Background(), Turn{UserID: 1}, cur, Restart{})
		assert.Equal(t, Restarted, d.Outcome)
		assert.Equal(t, home{}, d.Session)
		assert.Equal(t, []Reply{welcome}, d.Replies)
		assert.NoError(t, d.Err)
	}
}

func TestRestartIsIdempotent(t *testing.T) {
	r := newTestRouter(t, nil)
	first := r.Dispatch(context.Background(), Turn{}, asking{Draft: "x"}, Restart{})
	second := r.Dispatch(context.Background(), Turn{}, first.Session, Restart{})
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("restart not idempotent (-first +second):\n%s", diff)
	}
}

func TestTransitionAndScratchFields(t *testing.T) {
	r := newTestRouter(t, nil)
	ctx := context.Background()
	d := r.Dispatch(ctx, Turn{}, home{}, Text{Body: "ask"})
	require.Equal(t, Handled, d.Outcome)
	d = r.Dispatch(ctx, Turn{}, d.Session, Text{Body: "ab"})
	d = r.Dispatch(ctx, Turn{}, d.Session, Text{Body: "cd"})
	assert.Equal(t, asking{Draft: "abcd"}, d.Session)

	d = r.Dispatch(ctx, Turn{}, d.Session, Restart{})
	assert.Equal(t, home{}, d.Session, "restart drops the draft")
}

func TestNilNextKeepsSession(t *testing.T) {
	r := newTestRouter(t, nil)
	d := r.Dispatch(context.Background(), Turn{}, home{}, Text{Body: "hello"})
	assert.Equal(t, Handled, d.Outcome)
	assert.Equal(t, home{}, d.Session)
	assert.Equal(t, []Reply{{Text: "stay"}}, d.Replies)
}

func TestUnmatchedEventIsNoop(t *testing.T) {
	r := newTestRouter(t, nil)
	cur := home{}
	for i := 0; i < 2; i++ {
		d := r.Dispatch(context.Background(), Turn{}, cur, Callback{Raw: pick{}.Token(), Action: pick{}})
		assert.Equal(t, Unmatched, d.Outcome)
		assert.Equal(t, cur, d.Session)
		assert.Equal(t, []Reply{hint}, d.Replies)
	}

	d := r.Dispatch(context.Background(), Turn{}, home{}, Callback{Raw: Token{Namespace: "zzz"}})
	assert.Equal(t, Unmatched, d.Outcome, "undecodable callback without a default handler")
	assert.Equal(t, home{}, d.Session)
}

func TestUndecodableCallbackReachesDefault(t *testing.T) {
	r := newTestRouter(t, nil)
	var got Action
	r.Handle("asking", Route{
		Default: func(_ context.Context, _ Turn, _ Session, act Action) (Result, error) {
			got = act
			return Stay(Reply{Text: "default"}), nil
		},
	})
	tok := Token{Namespace: "zzz", Payload: "7"}
	d := r.Dispatch(context.Background(), Turn{}, asking{Draft: "x"}, Callback{Raw: tok})
	assert.Equal(t, Handled, d.Outcome)
	assert.Equal(t, asking{Draft: "x"}, d.Session)
	assert.Equal(t, Raw{Tok: tok}, got)
	assert.Equal(t, tok, got.Token())
}

func TestCallbackPrecedence(t *testing.T) {
	r := newTestRouter(t, nil)
	ctx := context.Background()

	d := r.Dispatch(ctx, Turn{}, asking{}, Callback{Action: pick{}})
	assert.Equal(t, []Reply{{Text: "picked"}}, d.Replies, "own namespace wins")

	d = r.Dispatch(ctx, Turn{}, asking{}, Callback{Action: back{}})
	assert.Equal(t, []Reply{{Text: "menu"}}, d.Replies, "shared back handler")
	assert.Equal(t, home{}, d.Session)

	d = r.Dispatch(ctx, Turn{}, asking{}, Callback{Action: other{}})
	assert.Equal(t, []Reply{{Text: "default"}}, d.Replies, "default handler")

	d = r.Dispatch(ctx, Turn{}, home{}, Callback{Action: back{}})
	assert.Equal(t, Handled, d.Outcome, "back is accepted in states without actions")
}

func TestFaultsKeepPriorSession(t *testing.T) {
	var log []observed
	r := newTestRouter(t, &log)
	for _, body := range []string{"boom", "fail"} {
		d := r.Dispatch(context.Background(), Turn{}, home{}, Text{Body: body})
		assert.Equal(t, Faulted, d.Outcome, body)
		assert.Equal(t, home{}, d.Session, body)
		assert.Equal(t, []Reply{fault}, d.Replies, body)
		assert.Error(t, d.Err, body)
	}
	assert.Equal(t, []observed{{"home", Faulted}, {"home", Faulted}}, log)
}

func TestSessionTypeMismatchIsFault(t *testing.T) {
	r := newTestRouter(t, nil)
	rt, ok := r.Route("asking")
	require.True(t, ok)
	_, err := rt.Text(context.Background(), Turn{}, home{}, "x")
	assert.ErrorIs(t, err, ErrSessionType)
}

type orphan struct{}

func (orphan) State() State { return "orphan" }

func TestUnregisteredStateResetsToEntry(t *testing.T) {
	r := newTestRouter(t, nil)
	d := r.Dispatch(context.Background(), Turn{}, orphan{}, Text{Body: "hi"})
	assert.Equal(t, Restarted, d.Outcome)
	assert.Equal(t, home{}, d.Session)
}

func TestAccepts(t *testing.T) {
	r := newTestRouter(t, nil)
	assert.True(t, r.Accepts("home", Text{}))
	assert.True(t, r.Accepts("home", Restart{}))
	assert.True(t, r.Accepts("home", Callback{Action: back{}}))
	assert.False(t, r.Accepts("home", Callback{Action: pick{}}))
	assert.True(t, r.Accepts("asking", Callback{Action: other{}}))
	assert.False(t, r.Accepts("missing", Text{}))
	assert.Equal(t, []State{"asking", "home"}, r.States())
}
