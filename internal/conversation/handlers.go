package conversation

import (
	"context"
	"errors"
	"fmt"
)

// ErrSessionType is wrapped when a handler receives a session of another state.
var ErrSessionType = errors.New("conversation: unexpected session type")

// OnText adapts a handler written for the concrete session type S.
func OnText[S Session](fn func(ctx context.Context, t Turn, cur S, text string) (Result, error)) TextHandler {
	return func(ctx context.Context, t Turn, cur Session, text string) (Result, error) {
		s, ok := cur.(S)
		if !ok {
			return Result{}, fmt.Errorf("%w: %T", ErrSessionType, cur)
		}
		return fn(ctx, t, s, text)
	}
}

// OnAction adapts a handler written for the concrete session type S and action type A.
func OnAction[S Session, A Action](fn func(ctx context.Context, t Turn, cur S, act A) (Result, error)) ActionHandler {
	return func(ctx context.Context, t Turn, cur Session, act Action) (Result, error) {
		s, ok := cur.(S)
		if !ok {
			return Result{}, fmt.Errorf("%w: %T", ErrSessionType, cur)
		}
		a, ok := act.(A)
		if !ok {
			return Result{}, fmt.Errorf("conversation: unexpected action %T", act)
		}
		return fn(ctx, t, s, a)
	}
}

// Stay keeps the current session and sends replies.
func Stay(replies ...Reply) Result {
	return Result{Replies: replies}
}

// Go moves to next and sends replies.
func Go(next Session, replies ...Reply) Result {
	return Result{Next: next, Replies: replies}
}
