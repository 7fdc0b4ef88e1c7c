package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pharmtutor/core/logger"
)

type observed struct {
	mu   sync.Mutex
	runs []string
	errs []error
	n    []int
}

func (o *observed) record(action string, attempts int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, action)
	o.n = append(o.n, attempts)
	o.errs = append(o.errs, err)
}

func TestDispatcherRetriesTransientFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	obs := &observed{}
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond, Observe: obs.record})

	var calls atomic.Int32
	dial := &net.OpError{Op: "dial", Err: errors.New("refused")}
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return dial
		}
		return nil
	}))
	d.Close()

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []string{"send.text"}, obs.runs)
	assert.Equal(t, []int{3}, obs.n)
	assert.NoError(t, obs.errs[0])
}

func TestDispatcherStopsOnFinalError(t *testing.T) {
	defer goleak.VerifyNone(t)

	obs := &observed{}
	d := NewDispatcher(Options{Workers: 2, MaxRetries: 5, RetryBackoff: time.Millisecond, Observe: obs.record})

	rejected := &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}
	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		calls.Add(1)
		return rejected
	}))
	d.Close()

	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, obs.errs, 1)
	assert.ErrorIs(t, obs.errs[0], rejected)
}

func TestDispatcherGivesUpWhenContextEnds(t *testing.T) {
	defer goleak.VerifyNone(t)

	obs := &observed{}
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 10, RetryBackoff: time.Hour, MaxDuration: 20 * time.Millisecond, Observe: obs.record})
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		return &net.OpError{Op: "dial", Err: errors.New("refused")}
	}))
	d.Close()

	require.Len(t, obs.errs, 1)
	assert.ErrorIs(t, obs.errs[0], context.DeadlineExceeded)
	assert.Equal(t, []int{1}, obs.n)
}

func TestEnqueueAfterCloseAndWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "a", "x", func() error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "b", "x", func() error { return nil }))
	assert.ErrorIs(t, d.Enqueue(context.Background(), "c", "x", func() error { return nil }), ErrQueueFull)
	assert.Error(t, d.Enqueue(context.Background(), "d", "x", nil))

	close(release)
	d.Close()
	d.Close()
	assert.ErrorIs(t, d.Enqueue(context.Background(), "e", "x", func() error { return nil }), ErrQueueClosed)
}

func TestDispatcherKeepsChatOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDispatcher(Options{Workers: 4, QueueSize: 64})
	var mu sync.Mutex
	got := map[int64][]int{}
	for i := range 10 {
		for _, chat := range []int64{101, 102, -100500} {
			ctx := logger.ForUpdate(context.Background(), i, chat, 7)
			require.NoError(t, d.Enqueue(ctx, "turn.replies", "sendMessage", func() error {
				// a slow early reply must not let later ones overtake it
				if i == 0 {
					time.Sleep(10 * time.Millisecond)
				}
				mu.Lock()
				got[chat] = append(got[chat], i)
				mu.Unlock()
				return nil
			}))
		}
	}
	d.Close()

	want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	for _, chat := range []int64{101, 102, -100500} {
		assert.Equal(t, want, got[chat], "chat %d", chat)
	}
}

func TestLaneFallsBackToUserThenRoundRobin(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDispatcher(Options{Workers: 3})
	defer d.Close()

	byChat := logger.ForUpdate(context.Background(), 1, 42, 0)
	assert.Equal(t, d.lane(byChat), d.lane(logger.ForUpdate(context.Background(), 2, 42, 9)))

	byUser := logger.ForUpdate(context.Background(), 1, 0, 5)
	assert.Equal(t, d.lanes[5%3], d.lane(byUser))

	first := d.lane(context.Background())
	assert.NotEqual(t, first, d.lane(context.Background()))
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{MaxRetries: -1}.withDefaults()
	assert.Equal(t, 256, o.QueueSize)
	assert.Equal(t, 4, o.Workers)
	assert.Zero(t, o.MaxRetries)
	assert.Equal(t, 2*time.Second, o.RetryBackoff)
	assert.Equal(t, 12*time.Second, o.MaxDuration)
}
