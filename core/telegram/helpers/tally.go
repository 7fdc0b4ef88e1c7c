package helpers

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const tallySlot = "reply_tally"

// tally counts the replies one update queued for delivery. Counting happens
// when a send is handed to the pool, before any worker runs it.
type tally struct {
	replies  atomic.Int32
	keyboard atomic.Bool
}

// TrackReplies installs an empty reply tally on c.
func TrackReplies(c tele.Context) {
	c.Set(tallySlot, &tally{})
}

// CountReplies records n replies queued for c. keyboard marks that at least
// one of them carries reply markup. Without TrackReplies it is a no-op.
func CountReplies(c tele.Context, n int, keyboard bool) {
	t, ok := c.Get(tallySlot).(*tally)
	if !ok || n <= 0 {
		return
	}
	t.replies.Add(int32(n))
	if keyboard {
		t.keyboard.Store(true)
	}
}

// Replies returns what CountReplies recorded for c.
func Replies(c tele.Context) (n int, keyboard bool) {
	t, ok := c.Get(tallySlot).(*tally)
	if !ok {
		return 0, false
	}
	return int(t.replies.Load()), t.keyboard.Load()
}
