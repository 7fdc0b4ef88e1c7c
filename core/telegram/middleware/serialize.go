package middleware

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// userLocks hands out one mutex per user and forgets it once nobody holds or waits for it.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func (u *userLocks) acquire(id int64) *userLock {
	u.mu.Lock()
	l, ok := u.locks[id]
	if !ok {
		l = &userLock{}
		u.locks[id] = l
	}
	l.refs++
	u.mu.Unlock()

	l.Lock()
	return l
}

func (u *userLocks) release(id int64, l *userLock) {
	l.Unlock()

	u.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(u.locks, id)
	}
	u.mu.Unlock()
}

// SerializePerUser runs at most one handler at a time for each sender.
// Updates from different users are not blocked by each other.
func SerializePerUser() tele.MiddlewareFunc {
	locks := &userLocks{locks: make(map[int64]*userLock)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}
			l := locks.acquire(user.ID)
			defer locks.release(user.ID, l)
			return next(c)
		}
	}
}
