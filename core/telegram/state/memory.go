package state

import (
	"sync"
	"time"
)

const shardCount = 16

type entry[S any] struct {
	session S
	touched time.Time
}

type shard[S any] struct {
	sync.RWMutex
	m map[int64]entry[S]
}

// MemoryStore keeps sessions in maps split into shards by user ID, so
// users on different shards never contend.
type MemoryStore[S any] struct {
	shards [shardCount]shard[S]
	now    func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore[S any]() *MemoryStore[S] {
	s := &MemoryStore[S]{now: time.Now}
	for i := range s.shards {
		s.shards[i].m = make(map[int64]entry[S])
	}
	return s
}

func (s *MemoryStore[S]) shardFor(userID int64) *shard[S] {
	return &s.shards[uint64(userID)%shardCount]
}

// Get returns the user's session; false when none is stored.
func (s *MemoryStore[S]) Get(userID int64) (S, bool) {
	sh := s.shardFor(userID)
	sh.RLock()
	e, ok := sh.m[userID]
	sh.RUnlock()
	return e.session, ok
}

// Set replaces the user's session and marks it touched.
func (s *MemoryStore[S]) Set(userID int64, session S) {
	sh := s.shardFor(userID)
	sh.Lock()
	sh.m[userID] = entry[S]{session: session, touched: s.now()}
	sh.Unlock()
}

// Clear drops the user's session.
func (s *MemoryStore[S]) Clear(userID int64) {
	sh := s.shardFor(userID)
	sh.Lock()
	delete(sh.m, userID)
	sh.Unlock()
}

// Len counts stored sessions across all shards.
func (s *MemoryStore[S]) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.RLock()
		n += len(sh.m)
		sh.RUnlock()
	}
	return n
}

// Evict removes sessions last set before the given instant, one shard at a time.
func (s *MemoryStore[S]) Evict(before time.Time) int {
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.Lock()
		for id, e := range sh.m {
			if e.touched.Before(before) {
				delete(sh.m, id)
				removed++
			}
		}
		sh.Unlock()
	}
	return removed
}
