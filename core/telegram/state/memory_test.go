package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type session struct {
	step string
	n    int
}

func TestMemoryStoreSetGetClear(t *testing.T) {
	s := NewMemoryStore[session]()
	_, ok := s.Get(1)
	assert.False(t, ok)

	s.Set(1, session{step: "a", n: 1})
	got, ok := s.Get(1)
	assert.True(t, ok)
	assert.Equal(t, session{step: "a", n: 1}, got)

	s.Set(1, session{step: "b"})
	got, _ = s.Get(1)
	assert.Equal(t, session{step: "b"}, got, "Set replaces the whole value")

	s.Clear(1)
	assert.Zero(t, s.Len())
}

func TestMemoryStoreEvict(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore[session]()
	s.now = func() time.Time { return now }
	s.Set(1, session{})
	now = now.Add(time.Hour)
	s.Set(2, session{})

	assert.Equal(t, 1, s.Evict(now.Add(-time.Minute)))
	_, ok := s.Get(2)
	assert.True(t, ok)
}

func TestMemoryStoreConcurrentUsers(t *testing.T) {
	s := NewMemoryStore[session]()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set(id, session{n: j})
				s.Get(id)
			}
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(t, 64, s.Len())
	got, _ := s.Get(5)
	assert.Equal(t, 99, got.n)
}

func TestMemoryStoreNegativeIDs(t *testing.T) {
	s := NewMemoryStore[session]()
	s.Set(-100123, session{step: "group"})
	s.Set(17, session{step: "user"})
	got, ok := s.Get(-100123)
	assert.True(t, ok)
	assert.Equal(t, "group", got.step)
	assert.Equal(t, 2, s.Len())
}
