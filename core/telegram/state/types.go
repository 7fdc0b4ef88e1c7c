package state

import "time"

// Store persists one session value per user.
type Store[S any] interface {
	Get(userID int64) (S, bool)
	Set(userID int64, session S)
	Clear(userID int64)
	Len() int
	// Evict drops sessions not written since before and returns how many were removed.
	Evict(before time.Time) int
}
