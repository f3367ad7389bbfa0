package engine

import "sync"

// userLocks serializes the conflict-check-then-persist critical section
// per user. Without it, two concurrent saves for the same user with
// overlapping intervals can both pass the overlap check and both insert.
// Locking per user keeps unrelated users fully concurrent.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*sync.Mutex)}
}

// lock acquires the mutex for userID, creating it on first use, and
// returns the unlock function.
func (u *userLocks) lock(userID int64) func() {
	u.mu.Lock()
	l, ok := u.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		u.locks[userID] = l
	}
	u.mu.Unlock()

	l.Lock()
	return l.Unlock
}
