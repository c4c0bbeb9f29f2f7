package transaction

import "sync"

// AccountLocker serializes writes per user id inside one process. Entries are
// reference counted and dropped when the last holder unlocks.
type AccountLocker struct {
	mu    sync.Mutex
	locks map[int64]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func NewAccountLocker() *AccountLocker {
	return &AccountLocker{locks: make(map[int64]*accountLock)}
}

// Lock blocks until the account is free and returns the matching unlock func.
func (l *AccountLocker) Lock(userID int64) func() {
	l.mu.Lock()
	al, ok := l.locks[userID]
	if !ok {
		al = &accountLock{}
		l.locks[userID] = al
	}
	al.refs++
	l.mu.Unlock()

	al.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			al.mu.Unlock()
			l.mu.Lock()
			al.refs--
			if al.refs == 0 {
				delete(l.locks, userID)
			}
			l.mu.Unlock()
		})
	}
}

func (l *AccountLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
