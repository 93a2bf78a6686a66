package session

import "sync"

// sessionLocks hands out one mutex per session ID. Acquisition never blocks:
// a caller that cannot take the lock immediately is turned away so the
// request can be rejected as retryable. Entries are reference counted and
// removed once idle, keeping the ring bounded by in-flight sessions.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// acquire attempts to take the session's lock without blocking. On success
// it returns a release function; on contention it returns ok=false.
func (l *sessionLocks) acquire(sessionID string) (release func(), ok bool) {
	l.mu.Lock()
	entry := l.locks[sessionID]
	if entry == nil {
		entry = &sessionLock{}
		l.locks[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	if !entry.mu.TryLock() {
		l.drop(sessionID, entry)
		return nil, false
	}
	return func() {
		entry.mu.Unlock()
		l.drop(sessionID, entry)
	}, true
}

func (l *sessionLocks) drop(sessionID string, entry *sessionLock) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, sessionID)
	}
	l.mu.Unlock()
}
