package offline

import "sync/atomic"

// DrainLock allows a single drain at a time. It never blocks: a caller
// that loses the race simply skips its drain.
type DrainLock struct {
	held atomic.Bool
}

// TryLock takes the lock and reports whether it succeeded.
func (l *DrainLock) TryLock() bool {
	return l.held.CompareAndSwap(false, true)
}

// Unlock releases the lock.
func (l *DrainLock) Unlock() {
	l.held.Store(false)
}

// Held reports whether a drain is in progress.
func (l *DrainLock) Held() bool {
	return l.held.Load()
}
