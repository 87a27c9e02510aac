package services

import "sync"

// routeLocks hands out one mutex per route id. Entries are dropped once no
// caller holds or waits on them.
type routeLocks struct {
	mu    sync.Mutex
	locks map[string]*routeLock
}

type routeLock struct {
	mu   sync.Mutex
	refs int
}

func newRouteLocks() *routeLocks {
	return &routeLocks{locks: make(map[string]*routeLock)}
}

// lock blocks until routeID is free and returns the matching unlock.
func (l *routeLocks) lock(routeID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[routeID]
	if !ok {
		entry = &routeLock{}
		l.locks[routeID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, routeID)
		}
		l.mu.Unlock()
	}
}
