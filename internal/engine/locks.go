package engine

import "sync"

// sessionLocks serializes mutations per session while letting distinct
// sessions proceed in parallel. Entries are never evicted; the map
// grows by one pointer-sized mutex per session seen by this process.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// lock acquires the mutex for sessionID and returns its unlock func.
func (s *sessionLocks) lock(sessionID string) func() {
	s.mu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*sync.Mutex)
	}
	m, ok := s.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[sessionID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}
