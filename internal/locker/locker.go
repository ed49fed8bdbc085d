// Package locker provides keyed mutual exclusion. The backing store offers
// no locking of its own, so every read-modify-write against a shared row
// goes through a per-key mutex here to keep last-write-wins semantics from
// losing updates.
package locker

import "sync"

type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use. Mutexes are
// never freed; the key space is bounded by task and user counts.
func (m *KeyedMutex) Lock(key string) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	m.mu.Unlock()
	l.Lock()
}

func (m *KeyedMutex) Unlock(key string) {
	m.mu.Lock()
	l := m.locks[key]
	m.mu.Unlock()
	if l != nil {
		l.Unlock()
	}
}
