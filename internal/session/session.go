// Package session holds per-actor conversation state. It is deliberately
// in-memory only: nothing here may be load-bearing for ledger or task
// consistency. A lost session leaves a claim for the reclaimer to recover
// and a withdrawal with no side effects at all.
package session

import "sync"

type State int

const (
	Idle State = iota
	AwaitingAmount
	AwaitingProof
)

// Session is one actor's transient workflow state. TaskID is the active
// claim tracked session-locally; the withdrawal fields are only meaningful
// while State is past Idle.
type Session struct {
	State        State
	Amount       int64
	ListingPrice int64
	Skin         string
	TaskID       int64
}

type Manager struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]Session)}
}

func (m *Manager) Get(userID int64) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

func (m *Manager) Update(userID int64, fn func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[userID]
	fn(&s)
	m.sessions[userID] = s
}

// Clear drops the whole session, claim included.
func (m *Manager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
