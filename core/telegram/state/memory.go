package state

import "sync"

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[Key]State
}

// NewMemoryManager constructs an in-memory Manager. Sessions are ephemeral:
// a restart drops them and users re-enter their flows.
func NewMemoryManager() Manager {
	return &memoryManager{
		sessions: make(map[Key]State),
	}
}

// GetState returns the current state of a session, or Idle if none exists.
func (m *memoryManager) GetState(userID, chatID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.sessions[Key{UserID: userID, ChatID: chatID}]; ok {
		return st
	}
	return Idle
}

// SetState sets the state for a session, creating it if necessary.
func (m *memoryManager) SetState(userID, chatID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := Key{UserID: userID, ChatID: chatID}
	if st == Idle {
		delete(m.sessions, key)
		return
	}
	m.sessions[key] = st
}

// ClearState resets a session to idle.
func (m *memoryManager) ClearState(userID, chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, Key{UserID: userID, ChatID: chatID})
}

// InProgress reports whether the session holds a non-idle state.
func (m *memoryManager) InProgress(userID, chatID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[Key{UserID: userID, ChatID: chatID}]
	return ok && st != Idle
}
