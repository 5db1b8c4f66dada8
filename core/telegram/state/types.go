package state

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// Idle indicates there is no active conversation with the user.
	Idle State = "idle"
)

// Key addresses a session by user and chat.
type Key struct {
	UserID int64
	ChatID int64
}

// Manager orchestrates conversation state transitions.
// Setting a state overwrites any previous one; states never stack.
type Manager interface {
	// GetState returns the current state, or Idle if none exists.
	GetState(userID, chatID int64) State
	// SetState sets the state, creating the session lazily.
	SetState(userID, chatID int64, st State)
	// ClearState returns the session to Idle.
	ClearState(userID, chatID int64)
	// InProgress reports whether the session holds a non-idle state.
	InProgress(userID, chatID int64) bool
}
