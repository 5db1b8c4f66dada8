// Package relay correlates admin-facing forwarded messages with the users
// that originated them. A Link is registered under the id of the message
// delivered to the support chat; when the operator replies to that message,
// the registry resolves the original user to route the answer back. The
// mapping is explicit and never recovered by parsing message text.
package relay

import "sync"

// Tag describes what the relayed request was for.
type Tag string

const (
	// TagTestConfig marks a one-time test config request.
	TagTestConfig Tag = "test_config"
	// TagPaidConfig marks a paid config request (wallet payment or receipt).
	TagPaidConfig Tag = "paid_config"
	// TagMessage marks a generic user message.
	TagMessage Tag = "message"
)

// Link ties an admin-visible message back to the requesting user.
type Link struct {
	UserID    int64
	FirstName string
	Username  string
	Tag       Tag
}

// Registry maps support-chat message ids to relay links. Links are ephemeral
// and process-local; lookups do not remove them, so an operator can answer
// the same request more than once.
type Registry struct {
	mu    sync.RWMutex
	links map[int]Link
}

// NewRegistry constructs an empty relay registry.
func NewRegistry() *Registry {
	return &Registry{
		links: make(map[int]Link),
	}
}

// Add registers a link under the given support-chat message id.
func (r *Registry) Add(messageID int, l Link) {
	if messageID == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[messageID] = l
}

// Lookup resolves a support-chat message id to its link.
func (r *Registry) Lookup(messageID int) (Link, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.links[messageID]
	return l, ok
}

// Len reports the number of registered links.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.links)
}
