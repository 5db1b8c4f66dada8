// Package pending holds ephemeral per-user flow data: the price of the tier
// a user is checking out, the target of an admin edit in progress, and the
// last payload a user submitted for relay. All of it is in-memory and lost on
// restart; users simply re-enter their flow.
package pending

import "sync"

// PayloadKind discriminates relayed payload content.
type PayloadKind string

const (
	// PayloadText is a plain text submission.
	PayloadText PayloadKind = "text"
	// PayloadPhoto is a photo submission with an optional caption.
	PayloadPhoto PayloadKind = "photo"
)

// Payload is the last message a user submitted for relay, kept for
// idempotent retries.
type Payload struct {
	Kind     PayloadKind
	Text     string
	PhotoRef string
	Caption  string
}

// Context stores in-flight flow data keyed per user. Prices and edit targets
// are scoped to the owning user id; a new tier selection overwrites any
// previous price for that user without touching anyone else's checkout.
type Context struct {
	mu          sync.RWMutex
	prices      map[int64]int64
	editTargets map[int64]int64
	payloads    map[int64]Payload
}

// NewContext constructs an empty pending-action context.
func NewContext() *Context {
	return &Context{
		prices:      make(map[int64]int64),
		editTargets: make(map[int64]int64),
		payloads:    make(map[int64]Payload),
	}
}

// SetPrice records the checkout price for a user, replacing any previous one.
func (c *Context) SetPrice(userID, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[userID] = amount
}

// Price returns the pending checkout price for a user.
func (c *Context) Price(userID int64) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	amount, ok := c.prices[userID]
	return amount, ok
}

// ClearPrice drops the pending checkout price for a user.
func (c *Context) ClearPrice(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.prices, userID)
}

// SetEditTarget records which user an admin is about to edit.
func (c *Context) SetEditTarget(adminID, targetID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editTargets[adminID] = targetID
}

// EditTarget returns the edit target recorded for an admin.
func (c *Context) EditTarget(adminID int64) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	target, ok := c.editTargets[adminID]
	return target, ok
}

// ClearEditTarget drops the edit target recorded for an admin.
func (c *Context) ClearEditTarget(adminID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.editTargets, adminID)
}

// SetPayload stores the last submitted payload for a user.
func (c *Context) SetPayload(userID int64, p Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads[userID] = p
}

// ConsumePayload returns and removes the stored payload for a user.
func (c *Context) ConsumePayload(userID int64) (Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.payloads[userID]
	if ok {
		delete(c.payloads, userID)
	}
	return p, ok
}
