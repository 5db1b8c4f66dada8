// Package state provides a lightweight per-user conversation state store for
// Telegram bots. Sessions are keyed by (user, chat) so the same user can hold
// independent conversations in different chats. It is intentionally
// domain-agnostic so it can be reused across bots.
package state
