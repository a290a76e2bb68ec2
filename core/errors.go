package core

import "errors"

// Sentinel errors surfaced to orchestrator callers. Everything else in the
// pipeline degrades into a structured result instead of an error.
var (
	// ErrAgentNotFound means the agent does not exist or belongs to another
	// organization than the conversation.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrConversationNotFound means the conversation does not exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrQuotaExceeded is returned by a QuotaChecker before any paid work
	// has started.
	ErrQuotaExceeded = errors.New("organization quota exceeded")
)
