package core

import "context"

// AgentStore provides read access to agent snapshots plus the counter
// increments the orchestrator performs after a successful reply.
type AgentStore interface {
	// GetAgent returns the agent or ErrAgentNotFound.
	GetAgent(ctx context.Context, id string) (*Agent, error)

	// ListAgents returns every agent of an organization, used by intent
	// based re-routing.
	ListAgents(ctx context.Context, organizationID string) ([]*Agent, error)

	// IncrementAgentCounters adds token and cost usage to the agent's
	// running totals atomically.
	IncrementAgentCounters(ctx context.Context, id string, tokens int, costUSD float64) error
}

// ConversationStore provides conversation reads, counter increments and the
// single status transition the pipeline performs.
type ConversationStore interface {
	// GetConversation returns the conversation or ErrConversationNotFound.
	GetConversation(ctx context.Context, id string) (*Conversation, error)

	// IncrementConversationCounters atomically adds to messageCount,
	// totalTokens and totalCostUSD.
	IncrementConversationCounters(ctx context.Context, id string, messages, tokens int, costUSD float64) error

	// MarkEscalated transitions the conversation to ESCALATED, recording
	// reason and priority. It returns false without side effects when the
	// conversation is already escalated, making re-escalation a no-op.
	MarkEscalated(ctx context.Context, id, reason string, priority Priority) (bool, error)

	// ListEscalated returns every escalated conversation of an organization.
	ListEscalated(ctx context.Context, organizationID string) ([]*Conversation, error)
}

// MessageStore appends transcript rows and serves the recent-history reads
// the pipeline depends on.
type MessageStore interface {
	// CreateMessage appends a message. Messages are immutable once written.
	CreateMessage(ctx context.Context, msg *Message) error

	// RecentMessages returns up to limit most recent messages in
	// chronological order.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error)

	// LatestUserMessage returns the newest USER message, or nil when the
	// conversation has none yet.
	LatestUserMessage(ctx context.Context, conversationID string) (*Message, error)

	// RecentAssistantConfidences returns the confidence values of up to
	// limit most recent assistant messages, newest first, skipping
	// messages without a recorded confidence.
	RecentAssistantConfidences(ctx context.Context, conversationID string, limit int) ([]float64, error)

	// CountUserMessages returns how many USER messages the conversation holds.
	CountUserMessages(ctx context.Context, conversationID string) (int, error)
}
