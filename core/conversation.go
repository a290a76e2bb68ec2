package core

import "time"

// ConversationStatus enumerates the lifecycle states a conversation moves
// through. Only the orchestrator and the handoff executor mutate status.
type ConversationStatus string

const (
	// StatusActive is the default state while the AI agent owns the conversation.
	StatusActive ConversationStatus = "ACTIVE"
	// StatusEscalated means a human has taken (or been asked to take) over.
	StatusEscalated ConversationStatus = "ESCALATED"
	// StatusResolved marks a closed conversation.
	StatusResolved ConversationStatus = "RESOLVED"
)

// Priority ranks an escalation for the human queue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// PriorityRank returns a sortable rank for a priority, urgent first.
// Unknown values sort last.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Conversation is a single visitor dialogue owned by one agent at a time.
type Conversation struct {
	ID             string             `json:"id"`
	OrganizationID string             `json:"organization_id"`
	AgentID        string             `json:"agent_id"`
	ContactID      string             `json:"contact_id,omitempty"`
	ChannelType    string             `json:"channel_type"`
	Status         ConversationStatus `json:"status"`

	// Running counters, incremented atomically by the store.
	MessageCount int     `json:"message_count"`
	TotalTokens  int     `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`

	// Escalation bookkeeping, set once when the conversation transitions
	// to ESCALATED.
	EscalatedAt        *time.Time `json:"escalated_at,omitempty"`
	EscalationReason   string     `json:"escalation_reason,omitempty"`
	EscalationPriority Priority   `json:"escalation_priority,omitempty"`

	VisitorName  string    `json:"visitor_name,omitempty"`
	VisitorEmail string    `json:"visitor_email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Clone returns a deep copy so stored snapshots cannot be mutated through
// returned references.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	clone := *c
	if c.EscalatedAt != nil {
		t := *c.EscalatedAt
		clone.EscalatedAt = &t
	}
	return &clone
}
