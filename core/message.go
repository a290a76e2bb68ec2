package core

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
	RoleSystem    Role = "SYSTEM"
)

// Message is one append-only row in a conversation transcript. A message is
// created exactly once, after the step that produced it succeeded, and is
// never mutated afterwards.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Role           Role   `json:"role"`
	Content        string `json:"content"`

	// Confidence is set only on assistant messages; nil elsewhere.
	// When set it is always clamped to [0,1].
	Confidence *float64 `json:"confidence,omitempty"`

	TokensIn  int     `json:"tokens_in"`
	TokensOut int     `json:"tokens_out"`
	CostUSD   float64 `json:"cost_usd"`

	Intent      string   `json:"intent,omitempty"`
	Sentiment   string   `json:"sentiment,omitempty"`
	SourcesUsed []string `json:"sources_used,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy so stored snapshots cannot be mutated through
// returned references.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	clone := *m
	if m.Confidence != nil {
		c := *m.Confidence
		clone.Confidence = &c
	}
	if m.SourcesUsed != nil {
		clone.SourcesUsed = append([]string(nil), m.SourcesUsed...)
	}
	return &clone
}

// ClampConfidence bounds a confidence score to [0,1]. Every confidence value
// stored or compared anywhere in the pipeline passes through here first.
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
