package testutil

import (
	"encoding/json"
	"time"

	"github.com/helpmesh/helpmesh/core"
)

// AgentBuilder provides a fluent helper for constructing agents in tests.
// Example:
//
//	agent := NewAgentBuilder("ag-1").Org("org-1").Model("gpt-4o-mini").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type AgentBuilder struct {
	agent core.Agent
}

// NewAgentBuilder creates a builder with escalation enabled and a 0.7
// confidence threshold, the common test configuration.
func NewAgentBuilder(id string) *AgentBuilder {
	return &AgentBuilder{agent: core.Agent{
		ID:                  id,
		OrganizationID:      "org-1",
		Name:                "Test Agent",
		ConfidenceThreshold: 0.7,
		AutoEscalate:        true,
	}}
}

// Org sets the organization id (chainable).
func (b *AgentBuilder) Org(id string) *AgentBuilder { b.agent.OrganizationID = id; return b }

// Name sets the display name (chainable).
func (b *AgentBuilder) Name(name string) *AgentBuilder { b.agent.Name = name; return b }

// Model sets the completion model (chainable).
func (b *AgentBuilder) Model(model string) *AgentBuilder { b.agent.Model = model; return b }

// Threshold sets the confidence threshold (chainable).
func (b *AgentBuilder) Threshold(t float64) *AgentBuilder {
	b.agent.ConfidenceThreshold = t
	return b
}

// NoEscalation disables automatic escalation (chainable).
func (b *AgentBuilder) NoEscalation() *AgentBuilder { b.agent.AutoEscalate = false; return b }

// KnowledgeBase marks the agent as having an attached knowledge base (chainable).
func (b *AgentBuilder) KnowledgeBase() *AgentBuilder { b.agent.HasKnowledgeBase = true; return b }

// Workflow sets the stored workflow graph (chainable).
func (b *AgentBuilder) Workflow(graph string) *AgentBuilder {
	b.agent.WorkflowGraph = json.RawMessage(graph)
	return b
}

// Intents sets the routing intents (chainable).
func (b *AgentBuilder) Intents(intents ...string) *AgentBuilder {
	b.agent.Intents = intents
	return b
}

// Channels sets the routing channels (chainable).
func (b *AgentBuilder) Channels(channels ...string) *AgentBuilder {
	b.agent.Channels = channels
	return b
}

// Build returns the constructed agent.
func (b *AgentBuilder) Build() *core.Agent {
	a := b.agent
	return &a
}

// ConversationBuilder provides a fluent helper for constructing conversations
// in tests.
type ConversationBuilder struct {
	conv core.Conversation
}

// NewConversationBuilder creates a builder for an active web conversation.
func NewConversationBuilder(id string) *ConversationBuilder {
	return &ConversationBuilder{conv: core.Conversation{
		ID:             id,
		OrganizationID: "org-1",
		AgentID:        "ag-1",
		ChannelType:    "web",
		Status:         core.StatusActive,
		CreatedAt:      time.Now().UTC(),
	}}
}

// Org sets the organization id (chainable).
func (b *ConversationBuilder) Org(id string) *ConversationBuilder {
	b.conv.OrganizationID = id
	return b
}

// Agent sets the owning agent id (chainable).
func (b *ConversationBuilder) Agent(id string) *ConversationBuilder { b.conv.AgentID = id; return b }

// Channel sets the channel type (chainable).
func (b *ConversationBuilder) Channel(ch string) *ConversationBuilder {
	b.conv.ChannelType = ch
	return b
}

// Visitor sets the visitor identity (chainable).
func (b *ConversationBuilder) Visitor(name, email string) *ConversationBuilder {
	b.conv.VisitorName = name
	b.conv.VisitorEmail = email
	return b
}

// Escalated marks the conversation as escalated at the given time (chainable).
func (b *ConversationBuilder) Escalated(at time.Time, reason string, priority core.Priority) *ConversationBuilder {
	b.conv.Status = core.StatusEscalated
	b.conv.EscalatedAt = &at
	b.conv.EscalationReason = reason
	b.conv.EscalationPriority = priority
	return b
}

// Build returns the constructed conversation.
func (b *ConversationBuilder) Build() *core.Conversation {
	c := b.conv
	return &c
}

// MessageBuilder provides a fluent helper for constructing transcript rows in
// tests.
type MessageBuilder struct {
	msg core.Message
}

// NewMessageBuilder creates a builder for a user message in conversation
// "conv-1".
func NewMessageBuilder(id string) *MessageBuilder {
	return &MessageBuilder{msg: core.Message{
		ID:             id,
		ConversationID: "conv-1",
		Role:           core.RoleUser,
		CreatedAt:      time.Now().UTC(),
	}}
}

// Conversation sets the conversation id (chainable).
func (b *MessageBuilder) Conversation(id string) *MessageBuilder {
	b.msg.ConversationID = id
	return b
}

// User sets role USER with the given content (chainable).
func (b *MessageBuilder) User(content string) *MessageBuilder {
	b.msg.Role = core.RoleUser
	b.msg.Content = content
	return b
}

// Assistant sets role ASSISTANT with the given content (chainable).
func (b *MessageBuilder) Assistant(content string) *MessageBuilder {
	b.msg.Role = core.RoleAssistant
	b.msg.Content = content
	return b
}

// Confidence sets the recorded confidence (chainable).
func (b *MessageBuilder) Confidence(c float64) *MessageBuilder {
	b.msg.Confidence = &c
	return b
}

// At sets the creation time (chainable).
func (b *MessageBuilder) At(t time.Time) *MessageBuilder { b.msg.CreatedAt = t; return b }

// Build returns the constructed message.
func (b *MessageBuilder) Build() *core.Message {
	m := b.msg
	return &m
}
