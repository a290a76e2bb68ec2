package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/helpmesh/helpmesh/core"
)

// Compile-time interface checks.
var (
	_ core.AgentStore        = (*InMemoryAgentStore)(nil)
	_ core.ConversationStore = (*InMemoryConversationStore)(nil)
	_ core.MessageStore      = (*InMemoryMessageStore)(nil)
)

// InMemoryAgentStore is a volatile AgentStore keeping agent snapshots in a
// process local map. Returned agents are clones so callers cannot mutate
// stored state.
type InMemoryAgentStore struct {
	mu     sync.RWMutex
	agents map[string]*core.Agent
}

// NewInMemoryAgentStore constructs an empty agent store.
func NewInMemoryAgentStore() *InMemoryAgentStore {
	return &InMemoryAgentStore{agents: make(map[string]*core.Agent)}
}

// PutAgent stores a clone of the agent snapshot, overwriting any previous one.
func (s *InMemoryAgentStore) PutAgent(agent *core.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[agent.ID] = agent.Clone()
}

// GetAgent implements core.AgentStore.
func (s *InMemoryAgentStore) GetAgent(_ context.Context, id string) (*core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[id]
	if !ok {
		return nil, core.ErrAgentNotFound
	}
	return agent.Clone(), nil
}

// ListAgents implements core.AgentStore.
func (s *InMemoryAgentStore) ListAgents(_ context.Context, organizationID string) ([]*core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Agent
	for _, agent := range s.agents {
		if agent.OrganizationID == organizationID {
			out = append(out, agent.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// IncrementAgentCounters implements core.AgentStore. The in-memory agent
// snapshot carries no usage counters, so this only validates existence;
// durable stores accumulate the totals.
func (s *InMemoryAgentStore) IncrementAgentCounters(_ context.Context, id string, _ int, _ float64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.agents[id]; !ok {
		return core.ErrAgentNotFound
	}
	return nil
}

// InMemoryConversationStore is a volatile ConversationStore.
type InMemoryConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*core.Conversation
}

// NewInMemoryConversationStore constructs an empty conversation store.
func NewInMemoryConversationStore() *InMemoryConversationStore {
	return &InMemoryConversationStore{conversations: make(map[string]*core.Conversation)}
}

// PutConversation stores a clone of the conversation, overwriting any
// previous one.
func (s *InMemoryConversationStore) PutConversation(conv *core.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv.Status == "" {
		conv.Status = core.StatusActive
	}
	s.conversations[conv.ID] = conv.Clone()
}

// GetConversation implements core.ConversationStore.
func (s *InMemoryConversationStore) GetConversation(_ context.Context, id string) (*core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, core.ErrConversationNotFound
	}
	return conv.Clone(), nil
}

// IncrementConversationCounters implements core.ConversationStore.
func (s *InMemoryConversationStore) IncrementConversationCounters(_ context.Context, id string, messages, tokens int, costUSD float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return core.ErrConversationNotFound
	}
	conv.MessageCount += messages
	conv.TotalTokens += tokens
	conv.TotalCostUSD += costUSD
	return nil
}

// MarkEscalated implements core.ConversationStore. The check and the
// transition happen under one lock, so concurrent escalations of the same
// conversation resolve to exactly one transition.
func (s *InMemoryConversationStore) MarkEscalated(_ context.Context, id, reason string, priority core.Priority) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return false, core.ErrConversationNotFound
	}
	if conv.Status == core.StatusEscalated {
		return false, nil
	}
	now := time.Now().UTC()
	conv.Status = core.StatusEscalated
	conv.EscalatedAt = &now
	conv.EscalationReason = reason
	conv.EscalationPriority = priority
	return true, nil
}

// ListEscalated implements core.ConversationStore.
func (s *InMemoryConversationStore) ListEscalated(_ context.Context, organizationID string) ([]*core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Conversation
	for _, conv := range s.conversations {
		if conv.OrganizationID == organizationID && conv.Status == core.StatusEscalated {
			out = append(out, conv.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// InMemoryMessageStore is a volatile MessageStore keeping per-conversation
// transcripts in insertion order.
type InMemoryMessageStore struct {
	mu       sync.RWMutex
	messages map[string][]*core.Message
}

// NewInMemoryMessageStore constructs an empty message store.
func NewInMemoryMessageStore() *InMemoryMessageStore {
	return &InMemoryMessageStore{messages: make(map[string][]*core.Message)}
}

// CreateMessage implements core.MessageStore.
func (s *InMemoryMessageStore) CreateMessage(_ context.Context, msg *core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := msg.Clone()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now().UTC()
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], clone)
	return nil
}

// RecentMessages implements core.MessageStore.
func (s *InMemoryMessageStore) RecentMessages(_ context.Context, conversationID string, limit int) ([]*core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*core.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Clone())
	}
	return out, nil
}

// LatestUserMessage implements core.MessageStore.
func (s *InMemoryMessageStore) LatestUserMessage(_ context.Context, conversationID string) (*core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[conversationID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == core.RoleUser {
			return msgs[i].Clone(), nil
		}
	}
	return nil, nil
}

// RecentAssistantConfidences implements core.MessageStore.
func (s *InMemoryMessageStore) RecentAssistantConfidences(_ context.Context, conversationID string, limit int) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[conversationID]
	var out []float64
	for i := len(msgs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		m := msgs[i]
		if m.Role == core.RoleAssistant && m.Confidence != nil {
			out = append(out, *m.Confidence)
		}
	}
	return out, nil
}

// CountUserMessages implements core.MessageStore.
func (s *InMemoryMessageStore) CountUserMessages(_ context.Context, conversationID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, m := range s.messages[conversationID] {
		if m.Role == core.RoleUser {
			count++
		}
	}
	return count, nil
}
