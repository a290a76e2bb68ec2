package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/helpmesh/helpmesh/core"
	"github.com/helpmesh/helpmesh/internal/util"
)

// snippet is one remembered fact scoped to a conversation.
type snippet struct {
	text   string
	tokens []string
}

// InMemoryStore is a naive process-local core.MemoryStore. Recall performs a
// linear scan matching normalized query tokens against remembered snippets,
// newest first. Suitable only for tests and demos; swap for a vector index
// for production recall.
//
// Concurrency: protected by RWMutex.
type InMemoryStore struct {
	mu       sync.RWMutex
	snippets map[string][]snippet // conversationID -> remembered facts, append order
}

var _ core.MemoryStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snippets: make(map[string][]snippet)}
}

// Remember appends a fact to the conversation's long-term memory.
func (m *InMemoryStore) Remember(conversationID, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snippets[conversationID] = append(m.snippets[conversationID], snippet{
		text:   text,
		tokens: strings.Fields(util.NormalizeText(text)),
	})
}

// Recall implements core.MemoryStore. A snippet matches when it shares at
// least one normalized token with the query; an empty query matches
// everything. Results come back newest first up to limit.
func (m *InMemoryStore) Recall(_ context.Context, conversationID, query string, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.snippets[conversationID]
	queryTokens := make(map[string]bool)
	for _, tok := range strings.Fields(util.NormalizeText(query)) {
		queryTokens[tok] = true
	}

	var recalled []string
	for i := len(stored) - 1; i >= 0 && (limit <= 0 || len(recalled) < limit); i-- {
		if len(queryTokens) == 0 || sharesToken(stored[i].tokens, queryTokens) {
			recalled = append(recalled, stored[i].text)
		}
	}
	return recalled, nil
}

func sharesToken(tokens []string, query map[string]bool) bool {
	for _, tok := range tokens {
		if query[tok] {
			return true
		}
	}
	return false
}
