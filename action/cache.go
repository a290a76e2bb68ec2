package action

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/helpmesh/helpmesh/internal/util"
)

// DefaultCacheTTL is how long a completed action result (success or failure)
// is replayed for repeat calls with the same idempotency key.
const DefaultCacheTTL = 5 * time.Minute

// IdempotencyCache stores completed action results under derived keys.
// Implementations must be safe for concurrent use; multiple turns invoke the
// same actions concurrently.
//
// The cache is populated only after an action completes. Two concurrent
// calls with the same key racing before the first completes both execute the
// underlying side effect; callers needing stricter guarantees must serialize
// upstream.
type IdempotencyCache interface {
	// Get returns the cached result for key, or false when absent/expired.
	Get(key string) (*Result, bool)

	// Set stores a completed result under key with the given TTL.
	Set(key string, result *Result, ttl time.Duration)
}

// cacheEntry pairs a result with its expiry, value-copied on read so callers
// cannot mutate cached state.
type cacheEntry struct {
	result    Result
	expiresAt time.Time
}

// InMemoryCache is the default process-local IdempotencyCache: a mutex
// protected map with lazy compaction (expired entries are removed
// opportunistically on each write rather than by a background sweep).
type InMemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewInMemoryCache constructs an empty in-memory cache.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{entries: make(map[string]cacheEntry)}
}

// Get implements IdempotencyCache.
func (c *InMemoryCache) Get(key string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	result := entry.result
	return &result, true
}

// Set implements IdempotencyCache.
func (c *InMemoryCache) Set(key string, result *Result, ttl time.Duration) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{result: *result, expiresAt: now.Add(ttl)}
}

// Len reports the number of entries currently held, expired included.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// deriveKey builds the idempotency key for one call. A caller-supplied key
// scopes dedup to (org, agent, action, key); otherwise the canonicalized
// sorted-JSON parameters stand in, scoped additionally by conversation.
func deriveKey(actionID string, params map[string]any, callCtx CallContext) string {
	var parts []string
	if callCtx.IdempotencyKey != "" {
		parts = []string{callCtx.OrganizationID, callCtx.AgentID, actionID, callCtx.IdempotencyKey}
	} else {
		parts = []string{callCtx.OrganizationID, callCtx.AgentID, callCtx.ConversationID, actionID, util.CanonicalParams(params)}
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
