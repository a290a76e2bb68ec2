package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecallMatchesOnSharedTokens(t *testing.T) {
	store := NewInMemoryStore()
	store.Remember("conv-1", "Visitor prefers delivery on Fridays")
	store.Remember("conv-1", "Order #1042 was refunded last month")
	store.Remember("conv-2", "Unrelated conversation fact")

	recalled, err := store.Recall(context.Background(), "conv-1", "When is my DELIVERY due?", 5)
	require.NoError(t, err)
	require.Len(t, recalled, 1)
	assert.Contains(t, recalled[0], "Fridays")
}

func TestRecallEmptyQueryReturnsNewestFirst(t *testing.T) {
	store := NewInMemoryStore()
	store.Remember("conv-1", "first")
	store.Remember("conv-1", "second")
	store.Remember("conv-1", "third")

	recalled, err := store.Recall(context.Background(), "conv-1", "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second"}, recalled)
}

func TestRecallUnknownConversation(t *testing.T) {
	store := NewInMemoryStore()
	recalled, err := store.Recall(context.Background(), "missing", "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, recalled)
}
