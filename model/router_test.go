package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRouter(primary string) *Router {
	return NewRouter(primary, func(o *RouterOptions) {
		o.RetryBackoff = time.Millisecond
	})
}

func userReq(content string) Request {
	return Request{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: "user", Content: content}},
	}
}

func TestRouterNoProviders(t *testing.T) {
	r := NewRouter("")
	_, err := r.Complete(context.Background(), userReq("hi"))
	assert.Error(t, err)
}

func TestRouterPrimarySucceeds(t *testing.T) {
	primary := NewMockProvider("gpt-4o-mini", "openai")
	primary.AddResponse("hi", "hello")
	r := fastRouter("openai")
	r.Register("openai", primary)

	resp, err := r.Complete(context.Background(), userReq("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, 1, primary.Calls())
}

func TestRouterFallsBackInOrder(t *testing.T) {
	boom := errors.New("rate limited")
	primary := NewMockProvider("gpt-4o-mini", "openai")
	primary.FailWith(boom)
	backup := NewMockProvider("claude-3-5-haiku-20241022", "anthropic")
	backup.AddResponse("hi", "hello from backup")

	r := fastRouter("openai")
	r.Register("openai", primary)
	r.Register("anthropic", backup)

	req := userReq("hi")
	req.FallbackProviders = []string{"anthropic"}

	resp, err := r.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "hello from backup", resp.Content)
	assert.Equal(t, "anthropic", resp.Provider)
	assert.Equal(t, 1, primary.Calls())
}

func TestRouterReturnsLastErrorUnmodified(t *testing.T) {
	boom := errors.New("provider exploded")
	primary := NewMockProvider("gpt-4o-mini", "openai")
	primary.FailWith(errors.New("first failure"))
	backup := NewMockProvider("gpt-4o-mini", "azure")
	backup.FailWith(boom)

	r := fastRouter("openai")
	r.Register("openai", primary)
	r.Register("azure", backup)

	req := userReq("hi")
	req.FallbackProviders = []string{"azure"}

	_, err := r.Complete(context.Background(), req)
	assert.Same(t, boom, err)
}

func TestRouterRetriesPerProvider(t *testing.T) {
	primary := NewMockProvider("gpt-4o-mini", "openai")
	primary.FailWith(errors.New("flaky"))

	r := fastRouter("openai")
	r.Register("openai", primary)

	req := userReq("hi")
	req.RetryCount = 2

	_, err := r.Complete(context.Background(), req)
	assert.Error(t, err)
	assert.Equal(t, 3, primary.Calls())
}

func TestRouterSkipsUnknownFallback(t *testing.T) {
	primary := NewMockProvider("gpt-4o-mini", "openai")
	primary.FailWith(errors.New("down"))

	r := fastRouter("openai")
	r.Register("openai", primary)

	req := userReq("hi")
	req.FallbackProviders = []string{"does-not-exist"}

	_, err := r.Complete(context.Background(), req)
	assert.Error(t, err)
}

func TestCostUSD(t *testing.T) {
	assert.InDelta(t, 0.15+0.60, CostUSD("gpt-4o-mini", 1_000_000, 1_000_000), 1e-9)
	// Snapshot names price like their base model.
	assert.InDelta(t, CostUSD("gpt-4o", 1000, 500), CostUSD("gpt-4o-2024-08-06", 1000, 500), 1e-9)
	// Unknown models use the default rate instead of zero.
	assert.Greater(t, CostUSD("some-new-model", 1000, 1000), 0.0)
}
