package model

import (
	"context"
	"time"
)

// Message is one chat message in provider-neutral form.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Request captures the normalized completion input produced by the
// orchestrator's prompt assembly.
type Request struct {
	Model       string        `json:"model"`
	Messages    []Message     `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout,omitempty"`

	// RetryCount is the number of additional attempts per provider before
	// moving on to the next fallback.
	RetryCount int `json:"retry_count,omitempty"`

	// FallbackProviders names registered providers to try, in order, after
	// the primary provider fails.
	FallbackProviders []string `json:"fallback_providers,omitempty"`
}

// Response is the completed reply. CostUSD is computed from the pricing
// table when the provider does not report it.
type Response struct {
	Content      string  `json:"content"`
	Model        string  `json:"model"`
	Provider     string  `json:"provider"`
	TokensIn     int     `json:"tokens_in"`
	TokensOut    int     `json:"tokens_out"`
	CostUSD      float64 `json:"cost_usd"`
	FinishReason string  `json:"finish_reason"`
	LatencyMS    int64   `json:"latency_ms"`
}

// Info contains metadata about a provider implementation.
type Info struct {
	Name     string `json:"name"`     // provider key, e.g. "openai"
	Provider string `json:"provider"` // vendor label for logs
}

// Provider is the minimal interface a completion backend implements. A
// Provider must fail loudly: either a complete Response or an error, never
// partial content.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the provider implementation.
	Info() Info
}
