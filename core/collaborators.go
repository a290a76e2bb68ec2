package core

import "context"

// UsageRecord is one billable usage event. IdempotencyKey makes retried
// delivery of the same logical request record usage exactly once; the
// recorder is required to dedupe on it.
type UsageRecord struct {
	OrganizationID string         `json:"organization_id"`
	Type           string         `json:"type"` // e.g. "ai_responses"
	Quantity       int            `json:"quantity"`
	AgentID        string         `json:"agent_id"`
	ConversationID string         `json:"conversation_id"`
	Source         string         `json:"source"` // "llm" or "workflow"
	IdempotencyKey string         `json:"idempotency_key"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// UsageRecorder meters billable usage. Implementations must be idempotent
// keyed on UsageRecord.IdempotencyKey.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, rec UsageRecord) error
}

// QuotaChecker enforces per-organization plan limits before any paid work
// begins. Implementations return ErrQuotaExceeded when the organization is
// over its limit.
type QuotaChecker interface {
	CheckQuota(ctx context.Context, organizationID string) error
}

// JobQueue enqueues asynchronous notification jobs. Enqueuing twice with the
// same jobID must collapse into a single job.
type JobQueue interface {
	EnqueueEscalation(ctx context.Context, jobType string, payload map[string]any, jobID string) error
}

// RetrievedSource is one knowledge chunk returned by retrieval.
type RetrievedSource struct {
	ChunkID       string  `json:"chunk_id"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	DocumentTitle string  `json:"document_title"`
}

// RetrievalResult is the assembled context plus the scored sources behind it.
type RetrievalResult struct {
	Context string            `json:"context"`
	Sources []RetrievedSource `json:"sources"`
}

// RetrieveOptions tune a retrieval call.
type RetrieveOptions struct {
	TopK     int
	MinScore float64
}

// Retriever augments prompts with knowledge-base context (RAG). A nil
// Retriever simply means agents answer without retrieved knowledge.
type Retriever interface {
	RetrieveContext(ctx context.Context, query, agentID string, opts RetrieveOptions) (*RetrievalResult, error)
}

// MemoryStore recalls long-term conversation memory snippets for prompt
// assembly.
type MemoryStore interface {
	Recall(ctx context.Context, conversationID, query string, limit int) ([]string, error)
}

// SentimentResult is the aggregate judgement over a window of user messages.
type SentimentResult struct {
	OverallSentiment      string `json:"overall_sentiment"`
	FrustrationDetected   bool   `json:"frustration_detected"`
	EscalationRecommended bool   `json:"escalation_recommended"`
}

// SentimentAnalyzer judges recent user messages when keyword heuristics are
// inconclusive. Optional; evaluation proceeds without it.
type SentimentAnalyzer interface {
	AnalyzeConversation(ctx context.Context, messages []*Message) (*SentimentResult, error)
}

// Email is an outbound notification message.
type Email struct {
	To      string   `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// EmailSender delivers notification emails. Send failures during a handoff
// are logged by the caller, never fatal.
type EmailSender interface {
	SendEmail(ctx context.Context, email Email) error
}

// GuardrailStore returns the admin-configured denylist applied to inbound
// messages before any paid computation.
type GuardrailStore interface {
	BlockedTerms(ctx context.Context, organizationID string) ([]string, error)
}

// VerticalContextProvider supplies optional domain context (e.g. product or
// industry data) injected into the system prompt.
type VerticalContextProvider interface {
	VerticalContext(ctx context.Context, agentID string) (string, error)
}
