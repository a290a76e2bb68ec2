package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpmesh/helpmesh/core"
	"github.com/helpmesh/helpmesh/model"
	"github.com/helpmesh/helpmesh/store"
)

type capturedUsage struct {
	records []core.UsageRecord
}

func (c *capturedUsage) RecordUsage(_ context.Context, rec core.UsageRecord) error {
	c.records = append(c.records, rec)
	return nil
}

type stubQuota struct{ err error }

func (s *stubQuota) CheckQuota(context.Context, string) error { return s.err }

type stubGuardrails struct{ terms []string }

func (s *stubGuardrails) BlockedTerms(context.Context, string) ([]string, error) {
	return s.terms, nil
}

type stubJobs struct {
	jobs []string // job ids, in enqueue order
}

func (s *stubJobs) EnqueueEscalation(_ context.Context, _ string, _ map[string]any, jobID string) error {
	s.jobs = append(s.jobs, jobID)
	return nil
}

type stubRetriever struct {
	result *core.RetrievalResult
	err    error
}

func (s *stubRetriever) RetrieveContext(context.Context, string, string, core.RetrieveOptions) (*core.RetrievalResult, error) {
	return s.result, s.err
}

type fixture struct {
	agents        *store.InMemoryAgentStore
	conversations *store.InMemoryConversationStore
	messages      *store.InMemoryMessageStore
	provider      *model.MockProvider
	usage         *capturedUsage
	jobs          *stubJobs
}

func newFixture(t *testing.T, agent *core.Agent) *fixture {
	t.Helper()
	f := &fixture{
		agents:        store.NewInMemoryAgentStore(),
		conversations: store.NewInMemoryConversationStore(),
		messages:      store.NewInMemoryMessageStore(),
		provider:      model.NewMockProvider("mock", "mock"),
		usage:         &capturedUsage{},
		jobs:          &stubJobs{},
	}
	f.agents.PutAgent(agent)
	f.conversations.PutConversation(&core.Conversation{
		ID: "conv-1", OrganizationID: agent.OrganizationID, AgentID: agent.ID, ChannelType: "web",
	})
	return f
}

func (f *fixture) orchestrator(optFns ...func(o *Options)) *Orchestrator {
	base := func(o *Options) {
		o.Usage = f.usage
		o.Jobs = f.jobs
	}
	return New(f.agents, f.conversations, f.messages, f.provider, append([]func(o *Options){base}, optFns...)...)
}

func (f *fixture) assistantMessages(t *testing.T) []*core.Message {
	t.Helper()
	history, err := f.messages.RecentMessages(context.Background(), "conv-1", 100)
	require.NoError(t, err)
	var out []*core.Message
	for _, m := range history {
		if m.Role == core.RoleAssistant {
			out = append(out, m)
		}
	}
	return out
}

func llmAgent() *core.Agent {
	return &core.Agent{
		ID: "ag-1", OrganizationID: "org-1", Name: "Support",
		Model: "gpt-4o-mini", Temperature: 0.3, MaxTokensPerReply: 512, ContextWindow: 10,
		SystemPrompt:        "You are Acme's support agent.",
		ConfidenceThreshold: 0.7,
		AutoEscalate:        true,
	}
}

func TestProcessTurnLLMPath(t *testing.T) {
	f := newFixture(t, llmAgent())
	f.provider.AddResponse("What are your opening hours?", "We are open 9 to 5, Monday to Friday.")
	o := f.orchestrator()

	out, err := o.ProcessTurn(context.Background(), TurnInput{
		AgentID: "ag-1", ConversationID: "conv-1", UserMessage: "What are your opening hours?",
	})
	require.NoError(t, err)

	assert.Equal(t, ModeLLM, out.Mode)
	assert.Equal(t, "We are open 9 to 5, Monday to Friday.", out.Response)
	assert.Equal(t, "en", out.Language)
	require.NotNil(t, out.Confidence)
	assert.InDelta(t, 0.72, *out.Confidence, 1e-9) // no knowledge base, no sources
	assert.Positive(t, out.TokensIn)
	assert.Positive(t, out.TokensOut)
	assert.False(t, out.Escalated)

	// Transcript: user row plus assistant row, with confidence persisted.
	assistant := f.assistantMessages(t)
	require.Len(t, assistant, 1)
	require.NotNil(t, assistant[0].Confidence)
	assert.InDelta(t, 0.72, *assistant[0].Confidence, 1e-9)

	// Exactly one usage record, keyed by fingerprint and model-qualified mode.
	require.Len(t, f.usage.records, 1)
	rec := f.usage.records[0]
	assert.Equal(t, "ai_responses", rec.Type)
	assert.Equal(t, 1, rec.Quantity)
	assert.Equal(t, "llm", rec.Source)
	wantKey := UsageKey(Fingerprint("ag-1", "conv-1", "", "What are your opening hours?"), "llm-gpt-4o-mini")
	assert.Equal(t, wantKey, rec.IdempotencyKey)

	conv, err := f.conversations.GetConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, 2, conv.MessageCount)
	assert.Positive(t, conv.TotalTokens)
}

func TestProcessTurnGuardrailBlock(t *testing.T) {
	agent := llmAgent()
	agent.FallbackMessage = "I can't discuss that topic."
	f := newFixture(t, agent)
	o := f.orchestrator(func(o *Options) {
		o.Guardrails = &stubGuardrails{terms: []string{"forbidden-topic"}}
	})

	out, err := o.ProcessTurn(context.Background(), TurnInput{
		AgentID: "ag-1", ConversationID: "conv-1", UserMessage: "tell me about forbidden-topic",
	})
	require.NoError(t, err)

	assert.Equal(t, ModeGuardrail, out.Mode)
	assert.Equal(t, "I can't discuss that topic.", out.Response)
	assert.Zero(t, out.TokensIn)
	assert.Zero(t, out.TokensOut)
	assert.Zero(t, out.CostUSD)
	assert.Nil(t, out.Confidence)

	assert.Zero(t, f.provider.Calls(), "guardrail path must never reach the LLM")
	assert.Empty(t, f.usage.records, "guardrail path must not record usage")

	assistant := f.assistantMessages(t)
	require.Len(t, assistant, 1)
	assert.Zero(t, assistant[0].CostUSD)
}

func TestProcessTurnProviderFailurePersistsNothing(t *testing.T) {
	f := newFixture(t, llmAgent())
	providerErr := errors.New("upstream unavailable")
	f.provider.FailWith(providerErr)
	o := f.orchestrator()

	_, err := o.ProcessTurn(context.Background(), TurnInput{
		AgentID: "ag-1", ConversationID: "conv-1", UserMessage: "hello",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, providerErr, "provider failure must propagate unmodified")

	assert.Empty(t, f.assistantMessages(t), "no assistant message on provider failure")
	assert.Empty(t, f.usage.records, "no usage recorded on provider failure")
}

func TestProcessTurnQuotaExceeded(t *testing.T) {
	f := newFixture(t, llmAgent())
	o := f.orchestrator(func(o *Options) {
		o.Quota = &stubQuota{err: core.ErrQuotaExceeded}
	})

	_, err := o.ProcessTurn(context.Background(), TurnInput{
		AgentID: "ag-1", ConversationID: "conv-1", UserMessage: "hello",
	})
	assert.ErrorIs(t, err, core.ErrQuotaExceeded)
	assert.Zero(t, f.provider.Calls())
}

func TestProcessTurnNotFound(t *testing.T) {
	f := newFixture(t, llmAgent())
	o := f.orchestrator()

	_, err := o.ProcessTurn(context.Background(), TurnInput{
		AgentID: "missing", ConversationID: "conv-1", UserMessage: "hello",
	})
	assert.ErrorIs(t, err, core.ErrAgentNotFound)

	_, err = o.ProcessTurn(context.Background(), TurnInput{
		AgentID: "ag-1", ConversationID: "missing", UserMessage: "hello",
	})
	assert.ErrorIs(t, err, core.ErrConversationNotFound)
}

func TestProcessTurnCrossTenantLooksLikeNotFound(t *testing.T) {
	f := newFixture(t, llmAgent())
	f.conversations.PutConversation(&core.Conversation{
		ID: "conv-other", OrganizationID: "org-2", AgentID: "ag-9", ChannelType: "web",
	})
	o := f.orchestrator()

	_, err := o.ProcessTurn(context.Background(), TurnInput{
		AgentID: "ag-1", ConversationID: "conv-other", UserMessage: "hello",
	})
	assert.ErrorIs(t, err, core.ErrConversationNotFound)
}

func TestProcessTurnRetrievalFeedsConfidence(t *testing.T) {
	agent := llmAgent()
	agent.HasKnowledgeBase = true
	f := newFixture(t, agent)
	o := f.orchestrator(func(o *Options) {
		o.Retriever = &stubRetriever{result: &core.RetrievalResult{
			Context: "Opening hours are 9 to 5.",
			Sources: []core.RetrievedSource{
				{ChunkID: "ch-1", Score: 0.9},
				{ChunkID: "ch-2", Score: 0.7},
			},
		}}
	})

	out, err := o.ProcessTurn(context.Background(), TurnInput{
		AgentID: "ag-1", ConversationID: "conv-1", UserMessage: "when are you open?",
	})
	require.NoError(t, err)

	require.NotNil(t, out.Confidence)
	assert.InDelta(t, 0.8, *out.Confidence, 1e-9)
	assert.Equal(t, []string{"ch-1", "ch-2"}, out.SourcesUsed)
}

func TestProcessTurnRetrievalFailurePropagates(t *testing.T) {
	agent := llmAgent()
	agent.HasKnowledgeBase = true
	f := newFixture(t, agent)
	retrievalErr := errors.New("vector store down")
	o := f.orchestrator(func(o *Options) {
		o.Retriever = &stubRetriever{err: retrievalErr}
	})

	_, err := o.ProcessTurn(context.Background(), TurnInput{
		AgentID: "ag-1", ConversationID: "conv-1", UserMessage: "when are you open?",
	})
	assert.ErrorIs(t, err, retrievalErr)
	assert.Empty(t, f.assistantMessages(t))
}

func TestProcessTurnWorkflowBranch(t *testing.T) {
	agent := llmAgent()
	agent.WorkflowGraph = []byte(`{"nodes":[
		{"id":"s","type":"start","next":"m"},
		{"id":"m","type":"message","next":"e","data":{"text":"Welcome {{visitor_name}}, an agent will assist you."}},
		{"id":"e","type":"end"}
	]}`)
	f := newFixture(t, agent)
	f.conversations.PutConversation(&core.Conversation{
		ID: "conv-1", OrganizationID: "org-1", AgentID: "ag-1", ChannelType: "web", VisitorName: "Ada",
	})
	o := f.orchestrator()

	out, err := o.ProcessTurn(context.Background(), TurnInput{
		AgentID: "ag-1", ConversationID: "conv-1", UserMessage: "hi",
	})
	require.NoError(t, err)

	assert.Equal(t, ModeWorkflow, out.Mode)
	assert.Equal(t, "Welcome Ada, an agent will assist you.", out.Response)
	assert.Nil(t, out.Confidence)
	assert.Zero(t, f.provider.Calls(), "workflow branch must not call the LLM")

	require.Len(t, f.usage.records, 1)
	assert.Equal(t, "workflow", f.usage.records[0].Source)
	wantKey := UsageKey(Fingerprint("ag-1", "conv-1", "", "hi"), ModeWorkflow)
	assert.Equal(t, wantKey, f.usage.records[0].IdempotencyKey)
}

func TestProcessTurnMalformedWorkflowFallsBack(t *testing.T) {
	agent := llmAgent()
	agent.WorkflowGraph = []byte(`{"nodes": [{`)
	agent.FallbackMessage = "Sorry, something went wrong on our side."
	f := newFixture(t, agent)
	o := f.orchestrator()

	out, err := o.ProcessTurn(context.Background(), TurnInput{
		AgentID: "ag-1", ConversationID: "conv-1", UserMessage: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sorry, something went wrong on our side.", out.Response)
}

func TestProcessTurnRoutesToIntentScopedAgent(t *testing.T) {
	f := newFixture(t, llmAgent())
	f.agents.PutAgent(&core.Agent{
		ID: "ag-refunds", OrganizationID: "org-1", Name: "Refund desk",
		Model: "gpt-4o-mini", ContextWindow: 10,
		Intents:             []string{"refund_request"},
		ConfidenceThreshold: 0.7,
	})
	o := f.orchestrator()

	// "money back" classifies as refund_request without tripping the
	// sensitive-topic escalation keywords.
	out, err := o.ProcessTurn(context.Background(), TurnInput{
		AgentID: "ag-1", ConversationID: "conv-1", UserMessage: "I would like my money back please",
	})
	require.NoError(t, err)
	assert.Equal(t, "ag-refunds", out.AgentID)
	assert.Equal(t, "refund_request", out.Intent)
}

func TestProcessTurnEscalatesAndEnqueuesJob(t *testing.T) {
	f := newFixture(t, llmAgent())
	o := f.orchestrator()

	out, err := o.ProcessTurn(context.Background(), TurnInput{
		AgentID: "ag-1", ConversationID: "conv-1", UserMessage: "I want to talk to a human",
	})
	require.NoError(t, err)

	assert.True(t, out.Escalated)
	assert.Equal(t, core.PriorityHigh, out.EscalationPriority)

	conv, err := f.conversations.GetConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusEscalated, conv.Status)

	// Job keyed by conversation id so duplicates collapse downstream.
	assert.Equal(t, []string{"conv-1"}, f.jobs.jobs)
}

func TestProcessTurnReplayKeepsUsageKeyStable(t *testing.T) {
	f := newFixture(t, llmAgent())
	o := f.orchestrator()

	_, err := o.ProcessTurn(context.Background(), TurnInput{
		AgentID: "ag-1", ConversationID: "conv-1", UserMessage: "Hello There",
	})
	require.NoError(t, err)

	f2 := newFixture(t, llmAgent())
	o2 := f2.orchestrator()
	_, err = o2.ProcessTurn(context.Background(), TurnInput{
		AgentID: "ag-1", ConversationID: "conv-1", UserMessage: "hello   there",
	})
	require.NoError(t, err)

	require.Len(t, f.usage.records, 1)
	require.Len(t, f2.usage.records, 1)
	assert.Equal(t, f.usage.records[0].IdempotencyKey, f2.usage.records[0].IdempotencyKey,
		"identical logical requests must produce identical usage keys")
}
