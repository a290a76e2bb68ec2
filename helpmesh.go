// Package helpmesh provides a high-level façade over the turn orchestrator
// and its collaborating services (stores, model routing, workflow execution,
// escalation). Most applications interact with this package by:
//  1. Creating a Helpmesh via New() (optionally overriding the default
//     in-memory stores and supplying a real completion backend)
//  2. Seeding or connecting agent and conversation data
//  3. Calling ProcessTurn for each inbound visitor message
//
// The façade delegates all turn semantics to orchestrator.Orchestrator while
// keeping setup ergonomics concise. Defaults are safe for local development
// and testing; production deployments supply the PostgreSQL stores, a
// provider-backed model router and a structured logger.
package helpmesh

import (
	"context"

	"github.com/helpmesh/helpmesh/core"
	"github.com/helpmesh/helpmesh/handoff"
	"github.com/helpmesh/helpmesh/logging"
	"github.com/helpmesh/helpmesh/metrics"
	"github.com/helpmesh/helpmesh/orchestrator"
	"github.com/helpmesh/helpmesh/store"
)

// Options configures the Helpmesh instance.
type Options struct {
	// Stores (default to in-memory implementations if not provided).
	Agents        core.AgentStore
	Conversations core.ConversationStore
	Messages      core.MessageStore

	// Completer produces LLM replies, typically a *model.Router. Required
	// for agents that reply via the LLM; workflow-only installs may leave
	// it unset.
	Completer orchestrator.Completer

	// Optional collaborators, forwarded to the orchestrator. Nil disables
	// the corresponding step.
	Quota      core.QuotaChecker
	Usage      core.UsageRecorder
	Jobs       core.JobQueue
	Retriever  core.Retriever
	Memory     core.MemoryStore
	Guardrails core.GuardrailStore
	Vertical   core.VerticalContextProvider

	// FallbackProviders are tried in order when the primary provider fails.
	FallbackProviders []string

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger

	// Metrics enables Prometheus instrumentation when set.
	Metrics *metrics.Metrics
}

// Helpmesh is the high-level façade aggregating the orchestrator and stores.
type Helpmesh struct {
	opts         Options
	orchestrator *orchestrator.Orchestrator
}

// New creates a Helpmesh instance with optional overrides. Any unset store is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Helpmesh {
	opts := Options{
		Agents:        store.NewInMemoryAgentStore(),
		Conversations: store.NewInMemoryConversationStore(),
		Messages:      store.NewInMemoryMessageStore(),
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	orch := orchestrator.New(opts.Agents, opts.Conversations, opts.Messages, opts.Completer, func(o *orchestrator.Options) {
		o.Quota = opts.Quota
		o.Usage = opts.Usage
		o.Jobs = opts.Jobs
		o.Retriever = opts.Retriever
		o.Memory = opts.Memory
		o.Guardrails = opts.Guardrails
		o.Vertical = opts.Vertical
		o.FallbackProviders = opts.FallbackProviders
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})

	return &Helpmesh{opts: opts, orchestrator: orch}
}

// ProcessTurn runs one complete agent turn for an inbound visitor message.
func (h *Helpmesh) ProcessTurn(ctx context.Context, in orchestrator.TurnInput) (*orchestrator.TurnOutput, error) {
	return h.orchestrator.ProcessTurn(ctx, in)
}

// EscalationQueue returns the organization's escalated conversations ordered
// for human pickup, most urgent and longest-waiting first.
func (h *Helpmesh) EscalationQueue(ctx context.Context, organizationID string) ([]handoff.QueueItem, error) {
	return handoff.Queue(ctx, h.opts.Conversations, h.opts.Messages, organizationID)
}

// Agents returns the configured agent store.
func (h *Helpmesh) Agents() core.AgentStore { return h.opts.Agents }

// Conversations returns the configured conversation store.
func (h *Helpmesh) Conversations() core.ConversationStore { return h.opts.Conversations }

// Messages returns the configured message store.
func (h *Helpmesh) Messages() core.MessageStore { return h.opts.Messages }
