package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helpmesh/helpmesh/action"
	"github.com/helpmesh/helpmesh/core"
	"github.com/helpmesh/helpmesh/handoff"
	"github.com/helpmesh/helpmesh/logging"
	"github.com/helpmesh/helpmesh/metrics"
	"github.com/helpmesh/helpmesh/model"
	"github.com/helpmesh/helpmesh/workflow"
)

// Mode labels which path produced the reply.
const (
	ModeGuardrail = "guardrail"
	ModeWorkflow  = "workflow"
	ModeLLM       = "llm"
)

// defaultFallbackMessage is used when an agent has no fallback message
// configured and the turn cannot produce a real reply (guardrail block, empty
// workflow output).
const defaultFallbackMessage = "I'm sorry, I can't help with that request. Let me connect you with a member of our team."

// escalationJobType is the job queue type for escalation notifications.
const escalationJobType = "escalation_notification"

// Completer is the completion surface the orchestrator calls; *model.Router
// and model.MockProvider both satisfy it.
type Completer interface {
	Complete(ctx context.Context, req model.Request) (*model.Response, error)
}

// Options configure the optional collaborators of an Orchestrator. Leaving a
// collaborator nil disables the corresponding step: no quota enforcement, no
// retrieval, no guardrail, and so on.
type Options struct {
	Quota      core.QuotaChecker
	Usage      core.UsageRecorder
	Jobs       core.JobQueue
	Retriever  core.Retriever
	Memory     core.MemoryStore
	Guardrails core.GuardrailStore
	Vertical   core.VerticalContextProvider

	// Evaluator and Executor handle escalation; when nil they are built from
	// the stores with default options.
	Evaluator *handoff.Evaluator
	Executor  *handoff.Executor

	// Engine executes workflow graphs; when nil one is built over a default
	// action registry backed by in-memory integration clients.
	Engine *workflow.Engine

	// FallbackProviders are handed to every completion request.
	FallbackProviders []string

	// Retrieval tuning.
	RetrieveTopK     int
	RetrieveMinScore float64

	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// Orchestrator runs complete agent turns. It is safe for concurrent use; all
// per-turn state is local to ProcessTurn.
type Orchestrator struct {
	agents        core.AgentStore
	conversations core.ConversationStore
	messages      core.MessageStore
	llm           Completer

	quota      core.QuotaChecker
	usage      core.UsageRecorder
	jobs       core.JobQueue
	retriever  core.Retriever
	memory     core.MemoryStore
	guardrails core.GuardrailStore
	vertical   core.VerticalContextProvider

	evaluator *handoff.Evaluator
	executor  *handoff.Executor
	engine    *workflow.Engine

	fallbackProviders []string
	retrieveTopK      int
	retrieveMinScore  float64

	logger  logging.Logger
	metrics *metrics.Metrics
}

// New creates an Orchestrator over the given stores and completion backend.
func New(agents core.AgentStore, conversations core.ConversationStore, messages core.MessageStore, llm Completer, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Logger:           logging.NoOpLogger{},
		RetrieveTopK:     5,
		RetrieveMinScore: 0.5,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Evaluator == nil {
		opts.Evaluator = handoff.NewEvaluator(messages, func(o *handoff.EvaluatorOptions) {
			o.Logger = opts.Logger
		})
	}
	if opts.Executor == nil {
		opts.Executor = handoff.NewExecutor(conversations, messages, func(o *handoff.ExecutorOptions) {
			o.Logger = opts.Logger
			o.Metrics = opts.Metrics
		})
	}
	if opts.Engine == nil {
		registry := action.NewDefaultRegistry(action.CatalogClients{}, func(o *action.RegistryOptions) {
			o.Logger = opts.Logger
			o.Metrics = opts.Metrics
		})
		opts.Engine = workflow.NewEngine(registry, func(o *workflow.EngineOptions) {
			o.Logger = opts.Logger
			o.Metrics = opts.Metrics
		})
	}

	return &Orchestrator{
		agents:            agents,
		conversations:     conversations,
		messages:          messages,
		llm:               llm,
		quota:             opts.Quota,
		usage:             opts.Usage,
		jobs:              opts.Jobs,
		retriever:         opts.Retriever,
		memory:            opts.Memory,
		guardrails:        opts.Guardrails,
		vertical:          opts.Vertical,
		evaluator:         opts.Evaluator,
		executor:          opts.Executor,
		engine:            opts.Engine,
		fallbackProviders: opts.FallbackProviders,
		retrieveTopK:      opts.RetrieveTopK,
		retrieveMinScore:  opts.RetrieveMinScore,
		logger:            opts.Logger,
		metrics:           opts.Metrics,
	}
}

// TurnInput identifies one inbound user message.
type TurnInput struct {
	AgentID        string
	ConversationID string
	UserMessage    string
}

// TurnOutput is the completed turn.
type TurnOutput struct {
	ConversationID string
	AgentID        string // the agent that produced the reply, after routing
	Response       string
	Mode           string
	Language       string
	Intent         string

	// Confidence is nil for guardrail and workflow replies.
	Confidence *float64

	TokensIn    int
	TokensOut   int
	CostUSD     float64
	SourcesUsed []string

	Escalated          bool
	EscalationPriority core.Priority
	EscalationReason   string
}

// ProcessTurn runs one complete agent turn. It returns an error only for
// missing entities, quota exhaustion or an unrecovered provider failure;
// every other failure mode degrades into the returned TurnOutput.
func (o *Orchestrator) ProcessTurn(ctx context.Context, in TurnInput) (*TurnOutput, error) {
	started := time.Now()

	agent, err := o.agents.GetAgent(ctx, in.AgentID)
	if err != nil {
		return nil, err
	}
	conv, err := o.conversations.GetConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv.OrganizationID != agent.OrganizationID {
		// Cross-tenant access looks identical to a missing conversation.
		return nil, core.ErrConversationNotFound
	}

	// The fingerprint binds this logical request to the transcript position
	// it arrived at, before this turn writes anything.
	latestID := ""
	if latest, err := o.messages.LatestUserMessage(ctx, in.ConversationID); err == nil && latest != nil {
		latestID = latest.ID
	}
	fingerprint := Fingerprint(agent.ID, conv.ID, latestID, in.UserMessage)

	if o.quota != nil {
		if err := o.quota.CheckQuota(ctx, agent.OrganizationID); err != nil {
			return nil, err
		}
	}

	if err := o.persistMessage(ctx, conv.ID, core.RoleUser, in.UserMessage, nil, 0, 0, 0, "", nil); err != nil {
		return nil, err
	}

	if blocked := o.guardrailBlocked(ctx, agent.OrganizationID, in.UserMessage); blocked {
		return o.guardrailTurn(ctx, agent, conv, started)
	}

	language := DetectLanguage(in.UserMessage)
	intent := ClassifyIntent(in.UserMessage)

	routed, err := o.routeAgent(ctx, agent, intent.Name, conv.ChannelType)
	if err != nil {
		o.logger.Warn("agent routing failed, keeping current agent", "error", err.Error())
		routed = agent
	}
	if routed.ID != agent.ID {
		o.logger.Info("re-routed turn to better-suited agent",
			"from", agent.ID, "to", routed.ID, "intent", intent.Name, "channel", conv.ChannelType)
		agent = routed
	}

	mode := ModeLLM
	var out *TurnOutput
	if agent.HasWorkflow() {
		mode = ModeWorkflow
		out, err = o.workflowTurn(ctx, agent, conv, in, fingerprint, language, intent)
	} else {
		out, err = o.llmTurn(ctx, agent, conv, in, fingerprint, language, intent)
	}
	if err != nil {
		if o.metrics != nil {
			o.metrics.TurnsProcessed.WithLabelValues(mode, "error").Inc()
		}
		return nil, err
	}

	o.evaluateEscalation(ctx, agent, conv, in, out)

	if o.metrics != nil {
		o.metrics.TurnsProcessed.WithLabelValues(out.Mode, "ok").Inc()
		o.metrics.TurnDuration.Observe(time.Since(started).Seconds())
	}
	return out, nil
}

// guardrailBlocked reports whether the message matches the organization's
// denylist. A guardrail store failure never blocks the turn.
func (o *Orchestrator) guardrailBlocked(ctx context.Context, organizationID, message string) bool {
	if o.guardrails == nil {
		return false
	}
	terms, err := o.guardrails.BlockedTerms(ctx, organizationID)
	if err != nil {
		o.logger.Warn("guardrail lookup failed, letting message through", "error", err.Error())
		return false
	}
	lower := strings.ToLower(message)
	for _, term := range terms {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// guardrailTurn persists the zero-cost fallback reply for a blocked message.
// This path never touches the LLM, the workflow engine or the usage recorder.
func (o *Orchestrator) guardrailTurn(ctx context.Context, agent *core.Agent, conv *core.Conversation, started time.Time) (*TurnOutput, error) {
	response := agent.FallbackMessage
	if response == "" {
		response = defaultFallbackMessage
	}

	if err := o.persistMessage(ctx, conv.ID, core.RoleAssistant, response, nil, 0, 0, 0, "", nil); err != nil {
		return nil, err
	}

	if o.metrics != nil {
		o.metrics.GuardrailBlocks.Inc()
		o.metrics.TurnsProcessed.WithLabelValues(ModeGuardrail, "ok").Inc()
		o.metrics.TurnDuration.Observe(time.Since(started).Seconds())
	}
	o.logger.Info("guardrail blocked inbound message", "conversation_id", conv.ID)

	return &TurnOutput{
		ConversationID: conv.ID,
		AgentID:        agent.ID,
		Response:       response,
		Mode:           ModeGuardrail,
	}, nil
}

// workflowTurn delegates the reply to the agent's workflow graph.
func (o *Orchestrator) workflowTurn(ctx context.Context, agent *core.Agent, conv *core.Conversation, in TurnInput, fingerprint, language string, intent ClassifiedIntent) (*TurnOutput, error) {
	graph, err := workflow.ParseGraph(agent.WorkflowGraph)
	if err != nil {
		// A malformed stored graph degrades to the fallback reply rather
		// than failing the visitor's turn.
		o.logger.Error("stored workflow graph failed to parse", "agent_id", agent.ID, "error", err.Error())
		graph = nil
	}

	var result *workflow.Output
	if graph != nil {
		result = o.engine.Execute(ctx, graph, workflow.Input{
			UserMessage: in.UserMessage,
			Variables: map[string]any{
				"conversation_id": conv.ID,
				"agent_name":      agent.Name,
				"channel":         conv.ChannelType,
				"language":        language,
				"intent":          intent.Name,
				"visitor_name":    conv.VisitorName,
				"visitor_email":   conv.VisitorEmail,
			},
			Call: action.CallContext{
				OrganizationID: agent.OrganizationID,
				AgentID:        agent.ID,
				ConversationID: conv.ID,
			},
		})
	} else {
		result = &workflow.Output{}
	}

	response := result.Response
	if response == "" {
		response = agent.FallbackMessage
		if response == "" {
			response = defaultFallbackMessage
		}
	}

	if err := o.persistMessage(ctx, conv.ID, core.RoleAssistant, response, nil, 0, 0, 0, intent.Name, nil); err != nil {
		return nil, err
	}

	o.recordUsage(ctx, agent, conv, fingerprint, ModeWorkflow, map[string]any{
		"actions_executed": result.ActionsExecuted,
		"intent":           intent.Name,
		"language":         language,
	})

	return &TurnOutput{
		ConversationID: conv.ID,
		AgentID:        agent.ID,
		Response:       response,
		Mode:           ModeWorkflow,
		Language:       language,
		Intent:         intent.Name,
	}, nil
}

// llmTurn builds context, assembles the prompt and calls the completion
// backend. A provider failure is returned unmodified with nothing persisted
// and no usage recorded.
func (o *Orchestrator) llmTurn(ctx context.Context, agent *core.Agent, conv *core.Conversation, in TurnInput, fingerprint, language string, intent ClassifiedIntent) (*TurnOutput, error) {
	window := agent.ContextWindow
	if window <= 0 {
		window = 10
	}
	history, err := o.messages.RecentMessages(ctx, conv.ID, window)
	if err != nil {
		return nil, fmt.Errorf("load conversation history: %w", err)
	}

	pc := promptContext{Language: language}
	var sources []core.RetrievedSource
	if o.retriever != nil && agent.HasKnowledgeBase {
		retrieval, err := o.retriever.RetrieveContext(ctx, in.UserMessage, agent.ID, core.RetrieveOptions{
			TopK:     o.retrieveTopK,
			MinScore: o.retrieveMinScore,
		})
		if err != nil {
			return nil, err
		}
		pc.Knowledge = retrieval.Context
		sources = retrieval.Sources
	}
	if o.memory != nil {
		if recalled, err := o.memory.Recall(ctx, conv.ID, in.UserMessage, 5); err == nil {
			pc.Memory = recalled
		} else {
			o.logger.Warn("memory recall failed, continuing without", "error", err.Error())
		}
	}
	if o.vertical != nil {
		if vc, err := o.vertical.VerticalContext(ctx, agent.ID); err == nil {
			pc.Vertical = vc
		} else {
			o.logger.Warn("vertical context lookup failed, continuing without", "error", err.Error())
		}
	}

	req := model.Request{
		Model:             agent.Model,
		Messages:          buildChatMessages(agent, pc, history),
		Temperature:       agent.Temperature,
		MaxTokens:         agent.MaxTokensPerReply,
		FallbackProviders: o.fallbackProviders,
	}

	if o.llm == nil {
		return nil, fmt.Errorf("agent %s replies via the LLM but no completion backend is configured", agent.ID)
	}

	callStart := time.Now()
	resp, err := o.llm.Complete(ctx, req)
	o.observeModelCall(agent.Model, resp, time.Since(callStart), err)
	if err != nil {
		return nil, err
	}

	confidence := scoreConfidence(agent, resp.Content, sources)
	sourceIDs := make([]string, 0, len(sources))
	for _, s := range sources {
		sourceIDs = append(sourceIDs, s.ChunkID)
	}

	totalTokens := resp.TokensIn + resp.TokensOut
	if err := o.persistMessage(ctx, conv.ID, core.RoleAssistant, resp.Content, &confidence, resp.TokensIn, resp.TokensOut, resp.CostUSD, intent.Name, sourceIDs); err != nil {
		return nil, err
	}
	if err := o.agents.IncrementAgentCounters(ctx, agent.ID, totalTokens, resp.CostUSD); err != nil {
		o.logger.Warn("agent counter update failed", "agent_id", agent.ID, "error", err.Error())
	}

	o.recordUsage(ctx, agent, conv, fingerprint, ModeLLM+"-"+agent.Model, map[string]any{
		"model":      resp.Model,
		"provider":   resp.Provider,
		"tokens_in":  resp.TokensIn,
		"tokens_out": resp.TokensOut,
		"cost_usd":   resp.CostUSD,
		"intent":     intent.Name,
		"language":   language,
	})

	return &TurnOutput{
		ConversationID: conv.ID,
		AgentID:        agent.ID,
		Response:       resp.Content,
		Mode:           ModeLLM,
		Language:       language,
		Intent:         intent.Name,
		Confidence:     &confidence,
		TokensIn:       resp.TokensIn,
		TokensOut:      resp.TokensOut,
		CostUSD:        resp.CostUSD,
		SourcesUsed:    sourceIDs,
	}, nil
}

// evaluateEscalation runs the handoff rule chain after the reply and executes
// the transition plus notification job when it triggers. Escalation failures
// are logged, never fatal to the turn.
func (o *Orchestrator) evaluateEscalation(ctx context.Context, agent *core.Agent, conv *core.Conversation, in TurnInput, out *TurnOutput) {
	// Workflow and guardrail replies carry no model confidence; evaluate
	// with full confidence so only the text and history rules can trigger.
	confidence := 1.0
	if out.Confidence != nil {
		confidence = *out.Confidence
	}

	eval, err := o.evaluator.Evaluate(ctx, agent, conv.ID, in.UserMessage, confidence)
	if err != nil {
		o.logger.Warn("escalation evaluation failed", "conversation_id", conv.ID, "error", err.Error())
		return
	}
	if !eval.ShouldHandoff {
		return
	}

	result, err := o.executor.Execute(ctx, agent, conv.ID, eval.Reason, eval.Priority, eval.Method)
	if err != nil {
		o.logger.Error("handoff execution failed", "conversation_id", conv.ID, "error", err.Error())
		return
	}

	out.Escalated = result.Success
	out.EscalationPriority = eval.Priority
	out.EscalationReason = eval.Reason

	if o.jobs != nil && len(result.NotifiedChannels) > 0 {
		// Keyed by conversation id so repeated triggers collapse to one job.
		err := o.jobs.EnqueueEscalation(ctx, escalationJobType, map[string]any{
			"conversation_id": conv.ID,
			"agent_id":        agent.ID,
			"reason":          eval.Reason,
			"priority":        string(eval.Priority),
			"method":          string(eval.Method),
		}, conv.ID)
		if err != nil {
			o.logger.Warn("escalation job enqueue failed", "conversation_id", conv.ID, "error", err.Error())
		}
	}
}

// persistMessage appends one transcript row and bumps the conversation
// message counter.
func (o *Orchestrator) persistMessage(ctx context.Context, conversationID string, role core.Role, content string, confidence *float64, tokensIn, tokensOut int, costUSD float64, intent string, sourcesUsed []string) error {
	msg := &core.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Confidence:     confidence,
		TokensIn:       tokensIn,
		TokensOut:      tokensOut,
		CostUSD:        costUSD,
		Intent:         intent,
		SourcesUsed:    sourcesUsed,
		CreatedAt:      time.Now().UTC(),
	}
	if err := o.messages.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("persist %s message: %w", strings.ToLower(string(role)), err)
	}
	if err := o.conversations.IncrementConversationCounters(ctx, conversationID, 1, tokensIn+tokensOut, costUSD); err != nil {
		o.logger.Warn("conversation counter update failed", "conversation_id", conversationID, "error", err.Error())
	}
	return nil
}

// recordUsage meters one billable response. The mode-qualified fingerprint
// makes replayed delivery record usage exactly once.
func (o *Orchestrator) recordUsage(ctx context.Context, agent *core.Agent, conv *core.Conversation, fingerprint, mode string, metadata map[string]any) {
	if o.usage == nil {
		return
	}
	source := "llm"
	if mode == ModeWorkflow {
		source = "workflow"
	}
	err := o.usage.RecordUsage(ctx, core.UsageRecord{
		OrganizationID: agent.OrganizationID,
		Type:           "ai_responses",
		Quantity:       1,
		AgentID:        agent.ID,
		ConversationID: conv.ID,
		Source:         source,
		IdempotencyKey: UsageKey(fingerprint, mode),
		Metadata:       metadata,
	})
	if err != nil {
		o.logger.Warn("usage metering failed", "conversation_id", conv.ID, "error", err.Error())
	}
}

func (o *Orchestrator) observeModelCall(modelName string, resp *model.Response, dur time.Duration, err error) {
	if tl, ok := o.logger.(*logging.TurnLogger); ok {
		tokens := 0
		if resp != nil {
			tokens = resp.TokensIn + resp.TokensOut
		}
		tl.LogModelCall(modelName, tokens, dur, err == nil, err)
	}
	if o.metrics == nil {
		return
	}
	status := "ok"
	provider := "unknown"
	if resp != nil && resp.Provider != "" {
		provider = resp.Provider
	}
	if err != nil {
		status = "error"
	}
	o.metrics.ModelCalls.WithLabelValues(provider, modelName, status).Inc()
	o.metrics.ModelCallDuration.WithLabelValues(provider).Observe(dur.Seconds())
	if resp != nil {
		o.metrics.ModelTokens.WithLabelValues(provider, modelName, "in").Add(float64(resp.TokensIn))
		o.metrics.ModelTokens.WithLabelValues(provider, modelName, "out").Add(float64(resp.TokensOut))
	}
}

// buildChatMessages maps the system prompt and recent transcript onto the
// provider-neutral chat shape. System transcript rows (handoff notices) are
// skipped; the model only sees user and assistant turns.
func buildChatMessages(agent *core.Agent, pc promptContext, history []*core.Message) []model.Message {
	msgs := make([]model.Message, 0, len(history)+1)
	msgs = append(msgs, model.Message{Role: "system", Content: buildSystemPrompt(agent, pc)})
	for _, m := range history {
		switch m.Role {
		case core.RoleUser:
			msgs = append(msgs, model.Message{Role: "user", Content: m.Content})
		case core.RoleAssistant:
			msgs = append(msgs, model.Message{Role: "assistant", Content: m.Content})
		}
	}
	return msgs
}
