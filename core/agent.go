package core

import "encoding/json"

// Agent is the immutable per-turn view of a configured AI agent. Admin CRUD
// mutates agents elsewhere; the turn pipeline only ever reads this snapshot.
type Agent struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`

	// Generation parameters.
	Model             string  `json:"model"`
	Temperature       float64 `json:"temperature"`
	MaxTokensPerReply int     `json:"max_tokens_per_reply"`

	// ContextWindow is the number of recent messages included when building
	// the prompt context.
	ContextWindow int `json:"context_window"`

	SystemPrompt       string `json:"system_prompt"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
	Tone               string `json:"tone,omitempty"`

	// Escalation configuration.
	ConfidenceThreshold float64 `json:"confidence_threshold"` // always in [0,1]
	AutoEscalate        bool    `json:"auto_escalate"`
	EscalationMessage   string  `json:"escalation_message,omitempty"`
	EscalationEmail     string  `json:"escalation_email,omitempty"`

	// FallbackMessage is returned verbatim when the input guardrail blocks a
	// message. Empty means the built-in default applies.
	FallbackMessage string `json:"fallback_message,omitempty"`

	// HasKnowledgeBase reports whether at least one knowledge base is
	// attached; it feeds the confidence heuristic when retrieval returns
	// no sources.
	HasKnowledgeBase bool `json:"has_knowledge_base"`

	// WorkflowGraph holds the user-authored node graph, when present. It is
	// kept as raw JSON here and decoded once by the workflow package at
	// execution time; an empty value means the agent replies via the LLM.
	WorkflowGraph json.RawMessage `json:"workflow_graph,omitempty"`

	// Routing scope used by agent re-routing: which intents and channels
	// this agent declares itself suited for.
	Intents  []string `json:"intents,omitempty"`
	Channels []string `json:"channels,omitempty"`
}

// HasWorkflow reports whether the agent replies through a workflow graph
// instead of the LLM.
func (a *Agent) HasWorkflow() bool {
	return len(a.WorkflowGraph) > 0 && string(a.WorkflowGraph) != "null"
}

// Clone returns a deep copy so stored snapshots cannot be mutated through
// returned references.
func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	clone := *a
	if a.WorkflowGraph != nil {
		clone.WorkflowGraph = append(json.RawMessage(nil), a.WorkflowGraph...)
	}
	if a.Intents != nil {
		clone.Intents = append([]string(nil), a.Intents...)
	}
	if a.Channels != nil {
		clone.Channels = append([]string(nil), a.Channels...)
	}
	return &clone
}
