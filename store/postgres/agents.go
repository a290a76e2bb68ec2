package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/helpmesh/helpmesh/core"
)

// AgentStore implements core.AgentStore over PostgreSQL.
type AgentStore struct {
	db *DB
}

var _ core.AgentStore = (*AgentStore)(nil)

const agentColumns = `id, organization_id, name, model, temperature, max_tokens_per_reply,
	context_window, system_prompt, custom_instructions, tone, confidence_threshold,
	auto_escalate, escalation_message, escalation_email, fallback_message,
	has_knowledge_base, workflow_graph, intents, channels`

// GetAgent returns the agent or core.ErrAgentNotFound.
func (s *AgentStore) GetAgent(ctx context.Context, id string) (*core.Agent, error) {
	row := s.db.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	agent, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrAgentNotFound
		}
		return nil, fmt.Errorf("postgres: get agent: %w", err)
	}
	return agent, nil
}

// ListAgents returns every agent of an organization ordered by id.
func (s *AgentStore) ListAgents(ctx context.Context, organizationID string) ([]*core.Agent, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE organization_id = $1 ORDER BY id`,
		organizationID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list agents: %w", err)
	}
	defer rows.Close()

	var agents []*core.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: list agents: %w", err)
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list agents: %w", err)
	}
	return agents, nil
}

// IncrementAgentCounters adds usage to the agent's running totals in a single
// UPDATE so concurrent turns never lose increments.
func (s *AgentStore) IncrementAgentCounters(ctx context.Context, id string, tokens int, costUSD float64) error {
	tag, err := s.db.pool.Exec(ctx,
		`UPDATE agents SET total_tokens = total_tokens + $2, total_cost_usd = total_cost_usd + $3 WHERE id = $1`,
		id, tokens, costUSD)
	if err != nil {
		return fmt.Errorf("postgres: increment agent counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrAgentNotFound
	}
	return nil
}

func scanAgent(row pgx.Row) (*core.Agent, error) {
	var a core.Agent
	var graph []byte
	err := row.Scan(
		&a.ID, &a.OrganizationID, &a.Name, &a.Model, &a.Temperature, &a.MaxTokensPerReply,
		&a.ContextWindow, &a.SystemPrompt, &a.CustomInstructions, &a.Tone, &a.ConfidenceThreshold,
		&a.AutoEscalate, &a.EscalationMessage, &a.EscalationEmail, &a.FallbackMessage,
		&a.HasKnowledgeBase, &graph, &a.Intents, &a.Channels,
	)
	if err != nil {
		return nil, err
	}
	if len(graph) > 0 {
		a.WorkflowGraph = graph
	}
	return &a, nil
}
