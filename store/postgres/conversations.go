package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helpmesh/helpmesh/core"
)

// ConversationStore implements core.ConversationStore over PostgreSQL.
type ConversationStore struct {
	db *DB
}

var _ core.ConversationStore = (*ConversationStore)(nil)

const conversationColumns = `id, organization_id, agent_id, contact_id, channel_type, status,
	message_count, total_tokens, total_cost_usd, escalated_at, escalation_reason,
	escalation_priority, visitor_name, visitor_email, created_at`

// GetConversation returns the conversation or core.ErrConversationNotFound.
func (s *ConversationStore) GetConversation(ctx context.Context, id string) (*core.Conversation, error) {
	row := s.db.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrConversationNotFound
		}
		return nil, fmt.Errorf("postgres: get conversation: %w", err)
	}
	return conv, nil
}

// IncrementConversationCounters adds to the running counters in one UPDATE.
func (s *ConversationStore) IncrementConversationCounters(ctx context.Context, id string, messages, tokens int, costUSD float64) error {
	tag, err := s.db.pool.Exec(ctx,
		`UPDATE conversations
		 SET message_count = message_count + $2,
		     total_tokens = total_tokens + $3,
		     total_cost_usd = total_cost_usd + $4
		 WHERE id = $1`,
		id, messages, tokens, costUSD)
	if err != nil {
		return fmt.Errorf("postgres: increment conversation counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrConversationNotFound
	}
	return nil
}

// MarkEscalated transitions the conversation to ESCALATED. The status guard in
// the WHERE clause makes the transition happen at most once even under
// concurrent turns: a second caller matches zero rows and gets false back.
func (s *ConversationStore) MarkEscalated(ctx context.Context, id, reason string, priority core.Priority) (bool, error) {
	tag, err := s.db.pool.Exec(ctx,
		`UPDATE conversations
		 SET status = $2, escalated_at = now(), escalation_reason = $3, escalation_priority = $4
		 WHERE id = $1 AND status <> $2`,
		id, string(core.StatusEscalated), reason, string(priority))
	if err != nil {
		return false, fmt.Errorf("postgres: mark escalated: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	// Zero rows is either "already escalated" or "no such conversation";
	// disambiguate so callers still get the not-found sentinel.
	var exists bool
	if err := s.db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: mark escalated: %w", err)
	}
	if !exists {
		return false, core.ErrConversationNotFound
	}
	return false, nil
}

// ListEscalated returns every escalated conversation of an organization.
func (s *ConversationStore) ListEscalated(ctx context.Context, organizationID string) ([]*core.Conversation, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		 WHERE organization_id = $1 AND status = $2
		 ORDER BY escalated_at`,
		organizationID, string(core.StatusEscalated))
	if err != nil {
		return nil, fmt.Errorf("postgres: list escalated: %w", err)
	}
	defer rows.Close()

	var convs []*core.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: list escalated: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list escalated: %w", err)
	}
	return convs, nil
}

func scanConversation(row pgx.Row) (*core.Conversation, error) {
	var c core.Conversation
	var status, priority string
	var escalatedAt *time.Time
	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.AgentID, &c.ContactID, &c.ChannelType, &status,
		&c.MessageCount, &c.TotalTokens, &c.TotalCostUSD, &escalatedAt, &c.EscalationReason,
		&priority, &c.VisitorName, &c.VisitorEmail, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = core.ConversationStatus(status)
	c.EscalationPriority = core.Priority(priority)
	c.EscalatedAt = escalatedAt
	return &c, nil
}
