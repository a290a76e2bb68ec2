package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helpmesh/helpmesh/core"
)

// MessageStore implements core.MessageStore over PostgreSQL.
type MessageStore struct {
	db *DB
}

var _ core.MessageStore = (*MessageStore)(nil)

const messageColumns = `id, conversation_id, role, content, confidence, tokens_in, tokens_out,
	cost_usd, intent, sentiment, sources_used, created_at`

// CreateMessage appends a transcript row. A missing id or timestamp is filled
// in, mirroring the in-memory store.
func (s *MessageStore) CreateMessage(ctx context.Context, msg *core.Message) error {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	sources := msg.SourcesUsed
	if sources == nil {
		sources = []string{}
	}
	_, err := s.db.pool.Exec(ctx,
		`INSERT INTO messages (`+messageColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, msg.ConversationID, string(msg.Role), msg.Content, msg.Confidence,
		msg.TokensIn, msg.TokensOut, msg.CostUSD, msg.Intent, msg.Sentiment,
		sources, createdAt)
	if err != nil {
		return fmt.Errorf("postgres: create message: %w", err)
	}
	msg.ID = id
	msg.CreatedAt = createdAt
	return nil
}

// RecentMessages returns up to limit most recent messages in chronological
// order. The inner query selects the newest rows, the outer one flips them
// back into transcript order.
func (s *MessageStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]*core.Message, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM (
		     SELECT `+messageColumns+` FROM messages
		     WHERE conversation_id = $1
		     ORDER BY created_at DESC, id DESC
		     LIMIT $2
		 ) recent
		 ORDER BY created_at, id`,
		conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent messages: %w", err)
	}
	defer rows.Close()

	var msgs []*core.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: recent messages: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: recent messages: %w", err)
	}
	return msgs, nil
}

// LatestUserMessage returns the newest USER message, or nil when the
// conversation has none yet.
func (s *MessageStore) LatestUserMessage(ctx context.Context, conversationID string) (*core.Message, error) {
	row := s.db.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE conversation_id = $1 AND role = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		conversationID, string(core.RoleUser))
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: latest user message: %w", err)
	}
	return msg, nil
}

// RecentAssistantConfidences returns up to limit confidence values of the most
// recent assistant messages, newest first.
func (s *MessageStore) RecentAssistantConfidences(ctx context.Context, conversationID string, limit int) ([]float64, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT confidence FROM messages
		 WHERE conversation_id = $1 AND role = $2 AND confidence IS NOT NULL
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3`,
		conversationID, string(core.RoleAssistant), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent assistant confidences: %w", err)
	}
	defer rows.Close()

	var confidences []float64
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("postgres: recent assistant confidences: %w", err)
		}
		confidences = append(confidences, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: recent assistant confidences: %w", err)
	}
	return confidences, nil
}

// CountUserMessages returns how many USER messages the conversation holds.
func (s *MessageStore) CountUserMessages(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := s.db.pool.QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE conversation_id = $1 AND role = $2`,
		conversationID, string(core.RoleUser)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count user messages: %w", err)
	}
	return count, nil
}

func scanMessage(row pgx.Row) (*core.Message, error) {
	var m core.Message
	var role string
	err := row.Scan(
		&m.ID, &m.ConversationID, &role, &m.Content, &m.Confidence, &m.TokensIn, &m.TokensOut,
		&m.CostUSD, &m.Intent, &m.Sentiment, &m.SourcesUsed, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Role = core.Role(role)
	return &m, nil
}
