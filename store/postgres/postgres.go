// Package postgres provides the durable PostgreSQL implementations of the
// core store interfaces on top of a pgx connection pool. Counter increments
// run as single UPDATE statements, so they stay atomic under concurrent
// turns without explicit transactions.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgxpool.Pool shared by the three store implementations.
type DB struct {
	pool *pgxpool.Pool
}

// New connects a pool to dsn and verifies it with a ping.
func New(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &DB{pool: pool}, nil
}

// NewFromPool wraps an existing pool, useful when the host application owns
// pool lifecycle.
func NewFromPool(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool { return db.pool }

// Close releases the pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Agents returns the AgentStore view of this database.
func (db *DB) Agents() *AgentStore { return &AgentStore{db: db} }

// Conversations returns the ConversationStore view of this database.
func (db *DB) Conversations() *ConversationStore { return &ConversationStore{db: db} }

// Messages returns the MessageStore view of this database.
func (db *DB) Messages() *MessageStore { return &MessageStore{db: db} }

// Schema is the reference DDL for the three tables. Deployments with a
// migration tool should translate this into versioned migrations; tests and
// small installs can execute it directly.
const Schema = `
CREATE TABLE IF NOT EXISTS agents (
    id                   TEXT PRIMARY KEY,
    organization_id      TEXT NOT NULL,
    name                 TEXT NOT NULL,
    model                TEXT NOT NULL DEFAULT '',
    temperature          DOUBLE PRECISION NOT NULL DEFAULT 0,
    max_tokens_per_reply INTEGER NOT NULL DEFAULT 0,
    context_window       INTEGER NOT NULL DEFAULT 10,
    system_prompt        TEXT NOT NULL DEFAULT '',
    custom_instructions  TEXT NOT NULL DEFAULT '',
    tone                 TEXT NOT NULL DEFAULT '',
    confidence_threshold DOUBLE PRECISION NOT NULL DEFAULT 0.7,
    auto_escalate        BOOLEAN NOT NULL DEFAULT TRUE,
    escalation_message   TEXT NOT NULL DEFAULT '',
    escalation_email     TEXT NOT NULL DEFAULT '',
    fallback_message     TEXT NOT NULL DEFAULT '',
    has_knowledge_base   BOOLEAN NOT NULL DEFAULT FALSE,
    workflow_graph       JSONB,
    intents              TEXT[] NOT NULL DEFAULT '{}',
    channels             TEXT[] NOT NULL DEFAULT '{}',
    total_tokens         BIGINT NOT NULL DEFAULT 0,
    total_cost_usd       DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_agents_org ON agents (organization_id);

CREATE TABLE IF NOT EXISTS conversations (
    id                  TEXT PRIMARY KEY,
    organization_id     TEXT NOT NULL,
    agent_id            TEXT NOT NULL,
    contact_id          TEXT NOT NULL DEFAULT '',
    channel_type        TEXT NOT NULL DEFAULT 'web',
    status              TEXT NOT NULL DEFAULT 'ACTIVE',
    message_count       INTEGER NOT NULL DEFAULT 0,
    total_tokens        BIGINT NOT NULL DEFAULT 0,
    total_cost_usd      DOUBLE PRECISION NOT NULL DEFAULT 0,
    escalated_at        TIMESTAMPTZ,
    escalation_reason   TEXT NOT NULL DEFAULT '',
    escalation_priority TEXT NOT NULL DEFAULT '',
    visitor_name        TEXT NOT NULL DEFAULT '',
    visitor_email       TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_conversations_org_status ON conversations (organization_id, status);

CREATE TABLE IF NOT EXISTS messages (
    id              TEXT PRIMARY KEY,
    conversation_id TEXT NOT NULL,
    role            TEXT NOT NULL,
    content         TEXT NOT NULL,
    confidence      DOUBLE PRECISION,
    tokens_in       INTEGER NOT NULL DEFAULT 0,
    tokens_out      INTEGER NOT NULL DEFAULT 0,
    cost_usd        DOUBLE PRECISION NOT NULL DEFAULT 0,
    intent          TEXT NOT NULL DEFAULT '',
    sentiment       TEXT NOT NULL DEFAULT '',
    sources_used    TEXT[] NOT NULL DEFAULT '{}',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, created_at);
`

// EnsureSchema executes the reference DDL.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}
