package handoff

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helpmesh/helpmesh/core"
	"github.com/helpmesh/helpmesh/logging"
	"github.com/helpmesh/helpmesh/metrics"
)

// defaultNotice is the transcript message left when the agent has no custom
// escalation message configured.
const defaultNotice = "This conversation has been transferred to a human agent. Reason: %s. A member of the team will reply shortly."

// Result reports how a handoff execution went and which channels were
// notified. An already-escalated conversation yields success with no
// channels.
type Result struct {
	Success          bool     `json:"success"`
	NotifiedChannels []string `json:"notified_channels"`
}

// ExecutorOptions configure an Executor.
type ExecutorOptions struct {
	// Email delivers the escalation notification. Optional; without it the
	// handoff still succeeds, only the email channel is skipped.
	Email core.EmailSender

	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// Executor performs the escalation side effects: status transition, system
// notice, email notification. Execution is idempotent per conversation.
type Executor struct {
	conversations core.ConversationStore
	messages      core.MessageStore
	email         core.EmailSender
	logger        logging.Logger
	metrics       *metrics.Metrics
}

// NewExecutor creates an Executor over the given stores.
func NewExecutor(conversations core.ConversationStore, messages core.MessageStore, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{
		conversations: conversations,
		messages:      messages,
		email:         opts.Email,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
	}
}

// Execute escalates the conversation. Re-executing against an already
// escalated conversation is a no-op returning success with no new side
// effects, so duplicate triggers (retried turns, concurrent evaluators)
// cannot double-notify.
func (x *Executor) Execute(ctx context.Context, agent *core.Agent, conversationID, reason string, priority core.Priority, method Method) (*Result, error) {
	transitioned, err := x.conversations.MarkEscalated(ctx, conversationID, reason, priority)
	if err != nil {
		return nil, fmt.Errorf("execute handoff: %w", err)
	}
	if !transitioned {
		x.logger.Debug("conversation already escalated", "conversation_id", conversationID)
		return &Result{Success: true, NotifiedChannels: []string{}}, nil
	}

	channels := []string{"database"}

	notice := agent.EscalationMessage
	if notice == "" {
		notice = fmt.Sprintf(defaultNotice, reason)
	}
	msg := &core.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           core.RoleSystem,
		Content:        notice,
		CreatedAt:      time.Now().UTC(),
	}
	if err := x.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("execute handoff: %w", err)
	}
	channels = append(channels, "in_conversation_notice")

	if x.email != nil && agent.EscalationEmail != "" {
		if err := x.email.SendEmail(ctx, x.buildEmail(agent, conversationID, reason, priority)); err != nil {
			x.logger.Error("failed to send escalation email", "conversation_id", conversationID, "error", err.Error())
		} else {
			channels = append(channels, "email")
		}
	}

	if x.metrics != nil {
		x.metrics.Escalations.WithLabelValues(string(method), string(priority)).Inc()
	}
	x.logger.Info("handoff executed",
		"conversation_id", conversationID,
		"reason", reason,
		"priority", string(priority),
		"channels", strings.Join(channels, ","),
	)

	return &Result{Success: true, NotifiedChannels: channels}, nil
}

func (x *Executor) buildEmail(agent *core.Agent, conversationID, reason string, priority core.Priority) core.Email {
	shortID := conversationID
	if len(shortID) > 8 {
		shortID = shortID[len(shortID)-8:]
	}
	return core.Email{
		To:      agent.EscalationEmail,
		Subject: fmt.Sprintf("[%s] Escalation - %s - Conv. %s", strings.ToUpper(string(priority)), agent.Name, shortID),
		Text: fmt.Sprintf("Conversation escalation\n\nAgent: %s\nConversation: %s\nReason: %s\nPriority: %s",
			agent.Name, conversationID, reason, priority),
		Tags: []string{"escalation", "priority-" + string(priority)},
	}
}
