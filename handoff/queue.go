package handoff

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/helpmesh/helpmesh/core"
)

// previewLen caps the last-message preview in queue items.
const previewLen = 200

// QueueItem is one escalated conversation awaiting a human, with enough
// context to triage it without opening the transcript.
type QueueItem struct {
	ConversationID     string        `json:"conversation_id"`
	AgentID            string        `json:"agent_id"`
	VisitorName        string        `json:"visitor_name,omitempty"`
	VisitorEmail       string        `json:"visitor_email,omitempty"`
	EscalationReason   string        `json:"escalation_reason,omitempty"`
	EscalationPriority core.Priority `json:"escalation_priority,omitempty"`
	MessageCount       int           `json:"message_count"`
	EscalatedAt        *time.Time    `json:"escalated_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	LastMessagePreview string        `json:"last_message_preview,omitempty"`
}

// Queue returns the organization's escalated conversations ordered for human
// triage: by priority (urgent first), then by escalation time (oldest first).
func Queue(ctx context.Context, conversations core.ConversationStore, messages core.MessageStore, organizationID string) ([]QueueItem, error) {
	escalated, err := conversations.ListEscalated(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("escalation queue: %w", err)
	}

	items := make([]QueueItem, 0, len(escalated))
	for _, conv := range escalated {
		item := QueueItem{
			ConversationID:     conv.ID,
			AgentID:            conv.AgentID,
			VisitorName:        conv.VisitorName,
			VisitorEmail:       conv.VisitorEmail,
			EscalationReason:   conv.EscalationReason,
			EscalationPriority: conv.EscalationPriority,
			MessageCount:       conv.MessageCount,
			EscalatedAt:        conv.EscalatedAt,
			CreatedAt:          conv.CreatedAt,
		}
		if recent, err := messages.RecentMessages(ctx, conv.ID, 1); err == nil && len(recent) > 0 {
			preview := recent[0].Content
			if len(preview) > previewLen {
				preview = preview[:previewLen]
			}
			item.LastMessagePreview = preview
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := core.PriorityRank(items[i].EscalationPriority), core.PriorityRank(items[j].EscalationPriority)
		if ri != rj {
			return ri < rj
		}
		ti, tj := queueTime(items[i].EscalatedAt), queueTime(items[j].EscalatedAt)
		return ti.Before(tj)
	})

	return items, nil
}

func queueTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
