package handoff

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpmesh/helpmesh/core"
	"github.com/helpmesh/helpmesh/store"
)

type stubSentiment struct {
	result *core.SentimentResult
	err    error
	calls  int
}

func (s *stubSentiment) AnalyzeConversation(_ context.Context, _ []*core.Message) (*core.SentimentResult, error) {
	s.calls++
	return s.result, s.err
}

func testAgent() *core.Agent {
	return &core.Agent{
		ID:                  "ag-1",
		OrganizationID:      "org-1",
		Name:                "Support",
		ConfidenceThreshold: 0.7,
		AutoEscalate:        true,
	}
}

func seedUserMessages(t *testing.T, msgs *store.InMemoryMessageStore, conversationID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, msgs.CreateMessage(context.Background(), &core.Message{
			ID:             fmt.Sprintf("u-%d", i),
			ConversationID: conversationID,
			Role:           core.RoleUser,
			Content:        fmt.Sprintf("message %d", i),
		}))
	}
}

func TestEvaluateAutoEscalateDisabled(t *testing.T) {
	agent := testAgent()
	agent.AutoEscalate = false
	e := NewEvaluator(store.NewInMemoryMessageStore())

	// Even an explicit human request must not escalate a disabled agent.
	ev, err := e.Evaluate(context.Background(), agent, "conv-1", "I want a human now, this is unacceptable", 0.1)
	require.NoError(t, err)
	assert.False(t, ev.ShouldHandoff)
}

func TestEvaluateUserRequest(t *testing.T) {
	e := NewEvaluator(store.NewInMemoryMessageStore())

	tests := []string{
		"I want to talk to a human",
		"could you transfer me please",
		"je veux parler à un conseiller",
		"let me speak with a person",
	}
	for _, msg := range tests {
		t.Run(msg, func(t *testing.T) {
			ev, err := e.Evaluate(context.Background(), testAgent(), "conv-1", msg, 0.95)
			require.NoError(t, err)
			assert.True(t, ev.ShouldHandoff)
			assert.Equal(t, core.PriorityHigh, ev.Priority)
			assert.Equal(t, MethodUserRequest, ev.Method)
		})
	}
}

func TestEvaluateSensitiveTopic(t *testing.T) {
	e := NewEvaluator(store.NewInMemoryMessageStore())

	ev, err := e.Evaluate(context.Background(), testAgent(), "conv-1", "I need a refund for this order", 0.95)
	require.NoError(t, err)
	assert.True(t, ev.ShouldHandoff)
	assert.Equal(t, core.PriorityUrgent, ev.Priority)
	assert.Equal(t, MethodSensitiveTopic, ev.Method)
}

func TestEvaluateUserRequestBeatsLowConfidence(t *testing.T) {
	msgs := store.NewInMemoryMessageStore()
	conf := func(v float64) *float64 { return &v }
	for i := 0; i < 3; i++ {
		require.NoError(t, msgs.CreateMessage(context.Background(), &core.Message{
			ID: fmt.Sprintf("a-%d", i), ConversationID: "conv-1",
			Role: core.RoleAssistant, Confidence: conf(0.2),
		}))
	}
	e := NewEvaluator(msgs)

	ev, err := e.Evaluate(context.Background(), testAgent(), "conv-1", "please let me talk to someone", 0.2)
	require.NoError(t, err)
	assert.Equal(t, MethodUserRequest, ev.Method)
}

func TestEvaluateConfidenceStreak(t *testing.T) {
	conf := func(v float64) *float64 { return &v }

	tests := []struct {
		name        string
		confidences []float64
		current     float64
		want        bool
	}{
		{"streak of two escalates", []float64{0.9, 0.5, 0.4}, 0.3, true},
		{"streak broken by confident reply", []float64{0.5, 0.9, 0.4}, 0.3, false},
		{"single low reply does not escalate", []float64{0.9, 0.9, 0.4}, 0.3, false},
		{"confident current reply never triggers", []float64{0.4, 0.4, 0.4}, 0.9, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := store.NewInMemoryMessageStore()
			for i, c := range tt.confidences {
				require.NoError(t, msgs.CreateMessage(context.Background(), &core.Message{
					ID: fmt.Sprintf("a-%d", i), ConversationID: "conv-1",
					Role: core.RoleAssistant, Confidence: conf(c),
				}))
			}
			e := NewEvaluator(msgs)

			ev, err := e.Evaluate(context.Background(), testAgent(), "conv-1", "ok", tt.current)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev.ShouldHandoff)
			if tt.want {
				assert.Equal(t, core.PriorityMedium, ev.Priority)
				assert.Equal(t, MethodConfidenceThreshold, ev.Method)
			}
		})
	}
}

func TestEvaluateFrustrationKeywords(t *testing.T) {
	e := NewEvaluator(store.NewInMemoryMessageStore())

	// Two distinct keywords: severe, urgent.
	ev, err := e.Evaluate(context.Background(), testAgent(), "conv-1", "this is useless, I am fed up", 0.9)
	require.NoError(t, err)
	assert.True(t, ev.ShouldHandoff)
	assert.Equal(t, core.PriorityUrgent, ev.Priority)
	assert.Equal(t, MethodFrustrationDetected, ev.Method)

	// One keyword: high.
	ev, err = e.Evaluate(context.Background(), testAgent(), "conv-1", "honestly this is ridiculous", 0.9)
	require.NoError(t, err)
	assert.True(t, ev.ShouldHandoff)
	assert.Equal(t, core.PriorityHigh, ev.Priority)
}

func TestEvaluateSentimentFallback(t *testing.T) {
	msgs := store.NewInMemoryMessageStore()
	seedUserMessages(t, msgs, "conv-1", 4)
	sentiment := &stubSentiment{result: &core.SentimentResult{
		OverallSentiment:      "negative",
		FrustrationDetected:   true,
		EscalationRecommended: true,
	}}
	e := NewEvaluator(msgs, func(o *EvaluatorOptions) { o.Sentiment = sentiment })

	ev, err := e.Evaluate(context.Background(), testAgent(), "conv-1", "ok then", 0.9)
	require.NoError(t, err)
	assert.True(t, ev.ShouldHandoff)
	assert.Equal(t, core.PriorityUrgent, ev.Priority)
	assert.Equal(t, 1, sentiment.calls)
}

func TestEvaluateSentimentSkippedOnShortHistory(t *testing.T) {
	msgs := store.NewInMemoryMessageStore()
	seedUserMessages(t, msgs, "conv-1", 2)
	sentiment := &stubSentiment{result: &core.SentimentResult{FrustrationDetected: true}}
	e := NewEvaluator(msgs, func(o *EvaluatorOptions) { o.Sentiment = sentiment })

	ev, err := e.Evaluate(context.Background(), testAgent(), "conv-1", "ok then", 0.9)
	require.NoError(t, err)
	assert.False(t, ev.ShouldHandoff)
	assert.Zero(t, sentiment.calls)
}

func TestEvaluateSentimentFailureDegrades(t *testing.T) {
	msgs := store.NewInMemoryMessageStore()
	seedUserMessages(t, msgs, "conv-1", 4)
	sentiment := &stubSentiment{err: errors.New("sentiment service down")}
	e := NewEvaluator(msgs, func(o *EvaluatorOptions) { o.Sentiment = sentiment })

	ev, err := e.Evaluate(context.Background(), testAgent(), "conv-1", "ok then", 0.9)
	require.NoError(t, err)
	assert.False(t, ev.ShouldHandoff)
}

func TestEvaluateLongConversation(t *testing.T) {
	msgs := store.NewInMemoryMessageStore()
	seedUserMessages(t, msgs, "conv-1", 12)
	e := NewEvaluator(msgs)

	ev, err := e.Evaluate(context.Background(), testAgent(), "conv-1", "and another question", 0.9)
	require.NoError(t, err)
	assert.True(t, ev.ShouldHandoff)
	assert.Equal(t, core.PriorityMedium, ev.Priority)
	assert.Equal(t, MethodFrustrationDetected, ev.Method)
}

func TestEvaluateNoCriteria(t *testing.T) {
	e := NewEvaluator(store.NewInMemoryMessageStore())

	ev, err := e.Evaluate(context.Background(), testAgent(), "conv-1", "thanks, that solved it", 0.9)
	require.NoError(t, err)
	assert.False(t, ev.ShouldHandoff)
	assert.Equal(t, core.PriorityLow, ev.Priority)
}
