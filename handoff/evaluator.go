package handoff

import (
	"context"
	"fmt"
	"strings"

	"github.com/helpmesh/helpmesh/core"
	"github.com/helpmesh/helpmesh/logging"
)

// Method names the rule that triggered (or declined) an escalation.
type Method string

const (
	MethodConfidenceThreshold Method = "confidence_threshold"
	MethodFrustrationDetected Method = "frustration_detected"
	MethodUserRequest         Method = "user_request"
	MethodSensitiveTopic      Method = "sensitive_topic"
)

const (
	// maxBackAndForth is the user-message count past which the conversation
	// is presumed stuck and escalated.
	maxBackAndForth = 12

	// confidenceStreakWindow is how many recent assistant confidences the
	// streak scan may look at.
	confidenceStreakWindow = 5

	// confidenceStreakMin is the number of consecutive below-threshold
	// replies required before low confidence alone escalates.
	confidenceStreakMin = 2

	// sentimentMinMessages is the minimum number of recent user messages
	// before the sentiment collaborator is consulted.
	sentimentMinMessages = 3

	// historyWindow bounds the transcript slice evaluation reads.
	historyWindow = 30
)

// Evaluation is the outcome of one handoff decision.
type Evaluation struct {
	ShouldHandoff bool          `json:"should_handoff"`
	Reason        string        `json:"reason"`
	Priority      core.Priority `json:"priority"`
	Method        Method        `json:"method"`

	// Confidence echoes the AI confidence the decision was evaluated
	// against, for queue and notification display.
	Confidence float64 `json:"confidence"`
}

// EvaluatorOptions configure an Evaluator.
type EvaluatorOptions struct {
	// Sentiment is consulted when keyword frustration detection is
	// inconclusive. Optional; evaluation proceeds without it.
	Sentiment core.SentimentAnalyzer

	Logger logging.Logger
}

// Evaluator applies the escalation rule chain. It has no side effects beyond
// its own history reads; executing a handoff is the Executor's job.
type Evaluator struct {
	messages  core.MessageStore
	sentiment core.SentimentAnalyzer
	logger    logging.Logger
}

// NewEvaluator creates an Evaluator reading history through messages.
func NewEvaluator(messages core.MessageStore, optFns ...func(o *EvaluatorOptions)) *Evaluator {
	opts := EvaluatorOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Evaluator{messages: messages, sentiment: opts.Sentiment, logger: opts.Logger}
}

// Evaluate runs the rule chain in priority order and returns the first match.
// aiConfidence is the confidence of the reply just produced, already clamped.
func (e *Evaluator) Evaluate(ctx context.Context, agent *core.Agent, conversationID, latestMessage string, aiConfidence float64) (*Evaluation, error) {
	eval, err := e.evaluate(ctx, agent, conversationID, latestMessage, aiConfidence)
	if eval != nil {
		eval.Confidence = aiConfidence
	}
	return eval, err
}

func (e *Evaluator) evaluate(ctx context.Context, agent *core.Agent, conversationID, latestMessage string, aiConfidence float64) (*Evaluation, error) {
	if !agent.AutoEscalate {
		return &Evaluation{
			Reason:   "auto-escalation is disabled for this agent",
			Priority: core.PriorityLow,
			Method:   MethodConfidenceThreshold,
		}, nil
	}

	lower := strings.ToLower(latestMessage)

	if userRequestsHuman(lower) {
		return &Evaluation{
			ShouldHandoff: true,
			Reason:        "visitor explicitly asked to talk to a human",
			Priority:      core.PriorityHigh,
			Method:        MethodUserRequest,
		}, nil
	}

	if topic := detectSensitiveTopic(lower); topic != "" {
		return &Evaluation{
			ShouldHandoff: true,
			Reason:        fmt.Sprintf("sensitive topic detected: %s", topic),
			Priority:      core.PriorityUrgent,
			Method:        MethodSensitiveTopic,
		}, nil
	}

	threshold := agent.ConfidenceThreshold
	if threshold <= 0 {
		threshold = 0.7
	}
	if aiConfidence < threshold {
		streak, err := e.lowConfidenceStreak(ctx, conversationID, threshold)
		if err != nil {
			return nil, fmt.Errorf("evaluate handoff: %w", err)
		}
		if streak >= confidenceStreakMin {
			return &Evaluation{
				ShouldHandoff: true,
				Reason:        fmt.Sprintf("AI confidence too low (%.2f), %d consecutive replies under the %.2f threshold", aiConfidence, streak, threshold),
				Priority:      core.PriorityMedium,
				Method:        MethodConfidenceThreshold,
			}, nil
		}
	}

	history, err := e.messages.RecentMessages(ctx, conversationID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("evaluate handoff: %w", err)
	}

	if frustration := e.detectFrustration(ctx, lower, history); frustration.detected {
		priority := core.PriorityHigh
		if frustration.severe {
			priority = core.PriorityUrgent
		}
		return &Evaluation{
			ShouldHandoff: true,
			Reason:        frustration.reason,
			Priority:      priority,
			Method:        MethodFrustrationDetected,
		}, nil
	}

	userCount, err := e.messages.CountUserMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("evaluate handoff: %w", err)
	}
	if userCount >= maxBackAndForth {
		return &Evaluation{
			ShouldHandoff: true,
			Reason:        fmt.Sprintf("conversation too long (%d user messages), probable difficulty resolving the request", userCount),
			Priority:      core.PriorityMedium,
			Method:        MethodFrustrationDetected,
		}, nil
	}

	return &Evaluation{
		Reason:   "no escalation criteria matched",
		Priority: core.PriorityLow,
		Method:   MethodConfidenceThreshold,
	}, nil
}

// lowConfidenceStreak counts consecutive below-threshold assistant replies,
// scanning backwards from the newest until the streak breaks.
func (e *Evaluator) lowConfidenceStreak(ctx context.Context, conversationID string, threshold float64) (int, error) {
	confidences, err := e.messages.RecentAssistantConfidences(ctx, conversationID, confidenceStreakWindow)
	if err != nil {
		return 0, err
	}
	streak := 0
	for _, c := range confidences {
		if c >= threshold {
			break
		}
		streak++
	}
	return streak, nil
}

type frustrationSignal struct {
	detected bool
	severe   bool
	reason   string
}

// detectFrustration matches frustration keywords in the latest message; when
// none match it falls back to the sentiment collaborator over the recent user
// messages. A sentiment failure degrades to "no frustration" with a warning.
func (e *Evaluator) detectFrustration(ctx context.Context, lowerMessage string, history []*core.Message) frustrationSignal {
	var matched []string
	for _, kw := range frustrationKeywordsFR {
		if strings.Contains(lowerMessage, kw) {
			matched = append(matched, kw)
		}
	}
	for _, kw := range frustrationKeywordsEN {
		if strings.Contains(lowerMessage, kw) {
			matched = append(matched, kw)
		}
	}

	if len(matched) >= 2 {
		preview := matched
		if len(preview) > 3 {
			preview = preview[:3]
		}
		return frustrationSignal{
			detected: true,
			severe:   true,
			reason:   fmt.Sprintf("high frustration detected: multiple indicators (%s)", strings.Join(preview, ", ")),
		}
	}
	if len(matched) == 1 {
		return frustrationSignal{
			detected: true,
			reason:   fmt.Sprintf("frustration detected: %q", matched[0]),
		}
	}

	if e.sentiment == nil {
		return frustrationSignal{}
	}

	var userMessages []*core.Message
	for _, m := range history {
		if m.Role == core.RoleUser {
			userMessages = append(userMessages, m)
		}
	}
	if len(userMessages) > confidenceStreakWindow {
		userMessages = userMessages[len(userMessages)-confidenceStreakWindow:]
	}
	if len(userMessages) < sentimentMinMessages {
		return frustrationSignal{}
	}

	result, err := e.sentiment.AnalyzeConversation(ctx, userMessages)
	if err != nil {
		e.logger.Warn("sentiment analysis failed during frustration detection", "error", err.Error())
		return frustrationSignal{}
	}
	if result.FrustrationDetected || result.EscalationRecommended {
		return frustrationSignal{
			detected: true,
			severe:   result.EscalationRecommended,
			reason:   fmt.Sprintf("sentiment analysis reports frustration over recent messages (overall sentiment: %s)", result.OverallSentiment),
		}
	}
	return frustrationSignal{}
}

func userRequestsHuman(lowerMessage string) bool {
	for _, re := range userRequestPatterns {
		if re.MatchString(lowerMessage) {
			return true
		}
	}
	return false
}

func detectSensitiveTopic(lowerMessage string) string {
	for _, topic := range sensitiveTopics {
		if strings.Contains(lowerMessage, topic) {
			return topic
		}
	}
	return ""
}
