package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helpmesh/helpmesh/core"
)

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("ag-1", "conv-1", "msg-9", "Where is my order?")
	b := Fingerprint("ag-1", "conv-1", "msg-9", "where   IS my  ORDER?")
	assert.Equal(t, a, b, "casing and whitespace must not change the fingerprint")

	c := Fingerprint("ag-1", "conv-1", "msg-10", "Where is my order?")
	assert.NotEqual(t, a, c, "a different transcript position is a different request")

	d := Fingerprint("ag-2", "conv-1", "msg-9", "Where is my order?")
	assert.NotEqual(t, a, d)
}

func TestUsageKeyModes(t *testing.T) {
	fp := Fingerprint("ag-1", "conv-1", "msg-1", "hello")
	assert.NotEqual(t, UsageKey(fp, "workflow"), UsageKey(fp, "llm-gpt-4o-mini"))
	assert.Equal(t, UsageKey(fp, "workflow"), UsageKey(fp, "workflow"))
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"Bonjour, je voudrais parler de ma commande", "fr"},
		{"Hello, I have a question about my invoice", "en"},
		{"Hola, quiero saber el estado de mi pedido, gracias", "es"},
		{"Hallo, ich habe eine Frage zu meiner Rechnung", "de"},
		{"", "en"},
		{"zzzz qqqq", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.message))
		})
	}
}

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		message    string
		wantIntent string
	}{
		{"where is my order? the tracking says nothing", "order_status"},
		{"I want a refund", "refund_request"},
		{"the app shows an error and keeps crashing", "technical_support"},
		{"can I book an appointment for tomorrow", "booking"},
		{"hello there", DefaultIntent},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got := ClassifyIntent(tt.message)
			assert.Equal(t, tt.wantIntent, got.Name)
			if tt.wantIntent == DefaultIntent {
				assert.Equal(t, defaultIntentConfidence, got.Confidence)
			} else {
				assert.Greater(t, got.Confidence, defaultIntentConfidence)
			}
		})
	}
}

func TestScoreAgentWeights(t *testing.T) {
	current := &core.Agent{ID: "ag-1"}
	channelAgent := &core.Agent{ID: "ag-2", Channels: []string{"whatsapp"}}
	intentAgent := &core.Agent{ID: "ag-3", Intents: []string{"refund_request"}}

	assert.Equal(t, 1, scoreAgent(current, current, "refund_request", "whatsapp"))
	assert.Equal(t, 3, scoreAgent(channelAgent, current, "refund_request", "whatsapp"))
	assert.Equal(t, 4, scoreAgent(intentAgent, current, "refund_request", "whatsapp"))

	both := &core.Agent{ID: "ag-4", Channels: []string{"whatsapp"}, Intents: []string{"refund_request"}}
	assert.Equal(t, 7, scoreAgent(both, current, "refund_request", "whatsapp"))
}

func TestScoreConfidence(t *testing.T) {
	kbAgent := &core.Agent{ConfidenceThreshold: 0.7, HasKnowledgeBase: true}
	plainAgent := &core.Agent{ConfidenceThreshold: 0.7}

	t.Run("mean of source scores", func(t *testing.T) {
		sources := []core.RetrievedSource{{Score: 0.8}, {Score: 0.6}}
		assert.InDelta(t, 0.7, scoreConfidence(kbAgent, "answer", sources), 1e-9)
	})

	t.Run("kb agent without sources", func(t *testing.T) {
		assert.InDelta(t, 0.42, scoreConfidence(kbAgent, "answer", nil), 1e-9)
	})

	t.Run("no kb baseline", func(t *testing.T) {
		assert.InDelta(t, 0.72, scoreConfidence(plainAgent, "answer", nil), 1e-9)
	})

	t.Run("uncertainty penalty", func(t *testing.T) {
		assert.InDelta(t, 0.47, scoreConfidence(plainAgent, "I'm not sure about that", nil), 1e-9)
	})

	t.Run("penalty applied once", func(t *testing.T) {
		assert.InDelta(t, 0.47, scoreConfidence(plainAgent, "I don't know, I'm not sure", nil), 1e-9)
	})

	t.Run("clamped at zero", func(t *testing.T) {
		sources := []core.RetrievedSource{{Score: 0.1}}
		assert.Equal(t, 0.0, scoreConfidence(kbAgent, "je ne sais pas", sources))
	})

	t.Run("clamped at one", func(t *testing.T) {
		sources := []core.RetrievedSource{{Score: 1.4}}
		assert.Equal(t, 1.0, scoreConfidence(kbAgent, "answer", sources))
	})
}

func TestBuildSystemPromptSections(t *testing.T) {
	agent := &core.Agent{
		SystemPrompt:       "You are the support agent for Acme.",
		CustomInstructions: "Never promise delivery dates.",
		Tone:               "friendly and concise",
	}
	prompt := buildSystemPrompt(agent, promptContext{
		Knowledge: "Returns are accepted within 30 days.",
		Memory:    []string{"Visitor bought a blue lamp in June."},
		Vertical:  "Acme sells home lighting.",
		Language:  "fr",
	})

	assert.Contains(t, prompt, "You are the support agent for Acme.")
	assert.Contains(t, prompt, "Never promise delivery dates.")
	assert.Contains(t, prompt, "Returns are accepted within 30 days.")
	assert.Contains(t, prompt, "blue lamp")
	assert.Contains(t, prompt, "Acme sells home lighting.")
	assert.Contains(t, prompt, "Tone: friendly and concise.")
	assert.Contains(t, prompt, "Always reply in French.")
	assert.Contains(t, prompt, "Never invent")
}
