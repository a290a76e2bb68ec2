package orchestrator

import (
	"strings"

	"github.com/helpmesh/helpmesh/core"
)

const (
	// uncertaintyPenalty is subtracted once when the response text contains
	// any uncertainty marker.
	uncertaintyPenalty = 0.25

	// kbThresholdFactor scales the agent's confidence threshold into the
	// baseline for knowledge-base agents whose retrieval returned nothing.
	kbThresholdFactor = 0.6

	// noKBBaseline is the flat confidence for agents without a knowledge
	// base when no sources back the answer.
	noKBBaseline = 0.72
)

// uncertaintyMarkers are phrases signalling the model is unsure of its own
// answer, in the languages the product supports.
var uncertaintyMarkers = []string{
	"i don't know",
	"i do not know",
	"i'm not sure",
	"i am not sure",
	"i'm not certain",
	"i cannot help",
	"i can't help",
	"i don't have that information",
	"i don't have information",
	"je ne sais pas",
	"je ne suis pas sûr",
	"je ne suis pas sur",
	"je ne suis pas certain",
	"je n'ai pas cette information",
	"no estoy seguro",
	"no lo sé",
	"ich weiß nicht",
	"ich bin mir nicht sicher",
}

// scoreConfidence computes the confidence of one LLM reply. With retrieved
// sources it is their mean score; without, a baseline depending on whether
// the agent has a knowledge base at all. Uncertainty phrasing in the reply
// subtracts a fixed penalty. The result is always clamped to [0,1].
func scoreConfidence(agent *core.Agent, responseText string, sources []core.RetrievedSource) float64 {
	var confidence float64
	if len(sources) > 0 {
		sum := 0.0
		for _, s := range sources {
			sum += s.Score
		}
		confidence = sum / float64(len(sources))
	} else if agent.HasKnowledgeBase {
		confidence = agent.ConfidenceThreshold * kbThresholdFactor
	} else {
		confidence = noKBBaseline
	}

	lower := strings.ToLower(responseText)
	for _, marker := range uncertaintyMarkers {
		if strings.Contains(lower, marker) {
			confidence -= uncertaintyPenalty
			break
		}
	}

	return core.ClampConfidence(confidence)
}
