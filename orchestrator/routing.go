package orchestrator

import (
	"context"
	"strings"

	"github.com/helpmesh/helpmesh/core"
)

// Routing score weights. Intent fit outweighs channel fit, which outweighs
// staying put; ties keep the current agent.
const (
	scoreSameAgent    = 1
	scoreChannelMatch = 3
	scoreIntentMatch  = 4
)

// routeAgent picks the best-suited agent of the organization for the detected
// intent and channel. The current agent wins ties, so re-routing only happens
// on a strictly better score.
func (o *Orchestrator) routeAgent(ctx context.Context, current *core.Agent, intent, channel string) (*core.Agent, error) {
	candidates, err := o.agents.ListAgents(ctx, current.OrganizationID)
	if err != nil {
		return nil, err
	}

	best := current
	bestScore := scoreAgent(current, current, intent, channel)
	for _, cand := range candidates {
		if cand.ID == current.ID {
			continue
		}
		if score := scoreAgent(cand, current, intent, channel); score > bestScore {
			best, bestScore = cand, score
		}
	}
	return best, nil
}

func scoreAgent(candidate, current *core.Agent, intent, channel string) int {
	score := 0
	if candidate.ID == current.ID {
		score += scoreSameAgent
	}
	if channel != "" && containsFold(candidate.Channels, channel) {
		score += scoreChannelMatch
	}
	if intent != "" && containsFold(candidate.Intents, intent) {
		score += scoreIntentMatch
	}
	return score
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
