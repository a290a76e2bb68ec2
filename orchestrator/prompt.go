package orchestrator

import (
	"strings"

	"github.com/helpmesh/helpmesh/core"
)

// defaultSystemPrompt applies when an agent has no base prompt configured.
const defaultSystemPrompt = "You are a helpful customer support assistant."

// antiHallucinationDirective closes every system prompt. It keeps answers
// grounded in the supplied context and pushes unknowns toward escalation
// rather than invention.
const antiHallucinationDirective = "If you are not certain of an answer, say so instead of guessing. " +
	"Never invent order numbers, prices, policies or any other facts that are not present in the provided context. " +
	"When you cannot help, offer to connect the visitor with a human agent."

// promptContext carries the optional context sections assembled before the
// LLM call.
type promptContext struct {
	Knowledge string
	Memory    []string
	Vertical  string
	Language  string
}

// buildSystemPrompt assembles the system prompt: base prompt, custom
// instructions, context sections, tone, language directive and the
// anti-hallucination directive, in that order.
func buildSystemPrompt(agent *core.Agent, pc promptContext) string {
	var sections []string

	base := agent.SystemPrompt
	if base == "" {
		base = defaultSystemPrompt
	}
	sections = append(sections, base)

	if agent.CustomInstructions != "" {
		sections = append(sections, "Additional instructions:\n"+agent.CustomInstructions)
	}
	if pc.Vertical != "" {
		sections = append(sections, "Business context:\n"+pc.Vertical)
	}
	if pc.Knowledge != "" {
		sections = append(sections, "Relevant knowledge base excerpts:\n"+pc.Knowledge)
	}
	if len(pc.Memory) > 0 {
		sections = append(sections, "Relevant facts from earlier in this relationship:\n- "+strings.Join(pc.Memory, "\n- "))
	}
	if agent.Tone != "" {
		sections = append(sections, "Tone: "+agent.Tone+".")
	}
	sections = append(sections, languageDirective(pc.Language))
	sections = append(sections, antiHallucinationDirective)

	return strings.Join(sections, "\n\n")
}
