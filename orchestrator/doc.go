// Package orchestrator sequences one agent turn: quota and guardrail checks,
// language and intent detection, agent routing, the workflow-or-LLM reply
// branch, transcript persistence, usage metering and escalation.
//
// The turn is strictly sequential and guarantees exactly-once billing per
// logical request through a request fingerprint combined with the execution
// mode. A failed reply step never leaves partial state behind: the assistant
// message is persisted, counters incremented and usage recorded only after
// the producing step succeeded.
package orchestrator
