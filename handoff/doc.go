// Package handoff decides when a conversation must be transferred to a human
// and performs that transfer.
//
// Evaluation is a pure decision over the latest message, recent history and
// the AI confidence score; it applies an ordered rule chain (explicit human
// request, sensitive topic, low-confidence streak, frustration signals,
// conversation length) and reports a priority and detection method. Execution
// is a separate, idempotent step: it transitions the conversation, leaves a
// system notice in the transcript, and notifies by email on a best-effort
// basis.
package handoff
