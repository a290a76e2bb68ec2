// Package action implements the side-effecting operation subsystem: a fixed
// catalog of named executors (booking, email, ticket, CRM, e-commerce, custom
// HTTP call) dispatched through a Registry that applies parameter validation,
// integration checks, idempotency, timeout and bounded retry uniformly,
// regardless of which action runs.
//
// ExecuteAction never returns a Go error for action-level failures; every
// failure mode surfaces as a structured Result with Success=false and an
// error code. Workflow steps and network retries that re-issue the same
// logical call are answered verbatim from the idempotency cache, protecting
// against duplicate side effects such as double bookings.
package action
