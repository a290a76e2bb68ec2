package action

import (
	"context"
	"time"
)

// Error codes surfaced in Result.Error. Executors may return their own codes
// through ActionError; everything else maps onto one of these.
const (
	CodeUnknownAction       = "UNKNOWN_ACTION"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeIntegrationRequired = "INTEGRATION_REQUIRED"
	CodeRequestTimeout      = "REQUEST_TIMEOUT"
	CodeExecutionError      = "EXECUTION_ERROR"
)

// ParameterType enumerates the formats the registry validates before
// dispatch.
type ParameterType string

const (
	TypeString   ParameterType = "string"
	TypeEmail    ParameterType = "email"
	TypeNumber   ParameterType = "number"
	TypeBoolean  ParameterType = "boolean"
	TypeDate     ParameterType = "date"
	TypeDatetime ParameterType = "datetime"
)

// ParameterSpec declares one accepted parameter of an action.
type ParameterSpec struct {
	Name     string        `json:"name"`
	Type     ParameterType `json:"type"`
	Required bool          `json:"required"`
}

// Definition describes one catalog entry. The catalog is static, loaded at
// registry construction.
type Definition struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Parameters  []ParameterSpec `json:"parameters"`

	// RequiredIntegration names an integration (e.g. "calendar", "crm")
	// that must be present in the call's integration configuration before
	// the action may run. Empty means none required.
	RequiredIntegration string `json:"required_integration,omitempty"`
}

// Result is the uniform outcome of an action call. It is returned
// synchronously and never thrown; Error carries a code when Success is false.
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// CallContext carries the tenant scope and per-call configuration for one
// action dispatch.
type CallContext struct {
	OrganizationID string
	AgentID        string
	ConversationID string

	// IdempotencyKey, when supplied by the caller, scopes deduplication to
	// (org, agent, action, key). When empty the key is derived from the
	// canonicalized parameters instead.
	IdempotencyKey string

	// Integrations holds the caller-supplied integration configuration,
	// keyed by integration name.
	Integrations map[string]map[string]any

	// Timeout bounds the executor run. Zero means the registry default;
	// values below the floor are raised to it.
	Timeout time.Duration
}

// Integration returns the configuration for a named integration, or nil.
func (c CallContext) Integration(name string) map[string]any {
	if c.Integrations == nil {
		return nil
	}
	return c.Integrations[name]
}

// Executor runs one action. Returning an error (rather than a failed Result)
// engages the registry's retry; after retries exhaust, the error becomes a
// structured failure result.
type Executor interface {
	Execute(ctx context.Context, params map[string]any, callCtx CallContext) (*Result, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, params map[string]any, callCtx CallContext) (*Result, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, params map[string]any, callCtx CallContext) (*Result, error) {
	return f(ctx, params, callCtx)
}

// ActionError lets an executor fail with a specific code that the registry
// preserves in the final Result instead of the generic EXECUTION_ERROR.
type ActionError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *ActionError) Error() string { return e.Code + ": " + e.Message }

// NewActionError creates an ActionError with the specified code and message.
func NewActionError(code, message string) *ActionError {
	return &ActionError{Code: code, Message: message}
}
