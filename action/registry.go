package action

import (
	"context"
	"fmt"
	"time"

	"github.com/helpmesh/helpmesh/logging"
	"github.com/helpmesh/helpmesh/metrics"
)

const (
	defaultTimeout = 15 * time.Second
	minTimeout     = 3 * time.Second
	maxRetries     = 2
	retryBackoff   = 200 * time.Millisecond
)

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	// Cache receives completed results; defaults to a fresh InMemoryCache.
	Cache IdempotencyCache

	// CacheTTL overrides DefaultCacheTTL.
	CacheTTL time.Duration

	// Logger defaults to NoOpLogger.
	Logger logging.Logger

	// Metrics is optional pipeline instrumentation.
	Metrics *metrics.Metrics
}

// Registry holds the fixed action catalog and dispatches calls through the
// uniform idempotency / validation / timeout / retry wrapping. Safe for
// concurrent use after construction.
type Registry struct {
	defs      map[string]Definition
	executors map[string]Executor
	opts      RegistryOptions
}

// NewRegistry creates an empty registry. Most callers want NewDefaultRegistry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{
		CacheTTL: DefaultCacheTTL,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Cache == nil {
		opts.Cache = NewInMemoryCache()
	}
	return &Registry{
		defs:      make(map[string]Definition),
		executors: make(map[string]Executor),
		opts:      opts,
	}
}

// Register adds a definition and its executor to the catalog.
func (r *Registry) Register(def Definition, exec Executor) {
	r.defs[def.ID] = def
	r.executors[def.ID] = exec
}

// Definitions returns the catalog, for exposing available actions to
// workflow authors.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		defs = append(defs, def)
	}
	return defs
}

// ExecuteAction dispatches one action call. It never returns a Go error;
// every failure mode is a Result with Success=false and an error code.
func (r *Registry) ExecuteAction(ctx context.Context, actionID string, params map[string]any, callCtx CallContext) *Result {
	def, ok := r.defs[actionID]
	if !ok {
		return r.fail(actionID, CodeUnknownAction, fmt.Sprintf("no action registered with id %q", actionID))
	}

	key := deriveKey(actionID, params, callCtx)
	if cached, hit := r.opts.Cache.Get(key); hit {
		r.opts.Logger.Debug("action call answered from idempotency cache", "action_id", actionID)
		if r.opts.Metrics != nil {
			r.opts.Metrics.ActionCacheHits.Inc()
		}
		return cached
	}

	if err := validateParams(def, params); err != nil {
		result := r.fail(actionID, CodeValidationError, err.Error())
		r.opts.Cache.Set(key, result, r.opts.CacheTTL)
		return result
	}

	if def.RequiredIntegration != "" && callCtx.Integration(def.RequiredIntegration) == nil {
		result := r.fail(actionID, CodeIntegrationRequired,
			fmt.Sprintf("action %q requires the %q integration", actionID, def.RequiredIntegration))
		r.opts.Cache.Set(key, result, r.opts.CacheTTL)
		return result
	}

	start := time.Now()
	result := r.runWithRetry(ctx, actionID, params, callCtx)
	dur := time.Since(start)

	r.observe(actionID, result, dur)
	r.opts.Cache.Set(key, result, r.opts.CacheTTL)
	return result
}

// runWithRetry executes the action under its timeout, retrying up to
// maxRetries additional times with linear backoff when the executor errors.
func (r *Registry) runWithRetry(ctx context.Context, actionID string, params map[string]any, callCtx CallContext) *Result {
	exec := r.executors[actionID]

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return r.fail(actionID, CodeRequestTimeout, "context cancelled before retry")
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
			r.opts.Logger.Warn("retrying action", "action_id", actionID, "attempt", attempt, "error", lastErr.Error())
		}

		result, err := r.runOnce(ctx, exec, params, callCtx)
		if err == nil {
			return result
		}
		if actionErr, ok := err.(*ActionError); ok && actionErr.Code == CodeRequestTimeout {
			// A timed out call is abandoned, not retried; the underlying
			// side effect may still be in flight.
			return r.fail(actionID, CodeRequestTimeout, actionErr.Message)
		}
		lastErr = err
	}

	if actionErr, ok := lastErr.(*ActionError); ok {
		return r.fail(actionID, actionErr.Code, actionErr.Message)
	}
	return r.fail(actionID, CodeExecutionError, lastErr.Error())
}

// runOnce races the executor against the effective timeout. On timeout the
// executor's eventual result is discarded.
func (r *Registry) runOnce(ctx context.Context, exec Executor, params map[string]any, callCtx CallContext) (*Result, error) {
	timeout := callCtx.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if timeout < minTimeout {
		timeout = minTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result *Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := exec.Execute(execCtx, params, callCtx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-execCtx.Done():
		return nil, NewActionError(CodeRequestTimeout, fmt.Sprintf("action did not complete within %s", timeout))
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		if o.result == nil {
			return nil, fmt.Errorf("executor returned neither result nor error")
		}
		return o.result, nil
	}
}

func (r *Registry) fail(actionID, code, message string) *Result {
	r.opts.Logger.Warn("action failed", "action_id", actionID, "code", code, "message", message)
	return &Result{Success: false, Message: message, Error: code}
}

func (r *Registry) observe(actionID string, result *Result, dur time.Duration) {
	if r.opts.Metrics != nil {
		status := "success"
		if !result.Success {
			status = "failure"
		}
		r.opts.Metrics.ActionExecutions.WithLabelValues(actionID, status).Inc()
		r.opts.Metrics.ActionDuration.WithLabelValues(actionID).Observe(dur.Seconds())
	}
	if tl, ok := r.opts.Logger.(*logging.TurnLogger); ok {
		var err error
		if !result.Success {
			err = fmt.Errorf("%s", result.Error)
		}
		tl.LogActionCall(actionID, dur, result.Success, err)
	}
}
