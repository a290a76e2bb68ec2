package model

import (
	"context"
	"fmt"
	"time"

	"github.com/helpmesh/helpmesh/logging"
)

// RouterOptions configure a Router.
type RouterOptions struct {
	// RetryBackoff is the base delay between attempts against the same
	// provider; attempt n waits n * RetryBackoff.
	RetryBackoff time.Duration

	// Logger used for retry and fallback diagnostics.
	Logger logging.Logger
}

// Router dispatches completion requests to a primary provider and walks the
// request's fallback provider list when the primary fails. The last provider
// error is returned unmodified once every candidate is exhausted, so callers
// never observe partial content.
//
// A Router is safe for concurrent use after all providers are registered.
type Router struct {
	providers map[string]Provider
	primary   string
	opts      RouterOptions
}

// NewRouter creates a Router whose default provider is primary. Providers are
// added with Register before first use.
func NewRouter(primary string, optFns ...func(o *RouterOptions)) *Router {
	opts := RouterOptions{
		RetryBackoff: 500 * time.Millisecond,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{
		providers: make(map[string]Provider),
		primary:   primary,
		opts:      opts,
	}
}

// Register makes a provider available under the given key.
func (r *Router) Register(key string, p Provider) { r.providers[key] = p }

// Complete executes the request against the primary provider, retrying per
// provider up to req.RetryCount additional times with linear backoff, then
// against each fallback provider in order. The first complete response wins.
func (r *Router) Complete(ctx context.Context, req Request) (*Response, error) {
	candidates := r.candidateOrder(req.FallbackProviders)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("model router: no providers registered")
	}

	var lastErr error
	for _, key := range candidates {
		provider, ok := r.providers[key]
		if !ok {
			r.opts.Logger.Warn("model router: unknown provider in fallback list", "provider", key)
			continue
		}

		resp, err := r.completeWithRetry(ctx, provider, req)
		if err == nil {
			if resp.Provider == "" {
				resp.Provider = provider.Info().Provider
			}
			if resp.CostUSD == 0 {
				resp.CostUSD = CostUSD(resp.Model, resp.TokensIn, resp.TokensOut)
			}
			if key != r.primary {
				r.opts.Logger.Info("model router: fallback provider succeeded", "provider", key, "model", resp.Model)
			}
			return resp, nil
		}

		lastErr = err
		r.opts.Logger.Warn("model router: provider failed", "provider", key, "error", err.Error())

		if ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

// completeWithRetry runs one provider with the request's timeout and retry
// budget. The attempt loop stops early on context cancellation.
func (r *Router) completeWithRetry(ctx context.Context, provider Provider, req Request) (*Response, error) {
	attempts := req.RetryCount + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		resp, err := r.attempt(ctx, provider, req)
		if err == nil {
			resp.LatencyMS = time.Since(start).Milliseconds()
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, lastErr
		}
		if attempt < attempts {
			r.opts.Logger.Warn("model router: retrying provider",
				"provider", provider.Info().Name, "attempt", attempt, "error", err.Error())
			select {
			case <-ctx.Done():
				return nil, lastErr
			case <-time.After(time.Duration(attempt) * r.opts.RetryBackoff):
			}
		}
	}
	return nil, lastErr
}

func (r *Router) attempt(ctx context.Context, provider Provider, req Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	return provider.Complete(ctx, req)
}

// candidateOrder returns the primary followed by the deduplicated fallback list.
func (r *Router) candidateOrder(fallbacks []string) []string {
	order := make([]string, 0, len(fallbacks)+1)
	seen := make(map[string]bool, len(fallbacks)+1)
	if r.primary != "" {
		order = append(order, r.primary)
		seen[r.primary] = true
	}
	for _, key := range fallbacks {
		if key == "" || seen[key] {
			continue
		}
		order = append(order, key)
		seen[key] = true
	}
	return order
}
