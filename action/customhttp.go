package action

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseBytes caps how much of an upstream response body is read back
// into the workflow context.
const maxResponseBytes = 64 * 1024

// CustomAPIExecutor performs a generic outbound HTTP call authored in a
// workflow. Outbound URLs are restricted to http/https and requests to
// loopback, link-local, private and metadata hosts are rejected before any
// network call is made.
type CustomAPIExecutor struct {
	client *http.Client
}

// NewCustomAPIExecutor constructs a CustomAPIExecutor. A nil client gets a
// default with a conservative timeout; the registry timeout still applies on
// top through the request context.
func NewCustomAPIExecutor(client *http.Client) *CustomAPIExecutor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &CustomAPIExecutor{client: client}
}

// Execute implements Executor.
func (e *CustomAPIExecutor) Execute(ctx context.Context, params map[string]any, _ CallContext) (*Result, error) {
	rawURL := stringParam(params, "url")
	if err := checkOutboundURL(rawURL); err != nil {
		return nil, NewActionError(CodeValidationError, err.Error())
	}

	method := strings.ToUpper(stringParam(params, "method"))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if b := stringParam(params, "body"); b != "" {
		body = strings.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, NewActionError(CodeValidationError, err.Error())
	}
	if headers, ok := params["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	result := &Result{
		Success: success,
		Data: map[string]any{
			"status": resp.StatusCode,
			"body":   string(respBody),
		},
		Message: fmt.Sprintf("%s %s returned %d", method, req.URL.Host, resp.StatusCode),
	}
	if !success {
		result.Error = CodeExecutionError
	}
	return result, nil
}

// checkOutboundURL rejects URL schemes and destinations that would let a
// workflow author reach internal infrastructure.
func checkOutboundURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q, only http/https allowed", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("url has no host")
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") ||
		host == "metadata.google.internal" || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("requests to host %q are not allowed", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
			ip.IsPrivate() || ip.IsUnspecified() {
			return fmt.Errorf("requests to address %q are not allowed", host)
		}
	}
	return nil
}
