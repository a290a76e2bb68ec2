package action

import (
	"context"
	"fmt"

	"github.com/helpmesh/helpmesh/core"
)

// EmailExecutor sends outbound email through the platform's EmailSender
// collaborator.
type EmailExecutor struct {
	sender core.EmailSender
}

// NewEmailExecutor constructs an EmailExecutor.
func NewEmailExecutor(sender core.EmailSender) *EmailExecutor {
	return &EmailExecutor{sender: sender}
}

// Execute implements Executor.
func (e *EmailExecutor) Execute(ctx context.Context, params map[string]any, _ CallContext) (*Result, error) {
	to := stringParam(params, "to")
	subject := stringParam(params, "subject")
	body := stringParam(params, "body")

	err := e.sender.SendEmail(ctx, core.Email{
		To:      to,
		Subject: subject,
		Text:    body,
		Tags:    []string{"agent-action"},
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Success: true,
		Message: fmt.Sprintf("Email sent to %s", to),
	}, nil
}
