package action

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Ticket is one support ticket to open.
type Ticket struct {
	Subject     string
	Description string
	Priority    string
	Requester   string
}

// TicketClient talks to the ticketing/helpdesk system.
type TicketClient interface {
	CreateTicket(ctx context.Context, t Ticket) (string, error)
}

// TicketExecutor opens support tickets through a TicketClient.
type TicketExecutor struct {
	client TicketClient
}

// NewTicketExecutor constructs a TicketExecutor.
func NewTicketExecutor(client TicketClient) *TicketExecutor {
	return &TicketExecutor{client: client}
}

// Execute implements Executor.
func (e *TicketExecutor) Execute(ctx context.Context, params map[string]any, _ CallContext) (*Result, error) {
	t := Ticket{
		Subject:     stringParam(params, "subject"),
		Description: stringParam(params, "description"),
		Priority:    stringParam(params, "priority"),
		Requester:   stringParam(params, "email"),
	}
	if t.Priority == "" {
		t.Priority = "normal"
	}

	id, err := e.client.CreateTicket(ctx, t)
	if err != nil {
		return nil, err
	}

	return &Result{
		Success: true,
		Data:    map[string]any{"ticketId": id, "priority": t.Priority},
		Message: fmt.Sprintf("Ticket %s created: %s", id, t.Subject),
	}, nil
}

// MemoryTicketClient is a process-local TicketClient for tests and demos.
type MemoryTicketClient struct {
	mu      sync.Mutex
	tickets map[string]Ticket
}

// NewMemoryTicketClient constructs an empty MemoryTicketClient.
func NewMemoryTicketClient() *MemoryTicketClient {
	return &MemoryTicketClient{tickets: make(map[string]Ticket)}
}

// CreateTicket implements TicketClient.
func (c *MemoryTicketClient) CreateTicket(_ context.Context, t Ticket) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uuid.NewString()
	c.tickets[id] = t
	return id, nil
}

// Ticket returns a stored ticket by id.
func (c *MemoryTicketClient) Ticket(id string) (Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tickets[id]
	return t, ok
}
