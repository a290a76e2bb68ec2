package action

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Contact is a CRM person record.
type Contact struct {
	ID    string
	Email string
	Name  string
	Phone string
}

// Deal is a CRM sales opportunity.
type Deal struct {
	ID        string
	Title     string
	Amount    float64
	ContactID string
}

// CRMClient talks to the customer-relationship system.
type CRMClient interface {
	FindContactByEmail(ctx context.Context, email string) (*Contact, error)
	CreateContact(ctx context.Context, c Contact) (*Contact, error)
	CreateDeal(ctx context.Context, d Deal) (*Deal, error)
}

// CRMExecutor manages contacts and deals. The subAction parameter selects
// the operation: create_contact or create_deal. Contact creation dedupes on
// email: when the CRM already holds the contact the call succeeds with
// alreadyExisted=true and no duplicate is created.
type CRMExecutor struct {
	client CRMClient
}

// NewCRMExecutor constructs a CRMExecutor.
func NewCRMExecutor(client CRMClient) *CRMExecutor {
	return &CRMExecutor{client: client}
}

// Execute implements Executor.
func (e *CRMExecutor) Execute(ctx context.Context, params map[string]any, _ CallContext) (*Result, error) {
	switch sub := stringParam(params, "subAction"); sub {
	case "create_contact":
		return e.createContact(ctx, params)
	case "create_deal":
		return e.createDeal(ctx, params)
	default:
		return nil, NewActionError(CodeValidationError, fmt.Sprintf("unknown subAction %q", sub))
	}
}

func (e *CRMExecutor) createContact(ctx context.Context, params map[string]any) (*Result, error) {
	email := strings.ToLower(stringParam(params, "email"))

	existing, err := e.client.FindContactByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Result{
			Success: true,
			Data:    map[string]any{"contactId": existing.ID, "alreadyExisted": true},
			Message: fmt.Sprintf("Contact %s already exists", email),
		}, nil
	}

	created, err := e.client.CreateContact(ctx, Contact{
		Email: email,
		Name:  stringParam(params, "name"),
		Phone: stringParam(params, "phone"),
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Success: true,
		Data:    map[string]any{"contactId": created.ID, "alreadyExisted": false},
		Message: fmt.Sprintf("Contact %s created", email),
	}, nil
}

func (e *CRMExecutor) createDeal(ctx context.Context, params map[string]any) (*Result, error) {
	d := Deal{
		Title:     stringParam(params, "title"),
		ContactID: stringParam(params, "contactId"),
	}
	if amount, ok := params["amount"].(float64); ok {
		d.Amount = amount
	}

	created, err := e.client.CreateDeal(ctx, d)
	if err != nil {
		return nil, err
	}

	return &Result{
		Success: true,
		Data:    map[string]any{"dealId": created.ID},
		Message: fmt.Sprintf("Deal %q created", d.Title),
	}, nil
}

// MemoryCRMClient is a process-local CRMClient for tests and demos.
type MemoryCRMClient struct {
	mu       sync.Mutex
	contacts map[string]Contact // keyed by lowercase email
	deals    map[string]Deal
}

// NewMemoryCRMClient constructs an empty MemoryCRMClient.
func NewMemoryCRMClient() *MemoryCRMClient {
	return &MemoryCRMClient{
		contacts: make(map[string]Contact),
		deals:    make(map[string]Deal),
	}
}

// FindContactByEmail implements CRMClient.
func (c *MemoryCRMClient) FindContactByEmail(_ context.Context, email string) (*Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if contact, ok := c.contacts[strings.ToLower(email)]; ok {
		return &contact, nil
	}
	return nil, nil
}

// CreateContact implements CRMClient.
func (c *MemoryCRMClient) CreateContact(_ context.Context, contact Contact) (*Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	contact.ID = uuid.NewString()
	c.contacts[strings.ToLower(contact.Email)] = contact
	return &contact, nil
}

// CreateDeal implements CRMClient.
func (c *MemoryCRMClient) CreateDeal(_ context.Context, deal Deal) (*Deal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	deal.ID = uuid.NewString()
	c.deals[deal.ID] = deal
	return &deal, nil
}

// ContactCount reports how many contacts exist, for duplicate assertions.
func (c *MemoryCRMClient) ContactCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.contacts)
}
