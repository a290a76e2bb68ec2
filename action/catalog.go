package action

import (
	"net/http"

	"github.com/helpmesh/helpmesh/core"
)

// CatalogClients bundles the backends the default catalog dispatches to.
// Nil fields fall back to in-memory implementations, which keeps the module
// self-contained for tests and demos.
type CatalogClients struct {
	Booking    BookingClient
	Email      core.EmailSender
	Ticket     TicketClient
	CRM        CRMClient
	Ecommerce  EcommerceClient
	HTTPClient *http.Client
}

// NewDefaultRegistry builds a Registry loaded with the fixed action catalog:
// booking, email, ticket, CRM, e-commerce and the generic outbound HTTP call.
func NewDefaultRegistry(clients CatalogClients, optFns ...func(o *RegistryOptions)) *Registry {
	if clients.Booking == nil {
		clients.Booking = NewMemoryBookingClient()
	}
	if clients.Ticket == nil {
		clients.Ticket = NewMemoryTicketClient()
	}
	if clients.CRM == nil {
		clients.CRM = NewMemoryCRMClient()
	}
	if clients.Ecommerce == nil {
		clients.Ecommerce = NewMemoryEcommerceClient()
	}

	r := NewRegistry(optFns...)

	r.Register(Definition{
		ID:       "create_booking",
		Name:     "Create booking",
		Category: "scheduling",
		Parameters: []ParameterSpec{
			{Name: "service", Type: TypeString, Required: true},
			{Name: "date", Type: TypeDatetime, Required: true},
			{Name: "email", Type: TypeEmail, Required: true},
			{Name: "notes", Type: TypeString},
		},
		RequiredIntegration: "calendar",
	}, NewBookingExecutor(clients.Booking))

	if clients.Email != nil {
		r.Register(Definition{
			ID:       "send_email",
			Name:     "Send email",
			Category: "communication",
			Parameters: []ParameterSpec{
				{Name: "to", Type: TypeEmail, Required: true},
				{Name: "subject", Type: TypeString, Required: true},
				{Name: "body", Type: TypeString, Required: true},
			},
		}, NewEmailExecutor(clients.Email))
	}

	r.Register(Definition{
		ID:       "create_ticket",
		Name:     "Create support ticket",
		Category: "support",
		Parameters: []ParameterSpec{
			{Name: "subject", Type: TypeString, Required: true},
			{Name: "description", Type: TypeString, Required: true},
			{Name: "priority", Type: TypeString},
			{Name: "email", Type: TypeEmail},
		},
	}, NewTicketExecutor(clients.Ticket))

	r.Register(Definition{
		ID:       "crm.manage",
		Name:     "Manage CRM contact or deal",
		Category: "crm",
		Parameters: []ParameterSpec{
			{Name: "subAction", Type: TypeString, Required: true},
			{Name: "email", Type: TypeEmail},
			{Name: "name", Type: TypeString},
			{Name: "phone", Type: TypeString},
			{Name: "title", Type: TypeString},
			{Name: "contactId", Type: TypeString},
			{Name: "amount", Type: TypeNumber},
		},
		RequiredIntegration: "crm",
	}, NewCRMExecutor(clients.CRM))

	r.Register(Definition{
		ID:       "ecommerce.manage",
		Name:     "Manage shop orders and carts",
		Category: "ecommerce",
		Parameters: []ParameterSpec{
			{Name: "subAction", Type: TypeString, Required: true},
			{Name: "orderId", Type: TypeString},
			{Name: "amount", Type: TypeNumber},
		},
		RequiredIntegration: "ecommerce",
	}, NewEcommerceExecutor(clients.Ecommerce))

	r.Register(Definition{
		ID:       "custom_api_call",
		Name:     "Custom API call",
		Category: "integration",
		Parameters: []ParameterSpec{
			{Name: "url", Type: TypeString, Required: true},
			{Name: "method", Type: TypeString},
			{Name: "body", Type: TypeString},
		},
	}, NewCustomAPIExecutor(clients.HTTPClient))

	return r
}
