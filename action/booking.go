package action

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// BookingRequest describes one appointment to create.
type BookingRequest struct {
	Service string
	Date    string
	Email   string
	Notes   string
}

// BookingConfirmation is the scheduling system's acknowledgement.
type BookingConfirmation struct {
	BookingID string
	Service   string
	Date      string
}

// BookingClient talks to the scheduling/calendar system.
type BookingClient interface {
	CreateBooking(ctx context.Context, req BookingRequest) (*BookingConfirmation, error)
}

// BookingExecutor creates appointments through a BookingClient. The registry
// requires the "calendar" integration before dispatching to it.
type BookingExecutor struct {
	client BookingClient
}

// NewBookingExecutor constructs a BookingExecutor.
func NewBookingExecutor(client BookingClient) *BookingExecutor {
	return &BookingExecutor{client: client}
}

// Execute implements Executor.
func (e *BookingExecutor) Execute(ctx context.Context, params map[string]any, _ CallContext) (*Result, error) {
	req := BookingRequest{
		Service: stringParam(params, "service"),
		Date:    stringParam(params, "date"),
		Email:   stringParam(params, "email"),
		Notes:   stringParam(params, "notes"),
	}

	conf, err := e.client.CreateBooking(ctx, req)
	if err != nil {
		return nil, err
	}

	return &Result{
		Success: true,
		Data: map[string]any{
			"bookingId": conf.BookingID,
			"service":   conf.Service,
			"date":      conf.Date,
		},
		Message: fmt.Sprintf("Booking %s confirmed for %s on %s", conf.BookingID, req.Email, conf.Date),
	}, nil
}

// MemoryBookingClient is a process-local BookingClient for tests and demos.
type MemoryBookingClient struct {
	mu       sync.Mutex
	bookings []BookingRequest
}

// NewMemoryBookingClient constructs an empty MemoryBookingClient.
func NewMemoryBookingClient() *MemoryBookingClient {
	return &MemoryBookingClient{}
}

// CreateBooking implements BookingClient.
func (c *MemoryBookingClient) CreateBooking(_ context.Context, req BookingRequest) (*BookingConfirmation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bookings = append(c.bookings, req)
	return &BookingConfirmation{
		BookingID: uuid.NewString(),
		Service:   req.Service,
		Date:      req.Date,
	}, nil
}

// Bookings returns a copy of everything booked so far.
func (c *MemoryBookingClient) Bookings() []BookingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]BookingRequest, len(c.bookings))
	copy(out, c.bookings)
	return out
}

// stringParam reads a string-typed parameter, tolerating absence.
func stringParam(params map[string]any, name string) string {
	if v, ok := params[name].(string); ok {
		return v
	}
	return ""
}
