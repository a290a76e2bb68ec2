package action

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Order is one e-commerce order as seen by the agent.
type Order struct {
	ID       string
	Status   string
	TotalUSD float64
	Items    []string
}

// Refund acknowledges a processed refund.
type Refund struct {
	RefundID  string
	OrderID   string
	AmountUSD float64
}

// EcommerceClient talks to the shop backend (Shopify, WooCommerce, ...).
type EcommerceClient interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	RefundOrder(ctx context.Context, orderID string, amountUSD float64) (*Refund, error)
	CreateCartLink(ctx context.Context, items []string) (string, error)
}

// EcommerceExecutor serves shop operations. The subAction parameter selects
// lookup_order, refund_order or create_cart.
type EcommerceExecutor struct {
	client EcommerceClient
}

// NewEcommerceExecutor constructs an EcommerceExecutor.
func NewEcommerceExecutor(client EcommerceClient) *EcommerceExecutor {
	return &EcommerceExecutor{client: client}
}

// Execute implements Executor.
func (e *EcommerceExecutor) Execute(ctx context.Context, params map[string]any, _ CallContext) (*Result, error) {
	switch sub := stringParam(params, "subAction"); sub {
	case "lookup_order":
		return e.lookupOrder(ctx, params)
	case "refund_order":
		return e.refundOrder(ctx, params)
	case "create_cart":
		return e.createCart(ctx, params)
	default:
		return nil, NewActionError(CodeValidationError, fmt.Sprintf("unknown subAction %q", sub))
	}
}

func (e *EcommerceExecutor) lookupOrder(ctx context.Context, params map[string]any) (*Result, error) {
	orderID := stringParam(params, "orderId")
	order, err := e.client.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return &Result{
			Success: false,
			Message: fmt.Sprintf("Order %s not found", orderID),
			Error:   CodeExecutionError,
		}, nil
	}
	return &Result{
		Success: true,
		Data: map[string]any{
			"orderId": order.ID,
			"status":  order.Status,
			"total":   order.TotalUSD,
			"items":   order.Items,
		},
		Message: fmt.Sprintf("Order %s is %s", order.ID, order.Status),
	}, nil
}

func (e *EcommerceExecutor) refundOrder(ctx context.Context, params map[string]any) (*Result, error) {
	orderID := stringParam(params, "orderId")
	amount, _ := params["amount"].(float64)

	refund, err := e.client.RefundOrder(ctx, orderID, amount)
	if err != nil {
		return nil, err
	}
	return &Result{
		Success: true,
		Data:    map[string]any{"refundId": refund.RefundID, "amount": refund.AmountUSD},
		Message: fmt.Sprintf("Refund %s processed for order %s", refund.RefundID, orderID),
	}, nil
}

func (e *EcommerceExecutor) createCart(ctx context.Context, params map[string]any) (*Result, error) {
	var items []string
	if raw, ok := params["items"].([]any); ok {
		for _, it := range raw {
			if s, ok := it.(string); ok {
				items = append(items, s)
			}
		}
	}

	link, err := e.client.CreateCartLink(ctx, items)
	if err != nil {
		return nil, err
	}
	return &Result{
		Success: true,
		Data:    map[string]any{"cartUrl": link},
		Message: fmt.Sprintf("Cart ready: %s", link),
	}, nil
}

// MemoryEcommerceClient is a process-local EcommerceClient for tests and
// demos; orders are seeded up front.
type MemoryEcommerceClient struct {
	mu     sync.Mutex
	orders map[string]Order
}

// NewMemoryEcommerceClient constructs an empty MemoryEcommerceClient.
func NewMemoryEcommerceClient() *MemoryEcommerceClient {
	return &MemoryEcommerceClient{orders: make(map[string]Order)}
}

// SeedOrder inserts an order the agent can look up.
func (c *MemoryEcommerceClient) SeedOrder(order Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[order.ID] = order
}

// GetOrder implements EcommerceClient.
func (c *MemoryEcommerceClient) GetOrder(_ context.Context, orderID string) (*Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if order, ok := c.orders[orderID]; ok {
		return &order, nil
	}
	return nil, nil
}

// RefundOrder implements EcommerceClient.
func (c *MemoryEcommerceClient) RefundOrder(_ context.Context, orderID string, amountUSD float64) (*Refund, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	order, ok := c.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	if amountUSD == 0 {
		amountUSD = order.TotalUSD
	}
	order.Status = "refunded"
	c.orders[orderID] = order
	return &Refund{RefundID: uuid.NewString(), OrderID: orderID, AmountUSD: amountUSD}, nil
}

// CreateCartLink implements EcommerceClient.
func (c *MemoryEcommerceClient) CreateCartLink(_ context.Context, items []string) (string, error) {
	return fmt.Sprintf("https://shop.example/cart/%s?items=%d", uuid.NewString(), len(items)), nil
}
