package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
)

// Mock is an in-memory, deterministic Broker that stands in for a live
// paper/live IB session. Orders fill immediately at a seeded price rather
// than waiting on a real exchange.
type Mock struct {
	mu         sync.Mutex
	connected  bool
	orders     map[string]types.OrderResult
	fillPrices map[string]decimal.Decimal
	nextID     int64
}

// NewMock builds a disconnected Mock broker ready for seeding.
func NewMock() *Mock {
	return &Mock{
		orders:     make(map[string]types.OrderResult),
		fillPrices: make(map[string]decimal.Decimal),
	}
}

func (m *Mock) Name() string { return "mock" }

// SeedFillPrice registers the price PlaceOrder fills market orders for a
// symbol at. Orders for symbols with no seeded price fill at the order's
// LimitPrice if one is set, or are rejected otherwise.
func (m *Mock) SeedFillPrice(symbol string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fillPrices[symbol] = price
}

func (m *Mock) Connect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = true

	return nil
}

func (m *Mock) Disconnect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = false

	return nil
}

func (m *Mock) PlaceOrder(_ context.Context, req types.PlaceOrderRequest) (types.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return types.OrderResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return types.OrderResult{}, errors.New(errors.ErrCodeBrokerNotConnected, "mock broker is not connected")
	}

	price, ok := m.fillPrices[req.Symbol]
	if !ok {
		if req.LimitPrice.IsNone() {
			return types.OrderResult{}, errors.Newf(errors.ErrCodeInvalidOrder, "mock broker has no fill price seeded for %s and order carries no limit price", req.Symbol)
		}

		price = req.LimitPrice.Unwrap()
	}

	m.nextID++
	id := fmt.Sprintf("mock-%d", m.nextID)

	result := types.OrderResult{
		OrderID:     id,
		Status:      types.OrderStatusFilled,
		FilledQty:   req.Quantity,
		FilledPrice: price,
		Fee:         decimal.Zero,
		SubmittedAt: now(),
	}

	m.orders[id] = result

	return result, nil
}

func (m *Mock) GetOrderStatus(_ context.Context, orderID string) (types.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result, ok := m.orders[orderID]
	if !ok {
		return types.OrderResult{}, errors.Newf(errors.ErrCodeDataNotFound, "mock broker has no order %s", orderID)
	}

	return result, nil
}

func (m *Mock) CancelOrder(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	result, ok := m.orders[orderID]
	if !ok {
		return errors.Newf(errors.ErrCodeDataNotFound, "mock broker has no order %s", orderID)
	}

	if result.Status == types.OrderStatusFilled {
		return errors.Newf(errors.ErrCodeInvalidOrder, "order %s is already filled, cannot cancel", orderID)
	}

	result.Status = types.OrderStatusCancelled
	m.orders[orderID] = result

	return nil
}

// Calls reports how many orders have been placed so far, for tests that
// assert on call counts rather than inspecting order state directly.
func (m *Mock) Calls() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.nextID
}

// now is a seam so a future test can freeze SubmittedAt; production calls
// always use the wall clock.
var now = time.Now
