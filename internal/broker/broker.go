// Package broker defines the Broker capability boundary and its concrete
// variants (mock, ib). Mirrors internal/provider's registry shape: one
// narrow interface every order-execution backend implements, selected by
// config, so the engine and worker-adapter layers never see a concrete
// broker type.
package broker

import (
	"context"

	"github.com/quantarena/arena/internal/types"
)

// Broker is the capability every order-execution backend implements.
// Method names follow the order-lifecycle verbs rather than mirroring a
// full trading-system surface — position, account, and trade-history
// queries stay out of this boundary; only what the worker-adapter layer
// needs to place and track an order lives here.
type Broker interface {
	// Name identifies the broker for logging and registry lookup.
	Name() string

	// Connect establishes the backend session. Implementations that talk
	// to a real account must validate the configured account id against
	// whatever the session actually reports before returning success —
	// a mismatch is a fatal configuration error, not a retryable one.
	Connect(ctx context.Context) error

	// Disconnect tears down the backend session. Safe to call on a
	// broker that was never connected.
	Disconnect(ctx context.Context) error

	// PlaceOrder submits an order and waits for its terminal or
	// best-known state, subject to the implementation's own timeout.
	PlaceOrder(ctx context.Context, req types.PlaceOrderRequest) (types.OrderResult, error)

	// GetOrderStatus retrieves the current state of a previously placed
	// order by the id returned in its OrderResult.
	GetOrderStatus(ctx context.Context, orderID string) (types.OrderResult, error)

	// CancelOrder requests cancellation of a working order. Returns nil
	// once the broker acknowledges the cancel request, which may precede
	// the order actually reaching OrderStatusCancelled.
	CancelOrder(ctx context.Context, orderID string) error
}

// Registry resolves a broker name to an instance: a static name lookup,
// no reflection, no plugin loading.
type Registry struct {
	brokers map[string]Broker
}

// NewRegistry builds a registry from the given named brokers.
func NewRegistry(brokers ...Broker) *Registry {
	r := &Registry{brokers: make(map[string]Broker, len(brokers))}
	for _, b := range brokers {
		r.brokers[b.Name()] = b
	}

	return r
}

// Get resolves a broker by name, returning ok=false if unregistered.
func (r *Registry) Get(name string) (Broker, bool) {
	b, ok := r.brokers[name]

	return b, ok
}
