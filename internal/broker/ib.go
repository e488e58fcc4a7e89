package broker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	gofinanceib "github.com/gofinance/ib"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
)

// Config carries the IB Gateway/TWS connection parameters. Field names
// mirror internal/config's IB* options one-for-one; the broker package
// takes its own copy rather than depending on internal/config directly so
// it stays testable without pulling in env/file loading.
type Config struct {
	Host              string
	Port              int
	ClientID          int
	Account           string
	ConnectionTimeout time.Duration
	OrderTimeout      time.Duration
	FillPollInterval  time.Duration
	CancelWaitTime    time.Duration
}

// ibEngine is the subset of *gofinanceib.Engine the broker drives, mirroring
// the market-data ib provider's polygonAPIClient seam: one narrow interface
// around the real socket client so tests can fake out a TWS/Gateway session
// without a live connection.
type ibEngine interface {
	ManagedAccounts() []string
	PlaceOrder(req types.PlaceOrderRequest, orderID int64, account string) error
	CancelOrder(orderID int64) error
	OrderStatus(orderID int64) (types.OrderResult, bool)
	Close() error
}

// IB is the Interactive Brokers Broker variant. Order execution for an IB
// account goes through here; internal/provider's ib variant covers the
// same account's historical market data via Polygon, a separate
// entitlement from order routing.
type IB struct {
	cfg    Config
	dial   func(Config) (ibEngine, error)
	mu     sync.Mutex
	engine ibEngine
	nextID int64
}

// NewIB builds an IB broker from connection parameters. It does not dial
// the gateway — Connect does. NewIB assumes the caller already ran
// internal/config's Validate, which enforces the static fatal checks (ib
// account mandatory, port matches account prefix); Connect is left
// responsible for the one check that cannot be done statically: whether
// the configured account is actually among the session's managed accounts.
func NewIB(cfg Config) *IB {
	return &IB{cfg: cfg, dial: dialIBEngine}
}

// NewIBWithEngine builds an IB broker around a caller-supplied engine, for
// tests that fake out the gateway socket.
func NewIBWithEngine(cfg Config, engine ibEngine) *IB {
	return &IB{cfg: cfg, dial: func(Config) (ibEngine, error) { return engine, nil }}
}

func (b *IB) Name() string { return "ib" }

func (b *IB) Connect(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, b.cfg.ConnectionTimeout)
	defer cancel()

	type dialResult struct {
		engine ibEngine
		err    error
	}

	resultCh := make(chan dialResult, 1)

	go func() {
		engine, err := b.dial(b.cfg)
		resultCh <- dialResult{engine: engine, err: err}
	}()

	select {
	case <-connectCtx.Done():
		return errors.Wrap(errors.ErrCodeProviderTransport, "timed out connecting to ib gateway", connectCtx.Err())
	case res := <-resultCh:
		if res.err != nil {
			return errors.Wrap(errors.ErrCodeProviderTransport, "failed to connect to ib gateway", res.err)
		}

		accounts := res.engine.ManagedAccounts()
		if !containsAccount(accounts, b.cfg.Account) {
			_ = res.engine.Close()

			return errors.Newf(errors.ErrCodeBrokerAccountMismatch,
				"configured ib_account %q is not among the session's managed accounts %v", b.cfg.Account, accounts)
		}

		b.mu.Lock()
		b.engine = res.engine
		b.mu.Unlock()

		return nil
	}
}

func (b *IB) Disconnect(_ context.Context) error {
	b.mu.Lock()
	engine := b.engine
	b.engine = nil
	b.mu.Unlock()

	if engine == nil {
		return nil
	}

	return engine.Close()
}

func (b *IB) PlaceOrder(ctx context.Context, req types.PlaceOrderRequest) (types.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return types.OrderResult{}, err
	}

	engine, err := b.connectedEngine()
	if err != nil {
		return types.OrderResult{}, err
	}

	orderID := b.allocateOrderID()

	if err := engine.PlaceOrder(req, orderID, b.cfg.Account); err != nil {
		return types.OrderResult{}, errors.Wrap(errors.ErrCodeProviderTransport, "ib place order failed", err)
	}

	return b.awaitFill(ctx, engine, orderID)
}

// awaitFill polls OrderStatus on a fixed interval until the order reaches
// a terminal state or the configured order timeout elapses. On timeout it
// returns whatever best-known state exists at that point together with a
// timeout error.
func (b *IB) awaitFill(ctx context.Context, engine ibEngine, orderID int64) (types.OrderResult, error) {
	deadline := time.Now().Add(b.cfg.OrderTimeout)

	ticker := time.NewTicker(b.cfg.FillPollInterval)
	defer ticker.Stop()

	for {
		if result, ok := engine.OrderStatus(orderID); ok && isTerminal(result.Status) {
			return result, nil
		}

		if time.Now().After(deadline) {
			timeoutErr := errors.Newf(errors.ErrCodeProviderTransport, "ib order %d did not reach a terminal state within %s", orderID, b.cfg.OrderTimeout)

			if result, ok := engine.OrderStatus(orderID); ok {
				return result, timeoutErr
			}

			return types.OrderResult{}, timeoutErr
		}

		select {
		case <-ctx.Done():
			return types.OrderResult{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *IB) GetOrderStatus(_ context.Context, orderID string) (types.OrderResult, error) {
	engine, err := b.connectedEngine()
	if err != nil {
		return types.OrderResult{}, err
	}

	id, err := parseOrderID(orderID)
	if err != nil {
		return types.OrderResult{}, err
	}

	result, ok := engine.OrderStatus(id)
	if !ok {
		return types.OrderResult{}, errors.Newf(errors.ErrCodeDataNotFound, "ib has no order %s", orderID)
	}

	return result, nil
}

func (b *IB) CancelOrder(ctx context.Context, orderID string) error {
	engine, err := b.connectedEngine()
	if err != nil {
		return err
	}

	id, err := parseOrderID(orderID)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.cfg.CancelWaitTime)
	defer cancel()

	if err := engine.CancelOrder(id); err != nil {
		return errors.Wrap(errors.ErrCodeProviderTransport, "ib cancel order failed", err)
	}

	<-waitCtx.Done()

	return nil
}

func (b *IB) connectedEngine() (ibEngine, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.engine == nil {
		return nil, errors.New(errors.ErrCodeBrokerNotConnected, "ib broker is not connected")
	}

	return b.engine, nil
}

func (b *IB) allocateOrderID() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++

	return b.nextID
}

func containsAccount(accounts []string, account string) bool {
	for _, a := range accounts {
		if a == account {
			return true
		}
	}

	return false
}

func isTerminal(status types.OrderStatus) bool {
	switch status {
	case types.OrderStatusFilled, types.OrderStatusCancelled, types.OrderStatusRejected, types.OrderStatusFailed:
		return true
	default:
		return false
	}
}

func parseOrderID(orderID string) (int64, error) {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeInvalidOrder, err, "malformed ib order id %q", orderID)
	}

	return id, nil
}

// gofinanceEngineWrapper adapts *gofinanceib.Engine to the ibEngine seam.
// Reply traffic (order status updates, managed account list) arrives
// asynchronously over the socket, so it is buffered into maps guarded by a
// mutex as the engine's reply sink, rather than synchronously returned
// from the calls that triggered it — the same shape TWS's own API forces
// on every client.
type gofinanceEngineWrapper struct {
	engine *gofinanceib.Engine

	mu       sync.Mutex
	accounts []string
	orders   map[int64]types.OrderResult
}

func dialIBEngine(cfg Config) (ibEngine, error) {
	engine, err := gofinanceib.NewEngine(gofinanceib.EngineOptions{
		Gateway: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Client:  int64(cfg.ClientID),
	})
	if err != nil {
		return nil, err
	}

	w := &gofinanceEngineWrapper{engine: engine, orders: make(map[int64]types.OrderResult)}

	replies := make(chan gofinanceib.Reply)
	engine.SubscribeAll(replies)

	go w.dispatch(replies)

	return w, nil
}

func (w *gofinanceEngineWrapper) dispatch(replies <-chan gofinanceib.Reply) {
	for reply := range replies {
		switch r := reply.(type) {
		case *gofinanceib.ManagedAccounts:
			w.mu.Lock()
			w.accounts = strings.Split(r.AccountsList, ",")
			w.mu.Unlock()
		case *gofinanceib.OrderStatus:
			w.mu.Lock()
			w.orders[r.OrderID] = types.OrderResult{
				OrderID:     strconv.FormatInt(r.OrderID, 10),
				Status:      mapIBStatus(r.Status),
				FilledQty:   decimal.NewFromFloat(r.Filled),
				FilledPrice: decimal.NewFromFloat(r.AvgFillPrice),
				SubmittedAt: time.Now(),
			}
			w.mu.Unlock()
		}
	}
}

func (w *gofinanceEngineWrapper) ManagedAccounts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]string(nil), w.accounts...)
}

func (w *gofinanceEngineWrapper) PlaceOrder(req types.PlaceOrderRequest, orderID int64, account string) error {
	contract := gofinanceib.Contract{
		Symbol:   req.Symbol,
		SecType:  "STK",
		Exchange: "SMART",
		Currency: "USD",
	}

	order := gofinanceib.Order{
		OrderID:   orderID,
		Account:   account,
		Action:    ibAction(req.Side),
		OrderType: ibOrderType(req.OrderType),
		Quantity:  req.Quantity.InexactFloat64(),
	}

	if req.LimitPrice.IsSome() {
		order.LimitPrice = req.LimitPrice.Unwrap().InexactFloat64()
	}

	return w.engine.Send(&gofinanceib.PlaceOrder{
		OrderID:  orderID,
		Contract: contract,
		Order:    order,
	})
}

func (w *gofinanceEngineWrapper) CancelOrder(orderID int64) error {
	return w.engine.Send(&gofinanceib.CancelOrder{OrderID: orderID})
}

func (w *gofinanceEngineWrapper) OrderStatus(orderID int64) (types.OrderResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	result, ok := w.orders[orderID]

	return result, ok
}

func (w *gofinanceEngineWrapper) Close() error {
	w.engine.Stop()

	return nil
}

func ibAction(side types.PurchaseType) string {
	if side == types.PurchaseTypeSell {
		return "SELL"
	}

	return "BUY"
}

func ibOrderType(orderType types.OrderType) string {
	if orderType == types.OrderTypeLimit {
		return "LMT"
	}

	return "MKT"
}

func mapIBStatus(status string) types.OrderStatus {
	switch strings.ToLower(status) {
	case "filled":
		return types.OrderStatusFilled
	case "cancelled", "apicancelled":
		return types.OrderStatusCancelled
	case "inactive":
		return types.OrderStatusRejected
	default:
		return types.OrderStatusPending
	}
}
