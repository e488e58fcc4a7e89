package broker

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// fakeIBEngine stands in for a TWS/Gateway socket session so Connect's
// managed-accounts check and PlaceOrder's fill-poll loop can be exercised
// without a live connection.
type fakeIBEngine struct {
	mu        sync.Mutex
	accounts  []string
	closed    bool
	placeErr  error
	cancelErr error
	orders    map[int64]types.OrderResult
	// fillAfter, when > 0, makes OrderStatus report OrderStatusFilled only
	// once it has been polled at least this many times.
	fillAfter int
	polls     int
}

func (f *fakeIBEngine) ManagedAccounts() []string { return f.accounts }

func (f *fakeIBEngine) PlaceOrder(req types.PlaceOrderRequest, orderID int64, _ string) error {
	if f.placeErr != nil {
		return f.placeErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.orders == nil {
		f.orders = make(map[int64]types.OrderResult)
	}

	status := types.OrderStatusFilled
	if f.fillAfter > 0 {
		status = types.OrderStatusPending
	}

	f.orders[orderID] = types.OrderResult{
		OrderID:     strconv.FormatInt(orderID, 10),
		Status:      status,
		FilledQty:   req.Quantity,
		FilledPrice: decimal.NewFromInt(100),
		SubmittedAt: time.Now(),
	}

	return nil
}

func (f *fakeIBEngine) CancelOrder(orderID int64) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if result, ok := f.orders[orderID]; ok {
		result.Status = types.OrderStatusCancelled
		f.orders[orderID] = result
	}

	return nil
}

func (f *fakeIBEngine) OrderStatus(orderID int64) (types.OrderResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.polls++

	result, ok := f.orders[orderID]
	if ok && f.fillAfter > 0 && f.polls >= f.fillAfter {
		result.Status = types.OrderStatusFilled
		f.orders[orderID] = result
	}

	return result, ok
}

func (f *fakeIBEngine) Close() error {
	f.closed = true

	return nil
}

type IBBrokerTestSuite struct {
	suite.Suite
	ctx context.Context
	cfg Config
}

func TestIBBrokerSuite(t *testing.T) {
	suite.Run(t, new(IBBrokerTestSuite))
}

func (s *IBBrokerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.cfg = Config{
		Host:              "127.0.0.1",
		Port:              4001,
		ClientID:          1,
		Account:           "DU1234567",
		ConnectionTimeout: 200 * time.Millisecond,
		OrderTimeout:      200 * time.Millisecond,
		FillPollInterval:  5 * time.Millisecond,
		CancelWaitTime:    20 * time.Millisecond,
	}
}

func (s *IBBrokerTestSuite) TestConnectSucceedsWhenAccountIsManaged() {
	fake := &fakeIBEngine{accounts: []string{"DU1234567", "DU7654321"}}
	b := NewIBWithEngine(s.cfg, fake)

	s.Require().NoError(b.Connect(s.ctx))
}

func (s *IBBrokerTestSuite) TestConnectFailsFastWhenAccountNotManaged() {
	fake := &fakeIBEngine{accounts: []string{"DU9999999"}}
	b := NewIBWithEngine(s.cfg, fake)

	err := b.Connect(s.ctx)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeBrokerAccountMismatch))
	s.True(fake.closed, "engine must be closed after a failed account check")
}

func (s *IBBrokerTestSuite) TestPlaceOrderBeforeConnectFails() {
	fake := &fakeIBEngine{accounts: []string{"DU1234567"}}
	b := NewIBWithEngine(s.cfg, fake)

	_, err := b.PlaceOrder(s.ctx, marketOrder("AAPL", 10))
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeBrokerNotConnected))
}

func (s *IBBrokerTestSuite) TestPlaceOrderFillsImmediately() {
	fake := &fakeIBEngine{accounts: []string{"DU1234567"}}
	b := NewIBWithEngine(s.cfg, fake)
	s.Require().NoError(b.Connect(s.ctx))

	result, err := b.PlaceOrder(s.ctx, marketOrder("AAPL", 10))
	s.Require().NoError(err)
	s.Equal(types.OrderStatusFilled, result.Status)
}

func (s *IBBrokerTestSuite) TestPlaceOrderPollsUntilFilled() {
	fake := &fakeIBEngine{accounts: []string{"DU1234567"}, fillAfter: 3}
	b := NewIBWithEngine(s.cfg, fake)
	s.Require().NoError(b.Connect(s.ctx))

	result, err := b.PlaceOrder(s.ctx, marketOrder("AAPL", 10))
	s.Require().NoError(err)
	s.Equal(types.OrderStatusFilled, result.Status)
}

func (s *IBBrokerTestSuite) TestPlaceOrderTimesOutWithoutFill() {
	fake := &fakeIBEngine{accounts: []string{"DU1234567"}, fillAfter: 1000000}
	b := NewIBWithEngine(s.cfg, fake)
	s.Require().NoError(b.Connect(s.ctx))

	_, err := b.PlaceOrder(s.ctx, marketOrder("AAPL", 10))
	s.Require().Error(err)
}

func (s *IBBrokerTestSuite) TestCancelOrderMarksCancelled() {
	fake := &fakeIBEngine{accounts: []string{"DU1234567"}, fillAfter: 1000000}
	b := NewIBWithEngine(s.cfg, fake)
	s.Require().NoError(b.Connect(s.ctx))

	placed, err := b.PlaceOrder(s.ctx, marketOrder("AAPL", 10))
	s.Require().Error(err, "order is expected to time out before cancel in this scenario")
	_ = placed

	s.Require().NoError(b.CancelOrder(s.ctx, "1"))

	status, err := b.GetOrderStatus(s.ctx, "1")
	s.Require().NoError(err)
	s.Equal(types.OrderStatusCancelled, status.Status)
}

func (s *IBBrokerTestSuite) TestDisconnectClosesEngine() {
	fake := &fakeIBEngine{accounts: []string{"DU1234567"}}
	b := NewIBWithEngine(s.cfg, fake)
	s.Require().NoError(b.Connect(s.ctx))
	s.Require().NoError(b.Disconnect(s.ctx))
	s.True(fake.closed)

	s.Require().NoError(b.Disconnect(s.ctx), "disconnect on an already-disconnected broker is a no-op")
}
