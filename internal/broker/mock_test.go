package broker

import (
	"context"
	"testing"

	"github.com/moznion/go-optional"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type MockBrokerTestSuite struct {
	suite.Suite
	ctx context.Context
}

func TestMockBrokerSuite(t *testing.T) {
	suite.Run(t, new(MockBrokerTestSuite))
}

func (s *MockBrokerTestSuite) SetupTest() {
	s.ctx = context.Background()
}

func marketOrder(symbol string, qty float64) types.PlaceOrderRequest {
	return types.PlaceOrderRequest{
		Symbol:       symbol,
		Side:         types.PurchaseTypeBuy,
		OrderType:    types.OrderTypeMarket,
		Quantity:     decimal.NewFromFloat(qty),
		LimitPrice:   optional.None[decimal.Decimal](),
		PositionType: types.PositionTypeLong,
	}
}

func (s *MockBrokerTestSuite) TestPlaceOrderRejectedBeforeConnect() {
	m := NewMock()
	m.SeedFillPrice("AAPL", decimal.NewFromInt(100))

	_, err := m.PlaceOrder(s.ctx, marketOrder("AAPL", 10))
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeBrokerNotConnected))
}

func (s *MockBrokerTestSuite) TestPlaceOrderFillsAtSeededPrice() {
	m := NewMock()
	s.Require().NoError(m.Connect(s.ctx))
	m.SeedFillPrice("AAPL", decimal.NewFromInt(150))

	result, err := m.PlaceOrder(s.ctx, marketOrder("AAPL", 10))
	s.Require().NoError(err)
	s.Equal(types.OrderStatusFilled, result.Status)
	s.True(result.FilledPrice.Equal(decimal.NewFromInt(150)), "got %s", result.FilledPrice)
	s.True(result.FilledQty.Equal(decimal.NewFromInt(10)))
}

func (s *MockBrokerTestSuite) TestPlaceOrderWithoutSeedOrLimitPriceFails() {
	m := NewMock()
	s.Require().NoError(m.Connect(s.ctx))

	_, err := m.PlaceOrder(s.ctx, marketOrder("MSFT", 5))
	s.Require().Error(err)
}

func (s *MockBrokerTestSuite) TestLimitOrderFillsAtLimitPriceWhenUnseeded() {
	m := NewMock()
	s.Require().NoError(m.Connect(s.ctx))

	req := marketOrder("MSFT", 5)
	req.OrderType = types.OrderTypeLimit
	req.LimitPrice = optional.Some(decimal.NewFromInt(210))

	result, err := m.PlaceOrder(s.ctx, req)
	s.Require().NoError(err)
	s.True(result.FilledPrice.Equal(decimal.NewFromInt(210)))
}

func (s *MockBrokerTestSuite) TestGetOrderStatusRoundTrips() {
	m := NewMock()
	s.Require().NoError(m.Connect(s.ctx))
	m.SeedFillPrice("AAPL", decimal.NewFromInt(100))

	placed, err := m.PlaceOrder(s.ctx, marketOrder("AAPL", 1))
	s.Require().NoError(err)

	fetched, err := m.GetOrderStatus(s.ctx, placed.OrderID)
	s.Require().NoError(err)
	s.Equal(placed, fetched)
}

func (s *MockBrokerTestSuite) TestGetOrderStatusUnknownIDFails() {
	m := NewMock()
	s.Require().NoError(m.Connect(s.ctx))

	_, err := m.GetOrderStatus(s.ctx, "does-not-exist")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (s *MockBrokerTestSuite) TestCancelOrderRejectsAlreadyFilled() {
	m := NewMock()
	s.Require().NoError(m.Connect(s.ctx))
	m.SeedFillPrice("AAPL", decimal.NewFromInt(100))

	placed, err := m.PlaceOrder(s.ctx, marketOrder("AAPL", 1))
	s.Require().NoError(err)

	err = m.CancelOrder(s.ctx, placed.OrderID)
	s.Require().Error(err)
}
