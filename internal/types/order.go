package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
)

type PurchaseType string

type OrderType string

type OrderStatus string

type PositionType string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusFailed    OrderStatus = "FAILED"
)

const (
	PositionTypeLong  PositionType = "LONG"
	PositionTypeShort PositionType = "SHORT"
)

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// PlaceOrderRequest is submitted to a Broker capability to execute a fill
// outside the simulation engine's hot path (paper or live trading).
type PlaceOrderRequest struct {
	Symbol       string          `json:"symbol" validate:"required"`
	Side         PurchaseType    `json:"side" validate:"required,oneof=BUY SELL"`
	OrderType    OrderType       `json:"order_type" validate:"required,oneof=MARKET LIMIT"`
	Quantity     decimal.Decimal `json:"quantity" validate:"required"`
	LimitPrice   optional.Option[decimal.Decimal] `json:"limit_price,omitempty"`
	PositionType PositionType    `json:"position_type" validate:"required,oneof=LONG SHORT"`
}

// Validate checks the request against its struct tags and quantity sign.
func (r *PlaceOrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order request", err)
	}

	if !r.Quantity.IsPositive() {
		return errors.New(errors.ErrCodeInvalidOrder, "quantity must be positive")
	}

	return nil
}

// OrderResult is the broker's response to PlaceOrder.
type OrderResult struct {
	OrderID       string          `json:"order_id"`
	Status        OrderStatus     `json:"status"`
	FilledQty     decimal.Decimal `json:"filled_qty"`
	FilledPrice   decimal.Decimal `json:"filled_price"`
	Fee           decimal.Decimal `json:"fee"`
	SubmittedAt   time.Time       `json:"submitted_at"`
}
