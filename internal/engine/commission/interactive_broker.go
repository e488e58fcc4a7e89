package commission

import "github.com/shopspring/decimal"

var (
	interactiveBrokerRate    = decimal.NewFromFloat(0.005)
	interactiveBrokerMinimum = decimal.NewFromInt(1)
)

// InteractiveBroker charges $0.005/share with a $1 minimum per fill.
type InteractiveBroker struct{}

func NewInteractiveBroker() Model {
	return &InteractiveBroker{}
}

func (c *InteractiveBroker) Calculate(quantity decimal.Decimal) decimal.Decimal {
	fee := interactiveBrokerRate.Mul(quantity)
	if fee.LessThan(interactiveBrokerMinimum) {
		return interactiveBrokerMinimum
	}

	return fee
}
