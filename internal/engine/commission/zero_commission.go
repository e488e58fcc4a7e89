package commission

import "github.com/shopspring/decimal"

// ZeroCommission never charges a fee, matching the reference simulator's default.
type ZeroCommission struct{}

func NewZeroCommission() Model {
	return &ZeroCommission{}
}

func (c *ZeroCommission) Calculate(quantity decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}
