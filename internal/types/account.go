package types

import "github.com/shopspring/decimal"

// AccountInfo summarises a broker connection's current balance and exposure.
type AccountInfo struct {
	Balance       decimal.Decimal `json:"balance"`
	Equity        decimal.Decimal `json:"equity"`
	BuyingPower   decimal.Decimal `json:"buying_power"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	MarginUsed    decimal.Decimal `json:"margin_used"`
}

// AccountStatus reports the broker and data-provider connection summary.
// No API route returns it.
type AccountStatus struct {
	BrokerConnected       bool   `json:"broker_connected"`
	BrokerType            string `json:"broker_type"`
	MarketDataProvider    string `json:"market_data_provider"`
	MarketDataConnected   bool   `json:"market_data_connected"`
	Account               AccountInfo `json:"account"`
}
