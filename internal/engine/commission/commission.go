// Package commission provides pluggable commission models for simulated fills.
package commission

import "github.com/shopspring/decimal"

// Model computes the commission owed for a fill of the given quantity.
type Model interface {
	Calculate(quantity decimal.Decimal) decimal.Decimal
}

// Broker identifies a named commission schedule.
type Broker string

const (
	BrokerInteractive Broker = "interactive_broker"
	BrokerZero        Broker = "zero_commission"
)

// AllBrokers lists the commission schedules known to the engine.
var AllBrokers = []Broker{BrokerInteractive, BrokerZero}

// ForBroker returns the commission model for the named broker, defaulting to
// zero commission for unrecognized names.
func ForBroker(broker Broker) Model {
	switch broker {
	case BrokerInteractive:
		return NewInteractiveBroker()
	case BrokerZero:
		return NewZeroCommission()
	default:
		return NewZeroCommission()
	}
}
