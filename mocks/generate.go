// Package mocks holds generated gomock doubles for the module's capability
// interfaces, kept under one directory the way the teacher collects its
// mockgen output.
package mocks

//go:generate mockgen -destination=./mock_agent.go -package=mocks github.com/quantarena/arena/internal/agent Agent
//go:generate mockgen -destination=./mock_portfolio_selector.go -package=mocks github.com/quantarena/arena/internal/agent PortfolioSelector
//go:generate mockgen -destination=./mock_market_data_provider.go -package=mocks github.com/quantarena/arena/internal/provider MarketDataProvider
//go:generate mockgen -destination=./mock_broker.go -package=mocks github.com/quantarena/arena/internal/broker Broker
