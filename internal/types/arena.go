package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// AgentConfig carries the tunables an Agent and its optional PortfolioSelector read.
type AgentConfig struct {
	TrailingStopPct    decimal.Decimal                    `json:"trailing_stop_pct" yaml:"trailing_stop_pct"`
	MinBuyScore        decimal.Decimal                    `json:"min_buy_score" yaml:"min_buy_score"`
	ScoringAlgorithm   string                             `json:"scoring_algorithm" yaml:"scoring_algorithm"`
	PortfolioStrategy  optional.Option[PortfolioStrategy] `json:"portfolio_strategy,omitempty" yaml:"portfolio_strategy,omitempty"`
	MaxPerSector       optional.Option[int]               `json:"max_per_sector,omitempty" yaml:"max_per_sector,omitempty"`
	MaxOpenPositions   optional.Option[int]               `json:"max_open_positions,omitempty" yaml:"max_open_positions,omitempty"`
}

// ArenaSimulation is a backtest definition combined with its queue progress
// and results. ArenaPosition and ArenaSnapshot rows are owned exclusively by
// this aggregate; deleting it cascades.
type ArenaSimulation struct {
	ID uuid.UUID `json:"id" db:"id"`

	// Config
	Symbols        []string        `json:"symbols" db:"symbols"`
	StartDate      time.Time       `json:"start_date" db:"start_date"`
	EndDate        time.Time       `json:"end_date" db:"end_date"`
	InitialCapital decimal.Decimal `json:"initial_capital" db:"initial_capital"`
	PositionSize   decimal.Decimal `json:"position_size" db:"position_size"`
	AgentType      string          `json:"agent_type" db:"agent_type"`
	AgentConfig    AgentConfig     `json:"agent_config" db:"agent_config"`

	// Queue state
	Status      JobStatus               `json:"status" db:"status"`
	WorkerID    optional.Option[string] `json:"worker_id,omitempty" db:"worker_id"`
	ClaimedAt   optional.Option[time.Time] `json:"claimed_at,omitempty" db:"claimed_at"`
	HeartbeatAt optional.Option[time.Time] `json:"heartbeat_at,omitempty" db:"heartbeat_at"`
	RetryCount  int                     `json:"retry_count" db:"retry_count"`
	MaxRetries  int                     `json:"max_retries" db:"max_retries"`
	LastError   optional.Option[string] `json:"last_error,omitempty" db:"last_error"`

	// Progress
	CurrentDay int `json:"current_day" db:"current_day"`
	TotalDays  int `json:"total_days" db:"total_days"`

	// Results
	FinalEquity       optional.Option[decimal.Decimal] `json:"final_equity,omitempty" db:"final_equity"`
	TotalReturnPct     optional.Option[decimal.Decimal] `json:"total_return_pct,omitempty" db:"total_return_pct"`
	TotalTrades        int                              `json:"total_trades" db:"total_trades"`
	WinningTrades       int                              `json:"winning_trades" db:"winning_trades"`
	MaxDrawdownPct      optional.Option[decimal.Decimal] `json:"max_drawdown_pct,omitempty" db:"max_drawdown_pct"`
	AvgHoldDays         optional.Option[decimal.Decimal] `json:"avg_hold_days,omitempty" db:"avg_hold_days"`
	AvgWinPnL           optional.Option[decimal.Decimal] `json:"avg_win_pnl,omitempty" db:"avg_win_pnl"`
	AvgLossPnL          optional.Option[decimal.Decimal] `json:"avg_loss_pnl,omitempty" db:"avg_loss_pnl"`
	ProfitFactor        optional.Option[decimal.Decimal] `json:"profit_factor,omitempty" db:"profit_factor"`
	SharpeRatio         optional.Option[decimal.Decimal] `json:"sharpe_ratio,omitempty" db:"sharpe_ratio"`
	TotalRealizedPnL    optional.Option[decimal.Decimal] `json:"total_realized_pnl,omitempty" db:"total_realized_pnl"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ArenaPosition is one trade lifecycle within a simulation: pending (signal
// only) -> open (entry filled) -> closed (exit filled). Transitions are
// monotone and never reverse.
type ArenaPosition struct {
	ID           uuid.UUID `json:"id" db:"id"`
	SimulationID uuid.UUID `json:"simulation_id" db:"simulation_id"`

	Symbol           string         `json:"symbol" db:"symbol"`
	Status           PositionStatus `json:"status" db:"status"`
	SignalDate       time.Time      `json:"signal_date" db:"signal_date"`
	TrailingStopPct  decimal.Decimal `json:"trailing_stop_pct" db:"trailing_stop_pct"`

	EntryDate  optional.Option[time.Time]      `json:"entry_date,omitempty" db:"entry_date"`
	EntryPrice optional.Option[decimal.Decimal] `json:"entry_price,omitempty" db:"entry_price"`
	Shares     optional.Option[int64]          `json:"shares,omitempty" db:"shares"`

	HighestPrice optional.Option[decimal.Decimal] `json:"highest_price,omitempty" db:"highest_price"`
	CurrentStop  optional.Option[decimal.Decimal] `json:"current_stop,omitempty" db:"current_stop"`

	ExitDate      optional.Option[time.Time]      `json:"exit_date,omitempty" db:"exit_date"`
	ExitPrice     optional.Option[decimal.Decimal] `json:"exit_price,omitempty" db:"exit_price"`
	ExitReason    optional.Option[ExitReason]     `json:"exit_reason,omitempty" db:"exit_reason"`
	RealizedPnL   optional.Option[decimal.Decimal] `json:"realized_pnl,omitempty" db:"realized_pnl"`
	ReturnPct     optional.Option[decimal.Decimal] `json:"return_pct,omitempty" db:"return_pct"`

	AgentReasoning optional.Option[string]          `json:"agent_reasoning,omitempty" db:"agent_reasoning"`
	AgentScore     optional.Option[decimal.Decimal] `json:"agent_score,omitempty" db:"agent_score"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsOpen reports whether the position currently ties up capital.
func (p *ArenaPosition) IsOpen() bool {
	return p.Status == PositionStatusOpen
}

// Decision summarises what the engine did for one symbol on one day, stored
// inside an ArenaSnapshot's decisions map.
type Decision struct {
	Symbol string      `json:"symbol"`
	Action AgentAction `json:"action"`
	Detail string      `json:"detail"`
}

// ArenaSnapshot is the end-of-day portfolio state for a simulation. Exactly
// one snapshot exists per day_number per simulation.
type ArenaSnapshot struct {
	ID           uuid.UUID `json:"id" db:"id"`
	SimulationID uuid.UUID `json:"simulation_id" db:"simulation_id"`

	SnapshotDate         time.Time       `json:"snapshot_date" db:"snapshot_date"`
	DayNumber            int             `json:"day_number" db:"day_number"`
	Cash                 decimal.Decimal `json:"cash" db:"cash"`
	PositionsValue        decimal.Decimal `json:"positions_value" db:"positions_value"`
	TotalEquity           decimal.Decimal `json:"total_equity" db:"total_equity"`
	DailyPnL              decimal.Decimal `json:"daily_pnl" db:"daily_pnl"`
	DailyReturnPct         decimal.Decimal `json:"daily_return_pct" db:"daily_return_pct"`
	CumulativeReturnPct    decimal.Decimal `json:"cumulative_return_pct" db:"cumulative_return_pct"`
	OpenPositionCount      int             `json:"open_position_count" db:"open_position_count"`
	Decisions              map[string]Decision `json:"decisions" db:"decisions"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
