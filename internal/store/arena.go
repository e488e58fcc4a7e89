package store

import (
	"context"
	goerrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/moznion/go-optional"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
)

// InsertSimulation creates a new arena_simulations row in the pending state
// and returns its generated ID.
func (s *Store) InsertSimulation(ctx context.Context, sim types.ArenaSimulation) (uuid.UUID, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO arena_simulations
			(symbols, start_date, end_date, initial_capital, position_size, agent_type, agent_config,
			 status, max_retries, total_days)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`, sim.Symbols, sim.StartDate, sim.EndDate, sim.InitialCapital, sim.PositionSize, sim.AgentType,
		sim.AgentConfig, types.JobStatusPending, maxRetriesOrDefault(sim.MaxRetries), sim.TotalDays)

	var id uuid.UUID
	if err := row.Scan(&id); err != nil {
		return uuid.Nil, errors.Wrap(errors.ErrCodeSimulationNotInit, "failed to insert simulation", err)
	}

	return id, nil
}

// GetSimulation loads a full ArenaSimulation by ID.
func (s *Store) GetSimulation(ctx context.Context, id uuid.UUID) (types.ArenaSimulation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, symbols, start_date, end_date, initial_capital, position_size, agent_type, agent_config,
			status, worker_id, claimed_at, heartbeat_at, retry_count, max_retries, last_error,
			current_day, total_days,
			final_equity, total_return_pct, total_trades, winning_trades, max_drawdown_pct,
			avg_hold_days, avg_win_pnl, avg_loss_pnl, profit_factor, sharpe_ratio, total_realized_pnl,
			created_at, updated_at
		FROM arena_simulations WHERE id = $1
	`, id)

	sim, err := scanSimulation(row)
	if err != nil {
		if isNoRows(err) {
			return types.ArenaSimulation{}, errors.Newf(errors.ErrCodeSimulationNotFound, "simulation %s not found", id)
		}

		return types.ArenaSimulation{}, errors.Wrap(errors.ErrCodeSimulationNotFound, "failed to load simulation", err)
	}

	return sim, nil
}

// ListSimulations returns every simulation, most recently created first.
func (s *Store) ListSimulations(ctx context.Context) ([]types.ArenaSimulation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, symbols, start_date, end_date, initial_capital, position_size, agent_type, agent_config,
			status, worker_id, claimed_at, heartbeat_at, retry_count, max_retries, last_error,
			current_day, total_days,
			final_equity, total_return_pct, total_trades, winning_trades, max_drawdown_pct,
			avg_hold_days, avg_win_pnl, avg_loss_pnl, profit_factor, sharpe_ratio, total_realized_pnl,
			created_at, updated_at
		FROM arena_simulations ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSimulationNotFound, "failed to list simulations", err)
	}
	defer rows.Close()

	var sims []types.ArenaSimulation

	for rows.Next() {
		sim, err := scanSimulation(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeSimulationNotFound, "failed to scan simulation row", err)
		}

		sims = append(sims, sim)
	}

	return sims, rows.Err()
}

// DeleteSimulation removes a simulation and, via ON DELETE CASCADE, its
// positions and snapshots.
func (s *Store) DeleteSimulation(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM arena_simulations WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSimulationNotFound, "failed to delete simulation", err)
	}

	if tag.RowsAffected() == 0 {
		return errors.Newf(errors.ErrCodeSimulationNotFound, "simulation %s not found", id)
	}

	return nil
}

// UpdateSimulationProgress advances current_day, used once per simulated
// trading day so a cancel/crash resumes from the last completed day.
func (s *Store) UpdateSimulationProgress(ctx context.Context, id uuid.UUID, currentDay int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE arena_simulations SET current_day = $2, updated_at = now() WHERE id = $1
	`, id, currentDay)

	return err
}

// SetTotalDays records the trading-day count computed once at
// initialization; called exactly once per simulation before the first
// StepDay.
func (s *Store) SetTotalDays(ctx context.Context, id uuid.UUID, totalDays int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE arena_simulations SET total_days = $2, updated_at = now() WHERE id = $1
	`, id, totalDays)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSimulationNotInit, "failed to set total_days", err)
	}

	if tag.RowsAffected() == 0 {
		return errors.Newf(errors.ErrCodeSimulationNotFound, "simulation %s not found", id)
	}

	return nil
}

// FinalizeSimulation writes completion analytics once the backtest has run
// its final day.
func (s *Store) FinalizeSimulation(ctx context.Context, id uuid.UUID, stats types.ArenaSimulation) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE arena_simulations SET
			final_equity = $2, total_return_pct = $3, total_trades = $4, winning_trades = $5,
			max_drawdown_pct = $6, avg_hold_days = $7, avg_win_pnl = $8, avg_loss_pnl = $9,
			profit_factor = $10, sharpe_ratio = $11, total_realized_pnl = $12, updated_at = now()
		WHERE id = $1
	`, id, optionUnwrapDecimal(stats.FinalEquity), optionUnwrapDecimal(stats.TotalReturnPct),
		stats.TotalTrades, stats.WinningTrades, optionUnwrapDecimal(stats.MaxDrawdownPct),
		optionUnwrapDecimal(stats.AvgHoldDays), optionUnwrapDecimal(stats.AvgWinPnL),
		optionUnwrapDecimal(stats.AvgLossPnL), optionUnwrapDecimal(stats.ProfitFactor),
		optionUnwrapDecimal(stats.SharpeRatio), optionUnwrapDecimal(stats.TotalRealizedPnL))

	return err
}

// InsertPosition creates a pending ArenaPosition (signal only, no fill yet).
func (s *Store) InsertPosition(ctx context.Context, pos types.ArenaPosition) (uuid.UUID, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO arena_positions
			(simulation_id, symbol, status, signal_date, trailing_stop_pct, agent_reasoning, agent_score)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, pos.SimulationID, pos.Symbol, pos.Status, pos.SignalDate, pos.TrailingStopPct,
		optionUnwrapString(pos.AgentReasoning), optionUnwrapDecimal(pos.AgentScore))

	var id uuid.UUID
	if err := row.Scan(&id); err != nil {
		return uuid.Nil, errors.Wrap(errors.ErrCodeInvalidPosition, "failed to insert position", err)
	}

	return id, nil
}

// FillEntry transitions a pending position to open once the entry order
// fills. initialStop is the caller-computed trailing stop at fill time
// (entryPrice scaled by the position's trailing_stop_pct); the store layer
// never derives it itself.
func (s *Store) FillEntry(ctx context.Context, id uuid.UUID, entryDate time.Time, entryPrice decimal.Decimal, shares int64, initialStop decimal.Decimal) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE arena_positions SET
			status = $2, entry_date = $3, entry_price = $4, shares = $5,
			highest_price = $4, current_stop = $6, updated_at = now()
		WHERE id = $1
	`, id, types.PositionStatusOpen, entryDate, entryPrice, shares, initialStop)

	return err
}

// UpdateTrailingStop advances highest_price/current_stop after a new daily
// high. Callers must only ever move current_stop upward; StepDay enforces
// that invariant before calling this.
func (s *Store) UpdateTrailingStop(ctx context.Context, id uuid.UUID, highestPrice, currentStop decimal.Decimal) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE arena_positions SET highest_price = $2, current_stop = $3, updated_at = now() WHERE id = $1
	`, id, highestPrice, currentStop)

	return err
}

// CloseExit transitions an open position to closed with its exit fill and
// realized P&L.
func (s *Store) CloseExit(ctx context.Context, id uuid.UUID, exitDate time.Time, exitPrice, pnl, returnPct decimal.Decimal, reason types.ExitReason) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE arena_positions SET
			status = $2, exit_date = $3, exit_price = $4, exit_reason = $5,
			realized_pnl = $6, return_pct = $7, updated_at = now()
		WHERE id = $1
	`, id, types.PositionStatusClosed, exitDate, exitPrice, reason, pnl, returnPct)

	return err
}

// ListPositions returns every position for a simulation, oldest signal
// first.
func (s *Store) ListPositions(ctx context.Context, simulationID uuid.UUID) ([]types.ArenaPosition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, simulation_id, symbol, status, signal_date, trailing_stop_pct,
			entry_date, entry_price, shares, highest_price, current_stop,
			exit_date, exit_price, exit_reason, realized_pnl, return_pct,
			agent_reasoning, agent_score, created_at, updated_at
		FROM arena_positions WHERE simulation_id = $1 ORDER BY signal_date ASC
	`, simulationID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPosition, "failed to list positions", err)
	}
	defer rows.Close()

	var positions []types.ArenaPosition

	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPosition, "failed to scan position row", err)
		}

		positions = append(positions, pos)
	}

	return positions, rows.Err()
}

// ListPendingPositions returns every not-yet-filled position for a
// simulation, regardless of which day it was signalled on, so a position
// StepDay couldn't fill on its first look (no bar yet) keeps being looked at
// on every later day until it is either filled or given up on past its
// grace period.
func (s *Store) ListPendingPositions(ctx context.Context, simulationID uuid.UUID) ([]types.ArenaPosition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, simulation_id, symbol, status, signal_date, trailing_stop_pct,
			entry_date, entry_price, shares, highest_price, current_stop,
			exit_date, exit_price, exit_reason, realized_pnl, return_pct,
			agent_reasoning, agent_score, created_at, updated_at
		FROM arena_positions
		WHERE simulation_id = $1 AND status = $2
		ORDER BY symbol ASC
	`, simulationID, types.PositionStatusPending)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPosition, "failed to list pending positions", err)
	}
	defer rows.Close()

	var positions []types.ArenaPosition

	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPosition, "failed to scan position row", err)
		}

		positions = append(positions, pos)
	}

	return positions, rows.Err()
}

// ListOpenPositions returns just the open positions for a simulation, the
// set StepDay walks each day to check trailing stops.
func (s *Store) ListOpenPositions(ctx context.Context, simulationID uuid.UUID) ([]types.ArenaPosition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, simulation_id, symbol, status, signal_date, trailing_stop_pct,
			entry_date, entry_price, shares, highest_price, current_stop,
			exit_date, exit_price, exit_reason, realized_pnl, return_pct,
			agent_reasoning, agent_score, created_at, updated_at
		FROM arena_positions WHERE simulation_id = $1 AND status = $2 ORDER BY entry_date ASC
	`, simulationID, types.PositionStatusOpen)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPosition, "failed to list open positions", err)
	}
	defer rows.Close()

	var positions []types.ArenaPosition

	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPosition, "failed to scan position row", err)
		}

		positions = append(positions, pos)
	}

	return positions, rows.Err()
}

// InsertSnapshot records one end-of-day portfolio snapshot. day_number is
// unique per simulation, so a retried day after a crash upserts rather than
// duplicating.
func (s *Store) InsertSnapshot(ctx context.Context, snap types.ArenaSnapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO arena_snapshots
			(simulation_id, snapshot_date, day_number, cash, positions_value, total_equity,
			 daily_pnl, daily_return_pct, cumulative_return_pct, open_position_count, decisions)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (simulation_id, day_number) DO UPDATE SET
			snapshot_date = EXCLUDED.snapshot_date, cash = EXCLUDED.cash,
			positions_value = EXCLUDED.positions_value, total_equity = EXCLUDED.total_equity,
			daily_pnl = EXCLUDED.daily_pnl, daily_return_pct = EXCLUDED.daily_return_pct,
			cumulative_return_pct = EXCLUDED.cumulative_return_pct,
			open_position_count = EXCLUDED.open_position_count, decisions = EXCLUDED.decisions
	`, snap.SimulationID, snap.SnapshotDate, snap.DayNumber, snap.Cash, snap.PositionsValue,
		snap.TotalEquity, snap.DailyPnL, snap.DailyReturnPct, snap.CumulativeReturnPct,
		snap.OpenPositionCount, snap.Decisions)

	return err
}

// ListSnapshots returns every snapshot for a simulation in day order.
func (s *Store) ListSnapshots(ctx context.Context, simulationID uuid.UUID) ([]types.ArenaSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, simulation_id, snapshot_date, day_number, cash, positions_value, total_equity,
			daily_pnl, daily_return_pct, cumulative_return_pct, open_position_count, decisions, created_at
		FROM arena_snapshots WHERE simulation_id = $1 ORDER BY day_number ASC
	`, simulationID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSimulationNotFound, "failed to list snapshots", err)
	}
	defer rows.Close()

	var snaps []types.ArenaSnapshot

	for rows.Next() {
		var snap types.ArenaSnapshot

		if err := rows.Scan(&snap.ID, &snap.SimulationID, &snap.SnapshotDate, &snap.DayNumber,
			&snap.Cash, &snap.PositionsValue, &snap.TotalEquity, &snap.DailyPnL, &snap.DailyReturnPct,
			&snap.CumulativeReturnPct, &snap.OpenPositionCount, &snap.Decisions, &snap.CreatedAt); err != nil {
			return nil, errors.Wrap(errors.ErrCodeSimulationNotFound, "failed to scan snapshot row", err)
		}

		snaps = append(snaps, snap)
	}

	return snaps, rows.Err()
}

// LatestSnapshot returns the highest day_number snapshot for a simulation,
// the resume point after a worker restart.
func (s *Store) LatestSnapshot(ctx context.Context, simulationID uuid.UUID) (types.ArenaSnapshot, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, simulation_id, snapshot_date, day_number, cash, positions_value, total_equity,
			daily_pnl, daily_return_pct, cumulative_return_pct, open_position_count, decisions, created_at
		FROM arena_snapshots WHERE simulation_id = $1 ORDER BY day_number DESC LIMIT 1
	`, simulationID)

	var snap types.ArenaSnapshot

	err := row.Scan(&snap.ID, &snap.SimulationID, &snap.SnapshotDate, &snap.DayNumber,
		&snap.Cash, &snap.PositionsValue, &snap.TotalEquity, &snap.DailyPnL, &snap.DailyReturnPct,
		&snap.CumulativeReturnPct, &snap.OpenPositionCount, &snap.Decisions, &snap.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return types.ArenaSnapshot{}, false, nil
		}

		return types.ArenaSnapshot{}, false, err
	}

	return snap, true, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSimulation(row scannable) (types.ArenaSimulation, error) {
	var sim types.ArenaSimulation

	var (
		workerID    *string
		claimedAt   *time.Time
		heartbeatAt *time.Time
		lastError   *string

		finalEquity    *decimal.Decimal
		totalReturnPct *decimal.Decimal
		maxDrawdownPct *decimal.Decimal
		avgHoldDays    *decimal.Decimal
		avgWinPnL      *decimal.Decimal
		avgLossPnL     *decimal.Decimal
		profitFactor   *decimal.Decimal
		sharpeRatio    *decimal.Decimal
		totalRealized  *decimal.Decimal
	)

	err := row.Scan(&sim.ID, &sim.Symbols, &sim.StartDate, &sim.EndDate, &sim.InitialCapital,
		&sim.PositionSize, &sim.AgentType, &sim.AgentConfig,
		&sim.Status, &workerID, &claimedAt, &heartbeatAt, &sim.RetryCount, &sim.MaxRetries, &lastError,
		&sim.CurrentDay, &sim.TotalDays,
		&finalEquity, &totalReturnPct, &sim.TotalTrades, &sim.WinningTrades, &maxDrawdownPct,
		&avgHoldDays, &avgWinPnL, &avgLossPnL, &profitFactor, &sharpeRatio, &totalRealized,
		&sim.CreatedAt, &sim.UpdatedAt)
	if err != nil {
		return types.ArenaSimulation{}, err
	}

	sim.WorkerID = optionFromStringPtr(workerID)
	sim.ClaimedAt = optionFromTimePtr(claimedAt)
	sim.HeartbeatAt = optionFromTimePtr(heartbeatAt)
	sim.LastError = optionFromStringPtr(lastError)
	sim.FinalEquity = optionFromDecimalPtr(finalEquity)
	sim.TotalReturnPct = optionFromDecimalPtr(totalReturnPct)
	sim.MaxDrawdownPct = optionFromDecimalPtr(maxDrawdownPct)
	sim.AvgHoldDays = optionFromDecimalPtr(avgHoldDays)
	sim.AvgWinPnL = optionFromDecimalPtr(avgWinPnL)
	sim.AvgLossPnL = optionFromDecimalPtr(avgLossPnL)
	sim.ProfitFactor = optionFromDecimalPtr(profitFactor)
	sim.SharpeRatio = optionFromDecimalPtr(sharpeRatio)
	sim.TotalRealizedPnL = optionFromDecimalPtr(totalRealized)

	return sim, nil
}

func scanPosition(row scannable) (types.ArenaPosition, error) {
	var pos types.ArenaPosition

	var (
		entryDate  *time.Time
		entryPrice *decimal.Decimal
		shares     *int64

		highestPrice *decimal.Decimal
		currentStop  *decimal.Decimal

		exitDate    *time.Time
		exitPrice   *decimal.Decimal
		exitReason  *string
		realizedPnL *decimal.Decimal
		returnPct   *decimal.Decimal

		agentReasoning *string
		agentScore     *decimal.Decimal
	)

	err := row.Scan(&pos.ID, &pos.SimulationID, &pos.Symbol, &pos.Status, &pos.SignalDate, &pos.TrailingStopPct,
		&entryDate, &entryPrice, &shares, &highestPrice, &currentStop,
		&exitDate, &exitPrice, &exitReason, &realizedPnL, &returnPct,
		&agentReasoning, &agentScore, &pos.CreatedAt, &pos.UpdatedAt)
	if err != nil {
		return types.ArenaPosition{}, err
	}

	pos.EntryDate = optionFromTimePtr(entryDate)
	pos.EntryPrice = optionFromDecimalPtr(entryPrice)
	pos.Shares = optionFromInt64Ptr(shares)
	pos.HighestPrice = optionFromDecimalPtr(highestPrice)
	pos.CurrentStop = optionFromDecimalPtr(currentStop)
	pos.ExitDate = optionFromTimePtr(exitDate)
	pos.ExitPrice = optionFromDecimalPtr(exitPrice)
	pos.RealizedPnL = optionFromDecimalPtr(realizedPnL)
	pos.ReturnPct = optionFromDecimalPtr(returnPct)
	pos.AgentReasoning = optionFromStringPtr(agentReasoning)
	pos.AgentScore = optionFromDecimalPtr(agentScore)

	if exitReason != nil {
		pos.ExitReason = optional.Some(types.ExitReason(*exitReason))
	} else {
		pos.ExitReason = optional.None[types.ExitReason]()
	}

	return pos, nil
}

func isNoRows(err error) bool {
	return goerrors.Is(err, pgx.ErrNoRows)
}

func maxRetriesOrDefault(n int) int {
	if n <= 0 {
		return 3
	}

	return n
}

func optionUnwrapDecimal(o optional.Option[decimal.Decimal]) *decimal.Decimal {
	if o.IsNone() {
		return nil
	}

	v := o.Unwrap()

	return &v
}

func optionUnwrapString(o optional.Option[string]) *string {
	if o.IsNone() {
		return nil
	}

	v := o.Unwrap()

	return &v
}

func optionFromStringPtr(p *string) optional.Option[string] {
	if p == nil {
		return optional.None[string]()
	}

	return optional.Some(*p)
}

func optionFromTimePtr(p *time.Time) optional.Option[time.Time] {
	if p == nil {
		return optional.None[time.Time]()
	}

	return optional.Some(*p)
}

func optionFromDecimalPtr(p *decimal.Decimal) optional.Option[decimal.Decimal] {
	if p == nil {
		return optional.None[decimal.Decimal]()
	}

	return optional.Some(*p)
}

func optionFromInt64Ptr(p *int64) optional.Option[int64] {
	if p == nil {
		return optional.None[int64]()
	}

	return optional.Some(*p)
}
