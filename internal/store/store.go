// Package store is the durable Price Store: Postgres-backed OHLCV
// persistence with atomic upsert and range reads, plus the StockSector
// metadata cache, backed by jackc/pgx/v5 so the Job Queue's
// SELECT ... FOR UPDATE SKIP LOCKED claim has real row-level locking.
package store

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quantarena/arena/internal/logger"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Store wraps a pgx connection pool with the Price Store and StockSector
// operations.
type Store struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// New creates a Store backed by the given DSN.
func New(ctx context.Context, dsn string, log *logger.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, err
	}

	return &Store{pool: pool, logger: log}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying connection pool for packages that need raw
// row-level locking the Store's own methods don't cover, namely
// internal/queue's claim/heartbeat/cancel statements.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Ping checks the pool can still reach Postgres, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the schema if absent. This is the one-shot bootstrap
// DDL a fresh deployment needs; no versioned migration tooling.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS price_bars (
		symbol TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		interval TEXT NOT NULL,
		open NUMERIC(18,4) NOT NULL,
		high NUMERIC(18,4) NOT NULL,
		low NUMERIC(18,4) NOT NULL,
		close NUMERIC(18,4) NOT NULL,
		volume BIGINT NOT NULL,
		adjusted_close NUMERIC(18,4),
		data_source TEXT NOT NULL,
		last_fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_validated BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (symbol, timestamp, interval)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_bars_symbol_interval_ts
		ON price_bars (symbol, interval, timestamp)`,
	`CREATE TABLE IF NOT EXISTS stock_sectors (
		symbol TEXT PRIMARY KEY,
		sector TEXT NOT NULL DEFAULT '',
		sector_etf TEXT NOT NULL DEFAULT '',
		industry TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		exchange TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS arena_simulations (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		symbols TEXT[] NOT NULL,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		initial_capital NUMERIC(18,4) NOT NULL,
		position_size NUMERIC(18,4) NOT NULL,
		agent_type TEXT NOT NULL,
		agent_config JSONB NOT NULL,

		status TEXT NOT NULL DEFAULT 'pending',
		worker_id TEXT,
		claimed_at TIMESTAMPTZ,
		heartbeat_at TIMESTAMPTZ,
		retry_count INT NOT NULL DEFAULT 0,
		max_retries INT NOT NULL DEFAULT 3,
		last_error TEXT,

		current_day INT NOT NULL DEFAULT 0,
		total_days INT NOT NULL DEFAULT 0,

		final_equity NUMERIC(18,4),
		total_return_pct NUMERIC(18,4),
		total_trades INT NOT NULL DEFAULT 0,
		winning_trades INT NOT NULL DEFAULT 0,
		max_drawdown_pct NUMERIC(18,4),
		avg_hold_days NUMERIC(18,4),
		avg_win_pnl NUMERIC(18,4),
		avg_loss_pnl NUMERIC(18,4),
		profit_factor NUMERIC(18,4),
		sharpe_ratio NUMERIC(18,4),
		total_realized_pnl NUMERIC(18,4),

		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_arena_simulations_status ON arena_simulations (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS arena_positions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		simulation_id UUID NOT NULL REFERENCES arena_simulations(id) ON DELETE CASCADE,

		symbol TEXT NOT NULL,
		status TEXT NOT NULL,
		signal_date TIMESTAMPTZ NOT NULL,
		trailing_stop_pct NUMERIC(18,4) NOT NULL,

		entry_date TIMESTAMPTZ,
		entry_price NUMERIC(18,4),
		shares BIGINT,

		highest_price NUMERIC(18,4),
		current_stop NUMERIC(18,4),

		exit_date TIMESTAMPTZ,
		exit_price NUMERIC(18,4),
		exit_reason TEXT,
		realized_pnl NUMERIC(18,4),
		return_pct NUMERIC(18,4),

		agent_reasoning TEXT,
		agent_score NUMERIC(18,4),

		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_arena_positions_sim_status ON arena_positions (simulation_id, status)`,
	`CREATE TABLE IF NOT EXISTS arena_snapshots (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		simulation_id UUID NOT NULL REFERENCES arena_simulations(id) ON DELETE CASCADE,

		snapshot_date TIMESTAMPTZ NOT NULL,
		day_number INT NOT NULL,
		cash NUMERIC(18,4) NOT NULL,
		positions_value NUMERIC(18,4) NOT NULL,
		total_equity NUMERIC(18,4) NOT NULL,
		daily_pnl NUMERIC(18,4) NOT NULL,
		daily_return_pct NUMERIC(18,4) NOT NULL,
		cumulative_return_pct NUMERIC(18,4) NOT NULL,
		open_position_count INT NOT NULL,
		decisions JSONB NOT NULL DEFAULT '{}',

		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (simulation_id, day_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_arena_snapshots_sim_day ON arena_snapshots (simulation_id, day_number)`,
	`CREATE TABLE IF NOT EXISTS live20_runs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		input_symbols TEXT[] NOT NULL,
		symbol_count INT NOT NULL,
		source_lists TEXT[],

		status TEXT NOT NULL DEFAULT 'pending',
		worker_id TEXT,
		claimed_at TIMESTAMPTZ,
		heartbeat_at TIMESTAMPTZ,
		retry_count INT NOT NULL DEFAULT 0,
		max_retries INT NOT NULL DEFAULT 3,
		last_error TEXT,

		processed_count INT NOT NULL DEFAULT 0,
		long_count INT NOT NULL DEFAULT 0,
		short_count INT NOT NULL DEFAULT 0,
		no_setup_count INT NOT NULL DEFAULT 0,
		failed_symbols JSONB NOT NULL DEFAULT '{}',

		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_live20_runs_status ON live20_runs (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS recommendations (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		live20_run_id UUID NOT NULL REFERENCES live20_runs(id) ON DELETE CASCADE,

		stock TEXT NOT NULL,
		source TEXT NOT NULL,
		recommendation TEXT NOT NULL,
		confidence_score NUMERIC(18,4) NOT NULL,
		reasoning TEXT NOT NULL DEFAULT '',
		criteria JSONB NOT NULL,

		deleted_at TIMESTAMPTZ,

		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendations_run ON recommendations (live20_run_id) WHERE deleted_at IS NULL`,
}
