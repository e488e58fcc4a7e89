package engine

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/quantarena/arena/internal/logger"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SimulationSummary is the human-readable YAML counterpart to the Parquet
// exports: one file with the headline numbers, for a quick look without a
// Parquet reader.
type SimulationSummary struct {
	ID             string  `yaml:"id"`
	AgentType      string  `yaml:"agent_type"`
	TotalTrades    int     `yaml:"total_trades"`
	WinningTrades  int     `yaml:"winning_trades"`
	WinRate        float64 `yaml:"win_rate"`
	FinalEquity    float64 `yaml:"final_equity,omitempty"`
	TotalReturnPct float64 `yaml:"total_return_pct,omitempty"`
	ProfitFactor   float64 `yaml:"profit_factor,omitempty"`
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct,omitempty"`
	PositionsFile  string  `yaml:"positions_file"`
	SnapshotsFile  string  `yaml:"snapshots_file"`
}

func summaryFromSimulation(sim types.ArenaSimulation) SimulationSummary {
	s := SimulationSummary{
		ID:            sim.ID.String(),
		AgentType:     sim.AgentType,
		TotalTrades:   sim.TotalTrades,
		WinningTrades: sim.WinningTrades,
		PositionsFile: "positions.parquet",
		SnapshotsFile: "snapshots.parquet",
	}

	if sim.TotalTrades > 0 {
		s.WinRate = float64(sim.WinningTrades) / float64(sim.TotalTrades)
	}

	if sim.FinalEquity.IsSome() {
		s.FinalEquity, _ = sim.FinalEquity.Unwrap().Float64()
	}

	if sim.TotalReturnPct.IsSome() {
		s.TotalReturnPct, _ = sim.TotalReturnPct.Unwrap().Float64()
	}

	if sim.ProfitFactor.IsSome() {
		s.ProfitFactor, _ = sim.ProfitFactor.Unwrap().Float64()
	}

	if sim.MaxDrawdownPct.IsSome() {
		s.MaxDrawdownPct, _ = sim.MaxDrawdownPct.Unwrap().Float64()
	}

	return s
}

// Report buffers one simulation's closed positions and daily snapshots in
// an in-memory DuckDB instance and exports them to Parquet on demand via
// DuckDB's COPY ... TO ... (FORMAT PARQUET).
type Report struct {
	db  *sql.DB
	log *logger.Logger
}

// NewReport opens an in-memory DuckDB instance and creates the positions
// and snapshots tables.
func NewReport(log *logger.Logger) (*Report, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open report database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to connect to report database", err)
	}

	r := &Report{db: db, log: log}

	if err := r.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return r, nil
}

func (r *Report) initialize() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS positions (
			id TEXT,
			symbol TEXT,
			status TEXT,
			signal_date TIMESTAMP,
			entry_date TIMESTAMP,
			entry_price DOUBLE,
			shares BIGINT,
			exit_date TIMESTAMP,
			exit_price DOUBLE,
			exit_reason TEXT,
			realized_pnl DOUBLE,
			return_pct DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create positions table", err)
	}

	_, err = r.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			snapshot_date TIMESTAMP,
			day_number INTEGER,
			cash DOUBLE,
			positions_value DOUBLE,
			total_equity DOUBLE,
			daily_pnl DOUBLE,
			daily_return_pct DOUBLE,
			cumulative_return_pct DOUBLE,
			open_position_count INTEGER,
			decisions TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create snapshots table", err)
	}

	return nil
}

// Close releases the underlying DuckDB connection.
func (r *Report) Close() error {
	return r.db.Close()
}

// LoadPositions buffers every position for later export.
func (r *Report) LoadPositions(positions []types.ArenaPosition) error {
	for _, pos := range positions {
		var (
			entryDate, exitDate           any
			entryPrice, exitPrice         any
			shares                        any
			exitReason                    any
			realizedPnL, returnPct        any
		)

		if pos.EntryDate.IsSome() {
			entryDate = pos.EntryDate.Unwrap()
		}

		if pos.EntryPrice.IsSome() {
			entryPrice, _ = pos.EntryPrice.Unwrap().Float64()
		}

		if pos.Shares.IsSome() {
			shares = pos.Shares.Unwrap()
		}

		if pos.ExitDate.IsSome() {
			exitDate = pos.ExitDate.Unwrap()
		}

		if pos.ExitPrice.IsSome() {
			exitPrice, _ = pos.ExitPrice.Unwrap().Float64()
		}

		if pos.ExitReason.IsSome() {
			exitReason = string(pos.ExitReason.Unwrap())
		}

		if pos.RealizedPnL.IsSome() {
			realizedPnL, _ = pos.RealizedPnL.Unwrap().Float64()
		}

		if pos.ReturnPct.IsSome() {
			returnPct, _ = pos.ReturnPct.Unwrap().Float64()
		}

		_, err := r.db.Exec(`
			INSERT INTO positions
				(id, symbol, status, signal_date, entry_date, entry_price, shares,
				 exit_date, exit_price, exit_reason, realized_pnl, return_pct)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		`, pos.ID.String(), pos.Symbol, string(pos.Status), pos.SignalDate, entryDate, entryPrice, shares,
			exitDate, exitPrice, exitReason, realizedPnL, returnPct)
		if err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to buffer position row", err)
		}
	}

	return nil
}

// LoadSnapshots buffers every daily snapshot for later export. decisions is
// flattened to JSON text since DuckDB has no native map-of-struct column.
func (r *Report) LoadSnapshots(snapshots []types.ArenaSnapshot) error {
	for _, snap := range snapshots {
		decisionsJSON, err := json.Marshal(snap.Decisions)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidParameter, "failed to marshal decisions", err)
		}

		cash, _ := snap.Cash.Float64()
		positionsValue, _ := snap.PositionsValue.Float64()
		totalEquity, _ := snap.TotalEquity.Float64()
		dailyPnL, _ := snap.DailyPnL.Float64()
		dailyReturnPct, _ := snap.DailyReturnPct.Float64()
		cumulativeReturnPct, _ := snap.CumulativeReturnPct.Float64()

		_, err = r.db.Exec(`
			INSERT INTO snapshots
				(snapshot_date, day_number, cash, positions_value, total_equity,
				 daily_pnl, daily_return_pct, cumulative_return_pct, open_position_count, decisions)
			VALUES (?,?,?,?,?,?,?,?,?,?)
		`, snap.SnapshotDate, snap.DayNumber, cash, positionsValue, totalEquity,
			dailyPnL, dailyReturnPct, cumulativeReturnPct, snap.OpenPositionCount, string(decisionsJSON))
		if err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to buffer snapshot row", err)
		}
	}

	return nil
}

// Export writes the buffered positions and snapshots tables to Parquet
// files under dir.
func (r *Report) Export(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create report directory", err)
	}

	positionsPath := filepath.Join(dir, "positions.parquet")
	if _, err := r.db.Exec(fmt.Sprintf(`COPY positions TO '%s' (FORMAT PARQUET)`, positionsPath)); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to export positions to parquet", err)
	}

	snapshotsPath := filepath.Join(dir, "snapshots.parquet")
	if _, err := r.db.Exec(fmt.Sprintf(`COPY snapshots TO '%s' (FORMAT PARQUET)`, snapshotsPath)); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to export snapshots to parquet", err)
	}

	r.log.Info("exported simulation report to parquet",
		zap.String("positions", positionsPath), zap.String("snapshots", snapshotsPath))

	return nil
}

// ExportSummary writes a human-readable YAML summary of the finalized
// simulation alongside the Parquet exports already written to dir.
func (r *Report) ExportSummary(dir string, sim types.ArenaSimulation) error {
	data, err := yaml.Marshal(summaryFromSimulation(sim))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "failed to marshal simulation summary to yaml", err)
	}

	summaryPath := filepath.Join(dir, "summary.yaml")
	if err := os.WriteFile(summaryPath, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to write simulation summary", err)
	}

	r.log.Info("exported simulation summary", zap.String("summary", summaryPath))

	return nil
}
