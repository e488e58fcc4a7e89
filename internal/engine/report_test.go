package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/quantarena/arena/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type ReportTestSuite struct {
	suite.Suite
}

func TestReportTestSuite(t *testing.T) {
	suite.Run(t, new(ReportTestSuite))
}

func (s *ReportTestSuite) samplePosition() types.ArenaPosition {
	return types.ArenaPosition{
		ID:          uuid.New(),
		Symbol:      "TEST",
		Status:      types.PositionStatusClosed,
		SignalDate:  truncateDay(time.Now()),
		EntryDate:   optSomeTime(truncateDay(time.Now())),
		EntryPrice:  optSomeDecimal(decimal.NewFromInt(100)),
		Shares:      optSomeInt64(10),
		ExitDate:    optSomeTime(truncateDay(time.Now())),
		ExitPrice:   optSomeDecimal(decimal.NewFromInt(110)),
		ExitReason:  optSomeExitReason(types.ExitReasonSimulationEnd),
		RealizedPnL: optSomeDecimal(decimal.NewFromInt(100)),
		ReturnPct:   optSomeDecimal(decimal.NewFromInt(10)),
	}
}

func (s *ReportTestSuite) sampleSnapshot() types.ArenaSnapshot {
	return types.ArenaSnapshot{
		ID:                  uuid.New(),
		SnapshotDate:        truncateDay(time.Now()),
		DayNumber:           1,
		Cash:                decimal.NewFromInt(9000),
		PositionsValue:      decimal.NewFromInt(1100),
		TotalEquity:         decimal.NewFromInt(10100),
		DailyPnL:            decimal.NewFromInt(100),
		DailyReturnPct:      decimal.NewFromInt(1),
		CumulativeReturnPct: decimal.NewFromInt(1),
		OpenPositionCount:   0,
		Decisions:           map[string]types.Decision{},
	}
}

func (s *ReportTestSuite) TestExportWritesParquetFiles() {
	report, err := NewReport(testLogger())
	s.Require().NoError(err)
	defer report.Close() //nolint:errcheck

	s.Require().NoError(report.LoadPositions([]types.ArenaPosition{s.samplePosition()}))
	s.Require().NoError(report.LoadSnapshots([]types.ArenaSnapshot{s.sampleSnapshot()}))

	dir := s.T().TempDir()
	s.Require().NoError(report.Export(dir))

	s.FileExists(filepath.Join(dir, "positions.parquet"))
	s.FileExists(filepath.Join(dir, "snapshots.parquet"))
}

func (s *ReportTestSuite) TestExportSummaryWritesYAMLWithHeadlineNumbers() {
	report, err := NewReport(testLogger())
	s.Require().NoError(err)
	defer report.Close() //nolint:errcheck

	sim := types.ArenaSimulation{
		ID:             uuid.New(),
		AgentType:      "trend_follower",
		TotalTrades:    4,
		WinningTrades:  3,
		FinalEquity:    optional.Some(decimal.NewFromInt(11000)),
		TotalReturnPct: optional.Some(decimal.NewFromInt(10)),
		ProfitFactor:   optional.Some(decimal.NewFromFloat(2.5)),
		MaxDrawdownPct: optional.Some(decimal.NewFromFloat(3.2)),
	}

	dir := s.T().TempDir()
	s.Require().NoError(report.ExportSummary(dir, sim))

	data, err := os.ReadFile(filepath.Join(dir, "summary.yaml"))
	s.Require().NoError(err)

	var summary SimulationSummary
	s.Require().NoError(yaml.Unmarshal(data, &summary))

	s.Equal(sim.ID.String(), summary.ID)
	s.Equal("trend_follower", summary.AgentType)
	s.Equal(4, summary.TotalTrades)
	s.Equal(3, summary.WinningTrades)
	s.InDelta(0.75, summary.WinRate, 0.0001)
	s.InDelta(11000, summary.FinalEquity, 0.0001)
	s.Equal("positions.parquet", summary.PositionsFile)
	s.Equal("snapshots.parquet", summary.SnapshotsFile)
}

func (s *ReportTestSuite) TestExportSummaryZeroTradesLeavesWinRateZero() {
	report, err := NewReport(testLogger())
	s.Require().NoError(err)
	defer report.Close() //nolint:errcheck

	sim := types.ArenaSimulation{ID: uuid.New(), AgentType: "trend_follower"}

	dir := s.T().TempDir()
	s.Require().NoError(report.ExportSummary(dir, sim))

	data, err := os.ReadFile(filepath.Join(dir, "summary.yaml"))
	s.Require().NoError(err)

	var summary SimulationSummary
	s.Require().NoError(yaml.Unmarshal(data, &summary))

	s.Zero(summary.WinRate)
}
