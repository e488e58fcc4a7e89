package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// Live20Run shares the queue-state shape of ArenaSimulation but drives a
// single symbol-by-symbol screening pass instead of a day-stepped backtest.
type Live20Run struct {
	ID uuid.UUID `json:"id" db:"id"`

	InputSymbols []string `json:"input_symbols" db:"input_symbols"`
	SymbolCount  int      `json:"symbol_count" db:"symbol_count"`
	SourceLists  optional.Option[[]string] `json:"source_lists,omitempty" db:"source_lists"`

	Status      JobStatus                  `json:"status" db:"status"`
	WorkerID    optional.Option[string]     `json:"worker_id,omitempty" db:"worker_id"`
	ClaimedAt   optional.Option[time.Time]  `json:"claimed_at,omitempty" db:"claimed_at"`
	HeartbeatAt optional.Option[time.Time]  `json:"heartbeat_at,omitempty" db:"heartbeat_at"`
	RetryCount  int                         `json:"retry_count" db:"retry_count"`
	MaxRetries  int                         `json:"max_retries" db:"max_retries"`
	LastError   optional.Option[string]     `json:"last_error,omitempty" db:"last_error"`

	ProcessedCount int                    `json:"processed_count" db:"processed_count"`
	LongCount      int                    `json:"long_count" db:"long_count"`
	ShortCount     int                    `json:"short_count" db:"short_count"`
	NoSetupCount   int                    `json:"no_setup_count" db:"no_setup_count"`
	FailedSymbols  map[string]string      `json:"failed_symbols" db:"failed_symbols"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LiveCriteria captures the five graduated signals live20 evaluates per symbol.
type LiveCriteria struct {
	TrendAligned      bool             `json:"trend_aligned"`
	MA20DistancePct   decimal.Decimal  `json:"ma20_distance_pct"`
	CandlePatternHit  bool             `json:"candle_pattern_hit"`
	VolumeConfirmed   bool             `json:"volume_confirmed"`
	MomentumValue     decimal.Decimal  `json:"momentum_value"`
	MomentumAlgorithm string           `json:"momentum_algorithm"`
}

// Recommendation is one symbol's analysis outcome from a Live20 run.
type Recommendation struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Live20RunID uuid.UUID `json:"live20_run_id" db:"live20_run_id"`

	Stock            string                  `json:"stock" db:"stock"`
	Source           string                  `json:"source" db:"source"`
	Recommendation   RecommendationDirection `json:"recommendation" db:"recommendation"`
	ConfidenceScore  decimal.Decimal         `json:"confidence_score" db:"confidence_score"`
	Reasoning        string                  `json:"reasoning" db:"reasoning"`
	Criteria         LiveCriteria            `json:"criteria" db:"criteria"`

	DeletedAt optional.Option[time.Time] `json:"deleted_at,omitempty" db:"deleted_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
