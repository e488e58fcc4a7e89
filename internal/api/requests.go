package api

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// CreateSimulationRequest is the body of POST /arena/simulations.
type CreateSimulationRequest struct {
	Symbols        []string        `json:"symbols" validate:"required,min=1"`
	StartDate      time.Time       `json:"start_date" validate:"required"`
	EndDate        time.Time       `json:"end_date" validate:"required"`
	InitialCapital decimal.Decimal `json:"initial_capital" validate:"required"`
	PositionSize   decimal.Decimal `json:"position_size" validate:"required"`
	AgentType      string          `json:"agent_type" validate:"required"`
	AgentConfig    types.AgentConfig `json:"agent_config"`
}

// Validate checks struct tags plus the decimal sign constraints
// validator's tag language can't express directly.
func (r *CreateSimulationRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid simulation request", err)
	}

	if !r.EndDate.After(r.StartDate) {
		return errors.New(errors.ErrCodeInvalidParameter, "end_date must be after start_date")
	}

	if !r.InitialCapital.IsPositive() {
		return errors.New(errors.ErrCodeInvalidParameter, "initial_capital must be positive")
	}

	if !r.PositionSize.IsPositive() {
		return errors.New(errors.ErrCodeInvalidParameter, "position_size must be positive")
	}

	return nil
}

// ToSimulation builds the pending ArenaSimulation the store inserts.
func (r *CreateSimulationRequest) ToSimulation() types.ArenaSimulation {
	symbols := make([]string, len(r.Symbols))
	for i, sym := range r.Symbols {
		symbols[i] = types.CanonicalSymbol(sym)
	}

	return types.ArenaSimulation{
		Symbols:        symbols,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		InitialCapital: r.InitialCapital,
		PositionSize:   r.PositionSize,
		AgentType:      r.AgentType,
		AgentConfig:    r.AgentConfig,
	}
}

// CreateLive20RunRequest is the body of POST /live-20/analyze.
type CreateLive20RunRequest struct {
	Symbols     []string             `json:"symbols" validate:"required,min=1"`
	SourceLists optional.Option[[]string] `json:"source_lists,omitempty"`
}

func (r *CreateLive20RunRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid live20 analyze request", err)
	}

	return nil
}

// ToRun builds the pending Live20Run the store inserts.
func (r *CreateLive20RunRequest) ToRun() types.Live20Run {
	symbols := make([]string, len(r.Symbols))
	for i, sym := range r.Symbols {
		symbols[i] = types.CanonicalSymbol(sym)
	}

	return types.Live20Run{
		InputSymbols: symbols,
		SourceLists:  r.SourceLists,
	}
}
