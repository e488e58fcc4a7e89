// Package agent defines the Agent capability boundary the Simulation Engine
// drives day by day, plus the PortfolioSelector capability that filters a
// day's BUY candidates down to what the engine actually enters: one narrow
// interface, several interchangeable implementations, no concrete type
// leaking past the registry.
package agent

import (
	"context"
	"sort"
	"time"

	"github.com/quantarena/arena/internal/types"
	"github.com/shopspring/decimal"
)

// Decision is what Evaluate returns for one symbol on one day.
type Decision struct {
	Action    types.AgentAction
	Score     decimal.Decimal
	Reasoning string
}

// Agent is the capability set the engine drives. Implementations must be
// pure functions of the supplied price history plus current_date —
// RequiredLookbackDays tells the engine how much history to slice before
// calling Evaluate.
type Agent interface {
	// Name identifies the agent for registry lookup and persistence
	// (ArenaSimulation.AgentType).
	Name() string

	// RequiredLookbackDays is the minimum number of trailing trading days
	// of history Evaluate needs to produce a decision.
	RequiredLookbackDays() int

	// Evaluate scores one symbol given its price history ordered ascending
	// (oldest first) through currentDate inclusive. hasOpenPosition lets
	// the agent emit HOLD for a symbol the engine already tracks rather
	// than re-signalling BUY.
	Evaluate(ctx context.Context, symbol string, history []types.PriceBar, currentDate time.Time, hasOpenPosition bool) (Decision, error)
}

// Registry resolves an agent name to an instance, following the same
// static-registry pattern as internal/provider.Registry.
type Registry struct {
	agents map[string]Agent
}

// NewRegistry builds a registry from the given named agents.
func NewRegistry(agents ...Agent) *Registry {
	r := &Registry{agents: make(map[string]Agent, len(agents))}
	for _, a := range agents {
		r.agents[a.Name()] = a
	}

	return r
}

// Get resolves an agent by name, returning ok=false if unregistered.
func (r *Registry) Get(name string) (Agent, bool) {
	a, ok := r.agents[name]

	return a, ok
}

// Names lists every registered agent name, for API listing endpoints.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
