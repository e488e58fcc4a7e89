package agent

import (
	"sort"

	"github.com/moznion/go-optional"
	"github.com/quantarena/arena/internal/types"
	"github.com/shopspring/decimal"
)

// Candidate is one symbol's BUY signal for the day, carrying what a
// PortfolioSelector needs to rank and admit it.
type Candidate struct {
	Symbol string
	Score  decimal.Decimal
	Sector string
	ATR    decimal.Decimal
}

// SelectionInput is everything a PortfolioSelector needs to turn a day's
// BUY candidates into an ordered admit list: the candidates themselves,
// current exposure, and the configured caps. Pure — a selector reads only
// this struct and returns a subset, no hidden state.
type SelectionInput struct {
	Candidates        []Candidate
	OpenPositionCount int
	OpenSectorCounts  map[string]int
	MaxPerSector      optional.Option[int]
	MaxOpenPositions  optional.Option[int]
}

// PortfolioSelector filters and orders a day's BUY candidates down to what
// the engine actually enters, respecting sector and total position caps.
type PortfolioSelector interface {
	Name() string
	Select(in SelectionInput) []Candidate
}

// PortfolioRegistry resolves a strategy name to a selector instance.
type PortfolioRegistry struct {
	selectors map[types.PortfolioStrategy]PortfolioSelector
}

// NewPortfolioRegistry builds a registry preloaded with the four shipped
// strategies.
func NewPortfolioRegistry() *PortfolioRegistry {
	r := &PortfolioRegistry{selectors: make(map[types.PortfolioStrategy]PortfolioSelector, 4)}

	for _, sel := range []PortfolioSelector{
		NewNoneSelector(),
		NewScoreSectorLowATR(),
		NewScoreSectorHighATR(),
		NewScoreSectorModerateATR(),
	} {
		r.selectors[types.PortfolioStrategy(sel.Name())] = sel
	}

	return r
}

// Get resolves a strategy by name, returning ok=false if unregistered.
func (r *PortfolioRegistry) Get(strategy types.PortfolioStrategy) (PortfolioSelector, bool) {
	sel, ok := r.selectors[strategy]

	return sel, ok
}

// Names lists every registered strategy name, for API listing endpoints.
func (r *PortfolioRegistry) Names() []string {
	names := make([]string, 0, len(r.selectors))
	for strategy := range r.selectors {
		names = append(names, string(strategy))
	}

	sort.Strings(names)

	return names
}

// admitWithCaps walks candidates in the order a strategy already sorted
// them, admitting each while OpenPositionCount/OpenSectorCounts[sector]
// stay under the configured caps. Shared by every strategy so cap
// enforcement is defined exactly once.
func admitWithCaps(ordered []Candidate, in SelectionInput) []Candidate {
	sectorCounts := make(map[string]int, len(in.OpenSectorCounts))
	for k, v := range in.OpenSectorCounts {
		sectorCounts[k] = v
	}

	openCount := in.OpenPositionCount

	admitted := make([]Candidate, 0, len(ordered))

	for _, c := range ordered {
		if in.MaxOpenPositions.IsSome() && openCount >= in.MaxOpenPositions.Unwrap() {
			break
		}

		if in.MaxPerSector.IsSome() && sectorCounts[c.Sector] >= in.MaxPerSector.Unwrap() {
			continue
		}

		admitted = append(admitted, c)
		openCount++
		sectorCounts[c.Sector]++
	}

	return admitted
}

// NoneSelector admits candidates FIFO (input order), applying only the
// caps — no score/ATR-based reordering.
type NoneSelector struct{}

func NewNoneSelector() *NoneSelector { return &NoneSelector{} }

func (s *NoneSelector) Name() string { return string(types.PortfolioStrategyNone) }

func (s *NoneSelector) Select(in SelectionInput) []Candidate {
	return admitWithCaps(in.Candidates, in)
}

// ScoreSectorLowATR ranks by score descending, then ATR ascending —
// prefers the highest-conviction, lowest-volatility setups.
type ScoreSectorLowATR struct{}

func NewScoreSectorLowATR() *ScoreSectorLowATR { return &ScoreSectorLowATR{} }

func (s *ScoreSectorLowATR) Name() string { return string(types.PortfolioStrategyScoreSectorLowATR) }

func (s *ScoreSectorLowATR) Select(in SelectionInput) []Candidate {
	ordered := sortedCopy(in.Candidates, func(a, b Candidate) bool {
		if !a.Score.Equal(b.Score) {
			return a.Score.GreaterThan(b.Score)
		}

		return a.ATR.LessThan(b.ATR)
	})

	return admitWithCaps(ordered, in)
}

// ScoreSectorHighATR ranks by score descending, then ATR descending —
// prefers the highest-conviction, highest-volatility (highest potential
// reward) setups.
type ScoreSectorHighATR struct{}

func NewScoreSectorHighATR() *ScoreSectorHighATR { return &ScoreSectorHighATR{} }

func (s *ScoreSectorHighATR) Name() string {
	return string(types.PortfolioStrategyScoreSectorHighATR)
}

func (s *ScoreSectorHighATR) Select(in SelectionInput) []Candidate {
	ordered := sortedCopy(in.Candidates, func(a, b Candidate) bool {
		if !a.Score.Equal(b.Score) {
			return a.Score.GreaterThan(b.Score)
		}

		return a.ATR.GreaterThan(b.ATR)
	})

	return admitWithCaps(ordered, in)
}

// ScoreSectorModerateATR prefers the middle tercile of ATR — avoiding both
// the quietest and the most volatile names — breaking ties by score
// descending.
type ScoreSectorModerateATR struct{}

func NewScoreSectorModerateATR() *ScoreSectorModerateATR { return &ScoreSectorModerateATR{} }

func (s *ScoreSectorModerateATR) Name() string {
	return string(types.PortfolioStrategyScoreSectorModerateATR)
}

func (s *ScoreSectorModerateATR) Select(in SelectionInput) []Candidate {
	n := len(in.Candidates)
	if n == 0 {
		return nil
	}

	byATR := sortedCopy(in.Candidates, func(a, b Candidate) bool {
		return a.ATR.LessThan(b.ATR)
	})

	atrRank := make(map[string]int, n)
	for i, c := range byATR {
		atrRank[c.Symbol] = i
	}

	medianRank := (n - 1) / 2

	ordered := sortedCopy(in.Candidates, func(a, b Candidate) bool {
		da := distance(atrRank[a.Symbol], medianRank)
		db := distance(atrRank[b.Symbol], medianRank)

		if da != db {
			return da < db
		}

		return a.Score.GreaterThan(b.Score)
	})

	return admitWithCaps(ordered, in)
}

func distance(a, b int) int {
	if a < b {
		return b - a
	}

	return a - b
}

// sortedCopy returns a stable-sorted copy of candidates using less as the
// ordering predicate, leaving the input slice untouched.
func sortedCopy(candidates []Candidate, less func(a, b Candidate) bool) []Candidate {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)

	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})

	return out
}
