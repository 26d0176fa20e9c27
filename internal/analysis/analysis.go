// Package analysis answers questions about simulation state: population
// totals and trends, predator-prey ratios, biocontrol viability, ecological
// equilibrium, and extinction risk. Every query reads the fact store only
// and never mutates it.
package analysis

import (
	"errors"
	"fmt"

	"github.com/talgya/biosim/internal/facts"
	"github.com/talgya/biosim/internal/rules"
)

// ErrConfigurationGap marks a query whose supporting parameter facts
// (carrying capacity, minimum viable population) were never asserted.
var ErrConfigurationGap = errors.New("configuration gap")

// Trend classifications. Initial is reported while the history is shorter
// than the strategy's window.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
	TrendInitial    = "initial"
)

// Biocontrol viability tiers, strongest first.
const (
	ViabilityHighlyEffective = "highly_effective"
	ViabilityEffective       = "effective"
	ViabilityPromising       = "promising"
	ViabilityIneffective     = "ineffective"
	ViabilityUnknown         = "requires_analysis"
)

// TrendStrategy selects how far back a trend comparison looks.
type TrendStrategy int

const (
	// DayOverDay compares against the previous day only.
	DayOverDay TrendStrategy = iota
	// RollingWindow compares against the total ten days earlier, smoothing
	// single-day noise.
	RollingWindow
)

const (
	rollingWindowDays = 10
	trendThreshold    = 0.05 // relative change below this is stable
)

// Analyzer runs queries against one fact store.
type Analyzer struct {
	store *facts.Store
}

func New(s *facts.Store) *Analyzer {
	return &Analyzer{store: s}
}

// TotalPopulation sums every stage of one species on a day.
func (a *Analyzer) TotalPopulation(speciesID string, day int) float64 {
	var sum float64
	for _, b := range a.store.QueryAll(facts.RelPopulationState, speciesID, facts.Var("Stage"), day, facts.Var("N")) {
		sum += b.Float("N")
	}
	return sum
}

// StageBreakdown returns per-stage counts in assertion order.
func (a *Analyzer) StageBreakdown(speciesID string, day int) map[string]float64 {
	out := make(map[string]float64)
	for _, b := range a.store.QueryAll(facts.RelPopulationState, speciesID, facts.Var("Stage"), day, facts.Var("N")) {
		out[b.String("Stage")] = b.Float("N")
	}
	return out
}

// Trend classifies the population change of one species ending on day. A
// relative change within ±5% of the reference total is stable.
func (a *Analyzer) Trend(speciesID string, day int, strategy TrendStrategy) string {
	back := 1
	if strategy == RollingWindow {
		back = rollingWindowDays
	}
	refDay := day - back
	if refDay < 0 || a.store.Count(facts.RelPopulationState, speciesID, facts.Any, refDay) == 0 {
		return TrendInitial
	}

	ref := a.TotalPopulation(speciesID, refDay)
	cur := a.TotalPopulation(speciesID, day)
	if ref == 0 {
		if cur == 0 {
			return TrendStable
		}
		return TrendIncreasing
	}

	change := (cur - ref) / ref
	switch {
	case change > trendThreshold:
		return TrendIncreasing
	case change < -trendThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// PredatorPreyRatio is predator total over prey total on a day. ok is false
// when the prey population is zero.
func (a *Analyzer) PredatorPreyRatio(predatorID, preyID string, day int) (float64, bool) {
	prey := a.TotalPopulation(preyID, day)
	if prey == 0 {
		return 0, false
	}
	return a.TotalPopulation(predatorID, day) / prey, true
}

// Equilibrium classifies a species' population against the carrying_capacity
// environmental parameter.
func (a *Analyzer) Equilibrium(speciesID string, day int) (string, error) {
	b, ok := a.store.QueryOne(facts.RelEnvironmentalParam, "carrying_capacity", facts.Var("K"))
	if !ok {
		return "", fmt.Errorf("%w: carrying_capacity not asserted", ErrConfigurationGap)
	}
	return rules.ClassifyEquilibrium(a.TotalPopulation(speciesID, day), b.Float("K")), nil
}

// ExtinctionRisk classifies a species' population against its minimum viable
// population threshold.
func (a *Analyzer) ExtinctionRisk(speciesID string, day int) (string, error) {
	b, ok := a.store.QueryOne(facts.RelMinViablePop, speciesID, facts.Var("M"))
	if !ok {
		return "", fmt.Errorf("%w: no minimum viable population for %s", ErrConfigurationGap, speciesID)
	}
	return rules.ClassifyExtinctionRisk(a.TotalPopulation(speciesID, day), b.Float("M")), nil
}

// BiocontrolViability grades how well a predator species is suppressing a
// prey species on a day. The tiers are ordered alternatives: the first whose
// guard holds wins.
func (a *Analyzer) BiocontrolViability(predatorID, preyID string, day int) string {
	trend := a.Trend(preyID, day, RollingWindow)
	ratio, hasPrey := a.PredatorPreyRatio(predatorID, preyID, day)

	rule := rules.Rule{
		Name: "biocontrol_viability",
		Alts: []rules.Alternative{
			{
				Name: ViabilityHighlyEffective,
				When: func(*facts.Store) bool { return trend == TrendDecreasing && ratio >= 0.1 },
			},
			{
				Name: ViabilityEffective,
				When: func(*facts.Store) bool { return trend == TrendDecreasing },
			},
			{
				Name: ViabilityPromising,
				When: func(*facts.Store) bool { return trend == TrendStable && ratio >= 0.05 },
			},
			{
				Name: ViabilityIneffective,
				When: func(*facts.Store) bool { return hasPrey && trend != TrendInitial },
			},
		},
	}
	for i := range rule.Alts {
		tier := rule.Alts[i].Name
		rule.Alts[i].Derive = func(*facts.Store) []rules.Result {
			return []rules.Result{{"Tier": tier}}
		}
	}

	res, ok := rule.First(a.store)
	if !ok {
		return ViabilityUnknown
	}
	return res.String("Tier")
}
