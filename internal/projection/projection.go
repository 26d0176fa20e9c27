// Package projection advances stage-structured populations one day at a time.
// Counts flow along each species' stage chain: a fraction of every cohort dies,
// a fraction matures into the successor stage, adults seed the first stage, and
// predatory stages consume vulnerable prey stages via a Holling Type II
// response. All state lives in the fact store, so a projection can be resumed
// from any day whose facts are present.
package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/biosim/internal/facts"
	"github.com/talgya/biosim/internal/rules"
	"github.com/talgya/biosim/internal/species"
)

var (
	// ErrSequence marks out-of-order operations: projecting a day whose
	// predecessor state or environment has not been asserted.
	ErrSequence = errors.New("sequence error")

	// ErrConfigurationGap marks projection over a species whose parameters
	// were never loaded.
	ErrConfigurationGap = errors.New("configuration gap")

	// ErrComputation marks a non-finite or negative intermediate result.
	// The day that produced it is aborted with the store untouched.
	ErrComputation = errors.New("computation failure")
)

// Projector advances the populations of its registered species. The zero
// value is not usable; construct with New.
type Projector struct {
	store   *facts.Store
	species []species.Params
}

// New loads every species' parameters into the store and returns a projector
// over them.
func New(s *facts.Store, specs ...species.Params) (*Projector, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no species registered", ErrConfigurationGap)
	}
	for _, p := range specs {
		if err := species.Load(s, p); err != nil {
			return nil, err
		}
	}
	return &Projector{store: s, species: specs}, nil
}

// Seed asserts an initial cohort count for one species stage on the given day.
func (pr *Projector) Seed(speciesID, stage string, day int, count float64) error {
	p, ok := pr.params(speciesID)
	if !ok {
		return fmt.Errorf("%w: species %s not registered", ErrConfigurationGap, speciesID)
	}
	if _, ok := p.Stage(stage); !ok {
		return fmt.Errorf("%w: species %s has no stage %s", species.ErrInvalidParameter, speciesID, stage)
	}
	if count < 0 || math.IsNaN(count) || math.IsInf(count, 0) {
		return fmt.Errorf("%w: count %v for %s/%s", species.ErrInvalidParameter, count, speciesID, stage)
	}
	return pr.store.Insert(facts.RelPopulationState, speciesID, stage, day, count)
}

// Count returns the stored population of one species stage on a day, zero
// when no fact exists.
func (pr *Projector) Count(speciesID, stage string, day int) float64 {
	b, ok := pr.store.QueryOne(facts.RelPopulationState, speciesID, stage, day, facts.Var("N"))
	if !ok {
		return 0
	}
	return b.Float("N")
}

// AdvanceOneDay projects every registered species from day to day+1. The
// update is atomic: all next-day counts are computed first, and nothing is
// written if any of them comes out non-finite.
func (pr *Projector) AdvanceOneDay(day int) error {
	env, ok := pr.store.QueryOne(facts.RelEnvironmentalState, day, facts.Var("T"), facts.Var("H"))
	if !ok {
		return fmt.Errorf("%w: no environmental state for day %d", ErrSequence, day)
	}
	temp, hum := env.Float("T"), env.Float("H")

	next := make(map[string]map[string]float64, len(pr.species))
	for _, p := range pr.species {
		counts, err := pr.projectSpecies(p, day, temp, hum)
		if err != nil {
			return err
		}
		next[p.ID] = counts
	}

	for _, p := range pr.species {
		pr.applyPredation(p, day, next)
	}

	for sp, counts := range next {
		for stage, n := range counts {
			if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
				slog.Error("projection aborted", "species", sp, "stage", stage, "day", day, "value", n)
				return fmt.Errorf("%w: %s/%s day %d produced %v", ErrComputation, sp, stage, day+1, n)
			}
		}
	}

	for _, p := range pr.species {
		for _, st := range p.Stages {
			if err := pr.store.Insert(facts.RelPopulationState, p.ID, st.Name, day+1, next[p.ID][st.Name]); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProjectTo advances day by day up to and including targetDay, checking for
// cancellation between days.
func (pr *Projector) ProjectTo(ctx context.Context, fromDay, targetDay int) error {
	if targetDay < fromDay {
		return fmt.Errorf("%w: target day %d before start day %d", ErrSequence, targetDay, fromDay)
	}
	for day := fromDay; day < targetDay; day++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := pr.AdvanceOneDay(day); err != nil {
			return fmt.Errorf("day %d: %w", day, err)
		}
	}
	return nil
}

// projectSpecies computes next-day counts for one species: daily survival,
// maturation into the successor stage, and adult reproduction into the first
// stage. Predation is applied afterwards across species.
func (pr *Projector) projectSpecies(p species.Params, day int, temp, hum float64) (map[string]float64, error) {
	tf := rules.TemperatureFactor(p.Sensitivity.OptTempMin, p.Sensitivity.OptTempMax, temp)
	hf := rules.HumidityFactor(p.Sensitivity.OptHumidity, hum)

	next := make(map[string]float64, len(p.Stages))
	for i, st := range p.Stages {
		count := pr.Count(p.ID, st.Name, day)
		if count == 0 {
			continue
		}

		dur := st.AvgDuration()
		var daily float64
		if st.DailySurvival {
			daily = rules.EffectiveSurvival(st.Survival, tf, hf)
		} else {
			// The stored rate is survival to the next stage; spread it over
			// the average stage duration.
			eff := rules.EffectiveSurvival(st.Survival, tf, hf)
			daily = math.Pow(eff, 1/dur)
		}
		survivors := count * daily

		if i < len(p.Stages)-1 {
			maturing := survivors / dur
			next[st.Name] += survivors - maturing
			next[p.Stages[i+1].Name] += maturing
		} else {
			next[st.Name] += survivors
			eggs := survivors * p.DailyFecundity() * tf * hf
			next[p.Stages[0].Name] += eggs
		}
	}
	for _, st := range p.Stages {
		next[st.Name] += 0 // every stage gets an explicit next-day fact
	}

	slog.Debug("species projected", "species", p.ID, "day", day, "tempFactor", tf, "humidityFactor", hf)
	return next, nil
}

// applyPredation subtracts Holling Type II consumption by this species'
// predatory stages from the vulnerable stages of its prey genus. Both sides
// use the freshly computed next-day counts so predation acts once per day.
func (pr *Projector) applyPredation(pred species.Params, day int, next map[string]map[string]float64) {
	if pred.Predation == nil {
		return
	}

	var predators, capTotal float64
	for _, name := range pr.predatoryStages(pred.ID) {
		n := next[pred.ID][name]
		predators += n
		if b, ok := pr.store.QueryOne(facts.RelPredationRate, pred.ID, name, facts.Var("R")); ok {
			capTotal += n * b.Float("R")
		}
	}
	if predators <= 0 {
		return
	}

	for _, prey := range pr.species {
		if prey.Genus != pred.Predation.PreyGenus || prey.ID == pred.ID {
			continue
		}
		var exposed float64
		for _, st := range prey.Stages {
			if st.Vulnerable {
				exposed += next[prey.ID][st.Name]
			}
		}
		if exposed <= 0 {
			continue
		}

		consumed := rules.HollingConsumption(predators, pred.Predation.AttackRate, pred.Predation.HandlingTime, exposed, 0)
		consumed = math.Min(consumed, capTotal)
		if consumed <= 0 {
			continue
		}

		// Spread consumption across vulnerable stages in proportion to their
		// share of the exposed population.
		for _, st := range prey.Stages {
			if !st.Vulnerable {
				continue
			}
			share := next[prey.ID][st.Name] / exposed
			taken := consumed * share
			next[prey.ID][st.Name] = math.Max(0, next[prey.ID][st.Name]-taken)
		}
		slog.Debug("predation applied", "predator", pred.ID, "prey", prey.ID, "day", day, "consumed", consumed)
	}
}

// predatoryStages enumerates a species' predatory stages from the asserted
// stage flags, an exhaustive rule over the knowledge base.
func (pr *Projector) predatoryStages(speciesID string) []string {
	rule := rules.Rule{
		Name: "predatory_stages",
		Alts: []rules.Alternative{{
			Derive: func(s *facts.Store) []rules.Result {
				var out []rules.Result
				for _, b := range s.QueryAll(facts.RelStageFlags, speciesID, facts.Var("Stage"), true, facts.Any) {
					out = append(out, b)
				}
				return out
			},
		}},
	}
	var stages []string
	for _, res := range rule.All(pr.store) {
		stages = append(stages, res.String("Stage"))
	}
	return stages
}

// Total sums the counts of all stages of one species on a day.
func (pr *Projector) Total(speciesID string, day int) float64 {
	var sum float64
	for _, b := range pr.store.QueryAll(facts.RelPopulationState, speciesID, facts.Var("Stage"), day, facts.Var("N")) {
		sum += b.Float("N")
	}
	return sum
}

// Species returns the registered parameter sets.
func (pr *Projector) Species() []species.Params {
	return pr.species
}

// Store exposes the underlying fact store for analytical queries.
func (pr *Projector) Store() *facts.Store {
	return pr.store
}

func (pr *Projector) params(id string) (species.Params, bool) {
	for _, p := range pr.species {
		if p.ID == id {
			return p, true
		}
	}
	return species.Params{}, false
}
