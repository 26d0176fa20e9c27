// Package species defines per-species biological parameters — life stage
// chains, survival rates, reproduction, environmental sensitivity, predation —
// and loads them into the fact store as the simulation knowledge base.
package species

import (
	"errors"
	"fmt"

	"github.com/talgya/biosim/internal/facts"
)

// ErrInvalidParameter marks load-time parameter rejection: negative counts,
// survival rates outside [0,1], malformed stage sequences.
var ErrInvalidParameter = errors.New("invalid parameter")

// Stage is one phase of a species' life cycle. Non-terminal stages carry a
// to-next-stage survival rate; terminal (adult) stages carry a daily one.
type Stage struct {
	Name          string
	MinDays       int
	MaxDays       int
	Survival      float64 // to-next-stage for non-terminal, daily for terminal
	DailySurvival bool    // true when Survival is a daily rate
	Predatory     bool
	Vulnerable    bool
	PredationRate float64 // prey per predator per day, predatory stages only
}

// AvgDuration is the midpoint of the stage's duration range in days.
func (st Stage) AvgDuration() float64 {
	return float64(st.MinDays+st.MaxDays) / 2
}

// Reproduction holds fecundity parameters.
type Reproduction struct {
	EggsPerBatchMin   int
	EggsPerBatchMax   int
	OvipositionEvents int
	MinReproductionAge int // days
}

// Sensitivity is the species' environmental response envelope.
type Sensitivity struct {
	OptTempMin  float64
	OptTempMax  float64
	OptHumidity float64
}

// FunctionalResponse parameterizes Holling Type II predation for predator
// species.
type FunctionalResponse struct {
	AttackRate   float64
	HandlingTime float64
	PreyGenus    string
}

// Params is the complete parameter set for one species. Stages is the total
// stage order; every stage except the last transitions into its successor.
type Params struct {
	ID           string
	Genus        string
	Stages       []Stage
	Reproduction Reproduction
	Sensitivity  Sensitivity
	FemaleRatio  float64
	MinViablePop float64
	Predation    *FunctionalResponse
}

// Validate rejects malformed parameter sets before any simulation step runs.
// All failures wrap ErrInvalidParameter.
func (p Params) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: species %s: %s", ErrInvalidParameter, p.ID, fmt.Sprintf(format, args...))
	}
	if p.ID == "" {
		return fmt.Errorf("%w: empty species id", ErrInvalidParameter)
	}
	if len(p.Stages) == 0 {
		return fail("no life stages")
	}
	seen := make(map[string]bool, len(p.Stages))
	for i, st := range p.Stages {
		if st.Name == "" {
			return fail("stage %d has no name", i)
		}
		if seen[st.Name] {
			return fail("duplicate stage %s", st.Name)
		}
		seen[st.Name] = true
		if st.MinDays <= 0 || st.MaxDays < st.MinDays {
			return fail("stage %s has invalid duration [%d, %d]", st.Name, st.MinDays, st.MaxDays)
		}
		if st.Survival < 0 || st.Survival > 1 {
			return fail("stage %s survival %.3f outside [0, 1]", st.Name, st.Survival)
		}
		if st.PredationRate < 0 {
			return fail("stage %s negative predation rate", st.Name)
		}
		terminal := i == len(p.Stages)-1
		if terminal && !st.DailySurvival {
			return fail("terminal stage %s must use daily survival", st.Name)
		}
	}
	r := p.Reproduction
	if r.EggsPerBatchMin < 0 || r.EggsPerBatchMax < r.EggsPerBatchMin {
		return fail("eggs per batch range [%d, %d] malformed", r.EggsPerBatchMin, r.EggsPerBatchMax)
	}
	if r.OvipositionEvents < 0 || r.MinReproductionAge < 0 {
		return fail("negative reproduction parameter")
	}
	if p.FemaleRatio < 0 || p.FemaleRatio > 1 {
		return fail("female ratio %.3f outside [0, 1]", p.FemaleRatio)
	}
	if p.MinViablePop < 0 {
		return fail("negative minimum viable population")
	}
	if p.Predation != nil {
		if p.Predation.AttackRate <= 0 || p.Predation.HandlingTime <= 0 {
			return fail("functional response parameters must be positive")
		}
	}
	return nil
}

// StageIndex returns the position of the named stage, or -1.
func (p Params) StageIndex(name string) int {
	for i, st := range p.Stages {
		if st.Name == name {
			return i
		}
	}
	return -1
}

// Stage returns the named stage, ok=false when undeclared.
func (p Params) Stage(name string) (Stage, bool) {
	if i := p.StageIndex(name); i >= 0 {
		return p.Stages[i], true
	}
	return Stage{}, false
}

// Successor returns the declared successor of a stage; ok=false for the
// terminal stage and unknown names.
func (p Params) Successor(name string) (string, bool) {
	i := p.StageIndex(name)
	if i < 0 || i == len(p.Stages)-1 {
		return "", false
	}
	return p.Stages[i+1].Name, true
}

// Terminal reports whether the named stage is the last in the chain.
func (p Params) Terminal(name string) bool {
	i := p.StageIndex(name)
	return i >= 0 && i == len(p.Stages)-1
}

// AdultStage returns the terminal stage name.
func (p Params) AdultStage() string {
	return p.Stages[len(p.Stages)-1].Name
}

// DailyFecundity is the expected eggs laid per adult per day, spread over the
// adult lifespan and weighted by the female ratio.
func (p Params) DailyFecundity() float64 {
	adult := p.Stages[len(p.Stages)-1]
	lifespan := adult.AvgDuration()
	if lifespan <= 0 {
		return 0
	}
	batch := float64(p.Reproduction.EggsPerBatchMin+p.Reproduction.EggsPerBatchMax) / 2
	total := batch * float64(p.Reproduction.OvipositionEvents)
	return total * p.FemaleRatio / lifespan
}

// Load validates the parameter set and asserts it into the store. Loading
// the same species twice replaces the previous facts (replace semantics on
// the parameter relations), so Load is idempotent.
func Load(s *facts.Store, p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	ins := func(rel string, args ...any) {
		// Schema and term types are fixed here; an insert failure is a
		// programming error, not a data error.
		if err := s.Insert(rel, args...); err != nil {
			panic(err)
		}
	}
	ins(facts.RelSpeciesGenus, p.ID, p.Genus)
	ins(facts.RelMinViablePop, p.ID, p.MinViablePop)
	for i, st := range p.Stages {
		ins(facts.RelStageDuration, p.ID, st.Name, st.MinDays, st.MaxDays)
		ins(facts.RelStageFlags, p.ID, st.Name, st.Predatory, st.Vulnerable)
		if i < len(p.Stages)-1 {
			next := p.Stages[i+1].Name
			ins(facts.RelStageSuccessor, p.ID, st.Name, next)
			ins(facts.RelSurvivalRate, p.ID, st.Name, next, st.Survival)
		} else {
			ins(facts.RelSurvivalRate, p.ID, st.Name, st.Name, st.Survival)
		}
		if st.Predatory && st.PredationRate > 0 {
			ins(facts.RelPredationRate, p.ID, st.Name, st.PredationRate)
		}
	}
	r := p.Reproduction
	ins(facts.RelFecundity, p.ID, r.EggsPerBatchMin, r.EggsPerBatchMax, r.OvipositionEvents, r.MinReproductionAge)
	ins(facts.RelEnvSensitivity, p.ID, p.Sensitivity.OptTempMin, p.Sensitivity.OptTempMax, p.Sensitivity.OptHumidity)
	if p.Predation != nil {
		ins(facts.RelFunctionalResponse, p.ID, p.Predation.AttackRate, p.Predation.HandlingTime)
	}
	return nil
}

// LoadEnvironmentalParam asserts a named environmental parameter, replacing
// any previous value.
func LoadEnvironmentalParam(s *facts.Store, name string, value float64) error {
	if value < 0 {
		return fmt.Errorf("%w: environmental parameter %s is negative", ErrInvalidParameter, name)
	}
	return s.Insert(facts.RelEnvironmentalParam, name, value)
}
