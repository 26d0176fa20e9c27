package species

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/biosim/internal/facts"
)

func TestBuiltinParamsValidate(t *testing.T) {
	require.NoError(t, AedesAegypti().Validate())
	require.NoError(t, Toxorhynchites().Validate())
}

func TestValidateRejectsMalformedParams(t *testing.T) {
	for name, mutate := range map[string]func(*Params){
		"empty id":           func(p *Params) { p.ID = "" },
		"no stages":          func(p *Params) { p.Stages = nil },
		"duplicate stage":    func(p *Params) { p.Stages[1].Name = p.Stages[0].Name },
		"inverted duration":  func(p *Params) { p.Stages[0].MinDays = 5; p.Stages[0].MaxDays = 2 },
		"zero duration":      func(p *Params) { p.Stages[0].MinDays = 0 },
		"survival above one": func(p *Params) { p.Stages[2].Survival = 1.2 },
		"negative survival":  func(p *Params) { p.Stages[2].Survival = -0.1 },
		"terminal not daily": func(p *Params) { p.Stages[len(p.Stages)-1].DailySurvival = false },
		"inverted egg range": func(p *Params) { p.Reproduction.EggsPerBatchMax = p.Reproduction.EggsPerBatchMin - 1 },
		"negative min age":   func(p *Params) { p.Reproduction.MinReproductionAge = -1 },
		"female ratio >1":    func(p *Params) { p.FemaleRatio = 1.5 },
		"negative mvp":       func(p *Params) { p.MinViablePop = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			p := AedesAegypti()
			mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestValidateRejectsBadFunctionalResponse(t *testing.T) {
	p := Toxorhynchites()
	p.Predation.AttackRate = 0
	assert.ErrorIs(t, p.Validate(), ErrInvalidParameter)
}

func TestStageChainAccessors(t *testing.T) {
	p := AedesAegypti()

	next, ok := p.Successor("egg")
	require.True(t, ok)
	assert.Equal(t, "larva_l1", next)

	next, ok = p.Successor("pupa")
	require.True(t, ok)
	assert.Equal(t, "adult_female", next)

	_, ok = p.Successor("adult_female")
	assert.False(t, ok)
	_, ok = p.Successor("nymph")
	assert.False(t, ok)

	assert.True(t, p.Terminal("adult_female"))
	assert.False(t, p.Terminal("pupa"))
	assert.Equal(t, "adult_female", p.AdultStage())
}

func TestDailyFecundity(t *testing.T) {
	p := AedesAegypti()

	// 115 avg eggs × 3 events × 0.5 female ratio over a 22-day adult span.
	assert.InDelta(t, 115.0*3*0.5/22, p.DailyFecundity(), 1e-9)
}

func TestLoadAssertsKnowledgeBase(t *testing.T) {
	s := facts.NewSimulationStore()
	require.NoError(t, Load(s, AedesAegypti()))

	b, ok := s.QueryOne(facts.RelStageSuccessor, "aedes_aegypti", "pupa", facts.Var("Next"))
	require.True(t, ok)
	assert.Equal(t, "adult_female", b.String("Next"))

	b, ok = s.QueryOne(facts.RelSurvivalRate, "aedes_aegypti", "egg", "larva_l1", facts.Var("R"))
	require.True(t, ok)
	assert.InDelta(t, 0.75, b.Float("R"), 1e-12)

	// Terminal stage survival is stored as a self loop.
	b, ok = s.QueryOne(facts.RelSurvivalRate, "aedes_aegypti", "adult_female", "adult_female", facts.Var("R"))
	require.True(t, ok)
	assert.InDelta(t, 0.95, b.Float("R"), 1e-12)

	b, ok = s.QueryOne(facts.RelFecundity, "aedes_aegypti", facts.Var("Min"), facts.Var("Max"), facts.Var("Events"), facts.Var("Age"))
	require.True(t, ok)
	assert.Equal(t, 80, b.Int("Min"))
	assert.Equal(t, 150, b.Int("Max"))
	assert.Equal(t, 3, b.Int("Events"))
	assert.Equal(t, 3, b.Int("Age"))

	b, ok = s.QueryOne(facts.RelSpeciesGenus, "aedes_aegypti", facts.Var("G"))
	require.True(t, ok)
	assert.Equal(t, "aedes", b.String("G"))

	// Vector species carries no functional response.
	_, ok = s.QueryOne(facts.RelFunctionalResponse, "aedes_aegypti", facts.Any, facts.Any)
	assert.False(t, ok)
}

func TestLoadPredatorFacts(t *testing.T) {
	s := facts.NewSimulationStore()
	require.NoError(t, Load(s, Toxorhynchites()))

	b, ok := s.QueryOne(facts.RelFunctionalResponse, "toxorhynchites", facts.Var("A"), facts.Var("H"))
	require.True(t, ok)
	assert.InDelta(t, 0.5, b.Float("A"), 1e-12)
	assert.InDelta(t, 0.1, b.Float("H"), 1e-12)

	b, ok = s.QueryOne(facts.RelPredationRate, "toxorhynchites", "larva_l4", facts.Var("R"))
	require.True(t, ok)
	assert.InDelta(t, 15, b.Float("R"), 1e-12)

	// Non-predatory stages carry no predation rate.
	_, ok = s.QueryOne(facts.RelPredationRate, "toxorhynchites", "pupa", facts.Any)
	assert.False(t, ok)
}

func TestLoadIsIdempotent(t *testing.T) {
	s := facts.NewSimulationStore()
	require.NoError(t, Load(s, AedesAegypti()))
	before := s.Count(facts.RelSurvivalRate, "aedes_aegypti")
	require.NoError(t, Load(s, AedesAegypti()))
	assert.Equal(t, before, s.Count(facts.RelSurvivalRate, "aedes_aegypti"))
}

func TestLoadRejectsInvalidParams(t *testing.T) {
	s := facts.NewSimulationStore()
	p := AedesAegypti()
	p.FemaleRatio = 2
	err := Load(s, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.Zero(t, s.Count(facts.RelStageDuration, p.ID))
}

func TestLoadEnvironmentalParam(t *testing.T) {
	s := facts.NewSimulationStore()
	require.NoError(t, LoadEnvironmentalParam(s, "carrying_capacity", 10000))
	require.NoError(t, LoadEnvironmentalParam(s, "carrying_capacity", 8000))

	b, ok := s.QueryOne(facts.RelEnvironmentalParam, "carrying_capacity", facts.Var("V"))
	require.True(t, ok)
	assert.InDelta(t, 8000, b.Float("V"), 1e-12)

	assert.ErrorIs(t, LoadEnvironmentalParam(s, "carrying_capacity", -1), ErrInvalidParameter)
}