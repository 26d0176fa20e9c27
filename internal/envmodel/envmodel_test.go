package envmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/biosim/internal/facts"
	"github.com/talgya/biosim/internal/species"
)

func TestConditionsStayInBounds(t *testing.T) {
	cfg := DefaultConfig(3)
	cfg.TempSwing = 50 // force the clamps to bind
	cfg.HumiditySwing = 200
	m := New(cfg)

	for day := 0; day < 365; day++ {
		temp, hum := m.Conditions(day)
		assert.GreaterOrEqual(t, temp, minTemp)
		assert.LessOrEqual(t, temp, maxTemp)
		assert.GreaterOrEqual(t, hum, minHumidity)
		assert.LessOrEqual(t, hum, maxHumidity)
	}
}

func TestConditionsAreSeededAndSmooth(t *testing.T) {
	a := New(DefaultConfig(11))
	b := New(DefaultConfig(11))
	c := New(DefaultConfig(12))

	sameSeedMatch := true
	diffSeedMatch := true
	for day := 0; day < 60; day++ {
		at, ah := a.Conditions(day)
		bt, bh := b.Conditions(day)
		ct, _ := c.Conditions(day)
		if at != bt || ah != bh {
			sameSeedMatch = false
		}
		if at != ct {
			diffSeedMatch = false
		}

		// Day-to-day swings stay gentle relative to the configured range.
		if day > 0 {
			prev, _ := a.Conditions(day - 1)
			assert.Less(t, abs(at-prev), 4.0, "day %d", day)
		}
	}
	assert.True(t, sameSeedMatch)
	assert.False(t, diffSeedMatch)
}

func TestCarryingCapacityShrinksOffOptimum(t *testing.T) {
	m := New(DefaultConfig(5))
	p := species.AedesAegypti()

	for day := 0; day < 30; day++ {
		capacity := m.CarryingCapacity(p, day)
		assert.Greater(t, capacity, 0.0)
		assert.LessOrEqual(t, capacity, m.cfg.BaseCapacity)
	}

	// A hostile climate always yields less capacity than the default one.
	cold := DefaultConfig(5)
	cold.BaseTemp = 12
	cold.TempSwing = 0
	cold.BaseHumidity = 40
	cold.HumiditySwing = 0
	assert.Less(t, New(cold).CarryingCapacity(p, 0), m.cfg.BaseCapacity*0.51)
}

func TestApplyAssertsEnvironmentFacts(t *testing.T) {
	s := facts.NewSimulationStore()
	m := New(DefaultConfig(9))

	require.NoError(t, m.Apply(s, 0, 30, species.AedesAegypti()))

	assert.Equal(t, 30, s.Count(facts.RelEnvironmentalState, facts.Any, facts.Any, facts.Any))
	b, ok := s.QueryOne(facts.RelEnvironmentalState, 12, facts.Var("T"), facts.Var("H"))
	require.True(t, ok)
	temp, hum := m.Conditions(12)
	assert.Equal(t, temp, b.Float("T"))
	assert.Equal(t, hum, b.Float("H"))

	_, ok = s.QueryOne(facts.RelEnvironmentalParam, "carrying_capacity", facts.Any)
	assert.True(t, ok)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
