package projection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/biosim/internal/facts"
	"github.com/talgya/biosim/internal/species"
)

// optimalEnv asserts environmental state inside both built-in species'
// optimal envelopes for days [0, days).
func optimalEnv(t *testing.T, s *facts.Store, days int) {
	t.Helper()
	for d := 0; d < days; d++ {
		require.NoError(t, s.Insert(facts.RelEnvironmentalState, d, 27.5, 80.0))
	}
}

func TestAdvanceRequiresEnvironmentalState(t *testing.T) {
	s := facts.NewSimulationStore()
	pr, err := New(s, species.AedesAegypti())
	require.NoError(t, err)

	err = pr.AdvanceOneDay(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSequence)
}

func TestNewRequiresSpecies(t *testing.T) {
	_, err := New(facts.NewSimulationStore())
	assert.ErrorIs(t, err, ErrConfigurationGap)
}

func TestSeedValidation(t *testing.T) {
	s := facts.NewSimulationStore()
	pr, err := New(s, species.AedesAegypti())
	require.NoError(t, err)

	assert.ErrorIs(t, pr.Seed("culex", "egg", 0, 10), ErrConfigurationGap)
	assert.ErrorIs(t, pr.Seed("aedes_aegypti", "nymph", 0, 10), species.ErrInvalidParameter)
	assert.ErrorIs(t, pr.Seed("aedes_aegypti", "egg", 0, -5), species.ErrInvalidParameter)
	assert.NoError(t, pr.Seed("aedes_aegypti", "egg", 0, 200))
}

func TestGrowthWithAdultsPresent(t *testing.T) {
	s := facts.NewSimulationStore()
	pr, err := New(s, species.AedesAegypti())
	require.NoError(t, err)
	optimalEnv(t, s, 10)

	require.NoError(t, pr.Seed("aedes_aegypti", "egg", 0, 200))
	require.NoError(t, pr.Seed("aedes_aegypti", "adult_female", 0, 50))

	prev := pr.Total("aedes_aegypti", 0)
	for day := 0; day < 5; day++ {
		require.NoError(t, pr.AdvanceOneDay(day))
		cur := pr.Total("aedes_aegypti", day+1)
		assert.Greater(t, cur, prev, "day %d", day+1)
		prev = cur
	}
}

func TestDecayWithoutAdults(t *testing.T) {
	s := facts.NewSimulationStore()
	pr, err := New(s, species.AedesAegypti())
	require.NoError(t, err)
	optimalEnv(t, s, 5)

	// Larvae with nobody reproducing: mortality only, strictly decreasing.
	require.NoError(t, pr.Seed("aedes_aegypti", "larva_l2", 0, 500))

	prev := pr.Total("aedes_aegypti", 0)
	for day := 0; day < 4; day++ {
		require.NoError(t, pr.AdvanceOneDay(day))
		cur := pr.Total("aedes_aegypti", day+1)
		assert.Less(t, cur, prev, "day %d", day+1)
		prev = cur
	}
}

func TestMaturationFlowsAlongChain(t *testing.T) {
	s := facts.NewSimulationStore()
	pr, err := New(s, species.AedesAegypti())
	require.NoError(t, err)
	optimalEnv(t, s, 3)

	require.NoError(t, pr.Seed("aedes_aegypti", "egg", 0, 100))
	require.NoError(t, pr.AdvanceOneDay(0))

	assert.Greater(t, pr.Count("aedes_aegypti", "larva_l1", 1), 0.0)
	assert.Less(t, pr.Count("aedes_aegypti", "egg", 1), 100.0)
	// No stage skipping.
	assert.Zero(t, pr.Count("aedes_aegypti", "larva_l2", 1))
	assert.Zero(t, pr.Count("aedes_aegypti", "adult_female", 1))
}

func TestTerminalStageDoesNotMature(t *testing.T) {
	s := facts.NewSimulationStore()
	pr, err := New(s, species.Toxorhynchites())
	require.NoError(t, err)
	optimalEnv(t, s, 2)

	require.NoError(t, pr.Seed("toxorhynchites", "adult", 0, 40))
	require.NoError(t, pr.AdvanceOneDay(0))

	// Adults decay by their daily survival and reproduce into eggs; nothing
	// flows out of the terminal stage into a phantom successor.
	assert.InDelta(t, 40*0.97, pr.Count("toxorhynchites", "adult", 1), 1e-9)
	assert.Greater(t, pr.Count("toxorhynchites", "egg", 1), 0.0)
	assert.Zero(t, pr.Count("toxorhynchites", "larva_l1", 1))
}

func TestPredationSuppressesPrey(t *testing.T) {
	env := func() (*Projector, *facts.Store) {
		s := facts.NewSimulationStore()
		pr, err := New(s, species.AedesAegypti(), species.Toxorhynchites())
		require.NoError(t, err)
		optimalEnv(t, s, 12)
		require.NoError(t, pr.Seed("aedes_aegypti", "larva_l2", 0, 1000))
		require.NoError(t, pr.Seed("aedes_aegypti", "larva_l3", 0, 1000))
		return pr, s
	}

	alone, _ := env()
	require.NoError(t, alone.ProjectTo(context.Background(), 0, 10))

	hunted, _ := env()
	require.NoError(t, hunted.Seed("toxorhynchites", "larva_l4", 0, 30))
	require.NoError(t, hunted.ProjectTo(context.Background(), 0, 10))

	assert.Less(t, hunted.Total("aedes_aegypti", 10), alone.Total("aedes_aegypti", 10))

	// Predation never drives a count negative.
	for _, st := range species.AedesAegypti().Stages {
		assert.GreaterOrEqual(t, hunted.Count("aedes_aegypti", st.Name, 10), 0.0, st.Name)
	}
}

func TestPredatorWithoutPreyIsHarmless(t *testing.T) {
	s := facts.NewSimulationStore()
	pr, err := New(s, species.AedesAegypti(), species.Toxorhynchites())
	require.NoError(t, err)
	optimalEnv(t, s, 3)

	require.NoError(t, pr.Seed("toxorhynchites", "larva_l3", 0, 50))
	require.NoError(t, pr.ProjectTo(context.Background(), 0, 2))

	assert.Zero(t, pr.Total("aedes_aegypti", 2))
	assert.Greater(t, pr.Total("toxorhynchites", 2), 0.0)
}

func TestHarshEnvironmentSlowsGrowth(t *testing.T) {
	run := func(temp, hum float64) float64 {
		s := facts.NewSimulationStore()
		pr, err := New(s, species.AedesAegypti())
		require.NoError(t, err)
		for d := 0; d < 8; d++ {
			require.NoError(t, s.Insert(facts.RelEnvironmentalState, d, temp, hum))
		}
		require.NoError(t, pr.Seed("aedes_aegypti", "egg", 0, 200))
		require.NoError(t, pr.Seed("aedes_aegypti", "adult_female", 0, 50))
		require.NoError(t, pr.ProjectTo(context.Background(), 0, 7))
		return pr.Total("aedes_aegypti", 7)
	}

	assert.Greater(t, run(27.5, 80), run(15, 40))
}

func TestProjectionIsDeterministic(t *testing.T) {
	run := func() float64 {
		s := facts.NewSimulationStore()
		pr, err := New(s, species.AedesAegypti(), species.Toxorhynchites())
		require.NoError(t, err)
		optimalEnv(t, s, 31)
		require.NoError(t, pr.Seed("aedes_aegypti", "egg", 0, 200))
		require.NoError(t, pr.Seed("aedes_aegypti", "adult_female", 0, 50))
		require.NoError(t, pr.Seed("toxorhynchites", "larva_l2", 0, 20))
		require.NoError(t, pr.ProjectTo(context.Background(), 0, 30))
		return pr.Total("aedes_aegypti", 30) + pr.Total("toxorhynchites", 30)
	}

	assert.Equal(t, run(), run())
}

func TestResetThenReplayReproducesTrajectory(t *testing.T) {
	s := facts.NewSimulationStore()
	pr, err := New(s, species.AedesAegypti(), species.Toxorhynchites())
	require.NoError(t, err)

	run := func() [][]float64 {
		optimalEnv(t, s, 11)
		require.NoError(t, pr.Seed("aedes_aegypti", "egg", 0, 200))
		require.NoError(t, pr.Seed("aedes_aegypti", "adult_female", 0, 50))
		require.NoError(t, pr.Seed("toxorhynchites", "larva_l3", 0, 20))
		require.NoError(t, pr.ProjectTo(context.Background(), 0, 10))

		traj := make([][]float64, 0, 11)
		for day := 0; day <= 10; day++ {
			var counts []float64
			for _, p := range pr.Species() {
				for _, st := range p.Stages {
					counts = append(counts, pr.Count(p.ID, st.Name, day))
				}
			}
			traj = append(traj, counts)
		}
		return traj
	}

	first := run()

	// Reset drops state but keeps the loaded parameters; replaying the same
	// seeds and environment must reproduce the trajectory exactly.
	s.Reset()
	assert.Equal(t, first, run())
}

func TestProjectionResumesFromStoredState(t *testing.T) {
	seed := func(pr *Projector, t *testing.T) {
		t.Helper()
		require.NoError(t, pr.Seed("aedes_aegypti", "egg", 0, 200))
		require.NoError(t, pr.Seed("aedes_aegypti", "adult_female", 0, 50))
	}

	s1 := facts.NewSimulationStore()
	pr1, err := New(s1, species.AedesAegypti())
	require.NoError(t, err)
	optimalEnv(t, s1, 11)
	seed(pr1, t)
	require.NoError(t, pr1.ProjectTo(context.Background(), 0, 10))

	s2 := facts.NewSimulationStore()
	pr2, err := New(s2, species.AedesAegypti())
	require.NoError(t, err)
	optimalEnv(t, s2, 11)
	seed(pr2, t)
	require.NoError(t, pr2.ProjectTo(context.Background(), 0, 5))

	// A fresh projector over the same store picks up where the first left off.
	pr3, err := New(s2, species.AedesAegypti())
	require.NoError(t, err)
	require.NoError(t, pr3.ProjectTo(context.Background(), 5, 10))

	for _, st := range species.AedesAegypti().Stages {
		assert.InDelta(t, pr1.Count("aedes_aegypti", st.Name, 10), pr3.Count("aedes_aegypti", st.Name, 10), 1e-9, st.Name)
	}
}

func TestProjectToHonorsCancellation(t *testing.T) {
	s := facts.NewSimulationStore()
	pr, err := New(s, species.AedesAegypti())
	require.NoError(t, err)
	optimalEnv(t, s, 100)
	require.NoError(t, pr.Seed("aedes_aegypti", "egg", 0, 100))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pr.ProjectTo(ctx, 0, 100), context.Canceled)
}

func TestProjectToRejectsBackwardsTarget(t *testing.T) {
	s := facts.NewSimulationStore()
	pr, err := New(s, species.AedesAegypti())
	require.NoError(t, err)
	assert.ErrorIs(t, pr.ProjectTo(context.Background(), 5, 3), ErrSequence)
}
