// Package agents runs individual insects through a daily
// perceive-decide-act-age cycle. Agent state lives in the fact store, so the
// analytical queries see agents and projected cohorts through the same
// relations.
package agents

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/biosim/internal/entropy"
	"github.com/talgya/biosim/internal/facts"
	"github.com/talgya/biosim/internal/species"
)

var (
	// ErrSequence marks stepping an agent without the current day's
	// environmental state in the store.
	ErrSequence = errors.New("sequence error")

	// ErrUnknownAgent marks operations on an agent id with no facts.
	ErrUnknownAgent = errors.New("unknown agent")
)

// Agent statuses and death causes stored in the agent_status relation.
const (
	StatusAlive = "alive"
	StatusDead  = "dead"

	CauseStarvation = "starvation"
	CauseOldAge     = "old_age"
	CausePredation  = "predation"
	CauseMortality  = "mortality"
)

// State is one agent's mutable state as read from the store.
type State struct {
	ID         string
	Species    string
	Stage      string
	Age        int
	Energy     float64
	Reproduced bool
	Status     string
	Cause      string
}

// Subsystem steps agents against a shared fact store.
type Subsystem struct {
	store *facts.Store
	specs map[string]species.Params
	order []string // registration order, for deterministic iteration
	rng   *entropy.Source
}

// NewSubsystem registers the species an agent may belong to. A nil rng gets
// an OS-seeded source.
func NewSubsystem(s *facts.Store, rng *entropy.Source, specs ...species.Params) (*Subsystem, error) {
	if rng == nil {
		rng = entropy.NewRandomSource()
	}
	sub := &Subsystem{store: s, specs: make(map[string]species.Params, len(specs)), rng: rng}
	for _, p := range specs {
		if err := species.Load(s, p); err != nil {
			return nil, err
		}
		sub.specs[p.ID] = p
	}
	return sub, nil
}

// Spawn creates a live agent of the given species and stage with full energy
// and age zero, returning its id.
func (sub *Subsystem) Spawn(speciesID, stage string) (string, error) {
	return sub.Introduce(speciesID, stage, 0, maxEnergy)
}

// Introduce creates a live agent mid-life, for releasing individuals that did
// not hatch in this run. Age must be non-negative and energy within [0, 100].
func (sub *Subsystem) Introduce(speciesID, stage string, age int, energy float64) (string, error) {
	p, ok := sub.specs[speciesID]
	if !ok {
		return "", fmt.Errorf("%w: species %s not registered", species.ErrInvalidParameter, speciesID)
	}
	if _, ok := p.Stage(stage); !ok {
		return "", fmt.Errorf("%w: species %s has no stage %s", species.ErrInvalidParameter, speciesID, stage)
	}
	if age < 0 {
		return "", fmt.Errorf("%w: negative age %d", species.ErrInvalidParameter, age)
	}
	if energy < 0 || energy > maxEnergy {
		return "", fmt.Errorf("%w: energy %v outside [0, %v]", species.ErrInvalidParameter, energy, maxEnergy)
	}
	id := uuid.NewString()
	if err := sub.writeState(State{ID: id, Species: speciesID, Stage: stage, Age: age, Energy: energy, Status: StatusAlive}); err != nil {
		return "", err
	}
	sub.order = append(sub.order, id)
	return id, nil
}

// Lookup reads one agent's state from the store.
func (sub *Subsystem) Lookup(id string) (State, error) {
	sp, ok := sub.store.QueryOne(facts.RelAgentSpecies, id, facts.Var("S"))
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}
	st, ok := sub.store.QueryOne(facts.RelAgentState, id, facts.Var("Stage"), facts.Var("Age"), facts.Var("Energy"), facts.Var("Rep"))
	if !ok {
		return State{}, fmt.Errorf("%w: %s has no state", ErrUnknownAgent, id)
	}
	a := State{
		ID:         id,
		Species:    sp.String("S"),
		Stage:      st.String("Stage"),
		Age:        st.Int("Age"),
		Energy:     st.Float("Energy"),
		Reproduced: st.Bool("Rep"),
		Status:     StatusAlive,
	}
	if b, ok := sub.store.QueryOne(facts.RelAgentStatus, id, facts.Var("Status"), facts.Var("Cause")); ok {
		a.Status = b.String("Status")
		a.Cause = b.String("Cause")
	}
	return a, nil
}

// Remove kills an agent with the given cause. Its facts stay in the store
// until Cleanup.
func (sub *Subsystem) Remove(id, cause string) error {
	a, err := sub.Lookup(id)
	if err != nil {
		return err
	}
	a.Status, a.Cause = StatusDead, cause
	return sub.writeState(a)
}

// Cleanup drops all facts of dead agents and returns how many were removed.
func (sub *Subsystem) Cleanup() int {
	removed := 0
	kept := sub.order[:0]
	for _, id := range sub.order {
		b, ok := sub.store.QueryOne(facts.RelAgentStatus, id, facts.Var("Status"), facts.Any)
		if ok && b.String("Status") == StatusDead {
			sub.store.RemoveMatching(facts.RelAgentSpecies, id)
			sub.store.RemoveMatching(facts.RelAgentState, id)
			sub.store.RemoveMatching(facts.RelAgentStatus, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	sub.order = kept
	return removed
}

// AliveCount returns the number of live agents, optionally restricted to one
// species (empty string counts all).
func (sub *Subsystem) AliveCount(speciesID string) int {
	n := 0
	for _, id := range sub.order {
		a, err := sub.Lookup(id)
		if err != nil || a.Status != StatusAlive {
			continue
		}
		if speciesID == "" || a.Species == speciesID {
			n++
		}
	}
	return n
}

// Agents returns the ids of all registered agents in spawn order, dead ones
// included until Cleanup.
func (sub *Subsystem) Agents() []string {
	out := make([]string, len(sub.order))
	copy(out, sub.order)
	return out
}

func (sub *Subsystem) writeState(a State) error {
	if err := sub.store.Insert(facts.RelAgentSpecies, a.ID, a.Species); err != nil {
		return err
	}
	if err := sub.store.Insert(facts.RelAgentState, a.ID, a.Stage, a.Age, a.Energy, a.Reproduced); err != nil {
		return err
	}
	return sub.store.Insert(facts.RelAgentStatus, a.ID, a.Status, a.Cause)
}
