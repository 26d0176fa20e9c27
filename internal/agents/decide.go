package agents

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/biosim/internal/facts"
	"github.com/talgya/biosim/internal/rules"
	"github.com/talgya/biosim/internal/species"
)

// Action is one of the daily behaviors an agent can take.
type Action string

// Actions in tie-break order: when two actions score the same utility the
// earlier one wins.
const (
	ActionOviposit Action = "oviposit"
	ActionFeed     Action = "feed"
	ActionHunt     Action = "hunt"
	ActionGrow     Action = "grow"
	ActionRest     Action = "rest"
)

// Candidate sets by role. Vectors develop by age (see StepAgent) rather than
// through an explicit grow action; predators metamorphose when fed enough.
var (
	vectorActions   = []Action{ActionOviposit, ActionFeed, ActionRest}
	predatorActions = []Action{ActionHunt, ActionGrow, ActionRest}
)

// Energy economy. Utility is benefit minus cost plus a tenth of current
// energy, so well-fed agents favor expensive actions.
const (
	maxEnergy = 100.0

	agingDrain = 2.0 // energy lost per day regardless of action

	feedGain        = 40.0
	huntGainPerPrey = 25.0
	restGainVector  = 3.0
	restGainHunter  = 2.0

	ovipositMinHumidity = 60.0
	feedSatiation       = 95.0
	growMinEnergy       = 60.0
)

var actionCost = map[Action]float64{
	ActionOviposit: 20,
	ActionFeed:     10,
	ActionHunt:     15,
	ActionGrow:     5,
	ActionRest:     1,
}

var actionBenefit = map[Action]float64{
	ActionOviposit: 60,
	ActionFeed:     30,
	ActionHunt:     40,
	ActionGrow:     25,
	ActionRest:     5,
}

// Utility scores an action for an agent at its current energy level.
func Utility(a Action, energy float64) float64 {
	return actionBenefit[a] - actionCost[a] + 0.1*energy
}

// Decision records what one agent did on one day.
type Decision struct {
	AgentID string
	Action  Action
	Utility float64
	Spawned []string // egg agent ids from an oviposition
	Died    bool
	Cause   string
}

// perception is the slice of the world an agent sees before deciding.
type perception struct {
	humidity    float64
	siteFree    bool
	preyNearby  float64
	predatory   bool
	terminal    bool
	minReproAge int
}

// StepAgent runs one agent through perceive, decide, act, and age for the
// given day. Dead agents are returned unchanged with Died already set.
func (sub *Subsystem) StepAgent(id string, day int) (Decision, error) {
	a, err := sub.Lookup(id)
	if err != nil {
		return Decision{}, err
	}
	if a.Status == StatusDead {
		return Decision{AgentID: id, Died: true, Cause: a.Cause}, nil
	}

	env, ok := sub.store.QueryOne(facts.RelEnvironmentalState, day, facts.Var("T"), facts.Var("H"))
	if !ok {
		return Decision{}, fmt.Errorf("%w: no environmental state for day %d", ErrSequence, day)
	}
	temp, hum := env.Float("T"), env.Float("H")

	p := sub.specs[a.Species]
	stage, _ := p.Stage(a.Stage)

	per := perception{
		humidity:    hum,
		predatory:   stage.Predatory,
		terminal:    p.Terminal(a.Stage),
		minReproAge: p.Reproduction.MinReproductionAge,
	}
	if _, ok := sub.store.QueryOne(facts.RelReproductionSite, true); ok {
		per.siteFree = true
	}
	if b, ok := sub.store.QueryOne(facts.RelPreyAvailable, a.Species, facts.Var("N")); ok {
		per.preyNearby = b.Float("N")
	}

	action := sub.decide(a, per)
	d := Decision{AgentID: id, Action: action, Utility: Utility(action, a.Energy)}
	if err := sub.act(&a, action, &d); err != nil {
		return Decision{}, err
	}

	// Aging happens after the action. Energy exhaustion, outliving the
	// terminal stage, and the stage's stochastic daily survival all kill.
	// Vector agents mature by age alone.
	a.Age++
	a.Energy -= agingDrain
	if p.Predation == nil {
		matureByAge(&a, p)
	}
	cur, known := p.Stage(a.Stage)
	switch {
	case a.Energy <= 0:
		a.Energy = 0
		a.Status, a.Cause = StatusDead, CauseStarvation
	case known && p.Terminal(a.Stage) && a.Age > cur.MaxDays:
		a.Status, a.Cause = StatusDead, CauseOldAge
	case known && sub.rng.Float() >= dailySurvival(cur, p.Sensitivity, temp, hum):
		a.Status, a.Cause = StatusDead, CauseMortality
	}
	if a.Status == StatusDead {
		d.Died, d.Cause = true, a.Cause
		slog.Debug("agent died", "agent", id, "species", a.Species, "cause", a.Cause, "age", a.Age)
	}

	if err := sub.writeState(a); err != nil {
		return Decision{}, err
	}
	return d, nil
}

// StepAll steps every live agent in spawn order. Agents spawned during the
// day (eggs) are not stepped until the next call.
func (sub *Subsystem) StepAll(day int) ([]Decision, error) {
	ids := sub.Agents()
	out := make([]Decision, 0, len(ids))
	for _, id := range ids {
		a, err := sub.Lookup(id)
		if err != nil || a.Status != StatusAlive {
			continue
		}
		d, err := sub.StepAgent(id, day)
		if err != nil {
			return out, err
		}
		out = append(out, d)
	}
	return out, nil
}

// decide picks the feasible candidate with the highest utility, ties going
// to the earliest declared action. Rest is always feasible.
func (sub *Subsystem) decide(a State, per perception) Action {
	candidates := vectorActions
	if sub.specs[a.Species].Predation != nil {
		candidates = predatorActions
	}
	best := ActionRest
	bestScore := math.Inf(-1)
	for _, act := range candidates {
		if !sub.feasible(a, per, act) {
			continue
		}
		if score := Utility(act, a.Energy); score > bestScore {
			best, bestScore = act, score
		}
	}
	return best
}

func (sub *Subsystem) feasible(a State, per perception, act Action) bool {
	if act != ActionRest && a.Energy < actionCost[act] {
		return false
	}
	switch act {
	case ActionOviposit:
		return per.terminal && !a.Reproduced && a.Age >= per.minReproAge &&
			per.humidity >= ovipositMinHumidity && per.siteFree
	case ActionFeed:
		return a.Energy < feedSatiation
	case ActionHunt:
		return per.predatory && per.preyNearby > 0
	case ActionGrow:
		return !per.terminal && a.Energy >= growMinEnergy
	case ActionRest:
		return true
	}
	return false
}

func (sub *Subsystem) act(a *State, act Action, d *Decision) error {
	p := sub.specs[a.Species]
	a.Energy -= actionCost[act]

	switch act {
	case ActionOviposit:
		batch := sub.rng.IntBetween(p.Reproduction.EggsPerBatchMin, p.Reproduction.EggsPerBatchMax)
		for i := 0; i < batch; i++ {
			id, err := sub.Spawn(a.Species, p.Stages[0].Name)
			if err != nil {
				return err
			}
			d.Spawned = append(d.Spawned, id)
		}
		a.Reproduced = true
		slog.Debug("oviposition", "agent", a.ID, "species", a.Species, "eggs", batch)

	case ActionFeed:
		a.Energy += feedGain

	case ActionHunt:
		st, _ := p.Stage(a.Stage)
		victims := 0
		if b, ok := sub.store.QueryOne(facts.RelPreyAvailable, a.Species, facts.Var("N")); ok {
			avail := b.Float("N")
			// One predator's daily intake follows the functional response,
			// capped by the stage's per-predator rate.
			intake := rules.HollingConsumption(1, p.Predation.AttackRate, p.Predation.HandlingTime, avail, st.PredationRate)
			limit := int(intake)
			if limit < 1 {
				limit = 1
			}
			victims = sub.rng.IntBetween(1, limit)
			if v := int(avail); victims > v {
				victims = v
			}
			if err := sub.store.Insert(facts.RelPreyAvailable, a.Species, math.Max(0, avail-float64(victims))); err != nil {
				return err
			}
		}
		a.Energy += huntGainPerPrey * float64(victims)

	case ActionGrow:
		next, ok := p.Successor(a.Stage)
		if !ok {
			return fmt.Errorf("%w: %s cannot grow past %s", ErrSequence, a.ID, a.Stage)
		}
		a.Stage = next

	case ActionRest:
		if p.Predation != nil {
			a.Energy += restGainHunter
		} else {
			a.Energy += restGainVector
		}
	}

	if a.Energy > maxEnergy {
		a.Energy = maxEnergy
	}
	return nil
}

// dailySurvival is the probability an agent survives one day in its current
// stage, the same environment-adjusted rate the cohort projection uses.
func dailySurvival(st species.Stage, sens species.Sensitivity, temp, hum float64) float64 {
	tf := rules.TemperatureFactor(sens.OptTempMin, sens.OptTempMax, temp)
	hf := rules.HumidityFactor(sens.OptHumidity, hum)
	eff := rules.EffectiveSurvival(st.Survival, tf, hf)
	if st.DailySurvival {
		return eff
	}
	return math.Pow(eff, 1/st.AvgDuration())
}

// matureByAge advances a vector agent along its stage chain once its age
// passes the cumulative average duration of the stages before it.
func matureByAge(a *State, p species.Params) {
	i := p.StageIndex(a.Stage)
	if i < 0 || i == len(p.Stages)-1 {
		return
	}
	var boundary float64
	for j := 0; j <= i; j++ {
		boundary += p.Stages[j].AvgDuration()
	}
	if float64(a.Age) >= boundary {
		a.Stage = p.Stages[i+1].Name
	}
}
