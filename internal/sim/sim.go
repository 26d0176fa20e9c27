// Package sim wires the environment model, population projection, and agent
// subsystem into a day-by-day run over one shared fact store.
package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/biosim/internal/agents"
	"github.com/talgya/biosim/internal/analysis"
	"github.com/talgya/biosim/internal/entropy"
	"github.com/talgya/biosim/internal/envmodel"
	"github.com/talgya/biosim/internal/facts"
	"github.com/talgya/biosim/internal/projection"
	"github.com/talgya/biosim/internal/species"
)

// Mode selects which layers run each day.
type Mode string

const (
	// ModePopulation projects stage cohorts only.
	ModePopulation Mode = "population"
	// ModeAgent steps individual agents only.
	ModeAgent Mode = "agent"
	// ModeHybrid projects cohorts and steps a sample of individual agents
	// whose perception is fed from the cohort counts.
	ModeHybrid Mode = "hybrid"
)

// Cohort seeds a stage population for the projection layer.
type Cohort struct {
	Species string
	Stage   string
	Count   float64
}

// AgentSeed spawns individual agents for the agent layer.
type AgentSeed struct {
	Species string
	Stage   string
	Count   int
}

// Config describes one run.
type Config struct {
	Mode    Mode
	Days    int
	Seed    int64
	Env     envmodel.Config
	Species []species.Params
	Cohorts []Cohort
	Agents  []AgentSeed

	// Recorder receives one snapshot per completed day; nil disables
	// recording.
	Recorder Recorder
}

// Recorder persists daily snapshots.
type Recorder interface {
	RecordDay(snapshot DaySnapshot) error
}

// DaySnapshot is the state handed to the recorder after each day.
type DaySnapshot struct {
	Day         int
	Temperature float64
	Humidity    float64
	Totals      map[string]float64 // species id → projected total
	AgentsAlive map[string]int     // species id → live agents
	Events      []Event
}

// Event is a notable occurrence during a run.
type Event struct {
	Day         int    `json:"day"`
	Description string `json:"description"`
	Category    string `json:"category"` // "death", "reproduction", "extinction"
}

// Summary aggregates a finished run.
type Summary struct {
	Mode        Mode
	Days        int
	FinalTotals map[string]float64
	AgentsAlive map[string]int
	Births      int
	Deaths      int
	Events      []Event
	Trends      map[string]string
	Risks       map[string]string
}

// Runner executes one configured simulation.
type Runner struct {
	cfg      Config
	store    *facts.Store
	env      *envmodel.Model
	proj     *projection.Projector
	agents   *agents.Subsystem
	analyzer *analysis.Analyzer
	events   []Event
	births   int
	deaths   int
}

// New validates the configuration and seeds the initial state.
func New(cfg Config) (*Runner, error) {
	switch cfg.Mode {
	case ModePopulation, ModeAgent, ModeHybrid:
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", species.ErrInvalidParameter, cfg.Mode)
	}
	if cfg.Days <= 0 {
		return nil, fmt.Errorf("%w: run length %d days", species.ErrInvalidParameter, cfg.Days)
	}
	if len(cfg.Species) == 0 {
		return nil, fmt.Errorf("%w: no species configured", species.ErrInvalidParameter)
	}
	if cfg.Env == (envmodel.Config{}) {
		cfg.Env = envmodel.DefaultConfig(cfg.Seed)
	}

	r := &Runner{
		cfg:   cfg,
		store: facts.NewSimulationStore(),
		env:   envmodel.New(cfg.Env),
	}
	r.analyzer = analysis.New(r.store)

	var err error
	if cfg.Mode != ModeAgent {
		if r.proj, err = projection.New(r.store, cfg.Species...); err != nil {
			return nil, err
		}
		for _, c := range cfg.Cohorts {
			if err := r.proj.Seed(c.Species, c.Stage, 0, c.Count); err != nil {
				return nil, err
			}
		}
	}
	if cfg.Mode != ModePopulation {
		rng := entropy.NewSource(cfg.Seed)
		if r.agents, err = agents.NewSubsystem(r.store, rng, cfg.Species...); err != nil {
			return nil, err
		}
		for _, a := range cfg.Agents {
			for i := 0; i < a.Count; i++ {
				if _, err := r.agents.Spawn(a.Species, a.Stage); err != nil {
					return nil, err
				}
			}
		}
	}
	return r, nil
}

// Store exposes the run's fact store for ad-hoc queries after Run.
func (r *Runner) Store() *facts.Store { return r.store }

// Run executes all configured days, checking for cancellation between days.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	slog.Info("simulation starting",
		"mode", r.cfg.Mode, "days", r.cfg.Days, "seed", r.cfg.Seed, "species", len(r.cfg.Species))

	ref := r.cfg.Species[0]
	for day := 0; day < r.cfg.Days; day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.env.Apply(r.store, day, day+1, ref); err != nil {
			return nil, err
		}
		if err := r.stepDay(day); err != nil {
			return nil, fmt.Errorf("day %d: %w", day, err)
		}
	}

	return r.summarize(), nil
}

func (r *Runner) stepDay(day int) error {
	temp, hum := r.env.Conditions(day)

	// Standing water for oviposition tracks humidity.
	if hum >= 60 {
		if err := r.store.Insert(facts.RelReproductionSite, true); err != nil {
			return err
		}
	} else {
		r.store.RemoveMatching(facts.RelReproductionSite, facts.Any)
	}

	if r.proj != nil {
		before := r.speciesTotals(day)
		if err := r.proj.AdvanceOneDay(day); err != nil {
			return err
		}
		r.recordExtinctions(day+1, before)
	}

	if r.agents != nil {
		r.feedPerception(day)
		decisions, err := r.agents.StepAll(day)
		if err != nil {
			return err
		}
		for _, d := range decisions {
			if len(d.Spawned) > 0 {
				r.births += len(d.Spawned)
				r.events = append(r.events, Event{
					Day:         day,
					Description: fmt.Sprintf("agent %s laid %d eggs", shortID(d.AgentID), len(d.Spawned)),
					Category:    "reproduction",
				})
			}
			if d.Died {
				r.deaths++
				r.events = append(r.events, Event{
					Day:         day,
					Description: fmt.Sprintf("agent %s died of %s", shortID(d.AgentID), d.Cause),
					Category:    "death",
				})
			}
		}
		r.agents.Cleanup()
	}

	snap := DaySnapshot{
		Day:         day,
		Temperature: temp,
		Humidity:    hum,
		Totals:      r.speciesTotals(day + 1),
		AgentsAlive: r.agentCounts(),
		Events:      r.eventsOn(day),
	}
	r.logDay(snap)

	if r.cfg.Recorder != nil {
		if err := r.cfg.Recorder.RecordDay(snap); err != nil {
			return fmt.Errorf("record day %d: %w", day, err)
		}
	}
	return nil
}

// feedPerception publishes cohort-level prey counts so predatory agents can
// hunt against the projected population. In pure agent mode prey counts come
// from live agents instead.
func (r *Runner) feedPerception(day int) {
	for _, p := range r.cfg.Species {
		if p.Predation == nil {
			continue
		}
		var prey float64
		for _, q := range r.cfg.Species {
			if q.Genus != p.Predation.PreyGenus || q.ID == p.ID {
				continue
			}
			if r.proj != nil {
				for _, st := range q.Stages {
					if st.Vulnerable {
						prey += r.proj.Count(q.ID, st.Name, day)
					}
				}
			} else {
				prey += float64(r.agents.AliveCount(q.ID))
			}
		}
		// Best effort: the relation is declared by the store constructor.
		if err := r.store.Insert(facts.RelPreyAvailable, p.ID, prey); err != nil {
			slog.Warn("prey perception update failed", "species", p.ID, "error", err)
		}
	}
}

func (r *Runner) recordExtinctions(day int, before map[string]float64) {
	for id, prev := range before {
		if prev >= 1 && r.proj.Total(id, day) < 1 {
			r.events = append(r.events, Event{
				Day:         day,
				Description: fmt.Sprintf("%s population collapsed", id),
				Category:    "extinction",
			})
		}
	}
}

func (r *Runner) speciesTotals(day int) map[string]float64 {
	totals := make(map[string]float64, len(r.cfg.Species))
	for _, p := range r.cfg.Species {
		if r.proj != nil {
			totals[p.ID] = r.proj.Total(p.ID, day)
		}
	}
	return totals
}

func (r *Runner) agentCounts() map[string]int {
	counts := make(map[string]int, len(r.cfg.Species))
	if r.agents == nil {
		return counts
	}
	for _, p := range r.cfg.Species {
		counts[p.ID] = r.agents.AliveCount(p.ID)
	}
	return counts
}

func (r *Runner) eventsOn(day int) []Event {
	var out []Event
	for _, e := range r.events {
		if e.Day == day {
			out = append(out, e)
		}
	}
	return out
}

func (r *Runner) logDay(snap DaySnapshot) {
	args := []any{
		"day", snap.Day,
		"temp", fmt.Sprintf("%.1f", snap.Temperature),
		"humidity", fmt.Sprintf("%.0f", snap.Humidity),
	}
	for id, n := range snap.Totals {
		args = append(args, "pop_"+id, fmt.Sprintf("%.0f", n))
	}
	for id, n := range snap.AgentsAlive {
		args = append(args, "agents_"+id, n)
	}
	slog.Info("daily report", args...)
}

func (r *Runner) summarize() *Summary {
	last := r.cfg.Days
	s := &Summary{
		Mode:        r.cfg.Mode,
		Days:        r.cfg.Days,
		FinalTotals: r.speciesTotals(last),
		AgentsAlive: r.agentCounts(),
		Births:      r.births,
		Deaths:      r.deaths,
		Events:      r.events,
		Trends:      make(map[string]string, len(r.cfg.Species)),
		Risks:       make(map[string]string, len(r.cfg.Species)),
	}
	for _, p := range r.cfg.Species {
		if r.proj != nil {
			s.Trends[p.ID] = r.analyzer.Trend(p.ID, last, analysis.RollingWindow)
			if risk, err := r.analyzer.ExtinctionRisk(p.ID, last); err == nil {
				s.Risks[p.ID] = risk
			}
		}
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
