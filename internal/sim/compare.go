package sim

import (
	"context"
	"fmt"
	"log/slog"
)

// Comparison contrasts a run that includes predator species against the same
// run without them.
type Comparison struct {
	Baseline    *Summary // prey only
	Treatment   *Summary // prey plus predators
	Prey        string
	Suppression float64 // fraction of final prey population removed by predators
}

// Compare runs the configuration twice, once with every predator species
// stripped out, and measures how much the predators suppressed the prey.
func Compare(ctx context.Context, cfg Config) (*Comparison, error) {
	var preyID string
	baseline := cfg
	baseline.Species = nil
	baseline.Cohorts = nil
	baseline.Agents = nil
	baseline.Recorder = nil

	predatorIDs := make(map[string]bool)
	for _, p := range cfg.Species {
		if p.Predation != nil {
			predatorIDs[p.ID] = true
			continue
		}
		if preyID == "" {
			preyID = p.ID
		}
		baseline.Species = append(baseline.Species, p)
	}
	if preyID == "" || len(predatorIDs) == 0 {
		return nil, fmt.Errorf("comparison needs at least one prey and one predator species")
	}
	for _, c := range cfg.Cohorts {
		if !predatorIDs[c.Species] {
			baseline.Cohorts = append(baseline.Cohorts, c)
		}
	}
	for _, a := range cfg.Agents {
		if !predatorIDs[a.Species] {
			baseline.Agents = append(baseline.Agents, a)
		}
	}

	base, err := runOnce(ctx, baseline)
	if err != nil {
		return nil, fmt.Errorf("baseline run: %w", err)
	}
	treat, err := runOnce(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("treatment run: %w", err)
	}

	cmp := &Comparison{Baseline: base, Treatment: treat, Prey: preyID}
	if withOut := base.FinalTotals[preyID]; withOut > 0 {
		cmp.Suppression = 1 - treat.FinalTotals[preyID]/withOut
	}
	slog.Info("comparison finished",
		"prey", preyID,
		"baseline_final", fmt.Sprintf("%.0f", base.FinalTotals[preyID]),
		"treatment_final", fmt.Sprintf("%.0f", treat.FinalTotals[preyID]),
		"suppression", fmt.Sprintf("%.1f%%", cmp.Suppression*100))
	return cmp, nil
}

func runOnce(ctx context.Context, cfg Config) (*Summary, error) {
	r, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx)
}
