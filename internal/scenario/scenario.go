// Package scenario loads run configurations from YAML files.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/biosim/internal/envmodel"
	"github.com/talgya/biosim/internal/sim"
	"github.com/talgya/biosim/internal/species"
)

// file is the YAML shape of a scenario.
type file struct {
	Mode        string   `yaml:"mode"`
	Days        int      `yaml:"days"`
	Seed        int64    `yaml:"seed"`
	Species     []string `yaml:"species"`
	Environment struct {
		BaseTemp      *float64 `yaml:"base_temp"`
		TempSwing     *float64 `yaml:"temp_swing"`
		BaseHumidity  *float64 `yaml:"base_humidity"`
		HumiditySwing *float64 `yaml:"humidity_swing"`
		BaseCapacity  *float64 `yaml:"base_capacity"`
	} `yaml:"environment"`
	Cohorts []struct {
		Species string  `yaml:"species"`
		Stage   string  `yaml:"stage"`
		Count   float64 `yaml:"count"`
	} `yaml:"cohorts"`
	Agents []struct {
		Species string `yaml:"species"`
		Stage   string `yaml:"stage"`
		Count   int    `yaml:"count"`
	} `yaml:"agents"`
}

// builtins maps scenario species names to their parameter sets.
var builtins = map[string]func() species.Params{
	"aedes_aegypti":  species.AedesAegypti,
	"toxorhynchites": species.Toxorhynchites,
}

// Load reads a scenario file into a run configuration.
func Load(path string) (sim.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sim.Config{}, fmt.Errorf("read scenario: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return sim.Config{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes scenario YAML and fills in defaults: population mode, 30
// days, both built-in species.
func Parse(data []byte) (sim.Config, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return sim.Config{}, fmt.Errorf("parse yaml: %w", err)
	}

	cfg := sim.Config{
		Mode: sim.Mode(f.Mode),
		Days: f.Days,
		Seed: f.Seed,
	}
	if cfg.Mode == "" {
		cfg.Mode = sim.ModePopulation
	}
	if cfg.Days == 0 {
		cfg.Days = 30
	}

	names := f.Species
	if len(names) == 0 {
		names = []string{"aedes_aegypti", "toxorhynchites"}
	}
	for _, name := range names {
		builtin, ok := builtins[name]
		if !ok {
			return sim.Config{}, fmt.Errorf("%w: unknown species %q", species.ErrInvalidParameter, name)
		}
		cfg.Species = append(cfg.Species, builtin())
	}

	env := envmodel.DefaultConfig(cfg.Seed)
	if f.Environment.BaseTemp != nil {
		env.BaseTemp = *f.Environment.BaseTemp
	}
	if f.Environment.TempSwing != nil {
		env.TempSwing = *f.Environment.TempSwing
	}
	if f.Environment.BaseHumidity != nil {
		env.BaseHumidity = *f.Environment.BaseHumidity
	}
	if f.Environment.HumiditySwing != nil {
		env.HumiditySwing = *f.Environment.HumiditySwing
	}
	if f.Environment.BaseCapacity != nil {
		env.BaseCapacity = *f.Environment.BaseCapacity
	}
	cfg.Env = env

	for _, c := range f.Cohorts {
		cfg.Cohorts = append(cfg.Cohorts, sim.Cohort{Species: c.Species, Stage: c.Stage, Count: c.Count})
	}
	for _, a := range f.Agents {
		cfg.Agents = append(cfg.Agents, sim.AgentSeed{Species: a.Species, Stage: a.Stage, Count: a.Count})
	}
	return cfg, nil
}
