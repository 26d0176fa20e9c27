// Command biosim runs mosquito biocontrol simulations: a vector species
// projected against a predator release, with results stored in SQLite.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/biosim/internal/persistence"
	"github.com/talgya/biosim/internal/scenario"
	"github.com/talgya/biosim/internal/sim"
)

var (
	flagVerbose  bool
	flagDB       string
	flagScenario string
	flagMode     string
	flagDays     int
	flagSeed     int64
	flagRecord   bool
)

func main() {
	root := &cobra.Command{
		Use:   "biosim",
		Short: "Stage-structured mosquito biocontrol simulator",
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelInfo
			if flagVerbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&flagDB, "db", "data/biosim.db", "path to the run database")

	root.AddCommand(runCmd(), compareCmd(), queryCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagScenario, "scenario", "s", "", "scenario YAML file")
	cmd.Flags().StringVarP(&flagMode, "mode", "m", "", "population, agent, or hybrid")
	cmd.Flags().IntVarP(&flagDays, "days", "d", 0, "days to simulate")
	cmd.Flags().Int64Var(&flagSeed, "seed", 42, "random seed")
}

// buildConfig resolves the scenario file and flag overrides into a run
// configuration.
func buildConfig() (sim.Config, error) {
	var cfg sim.Config
	var err error
	if flagScenario != "" {
		cfg, err = scenario.Load(flagScenario)
	} else {
		cfg, err = scenario.Parse(defaultScenario)
	}
	if err != nil {
		return sim.Config{}, err
	}
	if flagMode != "" {
		cfg.Mode = sim.Mode(flagMode)
	}
	if flagDays > 0 {
		cfg.Days = flagDays
	}
	if cfg.Seed == 0 || flagSeed != 42 {
		cfg.Seed = flagSeed
	}
	return cfg, nil
}

// defaultScenario is used when no scenario file is given: a vector
// infestation with a modest predator release.
var defaultScenario = []byte(`
mode: population
days: 60
seed: 42
cohorts:
  - {species: aedes_aegypti, stage: egg, count: 200}
  - {species: aedes_aegypti, stage: adult_female, count: 50}
  - {species: toxorhynchites, stage: larva_l3, count: 30}
`)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig()
			if err != nil {
				return err
			}

			if flagRecord {
				os.MkdirAll(filepath.Dir(flagDB), 0755)
				db, err := persistence.Open(flagDB)
				if err != nil {
					return err
				}
				defer db.Close()
				rec, err := db.NewRun(cfg.Mode, cfg.Days, cfg.Seed)
				if err != nil {
					return err
				}
				cfg.Recorder = rec
				defer fmt.Printf("recorded as run %d in %s\n", rec.RunID(), flagDB)
			}

			runner, err := sim.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := runner.Run(ctx)
			if err != nil {
				return err
			}
			printSummary(summary)
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().BoolVar(&flagRecord, "record", false, "store daily snapshots in the run database")
	return cmd
}

func compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run with and without predators and measure suppression",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cmp, err := sim.Compare(ctx, cfg)
			if err != nil {
				return err
			}

			fmt.Printf("prey species:      %s\n", cmp.Prey)
			fmt.Printf("without predators: %s\n", humanize.Comma(int64(cmp.Baseline.FinalTotals[cmp.Prey])))
			fmt.Printf("with predators:    %s\n", humanize.Comma(int64(cmp.Treatment.FinalTotals[cmp.Prey])))
			fmt.Printf("suppression:       %.1f%%\n", cmp.Suppression*100)
			return nil
		},
	}
	addRunFlags(cmd)
	return cmd
}

func queryCmd() *cobra.Command {
	var runID int64
	var speciesID string
	var limit int

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Inspect a recorded run",
		RunE: func(*cobra.Command, []string) error {
			db, err := persistence.Open(flagDB)
			if err != nil {
				return err
			}
			defer db.Close()

			if runID == 0 {
				if runID, err = db.LatestRunID(); err != nil {
					return fmt.Errorf("no recorded runs in %s", flagDB)
				}
			}

			if speciesID != "" {
				rows, err := db.SpeciesHistory(runID, speciesID)
				if err != nil {
					return err
				}
				fmt.Printf("run %d, %s:\n", runID, speciesID)
				for _, r := range rows {
					fmt.Printf("  day %3d  pop %12s  agents %4d  %.1f°C %.0f%%\n",
						r.Day, humanize.Comma(int64(r.Population)), r.AgentsAlive,
						r.Temperature, r.Humidity)
				}
				return nil
			}

			runs, err := db.Runs(limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("run %3d  %-10s  %3d days  seed %d  %s\n",
					r.ID, r.Mode, r.Days, r.Seed, r.StartedAt)
			}

			events, err := db.RecentEvents(runID, limit)
			if err != nil {
				return err
			}
			if len(events) > 0 {
				fmt.Printf("\nrecent events of run %d:\n", runID)
				for _, e := range events {
					fmt.Printf("  day %3d  [%s] %s\n", e.Day, e.Category, e.Description)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&runID, "run", 0, "run id (default: latest)")
	cmd.Flags().StringVar(&speciesID, "species", "", "show one species' daily history")
	cmd.Flags().IntVar(&limit, "limit", 20, "max rows to show")
	return cmd
}

func printSummary(s *sim.Summary) {
	fmt.Printf("\n%s run, %d days\n", s.Mode, s.Days)
	for id, n := range s.FinalTotals {
		line := fmt.Sprintf("  %-16s %12s", id, humanize.Comma(int64(n)))
		if trend, ok := s.Trends[id]; ok {
			line += "  trend=" + trend
		}
		if risk, ok := s.Risks[id]; ok {
			line += "  risk=" + risk
		}
		fmt.Println(line)
	}
	for id, n := range s.AgentsAlive {
		fmt.Printf("  %-16s %12d agents alive\n", id, n)
	}
	if s.Births+s.Deaths > 0 {
		fmt.Printf("  agent births %d, deaths %d\n", s.Births, s.Deaths)
	}
}
