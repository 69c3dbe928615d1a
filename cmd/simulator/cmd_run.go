package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/supplychain-scenario-sim/core"
	"github.com/signalsfoundry/supplychain-scenario-sim/internal/logging"
	"github.com/signalsfoundry/supplychain-scenario-sim/internal/report"
	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

var (
	scenarioID   string
	scenarioName string
	baselineRun  bool
)

// runCmd evaluates a single scenario
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate one scenario",
	Long: `Evaluate one scenario against the reference routes and print the per-route
results, the per-market breakdown and the total revenue loss.

The scenario is chosen by --scenario (id), --name (display name), or falls
back to the configured default scenario id. --baseline runs the identity
scenario instead.`,
	Example: `  simulator run --scenario S3
  simulator run --name "North Sea Port Strike" --format json --save`,
	Args: cobra.NoArgs,
	RunE: runScenario,
}

// sweepCmd evaluates many scenarios in parallel
var sweepCmd = &cobra.Command{
	Use:   "sweep [scenario-id...]",
	Short: "Evaluate several scenarios (all by default) and compare totals",
	RunE:  runSweep,
}

func init() {
	runCmd.Flags().StringVarP(&scenarioID, "scenario", "s", "", "Scenario id (default: configured default_scenario_id)")
	runCmd.Flags().StringVar(&scenarioName, "name", "", "Scenario display name")
	runCmd.Flags().BoolVar(&baselineRun, "baseline", false, "Run the identity scenario")
	runCmd.MarkFlagsMutuallyExclusive("scenario", "name", "baseline")
}

func runScenario(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	sc, err := selectScenario(s)
	if err != nil {
		return err
	}
	run, err := s.engine.RunScenario(ctx, sc)
	if err != nil {
		return err
	}

	if err := report.Write(cmd.OutOrStdout(), s.cfg.Output.Format, run); err != nil {
		return err
	}
	return saveRuns(ctx, s, cmd.ErrOrStderr(), run)
}

// selectScenario resolves the run command's scenario flags against the catalog.
func selectScenario(s *session) (model.Scenario, error) {
	switch {
	case baselineRun:
		return model.Identity(), nil
	case scenarioName != "":
		sc, ok := s.store.ScenarioByName(scenarioName)
		if !ok {
			return model.Scenario{}, fmt.Errorf("%w: name %q", core.ErrScenarioNotFound, scenarioName)
		}
		return sc, nil
	}
	id := scenarioID
	if id == "" {
		id = s.cfg.Simulation.DefaultScenarioID
	}
	sc, ok := s.store.Scenario(id)
	if !ok {
		return model.Scenario{}, fmt.Errorf("%w: %q", core.ErrScenarioNotFound, id)
	}
	return sc, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	runs, err := s.engine.RunAll(ctx, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if strings.EqualFold(s.cfg.Output.Format, report.FormatTable) {
		if err := report.WriteSweep(out, runs); err != nil {
			return err
		}
	} else {
		for _, run := range runs {
			if err := report.Write(out, s.cfg.Output.Format, run); err != nil {
				return err
			}
		}
	}
	return saveRuns(ctx, s, cmd.ErrOrStderr(), runs...)
}

func saveRuns(ctx context.Context, s *session, w io.Writer, runs ...*core.Run) error {
	if !saveReports {
		return nil
	}
	for _, run := range runs {
		paths, err := report.SaveRun(s.cfg.Output.Dir, run)
		if err != nil {
			return err
		}
		s.log.Info(ctx, "reports saved",
			logging.String("scenario_id", run.Scenario.ID),
			logging.Any("paths", paths),
		)
		for _, p := range paths {
			fmt.Fprintf(w, "Saved %s\n", p)
		}
	}
	return nil
}

// commandContext tolerates commands invoked directly in tests without Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
