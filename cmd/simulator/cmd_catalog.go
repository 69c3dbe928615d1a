package main

import (
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/supplychain-scenario-sim/core"
	"github.com/signalsfoundry/supplychain-scenario-sim/internal/report"
)

// scenariosCmd lists the scenario catalog
var scenariosCmd = &cobra.Command{
	Use:     "scenarios",
	Aliases: []string{"ls"},
	Short:   "List the scenario catalog",
	Args:    cobra.NoArgs,
	RunE:    runScenarios,
}

// gapsCmd reports scenario lanes that have no route
var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "List origin/destination pairs named by scenarios but missing from the route table",
	Long: `List origin/destination pairs that scenarios target but the route table has
no lane for. Such scenarios silently affect nothing on those pairs; add routes
(with freight costs) to the reference data to cover them.`,
	Args: cobra.NoArgs,
	RunE: runGaps,
}

func runScenarios(cmd *cobra.Command, args []string) error {
	s, err := openSession(commandContext(cmd))
	if err != nil {
		return err
	}
	defer s.close()
	return report.WriteScenarios(cmd.OutOrStdout(), s.store.ListScenarios())
}

func runGaps(cmd *cobra.Command, args []string) error {
	s, err := openSession(commandContext(cmd))
	if err != nil {
		return err
	}
	defer s.close()
	gaps := core.CoverageGaps(s.store.Routes(), s.store.ListScenarios())
	return report.WriteGaps(cmd.OutOrStdout(), gaps)
}
