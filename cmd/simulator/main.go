package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/supplychain-scenario-sim/internal/logging"
)

// Global flags. Flags left unset defer to the config file and environment.
var (
	configPath    string
	dataDir       string
	pricePerUnit  float64
	clampMargins  bool
	outputFormat  string
	blockedPolicy string
	saveReports   bool
	metricsAddr   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "simulator",
	Short: "Evaluate supply-chain disruption scenarios against outbound routes",
	Long: `simulator applies tariff, freight, sourcing-ban and lead-time scenarios to
outbound routes and reports the margin and revenue impact per route and market.

Reference data (routes, tariffs, baseline margins, scenarios) is read from a
directory, an S3 bucket, or a SQLite database, as selected by the config.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file (default: $SIM_CONFIG)")
	pf.StringVar(&dataDir, "data-dir", "", "Read reference data from this directory")
	pf.Float64Var(&pricePerUnit, "price", 0, "Price per unit in USD")
	pf.BoolVar(&clampMargins, "clamp", false, "Clamp computed margins and deltas to [-1, 1]")
	pf.StringVarP(&outputFormat, "format", "f", "", "Output format: table, csv or json")
	pf.StringVar(&blockedPolicy, "policy", "", "Blocked-route policy: exclude, margin or full_volume")
	pf.BoolVar(&saveReports, "save", false, "Also write results and summary files to the output directory")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "HTTP address for Prometheus /metrics")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(scenariosCmd)
	rootCmd.AddCommand(gapsCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.NewFromEnv().Error(context.Background(), "simulator failed", logging.Err(err))
		os.Exit(1)
	}
}
