package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/supplychain-scenario-sim/internal/config"
	"github.com/signalsfoundry/supplychain-scenario-sim/internal/logging"
	"github.com/signalsfoundry/supplychain-scenario-sim/internal/refdata"
)

var (
	importTo    string
	writeConfig string
)

// importCmd snapshots the configured reference data into SQLite
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy the configured reference data into a SQLite database",
	Long: `Read routes, tariffs, baseline margins and scenarios from the configured
source (directory or S3), validate them, and write them to a SQLite database
that later runs can use with data.driver: sqlite.

--write-config also saves the effective configuration, switched to the sqlite
driver and the new database, so later runs can use it with --config.`,
	Example: `  simulator import --data-dir data --to reference.db
  simulator import --data-dir data --to reference.db --write-config configs/sqlite.yaml`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importTo, "to", "", "Destination SQLite database path")
	importCmd.Flags().StringVar(&writeConfig, "write-config", "", "Also write a config file that reads from the new database")
	_ = importCmd.MarkFlagRequired("to")
}

func runImport(cmd *cobra.Command, args []string) error {
	if importTo == "" {
		return fmt.Errorf("import: --to is required")
	}
	ctx := commandContext(cmd)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LoggerConfig())

	tables, err := readTables(ctx, cfg)
	if err != nil {
		return err
	}
	// Build validates rows and scenarios before anything is written.
	store, err := tables.Build(ctx, log)
	if err != nil {
		return err
	}
	if err := refdata.WriteSQLite(ctx, importTo, tables); err != nil {
		return err
	}

	if writeConfig != "" {
		cfg.Data.Driver = config.DriverSQLite
		cfg.Data.SQLitePath = importTo
		if err := cfg.Save(writeConfig); err != nil {
			return err
		}
	}

	st := store.Stats()
	log.Info(ctx, "reference data imported",
		logging.String("path", importTo),
		logging.Int("routes", st.Routes),
		logging.Int("scenarios", st.Scenarios),
		logging.Bool("config_written", writeConfig != ""),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d routes, %d tariffs, %d markets, %d scenarios into %s\n",
		st.Routes, st.Tariffs, st.Markets, st.Scenarios, importTo)
	return nil
}
