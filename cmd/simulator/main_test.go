package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/supplychain-scenario-sim/core"
	"github.com/signalsfoundry/supplychain-scenario-sim/internal/config"
)

const fixtureDir = "../../internal/refdata/testdata"

// resetCLI clears flag globals and the environment the config layer reads.
func resetCLI(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SIM_CONFIG", "SIM_DATA_DRIVER", "SIM_DATA_DIR", "SIM_DATA_SQLITE_PATH",
		"SIM_PRICE_PER_UNIT", "DEFAULT_PRICE_PER_UNIT", "SIM_DEFAULT_SCENARIO_ID", "DEFAULT_SCENARIO_ID",
		"SIM_BLOCKED_POLICY", "SIM_CLAMP_MARGINS", "SIM_WORKERS", "SIM_METRICS_ADDR",
		"SIM_OUTPUT_DIR", "DEFAULT_OUTPUT_DIR", "SIM_TRACING_ENABLED",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("SIM_LOG_LEVEL", "error")

	reset := func() {
		configPath, dataDir, outputFormat, blockedPolicy, metricsAddr = "", "", "", "", ""
		pricePerUnit = 0
		clampMargins, saveReports = false, false
		scenarioID, scenarioName, baselineRun = "", "", false
		importTo, writeConfig = "", ""
		refreshInterval, refreshCount = 5*time.Minute, 0
		for _, name := range []string{"price", "clamp"} {
			f := rootCmd.PersistentFlags().Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	reset()
	t.Cleanup(reset)
}

// setFlag sets a root persistent flag the way command-line parsing would.
func setFlag(t *testing.T, name, value string) {
	t.Helper()
	if err := rootCmd.PersistentFlags().Set(name, value); err != nil {
		t.Fatalf("set --%s=%s: %v", name, value, err)
	}
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, out
}

func TestRunScenarioCSV(t *testing.T) {
	resetCLI(t)
	dataDir = fixtureDir
	outputFormat = "csv"
	scenarioID = "S2"

	cmd, out := testCommand()
	if err := runScenario(cmd, nil); err != nil {
		t.Fatalf("runScenario failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("csv lines = %d, want 5 (header + 4 routes):\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "route_id,origin,destination_market,tariff_percent") {
		t.Fatalf("header = %q", lines[0])
	}
	// S2 doubles the scheduled NL->USA duty of 5%.
	if !strings.HasPrefix(lines[1], "OUT_001,NL_ZOE,USA,10,") {
		t.Fatalf("first row = %q, want tariff 10", lines[1])
	}
}

func TestRunScenarioJSONUsesDefaultScenario(t *testing.T) {
	resetCLI(t)
	dataDir = fixtureDir
	outputFormat = "json"

	cmd, out := testCommand()
	if err := runScenario(cmd, nil); err != nil {
		t.Fatalf("runScenario failed: %v", err)
	}

	var doc struct {
		Scenario struct {
			ID string `json:"id"`
		} `json:"scenario"`
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if doc.Scenario.ID != "S1" {
		t.Fatalf("scenario = %q, want S1", doc.Scenario.ID)
	}
	if len(doc.Results) != 4 {
		t.Fatalf("results = %d, want 4", len(doc.Results))
	}
}

func TestRunScenarioByNameAndBaseline(t *testing.T) {
	resetCLI(t)
	dataDir = fixtureDir

	scenarioName = "North Sea Port Strike"
	cmd, out := testCommand()
	if err := runScenario(cmd, nil); err != nil {
		t.Fatalf("runScenario by name failed: %v", err)
	}
	if !strings.Contains(out.String(), "S3: North Sea Port Strike") {
		t.Fatalf("table output missing scenario header:\n%s", out.String())
	}

	scenarioName = ""
	baselineRun = true
	cmd, out = testCommand()
	if err := runScenario(cmd, nil); err != nil {
		t.Fatalf("runScenario baseline failed: %v", err)
	}
	if !strings.Contains(out.String(), "identity: Identity") {
		t.Fatalf("table output missing identity header:\n%s", out.String())
	}
}

func TestRunScenarioUnknown(t *testing.T) {
	resetCLI(t)
	dataDir = fixtureDir
	scenarioID = "S99"

	cmd, _ := testCommand()
	err := runScenario(cmd, nil)
	if !errors.Is(err, core.ErrScenarioNotFound) {
		t.Fatalf("runScenario error = %v, want ErrScenarioNotFound", err)
	}
}

func TestRunScenarioSave(t *testing.T) {
	resetCLI(t)
	outDir := t.TempDir()
	t.Setenv("SIM_OUTPUT_DIR", outDir)
	dataDir = fixtureDir
	scenarioID = "S3"
	saveReports = true

	cmd, _ := testCommand()
	if err := runScenario(cmd, nil); err != nil {
		t.Fatalf("runScenario failed: %v", err)
	}
	for _, name := range []string{"S3_results.csv", "S3_summary.json"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("expected %s to be written: %v", name, err)
		}
	}
}

func TestRunSweep(t *testing.T) {
	resetCLI(t)
	dataDir = fixtureDir

	cmd, out := testCommand()
	if err := runSweep(cmd, nil); err != nil {
		t.Fatalf("runSweep failed: %v", err)
	}
	for _, want := range []string{"Mexico Sourcing Ban", "US Tariff Escalation", "North Sea Port Strike"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("sweep output missing %q:\n%s", want, out.String())
		}
	}

	cmd, out = testCommand()
	if err := runSweep(cmd, []string{"S2"}); err != nil {
		t.Fatalf("runSweep S2 failed: %v", err)
	}
	if strings.Contains(out.String(), "Mexico Sourcing Ban") {
		t.Fatalf("sweep of S2 rendered S1:\n%s", out.String())
	}
}

func TestScenariosAndGaps(t *testing.T) {
	resetCLI(t)
	dataDir = fixtureDir

	cmd, out := testCommand()
	if err := runScenarios(cmd, nil); err != nil {
		t.Fatalf("runScenarios failed: %v", err)
	}
	if !strings.Contains(out.String(), "US Tariff Escalation") {
		t.Fatalf("scenario list missing S2:\n%s", out.String())
	}

	cmd, out = testCommand()
	if err := runGaps(cmd, nil); err != nil {
		t.Fatalf("runGaps failed: %v", err)
	}
	// S3 names BE as an origin but no BE route exists.
	if !strings.Contains(out.String(), "BE") || !strings.Contains(out.String(), "S3") {
		t.Fatalf("gaps output missing BE/S3:\n%s", out.String())
	}
}

func TestImportThenRunFromSQLite(t *testing.T) {
	resetCLI(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "reference.db")
	cfgPath := filepath.Join(dir, "configs", "sqlite.yaml")
	dataDir = fixtureDir
	importTo = dbPath
	writeConfig = cfgPath

	cmd, out := testCommand()
	if err := runImport(cmd, nil); err != nil {
		t.Fatalf("runImport failed: %v", err)
	}
	if !strings.Contains(out.String(), "Imported 4 routes") {
		t.Fatalf("import output = %q", out.String())
	}

	dataDir = ""
	configPath = cfgPath
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig(written config) failed: %v", err)
	}
	if cfg.Data.Driver != config.DriverSQLite || cfg.Data.SQLitePath != dbPath {
		t.Fatalf("written config data = %+v, want sqlite at %s", cfg.Data, dbPath)
	}

	cmd, out = testCommand()
	if err := runScenarios(cmd, nil); err != nil {
		t.Fatalf("runScenarios from sqlite failed: %v", err)
	}
	if !strings.Contains(out.String(), "Mexico Sourcing Ban") {
		t.Fatalf("sqlite catalog missing S1:\n%s", out.String())
	}
}

func TestImportRequiresDestination(t *testing.T) {
	resetCLI(t)
	dataDir = fixtureDir

	cmd, _ := testCommand()
	if err := runImport(cmd, nil); err == nil {
		t.Fatalf("runImport without --to succeeded, want error")
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	resetCLI(t)
	path := filepath.Join(t.TempDir(), "simulator.yaml")
	yaml := "simulation:\n  price_per_unit: 2.5\n  blocked_policy: margin\ndata:\n  dir: somewhere\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	configPath = path

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Simulation.PricePerUnit != 2.5 || cfg.Simulation.BlockedPolicy != "margin" || cfg.Data.Dir != "somewhere" {
		t.Fatalf("config from file = %+v", cfg.Simulation)
	}

	setFlag(t, "price", "4")
	setFlag(t, "clamp", "true")
	dataDir = fixtureDir
	cfg, err = loadConfig()
	if err != nil {
		t.Fatalf("loadConfig with flags failed: %v", err)
	}
	if cfg.Simulation.PricePerUnit != 4 || !cfg.Simulation.ClampMargins || cfg.Data.Dir != fixtureDir {
		t.Fatalf("flags not applied: %+v %+v", cfg.Simulation, cfg.Data)
	}

	blockedPolicy = "sometimes"
	_, err = loadConfig()
	var cfgErr *core.InvalidConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "blocked_policy" {
		t.Fatalf("loadConfig error = %v, want blocked_policy InvalidConfigurationError", err)
	}
}

func TestLoadConfigRejectsExplicitZeroPrice(t *testing.T) {
	resetCLI(t)
	dataDir = fixtureDir
	setFlag(t, "price", "0")

	_, err := loadConfig()
	var cfgErr *core.InvalidConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "price_per_unit" {
		t.Fatalf("loadConfig error = %v, want price_per_unit InvalidConfigurationError", err)
	}

	cmd, _ := testCommand()
	if err := runScenario(cmd, nil); !errors.Is(err, core.ErrInvalidConfiguration) {
		t.Fatalf("runScenario error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestLoadConfigClampFlagCanDisable(t *testing.T) {
	resetCLI(t)
	t.Setenv("SIM_CLAMP_MARGINS", "true")
	dataDir = fixtureDir

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if !cfg.Simulation.ClampMargins {
		t.Fatalf("ClampMargins = false, want true from SIM_CLAMP_MARGINS")
	}

	setFlag(t, "clamp", "false")
	cfg, err = loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Simulation.ClampMargins {
		t.Fatalf("ClampMargins = true, want --clamp=false to override")
	}
}

func TestClampFlagUsageMatchesClampRange(t *testing.T) {
	f := rootCmd.PersistentFlags().Lookup("clamp")
	if f == nil {
		t.Fatal("clamp flag not registered")
	}
	if !strings.Contains(f.Usage, "[-1, 1]") {
		t.Fatalf("clamp usage = %q, want it to name the [-1, 1] range", f.Usage)
	}
}

func TestServePublishesMetrics(t *testing.T) {
	resetCLI(t)
	dataDir = fixtureDir
	metricsAddr = "127.0.0.1:0"
	refreshInterval = 10 * time.Millisecond
	refreshCount = 2

	cmd, _ := testCommand()
	if err := runServe(cmd, nil); err != nil {
		t.Fatalf("runServe failed: %v", err)
	}

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() != "sim_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "scenario" && lp.GetValue() == "S3" && m.GetCounter().GetValue() >= 2 {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatalf("sim_runs_total{scenario=\"S3\"} < 2 after two refreshes")
	}
}
