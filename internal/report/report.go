// Package report renders scenario runs as CSV, JSON or a terminal table and
// saves them under the output directory.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/signalsfoundry/supplychain-scenario-sim/core"
	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

// Formats accepted by Write.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// resultColumns is the CSV header, in model.Result field order.
var resultColumns = []string{
	"route_id",
	"origin",
	"destination_market",
	"tariff_percent",
	"freight_cost_usd_total",
	"total_cost",
	"baseline_margin_percent",
	"average_volume_units_per_route",
	"new_margin",
	"margin_delta",
	"revenue_loss_usd",
	"blocked",
	"lead_time_days",
}

// Write renders run in the named format.
func Write(w io.Writer, format string, run *core.Run) error {
	switch strings.ToLower(format) {
	case FormatTable, "":
		return WriteTable(w, run)
	case FormatCSV:
		return WriteCSV(w, run.Results)
	case FormatJSON:
		return WriteJSON(w, run)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteCSV writes the result table. Unpriced cells are left empty.
func WriteCSV(w io.Writer, results []model.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultColumns); err != nil {
		return err
	}
	for _, r := range results {
		rec := []string{
			r.RouteID,
			r.Origin,
			r.DestinationMarket,
			formatFloat(r.TariffPercent),
			formatFloat(r.FreightCostUSD),
			formatFloat(r.TotalCostUSD),
			formatOptional(r.BaselineMarginPercent),
			formatOptional(r.AverageVolumeUnits),
			formatOptional(r.NewMargin),
			formatOptional(r.MarginDelta),
			formatOptional(r.RevenueLossUSD),
			strconv.FormatBool(r.Blocked),
			strconv.Itoa(r.LeadTimeDays),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// runDocument is the JSON shape of a run.
type runDocument struct {
	RunID     string         `json:"run_id"`
	Scenario  model.Scenario `json:"scenario"`
	StartedAt time.Time      `json:"started_at"`
	ElapsedMS float64        `json:"elapsed_ms"`
	Summary   core.Summary   `json:"summary"`
	Results   []model.Result `json:"results,omitempty"`
}

func document(run *core.Run, withResults bool) runDocument {
	doc := runDocument{
		RunID:     run.ID,
		Scenario:  run.Scenario,
		StartedAt: run.StartedAt.UTC(),
		ElapsedMS: float64(run.Elapsed.Microseconds()) / 1000,
		Summary:   run.Summary,
	}
	if withResults {
		doc.Results = run.Results
	}
	return doc
}

// WriteJSON writes the run, results included, as indented JSON.
func WriteJSON(w io.Writer, run *core.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(document(run, true))
}

// SaveRun writes <dir>/<scenario_id>_results.csv and
// <dir>/<scenario_id>_summary.json and returns their paths.
func SaveRun(dir string, run *core.Run) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	id := safeName(run.Scenario.ID)
	resultsPath := filepath.Join(dir, id+"_results.csv")
	summaryPath := filepath.Join(dir, id+"_summary.json")

	if err := writeFile(resultsPath, func(w io.Writer) error { return WriteCSV(w, run.Results) }); err != nil {
		return nil, err
	}
	if err := writeFile(summaryPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(document(run, false))
	}); err != nil {
		return nil, err
	}
	return []string{resultsPath, summaryPath}, nil
}

func writeFile(path string, fn func(io.Writer) error) (retErr error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); retErr == nil && cerr != nil {
			retErr = cerr
		}
	}()
	if err := fn(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// safeName keeps scenario IDs from escaping the output directory.
func safeName(id string) string {
	id = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, id)
	if id == "" || id == "." || id == ".." {
		return "scenario"
	}
	return id
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

// USD formats an amount with thousands separators and two decimals.
func USD(v float64) string {
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// Percent formats a fraction (0.25) as "25.00%".
func Percent(fraction float64) string {
	return fmt.Sprintf("%.2f%%", fraction*100)
}
