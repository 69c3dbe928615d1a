package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/signalsfoundry/supplychain-scenario-sim/core"
	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

const notAvailable = "n/a"

var (
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	numericStyle = cellStyle.Align(lipgloss.Right)
)

// newTable builds a bordered table whose listed columns are right-aligned.
func newTable(headers []string, rows [][]string, numericCols ...int) *table.Table {
	numeric := make(map[int]bool, len(numericCols))
	for _, c := range numericCols {
		numeric[c] = true
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row != table.HeaderRow && numeric[col] {
				return numericStyle
			}
			return cellStyle
		})
}

func optionalPercent(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return Percent(*v)
}

func optionalUSD(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return USD(*v)
}

// WriteTable renders the result table, the per-market breakdown and the
// totals of run for a terminal.
func WriteTable(w io.Writer, run *core.Run) error {
	sc := run.Scenario
	if _, err := fmt.Fprintf(w, "Scenario %s: %s\n", sc.ID, sc.Name); err != nil {
		return err
	}
	if sc.Description != "" {
		if _, err := fmt.Fprintln(w, sc.Description); err != nil {
			return err
		}
	}

	rows := make([][]string, 0, len(run.Results))
	for _, r := range run.Results {
		rows = append(rows, []string{
			r.RouteID,
			r.Origin,
			r.DestinationMarket,
			fmt.Sprintf("%.2f%%", r.TariffPercent),
			USD(r.FreightCostUSD),
			optionalPercent(r.NewMargin),
			optionalPercent(r.MarginDelta),
			optionalUSD(r.RevenueLossUSD),
			yesNo(r.Blocked),
			strconv.Itoa(r.LeadTimeDays),
		})
	}
	routes := newTable([]string{
		"Route", "Origin", "Market", "Tariff", "Freight", "New margin", "Margin delta", "Revenue loss", "Blocked", "Lead time (d)",
	}, rows, 3, 4, 5, 6, 7, 9)
	if _, err := fmt.Fprintln(w, routes.Render()); err != nil {
		return err
	}

	s := run.Summary
	mrows := make([][]string, 0, len(s.Markets))
	for _, m := range s.Markets {
		mrows = append(mrows, []string{
			m.Market,
			strconv.Itoa(m.Routes),
			strconv.Itoa(m.Blocked),
			strconv.Itoa(m.Unpriced),
			USD(m.RevenueLossUSD.InexactFloat64()),
		})
	}
	markets := newTable([]string{"Market", "Routes", "Blocked", "Unpriced", "Revenue loss"}, mrows, 1, 2, 3, 4)
	if _, err := fmt.Fprintln(w, markets.Render()); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Total estimated revenue loss (%s): %s  [%d routes, %d blocked, %d without baseline]\n",
		s.Policy, USD(s.TotalRevenueLossUSD.InexactFloat64()), s.Routes, s.Blocked, s.Unpriced)
	return err
}

// WriteSweep renders one summary line per run, for comparing scenarios.
func WriteSweep(w io.Writer, runs []*core.Run) error {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		s := run.Summary
		rows = append(rows, []string{
			run.Scenario.ID,
			run.Scenario.Name,
			strconv.Itoa(s.Routes),
			strconv.Itoa(s.Blocked),
			strconv.Itoa(s.Unpriced),
			USD(s.TotalRevenueLossUSD.InexactFloat64()),
		})
	}
	t := newTable([]string{"Scenario", "Name", "Routes", "Blocked", "Unpriced", "Revenue loss"}, rows, 2, 3, 4, 5)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// WriteScenarios lists the scenario catalog.
func WriteScenarios(w io.Writer, scenarios []model.Scenario) error {
	rows := make([][]string, 0, len(scenarios))
	for _, sc := range scenarios {
		restrictions := strings.Join(sc.SourcingRestrictions, ",")
		if restrictions == "" {
			restrictions = "-"
		}
		rows = append(rows, []string{
			sc.ID,
			sc.Name,
			restrictions,
			strings.Join(sc.RouteOrigin, ","),
			strings.Join(sc.RouteDestination, ","),
			formatFloat(sc.TariffMultiplier),
			formatFloat(sc.FreightMultiplier),
			strconv.Itoa(sc.LeadTimeDelayDays),
		})
	}
	t := newTable([]string{"ID", "Name", "Blocked origins", "Origins", "Destinations", "Tariff x", "Freight x", "Delay (d)"}, rows, 5, 6, 7)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// WriteGaps lists scenario origin/destination pairs that have no route.
func WriteGaps(w io.Writer, gaps []core.CoverageGap) error {
	if len(gaps) == 0 {
		_, err := fmt.Fprintln(w, "Every origin/destination pair named by a scenario has a route.")
		return err
	}
	rows := make([][]string, 0, len(gaps))
	for _, g := range gaps {
		rows = append(rows, []string{g.OriginCountry, g.DestinationMarket, strings.Join(g.ScenarioIDs, ",")})
	}
	t := newTable([]string{"Origin", "Destination", "Scenarios"}, rows)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
