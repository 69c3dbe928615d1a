package core

import (
	"sort"

	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

// CoverageGap is an origin/destination pair that a scenario targets but the
// route table has no lane for. A scenario aimed at such a pair silently
// affects nothing.
type CoverageGap struct {
	OriginCountry     string   `json:"origin_country"`
	DestinationMarket string   `json:"destination_market"`
	ScenarioIDs       []string `json:"scenario_ids"`
}

// CoverageGaps lists the explicit (non-"Global") pairs named by the
// scenarios' route filters that no route serves, sorted by origin then
// destination. Routes are matched on their derived origin country.
func CoverageGaps(routes []model.Route, scenarios []model.Scenario) []CoverageGap {
	type pair struct{ origin, dest string }

	served := make(map[pair]struct{}, len(routes))
	for _, r := range routes {
		served[pair{OriginCountry(r.Origin), r.DestinationMarket}] = struct{}{}
	}

	gaps := make(map[pair]*CoverageGap)
	for _, sc := range scenarios {
		if model.IsGlobal(sc.RouteOrigin) || model.IsGlobal(sc.RouteDestination) {
			continue
		}
		for _, o := range sc.RouteOrigin {
			for _, d := range sc.RouteDestination {
				if o == model.GlobalSentinel || d == model.GlobalSentinel {
					continue
				}
				k := pair{o, d}
				if _, ok := served[k]; ok {
					continue
				}
				g, ok := gaps[k]
				if !ok {
					g = &CoverageGap{OriginCountry: o, DestinationMarket: d}
					gaps[k] = g
				}
				if n := len(g.ScenarioIDs); n == 0 || g.ScenarioIDs[n-1] != sc.ID {
					g.ScenarioIDs = append(g.ScenarioIDs, sc.ID)
				}
			}
		}
	}

	out := make([]CoverageGap, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OriginCountry != out[j].OriginCountry {
			return out[i].OriginCountry < out[j].OriginCountry
		}
		return out[i].DestinationMarket < out[j].DestinationMarket
	})
	return out
}
