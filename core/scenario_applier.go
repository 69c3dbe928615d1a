package core

import "github.com/signalsfoundry/supplychain-scenario-sim/model"

// TariffLookup resolves the scheduled duty for an origin/destination/product
// triple. kb.KnowledgeBase and kb.TariffSchedule implement it.
type TariffLookup interface {
	TariffPercent(origin, dest, hsCode string) (float64, bool)
}

// ApplyScenario returns a new route table adjusted under sc. The input slice
// is not modified.
//
// The scenario is validated before any route is touched, and every route is
// validated before it is adjusted; the first failure aborts the batch.
func ApplyScenario(routes []model.Route, tariffs TariffLookup, sc model.Scenario) ([]model.Route, error) {
	if err := ValidateScenario(sc); err != nil {
		return nil, err
	}

	out := make([]model.Route, len(routes))
	for i, r := range routes {
		if err := ValidateRoute(i, r); err != nil {
			return nil, err
		}
		out[i] = AdjustRoute(r, tariffs, sc)
	}
	return out, nil
}

// AdjustRoute applies sc to a single route. It assumes both have been
// validated.
//
// Every route first returns to its pre-scenario state (not blocked, no lead
// time). Then, in order:
//  1. a restricted origin country blocks the route and nothing else changes;
//  2. a route outside the origin or destination filter passes through;
//  3. otherwise tariff, freight and lead time take the scenario's values.
func AdjustRoute(r model.Route, tariffs TariffLookup, sc model.Scenario) model.Route {
	r.Blocked = false
	r.LeadTimeDays = 0

	origin := OriginCountry(r.Origin)
	baseTariff := scheduledTariff(tariffs, origin, r.DestinationMarket)

	if len(sc.SourcingRestrictions) > 0 && sc.Restricts(origin) {
		r.Blocked = true
		return r
	}
	if !sc.MatchesOrigin(origin) {
		return r
	}
	if !sc.MatchesDestination(r.DestinationMarket) {
		return r
	}

	r.TariffPercent = baseTariff * sc.TariffMultiplier
	r.FreightCostUSD *= sc.FreightMultiplier
	r.LeadTimeDays = sc.LeadTimeDelayDays
	return r
}

// scheduledTariff is 0 when the schedule has no entry for the lane.
func scheduledTariff(tariffs TariffLookup, origin, dest string) float64 {
	if tariffs == nil {
		return 0
	}
	v, ok := tariffs.TariffPercent(origin, dest, model.BeerHSCode)
	if !ok {
		return 0
	}
	return v
}
