package core

import (
	"math"
	"testing"

	"github.com/signalsfoundry/supplychain-scenario-sim/kb"
	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

func nlToUSA() model.Route {
	return model.Route{
		RouteID:           "OUT_001",
		Origin:            "NL_ZOE",
		DestinationMarket: "USA",
		FreightCostUSD:    100,
		TariffPercent:     5,
	}
}

func globalScenario() model.Scenario {
	return model.Scenario{
		ID:                   "S2",
		Name:                 "Tariff Escalation",
		SourcingRestrictions: []string{},
		RouteOrigin:          []string{model.GlobalSentinel},
		RouteDestination:     []string{model.GlobalSentinel},
		TariffMultiplier:     2,
		FreightMultiplier:    1.5,
		LeadTimeDelayDays:    10,
	}
}

func sampleRoutes() []model.Route {
	return []model.Route{
		nlToUSA(),
		{RouteID: "OUT_002", Origin: "MX_MTY", DestinationMarket: "USA", FreightCostUSD: 0.05, TariffPercent: 0},
		{RouteID: "OUT_003", Origin: "NL_ZOE", DestinationMarket: "UK", FreightCostUSD: 0.08, TariffPercent: 2},
		{RouteID: "OUT_004", Origin: "BR", DestinationMarket: "ZZ", FreightCostUSD: 0.02, TariffPercent: 1},
	}
}

func sampleTariffs() *kb.TariffSchedule {
	return kb.NewTariffSchedule([]model.TariffEntry{
		{OriginCountry: "MX", DestinationCountry: "USA", HSCode: model.BeerHSCode, TariffPercent: 10},
		{OriginCountry: "NL", DestinationCountry: "UK", HSCode: model.BeerHSCode, TariffPercent: 4},
		{OriginCountry: "MX", DestinationCountry: "USA", HSCode: model.BeerHSCode, TariffPercent: 99},
	})
}

func sampleMargins() *kb.MarginTable {
	return kb.NewMarginTable([]model.MarginEntry{
		{Country: "USA", BaselineMarginPercent: 30, AverageVolumeUnits: 1000},
		{Country: "UK", BaselineMarginPercent: 25, AverageVolumeUnits: 500},
	})
}

func approxEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}
