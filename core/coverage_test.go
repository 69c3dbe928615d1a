package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

func TestCoverageGaps(t *testing.T) {
	scenarios := []model.Scenario{
		globalScenario(),
		{ID: "S3", RouteOrigin: []string{"NL", "BE"}, RouteDestination: []string{"USA"}},
		{ID: "S4", RouteOrigin: []string{"BE"}, RouteDestination: []string{"USA", "UK"}},
		{ID: "S5", RouteOrigin: []string{"MX"}, RouteDestination: []string{model.GlobalSentinel}},
	}

	got := CoverageGaps(sampleRoutes(), scenarios)
	want := []CoverageGap{
		{OriginCountry: "BE", DestinationMarket: "UK", ScenarioIDs: []string{"S4"}},
		{OriginCountry: "BE", DestinationMarket: "USA", ScenarioIDs: []string{"S3", "S4"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("CoverageGaps mismatch (-want +got):\n%s", diff)
	}
}

func TestCoverageGaps_NoneWhenServed(t *testing.T) {
	scenarios := []model.Scenario{
		{ID: "S3", RouteOrigin: []string{"NL"}, RouteDestination: []string{"USA", "UK"}},
	}
	if got := CoverageGaps(sampleRoutes(), scenarios); len(got) != 0 {
		t.Fatalf("expected no gaps, got %+v", got)
	}
}
