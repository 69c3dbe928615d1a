package core

import (
	"math"
	"strings"

	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

// ValidateRoute checks the fields the applier and calculator depend on.
// idx is the row position, used to identify rows without an ID.
func ValidateRoute(idx int, r model.Route) error {
	switch {
	case strings.TrimSpace(r.RouteID) == "":
		return &MissingFieldError{Index: idx, RouteID: r.RouteID, Field: "route_id"}
	case strings.TrimSpace(r.Origin) == "":
		return &MissingFieldError{Index: idx, RouteID: r.RouteID, Field: "origin_brewery"}
	case strings.TrimSpace(r.DestinationMarket) == "":
		return &MissingFieldError{Index: idx, RouteID: r.RouteID, Field: "destination_market"}
	}
	if !finite(r.FreightCostUSD) {
		return &InvalidFieldError{Index: idx, RouteID: r.RouteID, Field: "freight_cost_usd_total", Reason: "is not a finite number"}
	}
	if r.FreightCostUSD < 0 {
		return &InvalidFieldError{Index: idx, RouteID: r.RouteID, Field: "freight_cost_usd_total", Reason: "must be non-negative"}
	}
	if !finite(r.TariffPercent) {
		return &InvalidFieldError{Index: idx, RouteID: r.RouteID, Field: "tariff_percent", Reason: "is not a finite number"}
	}
	if r.LeadTimeDays < 0 {
		return &InvalidFieldError{Index: idx, RouteID: r.RouteID, Field: "lead_time_days", Reason: "must be non-negative"}
	}
	return nil
}

// ValidateScenario enforces the scenario schema. Every scenario that reaches
// ApplyScenario has passed it.
func ValidateScenario(s model.Scenario) error {
	bad := func(field, reason string) error {
		return &InvalidScenarioError{ScenarioID: s.ID, Field: field, Reason: reason}
	}

	if strings.TrimSpace(s.ID) == "" {
		return bad("id", "is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return bad("name", "is required")
	}
	if err := validateFilter(s.RouteOrigin); err != "" {
		return bad("route_origin", err)
	}
	if err := validateFilter(s.RouteDestination); err != "" {
		return bad("route_destination", err)
	}
	for _, c := range s.SourcingRestrictions {
		if strings.TrimSpace(c) == "" {
			return bad("sourcing_restrictions", "contains an empty country code")
		}
		if c == model.GlobalSentinel {
			return bad("sourcing_restrictions", `must list countries, not "Global"`)
		}
	}
	if !finite(s.TariffMultiplier) || s.TariffMultiplier < 0 {
		return bad("tariff_multiplier", "must be a finite non-negative number")
	}
	if !finite(s.FreightMultiplier) || s.FreightMultiplier < 0 {
		return bad("freight_multiplier", "must be a finite non-negative number")
	}
	if s.LeadTimeDelayDays < 0 {
		return bad("lead_time_delay_days", "must be non-negative")
	}
	return nil
}

// validateFilter returns a reason when a route filter is ambiguous: an empty
// list could mean "match nothing" or "match everything", and "Global" mixed
// with countries has no single reading.
func validateFilter(filter []string) string {
	if len(filter) == 0 {
		return `must not be empty; use ["Global"] for no restriction`
	}
	if model.IsGlobal(filter) {
		return ""
	}
	for _, c := range filter {
		if c == model.GlobalSentinel {
			return `mixes "Global" with country codes`
		}
		if strings.TrimSpace(c) == "" {
			return "contains an empty country code"
		}
	}
	return ""
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
