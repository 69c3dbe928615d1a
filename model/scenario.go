package model

// GlobalSentinel in a route filter means "no restriction". It is never a
// country code.
const GlobalSentinel = "Global"

// Scenario is a named bundle of adjustment rules applied to a route table.
type Scenario struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	SourcingRestrictions []string `json:"sourcing_restrictions"`
	RouteOrigin          []string `json:"route_origin"`
	RouteDestination     []string `json:"route_destination"`

	TariffMultiplier  float64 `json:"tariff_multiplier"`
	FreightMultiplier float64 `json:"freight_multiplier"`
	LeadTimeDelayDays int     `json:"lead_time_delay_days"`
}

// IsGlobal reports whether a filter list is exactly ["Global"].
func IsGlobal(filter []string) bool {
	return len(filter) == 1 && filter[0] == GlobalSentinel
}

// Restricts reports whether sourcing from country is banned.
func (s Scenario) Restricts(country string) bool {
	return contains(s.SourcingRestrictions, country)
}

// MatchesOrigin reports whether country passes the origin filter.
func (s Scenario) MatchesOrigin(country string) bool {
	return IsGlobal(s.RouteOrigin) || contains(s.RouteOrigin, country)
}

// MatchesDestination reports whether market passes the destination filter.
func (s Scenario) MatchesDestination(market string) bool {
	return IsGlobal(s.RouteDestination) || contains(s.RouteDestination, market)
}

// Identity returns the scenario that leaves every route unchanged.
func Identity() Scenario {
	return Scenario{
		ID:                   "identity",
		Name:                 "Identity",
		SourcingRestrictions: []string{},
		RouteOrigin:          []string{GlobalSentinel},
		RouteDestination:     []string{GlobalSentinel},
		TariffMultiplier:     1,
		FreightMultiplier:    1,
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
