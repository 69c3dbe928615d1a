package kb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

var (
	ErrRouteExists    = errors.New("route already exists")
	ErrMarketExists   = errors.New("market already exists")
	ErrScenarioExists = errors.New("scenario already exists")
	ErrEmptyID        = errors.New("empty ID")
)

// KnowledgeBase is the in-memory reference data store for one run: the route
// table, the tariff schedule, the baseline margins and the scenario catalog.
//
// It is populated once by a loader and then only read. All accessors return
// copies, so concurrent scenario evaluations never share mutable state.
type KnowledgeBase struct {
	mu sync.RWMutex

	routes     []model.Route
	routeIDs   map[string]struct{}
	tariffs    *TariffSchedule
	margins    *MarginTable
	scenarios  []model.Scenario
	scenarioBy map[string]int
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		routeIDs:   make(map[string]struct{}),
		tariffs:    NewTariffSchedule(nil),
		margins:    NewMarginTable(nil),
		scenarioBy: make(map[string]int),
	}
}

// AddRoute appends a route. It returns an error if the route ID already exists.
func (kb *KnowledgeBase) AddRoute(r model.Route) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if r.RouteID == "" {
		return fmt.Errorf("route #%d: %w", len(kb.routes), ErrEmptyID)
	}
	if _, exists := kb.routeIDs[r.RouteID]; exists {
		return fmt.Errorf("%w: %q", ErrRouteExists, r.RouteID)
	}
	kb.routeIDs[r.RouteID] = struct{}{}
	kb.routes = append(kb.routes, r)
	return nil
}

// AddTariff indexes a tariff entry. A repeated triple is a data-quality fault
// rather than an error: the first entry is kept and false is returned.
func (kb *KnowledgeBase) AddTariff(e model.TariffEntry) bool {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return kb.tariffs.add(e)
}

// AddMargin indexes a baseline-margin row. It returns an error if the market
// already has one.
func (kb *KnowledgeBase) AddMargin(e model.MarginEntry) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if e.Country == "" {
		return fmt.Errorf("margin row: %w", ErrEmptyID)
	}
	if !kb.margins.add(e) {
		return fmt.Errorf("%w: %q", ErrMarketExists, e.Country)
	}
	return nil
}

// AddScenario appends a scenario to the catalog. It returns an error if the
// scenario ID already exists.
func (kb *KnowledgeBase) AddScenario(s model.Scenario) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if s.ID == "" {
		return fmt.Errorf("scenario %q: %w", s.Name, ErrEmptyID)
	}
	if _, exists := kb.scenarioBy[s.ID]; exists {
		return fmt.Errorf("%w: %q", ErrScenarioExists, s.ID)
	}
	kb.scenarioBy[s.ID] = len(kb.scenarios)
	kb.scenarios = append(kb.scenarios, cloneScenario(s))
	return nil
}

// Routes returns a copy of the route table in load order.
func (kb *KnowledgeBase) Routes() []model.Route {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	out := make([]model.Route, len(kb.routes))
	copy(out, kb.routes)
	return out
}

// TariffPercent looks up the scheduled duty for a triple.
func (kb *KnowledgeBase) TariffPercent(origin, dest, hsCode string) (float64, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.tariffs.TariffPercent(origin, dest, hsCode)
}

// Margin looks up the baseline row for a market.
func (kb *KnowledgeBase) Margin(country string) (model.MarginEntry, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.margins.Margin(country)
}

// Scenario returns the scenario with the given ID.
func (kb *KnowledgeBase) Scenario(id string) (model.Scenario, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	idx, ok := kb.scenarioBy[id]
	if !ok {
		return model.Scenario{}, false
	}
	return cloneScenario(kb.scenarios[idx]), true
}

// ScenarioByName returns the first scenario whose display name matches.
func (kb *KnowledgeBase) ScenarioByName(name string) (model.Scenario, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	for _, s := range kb.scenarios {
		if s.Name == name {
			return cloneScenario(s), true
		}
	}
	return model.Scenario{}, false
}

// ListScenarios returns the catalog in load order.
func (kb *KnowledgeBase) ListScenarios() []model.Scenario {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	out := make([]model.Scenario, 0, len(kb.scenarios))
	for _, s := range kb.scenarios {
		out = append(out, cloneScenario(s))
	}
	return out
}

// Stats summarizes table sizes for logging.
type Stats struct {
	Routes           int
	Tariffs          int
	DuplicateTariffs int
	Markets          int
	Scenarios        int
}

// Stats returns the current table sizes.
func (kb *KnowledgeBase) Stats() Stats {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	return Stats{
		Routes:           len(kb.routes),
		Tariffs:          kb.tariffs.Len(),
		DuplicateTariffs: kb.tariffs.Duplicates(),
		Markets:          kb.margins.Len(),
		Scenarios:        len(kb.scenarios),
	}
}

func cloneScenario(s model.Scenario) model.Scenario {
	s.SourcingRestrictions = append([]string(nil), s.SourcingRestrictions...)
	s.RouteOrigin = append([]string(nil), s.RouteOrigin...)
	s.RouteDestination = append([]string(nil), s.RouteDestination...)
	return s
}
