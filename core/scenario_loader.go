package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

// scenarioRequiredKeys are the keys every scenario object must carry.
// "description" is the only optional key.
var scenarioRequiredKeys = []string{
	"id",
	"name",
	"sourcing_restrictions",
	"route_origin",
	"route_destination",
	"tariff_multiplier",
	"freight_multiplier",
	"lead_time_delay_days",
}

// LoadScenarios decodes a JSON array of scenario objects and validates each
// one. A missing key is an InvalidScenarioError; nothing is defaulted.
// sourcing_restrictions alone may be null, which reads as no restrictions.
func LoadScenarios(r io.Reader) ([]model.Scenario, error) {
	var raw []map[string]json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("LoadScenarios: decode failed: %w", err)
	}

	out := make([]model.Scenario, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, obj := range raw {
		sc, err := decodeScenario(obj)
		if err != nil {
			return nil, fmt.Errorf("LoadScenarios: entry %d: %w", i, err)
		}
		if err := ValidateScenario(sc); err != nil {
			return nil, fmt.Errorf("LoadScenarios: entry %d: %w", i, err)
		}
		if _, dup := seen[sc.ID]; dup {
			return nil, fmt.Errorf("LoadScenarios: entry %d: %w", i,
				&InvalidScenarioError{ScenarioID: sc.ID, Field: "id", Reason: "is duplicated"})
		}
		seen[sc.ID] = struct{}{}
		out = append(out, sc)
	}
	return out, nil
}

func decodeScenario(obj map[string]json.RawMessage) (model.Scenario, error) {
	var sc model.Scenario
	// Best effort, only to label the errors below; "id" is decoded and
	// checked with the other fields.
	if v, ok := obj["id"]; ok {
		_ = json.Unmarshal(v, &sc.ID)
	}

	for _, key := range scenarioRequiredKeys {
		v, ok := obj[key]
		if !ok {
			return model.Scenario{}, &InvalidScenarioError{ScenarioID: sc.ID, Field: key, Reason: "is required"}
		}
		if isNull(v) && key != "sourcing_restrictions" {
			return model.Scenario{}, &InvalidScenarioError{ScenarioID: sc.ID, Field: key, Reason: "must not be null"}
		}
	}

	fields := []struct {
		key string
		dst any
	}{
		{"id", &sc.ID},
		{"name", &sc.Name},
		{"sourcing_restrictions", &sc.SourcingRestrictions},
		{"route_origin", &sc.RouteOrigin},
		{"route_destination", &sc.RouteDestination},
		{"tariff_multiplier", &sc.TariffMultiplier},
		{"freight_multiplier", &sc.FreightMultiplier},
		{"lead_time_delay_days", &sc.LeadTimeDelayDays},
	}
	for _, f := range fields {
		if err := json.Unmarshal(obj[f.key], f.dst); err != nil {
			return model.Scenario{}, &InvalidScenarioError{ScenarioID: sc.ID, Field: f.key, Reason: "has the wrong type: " + err.Error()}
		}
	}
	if v, ok := obj["description"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &sc.Description); err != nil {
			return model.Scenario{}, &InvalidScenarioError{ScenarioID: sc.ID, Field: "description", Reason: "must be a string"}
		}
	}
	if sc.SourcingRestrictions == nil {
		sc.SourcingRestrictions = []string{}
	}
	return sc, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
