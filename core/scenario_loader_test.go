package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

const scenariosJSON = `
[
  {
    "id": "S1",
    "name": "Mexico Sourcing Ban",
    "description": "Ban all Mexican supply",
    "sourcing_restrictions": ["MX"],
    "route_origin": ["Global"],
    "route_destination": ["Global"],
    "tariff_multiplier": 1.0,
    "freight_multiplier": 1.0,
    "lead_time_delay_days": 0
  },
  {
    "id": "S3",
    "name": "NL to USA Freight Shock",
    "sourcing_restrictions": null,
    "route_origin": ["NL"],
    "route_destination": ["USA"],
    "tariff_multiplier": 1.25,
    "freight_multiplier": 3,
    "lead_time_delay_days": 14
  }
]`

func TestLoadScenarios_Decodes(t *testing.T) {
	got, err := LoadScenarios(strings.NewReader(scenariosJSON))
	if err != nil {
		t.Fatalf("LoadScenarios returned error: %v", err)
	}
	want := []model.Scenario{
		{
			ID:                   "S1",
			Name:                 "Mexico Sourcing Ban",
			Description:          "Ban all Mexican supply",
			SourcingRestrictions: []string{"MX"},
			RouteOrigin:          []string{"Global"},
			RouteDestination:     []string{"Global"},
			TariffMultiplier:     1,
			FreightMultiplier:    1,
		},
		{
			ID:                   "S3",
			Name:                 "NL to USA Freight Shock",
			SourcingRestrictions: []string{},
			RouteOrigin:          []string{"NL"},
			RouteDestination:     []string{"USA"},
			TariffMultiplier:     1.25,
			FreightMultiplier:    3,
			LeadTimeDelayDays:    14,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("LoadScenarios mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadScenarios_Empty(t *testing.T) {
	got, err := LoadScenarios(strings.NewReader(`[]`))
	if err != nil {
		t.Fatalf("LoadScenarios returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no scenarios, got %d", len(got))
	}
}

func TestLoadScenarios_Rejects(t *testing.T) {
	base := func(override string) string {
		fields := map[string]string{
			"id":                    `"SX"`,
			"name":                  `"Broken"`,
			"sourcing_restrictions": `[]`,
			"route_origin":          `["Global"]`,
			"route_destination":     `["Global"]`,
			"tariff_multiplier":     `1`,
			"freight_multiplier":    `1`,
			"lead_time_delay_days":  `0`,
		}
		key, val, _ := strings.Cut(override, "=")
		if val == "<absent>" {
			delete(fields, key)
		} else if key != "" {
			fields[key] = val
		}
		var b strings.Builder
		b.WriteString("[{")
		first := true
		for k, v := range fields {
			if !first {
				b.WriteString(",")
			}
			first = false
			b.WriteString(`"` + k + `":` + v)
		}
		b.WriteString("}]")
		return b.String()
	}

	cases := []struct {
		name     string
		override string
		field    string
	}{
		{"missing tariff multiplier", "tariff_multiplier=<absent>", "tariff_multiplier"},
		{"missing sourcing restrictions", "sourcing_restrictions=<absent>", "sourcing_restrictions"},
		{"missing name", "name=<absent>", "name"},
		{"null multiplier", "freight_multiplier=null", "freight_multiplier"},
		{"null origin filter", "route_origin=null", "route_origin"},
		{"string multiplier", `tariff_multiplier="2"`, "tariff_multiplier"},
		{"fractional delay", "lead_time_delay_days=1.5", "lead_time_delay_days"},
		{"empty origin filter", "route_origin=[]", "route_origin"},
		{"global mixed with countries", `route_destination=["Global","USA"]`, "route_destination"},
		{"negative multiplier", "freight_multiplier=-1", "freight_multiplier"},
		{"negative delay", "lead_time_delay_days=-3", "lead_time_delay_days"},
		{"global restriction", `sourcing_restrictions=["Global"]`, "sourcing_restrictions"},
		{"empty id", `id=""`, "id"},
		{"numeric id", "id=42", "id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadScenarios(strings.NewReader(base(tc.override)))
			if !errors.Is(err, ErrInvalidScenario) {
				t.Fatalf("err = %v, want ErrInvalidScenario", err)
			}
			var ise *InvalidScenarioError
			if !errors.As(err, &ise) {
				t.Fatalf("err = %T, want *InvalidScenarioError", err)
			}
			if ise.Field != tc.field {
				t.Fatalf("field = %q, want %q (err: %v)", ise.Field, tc.field, err)
			}
		})
	}
}

func TestLoadScenarios_ErrorsCarryScenarioID(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		wantID string
		field  string
	}{
		{
			"missing key labelled with id",
			`[{"id":"S7","name":"x","sourcing_restrictions":[],"route_origin":["Global"],"route_destination":["Global"],"tariff_multiplier":1,"freight_multiplier":1}]`,
			"S7", "lead_time_delay_days",
		},
		{
			"wrong-typed id leaves label empty",
			`[{"id":7,"sourcing_restrictions":[],"route_origin":["Global"],"route_destination":["Global"],"tariff_multiplier":1,"freight_multiplier":1,"lead_time_delay_days":0}]`,
			"", "name",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadScenarios(strings.NewReader(tc.input))
			var ise *InvalidScenarioError
			if !errors.As(err, &ise) {
				t.Fatalf("err = %v, want *InvalidScenarioError", err)
			}
			if ise.ScenarioID != tc.wantID || ise.Field != tc.field {
				t.Fatalf("ScenarioID, Field = %q, %q, want %q, %q", ise.ScenarioID, ise.Field, tc.wantID, tc.field)
			}
		})
	}
}

func TestLoadScenarios_DuplicateID(t *testing.T) {
	doc := `[
	  {"id":"S1","name":"a","sourcing_restrictions":[],"route_origin":["Global"],"route_destination":["Global"],"tariff_multiplier":1,"freight_multiplier":1,"lead_time_delay_days":0},
	  {"id":"S1","name":"b","sourcing_restrictions":[],"route_origin":["Global"],"route_destination":["Global"],"tariff_multiplier":1,"freight_multiplier":1,"lead_time_delay_days":0}
	]`
	_, err := LoadScenarios(strings.NewReader(doc))
	if !errors.Is(err, ErrInvalidScenario) || !strings.Contains(err.Error(), "entry 1") {
		t.Fatalf("err = %v, want duplicate-id rejection at entry 1", err)
	}
}

func TestLoadScenarios_MalformedJSON(t *testing.T) {
	if _, err := LoadScenarios(strings.NewReader(`{"id": "S1"}`)); err == nil {
		t.Fatalf("expected error decoding a non-array document")
	}
	if _, err := LoadScenarios(strings.NewReader(`[`)); err == nil {
		t.Fatalf("expected error decoding truncated JSON")
	}
}
