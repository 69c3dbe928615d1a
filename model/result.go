package model

// Result is one row of the margin table produced for a scenario.
//
// NewMargin, MarginDelta and RevenueLossUSD are nil when the destination
// market has no baseline-margin row. The baseline fields are nil in the same
// case.
type Result struct {
	RouteID           string  `json:"route_id"`
	Origin            string  `json:"origin"`
	DestinationMarket string  `json:"destination_market"`
	TariffPercent     float64 `json:"tariff_percent"`
	FreightCostUSD    float64 `json:"freight_cost_usd_total"`
	TotalCostUSD      float64 `json:"total_cost"`

	BaselineMarginPercent *float64 `json:"baseline_margin_percent"`
	AverageVolumeUnits    *float64 `json:"average_volume_units_per_route"`

	NewMargin      *float64 `json:"new_margin"`
	MarginDelta    *float64 `json:"margin_delta"`
	RevenueLossUSD *float64 `json:"revenue_loss_usd"`

	Blocked      bool `json:"blocked"`
	LeadTimeDays int  `json:"lead_time_days"`
}

// Priced reports whether the route joined a baseline-margin row.
func (r Result) Priced() bool { return r.NewMargin != nil }
