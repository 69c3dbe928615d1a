package model

// BeerHSCode is the harmonized-system code every tariff lookup is keyed on.
const BeerHSCode = "2203.00.00"

// TariffEntry is one row of the tariff schedule.
type TariffEntry struct {
	OriginCountry      string  `json:"origin_country"`
	DestinationCountry string  `json:"destination_country"`
	HSCode             string  `json:"hs_code"`
	TariffPercent      float64 `json:"tariff_percent"`
}

// MarginEntry is the pre-scenario margin profile of one destination market.
type MarginEntry struct {
	Country               string  `json:"country"`
	BaselineMarginPercent float64 `json:"baseline_margin_percent"`
	AverageVolumeUnits    float64 `json:"average_volume_units_per_route"`
}
