package model

// Route is one directed shipment lane from an origin brewery (or supplier
// country) to a destination market.
type Route struct {
	RouteID           string  `json:"route_id"`
	Origin            string  `json:"origin_brewery"` // e.g. "NL_ZOE"; the country prefix precedes the first '_'
	DestinationMarket string  `json:"destination_market"`
	FreightCostUSD    float64 `json:"freight_cost_usd_total"`
	TariffPercent     float64 `json:"tariff_percent"` // percentage points
	Blocked           bool    `json:"blocked"`
	LeadTimeDays      int     `json:"lead_time_days"`

	// Passthrough attributes. The simulator never reads or derives them.
	ProductID string   `json:"product_id,omitempty"`
	Mode      string   `json:"mode,omitempty"`
	Region    string   `json:"region,omitempty"`
	Distance  *float64 `json:"distance_km,omitempty"`
	Geo       GeoPair  `json:"geo"`
}

// GeoPair holds optional origin/destination coordinates in decimal degrees.
type GeoPair struct {
	OriginLat *float64 `json:"origin_latitude,omitempty"`
	OriginLon *float64 `json:"origin_longitude,omitempty"`
	DestLat   *float64 `json:"destination_latitude,omitempty"`
	DestLon   *float64 `json:"destination_longitude,omitempty"`
}
