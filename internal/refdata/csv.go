package refdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/signalsfoundry/supplychain-scenario-sim/core"
	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

// ErrMissingColumn is returned when a CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// header maps column names to positions. The first occurrence of a name
// wins, so a repeated column ("x" then "x.1") resolves to the first one.
type header map[string]int

func readHeader(r *csv.Reader, required ...string) (header, error) {
	names, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
		}
		return nil, err
	}
	h := make(header, len(names))
	for i, n := range names {
		n = strings.TrimSpace(strings.TrimPrefix(n, "\ufeff"))
		if _, dup := h[n]; !dup {
			h[n] = i
		}
	}
	for _, col := range required {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}
	return h, nil
}

// get returns the trimmed cell for col, or "" when the column is absent.
func (h header) get(rec []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr
}

// DecodeRoutes parses an outbound-routes CSV. route_id, origin_brewery,
// destination_market, freight_cost_usd_total and tariff_percent are
// required; blocked, lead_time_days and the descriptive columns are optional.
// An "origin_country" column is accepted in place of "origin_brewery".
func DecodeRoutes(r io.Reader) ([]model.Route, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, fmt.Errorf("DecodeRoutes: %w", err)
	}
	originCol := "origin_brewery"
	if _, ok := h[originCol]; !ok {
		if _, alt := h["origin_country"]; alt {
			originCol = "origin_country"
		}
	}
	for _, col := range []string{"route_id", originCol, "destination_market", "freight_cost_usd_total", "tariff_percent"} {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("DecodeRoutes: %w: %q", ErrMissingColumn, col)
		}
	}

	var out []model.Route
	for idx := 0; ; idx++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("DecodeRoutes: row %d: %w", idx, err)
		}
		route, err := decodeRoute(idx, h, originCol, rec)
		if err != nil {
			return nil, fmt.Errorf("DecodeRoutes: %w", err)
		}
		out = append(out, route)
	}
	return out, nil
}

func decodeRoute(idx int, h header, originCol string, rec []string) (model.Route, error) {
	r := model.Route{
		RouteID:           h.get(rec, "route_id"),
		Origin:            h.get(rec, originCol),
		DestinationMarket: h.get(rec, "destination_market"),
		ProductID:         h.get(rec, "product_id"),
		Mode:              h.get(rec, "mode"),
		Region:            h.get(rec, "region"),
	}
	missing := func(field string) error {
		return &core.MissingFieldError{Index: idx, RouteID: r.RouteID, Field: field}
	}
	invalid := func(field, raw string) error {
		return &core.InvalidFieldError{Index: idx, RouteID: r.RouteID, Field: field, Reason: fmt.Sprintf("cannot parse %q", raw)}
	}

	switch {
	case r.RouteID == "":
		return model.Route{}, missing("route_id")
	case r.Origin == "":
		return model.Route{}, missing("origin_brewery")
	case r.DestinationMarket == "":
		return model.Route{}, missing("destination_market")
	}

	for _, f := range []struct {
		col string
		dst *float64
	}{
		{"freight_cost_usd_total", &r.FreightCostUSD},
		{"tariff_percent", &r.TariffPercent},
	} {
		raw := h.get(rec, f.col)
		if isBlank(raw) {
			return model.Route{}, missing(f.col)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.Route{}, invalid(f.col, raw)
		}
		*f.dst = v
	}

	if raw := h.get(rec, "blocked"); !isBlank(raw) {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return model.Route{}, invalid("blocked", raw)
		}
		r.Blocked = b
	}
	if raw := h.get(rec, "lead_time_days"); !isBlank(raw) {
		n, err := parseWholeNumber(raw)
		if err != nil {
			return model.Route{}, invalid("lead_time_days", raw)
		}
		r.LeadTimeDays = n
	}

	for _, f := range []struct {
		col string
		dst **float64
	}{
		{"distance_km", &r.Distance},
		{"origin_latitude", &r.Geo.OriginLat},
		{"origin_longitude", &r.Geo.OriginLon},
		{"destination_latitude", &r.Geo.DestLat},
		{"destination_longitude", &r.Geo.DestLon},
	} {
		raw := h.get(rec, f.col)
		if isBlank(raw) {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.Route{}, invalid(f.col, raw)
		}
		*f.dst = &v
	}
	return r, nil
}

// DecodeTariffs parses a tariff-schedule CSV.
func DecodeTariffs(r io.Reader) ([]model.TariffEntry, error) {
	cr := newReader(r)
	h, err := readHeader(cr, "origin_country", "destination_country", "hs_code", "tariff_percent")
	if err != nil {
		return nil, fmt.Errorf("DecodeTariffs: %w", err)
	}

	var out []model.TariffEntry
	for idx := 0; ; idx++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("DecodeTariffs: row %d: %w", idx, err)
		}
		e := model.TariffEntry{
			OriginCountry:      h.get(rec, "origin_country"),
			DestinationCountry: h.get(rec, "destination_country"),
			HSCode:             h.get(rec, "hs_code"),
		}
		if e.OriginCountry == "" || e.DestinationCountry == "" || e.HSCode == "" {
			return nil, fmt.Errorf("DecodeTariffs: row %d: origin_country, destination_country and hs_code are required", idx)
		}
		raw := h.get(rec, "tariff_percent")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || !finite(v) {
			return nil, fmt.Errorf("DecodeTariffs: row %d: tariff_percent %q is not a number", idx, raw)
		}
		e.TariffPercent = v
		out = append(out, e)
	}
	return out, nil
}

// DecodeMargins parses a market-baseline-margins CSV. Extra columns such as
// latitude and longitude are ignored.
func DecodeMargins(r io.Reader) ([]model.MarginEntry, error) {
	cr := newReader(r)
	h, err := readHeader(cr, "country", "baseline_margin_percent", "average_volume_units_per_route")
	if err != nil {
		return nil, fmt.Errorf("DecodeMargins: %w", err)
	}

	var out []model.MarginEntry
	for idx := 0; ; idx++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("DecodeMargins: row %d: %w", idx, err)
		}
		e := model.MarginEntry{Country: h.get(rec, "country")}
		if e.Country == "" {
			return nil, fmt.Errorf("DecodeMargins: row %d: country is required", idx)
		}
		for _, f := range []struct {
			col string
			dst *float64
		}{
			{"baseline_margin_percent", &e.BaselineMarginPercent},
			{"average_volume_units_per_route", &e.AverageVolumeUnits},
		} {
			raw := h.get(rec, f.col)
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || !finite(v) {
				return nil, fmt.Errorf("DecodeMargins: row %d (%s): %s %q is not a number", idx, e.Country, f.col, raw)
			}
			*f.dst = v
		}
		out = append(out, e)
	}
	return out, nil
}

// isBlank treats the usual spellings of a missing value in exported tables as empty.
func isBlank(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "none", "null":
		return true
	}
	return false
}

// parseWholeNumber accepts "7" and "7.0", which exporters write for integer
// columns that once held a missing value.
func parseWholeNumber(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not a whole number: %q", s)
	}
	return int(f), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
