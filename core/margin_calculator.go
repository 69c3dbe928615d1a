package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

// MarginLookup resolves the baseline margin row for a destination market.
// kb.KnowledgeBase and kb.MarginTable implement it.
type MarginLookup interface {
	Margin(country string) (model.MarginEntry, bool)
}

// Pricing carries the run-level pricing inputs of the margin arithmetic.
type Pricing struct {
	PricePerUnit float64 // USD per unit, > 0
	ClampMargins bool    // clamp new_margin and margin_delta to [-1, 1]
}

// NewPricing validates and returns a Pricing.
func NewPricing(pricePerUnit float64, clamp bool) (Pricing, error) {
	p := Pricing{PricePerUnit: pricePerUnit, ClampMargins: clamp}
	if err := p.Validate(); err != nil {
		return Pricing{}, err
	}
	return p, nil
}

// Validate rejects prices that would make the margin division undefined.
func (p Pricing) Validate() error {
	if math.IsNaN(p.PricePerUnit) || math.IsInf(p.PricePerUnit, 0) {
		return &InvalidConfigurationError{Field: "price_per_unit", Reason: "must be a finite number"}
	}
	if p.PricePerUnit <= 0 {
		return &InvalidConfigurationError{Field: "price_per_unit", Reason: fmt.Sprintf("must be > 0, got %v", p.PricePerUnit)}
	}
	return nil
}

// CalculateMargins left-joins adjusted routes to baseline margins and derives
// the financial columns. Output order follows input order.
//
// A route whose market has no baseline row keeps nil baseline and financial
// fields; the gap stays visible rather than reading as zero.
func CalculateMargins(routes []model.Route, margins MarginLookup, p Pricing) ([]model.Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out := make([]model.Result, 0, len(routes))
	for i, r := range routes {
		if err := ValidateRoute(i, r); err != nil {
			return nil, err
		}
		res, err := marginRow(r, margins, p)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", r.RouteID, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func marginRow(r model.Route, margins MarginLookup, p Pricing) (model.Result, error) {
	price := p.PricePerUnit
	res := model.Result{
		RouteID:           r.RouteID,
		Origin:            r.Origin,
		DestinationMarket: r.DestinationMarket,
		TariffPercent:     r.TariffPercent,
		FreightCostUSD:    r.FreightCostUSD,
		TotalCostUSD:      r.FreightCostUSD + (r.TariffPercent/100)*price,
		Blocked:           r.Blocked,
		LeadTimeDays:      r.LeadTimeDays,
	}
	if !finite(res.TotalCostUSD) {
		return model.Result{}, fmt.Errorf("total_cost: %w", ErrNonFinite)
	}

	var (
		base model.MarginEntry
		ok   bool
	)
	if margins != nil {
		base, ok = margins.Margin(r.DestinationMarket)
	}
	if !ok {
		return res, nil
	}
	if !finite(base.BaselineMarginPercent) || !finite(base.AverageVolumeUnits) {
		return model.Result{}, fmt.Errorf("baseline row for %q: %w", base.Country, ErrNonFinite)
	}

	newMargin := (price - res.TotalCostUSD) / price
	if p.ClampMargins {
		newMargin = clampUnit(newMargin)
	}
	delta := base.BaselineMarginPercent/100 - newMargin
	if p.ClampMargins {
		delta = clampUnit(delta)
	}
	loss := delta * base.AverageVolumeUnits * price
	if !finite(newMargin) || !finite(delta) || !finite(loss) {
		return model.Result{}, fmt.Errorf("margin arithmetic: %w", ErrNonFinite)
	}

	res.BaselineMarginPercent = ptr(base.BaselineMarginPercent)
	res.AverageVolumeUnits = ptr(base.AverageVolumeUnits)
	res.NewMargin = ptr(newMargin)
	res.MarginDelta = ptr(delta)
	res.RevenueLossUSD = ptr(loss)
	return res, nil
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

func ptr[T any](v T) *T { return &v }
