package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

// BlockedPolicy decides how a blocked route counts toward revenue-loss totals.
type BlockedPolicy string

const (
	// BlockedExclude counts blocked routes as zero loss.
	BlockedExclude BlockedPolicy = "exclude"
	// BlockedMarginErosion counts the computed revenue_loss_usd of a blocked
	// route, as if it still traded at its pre-block cost.
	BlockedMarginErosion BlockedPolicy = "margin"
	// BlockedFullVolume counts the whole lane revenue (volume x price) as lost.
	BlockedFullVolume BlockedPolicy = "full_volume"
)

// ParseBlockedPolicy maps a configuration string onto a BlockedPolicy.
func ParseBlockedPolicy(s string) (BlockedPolicy, error) {
	switch BlockedPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case BlockedExclude:
		return BlockedExclude, nil
	case BlockedMarginErosion:
		return BlockedMarginErosion, nil
	case BlockedFullVolume, "":
		return BlockedFullVolume, nil
	default:
		return "", &InvalidConfigurationError{Field: "blocked_policy", Reason: fmt.Sprintf("unknown policy %q", s)}
	}
}

// MarketSummary is the per-destination breakdown of a Summary.
type MarketSummary struct {
	Market         string          `json:"market"`
	Routes         int             `json:"routes"`
	Blocked        int             `json:"blocked"`
	Unpriced       int             `json:"unpriced"`
	RevenueLossUSD decimal.Decimal `json:"revenue_loss_usd"`
}

// Summary totals a result table for presentation.
type Summary struct {
	ScenarioID          string          `json:"scenario_id,omitempty"`
	Policy              BlockedPolicy   `json:"blocked_policy"`
	Routes              int             `json:"routes"`
	Blocked             int             `json:"blocked"`
	Unpriced            int             `json:"unpriced"`
	TotalRevenueLossUSD decimal.Decimal `json:"total_revenue_loss_usd"`
	Markets             []MarketSummary `json:"markets"`
}

// Aggregate totals revenue loss overall and per market. Routes without a
// baseline row contribute nothing and are counted as unpriced. Markets are
// sorted by code.
func Aggregate(results []model.Result, policy BlockedPolicy, p Pricing) (Summary, error) {
	if err := p.Validate(); err != nil {
		return Summary{}, err
	}
	switch policy {
	case BlockedExclude, BlockedMarginErosion, BlockedFullVolume:
	default:
		return Summary{}, &InvalidConfigurationError{Field: "blocked_policy", Reason: fmt.Sprintf("unknown policy %q", policy)}
	}

	sum := Summary{Policy: policy, Routes: len(results)}
	byMarket := make(map[string]*MarketSummary)
	price := decimal.NewFromFloat(p.PricePerUnit)

	for _, r := range results {
		ms, ok := byMarket[r.DestinationMarket]
		if !ok {
			ms = &MarketSummary{Market: r.DestinationMarket}
			byMarket[r.DestinationMarket] = ms
		}
		ms.Routes++
		if r.Blocked {
			sum.Blocked++
			ms.Blocked++
		}
		if !r.Priced() {
			sum.Unpriced++
			ms.Unpriced++
			continue
		}

		var loss decimal.Decimal
		switch {
		case !r.Blocked, policy == BlockedMarginErosion:
			loss = decimal.NewFromFloat(*r.RevenueLossUSD)
		case policy == BlockedFullVolume:
			loss = decimal.NewFromFloat(*r.AverageVolumeUnits).Mul(price)
		}
		ms.RevenueLossUSD = ms.RevenueLossUSD.Add(loss)
		sum.TotalRevenueLossUSD = sum.TotalRevenueLossUSD.Add(loss)
	}

	sum.Markets = make([]MarketSummary, 0, len(byMarket))
	for _, ms := range byMarket {
		sum.Markets = append(sum.Markets, *ms)
	}
	sort.Slice(sum.Markets, func(i, j int) bool { return sum.Markets[i].Market < sum.Markets[j].Market })
	return sum, nil
}
