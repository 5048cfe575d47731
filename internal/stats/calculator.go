// Package stats computes market statistics from marketplace listings. All
// functions are pure: no I/O, no clock, deterministic for a given input.
package stats

import (
	"math"
	"sort"

	"github.com/logistix/vintedsync/internal/model"
)

// MaxSamples caps how many listings are returned for UI display.
const MaxSamples = 5

// TurnoverUnknown is the velocity placeholder when the sample carries no
// sell-through signal.
const TurnoverUnknown = "Unknown"

// Calculate aggregates price statistics over the given listings. Items
// without a parseable price are ignored. An empty (or fully unparseable)
// input yields a zeroed result with TurnoverRate "Unknown".
func Calculate(items []model.MarketplaceItem) model.MarketStatsResult {
	valid := make([]model.MarketplaceItem, 0, len(items))
	for _, it := range items {
		if it.Price != nil {
			valid = append(valid, it)
		}
	}

	result := model.MarketStatsResult{
		Velocity: model.Velocity{TurnoverRate: TurnoverUnknown},
		Samples:  []model.MarketplaceItem{},
	}
	if len(valid) == 0 {
		return result
	}

	prices := make([]float64, len(valid))
	sum := 0.0
	for i, it := range valid {
		prices[i] = it.Price.Amount
		sum += it.Price.Amount
	}
	sort.Float64s(prices)

	result.TotalItems = len(valid)
	result.Price = model.PriceStats{
		Min:     prices[0],
		Max:     prices[len(prices)-1],
		Average: round2(sum / float64(len(prices))),
		// Lower-middle element for even counts, no interpolation.
		Median: prices[(len(prices)-1)/2],
	}

	n := len(valid)
	if n > MaxSamples {
		n = MaxSamples
	}
	result.Samples = append(result.Samples, valid[:n]...)

	return result
}

// Distribution describes how a market sample spreads across brands,
// conditions and sellers.
type Distribution struct {
	Brands     map[string]int `json:"brands"`
	Conditions map[string]int `json:"conditions"`
	Sellers    int            `json:"sellers"`
}

// Distribute counts brand and condition occurrences and distinct sellers
// over the priced listings of the sample.
func Distribute(items []model.MarketplaceItem) Distribution {
	dist := Distribution{
		Brands:     make(map[string]int),
		Conditions: make(map[string]int),
	}
	sellers := make(map[string]struct{})
	for _, it := range items {
		if it.Price == nil {
			continue
		}
		brand := it.Brand
		if brand == "" {
			brand = "Non spécifié"
		}
		dist.Brands[brand]++

		cond := it.Condition
		if cond == "" {
			cond = "Non spécifié"
		}
		dist.Conditions[cond]++

		if it.SellerLogin != "" {
			sellers[it.SellerLogin] = struct{}{}
		}
	}
	dist.Sellers = len(sellers)
	return dist
}

// StdDev is the population standard deviation of the priced listings, 0 for
// samples of fewer than two prices.
func StdDev(items []model.MarketplaceItem) float64 {
	var prices []float64
	for _, it := range items {
		if it.Price != nil {
			prices = append(prices, it.Price.Amount)
		}
	}
	if len(prices) < 2 {
		return 0
	}

	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(len(prices))

	variance := 0.0
	for _, p := range prices {
		variance += (p - mean) * (p - mean)
	}
	variance /= float64(len(prices))

	return math.Sqrt(variance)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds to one decimal place. The sync service uses it for interest
// rates.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
