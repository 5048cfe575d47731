package stats

import (
	"math"
	"testing"

	"github.com/logistix/vintedsync/internal/model"
)

func priced(amounts ...float64) []model.MarketplaceItem {
	items := make([]model.MarketplaceItem, len(amounts))
	for i, a := range amounts {
		items[i] = model.MarketplaceItem{
			ID:    "it",
			Title: "item",
			Price: &model.Money{Amount: a, Currency: "EUR"},
		}
	}
	return items
}

func TestCalculate_Empty(t *testing.T) {
	result := Calculate(nil)

	if result.TotalItems != 0 {
		t.Errorf("expected 0 items, got %d", result.TotalItems)
	}
	if result.Price != (model.PriceStats{}) {
		t.Errorf("expected zeroed price stats, got %+v", result.Price)
	}
	if result.Velocity.SoldPerDay != nil {
		t.Errorf("expected nil sold-per-day, got %v", *result.Velocity.SoldPerDay)
	}
	if result.Velocity.TurnoverRate != TurnoverUnknown {
		t.Errorf("expected turnover %q, got %q", TurnoverUnknown, result.Velocity.TurnoverRate)
	}
	if result.Samples == nil || len(result.Samples) != 0 {
		t.Errorf("expected empty samples slice, got %v", result.Samples)
	}
}

func TestCalculate_UnparseablePricesOnly(t *testing.T) {
	items := []model.MarketplaceItem{
		{ID: "1", Title: "no price"},
		{ID: "2", Title: "also no price"},
	}
	result := Calculate(items)
	if result.TotalItems != 0 {
		t.Errorf("expected 0 valid items, got %d", result.TotalItems)
	}
	if result.Velocity.TurnoverRate != TurnoverUnknown {
		t.Errorf("expected turnover %q, got %q", TurnoverUnknown, result.Velocity.TurnoverRate)
	}
}

func TestCalculate_Example(t *testing.T) {
	result := Calculate(priced(10, 20, 30))

	if result.TotalItems != 3 {
		t.Fatalf("expected 3 items, got %d", result.TotalItems)
	}
	want := model.PriceStats{Min: 10, Max: 30, Average: 20, Median: 20}
	if result.Price != want {
		t.Errorf("expected %+v, got %+v", want, result.Price)
	}
}

func TestCalculate_MedianLowerMiddle(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		median float64
	}{
		{"odd count", []float64{5, 1, 9}, 5},
		{"even count uses lower middle", []float64{10, 20, 30, 40}, 20},
		{"two elements", []float64{7, 3}, 3},
		{"single element", []float64{42}, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Calculate(priced(tt.prices...))
			if result.Price.Median != tt.median {
				t.Errorf("expected median %.2f, got %.2f", tt.median, result.Price.Median)
			}
		})
	}
}

func TestCalculate_Bounds(t *testing.T) {
	samples := [][]float64{
		{1},
		{3.5, 2.25},
		{100, 1, 50, 50, 2},
		{9.99, 9.99, 9.99},
		{0.01, 1000},
	}

	for _, prices := range samples {
		result := Calculate(priced(prices...))
		p := result.Price
		if p.Min > p.Median || p.Median > p.Max {
			t.Errorf("min <= median <= max violated for %v: %+v", prices, p)
		}
		if p.Min > p.Average || p.Average > p.Max {
			t.Errorf("min <= average <= max violated for %v: %+v", prices, p)
		}
	}
}

func TestCalculate_AverageRounding(t *testing.T) {
	result := Calculate(priced(10, 20, 25))
	if math.Abs(result.Price.Average-18.33) > 1e-9 {
		t.Errorf("expected average 18.33, got %v", result.Price.Average)
	}
}

func TestCalculate_SampleCap(t *testing.T) {
	result := Calculate(priced(1, 2, 3, 4, 5, 6, 7, 8))
	if len(result.Samples) != MaxSamples {
		t.Errorf("expected %d samples, got %d", MaxSamples, len(result.Samples))
	}
}

func TestCalculate_MixedValidity(t *testing.T) {
	items := append(priced(10, 30), model.MarketplaceItem{ID: "x", Title: "unpriced"})
	result := Calculate(items)
	if result.TotalItems != 2 {
		t.Errorf("expected 2 valid items, got %d", result.TotalItems)
	}
	if result.Price.Min != 10 || result.Price.Max != 30 {
		t.Errorf("unexpected stats: %+v", result.Price)
	}
}

func TestDistribute(t *testing.T) {
	items := []model.MarketplaceItem{
		{ID: "1", Price: &model.Money{Amount: 10}, Brand: "Nike", Condition: "Très bon état", SellerLogin: "alice"},
		{ID: "2", Price: &model.Money{Amount: 12}, Brand: "Nike", Condition: "Bon état", SellerLogin: "bob"},
		{ID: "3", Price: &model.Money{Amount: 14}, SellerLogin: "alice"},
		{ID: "4", Brand: "Adidas"}, // unpriced, ignored
	}

	dist := Distribute(items)
	if dist.Brands["Nike"] != 2 {
		t.Errorf("expected 2 Nike, got %d", dist.Brands["Nike"])
	}
	if dist.Brands["Non spécifié"] != 1 {
		t.Errorf("expected 1 unspecified brand, got %d", dist.Brands["Non spécifié"])
	}
	if dist.Brands["Adidas"] != 0 {
		t.Errorf("unpriced item must not count, got %d", dist.Brands["Adidas"])
	}
	if dist.Sellers != 2 {
		t.Errorf("expected 2 distinct sellers, got %d", dist.Sellers)
	}
}

func TestStdDev(t *testing.T) {
	if got := StdDev(priced(5)); got != 0 {
		t.Errorf("expected 0 for single price, got %v", got)
	}
	// Population stddev of {2,4,4,4,5,5,7,9} is exactly 2.
	got := StdDev(priced(2, 4, 4, 4, 5, 5, 7, 9))
	if math.Abs(got-2) > 1e-9 {
		t.Errorf("expected stddev 2, got %v", got)
	}
}

func TestRound1(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{12.34, 12.3},
		{12.35, 12.4},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Round1(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Round1(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
