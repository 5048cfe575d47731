package market

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/logistix/vintedsync/internal/model"
	"github.com/logistix/vintedsync/internal/testutil"
	"github.com/logistix/vintedsync/internal/vinted"
)

const testUser = "user-1"

func soldItems(prices ...float64) []model.MarketplaceItem {
	items := make([]model.MarketplaceItem, 0, len(prices))
	for i, p := range prices {
		it := testutil.Item(testutil.UniqueName("i", i), testutil.UniqueName("item", i), p)
		it.StatusID = model.StatusIDSold
		items = append(items, it)
	}
	return items
}

func TestAnalyzeProduct_NoComparables(t *testing.T) {
	repo := testutil.NewFakeProductRepo()
	repo.Seed(testutil.Product("p1", testUser, "Pull Lacoste vert"))

	svc := NewService(vinted.NewMockAPI(), repo, testutil.NewFakeAnalysisRepo())
	_, err := svc.AnalyzeProduct(context.Background(), "p1", testUser)
	if !errors.Is(err, ErrNoComparables) {
		t.Fatalf("expected ErrNoComparables, got %v", err)
	}
	if err.Error() != "Aucun article similaire vendu trouvé sur Vinted" {
		t.Errorf("message changed: %q", err.Error())
	}
}

func TestAnalyzeProduct_NoUsablePrices(t *testing.T) {
	repo := testutil.NewFakeProductRepo()
	repo.Seed(testutil.Product("p1", testUser, "Pull Lacoste vert"))

	api := vinted.NewMockAPI()
	unpriced := testutil.Item("1", "Pull Lacoste vert", 0)
	unpriced.Price = nil
	api.SetSearchResult("Pull Lacoste vert", &vinted.SearchResult{
		Items: []model.MarketplaceItem{unpriced},
	})

	svc := NewService(api, repo, testutil.NewFakeAnalysisRepo())
	if _, err := svc.AnalyzeProduct(context.Background(), "p1", testUser); !errors.Is(err, ErrNoPrices) {
		t.Fatalf("expected ErrNoPrices, got %v", err)
	}
}

func TestAnalyzeProduct_MergesEnrichment(t *testing.T) {
	repo := testutil.NewFakeProductRepo()
	p := testutil.Product("p1", testUser, "Pull Lacoste vert")
	p.Enrichment = &model.EnrichmentData{Brand: "Lacoste", Category: "Pulls"}
	repo.Seed(p)

	api := vinted.NewMockAPI()
	api.SetSearchResult("Pull Lacoste vert", &vinted.SearchResult{Items: soldItems(10, 20, 30)})

	svc := NewService(api, repo, testutil.NewFakeAnalysisRepo())
	updated, err := svc.AnalyzeProduct(context.Background(), "p1", testUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	enr := updated.Enrichment
	if enr.Brand != "Lacoste" || enr.Category != "Pulls" {
		t.Errorf("brand/category must be preserved, got %+v", enr)
	}
	if enr.Status != EnrichmentDone {
		t.Errorf("status = %q, want %q", enr.Status, EnrichmentDone)
	}
	if enr.Market == nil || enr.Market.Price.Average != 20 {
		t.Fatalf("unexpected market stats: %+v", enr.Market)
	}

	// Persisted, not just returned.
	if stored := repo.Get("p1"); stored.Enrichment == nil || stored.Enrichment.Market == nil {
		t.Error("enrichment must be written through the repository")
	}
}

func TestAnalyzeProduct_NormalizesBrandTypos(t *testing.T) {
	repo := testutil.NewFakeProductRepo()
	repo.Seed(testutil.Product("p1", testUser, "nik Air Max"))

	api := vinted.NewMockAPI()
	api.SetSearchResult("nike Air Max", &vinted.SearchResult{Items: soldItems(40, 50)})

	svc := NewService(api, repo, testutil.NewFakeAnalysisRepo())
	if _, err := svc.AnalyzeProduct(context.Background(), "p1", testUser); err != nil {
		t.Fatalf("typo-corrected search not routed: %v", err)
	}
}

func TestAnalyzeSearch_EmptyResultYieldsEmptyAnalysis(t *testing.T) {
	analyses := testutil.NewFakeAnalysisRepo()
	svc := NewService(vinted.NewMockAPI(), testutil.NewFakeProductRepo(), analyses)

	analysis, err := svc.AnalyzeSearch(context.Background(), testUser, "introuvable")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Summary.ItemsFound != 0 {
		t.Errorf("itemsFound = %d, want 0", analysis.Summary.ItemsFound)
	}
	if analysis.KPIs != (KPISet{}) {
		t.Errorf("KPIs must stay zero without items, got %+v", analysis.KPIs)
	}

	// Even empty analyses land in the history.
	records, err := analyses.History(context.Background(), "introuvable", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(records))
	}
}

func TestAnalyzeSearch_ComputesKPIs(t *testing.T) {
	api := vinted.NewMockAPI()
	items := soldItems(10, 20, 30)
	items[0].Brand = "Nike"
	items[0].SellerLogin = "alice"
	items[1].Brand = "Nike"
	items[1].SellerLogin = "bob"
	items[2].SellerLogin = "alice"
	api.SetSearchResult("nike air max", &vinted.SearchResult{Items: items})

	analyses := testutil.NewFakeAnalysisRepo()
	svc := NewService(api, testutil.NewFakeProductRepo(), analyses)

	analysis, err := svc.AnalyzeSearch(context.Background(), testUser, "nike air max")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if analysis.PriceAnalysis.Average != 20 || analysis.PriceAnalysis.Median != 20 {
		t.Errorf("unexpected price stats: %+v", analysis.PriceAnalysis)
	}
	if analysis.Summary.ItemsFound != 3 || analysis.Summary.SellersCount != 2 {
		t.Errorf("unexpected summary: %+v", analysis.Summary)
	}
	if analysis.BrandDistribution["Nike"] != 2 || analysis.BrandDistribution["Non spécifié"] != 1 {
		t.Errorf("unexpected brand distribution: %+v", analysis.BrandDistribution)
	}

	kpis := analysis.KPIs
	if kpis.RecommendedPrice != 19.0 {
		t.Errorf("recommended price = %v, want 19.0", kpis.RecommendedPrice)
	}
	if kpis.TurnoverRate != 50.0 {
		t.Errorf("turnover rate = %v, want 50.0", kpis.TurnoverRate)
	}
	// stddev({10,20,30}) ≈ 8.165, so 1/(8.165+1)*2 sellers ≈ 0.22.
	if kpis.CompetitivenessScore != 0.22 {
		t.Errorf("competitiveness = %v, want 0.22", kpis.CompetitivenessScore)
	}
	if kpis.PriceTrend30d != 0 {
		t.Errorf("trend without history = %v, want 0", kpis.PriceTrend30d)
	}
}

func TestAnalyzeSearch_PriceTrendAgainstOldestRecord(t *testing.T) {
	api := vinted.NewMockAPI()
	api.SetSearchResult("robe zara", &vinted.SearchResult{Items: soldItems(20)})

	analyses := testutil.NewFakeAnalysisRepo()
	now := time.Now().UTC()
	recent, _ := json.Marshal(Analysis{PriceAnalysis: model.PriceStats{Average: 22}})
	analyses.SeedHistory("robe zara", now.Add(-24*time.Hour), recent)
	oldest, _ := json.Marshal(Analysis{PriceAnalysis: model.PriceStats{Average: 16}})
	analyses.SeedHistory("robe zara", now.Add(-20*24*time.Hour), oldest)

	svc := NewService(api, testutil.NewFakeProductRepo(), analyses)
	analysis, err := svc.AnalyzeSearch(context.Background(), testUser, "robe zara")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// (20 - 16) / 16 * 100
	if analysis.KPIs.PriceTrend30d != 25.0 {
		t.Errorf("trend = %v, want 25.0", analysis.KPIs.PriceTrend30d)
	}
}

func TestAnalyzeSearch_SingleHistoryRecordNoTrend(t *testing.T) {
	api := vinted.NewMockAPI()
	api.SetSearchResult("robe zara", &vinted.SearchResult{Items: soldItems(20)})

	analyses := testutil.NewFakeAnalysisRepo()
	prev, _ := json.Marshal(Analysis{PriceAnalysis: model.PriceStats{Average: 16}})
	analyses.SeedHistory("robe zara", time.Now().UTC().Add(-time.Hour), prev)

	svc := NewService(api, testutil.NewFakeProductRepo(), analyses)
	analysis, err := svc.AnalyzeSearch(context.Background(), testUser, "robe zara")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.KPIs.PriceTrend30d != 0 {
		t.Errorf("one record is not a trend, got %v", analysis.KPIs.PriceTrend30d)
	}
}

func TestNormalizeSearchText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"nik air max", "nike air max"},
		{"Nik Air Max", "nike Air Max"},
		{"addidas gazelle", "adidas gazelle"},
		{"pumaa suede", "puma suede"},
		{"zaraa robe", "zara robe"},
		{"nike air max", "nike air max"},
		{"  robe   zara  ", "robe zara"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSearchText(tt.in); got != tt.want {
			t.Errorf("NormalizeSearchText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
