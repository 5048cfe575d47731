// Package market runs marketplace price analysis for products and free-text
// searches, from sold comparables.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/logistix/vintedsync/internal/model"
	"github.com/logistix/vintedsync/internal/stats"
	"github.com/logistix/vintedsync/internal/store"
	"github.com/logistix/vintedsync/internal/vinted"
)

// maxComparables caps how many sold listings one analysis samples.
const maxComparables = 40

// historyWindow is how many past analyses feed the price trend KPI.
const historyWindow = 30

// EnrichmentDone marks a product whose market analysis completed.
const EnrichmentDone = "done"

// ErrNoComparables is returned when the marketplace has no sold listings
// matching the product.
var ErrNoComparables = errors.New("Aucun article similaire vendu trouvé sur Vinted")

// ErrNoPrices is returned when none of the found comparables carries a
// parseable price.
var ErrNoPrices = errors.New("aucun prix exploitable dans les articles trouvés")

// brandCorrections fixes the brand typos sellers most commonly type into
// search.
var brandCorrections = map[string]string{
	"nik":     "nike",
	"addidas": "adidas",
	"pumaa":   "puma",
	"zaraa":   "zara",
}

// Summary counts what an analysis saw.
type Summary struct {
	ItemsFound   int `json:"itemsFound"`
	SellersCount int `json:"sellersCount"`
}

// KPISet holds the derived market indicators of an analysis.
type KPISet struct {
	RecommendedPrice     float64 `json:"recommendedPrice"`
	TurnoverRate         float64 `json:"turnoverRate"`
	RelativeMarketShare  string  `json:"relativeMarketShare"`
	CompetitivenessScore float64 `json:"competitivenessScore"`
	PriceTrend30d        float64 `json:"priceTrend30d"`
	PriceElasticity      string  `json:"priceElasticity"`
}

// Analysis is the full persisted market analysis document for a search.
type Analysis struct {
	AnalysisTimestamp     time.Time        `json:"analysisTimestamp"`
	SearchText            string           `json:"searchText"`
	PriceAnalysis         model.PriceStats `json:"priceAnalysis"`
	Summary               Summary          `json:"summary"`
	BrandDistribution     map[string]int   `json:"brandDistribution"`
	ConditionDistribution map[string]int   `json:"conditionDistribution"`
	KPIs                  KPISet           `json:"kpis"`
}

// Service orchestrates market analysis: fetch sold comparables, compute
// stats, persist.
type Service struct {
	api      vinted.API
	products store.ProductRepository
	analyses store.AnalysisRepository
}

// NewService creates a market service.
func NewService(api vinted.API, products store.ProductRepository, analyses store.AnalysisRepository) *Service {
	return &Service{api: api, products: products, analyses: analyses}
}

// AnalyzeProduct loads the product, samples sold comparables matching its
// name, computes price statistics and merges them into the product's
// enrichment data, preserving the identified brand/category fields. The
// updated product is persisted and returned.
func (s *Service) AnalyzeProduct(ctx context.Context, productID, userID string) (*model.Product, error) {
	p, err := s.products.GetByID(ctx, productID, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.api.SearchItems(ctx, userID, vinted.SearchParams{
		Text:      NormalizeSearchText(p.Name),
		StatusIDs: []int{model.StatusIDSold},
		PerPage:   maxComparables,
	})
	if err != nil {
		return nil, fmt.Errorf("search sold comparables: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, ErrNoComparables
	}

	market := stats.Calculate(result.Items)
	if market.TotalItems == 0 {
		return nil, ErrNoPrices
	}

	if p.Enrichment == nil {
		p.Enrichment = &model.EnrichmentData{}
	}
	p.Enrichment.Market = &market
	p.Enrichment.Status = EnrichmentDone

	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("persist enrichment for %s: %w", productID, err)
	}
	return p, nil
}

// AnalyzeSearch runs a standalone market analysis for a free-text query and
// appends it to the analysis history. A search with no results still yields
// (and persists) an empty analysis rather than an error.
func (s *Service) AnalyzeSearch(ctx context.Context, userID, searchText string) (*Analysis, error) {
	normalized := NormalizeSearchText(searchText)

	result, err := s.api.SearchItems(ctx, userID, vinted.SearchParams{
		Text:      normalized,
		StatusIDs: []int{model.StatusIDSold},
		PerPage:   96,
	})
	if err != nil {
		return nil, fmt.Errorf("search sold items: %w", err)
	}

	analysis := s.buildAnalysis(ctx, searchText, result.Items)

	data, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	if err := s.analyses.SaveAnalysis(ctx, searchText, data); err != nil {
		return nil, fmt.Errorf("persist analysis: %w", err)
	}
	return analysis, nil
}

// History returns the persisted analyses for a search, newest first.
func (s *Service) History(ctx context.Context, searchText string, limit int) ([]store.AnalysisRecord, error) {
	return s.analyses.History(ctx, searchText, limit)
}

func (s *Service) buildAnalysis(ctx context.Context, searchText string, items []model.MarketplaceItem) *Analysis {
	market := stats.Calculate(items)
	dist := stats.Distribute(items)

	analysis := &Analysis{
		AnalysisTimestamp: time.Now().UTC(),
		SearchText:        searchText,
		PriceAnalysis:     market.Price,
		Summary: Summary{
			ItemsFound:   market.TotalItems,
			SellersCount: dist.Sellers,
		},
		BrandDistribution:     dist.Brands,
		ConditionDistribution: dist.Conditions,
	}
	if market.TotalItems == 0 {
		return analysis
	}

	analysis.KPIs = s.computeKPIs(ctx, searchText, items, market, dist)
	return analysis
}

func (s *Service) computeKPIs(ctx context.Context, searchText string, items []model.MarketplaceItem, market model.MarketStatsResult, dist stats.Distribution) KPISet {
	kpis := KPISet{
		RelativeMarketShare: "N/A",
		PriceElasticity:     "N/A",
	}

	if market.Price.Average > 0 {
		// 5% under the market average as a competitive opener.
		kpis.RecommendedPrice = round2(market.Price.Average * 0.95)
	}

	// Sell-through estimate: the sold sample against an estimated listing
	// pool of twice its size. A live listed-count feed would replace this.
	estimatedListed := market.TotalItems * 2
	if estimatedListed > 0 {
		kpis.TurnoverRate = round2(float64(market.TotalItems) / float64(estimatedListed) * 100)
	}

	if dist.Sellers > 0 {
		priceStd := stats.StdDev(items)
		kpis.CompetitivenessScore = round2(1 / (priceStd + 1) * float64(dist.Sellers))
	}

	kpis.PriceTrend30d = s.priceTrend(ctx, searchText, market.Price.Average)
	return kpis
}

// priceTrend compares the current average price with the oldest of the last
// 30 persisted analyses, as a percentage. 0 when history is too shallow.
func (s *Service) priceTrend(ctx context.Context, searchText string, currentAvg float64) float64 {
	records, err := s.analyses.History(ctx, searchText, historyWindow)
	if err != nil {
		log.Printf("market: load history for %q: %v", searchText, err)
		return 0
	}
	if len(records) < 2 {
		return 0
	}

	// Records are newest first; the oldest closes the window.
	var oldest Analysis
	if err := json.Unmarshal(records[len(records)-1].Data, &oldest); err != nil {
		log.Printf("market: decode historical analysis for %q: %v", searchText, err)
		return 0
	}
	if oldest.PriceAnalysis.Average <= 0 {
		return 0
	}
	return round2((currentAvg - oldest.PriceAnalysis.Average) / oldest.PriceAnalysis.Average * 100)
}

// NormalizeSearchText corrects known brand typos word by word.
func NormalizeSearchText(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		if fixed, ok := brandCorrections[strings.ToLower(w)]; ok {
			words[i] = fixed
		}
	}
	return strings.Join(words, " ")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
