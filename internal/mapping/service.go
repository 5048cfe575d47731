package mapping

import (
	"context"
	"fmt"
	"log"

	"github.com/logistix/vintedsync/internal/model"
	"github.com/logistix/vintedsync/internal/store"
	"github.com/logistix/vintedsync/internal/vinted"
)

// MatchThreshold is the minimum similarity for a wardrobe item to be linked
// to a local product.
const MatchThreshold = 0.6

// Options configures a mapping run.
type Options struct {
	// DryRun scores and reports matches without writing anything.
	DryRun bool
}

// Report is the outcome of one mapping run. Matches lists every considered
// wardrobe item, accepted or not, for audit/preview.
type Report struct {
	Matches          []model.MatchResult `json:"matches"`
	ItemsScanned     int                 `json:"itemsScanned"`
	UnmappedProducts int                 `json:"unmappedProducts"`
	Applied          int                 `json:"applied"`
}

// Status summarizes how much of a user's inventory is linked.
type Status struct {
	Mapped   int `json:"mapped"`
	Unmapped int `json:"unmapped"`
	Total    int `json:"total"`
}

// Service links wardrobe items to local unmapped products by title
// similarity.
type Service struct {
	api      vinted.API
	products store.ProductRepository
}

// NewService creates a mapping service.
func NewService(api vinted.API, products store.ProductRepository) *Service {
	return &Service{api: api, products: products}
}

// MapItems fetches the user's wardrobe and matches each item against the
// user's unmapped products. Matches at or above MatchThreshold are applied
// (unless DryRun): the product gets the item's id, the item's price when
// present, and status sold when the marketplace already closed the sale.
//
// Items are matched independently; two wardrobe items may claim the same
// product within one run. Items with no candidate above the threshold are
// skipped without error.
func (s *Service) MapItems(ctx context.Context, userID string, opts Options) (*Report, error) {
	items, err := s.api.GetSoldItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch wardrobe: %w", err)
	}

	unmapped, err := s.products.ListUnmapped(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list unmapped products: %w", err)
	}

	report := &Report{
		Matches:          make([]model.MatchResult, 0, len(items)),
		ItemsScanned:     len(items),
		UnmappedProducts: len(unmapped),
	}

	for _, item := range items {
		match := bestMatch(item, unmapped)
		if match.Accepted && !opts.DryRun {
			if err := s.apply(ctx, &item, match.Product); err != nil {
				log.Printf("mapping: apply match item=%s product=%s: %v", item.ID, match.Product.ID, err)
			} else {
				match.Applied = true
				report.Applied++
			}
		}
		report.Matches = append(report.Matches, match)
	}

	return report, nil
}

// MappingStatus reports mapped/unmapped counts for a user.
func (s *Service) MappingStatus(ctx context.Context, userID string) (*Status, error) {
	linked, err := s.products.ListLinked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list linked products: %w", err)
	}
	unmapped, err := s.products.ListUnmapped(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list unmapped products: %w", err)
	}
	return &Status{
		Mapped:   len(linked),
		Unmapped: len(unmapped),
		Total:    len(linked) + len(unmapped),
	}, nil
}

func bestMatch(item model.MarketplaceItem, candidates []*model.Product) model.MatchResult {
	result := model.MatchResult{Item: item}
	for _, p := range candidates {
		score := Similarity(item.Title, p.Name)
		if score > result.Score {
			result.Score = score
			result.Product = p
		}
	}
	result.Accepted = result.Product != nil && result.Score >= MatchThreshold
	return result
}

func (s *Service) apply(ctx context.Context, item *model.MarketplaceItem, p *model.Product) error {
	p.ExternalID = item.ID
	if item.Price != nil {
		amount := item.Price.Amount
		p.SellingPrice = &amount
	}
	if item.SoldOnMarketplace() {
		p.Status = model.StatusSold
		p.Sold = true
	}
	return s.products.Update(ctx, p)
}
