// Package sync reconciles linked products against live marketplace state,
// detecting sales, reservations and cancelled reservations.
package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/logistix/vintedsync/internal/model"
	"github.com/logistix/vintedsync/internal/stats"
	"github.com/logistix/vintedsync/internal/store"
	"github.com/logistix/vintedsync/internal/vinted"
)

// Service reconciles product status with the marketplace wardrobe.
type Service struct {
	api      vinted.API
	products store.ProductRepository
}

// NewService creates a sync service.
func NewService(api vinted.API, products store.ProductRepository) *Service {
	return &Service{api: api, products: products}
}

// SyncAll reconciles every linked product of the user in one pass. The
// wardrobe is fetched once; products are processed sequentially so the
// marketplace is never hammered. A failing product is recorded and does not
// abort the batch. With no linked products the marketplace is not called at
// all.
func (s *Service) SyncAll(ctx context.Context, userID string) (*model.SyncSummary, error) {
	products, err := s.products.ListLinked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list linked products: %w", err)
	}

	summary := &model.SyncSummary{Results: []model.SyncResult{}}
	if len(products) == 0 {
		return summary, nil
	}

	items, err := s.api.GetSoldItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch wardrobe: %w", err)
	}
	byID := make(map[string]model.MarketplaceItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	summary.Total = len(products)
	for _, p := range products {
		result := model.SyncResult{ProductID: p.ID, ExternalID: p.ExternalID}

		item, ok := byID[p.ExternalID]
		if !ok {
			result.Error = fmt.Sprintf("item %s not found in wardrobe, might be deleted", p.ExternalID)
			summary.Failed++
			summary.Results = append(summary.Results, result)
			continue
		}

		action, err := s.syncOne(ctx, p, &item)
		if err != nil {
			log.Printf("sync: product %s: %v", p.ID, err)
			result.Error = err.Error()
			summary.Failed++
			summary.Results = append(summary.Results, result)
			continue
		}

		result.Success = true
		result.Action = action
		switch action {
		case model.ActionSold:
			summary.Sold++
		case model.ActionReserved:
			summary.Reserved++
		default:
			summary.Synced++
		}
		summary.Results = append(summary.Results, result)
	}

	return summary, nil
}

// SyncProduct reconciles a single product. It fails when the product does
// not exist, is not linked, or its item is gone from the wardrobe.
func (s *Service) SyncProduct(ctx context.Context, productID, userID string) (*model.SyncResult, error) {
	p, err := s.products.GetByID(ctx, productID, userID)
	if err != nil {
		return nil, err
	}
	if !p.Linked() {
		return nil, fmt.Errorf("product %s is not linked to a marketplace item", productID)
	}

	items, err := s.api.GetSoldItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch wardrobe: %w", err)
	}

	for _, item := range items {
		if item.ID != p.ExternalID {
			continue
		}
		action, err := s.syncOne(ctx, p, &item)
		if err != nil {
			return nil, err
		}
		return &model.SyncResult{
			ProductID:  p.ID,
			ExternalID: p.ExternalID,
			Success:    true,
			Action:     action,
		}, nil
	}

	return nil, fmt.Errorf("item %s not found in wardrobe, might be deleted", p.ExternalID)
}

// syncOne applies the status transition for one product and unconditionally
// refreshes its cached marketplace stats. Transitions are evaluated against
// the flags cached by the previous pass.
func (s *Service) syncOne(ctx context.Context, p *model.Product, item *model.MarketplaceItem) (model.SyncAction, error) {
	prev := p.VintedStats

	wasClosed := prev != nil && prev.IsClosed
	wasReserved := prev != nil && prev.IsReserved

	action := model.ActionSynced
	switch {
	case item.IsClosed && !wasClosed && p.Status != model.StatusSold:
		action = model.ActionSold
		p.Status = model.StatusSold
		p.Sold = true
		now := time.Now().UTC()
		p.SoldAt = &now
		if item.Price != nil {
			amount := item.Price.Amount
			p.SellingPrice = &amount
		}
	case !item.IsClosed && item.IsReserved && !wasReserved && p.Status != model.StatusReserved:
		action = model.ActionReserved
		p.Status = model.StatusReserved
	case wasReserved && !item.IsReserved && p.Status == model.StatusReserved:
		action = model.ActionUnreserved
		p.Status = model.StatusOnline
	}

	p.VintedStats = &model.VintedStats{
		ViewCount:      item.ViewCount,
		FavouriteCount: item.FavouriteCount,
		InterestRate:   interestRate(item.FavouriteCount, item.ViewCount),
		IsReserved:     item.IsReserved,
		IsClosed:       item.IsClosed,
		ServiceFee:     item.ServiceFee,
		LastSyncedAt:   time.Now().UTC(),
	}

	if err := s.products.Update(ctx, p); err != nil {
		return "", fmt.Errorf("persist product %s: %w", p.ID, err)
	}
	return action, nil
}

// interestRate is favourites per hundred views, one decimal, 0 without
// views.
func interestRate(favourites, views int) float64 {
	if views == 0 {
		return 0
	}
	return stats.Round1(float64(favourites) / float64(views) * 100)
}
