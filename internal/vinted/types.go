package vinted

import (
	"encoding/json"
	"strconv"

	"github.com/logistix/vintedsync/internal/model"
)

// SearchParams are the catalog search filters. Zero values are omitted from
// the request.
type SearchParams struct {
	Text       string
	BrandIDs   []int
	CatalogIDs []int
	PriceFrom  *float64
	PriceTo    *float64
	StatusIDs  []int
	Order      string
	Page       int
	PerPage    int
}

// SearchResult is a validated page of catalog search results. Skipped counts
// wire items that failed validation and were dropped.
type SearchResult struct {
	Items        []model.MarketplaceItem `json:"items"`
	Page         int                     `json:"page"`
	TotalPages   int                     `json:"totalPages"`
	TotalEntries int                     `json:"totalEntries"`
	Skipped      int                     `json:"skipped"`
}

// Brand is a marketplace brand reference.
type Brand struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Catalog is a marketplace category reference.
type Catalog struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Wire structs mirror the marketplace JSON verbatim. Nothing outside this
// package consumes them; decode then validate into model types.

type wirePrice struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

type wireUser struct {
	Login string `json:"login"`
}

type wireItem struct {
	ID             json.Number `json:"id"`
	Title          string      `json:"title"`
	Price          *wirePrice  `json:"price"`
	BrandTitle     string      `json:"brand_title"`
	SizeTitle      string      `json:"size_title"`
	Status         string      `json:"status"`
	StatusID       int         `json:"status_id"`
	IsReserved     bool        `json:"is_reserved"`
	IsClosed       bool        `json:"is_closed"`
	FavouriteCount int         `json:"favourite_count"`
	ViewCount      int         `json:"view_count"`
	ServiceFee     *wirePrice  `json:"service_fee"`
	URL            string      `json:"url"`
	User           *wireUser   `json:"user"`
}

type wirePagination struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalEntries int `json:"total_entries"`
	PerPage      int `json:"per_page"`
}

type catalogResponse struct {
	Items      []wireItem      `json:"items"`
	Pagination *wirePagination `json:"pagination"`
}

type wardrobeResponse struct {
	Items []wireItem `json:"items"`
}

type brandsResponse struct {
	Brands []Brand `json:"brands"`
}

type catalogsResponse struct {
	Catalogs []Catalog `json:"catalogs"`
}

// validate converts a wire item into the typed model. It returns false when
// the item lacks the id or title business logic depends on.
func (w *wireItem) validate() (model.MarketplaceItem, bool) {
	id := w.ID.String()
	if id == "" || id == "0" || w.Title == "" {
		return model.MarketplaceItem{}, false
	}

	item := model.MarketplaceItem{
		ID:             id,
		Title:          w.Title,
		Brand:          w.BrandTitle,
		Size:           w.SizeTitle,
		Condition:      w.Status,
		StatusID:       w.StatusID,
		IsReserved:     w.IsReserved,
		IsClosed:       w.IsClosed,
		FavouriteCount: w.FavouriteCount,
		ViewCount:      w.ViewCount,
		URL:            w.URL,
	}

	if w.Price != nil {
		if amount, err := strconv.ParseFloat(w.Price.Amount, 64); err == nil {
			item.Price = &model.Money{Amount: amount, Currency: w.Price.CurrencyCode}
		}
	}
	if w.ServiceFee != nil {
		if fee, err := strconv.ParseFloat(w.ServiceFee.Amount, 64); err == nil {
			item.ServiceFee = fee
		}
	}
	if w.User != nil {
		item.SellerLogin = w.User.Login
	}

	return item, true
}

func validateItems(wire []wireItem) (items []model.MarketplaceItem, skipped int) {
	items = make([]model.MarketplaceItem, 0, len(wire))
	for i := range wire {
		item, ok := wire[i].validate()
		if !ok {
			skipped++
			continue
		}
		items = append(items, item)
	}
	return items, skipped
}
