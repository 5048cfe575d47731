package model

import "time"

// ProductStatus is the lifecycle state of a local product listing.
type ProductStatus string

const (
	StatusOnline   ProductStatus = "online"
	StatusReserved ProductStatus = "reserved"
	StatusSold     ProductStatus = "sold"
)

// StatusIDSold is the marketplace status_id that marks an item as sold.
const StatusIDSold = 3

// Product is the local record tracked by the dashboard. A product with an
// empty ExternalID has not been linked to a marketplace item yet; once set,
// ExternalID uniquely identifies its marketplace counterpart and mapping
// never touches the product again.
type Product struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Name         string          `json:"name"`
	ExternalID   string          `json:"externalId,omitempty"`
	Status       ProductStatus   `json:"status"`
	SellingPrice *float64        `json:"sellingPrice,omitempty"`
	Sold         bool            `json:"sold"`
	SoldAt       *time.Time      `json:"soldAt,omitempty"`
	VintedStats  *VintedStats    `json:"vintedStats,omitempty"`
	Enrichment   *EnrichmentData `json:"enrichmentData,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Linked reports whether the product is bound to a marketplace item.
func (p *Product) Linked() bool {
	return p.ExternalID != ""
}

// VintedStats caches the marketplace-side metrics of a linked product from
// the last sync pass. Transition detection in the sync service compares the
// live item flags against these cached flags.
type VintedStats struct {
	ViewCount      int       `json:"viewCount"`
	FavouriteCount int       `json:"favouriteCount"`
	InterestRate   float64   `json:"interestRate"`
	IsReserved     bool      `json:"isReserved"`
	IsClosed       bool      `json:"isClosed"`
	ServiceFee     float64   `json:"serviceFee"`
	LastSyncedAt   time.Time `json:"lastSyncedAt"`
}

// EnrichmentData augments a product with identified metadata and market
// statistics. Market analysis only writes Market and Status; the identified
// fields are owned by the enrichment pipeline and must survive a re-analysis.
type EnrichmentData struct {
	Brand    string             `json:"brand,omitempty"`
	Category string             `json:"category,omitempty"`
	Market   *MarketStatsResult `json:"market,omitempty"`
	Status   string             `json:"status,omitempty"`
}

// Money is a parsed marketplace price.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// MarketplaceItem is the read-only view of a marketplace listing after wire
// validation. Price is nil when the marketplace price did not parse.
type MarketplaceItem struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Price          *Money  `json:"price,omitempty"`
	Brand          string  `json:"brand,omitempty"`
	Size           string  `json:"size,omitempty"`
	Condition      string  `json:"condition,omitempty"`
	StatusID       int     `json:"statusId"`
	IsReserved     bool    `json:"isReserved"`
	IsClosed       bool    `json:"isClosed"`
	FavouriteCount int     `json:"favouriteCount"`
	ViewCount      int     `json:"viewCount"`
	ServiceFee     float64 `json:"serviceFee,omitempty"`
	SellerLogin    string  `json:"sellerLogin,omitempty"`
	URL            string  `json:"url,omitempty"`
}

// SoldOnMarketplace reports whether the marketplace flags the item as sold.
func (it *MarketplaceItem) SoldOnMarketplace() bool {
	return it.StatusID == StatusIDSold
}

// PriceStats holds the aggregate price metrics of a market sample.
type PriceStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
}

// Velocity is a heuristic indicator of how quickly similar items sell.
// TurnoverRate is "Unknown" when the sample carries no signal.
type Velocity struct {
	SoldPerDay   *float64 `json:"soldPerDay"`
	TurnoverRate string   `json:"turnoverRate"`
}

// MarketStatsResult is the output of the market stats calculator.
type MarketStatsResult struct {
	TotalItems int               `json:"totalItems"`
	Price      PriceStats        `json:"price"`
	Velocity   Velocity          `json:"velocity"`
	Samples    []MarketplaceItem `json:"samples"`
}

// MatchResult pairs a marketplace item with the best-scoring local product
// of a single mapping run. Product is nil when no unmapped candidate exists.
type MatchResult struct {
	Item     MarketplaceItem `json:"item"`
	Product  *Product        `json:"product,omitempty"`
	Score    float64         `json:"score"`
	Accepted bool            `json:"accepted"`
	Applied  bool            `json:"applied"`
}

// SyncAction is the outcome detected for one product during a sync pass.
type SyncAction string

const (
	ActionSold       SyncAction = "sold"
	ActionReserved   SyncAction = "reserved"
	ActionUnreserved SyncAction = "unreserved"
	ActionSynced     SyncAction = "synced"
)

// SyncResult is the per-product outcome of a sync pass.
type SyncResult struct {
	ProductID  string     `json:"productId"`
	ExternalID string     `json:"externalId,omitempty"`
	Success    bool       `json:"success"`
	Action     SyncAction `json:"action,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// SyncSummary aggregates a whole sync batch.
type SyncSummary struct {
	Synced   int          `json:"synced"`
	Sold     int          `json:"sold"`
	Reserved int          `json:"reserved"`
	Failed   int          `json:"failed"`
	Total    int          `json:"total"`
	Results  []SyncResult `json:"results,omitempty"`
}
