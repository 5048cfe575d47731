package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/logistix/vintedsync/internal/model"
)

// ErrNotFound is returned when a product does not exist (or belongs to a
// different user).
var ErrNotFound = errors.New("product not found")

// ProductRepository is the persistence surface the mapping, sync and market
// services operate on.
type ProductRepository interface {
	GetByID(ctx context.Context, id, userID string) (*model.Product, error)
	// ListUnmapped returns the user's products with no ExternalID.
	ListUnmapped(ctx context.Context, userID string) ([]*model.Product, error)
	// ListLinked returns the user's products bound to a marketplace item.
	ListLinked(ctx context.Context, userID string) ([]*model.Product, error)
	Create(ctx context.Context, p *model.Product) error
	Update(ctx context.Context, p *model.Product) error
}

// AnalysisRecord is one persisted market analysis. Data is the analysis
// document as stored; the market service owns its shape.
type AnalysisRecord struct {
	SearchText string          `json:"searchText"`
	Timestamp  time.Time       `json:"analysisTimestamp"`
	Data       json.RawMessage `json:"analysisData"`
}

// AnalysisRepository persists market analysis documents keyed by search
// text, newest first on read.
type AnalysisRepository interface {
	SaveAnalysis(ctx context.Context, searchText string, data json.RawMessage) error
	History(ctx context.Context, searchText string, limit int) ([]AnalysisRecord, error)
}
