// Package testutil provides in-memory fakes and factories shared by the
// service tests.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/logistix/vintedsync/internal/model"
	"github.com/logistix/vintedsync/internal/store"
)

// FakeProductRepo is an in-memory store.ProductRepository. It records every
// Update call so tests can assert what was written.
type FakeProductRepo struct {
	mu       sync.Mutex
	products map[string]*model.Product

	UpdateCalls []model.Product
	UpdateErr   error
	// FailFor makes Update fail for specific product ids.
	FailFor map[string]error
}

var _ store.ProductRepository = (*FakeProductRepo)(nil)

// NewFakeProductRepo creates an empty fake repository.
func NewFakeProductRepo() *FakeProductRepo {
	return &FakeProductRepo{
		products: make(map[string]*model.Product),
		FailFor:  make(map[string]error),
	}
}

// Seed inserts products directly.
func (f *FakeProductRepo) Seed(products ...*model.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range products {
		cp := *p
		f.products[p.ID] = &cp
	}
}

// Get returns the stored copy of a product, nil if absent.
func (f *FakeProductRepo) Get(id string) *model.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (f *FakeProductRepo) GetByID(ctx context.Context, id, userID string) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok || p.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *FakeProductRepo) ListUnmapped(ctx context.Context, userID string) ([]*model.Product, error) {
	return f.list(userID, false), nil
}

func (f *FakeProductRepo) ListLinked(ctx context.Context, userID string) ([]*model.Product, error) {
	return f.list(userID, true), nil
}

func (f *FakeProductRepo) list(userID string, linked bool) []*model.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Product
	for _, p := range f.products {
		if p.UserID != userID || p.Linked() != linked {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out
}

func (f *FakeProductRepo) Create(ctx context.Context, p *model.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.products[p.ID] = &cp
	return nil
}

func (f *FakeProductRepo) Update(ctx context.Context, p *model.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.FailFor[p.ID]; ok {
		return err
	}
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	if _, ok := f.products[p.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *p
	f.products[p.ID] = &cp
	f.UpdateCalls = append(f.UpdateCalls, cp)
	return nil
}

// FakeAnalysisRepo is an in-memory store.AnalysisRepository.
type FakeAnalysisRepo struct {
	mu      sync.Mutex
	records map[string][]store.AnalysisRecord
	SaveErr error
}

var _ store.AnalysisRepository = (*FakeAnalysisRepo)(nil)

// NewFakeAnalysisRepo creates an empty fake analysis repository.
func NewFakeAnalysisRepo() *FakeAnalysisRepo {
	return &FakeAnalysisRepo{records: make(map[string][]store.AnalysisRecord)}
}

func (f *FakeAnalysisRepo) SaveAnalysis(ctx context.Context, searchText string, data json.RawMessage) error {
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := store.AnalysisRecord{SearchText: searchText, Timestamp: time.Now().UTC(), Data: data}
	// Newest first, matching the SQL ORDER BY.
	f.records[searchText] = append([]store.AnalysisRecord{rec}, f.records[searchText]...)
	return nil
}

func (f *FakeAnalysisRepo) History(ctx context.Context, searchText string, limit int) ([]store.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recs := f.records[searchText]
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	out := make([]store.AnalysisRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// SeedHistory inserts a pre-dated analysis record at the oldest position.
func (f *FakeAnalysisRepo) SeedHistory(searchText string, ts time.Time, data json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := store.AnalysisRecord{SearchText: searchText, Timestamp: ts, Data: data}
	f.records[searchText] = append(f.records[searchText], rec)
}

// Item builds a priced marketplace item for tests.
func Item(id, title string, price float64) model.MarketplaceItem {
	return model.MarketplaceItem{
		ID:    id,
		Title: title,
		Price: &model.Money{Amount: price, Currency: "EUR"},
	}
}

// Product builds a local product for tests.
func Product(id, userID, name string) *model.Product {
	return &model.Product{
		ID:        id,
		UserID:    userID,
		Name:      name,
		Status:    model.StatusOnline,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

// LinkedProduct builds a product bound to a marketplace item.
func LinkedProduct(id, userID, name, externalID string) *model.Product {
	p := Product(id, userID, name)
	p.ExternalID = externalID
	return p
}

// UniqueName returns a name suffixed with n, for seeding many products.
func UniqueName(base string, n int) string {
	return fmt.Sprintf("%s %d", base, n)
}
