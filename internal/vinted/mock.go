package vinted

import (
	"context"
	"fmt"

	"github.com/logistix/vintedsync/internal/model"
)

// MockAPI is a configurable in-memory API implementation for tests and
// development without marketplace access.
type MockAPI struct {
	SearchResults map[string]*SearchResult      // keyed by search text
	Wardrobes     map[string][]model.MarketplaceItem // keyed by user id
	Err           error

	SearchCalls   int
	WardrobeCalls int
}

var _ API = (*MockAPI)(nil)

// NewMockAPI creates an empty mock.
func NewMockAPI() *MockAPI {
	return &MockAPI{
		SearchResults: make(map[string]*SearchResult),
		Wardrobes:     make(map[string][]model.MarketplaceItem),
	}
}

func (m *MockAPI) SearchItems(ctx context.Context, userID string, params SearchParams) (*SearchResult, error) {
	m.SearchCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	if res, ok := m.SearchResults[params.Text]; ok {
		return res, nil
	}
	return &SearchResult{Items: []model.MarketplaceItem{}}, nil
}

func (m *MockAPI) GetSoldItems(ctx context.Context, userID string) ([]model.MarketplaceItem, error) {
	m.WardrobeCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	items, ok := m.Wardrobes[userID]
	if !ok {
		return nil, fmt.Errorf("mock wardrobe not configured for user %s", userID)
	}
	return items, nil
}

// SetWardrobe replaces the wardrobe served for a user.
func (m *MockAPI) SetWardrobe(userID string, items []model.MarketplaceItem) {
	m.Wardrobes[userID] = items
}

// SetSearchResult serves result for searches matching text.
func (m *MockAPI) SetSearchResult(text string, result *SearchResult) {
	m.SearchResults[text] = result
}

func (m *MockAPI) GetBrands(ctx context.Context, userID, search string) ([]Brand, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return []Brand{}, nil
}

func (m *MockAPI) GetCatalogs(ctx context.Context, userID, search string) ([]Catalog, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return []Catalog{}, nil
}
