package mapping

import (
	"context"
	"testing"

	"github.com/logistix/vintedsync/internal/model"
	"github.com/logistix/vintedsync/internal/testutil"
	"github.com/logistix/vintedsync/internal/vinted"
)

const testUser = "user-1"

func TestMapItems_AppliesAcceptedMatch(t *testing.T) {
	repo := testutil.NewFakeProductRepo()
	repo.Seed(testutil.Product("p1", testUser, "Nike Air Force 1 White"))

	api := vinted.NewMockAPI()
	item := testutil.Item("555", "Nike Air Force 1 White T39", 45.50)
	api.SetWardrobe(testUser, []model.MarketplaceItem{item})

	svc := NewService(api, repo)
	report, err := svc.MapItems(context.Background(), testUser, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Applied != 1 {
		t.Fatalf("expected 1 applied match, got %d", report.Applied)
	}
	if len(report.Matches) != 1 || !report.Matches[0].Accepted {
		t.Fatalf("expected one accepted match, got %+v", report.Matches)
	}

	updated := repo.Get("p1")
	if updated.ExternalID != "555" {
		t.Errorf("expected externalId 555, got %q", updated.ExternalID)
	}
	if updated.SellingPrice == nil || *updated.SellingPrice != 45.50 {
		t.Errorf("expected selling price 45.50, got %v", updated.SellingPrice)
	}
	if updated.Status != model.StatusOnline {
		t.Errorf("item not sold on marketplace, status must stay online, got %s", updated.Status)
	}
}

func TestMapItems_SoldItemMarksProductSold(t *testing.T) {
	repo := testutil.NewFakeProductRepo()
	repo.Seed(testutil.Product("p1", testUser, "Sac Louis Vuitton Neverfull"))

	api := vinted.NewMockAPI()
	item := testutil.Item("777", "Sac Louis Vuitton Neverfull", 320)
	item.StatusID = model.StatusIDSold
	api.SetWardrobe(testUser, []model.MarketplaceItem{item})

	svc := NewService(api, repo)
	if _, err := svc.MapItems(context.Background(), testUser, Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated := repo.Get("p1")
	if updated.Status != model.StatusSold || !updated.Sold {
		t.Errorf("expected sold product, got status=%s sold=%v", updated.Status, updated.Sold)
	}
}

func TestMapItems_BelowThresholdSkipped(t *testing.T) {
	repo := testutil.NewFakeProductRepo()
	repo.Seed(testutil.Product("p1", testUser, "Robe Zara fleurie"))

	api := vinted.NewMockAPI()
	api.SetWardrobe(testUser, []model.MarketplaceItem{
		testutil.Item("888", "Nike Air Max 90", 60),
	})

	svc := NewService(api, repo)
	report, err := svc.MapItems(context.Background(), testUser, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Applied != 0 {
		t.Errorf("expected no applied matches, got %d", report.Applied)
	}
	if len(report.Matches) != 1 || report.Matches[0].Accepted {
		t.Errorf("expected one rejected match, got %+v", report.Matches)
	}
	if repo.Get("p1").ExternalID != "" {
		t.Error("product must stay unmapped")
	}
}

func TestMapItems_DryRunWritesNothing(t *testing.T) {
	repo := testutil.NewFakeProductRepo()
	repo.Seed(testutil.Product("p1", testUser, "Nike Air Force 1 White"))

	api := vinted.NewMockAPI()
	api.SetWardrobe(testUser, []model.MarketplaceItem{
		testutil.Item("555", "Nike Air Force 1 White T39", 45.50),
	})

	svc := NewService(api, repo)
	report, err := svc.MapItems(context.Background(), testUser, Options{DryRun: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.Matches[0].Accepted {
		t.Error("dry run must still report the accepted match")
	}
	if report.Applied != 0 {
		t.Errorf("dry run must not apply, got %d", report.Applied)
	}
	if repo.Get("p1").ExternalID != "" {
		t.Error("dry run must not mutate the product")
	}
}

func TestMapItems_IgnoresAlreadyMappedProducts(t *testing.T) {
	repo := testutil.NewFakeProductRepo()
	repo.Seed(testutil.LinkedProduct("p1", testUser, "Nike Air Force 1 White", "999"))

	api := vinted.NewMockAPI()
	api.SetWardrobe(testUser, []model.MarketplaceItem{
		testutil.Item("555", "Nike Air Force 1 White T39", 45.50),
	})

	svc := NewService(api, repo)
	report, err := svc.MapItems(context.Background(), testUser, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.UnmappedProducts != 0 {
		t.Errorf("expected 0 unmapped candidates, got %d", report.UnmappedProducts)
	}
	if report.Applied != 0 {
		t.Errorf("mapped product must never be re-matched, got %d applied", report.Applied)
	}
	if repo.Get("p1").ExternalID != "999" {
		t.Error("existing link must be untouched")
	}
}

func TestMappingStatus(t *testing.T) {
	repo := testutil.NewFakeProductRepo()
	repo.Seed(
		testutil.Product("p1", testUser, "Robe Zara"),
		testutil.LinkedProduct("p2", testUser, "Nike Air Max", "42"),
		testutil.LinkedProduct("p3", testUser, "Pull Lacoste", "43"),
	)

	svc := NewService(vinted.NewMockAPI(), repo)
	status, err := svc.MappingStatus(context.Background(), testUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if status.Mapped != 2 || status.Unmapped != 1 || status.Total != 3 {
		t.Errorf("unexpected status: %+v", status)
	}
}
