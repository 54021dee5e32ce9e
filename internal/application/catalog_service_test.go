package application

import (
	"context"
	"testing"
	"time"

	"catalog-sync-engine/internal/domain"

	"github.com/rs/zerolog"
)

func newCatalogService(repo *fakeCatalogRepo) *CatalogService {
	return NewCatalogService(repo, zerolog.Nop())
}

func TestUpsertProductInsertsThenPatches(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCatalogRepo()
	svc := newCatalogService(repo)

	in := domain.UpstreamProduct{ExternalID: "101", Name: "Tee", Description: "soft", Currency: "EUR"}

	first, err := svc.UpsertProduct(ctx, "biz1", in)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !first.IsNew {
		t.Fatal("first upsert should insert")
	}

	in.Name = "Tee v2"
	second, err := svc.UpsertProduct(ctx, "biz1", in)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.IsNew {
		t.Fatal("second upsert should patch, not insert")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same row, got %s and %s", first.ID, second.ID)
	}
	if n := repo.countProducts("biz1"); n != 1 {
		t.Fatalf("expected 1 product, got %d", n)
	}

	p, err := repo.GetProductByExternalID(ctx, "biz1", "101")
	if err != nil || p == nil {
		t.Fatalf("lookup after upsert: %v", err)
	}
	if p.Name != "Tee v2" {
		t.Fatalf("expected patched name, got %q", p.Name)
	}
	if p.Source != domain.SourceSynced {
		t.Fatalf("expected synced source, got %q", p.Source)
	}
}

func TestUpsertProductAppendsAtEndOfOrder(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCatalogRepo()
	svc := newCatalogService(repo)

	// Existing catalog: manual rows and a soft-deleted one still occupy slots.
	repo.InsertProduct(ctx, &domain.Product{BusinessID: "biz1", Name: "A", Source: domain.SourceManual, Order: 1})
	repo.InsertProduct(ctx, &domain.Product{BusinessID: "biz1", Name: "B", Source: domain.SourceManual, Order: 2})
	repo.InsertProduct(ctx, &domain.Product{BusinessID: "biz1", Name: "C", Source: domain.SourceManual, Order: 5, Deleted: true})

	res, err := svc.UpsertProduct(ctx, "biz1", domain.UpstreamProduct{ExternalID: "101", Name: "Tee"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	p := repo.products[res.ID]
	if p.Order != 6 {
		t.Fatalf("expected order 6, got %d", p.Order)
	}

	// A patch never moves the row.
	if _, err := svc.UpsertProduct(ctx, "biz1", domain.UpstreamProduct{ExternalID: "101", Name: "Tee v2"}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if repo.products[res.ID].Order != 6 {
		t.Fatalf("patch moved the row to order %d", repo.products[res.ID].Order)
	}
}

func TestUpsertProductRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc := newCatalogService(newFakeCatalogRepo())

	if _, err := svc.UpsertProduct(ctx, "biz1", domain.UpstreamProduct{Name: "no id"}); err == nil {
		t.Fatal("expected error for missing external id")
	}
	if _, err := svc.UpsertProduct(ctx, "biz1", domain.UpstreamProduct{ExternalID: "101"}); err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestUpsertProductKeepsCurrencyWhenIncomingEmpty(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCatalogRepo()
	svc := newCatalogService(repo)

	if _, err := svc.UpsertProduct(ctx, "biz1", domain.UpstreamProduct{ExternalID: "101", Name: "Tee", Currency: "EUR"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := svc.UpsertProduct(ctx, "biz1", domain.UpstreamProduct{ExternalID: "101", Name: "Tee"}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	p, _ := repo.GetProductByExternalID(ctx, "biz1", "101")
	if p.Currency != "EUR" {
		t.Fatalf("expected currency preserved, got %q", p.Currency)
	}
}

func TestUpsertVariantDerivesAvailabilityFromInventory(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCatalogRepo()
	svc := newCatalogService(repo)

	res, err := svc.UpsertVariant(ctx, "biz1", "p1", domain.UpstreamVariant{ExternalID: "201", Name: "S", InventoryQuantity: 0})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if repo.variants[res.ID].Available {
		t.Fatal("zero-stock variant should not be available")
	}

	if _, err := svc.UpsertVariant(ctx, "biz1", "p1", domain.UpstreamVariant{ExternalID: "201", Name: "S", InventoryQuantity: 3}); err != nil {
		t.Fatalf("restock: %v", err)
	}
	if !repo.variants[res.ID].Available {
		t.Fatal("restocked variant should be available")
	}
}

func TestRemoveProductMarksUnavailableOnly(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCatalogRepo()
	svc := newCatalogService(repo)

	res, _ := svc.UpsertProduct(ctx, "biz1", domain.UpstreamProduct{ExternalID: "101", Name: "Tee"})
	other, _ := svc.UpsertProduct(ctx, "biz1", domain.UpstreamProduct{ExternalID: "102", Name: "Mug"})

	if err := svc.RemoveProduct(ctx, "biz1", "101"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if repo.products[res.ID].Available {
		t.Fatal("removed product should be unavailable")
	}
	if repo.products[res.ID].Deleted {
		t.Fatal("upstream removal must not soft-delete the row")
	}
	if !repo.products[other.ID].Available {
		t.Fatal("removal touched an unrelated row")
	}
	if n := repo.countProducts("biz1"); n != 2 {
		t.Fatalf("removal changed row count to %d", n)
	}
}

func TestRemoveUnknownIDIsIgnored(t *testing.T) {
	ctx := context.Background()
	svc := newCatalogService(newFakeCatalogRepo())

	if err := svc.RemoveProduct(ctx, "biz1", "404"); err != nil {
		t.Fatalf("unknown product removal should be a no-op, got %v", err)
	}
	if err := svc.RemoveVariant(ctx, "404"); err != nil {
		t.Fatalf("unknown variant removal should be a no-op, got %v", err)
	}
}

func TestSweepProductsMarksUnseenUnavailable(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCatalogRepo()
	svc := newCatalogService(repo)

	kept, _ := svc.UpsertProduct(ctx, "biz1", domain.UpstreamProduct{ExternalID: "101", Name: "Tee"})
	gone, _ := svc.UpsertProduct(ctx, "biz1", domain.UpstreamProduct{ExternalID: "102", Name: "Mug"})
	// Manual rows are outside the sweep's scope.
	manualID, _ := repo.InsertProduct(ctx, &domain.Product{BusinessID: "biz1", Name: "Poster", Source: domain.SourceManual, Available: true})

	seen := map[string]struct{}{"101": {}}
	removed, err := svc.SweepProducts(ctx, "biz1", seen, time.Now())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 swept product, got %d", removed)
	}
	if !repo.products[kept.ID].Available {
		t.Fatal("seen product was swept")
	}
	if repo.products[gone.ID].Available {
		t.Fatal("unseen product survived the sweep")
	}
	if !repo.products[manualID].Available {
		t.Fatal("sweep touched a manual row")
	}

	// A second sweep with the same seen set is a no-op: the sweep never
	// resurrects availability.
	removed, err = svc.SweepProducts(ctx, "biz1", seen, time.Now())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected idempotent sweep, got %d removals", removed)
	}
}

func TestDetachPreservesRowsAndStripsLinkage(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCatalogRepo()
	svc := newCatalogService(repo)

	res, _ := svc.UpsertProduct(ctx, "biz1", domain.UpstreamProduct{ExternalID: "101", Name: "Tee"})
	svc.UpsertVariant(ctx, "biz1", res.ID, domain.UpstreamVariant{ExternalID: "201", Name: "S", InventoryQuantity: 1})
	before := repo.countProducts("biz1")

	if err := svc.Detach(ctx, "biz1"); err != nil {
		t.Fatalf("detach: %v", err)
	}

	if after := repo.countProducts("biz1"); after != before {
		t.Fatalf("detach changed row count from %d to %d", before, after)
	}
	for _, p := range repo.products {
		if p.Source != domain.SourceManual {
			t.Fatalf("product %s still has source %q", p.ID, p.Source)
		}
		if p.ExternalID != "" || p.SyncedAt != nil {
			t.Fatalf("product %s kept its sync linkage", p.ID)
		}
	}
	for _, v := range repo.variants {
		if v.ExternalID != "" || v.SyncedAt != nil {
			t.Fatalf("variant %s kept its sync linkage", v.ID)
		}
	}
}
