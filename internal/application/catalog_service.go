package application

import (
	"context"
	"fmt"
	"time"

	"catalog-sync-engine/internal/domain"
	"catalog-sync-engine/internal/ports"

	"github.com/rs/zerolog"
)

// CatalogService owns the idempotent product and variant upsert primitives
// and the detach operation. Both sync paths (full sync and webhook ingest)
// funnel through it.
type CatalogService struct {
	repo   ports.CatalogRepository
	logger zerolog.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo ports.CatalogRepository, logger zerolog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		logger: logger,
	}
}

// UpsertResult reports whether an upsert inserted a new row or patched an
// existing one.
type UpsertResult struct {
	ID    string
	IsNew bool
}

func validateUpstreamProduct(in domain.UpstreamProduct) error {
	if in.ExternalID == "" {
		return fmt.Errorf("upstream product has no external id")
	}
	if in.Name == "" {
		return fmt.Errorf("upstream product %s has no name", in.ExternalID)
	}
	return nil
}

// UpsertProduct writes one upstream product. Keyed by
// (business, source=synced, external id): a second sighting of the same id
// patches the existing row, never inserts a duplicate. New products are
// appended at max(existing orders)+1 so insertion never reorders the
// business's catalog.
func (s *CatalogService) UpsertProduct(ctx context.Context, businessID string, in domain.UpstreamProduct) (UpsertResult, error) {
	if err := validateUpstreamProduct(in); err != nil {
		return UpsertResult{}, err
	}

	now := time.Now()
	existing, err := s.repo.GetProductByExternalID(ctx, businessID, in.ExternalID)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to look up product %s: %w", in.ExternalID, err)
	}

	if existing != nil {
		existing.Name = in.Name
		existing.Description = in.Description
		existing.ImageURL = in.ImageURL
		existing.HasVariants = in.HasVariants()
		existing.Price = in.Price
		if in.Currency != "" {
			existing.Currency = in.Currency
		}
		existing.Available = true
		existing.SyncedAt = &now
		existing.UpdatedAt = now
		if err := s.repo.UpdateProduct(ctx, existing); err != nil {
			return UpsertResult{}, fmt.Errorf("failed to update product %s: %w", in.ExternalID, err)
		}
		return UpsertResult{ID: existing.ID, IsNew: false}, nil
	}

	// New product: append at the end of the business's manual ordering.
	// The O(n) scan is a known cost, acceptable at expected catalog sizes.
	order, err := s.nextOrder(ctx, businessID)
	if err != nil {
		return UpsertResult{}, err
	}

	id, err := s.repo.InsertProduct(ctx, &domain.Product{
		BusinessID:  businessID,
		Name:        in.Name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		HasVariants: in.HasVariants(),
		Price:       in.Price,
		Currency:    in.Currency,
		Source:      domain.SourceSynced,
		ExternalID:  in.ExternalID,
		Order:       order,
		Available:   true,
		Deleted:     false,
		SyncedAt:    &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to insert product %s: %w", in.ExternalID, err)
	}
	return UpsertResult{ID: id, IsNew: true}, nil
}

func (s *CatalogService) nextOrder(ctx context.Context, businessID string) (int, error) {
	all, err := s.repo.ListProducts(ctx, businessID)
	if err != nil {
		return 0, fmt.Errorf("failed to list products for order: %w", err)
	}
	max := 0
	for _, p := range all {
		if p.Order > max {
			max = p.Order
		}
	}
	return max + 1, nil
}

// GetProductByExternalID returns the business's synced product for an
// external id, or (nil, nil) when none exists.
func (s *CatalogService) GetProductByExternalID(ctx context.Context, businessID, externalID string) (*domain.Product, error) {
	return s.repo.GetProductByExternalID(ctx, businessID, externalID)
}

// UpsertVariant writes one upstream variant under its parent product, keyed
// by the globally-unique external variant id. Availability is derived from
// inventory: a variant with zero stock is synced but not sellable.
func (s *CatalogService) UpsertVariant(ctx context.Context, businessID, productID string, in domain.UpstreamVariant) (UpsertResult, error) {
	if in.ExternalID == "" {
		return UpsertResult{}, fmt.Errorf("upstream variant has no external id")
	}

	now := time.Now()
	available := in.InventoryQuantity > 0

	existing, err := s.repo.GetVariantByExternalID(ctx, in.ExternalID)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to look up variant %s: %w", in.ExternalID, err)
	}

	if existing != nil {
		existing.Name = in.Name
		existing.SKU = in.SKU
		existing.Barcode = in.Barcode
		existing.Price = in.Price
		existing.CompareAtPrice = in.CompareAtPrice
		existing.InventoryQuantity = in.InventoryQuantity
		existing.InventoryPolicy = in.InventoryPolicy
		existing.Options = in.Options
		existing.ImageURL = in.ImageURL
		existing.Weight = in.Weight
		existing.WeightUnit = in.WeightUnit
		existing.RequiresShipping = in.RequiresShipping
		existing.Position = in.Position
		existing.Available = available
		existing.SyncedAt = &now
		existing.UpdatedAt = now
		if err := s.repo.UpdateVariant(ctx, existing); err != nil {
			return UpsertResult{}, fmt.Errorf("failed to update variant %s: %w", in.ExternalID, err)
		}
		return UpsertResult{ID: existing.ID, IsNew: false}, nil
	}

	id, err := s.repo.InsertVariant(ctx, &domain.Variant{
		ProductID:         productID,
		BusinessID:        businessID,
		ExternalID:        in.ExternalID,
		Name:              in.Name,
		SKU:               in.SKU,
		Barcode:           in.Barcode,
		Price:             in.Price,
		CompareAtPrice:    in.CompareAtPrice,
		InventoryQuantity: in.InventoryQuantity,
		InventoryPolicy:   in.InventoryPolicy,
		TrackInventory:    true,
		Options:           in.Options,
		ImageURL:          in.ImageURL,
		Weight:            in.Weight,
		WeightUnit:        in.WeightUnit,
		RequiresShipping:  in.RequiresShipping,
		Position:          in.Position,
		Available:         available,
		SyncedAt:          &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to insert variant %s: %w", in.ExternalID, err)
	}
	return UpsertResult{ID: id, IsNew: true}, nil
}

// RemoveProduct marks the referenced product unavailable. Scoped removal for
// explicit upstream delete events; it never touches other rows.
func (s *CatalogService) RemoveProduct(ctx context.Context, businessID, externalID string) error {
	p, err := s.repo.GetProductByExternalID(ctx, businessID, externalID)
	if err != nil {
		return fmt.Errorf("failed to look up product %s: %w", externalID, err)
	}
	if p == nil {
		// Remove for an id we never synced, or a replay after detach.
		s.logger.Debug().Str("businessId", businessID).Str("externalId", externalID).Msg("Remove event for unknown product, ignoring")
		return nil
	}
	if err := s.repo.MarkProductUnavailable(ctx, p.ID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark product %s unavailable: %w", externalID, err)
	}
	return nil
}

// RemoveVariant marks the referenced variant unavailable.
func (s *CatalogService) RemoveVariant(ctx context.Context, externalID string) error {
	v, err := s.repo.GetVariantByExternalID(ctx, externalID)
	if err != nil {
		return fmt.Errorf("failed to look up variant %s: %w", externalID, err)
	}
	if v == nil {
		s.logger.Debug().Str("externalId", externalID).Msg("Remove event for unknown variant, ignoring")
		return nil
	}
	if err := s.repo.MarkVariantUnavailable(ctx, v.ID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark variant %s unavailable: %w", externalID, err)
	}
	return nil
}

// SweepProducts marks every synced, currently-available product whose
// external id was not seen during the run as unavailable. It never
// resurrects availability; only a subsequent successful upsert does that.
func (s *CatalogService) SweepProducts(ctx context.Context, businessID string, seen map[string]struct{}, at time.Time) (int, error) {
	products, err := s.repo.ListSyncedProducts(ctx, businessID, true)
	if err != nil {
		return 0, fmt.Errorf("failed to list synced products for sweep: %w", err)
	}
	removed := 0
	for _, p := range products {
		if _, ok := seen[p.ExternalID]; ok {
			continue
		}
		if err := s.repo.MarkProductUnavailable(ctx, p.ID, at); err != nil {
			return removed, fmt.Errorf("failed to sweep product %s: %w", p.ExternalID, err)
		}
		s.logger.Debug().Str("businessId", businessID).Str("externalId", p.ExternalID).Msg("Swept product absent upstream")
		removed++
	}
	return removed, nil
}

// SweepVariants is the variant half of the removal sweep.
func (s *CatalogService) SweepVariants(ctx context.Context, businessID string, seen map[string]struct{}, at time.Time) (int, error) {
	variants, err := s.repo.ListSyncedVariants(ctx, businessID, true)
	if err != nil {
		return 0, fmt.Errorf("failed to list synced variants for sweep: %w", err)
	}
	removed := 0
	for _, v := range variants {
		if _, ok := seen[v.ExternalID]; ok {
			continue
		}
		if err := s.repo.MarkVariantUnavailable(ctx, v.ID, at); err != nil {
			return removed, fmt.Errorf("failed to sweep variant %s: %w", v.ExternalID, err)
		}
		s.logger.Debug().Str("businessId", businessID).Str("externalId", v.ExternalID).Msg("Swept variant absent upstream")
		removed++
	}
	return removed, nil
}

// Detach converts the business's synced catalog to manually-owned rows.
// Row count is identical before and after: nothing is deleted, the rows just
// stop being subject to future sync.
func (s *CatalogService) Detach(ctx context.Context, businessID string) error {
	n, err := s.repo.DetachBusinessCatalog(ctx, businessID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to detach catalog: %w", err)
	}
	s.logger.Info().Str("businessId", businessID).Int64("products", n).Msg("Detached synced catalog")
	return nil
}
