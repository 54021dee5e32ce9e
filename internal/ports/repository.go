package ports

import (
	"context"
	"time"

	"catalog-sync-engine/internal/domain"
)

// ConnectionRepository persists the one-per-business upstream connection.
type ConnectionRepository interface {
	// GetByBusiness returns the business's connection, or (nil, nil) when
	// the business is not connected.
	GetByBusiness(ctx context.Context, businessID string) (*domain.Connection, error)

	// Save upserts the connection keyed by business id and returns the
	// record id. A reconnect overwrites shop/credential/scopes in place so
	// a business never accumulates duplicate connections.
	Save(ctx context.Context, conn *domain.Connection) (string, error)

	// UpdateSyncStatus patches the last-sync timestamp and outcome. It is a
	// silent no-op when the business has no connection.
	UpdateSyncStatus(ctx context.Context, businessID string, at time.Time, status domain.SyncStatus) error

	// UpdateWebhookIDs replaces the stored set of subscribed webhook ids.
	UpdateWebhookIDs(ctx context.Context, businessID string, ids []int64) error

	// Delete removes the connection row.
	Delete(ctx context.Context, businessID string) error
}

// CatalogRepository is the record store for products and variants. Each
// method is a single atomic read or read-modify-write; the store serializes
// concurrent writes to the same record.
type CatalogRepository interface {
	// GetProductByExternalID looks up a synced product by
	// (business, source=synced, external id). Returns (nil, nil) when absent.
	GetProductByExternalID(ctx context.Context, businessID, externalID string) (*domain.Product, error)
	InsertProduct(ctx context.Context, p *domain.Product) (string, error)
	// UpdateProduct patches the mutable fields of an existing product by id.
	UpdateProduct(ctx context.Context, p *domain.Product) error
	// ListProducts returns every product of the business, soft-deleted rows
	// included, so order computation sees all occupied slots.
	ListProducts(ctx context.Context, businessID string) ([]*domain.Product, error)
	// ListSyncedProducts returns the business's synced, not-deleted products,
	// optionally restricted to currently-available ones (removal sweep input).
	ListSyncedProducts(ctx context.Context, businessID string, availableOnly bool) ([]*domain.Product, error)
	MarkProductUnavailable(ctx context.Context, productID string, at time.Time) error

	// GetVariantByExternalID looks up a variant by its globally-unique
	// external id. Returns (nil, nil) when absent.
	GetVariantByExternalID(ctx context.Context, externalID string) (*domain.Variant, error)
	InsertVariant(ctx context.Context, v *domain.Variant) (string, error)
	UpdateVariant(ctx context.Context, v *domain.Variant) error
	ListSyncedVariants(ctx context.Context, businessID string, availableOnly bool) ([]*domain.Variant, error)
	MarkVariantUnavailable(ctx context.Context, variantID string, at time.Time) error

	// DetachBusinessCatalog converts every synced product of the business to
	// a manually-owned one: source flips to manual, external ids and sync
	// timestamps are cleared, everything else is left untouched. Variants
	// stay attached. Returns the number of detached products.
	DetachBusinessCatalog(ctx context.Context, businessID string, at time.Time) (int64, error)
}
