package webhook_handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"catalog-sync-engine/internal/domain"
	"catalog-sync-engine/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

type fakeCatalogRepo struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	variants map[string]*domain.Variant
	nextID   int
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		products: make(map[string]*domain.Product),
		variants: make(map[string]*domain.Variant),
	}
}

var _ ports.CatalogRepository = (*fakeCatalogRepo)(nil)

func (f *fakeCatalogRepo) GetProductByExternalID(ctx context.Context, businessID, externalID string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.BusinessID == businessID && p.Source == domain.SourceSynced && p.ExternalID == externalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalogRepo) InsertProduct(ctx context.Context, p *domain.Product) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *p
	cp.ID = fmt.Sprintf("p%d", f.nextID)
	f.products[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeCatalogRepo) UpdateProduct(ctx context.Context, p *domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[p.ID]; !ok {
		return fmt.Errorf("product %s not found", p.ID)
	}
	cp := *p
	f.products[p.ID] = &cp
	return nil
}

func (f *fakeCatalogRepo) ListProducts(ctx context.Context, businessID string) ([]*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Product
	for _, p := range f.products {
		if p.BusinessID == businessID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeCatalogRepo) ListSyncedProducts(ctx context.Context, businessID string, availableOnly bool) ([]*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Product
	for _, p := range f.products {
		if p.BusinessID != businessID || p.Source != domain.SourceSynced || p.Deleted {
			continue
		}
		if availableOnly && !p.Available {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeCatalogRepo) MarkProductUnavailable(ctx context.Context, productID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return fmt.Errorf("product %s not found", productID)
	}
	p.Available = false
	return nil
}

func (f *fakeCatalogRepo) GetVariantByExternalID(ctx context.Context, externalID string) (*domain.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.variants {
		if v.ExternalID == externalID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalogRepo) InsertVariant(ctx context.Context, v *domain.Variant) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *v
	cp.ID = fmt.Sprintf("v%d", f.nextID)
	f.variants[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeCatalogRepo) UpdateVariant(ctx context.Context, v *domain.Variant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.variants[v.ID]; !ok {
		return fmt.Errorf("variant %s not found", v.ID)
	}
	cp := *v
	f.variants[v.ID] = &cp
	return nil
}

func (f *fakeCatalogRepo) ListSyncedVariants(ctx context.Context, businessID string, availableOnly bool) ([]*domain.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Variant
	for _, v := range f.variants {
		if v.BusinessID != businessID || v.ExternalID == "" {
			continue
		}
		if availableOnly && !v.Available {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeCatalogRepo) MarkVariantUnavailable(ctx context.Context, variantID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[variantID]
	if !ok {
		return fmt.Errorf("variant %s not found", variantID)
	}
	v.Available = false
	return nil
}

func (f *fakeCatalogRepo) DetachBusinessCatalog(ctx context.Context, businessID string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.products {
		if p.BusinessID == businessID && p.Source == domain.SourceSynced {
			p.Source = domain.SourceManual
			p.ExternalID = ""
			p.SyncedAt = nil
			n++
		}
	}
	for _, v := range f.variants {
		if v.BusinessID == businessID {
			v.ExternalID = ""
			v.SyncedAt = nil
		}
	}
	return n, nil
}

type fakeConnectionRepo struct {
	mu    sync.Mutex
	conns map[string]*domain.Connection
}

func newFakeConnectionRepo() *fakeConnectionRepo {
	return &fakeConnectionRepo{conns: make(map[string]*domain.Connection)}
}

var _ ports.ConnectionRepository = (*fakeConnectionRepo)(nil)

func (f *fakeConnectionRepo) GetByBusiness(ctx context.Context, businessID string) (*domain.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[businessID]
	if !ok {
		return nil, nil
	}
	cp := *conn
	return &cp, nil
}

func (f *fakeConnectionRepo) Save(ctx context.Context, conn *domain.Connection) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *conn
	cp.ID = "c1"
	f.conns[conn.BusinessID] = &cp
	return cp.ID, nil
}

func (f *fakeConnectionRepo) UpdateSyncStatus(ctx context.Context, businessID string, at time.Time, status domain.SyncStatus) error {
	return nil
}

func (f *fakeConnectionRepo) UpdateWebhookIDs(ctx context.Context, businessID string, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if conn, ok := f.conns[businessID]; ok {
		conn.WebhookIDs = ids
	}
	return nil
}

func (f *fakeConnectionRepo) Delete(ctx context.Context, businessID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, businessID)
	return nil
}

type fakeShopify struct {
	mu              sync.Mutex
	deletedWebhooks []int64
}

var _ ports.ShopifyClient = (*fakeShopify)(nil)

func (f *fakeShopify) AuthURL(shop string, scopes []string, redirectURI string, state string) string {
	return ""
}

func (f *fakeShopify) ExchangeToken(ctx context.Context, shop string, code string) (string, []string, error) {
	return "shpat_test", []string{"read_products"}, nil
}

func (f *fakeShopify) GetShop(ctx context.Context, shop string, accessToken string) (*goshopify.Shop, error) {
	return &goshopify.Shop{Domain: shop}, nil
}

func (f *fakeShopify) ListProducts(ctx context.Context, shop string, accessToken string, sinceID uint64, limit int) ([]domain.UpstreamProduct, uint64, error) {
	return nil, 0, nil
}

func (f *fakeShopify) CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) (int64, error) {
	return 1, nil
}

func (f *fakeShopify) ListWebhooks(ctx context.Context, shop string, accessToken string) ([]goshopify.Webhook, error) {
	return nil, nil
}

func (f *fakeShopify) DeleteWebhook(ctx context.Context, shop string, accessToken string, webhookID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedWebhooks = append(f.deletedWebhooks, webhookID)
	return nil
}

type fakeEncryption struct{}

var _ ports.EncryptionService = (*fakeEncryption)(nil)

func (fakeEncryption) Encrypt(plaintext string) (string, error) { return "enc:" + plaintext, nil }

func (fakeEncryption) Decrypt(ciphertext string) (string, error) {
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}
