package application

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

// fakeCatalogRepo is an in-memory CatalogRepository. Write failures can be
// injected per external id to exercise partial-failure paths.
type fakeCatalogRepo struct {
	mu         sync.Mutex
	products   map[string]*domain.Product
	variants   map[string]*domain.Variant
	nextID     int
	productErr map[string]error
	variantErr map[string]error
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		products:   make(map[string]*domain.Product),
		variants:   make(map[string]*domain.Variant),
		productErr: make(map[string]error),
		variantErr: make(map[string]error),
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
	if err := f.productErr[p.ExternalID]; err != nil {
		return "", err
	}
	f.nextID++
	cp := *p
	cp.ID = fmt.Sprintf("p%d", f.nextID)
	f.products[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeCatalogRepo) UpdateProduct(ctx context.Context, p *domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.productErr[p.ExternalID]; err != nil {
		return err
	}
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
	p.UpdatedAt = at
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
	if err := f.variantErr[v.ExternalID]; err != nil {
		return "", err
	}
	f.nextID++
	cp := *v
	cp.ID = fmt.Sprintf("v%d", f.nextID)
	f.variants[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeCatalogRepo) UpdateVariant(ctx context.Context, v *domain.Variant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.variantErr[v.ExternalID]; err != nil {
		return err
	}
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
	v.UpdatedAt = at
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
			p.UpdatedAt = at
			n++
		}
	}
	for _, v := range f.variants {
		if v.BusinessID == businessID {
			v.ExternalID = ""
			v.SyncedAt = nil
			v.UpdatedAt = at
		}
	}
	return n, nil
}

func (f *fakeCatalogRepo) countProducts(businessID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.products {
		if p.BusinessID == businessID {
			n++
		}
	}
	return n
}

// fakeConnectionRepo is an in-memory ConnectionRepository keyed by business.
type fakeConnectionRepo struct {
	mu     sync.Mutex
	conns  map[string]*domain.Connection
	nextID int
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
	now := time.Now()
	if existing, ok := f.conns[conn.BusinessID]; ok {
		existing.ShopDomain = conn.ShopDomain
		existing.AccessToken = conn.AccessToken
		existing.Scopes = conn.Scopes
		existing.UpdatedAt = now
		return existing.ID, nil
	}
	f.nextID++
	cp := *conn
	cp.ID = fmt.Sprintf("c%d", f.nextID)
	cp.CreatedAt = now
	cp.UpdatedAt = now
	f.conns[conn.BusinessID] = &cp
	return cp.ID, nil
}

func (f *fakeConnectionRepo) UpdateSyncStatus(ctx context.Context, businessID string, at time.Time, status domain.SyncStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[businessID]
	if !ok {
		return nil
	}
	conn.LastSyncAt = &at
	conn.LastSyncStatus = status
	return nil
}

func (f *fakeConnectionRepo) UpdateWebhookIDs(ctx context.Context, businessID string, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[businessID]
	if !ok {
		return nil
	}
	conn.WebhookIDs = ids
	return nil
}

func (f *fakeConnectionRepo) Delete(ctx context.Context, businessID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, businessID)
	return nil
}

// fakeShopify is a scripted ShopifyClient. ListProducts serves pages in
// order; errAfterPages pages are served before listErr fires (-1 disables).
type fakeShopify struct {
	mu            sync.Mutex
	pages         [][]domain.UpstreamProduct
	currency      string
	served        int
	shopErr       error
	listErr       error
	errAfterPages int

	token       string
	scopes      []string
	exchangeErr error

	nextWebhookID   int64
	createdTopics   []string
	deletedWebhooks []int64
}

func newFakeShopify() *fakeShopify {
	return &fakeShopify{currency: "EUR", token: "shpat_test", scopes: []string{"read_products"}, errAfterPages: -1}
}

var _ ports.ShopifyClient = (*fakeShopify)(nil)

func (f *fakeShopify) setPages(pages ...[]domain.UpstreamProduct) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = pages
	f.served = 0
}

func (f *fakeShopify) AuthURL(shop string, scopes []string, redirectURI string, state string) string {
	return "https://" + shop + "/admin/oauth/authorize?scope=" + strings.Join(scopes, ",") + "&state=" + state
}

func (f *fakeShopify) ExchangeToken(ctx context.Context, shop string, code string) (string, []string, error) {
	if f.exchangeErr != nil {
		return "", nil, f.exchangeErr
	}
	return f.token, f.scopes, nil
}

func (f *fakeShopify) GetShop(ctx context.Context, shop string, accessToken string) (*goshopify.Shop, error) {
	if f.shopErr != nil {
		return nil, f.shopErr
	}
	return &goshopify.Shop{Domain: shop, Currency: f.currency}, nil
}

func (f *fakeShopify) ListProducts(ctx context.Context, shop string, accessToken string, sinceID uint64, limit int) ([]domain.UpstreamProduct, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil && f.served >= f.errAfterPages {
		return nil, 0, f.listErr
	}
	if f.served >= len(f.pages) {
		return nil, 0, nil
	}
	page := f.pages[f.served]
	f.served++
	if f.served < len(f.pages) || (f.listErr != nil && f.served >= f.errAfterPages) {
		return page, uint64(f.served), nil
	}
	return page, 0, nil
}

func (f *fakeShopify) CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextWebhookID++
	f.createdTopics = append(f.createdTopics, topic)
	return f.nextWebhookID, nil
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

// fakeLocker tracks acquisitions; busy simulates a lock held elsewhere.
type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	busy     bool
	acquired int
	released int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

var _ ports.SyncLocker = (*fakeLocker)(nil)

func (f *fakeLocker) Acquire(ctx context.Context, businessID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy || f.held[businessID] {
		return false, nil
	}
	f.held[businessID] = true
	f.acquired++
	return true, nil
}

func (f *fakeLocker) Release(ctx context.Context, businessID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, businessID)
	f.released++
	return nil
}

// fakeEncryption marks values instead of encrypting them so tests can see
// what was stored.
type fakeEncryption struct{}

var _ ports.EncryptionService = (*fakeEncryption)(nil)

func (fakeEncryption) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (fakeEncryption) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", fmt.Errorf("value was not encrypted")
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}
