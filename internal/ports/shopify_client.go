package ports

import (
	"context"

	"catalog-sync-engine/internal/domain"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// ShopifyClient defines the operations the engine needs from the upstream
// platform: OAuth, shop lookup, a paginated product listing parsed into
// domain types, and webhook subscription management.
type ShopifyClient interface {
	// AuthURL builds the OAuth authorization URL for a shop.
	AuthURL(shop string, scopes []string, redirectURI string, state string) string

	// ExchangeToken exchanges the authorization code for an access token and
	// the scopes actually granted.
	ExchangeToken(ctx context.Context, shop string, code string) (token string, scopes []string, err error)

	// GetShop fetches shop metadata (name, currency).
	GetShop(ctx context.Context, shop string, accessToken string) (*shopify.Shop, error)

	// ListProducts fetches one page of the product catalog, products with
	// ids strictly greater than sinceID in ascending id order. nextSinceID
	// is zero when this was the last page.
	ListProducts(ctx context.Context, shop string, accessToken string, sinceID uint64, limit int) (products []domain.UpstreamProduct, nextSinceID uint64, err error)

	// Webhook subscriptions
	CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) (int64, error)
	ListWebhooks(ctx context.Context, shop string, accessToken string) ([]shopify.Webhook, error)
	DeleteWebhook(ctx context.Context, shop string, accessToken string, webhookID int64) error
}
