package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"catalog-sync-engine/internal/domain"
	"catalog-sync-engine/internal/ports"
	"catalog-sync-engine/internal/upstream"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

type client struct {
	apiKey      string
	apiSecret   string
	app         goshopify.App
	rateLimiter *RateLimiter
	retryConfig RetryConfig
	logger      zerolog.Logger
}

// NewClient creates a new Shopify client adapter
func NewClient(apiKey, apiSecret string) ports.ShopifyClient {
	return NewClientWithOptions(apiKey, apiSecret, nil, DefaultRetryConfig(), zerolog.Nop())
}

// NewClientWithOptions creates a client with rate limiting and retry options
func NewClientWithOptions(
	apiKey, apiSecret string,
	rateLimiter *RateLimiter,
	retryConfig RetryConfig,
	logger zerolog.Logger,
) ports.ShopifyClient {
	app := goshopify.App{
		ApiKey:    apiKey,
		ApiSecret: apiSecret,
	}
	return &client{
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		app:         app,
		rateLimiter: rateLimiter,
		retryConfig: retryConfig,
		logger:      logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	cl, err := goshopify.NewClient(c.app, shopDomain, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return cl, nil
}

// AuthURL builds the OAuth authorization URL. Shopify expects scopes
// comma-separated with no spaces.
func (c *client) AuthURL(shop string, scopes []string, redirectURI string, state string) string {
	return fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		c.apiKey,
		url.QueryEscape(strings.Join(scopes, ",")),
		url.QueryEscape(redirectURI),
		url.QueryEscape(state),
	)
}

// ExchangeToken exchanges the authorization code for an access token. The
// token endpoint is called directly because the response's scope field, the
// scopes actually granted, is needed and the library call discards it.
func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (string, []string, error) {
	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)

	values := url.Values{}
	values.Set("client_id", c.apiKey)
	values.Set("client_secret", c.apiSecret)
	values.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", nil, fmt.Errorf("failed to exchange token: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return "", nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	var scopes []string
	if tokenResponse.Scope != "" {
		scopes = strings.Split(tokenResponse.Scope, ",")
	}
	return tokenResponse.AccessToken, scopes, nil
}

// GetShop fetches shop metadata
func (c *client) GetShop(ctx context.Context, shopDomain string, accessToken string) (*goshopify.Shop, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var shop *goshopify.Shop
	err = c.do(ctx, func() error {
		var err error
		shop, err = cl.Shop.Get(ctx, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return shop, nil
}

type productListOptions struct {
	Limit   int    `url:"limit,omitempty"`
	SinceID uint64 `url:"since_id,omitempty"`
}

// ListProducts fetches one since_id page of the product catalog and parses
// it into domain types. nextSinceID is zero on the last page.
func (c *client) ListProducts(ctx context.Context, shopDomain string, accessToken string, sinceID uint64, limit int) ([]domain.UpstreamProduct, uint64, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, 0, err
	}

	var page upstream.ProductsEnvelope
	err = c.do(ctx, func() error {
		page = upstream.ProductsEnvelope{}
		return cl.Get(ctx, "products.json", &page, productListOptions{Limit: limit, SinceID: sinceID})
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]domain.UpstreamProduct, 0, len(page.Products))
	var lastID uint64
	for _, p := range page.Products {
		products = append(products, p.ToDomain())
		if uint64(p.ID) > lastID {
			lastID = uint64(p.ID)
		}
	}

	if len(page.Products) < limit {
		return products, 0, nil
	}
	return products, lastID, nil
}

// CreateWebhook subscribes one topic and returns the subscription id
func (c *client) CreateWebhook(ctx context.Context, shopDomain string, accessToken string, topic string, address string) (int64, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return 0, err
	}
	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	var created *goshopify.Webhook
	err = c.do(ctx, func() error {
		var err error
		created, err = cl.Webhook.Create(ctx, webhook)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create webhook: %w", err)
	}
	return int64(created.Id), nil
}

// ListWebhooks lists the shop's webhook subscriptions
func (c *client) ListWebhooks(ctx context.Context, shopDomain string, accessToken string) ([]goshopify.Webhook, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var webhooks []goshopify.Webhook
	err = c.do(ctx, func() error {
		var err error
		webhooks, err = cl.Webhook.List(ctx, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	return webhooks, nil
}

// DeleteWebhook removes one webhook subscription
func (c *client) DeleteWebhook(ctx context.Context, shopDomain string, accessToken string, webhookID int64) error {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	err = c.do(ctx, func() error {
		return cl.Webhook.Delete(ctx, uint64(webhookID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}

// do runs one API call through the rate limiter and retry policy.
func (c *client) do(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return err
			}
		}
		if attempt > 0 {
			if err := c.retryConfig.backoff(ctx, attempt); err != nil {
				return err
			}
			c.logger.Debug().Int("attempt", attempt).Msg("Retrying Shopify API call")
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// retryable reports whether an error is worth retrying: throttling and
// transient server errors, never auth failures.
func retryable(err error) bool {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "403") {
		return false
	}
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "connection reset")
}
