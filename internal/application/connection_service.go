package application

import (
	"context"
	"fmt"
	"time"

	"catalog-sync-engine/internal/domain"
	"catalog-sync-engine/internal/ports"

	"github.com/rs/zerolog"
)

// ErrNotConnected is returned when an operation requires an upstream
// connection the business does not have.
var ErrNotConnected = fmt.Errorf("business is not connected to the upstream platform")

// DefaultWebhookTopics are the change events subscribed on connect.
var DefaultWebhookTopics = []string{
	"products/create",
	"products/update",
	"products/delete",
	"app/uninstalled",
}

// ConnectionService implements the connection manager: it owns the
// one-per-business link to the upstream platform and its sync-status
// bookkeeping.
type ConnectionService struct {
	connections    ports.ConnectionRepository
	catalog        *CatalogService
	client         ports.ShopifyClient
	encryptionSvc  ports.EncryptionService
	logger         zerolog.Logger
	webhookBaseURL string
}

// NewConnectionService creates a new connection service
func NewConnectionService(
	connections ports.ConnectionRepository,
	catalog *CatalogService,
	client ports.ShopifyClient,
	encryptionSvc ports.EncryptionService,
	logger zerolog.Logger,
	webhookBaseURL string,
) *ConnectionService {
	return &ConnectionService{
		connections:    connections,
		catalog:        catalog,
		client:         client,
		encryptionSvc:  encryptionSvc,
		logger:         logger,
		webhookBaseURL: webhookBaseURL,
	}
}

// SaveConnection upserts the business's connection. The access token is
// encrypted before it reaches the record store. Regardless of how many times
// this is called, the business ends up with exactly one connection.
func (s *ConnectionService) SaveConnection(ctx context.Context, businessID, shop, accessToken string, scopes []string) (string, error) {
	encrypted, err := s.encryptionSvc.Encrypt(accessToken)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt access token: %w", err)
	}

	id, err := s.connections.Save(ctx, &domain.Connection{
		BusinessID:  businessID,
		ShopDomain:  shop,
		AccessToken: encrypted,
		Scopes:      scopes,
	})
	if err != nil {
		return "", fmt.Errorf("failed to save connection: %w", err)
	}

	s.logger.Info().
		Str("businessId", businessID).
		Str("shop", shop).
		Strs("scopes", scopes).
		Msg("Saved upstream connection")
	return id, nil
}

// Connect completes the OAuth handshake for a business: exchanges the code,
// verifies the shop, stores the connection and subscribes the default
// webhook topics. Returns the connection id.
func (s *ConnectionService) Connect(ctx context.Context, businessID, shop, code string) (string, error) {
	token, scopes, err := s.client.ExchangeToken(ctx, shop, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange token: %w", err)
	}

	shopInfo, err := s.client.GetShop(ctx, shop, token)
	if err != nil {
		return "", fmt.Errorf("failed to get shop info: %w", err)
	}

	connectionID, err := s.SaveConnection(ctx, businessID, shopInfo.Domain, token, scopes)
	if err != nil {
		return "", err
	}

	// Webhook subscription is best-effort: a business with no webhooks still
	// converges through full syncs.
	address := s.webhookBaseURL + "/" + businessID
	var ids []int64
	for _, topic := range DefaultWebhookTopics {
		id, err := s.client.CreateWebhook(ctx, shopInfo.Domain, token, topic, address)
		if err != nil {
			s.logger.Warn().Err(err).Str("shop", shopInfo.Domain).Str("topic", topic).Msg("Failed to subscribe webhook")
			continue
		}
		ids = append(ids, id)
	}
	if err := s.connections.UpdateWebhookIDs(ctx, businessID, ids); err != nil {
		s.logger.Warn().Err(err).Str("businessId", businessID).Msg("Failed to store webhook ids")
	}

	s.logger.Info().
		Str("businessId", businessID).
		Str("shop", shopInfo.Domain).
		Int("webhooks", len(ids)).
		Msg("Connected business to upstream platform")
	return connectionID, nil
}

// UpdateSyncStatus records the outcome of a sync run. Silently skipped when
// the business has no connection: status only exists for an active link.
func (s *ConnectionService) UpdateSyncStatus(ctx context.Context, businessID string, status domain.SyncStatus) error {
	if err := s.connections.UpdateSyncStatus(ctx, businessID, time.Now(), status); err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	return nil
}

// UpdateWebhookIDs replaces the stored webhook subscription ids.
func (s *ConnectionService) UpdateWebhookIDs(ctx context.Context, businessID string, ids []int64) error {
	if err := s.connections.UpdateWebhookIDs(ctx, businessID, ids); err != nil {
		return fmt.Errorf("failed to update webhook ids: %w", err)
	}
	return nil
}

// GetConnection returns the business's connection with the access token
// decrypted for API use, or (nil, nil) when not connected.
func (s *ConnectionService) GetConnection(ctx context.Context, businessID string) (*domain.Connection, error) {
	conn, err := s.connections.GetByBusiness(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	if conn == nil {
		return nil, nil
	}
	if conn.AccessToken != "" {
		token, err := s.encryptionSvc.Decrypt(conn.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}
		conn.AccessToken = token
	}
	return conn, nil
}

// GetStatus returns the upward-facing connection status for a business.
func (s *ConnectionService) GetStatus(ctx context.Context, businessID string) (*domain.ConnectionStatus, error) {
	conn, err := s.connections.GetByBusiness(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	if conn == nil {
		return &domain.ConnectionStatus{Connected: false}, nil
	}
	return &domain.ConnectionStatus{
		Connected:      true,
		ShopDomain:     conn.ShopDomain,
		LastSyncAt:     conn.LastSyncAt,
		LastSyncStatus: conn.LastSyncStatus,
	}, nil
}

// Disconnect severs the business's link to the upstream platform without
// deleting catalog data: unsubscribes stored webhooks, deletes the
// connection row, then detaches every synced product into a manually-owned
// one. Catalog row count is identical before and after.
func (s *ConnectionService) Disconnect(ctx context.Context, businessID string) error {
	conn, err := s.GetConnection(ctx, businessID)
	if err != nil {
		return err
	}
	if conn == nil {
		// Already disconnected; replayed app/uninstalled events land here.
		s.logger.Debug().Str("businessId", businessID).Msg("Disconnect for business with no connection, ignoring")
		return nil
	}

	for _, id := range conn.WebhookIDs {
		if err := s.client.DeleteWebhook(ctx, conn.ShopDomain, conn.AccessToken, id); err != nil {
			s.logger.Warn().Err(err).Str("shop", conn.ShopDomain).Int64("webhookId", id).Msg("Failed to delete upstream webhook")
		}
	}

	if err := s.connections.Delete(ctx, businessID); err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	if err := s.catalog.Detach(ctx, businessID); err != nil {
		return err
	}

	s.logger.Info().
		Str("businessId", businessID).
		Str("shop", conn.ShopDomain).
		Msg("Disconnected business from upstream platform")
	return nil
}
