package webhook_handlers

import (
	"context"
	"fmt"

	"catalog-sync-engine/internal/application"
	"catalog-sync-engine/internal/domain"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler reacts to the upstream platform revoking the app:
// the connection is severed but the business keeps its catalog, converted to
// manually-owned rows.
type AppUninstalledHandler struct {
	connections *application.ConnectionService
	logger      zerolog.Logger
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(connections *application.ConnectionService, logger zerolog.Logger) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		connections: connections,
		logger:      logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == "app/uninstalled"
}

// Handle processes an app uninstalled webhook event
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	businessID := event.BusinessID
	if businessID == "" {
		businessID = domain.GetBusinessIDFromContext(ctx)
	}
	if businessID == "" {
		return fmt.Errorf("app uninstalled webhook has no business id")
	}

	h.logger.Info().
		Str("businessId", businessID).
		Str("shop", event.Shop).
		Msg("Processing app uninstalled webhook event")

	return h.connections.Disconnect(ctx, businessID)
}
