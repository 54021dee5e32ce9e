package webhook_handlers

import (
	"context"
	"fmt"

	"catalog-sync-engine/internal/application"
	"catalog-sync-engine/internal/domain"
	"catalog-sync-engine/internal/upstream"

	"github.com/rs/zerolog"
)

// VariantHandler applies variant-level webhook events. Upserts are keyed by
// the globally-unique external variant id; removal marks only the referenced
// variant unavailable.
type VariantHandler struct {
	catalog *application.CatalogService
	logger  zerolog.Logger
}

// NewVariantHandler creates a new variant webhook handler
func NewVariantHandler(catalog *application.CatalogService, logger zerolog.Logger) *VariantHandler {
	return &VariantHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *VariantHandler) CanHandle(topic string) bool {
	return topic == "variants/create" ||
		topic == "variants/update" ||
		topic == "variants/delete"
}

// Handle processes a variant webhook event
func (h *VariantHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	businessID := event.BusinessID
	if businessID == "" {
		businessID = domain.GetBusinessIDFromContext(ctx)
	}
	if businessID == "" {
		return fmt.Errorf("variant webhook has no business id")
	}

	if event.Topic == "variants/delete" {
		externalID, err := upstream.DecodeID(event.Payload)
		if err != nil {
			return err
		}
		if err := h.catalog.RemoveVariant(ctx, externalID); err != nil {
			return err
		}
		h.logger.Info().
			Str("businessId", businessID).
			Str("externalId", externalID).
			Msg("Variant removed by webhook")
		return nil
	}

	variant, productExternalID, err := upstream.DecodeVariant(event.Payload)
	if err != nil {
		return err
	}

	// The parent must already be synced. Surfacing an error makes the
	// platform redeliver, which resolves a variant event arriving ahead of
	// its product's create event.
	parent, err := h.catalog.GetProductByExternalID(ctx, businessID, productExternalID)
	if err != nil {
		return err
	}
	if parent == nil {
		return fmt.Errorf("variant %s references unknown product %s", variant.ExternalID, productExternalID)
	}

	res, err := h.catalog.UpsertVariant(ctx, businessID, parent.ID, variant)
	if err != nil {
		return err
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("businessId", businessID).
		Str("externalId", variant.ExternalID).
		Bool("isNew", res.IsNew).
		Msg("Variant upserted by webhook")
	return nil
}
