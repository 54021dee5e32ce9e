package webhook_handlers

import (
	"context"
	"fmt"

	"catalog-sync-engine/internal/application"
	"catalog-sync-engine/internal/domain"
	"catalog-sync-engine/internal/upstream"

	"github.com/rs/zerolog"
)

// ProductHandler applies product-level webhook events. An upsert event is
// authoritative about exactly one product, so it drives the upsert
// primitives directly with no seen set and no sweep; a delete event marks
// only the referenced product unavailable.
type ProductHandler struct {
	catalog *application.CatalogService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product webhook handler
func NewProductHandler(catalog *application.CatalogService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ProductHandler) CanHandle(topic string) bool {
	return topic == "products/create" ||
		topic == "products/update" ||
		topic == "products/delete"
}

// Handle processes a product webhook event
func (h *ProductHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	businessID := event.BusinessID
	if businessID == "" {
		businessID = domain.GetBusinessIDFromContext(ctx)
	}
	if businessID == "" {
		return fmt.Errorf("product webhook has no business id")
	}

	if event.Topic == "products/delete" {
		externalID, err := upstream.DecodeID(event.Payload)
		if err != nil {
			return err
		}
		if err := h.catalog.RemoveProduct(ctx, businessID, externalID); err != nil {
			return err
		}
		h.logger.Info().
			Str("businessId", businessID).
			Str("externalId", externalID).
			Msg("Product removed by webhook")
		return nil
	}

	product, err := upstream.DecodeProduct(event.Payload)
	if err != nil {
		return err
	}

	res, err := h.catalog.UpsertProduct(ctx, businessID, product)
	if err != nil {
		return err
	}
	for _, v := range product.Variants {
		if _, err := h.catalog.UpsertVariant(ctx, businessID, res.ID, v); err != nil {
			return err
		}
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("businessId", businessID).
		Str("externalId", product.ExternalID).
		Str("name", product.Name).
		Bool("isNew", res.IsNew).
		Int("variants", len(product.Variants)).
		Msg("Product upserted by webhook")
	return nil
}
