package application

import (
	"context"
	"fmt"

	"catalog-sync-engine/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookHandler processes webhook events for the topics it declares.
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDispatcher routes an inbound webhook event to the first registered
// handler that claims its topic. Events must tolerate at-least-once and
// out-of-order delivery: handlers patch unconditionally, keyed only by
// external id, so a replay converges to whatever the most recently processed
// event says.
type WebhookDispatcher struct {
	handlers []WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a new webhook dispatcher
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{logger: logger}
}

// RegisterHandler adds a handler to the dispatch chain.
func (d *WebhookDispatcher) RegisterHandler(h WebhookHandler) {
	d.handlers = append(d.handlers, h)
}

// Dispatch processes a single event. An unclaimed topic is not an error;
// it is logged and acknowledged so the upstream platform stops retrying.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	for _, h := range d.handlers {
		if !h.CanHandle(event.Topic) {
			continue
		}
		if err := h.Handle(ctx, event); err != nil {
			return fmt.Errorf("webhook handler failed for topic %s: %w", event.Topic, err)
		}
		return nil
	}

	d.logger.Debug().
		Str("topic", event.Topic).
		Str("businessId", event.BusinessID).
		Msg("No handler registered for webhook topic")
	return nil
}
