package pubsub

import (
	"context"
	"fmt"
	"sync"

	"catalog-sync-engine/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookEventChannel represents a subscription channel
type WebhookEventChannel struct {
	ID     string
	Filter *WebhookEventFilter
	Events chan *domain.WebhookEvent
	ctx    context.Context
	cancel context.CancelFunc
}

// WebhookEventFilter filters webhook events
type WebhookEventFilter struct {
	Topics     []string // Filter by topics
	BusinessID string   // Filter by business
}

// WebhookPubSub fans inbound webhook events out to in-process subscribers
// (the operational event stream). Delivery is best-effort: a subscriber that
// cannot keep up loses events rather than blocking ingestion.
type WebhookPubSub struct {
	mu       sync.RWMutex
	channels map[string]*WebhookEventChannel
	logger   zerolog.Logger
	nextID   int64
}

// NewWebhookPubSub creates a new webhook pub/sub system
func NewWebhookPubSub(logger zerolog.Logger) *WebhookPubSub {
	return &WebhookPubSub{
		channels: make(map[string]*WebhookEventChannel),
		logger:   logger,
	}
}

// Subscribe creates a new subscription channel, removed automatically when
// the context ends.
func (ps *WebhookPubSub) Subscribe(ctx context.Context, filter *WebhookEventFilter) *WebhookEventChannel {
	subCtx, cancel := context.WithCancel(ctx)

	ps.mu.Lock()
	ps.nextID++
	channel := &WebhookEventChannel{
		ID:     fmt.Sprintf("channel-%d", ps.nextID),
		Filter: filter,
		Events: make(chan *domain.WebhookEvent, 10),
		ctx:    subCtx,
		cancel: cancel,
	}
	ps.channels[channel.ID] = channel
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("channelId", channel.ID).
		Msg("Webhook subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(channel.ID)
	}()

	return channel
}

// Unsubscribe removes a subscription channel
func (ps *WebhookPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	channel.cancel()
	close(channel.Events)
	delete(ps.channels, channelID)

	ps.logger.Debug().
		Str("channelId", channelID).
		Msg("Webhook subscription removed")
}

// Publish broadcasts a webhook event to all matching subscribers.
func (ps *WebhookPubSub) Publish(event *domain.WebhookEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, channel := range ps.channels {
		if !matchesFilter(event, channel.Filter) {
			continue
		}
		select {
		case channel.Events <- event:
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Str("topic", event.Topic).
				Msg("Subscriber buffer full, dropping event")
		}
	}
}

// ActiveSubscriptions returns the number of live channels.
func (ps *WebhookPubSub) ActiveSubscriptions() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.channels)
}

func matchesFilter(event *domain.WebhookEvent, filter *WebhookEventFilter) bool {
	if filter == nil {
		return true
	}
	if len(filter.Topics) > 0 {
		match := false
		for _, topic := range filter.Topics {
			if event.Topic == topic {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	if filter.BusinessID != "" && event.BusinessID != filter.BusinessID {
		return false
	}
	return true
}
