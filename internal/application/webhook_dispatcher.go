package application

import (
	"context"
	"fmt"

	"cardmint-shopify-app/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookHandler processes webhook events for the topics it declares
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDispatcher routes verified webhook events to registered handlers
type WebhookDispatcher struct {
	handlers []WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a new webhook dispatcher
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		logger: logger,
	}
}

// RegisterHandler adds a handler to the dispatch list
func (d *WebhookDispatcher) RegisterHandler(handler WebhookHandler) {
	d.handlers = append(d.handlers, handler)
}

// Dispatch routes an event to every handler that can process its topic.
// An event with no matching handler is logged and dropped, not an error.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	dispatched := false
	for _, handler := range d.handlers {
		if !handler.CanHandle(event.Topic) {
			continue
		}
		dispatched = true
		if err := handler.Handle(ctx, event); err != nil {
			return fmt.Errorf("handler failed for topic %s: %w", event.Topic, err)
		}
	}

	if !dispatched {
		d.logger.Debug().
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Msg("No handler registered for webhook topic")
	}
	return nil
}
