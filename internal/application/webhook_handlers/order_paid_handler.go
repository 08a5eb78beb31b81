package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"cardmint-shopify-app/internal/application"
	"cardmint-shopify-app/internal/domain"
	"cardmint-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// OrderPaidHandler handles orders/paid webhook events by running the gift
// card issuance pipeline.
type OrderPaidHandler struct {
	logger   zerolog.Logger
	shopRepo ports.ShopRepository
	issuance *application.IssuanceService
}

// NewOrderPaidHandler creates a new orders/paid webhook handler
func NewOrderPaidHandler(
	logger zerolog.Logger,
	shopRepo ports.ShopRepository,
	issuance *application.IssuanceService,
) *OrderPaidHandler {
	return &OrderPaidHandler{
		logger:   logger,
		shopRepo: shopRepo,
		issuance: issuance,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *OrderPaidHandler) CanHandle(topic string) bool {
	return topic == "orders/paid"
}

// Handle processes an orders/paid webhook event
func (h *OrderPaidHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var order domain.OrderPaidEvent
	if err := json.Unmarshal(event.Payload, &order); err != nil {
		return fmt.Errorf("failed to parse order webhook payload: %w", err)
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Int64("orderId", order.ID).
		Str("orderName", order.Name).
		Int("lineItems", len(order.LineItems)).
		Msg("Processing orders/paid webhook event")

	shop, err := h.shopRepo.GetShop(ctx, event.Shop)
	if err != nil {
		return fmt.Errorf("failed to look up shop %s: %w", event.Shop, err)
	}
	if shop == nil {
		return fmt.Errorf("received webhook for unknown shop %s", event.Shop)
	}

	if err := h.issuance.ProcessOrderPaid(ctx, shop, &order); err != nil {
		return fmt.Errorf("failed to process paid order %d: %w", order.ID, err)
	}
	return nil
}
