package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"cardmint-shopify-app/internal/domain"
	"cardmint-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	logger   zerolog.Logger
	shopRepo ports.ShopRepository
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(logger zerolog.Logger, shopRepo ports.ShopRepository) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:   logger,
		shopRepo: shopRepo,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == "app/uninstalled"
}

// Handle processes an app uninstalled webhook event. The access token is
// dropped; issuance records and settings are kept so a reinstall finds the
// shop's history intact.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain := event.Shop
	if shopDomain == "" {
		var shopData map[string]interface{}
		if err := json.Unmarshal(event.Payload, &shopData); err == nil {
			if d, ok := shopData["myshopify_domain"].(string); ok {
				shopDomain = d
			}
		}
	}
	if shopDomain == "" {
		return fmt.Errorf("app uninstalled webhook without a shop domain")
	}

	shop, err := h.shopRepo.GetShop(ctx, shopDomain)
	if err != nil {
		return fmt.Errorf("failed to look up shop %s: %w", shopDomain, err)
	}
	if shop == nil {
		h.logger.Warn().Str("shop", shopDomain).Msg("Uninstall webhook for unknown shop")
		return nil
	}

	shop.AccessToken = ""
	if err := h.shopRepo.SaveShop(ctx, shop); err != nil {
		return fmt.Errorf("failed to clear access token for %s: %w", shopDomain, err)
	}

	h.logger.Info().Str("shop", shopDomain).Msg("App uninstalled, access token cleared")
	return nil
}
