package application

import (
	"context"
	"fmt"
	"strings"

	"cardmint-shopify-app/internal/domain"
	"cardmint-shopify-app/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SettingsService implements the settings screen's business logic: reading
// and mutating the per-shop gift card configuration. The webhook pipeline
// only ever reads this state.
type SettingsService struct {
	settingsRepo ports.SettingsRepository
	logger       zerolog.Logger
}

// NewSettingsService creates a new settings application service
func NewSettingsService(settingsRepo ports.SettingsRepository, logger zerolog.Logger) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		logger:       logger,
	}
}

// GetSettings retrieves the shop's settings, materialising the defaults on
// first access.
func (s *SettingsService) GetSettings(ctx context.Context, shop string) (*domain.ShopSettings, error) {
	settings, err := s.settingsRepo.Get(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if settings != nil {
		return settings, nil
	}

	settings = domain.DefaultShopSettings(shop)
	if err := s.settingsRepo.Save(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to create default settings: %w", err)
	}
	s.logger.Info().Str("shop", shop).Msg("Created default shop settings")
	return settings, nil
}

// UpdateSettingsInput carries the scalar settings the merchant can change.
// Nil fields are left untouched.
type UpdateSettingsInput struct {
	SendEmailNotification *bool   `json:"send_email_notification"`
	PrintedOverhead       *string `json:"printed_overhead"`
}

// UpdateSettings updates the scalar settings flags for a shop.
func (s *SettingsService) UpdateSettings(ctx context.Context, shop string, input UpdateSettingsInput) (*domain.ShopSettings, error) {
	settings, err := s.GetSettings(ctx, shop)
	if err != nil {
		return nil, err
	}

	if input.SendEmailNotification != nil {
		settings.SendEmailNotification = *input.SendEmailNotification
	}
	if input.PrintedOverhead != nil {
		overhead, err := decimal.NewFromString(strings.TrimSpace(*input.PrintedOverhead))
		if err != nil {
			return nil, fmt.Errorf("invalid printed overhead %q: %w", *input.PrintedOverhead, err)
		}
		if overhead.IsNegative() {
			return nil, fmt.Errorf("printed overhead must not be negative")
		}
		settings.PrintedOverhead = overhead
	}

	if err := s.settingsRepo.Save(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	s.logger.Info().
		Str("shop", shop).
		Bool("sendEmailNotification", settings.SendEmailNotification).
		Str("printedOverhead", settings.PrintedOverhead.StringFixed(2)).
		Msg("Updated shop settings")

	return settings, nil
}

// AddTriggerVariant registers a product variant as a gift card trigger.
// Adding an already registered variant is a no-op.
func (s *SettingsService) AddTriggerVariant(ctx context.Context, shop string, variantID string) error {
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return fmt.Errorf("variant id is required")
	}
	if _, err := s.GetSettings(ctx, shop); err != nil {
		return err
	}
	if err := s.settingsRepo.AddTriggerVariant(ctx, shop, variantID); err != nil {
		return fmt.Errorf("failed to add trigger variant: %w", err)
	}
	s.logger.Info().Str("shop", shop).Str("variantId", variantID).Msg("Added trigger variant")
	return nil
}

// RemoveTriggerVariant unregisters a product variant.
func (s *SettingsService) RemoveTriggerVariant(ctx context.Context, shop string, variantID string) error {
	if err := s.settingsRepo.RemoveTriggerVariant(ctx, shop, variantID); err != nil {
		return fmt.Errorf("failed to remove trigger variant: %w", err)
	}
	s.logger.Info().Str("shop", shop).Str("variantId", variantID).Msg("Removed trigger variant")
	return nil
}
