package application

import (
	"context"
	"fmt"
	"time"

	"cardmint-shopify-app/internal/domain"
	"cardmint-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// GiftCardService implements the read side of the admin screens: listing
// issued cards, revealing a full code on demand, toggling the printed
// marker, and live balance lookups.
type GiftCardService struct {
	issuanceRepo ports.IssuanceRepository
	shopRepo     ports.ShopRepository
	client       ports.ShopifyClient
	logger       zerolog.Logger
}

// NewGiftCardService creates a new gift card application service
func NewGiftCardService(
	issuanceRepo ports.IssuanceRepository,
	shopRepo ports.ShopRepository,
	client ports.ShopifyClient,
	logger zerolog.Logger,
) *GiftCardService {
	return &GiftCardService{
		issuanceRepo: issuanceRepo,
		shopRepo:     shopRepo,
		client:       client,
		logger:       logger,
	}
}

// OrderGroup is the per-order grouping the orders screen renders.
type OrderGroup struct {
	OrderID   int64                    `json:"order_id"`
	OrderName string                   `json:"order_name"`
	GiftCards []*domain.GiftCardRecord `json:"gift_cards"`
}

// ListGiftCards returns the shop's issuance records newest first, grouped
// by order, plus the total record count for pagination.
func (s *GiftCardService) ListGiftCards(ctx context.Context, shop string, page, perPage int64) ([]*OrderGroup, int64, error) {
	records, total, err := s.issuanceRepo.ListGiftCards(ctx, shop, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list gift cards: %w", err)
	}

	var groups []*OrderGroup
	byOrder := map[int64]*OrderGroup{}
	for _, r := range records {
		group, ok := byOrder[r.OrderID]
		if !ok {
			group = &OrderGroup{OrderID: r.OrderID, OrderName: r.OrderName}
			byOrder[r.OrderID] = group
			groups = append(groups, group)
		}
		group.GiftCards = append(group.GiftCards, r)
	}
	return groups, total, nil
}

// RevealCode returns the full, display-formatted code of one gift card.
// This is the only read path that exposes the unmasked code.
func (s *GiftCardService) RevealCode(ctx context.Context, shop string, id string) (string, error) {
	record, err := s.issuanceRepo.GetGiftCard(ctx, shop, id)
	if err != nil {
		return "", fmt.Errorf("failed to get gift card: %w", err)
	}
	if record == nil {
		return "", fmt.Errorf("gift card not found")
	}
	s.logger.Info().Str("shop", shop).Str("giftCardId", record.GiftCardID).Msg("Gift card code revealed")
	return domain.FormatCode(record.Code), nil
}

// SetPrinted marks or unmarks a record as physically printed.
func (s *GiftCardService) SetPrinted(ctx context.Context, shop string, id string, printed bool) error {
	var printedAt *time.Time
	if printed {
		now := time.Now()
		printedAt = &now
	}
	if err := s.issuanceRepo.SetPrinted(ctx, shop, id, printedAt); err != nil {
		return fmt.Errorf("failed to update printed state: %w", err)
	}
	s.logger.Info().Str("shop", shop).Str("id", id).Bool("printed", printed).Msg("Updated printed state")
	return nil
}

// GetBalances fetches the current balance of the given gift cards from
// Shopify in one batch call. Display only; the recorded value never tracks
// redemption.
func (s *GiftCardService) GetBalances(ctx context.Context, shop string, giftCardIDs []string) (map[string]string, error) {
	installed, err := s.shopRepo.GetShop(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	if installed == nil {
		return nil, fmt.Errorf("shop not installed: %s", shop)
	}
	balances, err := s.client.GetGiftCardBalances(ctx, shop, installed.AccessToken, giftCardIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get gift card balances: %w", err)
	}
	return balances, nil
}

// Dashboard returns the aggregate counters for the dashboard screen.
func (s *GiftCardService) Dashboard(ctx context.Context, shop string) (*ports.DashboardStats, error) {
	stats, err := s.issuanceRepo.DashboardStats(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate dashboard stats: %w", err)
	}
	return stats, nil
}
