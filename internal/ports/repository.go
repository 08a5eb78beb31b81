package ports

import (
	"context"
	"time"

	"cardmint-shopify-app/internal/domain"
)

// ShopRepository defines the interface for installed shop persistence
type ShopRepository interface {
	SaveShop(ctx context.Context, shop *domain.Shop) error
	GetShop(ctx context.Context, shopDomain string) (*domain.Shop, error)
	ListShops(ctx context.Context) ([]*domain.Shop, error)
}

// SettingsRepository defines the interface for per-shop gift card
// configuration. Get returns nil (not an error) when the shop has no
// settings yet; callers fall back to domain.DefaultShopSettings.
type SettingsRepository interface {
	Get(ctx context.Context, shop string) (*domain.ShopSettings, error)
	Save(ctx context.Context, settings *domain.ShopSettings) error
	AddTriggerVariant(ctx context.Context, shop string, variantID string) error
	RemoveTriggerVariant(ctx context.Context, shop string, variantID string) error
}

// DashboardStats aggregates issuance records for the dashboard screen.
type DashboardStats struct {
	TotalCards   int64  `json:"total_cards"`
	TotalOrders  int64  `json:"total_orders"`
	TotalValue   string `json:"total_value"`
	PrintedCards int64  `json:"printed_cards"`
}

// IssuanceRepository defines the interface for gift card issuance records
// and per-order run outcomes, both owned by the result recorder.
type IssuanceRepository interface {
	InsertGiftCard(ctx context.Context, record *domain.GiftCardRecord) error
	GetGiftCard(ctx context.Context, shop string, id string) (*domain.GiftCardRecord, error)
	ListGiftCards(ctx context.Context, shop string, page, perPage int64) ([]*domain.GiftCardRecord, int64, error)
	ListGiftCardsByOrder(ctx context.Context, shop string, orderID int64) ([]*domain.GiftCardRecord, error)
	CountByOrder(ctx context.Context, shop string, orderID int64) (int64, error)
	SetPrinted(ctx context.Context, shop string, id string, printedAt *time.Time) error
	RecordOrderRun(ctx context.Context, run *domain.OrderRun) error
	GetOrderRun(ctx context.Context, shop string, orderID int64) (*domain.OrderRun, error)
	DashboardStats(ctx context.Context, shop string) (*DashboardStats, error)
}

// SessionRepository defines the interface for OAuth state sessions
type SessionRepository interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, state string) (*domain.Session, error)
	DeleteSession(ctx context.Context, state string) error
}
