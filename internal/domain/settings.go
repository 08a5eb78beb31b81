package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShopSettings holds the per-shop gift card configuration: which product
// variants trigger issuance, whether the platform should email the customer,
// and the flat printing overhead deducted from every card's value.
type ShopSettings struct {
	ID                    string          `json:"id"`
	Shop                  string          `json:"shop"`
	SendEmailNotification bool            `json:"send_email_notification"`
	PrintedOverhead       decimal.Decimal `json:"printed_overhead"`
	TriggerVariants       []string        `json:"trigger_variants"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// DefaultShopSettings returns the settings a shop starts with before the
// merchant has touched the settings screen.
func DefaultShopSettings(shop string) *ShopSettings {
	return &ShopSettings{
		Shop:                  shop,
		SendEmailNotification: true,
		PrintedOverhead:       decimal.Zero,
		TriggerVariants:       []string{},
	}
}

// IsTrigger reports whether the given variant identifier is configured to
// trigger gift card issuance.
func (s *ShopSettings) IsTrigger(variantID string) bool {
	for _, v := range s.TriggerVariants {
		if v == variantID {
			return true
		}
	}
	return false
}

// HasTriggers reports whether any trigger variants are configured at all.
func (s *ShopSettings) HasTriggers() bool {
	return len(s.TriggerVariants) > 0
}
