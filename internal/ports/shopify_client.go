package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// GiftCardCreateRequest carries everything the issuance call needs for one
// gift card unit. Notify is the explicit contract for the platform's own
// customer email: when true and CustomerID is set, the created card is
// associated with the customer, which is what makes Shopify send the email.
type GiftCardCreateRequest struct {
	Value      decimal.Decimal
	Note       string
	CustomerID int64
	Notify     bool
}

// CreatedGiftCard is the issuer's response for one created card. Code is
// the full, unmasked code and is only ever available here, at creation time.
type CreatedGiftCard struct {
	ID         string
	Code       string
	MaskedCode string
}

// OrderAnnotation is one entry of the machine-readable list attached to the
// source order as a metafield.
type OrderAnnotation struct {
	LineItemID int64  `json:"line_item_id"`
	GiftCardID string `json:"gift_card_id"`
	MaskedCode string `json:"masked_code"`
	Value      string `json:"value"`
}

// ShopifyClient defines the interface for the Shopify API operations the
// app consumes: the OAuth install flow, webhook registration, and the gift
// card issuance surface of the GraphQL Admin API.
type ShopifyClient interface {
	// Authentication
	GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error)
	ExchangeToken(ctx context.Context, shop string, code string, redirectURI string) (string, error)

	// Shop API
	GetShopCurrency(ctx context.Context, shop string, accessToken string) (string, error)

	// Webhook API
	RegisterWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) error

	// Gift Card API (GraphQL Admin API only)
	CreateGiftCard(ctx context.Context, shop string, accessToken string, req GiftCardCreateRequest) (*CreatedGiftCard, error)
	GetGiftCardBalances(ctx context.Context, shop string, accessToken string, giftCardIDs []string) (map[string]string, error)

	// Order annotation API (metafield on the order entity)
	ReadOrderAnnotations(ctx context.Context, shop string, accessToken string, orderID int64) ([]OrderAnnotation, error)
	WriteOrderAnnotations(ctx context.Context, shop string, accessToken string, orderID int64, annotations []OrderAnnotation) error

	// Order API
	UpdateOrderNote(ctx context.Context, shop string, accessToken string, orderID int64, note string) error
}
