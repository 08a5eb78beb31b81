package domain

import "time"

// Shop represents an installed Shopify shop
type Shop struct {
	ID          string    `json:"id"`
	Domain      string    `json:"domain"`   // myshopify domain, unique
	AccessToken string    `json:"-"`        // offline access token from OAuth
	Scopes      []string  `json:"scopes"`   // scopes requested at install time
	Currency    string    `json:"currency"` // shop currency code, cached at install
	InstalledAt time.Time `json:"installed_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WebhookEvent represents an inbound webhook delivery after signature verification
type WebhookEvent struct {
	Topic    string `json:"topic"`
	Shop     string `json:"shop"`
	Payload  []byte `json:"payload"`
	Verified bool   `json:"verified"`
}

// Session represents an OAuth state session created when the install flow
// starts and consumed by the callback.
type Session struct {
	ID        string    `json:"id" bson:"_id"`
	Shop      string    `json:"shop" bson:"shop"`
	State     string    `json:"state" bson:"state"`
	Scopes    []string  `json:"scopes" bson:"scopes"`
	ReturnURL string    `json:"return_url" bson:"return_url"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
