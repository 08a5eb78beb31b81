package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// WebhookVerifier verifies Shopify webhook HMAC signatures
type WebhookVerifier struct {
	secret []byte
}

// NewWebhookVerifier creates a verifier for the given shared webhook secret
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Verify checks the payload against the X-Shopify-Hmac-SHA256 header value
func (v *WebhookVerifier) Verify(payload []byte, hmacHeader string) error {
	if hmacHeader == "" {
		return fmt.Errorf("missing hmac header")
	}

	expected, err := base64.StdEncoding.DecodeString(hmacHeader)
	if err != nil {
		return fmt.Errorf("invalid hmac header encoding: %w", err)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)

	if !hmac.Equal(mac.Sum(nil), expected) {
		return fmt.Errorf("hmac signature mismatch")
	}
	return nil
}
