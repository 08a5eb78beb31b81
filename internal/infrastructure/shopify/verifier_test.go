package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhookVerifier(t *testing.T) {
	secret := "shpss_webhook_secret"
	payload := []byte(`{"id": 1001, "name": "#1042"}`)
	v := NewWebhookVerifier(secret)

	t.Run("valid signature", func(t *testing.T) {
		assert.NoError(t, v.Verify(payload, sign(secret, payload)))
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.Error(t, v.Verify(payload, sign("other_secret", payload)))
	})

	t.Run("tampered payload", func(t *testing.T) {
		header := sign(secret, payload)
		assert.Error(t, v.Verify([]byte(`{"id": 1002}`), header))
	})

	t.Run("missing header", func(t *testing.T) {
		assert.Error(t, v.Verify(payload, ""))
	})

	t.Run("header is not base64", func(t *testing.T) {
		assert.Error(t, v.Verify(payload, "%%%not-base64%%%"))
	})
}
