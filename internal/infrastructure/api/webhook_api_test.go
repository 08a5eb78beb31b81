package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cardmint-shopify-app/internal/application"
	"cardmint-shopify-app/internal/domain"
	"cardmint-shopify-app/internal/infrastructure/shopify"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "shpss_webhook_secret"

type stubHandler struct {
	topic   string
	handled int
	err     error
	panics  bool
}

func (h *stubHandler) CanHandle(topic string) bool { return topic == h.topic }

func (h *stubHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	h.handled++
	if h.panics {
		panic("handler blew up")
	}
	return h.err
}

func newWebhookServer(handlers ...application.WebhookHandler) *httptest.Server {
	logger := zerolog.Nop()
	dispatcher := application.NewWebhookDispatcher(logger)
	for _, h := range handlers {
		dispatcher.RegisterHandler(h)
	}
	webhookAPI := NewWebhookAPI(shopify.NewWebhookVerifier(webhookSecret), dispatcher, logger)

	r := chi.NewRouter()
	r.Post("/webhooks/shopify", webhookAPI.Handle)
	return httptest.NewServer(r)
}

func postWebhook(t *testing.T, server *httptest.Server, topic, payload, hmacHeader string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, server.URL+"/webhooks/shopify", strings.NewReader(payload))
	require.NoError(t, err)
	if topic != "" {
		req.Header.Set("X-Shopify-Topic", topic)
	}
	req.Header.Set("X-Shopify-Hmac-SHA256", hmacHeader)
	req.Header.Set("X-Shopify-Shop-Domain", "test.myshopify.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func signPayload(payload string) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhookAPI_AcknowledgesVerifiedDeliveries(t *testing.T) {
	payload := `{"id": 1001}`

	t.Run("successful processing", func(t *testing.T) {
		handler := &stubHandler{topic: "orders/paid"}
		server := newWebhookServer(handler)
		defer server.Close()

		resp := postWebhook(t, server, "orders/paid", payload, signPayload(payload))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, handler.handled)
	})

	t.Run("handler error still acknowledges", func(t *testing.T) {
		handler := &stubHandler{topic: "orders/paid", err: fmt.Errorf("pipeline failed")}
		server := newWebhookServer(handler)
		defer server.Close()

		resp := postWebhook(t, server, "orders/paid", payload, signPayload(payload))
		assert.Equal(t, http.StatusOK, resp.StatusCode,
			"a non-2xx would make Shopify redeliver a possibly half-processed order")
	})

	t.Run("handler panic still acknowledges", func(t *testing.T) {
		handler := &stubHandler{topic: "orders/paid", panics: true}
		server := newWebhookServer(handler)
		defer server.Close()

		resp := postWebhook(t, server, "orders/paid", payload, signPayload(payload))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, handler.handled)
	})

	t.Run("unhandled topic still acknowledges", func(t *testing.T) {
		server := newWebhookServer(&stubHandler{topic: "orders/paid"})
		defer server.Close()

		resp := postWebhook(t, server, "products/create", payload, signPayload(payload))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestWebhookAPI_RejectsBeforeVerification(t *testing.T) {
	payload := `{"id": 1001}`

	t.Run("invalid signature", func(t *testing.T) {
		handler := &stubHandler{topic: "orders/paid"}
		server := newWebhookServer(handler)
		defer server.Close()

		resp := postWebhook(t, server, "orders/paid", payload, signPayload("other payload"))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Zero(t, handler.handled, "unverified payloads never reach the dispatcher")
	})

	t.Run("missing topic header", func(t *testing.T) {
		server := newWebhookServer()
		defer server.Close()

		resp := postWebhook(t, server, "", payload, signPayload(payload))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
