package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"cardmint-shopify-app/internal/application"
	"cardmint-shopify-app/internal/domain"
	"cardmint-shopify-app/internal/infrastructure/metrics"
	"cardmint-shopify-app/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
)

// WebhookAPI is the inbound entry point for Shopify webhook deliveries.
// After the signature is verified the response is always 200: Shopify
// redelivers on any non-2xx, and a failed pipeline run is surfaced through
// logs and the recorded order run, not through redelivery of a possibly
// half-processed order.
type WebhookAPI struct {
	verifier   *shopify.WebhookVerifier
	dispatcher *application.WebhookDispatcher
	logger     zerolog.Logger
}

// NewWebhookAPI creates a new webhook entry point
func NewWebhookAPI(
	verifier *shopify.WebhookVerifier,
	dispatcher *application.WebhookDispatcher,
	logger zerolog.Logger,
) *WebhookAPI {
	return &WebhookAPI{
		verifier:   verifier,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle processes one webhook delivery
func (a *WebhookAPI) Handle(w http.ResponseWriter, r *http.Request) {
	topic := r.Header.Get("X-Shopify-Topic")
	if topic == "" {
		a.logger.Warn().Msg("Missing X-Shopify-Topic header")
		http.Error(w, "Missing X-Shopify-Topic header", http.StatusBadRequest)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to read webhook payload")
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	hmacHeader := r.Header.Get("X-Shopify-Hmac-SHA256")
	if err := a.verifier.Verify(payload, hmacHeader); err != nil {
		a.logger.Warn().Err(err).Str("topic", topic).Msg("Webhook signature verification failed")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	shop := r.Header.Get("X-Shopify-Shop-Domain")
	metrics.WebhooksReceived.WithLabelValues(topic).Inc()

	event := &domain.WebhookEvent{
		Topic:    topic,
		Shop:     shop,
		Payload:  payload,
		Verified: true,
	}

	a.dispatch(r.Context(), event)

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"received": "true",
	})
}

// dispatch runs the event through the dispatcher without ever letting a
// failure escape to the response. A panic in a handler must not bubble up
// to the router's recovery middleware, which would answer 500 and trigger
// redelivery of a possibly half-processed order.
func (a *WebhookAPI) dispatch(ctx context.Context, event *domain.WebhookEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error().
				Interface("panic", rec).
				Str("topic", event.Topic).
				Str("shop", event.Shop).
				Msg("Webhook processing panicked")
		}
	}()

	if err := a.dispatcher.Dispatch(ctx, event); err != nil {
		a.logger.Error().
			Err(err).
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Msg("Webhook processing failed")
	}
}
