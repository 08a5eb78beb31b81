package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardmint_webhooks_received_total",
			Help: "Total number of verified webhook deliveries received",
		},
		[]string{"topic"},
	)

	OrdersProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardmint_orders_processed_total",
			Help: "Total number of paid orders run through the issuance pipeline",
		},
	)

	OrdersSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardmint_orders_skipped_total",
			Help: "Total number of paid orders skipped before issuance",
		},
		[]string{"reason"},
	)

	GiftCardsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardmint_gift_cards_issued_total",
			Help: "Total number of gift cards successfully created",
		},
	)

	GiftCardFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardmint_gift_card_failures_total",
			Help: "Total number of failed gift card creation calls",
		},
	)

	IssuanceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "cardmint_issuance_duration_seconds",
			Help: "Duration of the per-order issuance pipeline in seconds",
		},
	)
)

// Recorder implements ports.IssuanceMetrics over the package counters
type Recorder struct{}

func (Recorder) OrderProcessed() { OrdersProcessed.Inc() }

func (Recorder) OrderSkipped(reason string) { OrdersSkipped.WithLabelValues(reason).Inc() }

func (Recorder) GiftCardIssued() { GiftCardsIssued.Inc() }

func (Recorder) GiftCardFailed() { GiftCardFailures.Inc() }

func (Recorder) IssuanceObserved(seconds float64) { IssuanceDuration.Observe(seconds) }
