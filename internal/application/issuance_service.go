package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cardmint-shopify-app/internal/domain"
	"cardmint-shopify-app/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// IssuanceService runs the gift card issuance pipeline for paid orders:
// idempotency check, configuration lookup, line item matching, per-unit
// value computation, creation calls against Shopify, and result recording.
// It depends on ports (interfaces) not concrete implementations.
type IssuanceService struct {
	settingsRepo ports.SettingsRepository
	issuanceRepo ports.IssuanceRepository
	client       ports.ShopifyClient
	claims       ports.ProcessingClaim
	events       ports.OrderRunPublisher
	metrics      ports.IssuanceMetrics
	logger       zerolog.Logger
}

// NewIssuanceService creates a new issuance application service. claims,
// events and metrics may be nil; all three are optional.
func NewIssuanceService(
	settingsRepo ports.SettingsRepository,
	issuanceRepo ports.IssuanceRepository,
	client ports.ShopifyClient,
	claims ports.ProcessingClaim,
	events ports.OrderRunPublisher,
	metrics ports.IssuanceMetrics,
	logger zerolog.Logger,
) *IssuanceService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &IssuanceService{
		settingsRepo: settingsRepo,
		issuanceRepo: issuanceRepo,
		client:       client,
		claims:       claims,
		events:       events,
		metrics:      metrics,
		logger:       logger,
	}
}

// noopMetrics stands in when no recorder is wired
type noopMetrics struct{}

func (noopMetrics) OrderProcessed()          {}
func (noopMetrics) OrderSkipped(string)      {}
func (noopMetrics) GiftCardIssued()          {}
func (noopMetrics) GiftCardFailed()          {}
func (noopMetrics) IssuanceObserved(float64) {}

// ProcessOrderPaid runs the pipeline for one orders/paid delivery.
//
// Webhook delivery is at-least-once, so the duplicate check against the
// issuance records is mandatory: an order with at least one record (or a
// recorded run) is treated as fully processed and skipped. A short-lived
// claim narrows the window where two overlapping deliveries for the same
// order could both pass that check.
//
// A failed creation call for one unit never aborts the remaining units;
// the result set is simply smaller and the order run records that.
func (s *IssuanceService) ProcessOrderPaid(ctx context.Context, shop *domain.Shop, order *domain.OrderPaidEvent) error {
	start := time.Now()
	defer func() { s.metrics.IssuanceObserved(time.Since(start).Seconds()) }()

	log := s.logger.With().Str("shop", shop.Domain).Int64("orderId", order.ID).Str("orderName", order.Name).Logger()

	if s.claims != nil {
		acquired, err := s.claims.Claim(ctx, shop.Domain, order.ID)
		if err != nil {
			// Claim store unavailable: fall back to the plain
			// read-then-write idempotency check.
			log.Warn().Err(err).Msg("Processing claim unavailable, continuing without it")
		} else if !acquired {
			log.Info().Msg("Order is already being processed, skipping duplicate delivery")
			s.metrics.OrderSkipped("claimed")
			return nil
		} else {
			defer func() {
				if err := s.claims.Release(context.WithoutCancel(ctx), shop.Domain, order.ID); err != nil {
					log.Warn().Err(err).Msg("Failed to release processing claim")
				}
			}()
		}
	}

	processed, err := s.hasBeenProcessed(ctx, shop.Domain, order.ID)
	if err != nil {
		return fmt.Errorf("failed to check order processing state: %w", err)
	}
	if processed {
		log.Info().Msg("Order already processed, skipping redelivery")
		s.metrics.OrderSkipped("processed")
		return nil
	}

	settings, err := s.settingsRepo.Get(ctx, shop.Domain)
	if err != nil {
		return fmt.Errorf("failed to load shop settings: %w", err)
	}
	if settings == nil {
		settings = domain.DefaultShopSettings(shop.Domain)
	}
	if !settings.HasTriggers() {
		log.Info().Msg("No trigger variants configured, nothing to do")
		s.metrics.OrderSkipped("no_config")
		return nil
	}

	matched := domain.MatchTriggerLineItems(order.LineItems, settings)
	if len(matched) == 0 {
		log.Info().Msg("No line items match configured trigger variants")
		s.metrics.OrderSkipped("no_match")
		return nil
	}

	currency := order.Currency
	if currency == "" {
		currency = shop.Currency
	}

	s.metrics.OrderProcessed()

	requested := 0
	records := s.issueForLineItems(ctx, shop, order, settings, matched, currency, &requested, log)

	run := &domain.OrderRun{
		Shop:      shop.Domain,
		OrderID:   order.ID,
		Status:    domain.RunStatus(requested, len(records)),
		Requested: requested,
		Issued:    len(records),
	}
	if err := s.issuanceRepo.RecordOrderRun(ctx, run); err != nil {
		log.Error().Err(err).Msg("Failed to record order run")
	}
	if s.events != nil {
		s.events.PublishOrderRun(run, order.Name)
	}

	log.Info().
		Int("requested", requested).
		Int("issued", len(records)).
		Str("status", run.Status).
		Msg("Order issuance finished")

	s.attachResultsToOrder(ctx, shop, order, records, log)
	return nil
}

// hasBeenProcessed reports whether the order has already gone through the
// pipeline: any issuance record or a recorded run counts as done.
func (s *IssuanceService) hasBeenProcessed(ctx context.Context, shop string, orderID int64) (bool, error) {
	count, err := s.issuanceRepo.CountByOrder(ctx, shop, orderID)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	run, err := s.issuanceRepo.GetOrderRun(ctx, shop, orderID)
	if err != nil {
		return false, err
	}
	return run != nil, nil
}

// issueForLineItems makes one creation call per purchased unit of every
// matched line item, in line item then quantity order. Failures are
// isolated per unit.
func (s *IssuanceService) issueForLineItems(
	ctx context.Context,
	shop *domain.Shop,
	order *domain.OrderPaidEvent,
	settings *domain.ShopSettings,
	matched []domain.OrderLineItem,
	currency string,
	requested *int,
	log zerolog.Logger,
) []*domain.GiftCardRecord {
	var records []*domain.GiftCardRecord

	for _, li := range matched {
		unitPrice, err := decimal.NewFromString(li.Price)
		if err != nil {
			log.Error().Err(err).Int64("lineItemId", li.ID).Str("price", li.Price).Msg("Unparseable line item price, skipping line item")
			continue
		}
		value := domain.UnitValue(unitPrice, settings.PrintedOverhead)

		for unit := 0; unit < li.Quantity; unit++ {
			*requested++

			req := ports.GiftCardCreateRequest{
				Value:  value,
				Note:   buildIssuanceNote(order, li, unit),
				Notify: settings.SendEmailNotification && order.Customer != nil,
			}
			// Customer association is what triggers the platform's
			// own email, so it is attached only when notifying.
			if req.Notify {
				req.CustomerID = order.Customer.ID
			}

			created, err := s.client.CreateGiftCard(ctx, shop.Domain, shop.AccessToken, req)
			if err != nil {
				log.Error().Err(err).
					Int64("lineItemId", li.ID).
					Int("unit", unit).
					Str("value", value.StringFixed(2)).
					Msg("Gift card creation failed for unit")
				s.metrics.GiftCardFailed()
				continue
			}
			s.metrics.GiftCardIssued()

			record := &domain.GiftCardRecord{
				Shop:          shop.Domain,
				OrderID:       order.ID,
				OrderName:     order.Name,
				LineItemID:    li.ID,
				UnitIndex:     unit,
				GiftCardID:    created.ID,
				Code:          created.Code,
				MaskedCode:    created.MaskedCode,
				Value:         value,
				Currency:      currency,
				CustomerID:    customerID(order.Customer),
				CustomerName:  order.Customer.FullName(),
				CustomerEmail: customerEmail(order.Customer),
			}
			if record.MaskedCode == "" {
				record.MaskedCode = domain.MaskCode(created.Code)
			}

			// The card exists upstream even if the record write
			// fails; losing local visibility is the lesser problem.
			if err := s.issuanceRepo.InsertGiftCard(ctx, record); err != nil {
				log.Error().Err(err).
					Int64("lineItemId", li.ID).
					Int("unit", unit).
					Str("giftCardId", created.ID).
					Msg("Failed to persist issuance record for created gift card")
			}

			log.Info().
				Int64("lineItemId", li.ID).
				Int("unit", unit).
				Str("giftCardId", created.ID).
				Str("code", domain.MaskCode(created.Code)).
				Str("value", value.StringFixed(2)).
				Msg("Gift card created")

			records = append(records, record)
		}
	}

	return records
}

// attachResultsToOrder mirrors the issued cards onto the order itself: a
// machine-readable metafield list plus a human-readable note line. Both are
// best effort; the issuance records stay authoritative.
func (s *IssuanceService) attachResultsToOrder(
	ctx context.Context,
	shop *domain.Shop,
	order *domain.OrderPaidEvent,
	records []*domain.GiftCardRecord,
	log zerolog.Logger,
) {
	if len(records) == 0 {
		return
	}

	existing, err := s.client.ReadOrderAnnotations(ctx, shop.Domain, shop.AccessToken, order.ID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read existing order annotations")
		existing = nil
	}
	for _, r := range records {
		existing = append(existing, ports.OrderAnnotation{
			LineItemID: r.LineItemID,
			GiftCardID: r.GiftCardID,
			MaskedCode: r.MaskedCode,
			Value:      r.Value.StringFixed(2),
		})
	}
	if err := s.client.WriteOrderAnnotations(ctx, shop.Domain, shop.AccessToken, order.ID, existing); err != nil {
		log.Warn().Err(err).Msg("Failed to write order annotations")
	}

	note := buildOrderNote(order.Note, records)
	if err := s.client.UpdateOrderNote(ctx, shop.Domain, shop.AccessToken, order.ID, note); err != nil {
		log.Warn().Err(err).Msg("Failed to update order note")
	}
}

// buildIssuanceNote builds the note stored on the gift card itself,
// embedding order, product and customer context for the merchant.
func buildIssuanceNote(order *domain.OrderPaidEvent, li domain.OrderLineItem, unit int) string {
	note := fmt.Sprintf("Issued for order %s, %s (unit %d of %d)", order.Name, li.Title, unit+1, li.Quantity)
	if name := order.Customer.FullName(); name != "" {
		note += ", purchased by " + name
	}
	return note
}

// buildOrderNote appends a summary line per issued card to the order's
// free-text note, keeping whatever note was already there.
func buildOrderNote(existing string, records []*domain.GiftCardRecord) string {
	var b strings.Builder
	if existing != "" {
		b.WriteString(existing)
		b.WriteString("\n")
	}
	b.WriteString("Gift cards issued:")
	for _, r := range records {
		b.WriteString(fmt.Sprintf("\n- %s (%s)", r.MaskedCode, r.Value.StringFixed(2)))
	}
	return b.String()
}

func customerID(c *domain.OrderCustomer) int64 {
	if c == nil {
		return 0
	}
	return c.ID
}

func customerEmail(c *domain.OrderCustomer) string {
	if c == nil {
		return ""
	}
	return c.Email
}
