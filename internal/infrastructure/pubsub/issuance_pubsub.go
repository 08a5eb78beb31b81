package pubsub

import (
	"context"
	"fmt"
	"sync"

	"cardmint-shopify-app/internal/domain"

	"github.com/rs/zerolog"
)

// IssuanceEvent is published whenever an order run finishes, so the
// embedded UI can refresh without polling.
type IssuanceEvent struct {
	Shop      string `json:"shop"`
	OrderID   int64  `json:"order_id"`
	OrderName string `json:"order_name"`
	Status    string `json:"status"`
	Issued    int    `json:"issued"`
	Requested int    `json:"requested"`
}

// IssuanceEventChannel represents a subscription channel
type IssuanceEventChannel struct {
	ID     string
	Shop   string
	Events chan *IssuanceEvent
	ctx    context.Context
	cancel context.CancelFunc
}

// IssuancePubSub manages in-process issuance event subscriptions
type IssuancePubSub struct {
	mu       sync.RWMutex
	channels map[string]*IssuanceEventChannel
	logger   zerolog.Logger
	nextID   int64
}

// NewIssuancePubSub creates a new issuance pub/sub system
func NewIssuancePubSub(logger zerolog.Logger) *IssuancePubSub {
	return &IssuancePubSub{
		channels: make(map[string]*IssuanceEventChannel),
		logger:   logger,
	}
}

// Subscribe creates a subscription for one shop's issuance events
func (ps *IssuancePubSub) Subscribe(ctx context.Context, shop string) *IssuanceEventChannel {
	subCtx, cancel := context.WithCancel(ctx)

	ps.mu.Lock()
	ps.nextID++
	channel := &IssuanceEventChannel{
		ID:     fmt.Sprintf("channel-%d", ps.nextID),
		Shop:   shop,
		Events: make(chan *IssuanceEvent, 10),
		ctx:    subCtx,
		cancel: cancel,
	}
	ps.channels[channel.ID] = channel
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("channelId", channel.ID).
		Str("shop", shop).
		Msg("Issuance subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(channel.ID)
	}()

	return channel
}

// Unsubscribe removes a subscription channel
func (ps *IssuancePubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	channel.cancel()
	delete(ps.channels, channelID)
}

// Publish broadcasts an issuance event to the shop's subscribers.
// Non-blocking: a subscriber with a full buffer misses the event.
func (ps *IssuancePubSub) Publish(event *IssuanceEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, channel := range ps.channels {
		if channel.Shop != "" && channel.Shop != event.Shop {
			continue
		}
		select {
		case channel.Events <- event:
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Msg("Channel buffer full, dropping event")
		}
	}
}

// PublishOrderRun is a convenience wrapper building the event from a run
func (ps *IssuancePubSub) PublishOrderRun(run *domain.OrderRun, orderName string) {
	ps.Publish(&IssuanceEvent{
		Shop:      run.Shop,
		OrderID:   run.OrderID,
		OrderName: orderName,
		Status:    run.Status,
		Issued:    run.Issued,
		Requested: run.Requested,
	})
}
