package pubsub

import (
	"context"
	"testing"
	"time"

	"cardmint-shopify-app/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuancePubSub_DeliversToShopSubscribers(t *testing.T) {
	ps := NewIssuancePubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := ps.Subscribe(ctx, "test.myshopify.com")
	other := ps.Subscribe(ctx, "other.myshopify.com")

	ps.PublishOrderRun(&domain.OrderRun{
		Shop:      "test.myshopify.com",
		OrderID:   1001,
		Status:    domain.OrderRunComplete,
		Requested: 2,
		Issued:    2,
	}, "#1042")

	select {
	case event := <-sub.Events:
		assert.Equal(t, int64(1001), event.OrderID)
		assert.Equal(t, "#1042", event.OrderName)
		assert.Equal(t, domain.OrderRunComplete, event.Status)
	case <-time.After(time.Second):
		t.Fatal("expected an event for the subscribed shop")
	}

	select {
	case event := <-other.Events:
		t.Fatalf("unexpected event for another shop: %+v", event)
	default:
	}
}

func TestIssuancePubSub_UnsubscribeClosesChannel(t *testing.T) {
	ps := NewIssuancePubSub(zerolog.Nop())
	sub := ps.Subscribe(context.Background(), "test.myshopify.com")

	ps.Unsubscribe(sub.ID)

	_, open := <-sub.Events
	assert.False(t, open)

	// Publishing after unsubscribe must not panic on the closed channel.
	ps.Publish(&IssuanceEvent{Shop: "test.myshopify.com"})
}

func TestIssuancePubSub_ContextCancelUnsubscribes(t *testing.T) {
	ps := NewIssuancePubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	sub := ps.Subscribe(ctx, "test.myshopify.com")

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, open := <-sub.Events:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestIssuancePubSub_FullBufferDropsEvent(t *testing.T) {
	ps := NewIssuancePubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := ps.Subscribe(ctx, "test.myshopify.com")

	for i := 0; i < 20; i++ {
		ps.Publish(&IssuanceEvent{Shop: "test.myshopify.com", OrderID: int64(i)})
	}

	assert.Equal(t, cap(sub.Events), len(sub.Events), "excess events are dropped, never block the publisher")
}
