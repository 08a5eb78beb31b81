package webhook_handlers

import (
	"context"
	"testing"

	"cardmint-shopify-app/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShopRepo struct {
	shops map[string]*domain.Shop
	saved []*domain.Shop
}

func newFakeShopRepo(shops ...*domain.Shop) *fakeShopRepo {
	repo := &fakeShopRepo{shops: make(map[string]*domain.Shop)}
	for _, s := range shops {
		repo.shops[s.Domain] = s
	}
	return repo
}

func (f *fakeShopRepo) SaveShop(ctx context.Context, shop *domain.Shop) error {
	f.shops[shop.Domain] = shop
	f.saved = append(f.saved, shop)
	return nil
}

func (f *fakeShopRepo) GetShop(ctx context.Context, shopDomain string) (*domain.Shop, error) {
	return f.shops[shopDomain], nil
}

func (f *fakeShopRepo) ListShops(ctx context.Context) ([]*domain.Shop, error) {
	var out []*domain.Shop
	for _, s := range f.shops {
		out = append(out, s)
	}
	return out, nil
}

func TestOrderPaidHandler_CanHandle(t *testing.T) {
	h := NewOrderPaidHandler(zerolog.Nop(), newFakeShopRepo(), nil)
	assert.True(t, h.CanHandle("orders/paid"))
	assert.False(t, h.CanHandle("orders/create"))
	assert.False(t, h.CanHandle("app/uninstalled"))
}

func TestOrderPaidHandler_RejectsMalformedPayload(t *testing.T) {
	h := NewOrderPaidHandler(zerolog.Nop(), newFakeShopRepo(), nil)
	event := &domain.WebhookEvent{
		Topic:   "orders/paid",
		Shop:    "test.myshopify.com",
		Payload: []byte("not json"),
	}
	assert.Error(t, h.Handle(context.Background(), event))
}

func TestOrderPaidHandler_RejectsUnknownShop(t *testing.T) {
	h := NewOrderPaidHandler(zerolog.Nop(), newFakeShopRepo(), nil)
	event := &domain.WebhookEvent{
		Topic:   "orders/paid",
		Shop:    "unknown.myshopify.com",
		Payload: []byte(`{"id": 1001, "name": "#1042", "line_items": []}`),
	}
	err := h.Handle(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown shop")
}

func TestAppUninstalledHandler_ClearsAccessToken(t *testing.T) {
	shop := &domain.Shop{Domain: "test.myshopify.com", AccessToken: "shpat_test"}
	repo := newFakeShopRepo(shop)
	h := NewAppUninstalledHandler(zerolog.Nop(), repo)

	event := &domain.WebhookEvent{Topic: "app/uninstalled", Shop: "test.myshopify.com"}
	require.NoError(t, h.Handle(context.Background(), event))

	require.Len(t, repo.saved, 1)
	assert.Empty(t, repo.saved[0].AccessToken)
}

func TestAppUninstalledHandler_ShopFromPayload(t *testing.T) {
	shop := &domain.Shop{Domain: "test.myshopify.com", AccessToken: "shpat_test"}
	repo := newFakeShopRepo(shop)
	h := NewAppUninstalledHandler(zerolog.Nop(), repo)

	event := &domain.WebhookEvent{
		Topic:   "app/uninstalled",
		Payload: []byte(`{"myshopify_domain": "test.myshopify.com"}`),
	}
	require.NoError(t, h.Handle(context.Background(), event))
	assert.Empty(t, repo.shops["test.myshopify.com"].AccessToken)
}

func TestAppUninstalledHandler_UnknownShopIsNotAnError(t *testing.T) {
	h := NewAppUninstalledHandler(zerolog.Nop(), newFakeShopRepo())
	event := &domain.WebhookEvent{Topic: "app/uninstalled", Shop: "gone.myshopify.com"}
	assert.NoError(t, h.Handle(context.Background(), event))
}

func TestAppUninstalledHandler_MissingShopDomain(t *testing.T) {
	h := NewAppUninstalledHandler(zerolog.Nop(), newFakeShopRepo())
	event := &domain.WebhookEvent{Topic: "app/uninstalled", Payload: []byte(`{}`)}
	assert.Error(t, h.Handle(context.Background(), event))
}
