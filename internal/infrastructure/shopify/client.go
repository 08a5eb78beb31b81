package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cardmint-shopify-app/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

const (
	// GraphQL Admin API version used for gift card operations
	apiVersion = "2024-10"

	// Metafield slot the issued-card annotation list lives in
	annotationNamespace = "cardmint"
	annotationKey       = "issued_gift_cards"
)

type client struct {
	apiKey     string
	apiSecret  string
	app        goshopify.App
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Shopify client adapter. Every outbound call runs
// under the http client's timeout; a timed-out creation call surfaces as a
// per-unit failure to the pipeline.
func NewClient(apiKey, apiSecret string, logger zerolog.Logger) ports.ShopifyClient {
	app := goshopify.App{
		ApiKey:    apiKey,
		ApiSecret: apiSecret,
	}
	return &client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		app:       app,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Authentication methods

func (c *client) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	// Shopify expects scopes comma-separated with no spaces
	scopesStr := strings.Join(scopes, ",")

	authURL := fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		c.apiKey,
		url.QueryEscape(scopesStr),
		url.QueryEscape(redirectURI),
		url.QueryEscape(state),
	)

	c.logger.Info().
		Str("shop", shop).
		Strs("scopes", scopes).
		Msg("Generated OAuth authorization URL")

	return authURL, nil
}

func (c *client) ExchangeToken(ctx context.Context, shop string, code string, redirectURI string) (string, error) {
	// Shopify requires redirect_uri to match the one used at authorization
	// time; the go-shopify GetAccessToken helper doesn't expose it, so the
	// token endpoint is called directly when one is given.
	if redirectURI != "" {
		tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)

		values := url.Values{}
		values.Set("client_id", c.apiKey)
		values.Set("client_secret", c.apiSecret)
		values.Set("code", code)
		values.Set("redirect_uri", redirectURI)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(values.Encode()))
		if err != nil {
			return "", fmt.Errorf("failed to create token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to exchange token: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			return "", fmt.Errorf("failed to exchange token: status %d, body: %s", resp.StatusCode, string(bodyBytes))
		}

		var tokenResponse struct {
			AccessToken string `json:"access_token"`
			Scope       string `json:"scope"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
			return "", fmt.Errorf("failed to decode token response: %w", err)
		}

		return tokenResponse.AccessToken, nil
	}

	token, err := c.app.GetAccessToken(ctx, shop, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange token: %w", err)
	}
	return token, nil
}

// Shop API

func (c *client) GetShopCurrency(ctx context.Context, shopDomain string, accessToken string) (string, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return "", err
	}
	shop, err := client.Shop.Get(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get shop: %w", err)
	}
	return shop.Currency, nil
}

// Webhook API

func (c *client) RegisterWebhook(ctx context.Context, shopDomain string, accessToken string, topic string, address string) error {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	if _, err := client.Webhook.Create(ctx, webhook); err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}
	return nil
}

// Gift Card API. Gift card creation lives on the GraphQL Admin API only.

const giftCardCreateMutation = `
mutation giftCardCreate($input: GiftCardCreateInput!) {
  giftCardCreate(input: $input) {
    giftCard {
      id
      maskedCode
    }
    giftCardCode
    userErrors {
      field
      message
    }
  }
}`

func (c *client) CreateGiftCard(ctx context.Context, shopDomain string, accessToken string, req ports.GiftCardCreateRequest) (*ports.CreatedGiftCard, error) {
	input := map[string]any{
		"initialValue": req.Value.StringFixed(2),
		"note":         req.Note,
	}
	// Associating a customer is what makes Shopify send its own gift card
	// email, so the association is only attached when notifying.
	if req.Notify && req.CustomerID != 0 {
		input["customerId"] = customerGID(req.CustomerID)
	}

	type payload struct {
		GiftCardCreate struct {
			GiftCard *struct {
				ID         string `json:"id"`
				MaskedCode string `json:"maskedCode"`
			} `json:"giftCard"`
			GiftCardCode string      `json:"giftCardCode"`
			UserErrors   []userError `json:"userErrors"`
		} `json:"giftCardCreate"`
	}

	resp, err := postGraphQL[payload](ctx, c.httpClient, shopDomain, apiVersion, accessToken, giftCardCreateMutation, map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("failed to create gift card: %w", err)
	}

	result := resp.Data.GiftCardCreate
	if len(result.UserErrors) > 0 {
		return nil, fmt.Errorf("gift card creation rejected: %s", joinUserErrors(result.UserErrors))
	}
	if result.GiftCard == nil || result.GiftCardCode == "" {
		return nil, fmt.Errorf("gift card creation returned no card")
	}

	return &ports.CreatedGiftCard{
		ID:         result.GiftCard.ID,
		Code:       result.GiftCardCode,
		MaskedCode: result.GiftCard.MaskedCode,
	}, nil
}

const giftCardBalancesQuery = `
query giftCardBalances($ids: [ID!]!) {
  nodes(ids: $ids) {
    ... on GiftCard {
      id
      balance {
        amount
        currencyCode
      }
    }
  }
}`

func (c *client) GetGiftCardBalances(ctx context.Context, shopDomain string, accessToken string, giftCardIDs []string) (map[string]string, error) {
	if len(giftCardIDs) == 0 {
		return map[string]string{}, nil
	}

	type payload struct {
		Nodes []*struct {
			ID      string `json:"id"`
			Balance *struct {
				Amount       string `json:"amount"`
				CurrencyCode string `json:"currencyCode"`
			} `json:"balance"`
		} `json:"nodes"`
	}

	resp, err := postGraphQL[payload](ctx, c.httpClient, shopDomain, apiVersion, accessToken, giftCardBalancesQuery, map[string]any{"ids": giftCardIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to query gift card balances: %w", err)
	}

	balances := make(map[string]string, len(resp.Data.Nodes))
	for _, node := range resp.Data.Nodes {
		if node == nil || node.Balance == nil {
			continue
		}
		balances[node.ID] = node.Balance.Amount
	}
	return balances, nil
}

// Order annotation API. The issued-card list is attached to the order as a
// JSON metafield, machine-readable and append-only.

const orderAnnotationQuery = `
query orderAnnotation($id: ID!, $namespace: String!, $key: String!) {
  order(id: $id) {
    metafield(namespace: $namespace, key: $key) {
      value
    }
  }
}`

func (c *client) ReadOrderAnnotations(ctx context.Context, shopDomain string, accessToken string, orderID int64) ([]ports.OrderAnnotation, error) {
	type payload struct {
		Order *struct {
			Metafield *struct {
				Value string `json:"value"`
			} `json:"metafield"`
		} `json:"order"`
	}

	vars := map[string]any{
		"id":        orderGID(orderID),
		"namespace": annotationNamespace,
		"key":       annotationKey,
	}
	resp, err := postGraphQL[payload](ctx, c.httpClient, shopDomain, apiVersion, accessToken, orderAnnotationQuery, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to read order annotation: %w", err)
	}

	if resp.Data.Order == nil || resp.Data.Order.Metafield == nil {
		return nil, nil
	}

	var annotations []ports.OrderAnnotation
	if err := json.Unmarshal([]byte(resp.Data.Order.Metafield.Value), &annotations); err != nil {
		return nil, fmt.Errorf("failed to decode order annotation value: %w", err)
	}
	return annotations, nil
}

const metafieldsSetMutation = `
mutation metafieldsSet($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    userErrors {
      field
      message
    }
  }
}`

func (c *client) WriteOrderAnnotations(ctx context.Context, shopDomain string, accessToken string, orderID int64, annotations []ports.OrderAnnotation) error {
	value, err := json.Marshal(annotations)
	if err != nil {
		return fmt.Errorf("failed to encode order annotations: %w", err)
	}

	vars := map[string]any{
		"metafields": []map[string]any{
			{
				"ownerId":   orderGID(orderID),
				"namespace": annotationNamespace,
				"key":       annotationKey,
				"type":      "json",
				"value":     string(value),
			},
		},
	}

	type payload struct {
		MetafieldsSet struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"metafieldsSet"`
	}

	resp, err := postGraphQL[payload](ctx, c.httpClient, shopDomain, apiVersion, accessToken, metafieldsSetMutation, vars)
	if err != nil {
		return fmt.Errorf("failed to write order annotation: %w", err)
	}
	if len(resp.Data.MetafieldsSet.UserErrors) > 0 {
		return fmt.Errorf("order annotation rejected: %s", joinUserErrors(resp.Data.MetafieldsSet.UserErrors))
	}
	return nil
}

// Order API

func (c *client) UpdateOrderNote(ctx context.Context, shopDomain string, accessToken string, orderID int64, note string) error {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	order := goshopify.Order{
		Id:   uint64(orderID),
		Note: note,
	}
	if _, err := client.Order.Update(ctx, order); err != nil {
		return fmt.Errorf("failed to update order note: %w", err)
	}
	return nil
}
