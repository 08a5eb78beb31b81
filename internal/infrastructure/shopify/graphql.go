package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// graphQLError is one error entry of a GraphQL Admin API response
type graphQLError struct {
	Message    string `json:"message"`
	Path       []any  `json:"path,omitempty"`
	Extensions struct {
		Code string `json:"code,omitempty"`
	} `json:"extensions,omitempty"`
}

// graphQLResponse is the envelope of a GraphQL Admin API response
type graphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// userError is a mutation-level validation error returned by Shopify
type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func joinUserErrors(errs []userError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		if len(e.Field) > 0 {
			parts = append(parts, strings.Join(e.Field, ".")+": "+e.Message)
		} else {
			parts = append(parts, e.Message)
		}
	}
	return strings.Join(parts, "; ")
}

// postGraphQL executes one query or mutation against a shop's GraphQL Admin
// API. Gift cards are only exposed there, not on the REST Admin API.
func postGraphQL[T any](ctx context.Context, httpClient *http.Client, shopDomain, apiVersion, accessToken, query string, variables any) (*graphQLResponse[T], error) {
	endpoint := fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, apiVersion)

	body, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call graphql endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read graphql response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graphql endpoint returned status %d: %s", resp.StatusCode, string(raw))
	}

	var out graphQLResponse[T]
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode graphql response: %w", err)
	}

	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("graphql query failed: %s", out.Errors[0].Message)
	}

	return &out, nil
}

// GID helpers. The GraphQL Admin API addresses resources by global ids.

func orderGID(orderID int64) string {
	return fmt.Sprintf("gid://shopify/Order/%d", orderID)
}

func customerGID(customerID int64) string {
	return fmt.Sprintf("gid://shopify/Customer/%d", customerID)
}
