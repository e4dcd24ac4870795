package plaid

import (
	"context"
	"fmt"

	"github.com/plaid/plaid-go/v20/plaid"
)

// CreateLinkToken creates a Link token for Plaid Link initialization.
func (c *Client) CreateLinkToken(ctx context.Context, userID int64) (string, error) {
	user := plaid.LinkTokenCreateRequestUser{
		ClientUserId: fmt.Sprintf("pennywise-user-%d", userID),
	}

	request := plaid.NewLinkTokenCreateRequest(
		"PennyWise",
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_US},
		user,
	)
	request.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})

	// OAuth banks require a redirect URI in production; it must match the
	// Plaid dashboard configuration.
	if c.environment == "production" {
		request.SetRedirectUri("https://localhost:8080/")
	}

	resp, _, err := c.client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*request).Execute()
	if err != nil {
		return "", c.wrapPlaidError("failed to create link token", err)
	}

	return resp.GetLinkToken(), nil
}

// ExchangePublicToken exchanges a public token from Link for the durable
// access token and Plaid's item id for the new connection.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error) {
	request := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, _, err := c.client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*request).Execute()
	if err != nil {
		return "", "", c.wrapPlaidError("failed to exchange public token", err)
	}

	return resp.GetAccessToken(), resp.GetItemId(), nil
}
