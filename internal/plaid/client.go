// Package plaid provides a client for interacting with the Plaid API.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"

	"github.com/pennywise-fi/pennywise/internal/common"
	"github.com/pennywise-fi/pennywise/internal/model"
	"github.com/pennywise-fi/pennywise/internal/service"
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("plaid client ID is required")
	}
	if c.Secret == "" {
		return fmt.Errorf("plaid secret is required")
	}
	if c.Environment == "" {
		return fmt.Errorf("plaid environment is required")
	}

	validEnvs := map[string]bool{
		"sandbox":    true,
		"production": true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid Plaid environment: must be sandbox or production")
	}

	return nil
}

// Client implements the Provider interface against the real Plaid API.
// Access tokens are passed per call because each linked connection holds
// its own credential.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	retryOpts   *service.RetryOptions
	environment string
}

// NewClient creates a new Plaid client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		environment: cfg.Environment,
		logger:      slog.Default().With("component", "plaid"),
		retryOpts: &service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// GetAccounts fetches all accounts for a linked connection.
func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]model.Account, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	var accounts []plaid.AccountBase
	retryErr := common.WithRetry(ctx, func() error {
		request := plaid.NewAccountsGetRequest(accessToken)
		resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
		if err != nil {
			return c.wrapPlaidError("failed to fetch accounts", err)
		}

		accounts = resp.GetAccounts()
		return nil
	}, *c.retryOpts)

	if retryErr != nil {
		return nil, retryErr
	}

	c.logger.Debug("Fetched accounts", "count", len(accounts))

	mapped := make([]model.Account, 0, len(accounts))
	for _, account := range accounts {
		mapped = append(mapped, mapPlaidAccount(account))
	}
	return mapped, nil
}

// SyncTransactions requests one page of the incremental change feed.
func (c *Client) SyncTransactions(ctx context.Context, accessToken, cursor string) (*model.SyncPage, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	var resp plaid.TransactionsSyncResponse
	retryErr := common.WithRetry(ctx, func() error {
		request := plaid.NewTransactionsSyncRequest(accessToken)
		if cursor != "" {
			request.SetCursor(cursor)
		}

		r, _, err := c.client.PlaidApi.TransactionsSync(ctx).TransactionsSyncRequest(*request).Execute()
		if err != nil {
			return c.wrapPlaidError("failed to sync transactions", err)
		}

		resp = r
		return nil
	}, *c.retryOpts)

	if retryErr != nil {
		return nil, retryErr
	}

	page := &model.SyncPage{
		NextCursor: resp.GetNextCursor(),
		HasMore:    resp.GetHasMore(),
		Added:      make([]model.Transaction, 0, len(resp.GetAdded())),
		Modified:   make([]model.Transaction, 0, len(resp.GetModified())),
		Removed:    make([]string, 0, len(resp.GetRemoved())),
	}

	for _, pt := range resp.GetAdded() {
		page.Added = append(page.Added, c.mapPlaidTransaction(pt))
	}
	for _, pt := range resp.GetModified() {
		page.Modified = append(page.Modified, c.mapPlaidTransaction(pt))
	}
	for _, rt := range resp.GetRemoved() {
		page.Removed = append(page.Removed, rt.GetTransactionId())
	}

	c.logger.Debug("Fetched sync page",
		"added", len(page.Added),
		"modified", len(page.Modified),
		"removed", len(page.Removed),
		"has_more", page.HasMore)

	return page, nil
}

// wrapPlaidError converts Plaid API failures, marking rate limits retryable.
func (c *Client) wrapPlaidError(msg string, err error) error {
	if plaidError := extractPlaidError(err); plaidError != nil {
		if plaidError.ErrorCode == "RATE_LIMIT_EXCEEDED" {
			c.logger.Warn("Rate limit hit, will retry", "error", plaidError.ErrorMessage)
			return &common.RetryableError{Err: err, Retryable: true}
		}
		return fmt.Errorf("plaid API error: %s - %s", plaidError.ErrorCode, plaidError.ErrorMessage)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// mapPlaidTransaction converts a Plaid transaction to our internal model.
// Plaid emits positive amounts for debits; storage uses the opposite
// convention, so the sign is normalized here at the ingestion boundary.
func (c *Client) mapPlaidTransaction(pt plaid.Transaction) model.Transaction {
	date, err := time.Parse("2006-01-02", pt.GetDate())
	if err != nil {
		c.logger.Error("Failed to parse transaction date", "date", pt.GetDate(), "error", err)
		date = time.Now()
	}

	merchantName := pt.GetMerchantName()
	if merchantName == "" {
		merchantName = pt.GetName()
	}
	merchantName = cleanMerchantName(merchantName)

	var categories []string
	if plaidCategories := pt.GetCategory(); len(plaidCategories) > 0 {
		categories = plaidCategories
	}

	return model.Transaction{
		Date:         date,
		ProviderID:   pt.GetTransactionId(),
		AccountID:    pt.GetAccountId(),
		Name:         pt.GetName(),
		MerchantName: merchantName,
		Amount:       model.NormalizeProviderAmount(pt.GetAmount()),
		Category:     categories,
	}
}

func mapPlaidAccount(account plaid.AccountBase) model.Account {
	balances := account.GetBalances()

	currency := balances.GetIsoCurrencyCode()
	if currency == "" {
		currency = "USD"
	}

	return model.Account{
		ProviderID:       account.GetAccountId(),
		Name:             account.GetName(),
		OfficialName:     account.GetOfficialName(),
		Type:             string(account.GetType()),
		Subtype:          string(account.GetSubtype()),
		BalanceAvailable: balances.GetAvailable(),
		BalanceCurrent:   balances.GetCurrent(),
		BalanceLimit:     balances.GetLimit(),
		Currency:         currency,
	}
}

// cleanMerchantName standardizes merchant names: title case, trailing
// transaction ids stripped, common corporate suffixes removed.
func cleanMerchantName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, word := range words {
		if word != "" {
			runes := []rune(word)
			for j := 0; j < len(runes); j++ {
				if j == 0 || !isLetter(runes[j-1]) {
					runes[j] = toUpper(runes[j])
				}
			}
			words[i] = string(runes)
		}
	}
	name = strings.Join(words, " ")

	parts := strings.Fields(name)
	if len(parts) > 1 {
		lastPart := parts[len(parts)-1]
		// A trailing all-digit token longer than 5 chars is probably a
		// transaction id.
		if len(lastPart) > 5 && isAllDigits(lastPart) {
			parts = parts[:len(parts)-1]
		}
	}
	name = strings.Join(parts, " ")

	suffixes := []string{
		" Llc",
		" Inc",
		" Corp",
		" Corporation",
		" Company",
		" Co",
		" Ltd",
		" Limited",
	}

	changed := true
	for changed {
		changed = false
		for _, suffix := range suffixes {
			if strings.HasSuffix(name, suffix) {
				name = strings.TrimSuffix(name, suffix)
				changed = true
			}
		}
	}

	return strings.TrimSpace(name)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 32
	}
	return r
}

// extractPlaidError attempts to extract a Plaid error from a generic error.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}

// Ensure Client implements the Provider interface.
var _ Provider = (*Client)(nil)
