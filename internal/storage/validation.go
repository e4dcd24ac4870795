package storage

import (
	"context"
	"fmt"

	"github.com/pennywise-fi/pennywise/internal/model"
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return nil
}

func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

func validateTransaction(txn model.Transaction) error {
	if txn.ProviderID == "" {
		return fmt.Errorf("transaction provider id cannot be empty")
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("transaction %s has no date", txn.ProviderID)
	}
	if txn.Name == "" {
		return fmt.Errorf("transaction %s has no name", txn.ProviderID)
	}
	return nil
}

func validateAccount(account model.Account) error {
	if account.ProviderID == "" {
		return fmt.Errorf("account provider id cannot be empty")
	}
	if account.ItemID == "" {
		return fmt.Errorf("account %s has no item id", account.ProviderID)
	}
	return nil
}
