package syncer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennywise-fi/pennywise/internal/common"
	"github.com/pennywise-fi/pennywise/internal/model"
	"github.com/pennywise-fi/pennywise/internal/plaid"
	"github.com/pennywise-fi/pennywise/internal/storage"
	"github.com/pennywise-fi/pennywise/internal/testutil"
)

func setupService(t *testing.T) (*Service, *storage.SQLiteStorage, *plaid.MockProvider, *model.PlaidItem) {
	t.Helper()

	store := testutil.SetupTestDB(t)
	provider := plaid.NewMockProvider()

	item := &model.PlaidItem{
		ItemID:      "item-1",
		AccessToken: "access-token-1",
		UserID:      storage.DemoUserID,
	}
	require.NoError(t, store.SaveItem(context.Background(), item))

	return New(store, provider), store, provider, item
}

func testTransaction(id string, amount float64) model.Transaction {
	return model.Transaction{
		Date:         time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		ProviderID:   id,
		AccountID:    "acc-1",
		Name:         "COFFEE BAR " + id,
		MerchantName: "Coffee Bar",
		Category:     []string{"Food and Drink", "Coffee"},
		Amount:       amount,
	}
}

func storedCursor(t *testing.T, store *storage.SQLiteStorage) string {
	t.Helper()
	items, err := store.GetItems(context.Background(), storage.DemoUserID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	return items[0].Cursor
}

func TestSyncItem_SinglePage(t *testing.T) {
	service, store, provider, item := setupService(t)
	ctx := context.Background()

	provider.SyncTransactionsFn = func(_ context.Context, _, cursor string) (*model.SyncPage, error) {
		assert.Equal(t, "", cursor)
		return &model.SyncPage{
			NextCursor: "cursor-1",
			Added: []model.Transaction{
				testTransaction("txn-1", -4.50),
				testTransaction("txn-2", -8.00),
			},
		}, nil
	}

	summary := service.SyncItem(ctx, item)
	require.Empty(t, summary.Errors)
	assert.Equal(t, 2, summary.Added)

	stored, err := store.GetTransactionByProviderID(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, int64(storage.DemoUserID), stored.UserID)
	assert.InDelta(t, -4.50, stored.Amount, 0.001)

	// The cursor is durable and mirrored on the in-memory item.
	assert.Equal(t, "cursor-1", storedCursor(t, store))
	assert.Equal(t, "cursor-1", item.Cursor)
	assert.False(t, item.LastSync.IsZero())
}

func TestSyncItem_Pagination(t *testing.T) {
	service, store, provider, item := setupService(t)

	pages := map[string]*model.SyncPage{
		"": {
			NextCursor: "cursor-1",
			HasMore:    true,
			Added:      []model.Transaction{testTransaction("txn-1", -1)},
		},
		"cursor-1": {
			NextCursor: "cursor-2",
			Added:      []model.Transaction{testTransaction("txn-2", -2)},
		},
	}
	provider.SyncTransactionsFn = func(_ context.Context, _, cursor string) (*model.SyncPage, error) {
		page, ok := pages[cursor]
		if !ok {
			return nil, fmt.Errorf("unexpected cursor %q", cursor)
		}
		return page, nil
	}

	summary := service.SyncItem(context.Background(), item)
	require.Empty(t, summary.Errors)
	assert.Equal(t, 2, summary.Added)

	require.Len(t, provider.SyncTransactionsCalls, 2)
	assert.Equal(t, "", provider.SyncTransactionsCalls[0].Cursor)
	assert.Equal(t, "cursor-1", provider.SyncTransactionsCalls[1].Cursor)

	assert.Equal(t, "cursor-2", storedCursor(t, store))
}

func TestSyncItem_ResumesFromStoredCursor(t *testing.T) {
	service, _, provider, item := setupService(t)
	item.Cursor = "cursor-42"

	provider.SyncTransactionsFn = func(_ context.Context, _, cursor string) (*model.SyncPage, error) {
		return &model.SyncPage{NextCursor: "cursor-43"}, nil
	}

	summary := service.SyncItem(context.Background(), item)
	require.Empty(t, summary.Errors)

	require.Len(t, provider.SyncTransactionsCalls, 1)
	assert.Equal(t, "cursor-42", provider.SyncTransactionsCalls[0].Cursor)
}

func TestSyncItem_ReplayedPageIsIdempotent(t *testing.T) {
	service, store, provider, item := setupService(t)
	ctx := context.Background()

	page := &model.SyncPage{
		NextCursor: "cursor-1",
		Added:      []model.Transaction{testTransaction("txn-1", -4.50)},
	}
	provider.SyncTransactionsFn = func(_ context.Context, _, _ string) (*model.SyncPage, error) {
		return page, nil
	}

	// Same page delivered twice, as after a crash between apply and
	// cursor persist.
	require.Empty(t, service.SyncItem(ctx, item).Errors)

	updated := testTransaction("txn-1", -5.00)
	updated.Name = "COFFEE BAR RENAMED"
	page.Added = []model.Transaction{updated}
	item.Cursor = ""
	require.Empty(t, service.SyncItem(ctx, item).Errors)

	stored, err := store.GetTransactionByProviderID(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, "COFFEE BAR RENAMED", stored.Name)
	assert.InDelta(t, -5.00, stored.Amount, 0.001)
}

func TestSyncItem_AddThenRemove(t *testing.T) {
	service, store, provider, item := setupService(t)
	ctx := context.Background()

	provider.SyncTransactionsFn = func(_ context.Context, _, _ string) (*model.SyncPage, error) {
		return &model.SyncPage{
			NextCursor: "cursor-1",
			Added:      []model.Transaction{testTransaction("txn-1", -4.50)},
		}, nil
	}
	require.Empty(t, service.SyncItem(ctx, item).Errors)

	provider.SyncTransactionsFn = func(_ context.Context, _, _ string) (*model.SyncPage, error) {
		return &model.SyncPage{
			NextCursor: "cursor-2",
			Removed:    []string{"txn-1"},
		}, nil
	}
	summary := service.SyncItem(ctx, item)
	require.Empty(t, summary.Errors)
	assert.Equal(t, 1, summary.Removed)

	_, err := store.GetTransactionByProviderID(ctx, "txn-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSyncItem_ModifiedOverwrites(t *testing.T) {
	service, store, provider, item := setupService(t)
	ctx := context.Background()

	provider.SyncTransactionsFn = func(_ context.Context, _, _ string) (*model.SyncPage, error) {
		return &model.SyncPage{
			NextCursor: "cursor-1",
			Added:      []model.Transaction{testTransaction("txn-1", -4.50)},
		}, nil
	}
	require.Empty(t, service.SyncItem(ctx, item).Errors)

	changed := testTransaction("txn-1", -6.25)
	changed.Category = []string{"Food and Drink", "Restaurants"}
	provider.SyncTransactionsFn = func(_ context.Context, _, _ string) (*model.SyncPage, error) {
		return &model.SyncPage{
			NextCursor: "cursor-2",
			Modified:   []model.Transaction{changed},
		}, nil
	}
	summary := service.SyncItem(ctx, item)
	require.Empty(t, summary.Errors)
	assert.Equal(t, 1, summary.Modified)

	stored, err := store.GetTransactionByProviderID(ctx, "txn-1")
	require.NoError(t, err)
	assert.InDelta(t, -6.25, stored.Amount, 0.001)
	assert.Equal(t, []string{"Food and Drink", "Restaurants"}, stored.Category)
}

func TestSyncItem_ProviderErrorKeepsCursor(t *testing.T) {
	service, store, provider, item := setupService(t)
	ctx := context.Background()

	calls := 0
	provider.SyncTransactionsFn = func(_ context.Context, _, _ string) (*model.SyncPage, error) {
		calls++
		if calls == 1 {
			return &model.SyncPage{
				NextCursor: "cursor-1",
				HasMore:    true,
				Added:      []model.Transaction{testTransaction("txn-1", -1)},
			}, nil
		}
		return nil, errors.New("INTERNAL_SERVER_ERROR")
	}

	summary := service.SyncItem(ctx, item)
	require.Len(t, summary.Errors, 1)

	// The committed first page stays applied, but the durable cursor is
	// untouched so the next run re-fetches from the last consistent point.
	assert.Equal(t, 1, summary.Added)
	_, err := store.GetTransactionByProviderID(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, "", storedCursor(t, store))
}

func TestSyncItem_InvalidPageRollsBack(t *testing.T) {
	service, store, provider, item := setupService(t)
	ctx := context.Background()

	bad := testTransaction("txn-bad", -1)
	bad.Name = ""
	provider.SyncTransactionsFn = func(_ context.Context, _, _ string) (*model.SyncPage, error) {
		return &model.SyncPage{
			NextCursor: "cursor-1",
			Added:      []model.Transaction{testTransaction("txn-1", -1), bad},
		}, nil
	}

	summary := service.SyncItem(ctx, item)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 0, summary.Added)

	// The whole page rolled back; the valid sibling is gone too.
	_, err := store.GetTransactionByProviderID(ctx, "txn-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, "", storedCursor(t, store))
}

func TestSyncItem_AccountsOverwrittenWholesale(t *testing.T) {
	service, store, provider, item := setupService(t)
	ctx := context.Background()

	account := model.Account{
		ProviderID:     "acc-1",
		Name:           "Checking",
		Type:           "depository",
		Subtype:        "checking",
		BalanceCurrent: 100,
	}
	provider.GetAccountsFn = func(_ context.Context, _ string) ([]model.Account, error) {
		return []model.Account{account}, nil
	}
	require.Empty(t, service.SyncItem(ctx, item).Errors)

	account.Name = "Everyday Checking"
	account.BalanceCurrent = 75.50
	require.Empty(t, service.SyncItem(ctx, item).Errors)

	accounts, err := store.GetAccounts(ctx, item.ItemID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Everyday Checking", accounts[0].Name)
	assert.InDelta(t, 75.50, accounts[0].BalanceCurrent, 0.001)
	assert.Equal(t, item.ItemID, accounts[0].ItemID)
}

func TestSyncItem_AccountErrorAbortsBeforeTransactions(t *testing.T) {
	service, _, provider, item := setupService(t)

	provider.GetAccountsFn = func(_ context.Context, _ string) ([]model.Account, error) {
		return nil, errors.New("ITEM_LOGIN_REQUIRED")
	}

	summary := service.SyncItem(context.Background(), item)
	require.Len(t, summary.Errors, 1)
	assert.Empty(t, provider.SyncTransactionsCalls)
}

func TestSyncAll_NoLinkedItems(t *testing.T) {
	store := testutil.SetupTestDB(t)
	service := New(store, plaid.NewMockProvider())

	_, err := service.SyncAll(context.Background(), storage.DemoUserID)
	assert.ErrorIs(t, err, common.ErrNoLinkedItems)
}

func TestSyncAll_AggregatesAcrossItems(t *testing.T) {
	store := testutil.SetupTestDB(t)
	provider := plaid.NewMockProvider()
	service := New(store, provider)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		require.NoError(t, store.SaveItem(ctx, &model.PlaidItem{
			ItemID:      fmt.Sprintf("item-%d", i),
			AccessToken: fmt.Sprintf("token-%d", i),
			UserID:      storage.DemoUserID,
		}))
	}

	provider.SyncTransactionsFn = func(_ context.Context, accessToken, _ string) (*model.SyncPage, error) {
		return &model.SyncPage{
			NextCursor: "cursor-" + accessToken,
			Added:      []model.Transaction{testTransaction("txn-"+accessToken, -1)},
		}, nil
	}

	summary, err := service.SyncAll(ctx, storage.DemoUserID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Added)
	assert.Empty(t, summary.Errors)
	assert.Len(t, provider.SyncTransactionsCalls, 2)
}

func TestItemLock_SameItemSameLock(t *testing.T) {
	service, _, _, _ := setupService(t)

	a := service.itemLock("item-1")
	b := service.itemLock("item-1")
	c := service.itemLock("item-2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
