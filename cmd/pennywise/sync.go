package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pennywise-fi/pennywise/internal/cli"
	"github.com/pennywise-fi/pennywise/internal/model"
	"github.com/pennywise-fi/pennywise/internal/storage"
	"github.com/pennywise-fi/pennywise/internal/syncer"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull new and changed transactions from linked banks",
		Long: `Incrementally sync every linked bank connection. Each connection
resumes from its stored cursor, so only changes since the last sync are
fetched.`,
		RunE: runSync,
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	provider, err := newPlaidClient()
	if err != nil {
		return err
	}

	items, err := store.GetItems(ctx, storage.DemoUserID)
	if err != nil {
		return fmt.Errorf("failed to load linked banks: %w", err)
	}
	if len(items) == 0 {
		fmt.Println(cli.FormatWarning("No banks linked yet. Run 'pennywise link' first."))
		return nil
	}

	service := syncer.New(store, provider)

	bar := progressbar.NewOptions(len(items),
		progressbar.OptionSetDescription("Syncing banks"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var total model.SyncSummary
	for i := range items {
		total.Merge(service.SyncItem(ctx, &items[i]))
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Sync complete: %d added, %d modified, %d removed",
		total.Added, total.Modified, total.Removed)))

	for _, errMsg := range total.Errors {
		fmt.Println(cli.FormatError(errMsg))
	}
	if len(total.Errors) > 0 {
		return fmt.Errorf("%d connection(s) failed to sync", len(total.Errors))
	}

	return nil
}
