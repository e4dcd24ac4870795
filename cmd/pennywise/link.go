package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pennywise-fi/pennywise/internal/cli"
	"github.com/pennywise-fi/pennywise/internal/model"
	"github.com/pennywise-fi/pennywise/internal/storage"
	"github.com/pennywise-fi/pennywise/internal/syncer"
)

func linkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link a bank account via Plaid",
		Long: `Link a new bank connection using Plaid Link.

This command will:
1. Create a Link token for the Plaid Link flow
2. Wait for you to complete Link and paste the public token back
3. Exchange it for a durable access token and save the connection
4. Run an initial sync to pull the account history

You can run this multiple times to add more banks.`,
		RunE: runLink,
	}

	cmd.Flags().String("institution", "", "Institution name to record for this connection")

	return cmd
}

func runLink(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client, err := newPlaidClient()
	if err != nil {
		return err
	}

	linkToken, err := client.CreateLinkToken(ctx, storage.DemoUserID)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle("Link a bank"))
	fmt.Println(cli.RenderBox("Link token",
		"Open Plaid Link with this token and connect your bank:\n\n"+linkToken))
	fmt.Print(cli.FormatPrompt("paste the public token"))

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return fmt.Errorf("no public token provided")
	}
	publicToken := strings.TrimSpace(scanner.Text())
	if publicToken == "" {
		return fmt.Errorf("no public token provided")
	}

	accessToken, itemID, err := client.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return err
	}

	institution, _ := cmd.Flags().GetString("institution")
	item := &model.PlaidItem{
		ItemID:          itemID,
		AccessToken:     accessToken,
		InstitutionName: institution,
		UserID:          storage.DemoUserID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := store.SaveItem(ctx, item); err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}

	fmt.Println(cli.FormatSuccess("Bank linked. Running initial sync..."))

	summary, err := syncer.New(store, client).SyncAll(ctx, storage.DemoUserID)
	if err != nil {
		return err
	}
	for _, errMsg := range summary.Errors {
		fmt.Println(cli.FormatError(errMsg))
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Initial sync complete: %d transactions added", summary.Added)))

	return nil
}
