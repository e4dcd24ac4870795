package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pennywise-fi/pennywise/internal/cli"
	"github.com/pennywise-fi/pennywise/internal/ingest"
	"github.com/pennywise-fi/pennywise/internal/model"
	"github.com/pennywise-fi/pennywise/internal/storage"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import transactions from a CSV or OFX/QFX file",
		Long: `Import transactions from an exported bank file. The format is
detected from the file extension; use --format to override. Rows that
already exist are updated in place, so re-importing the same file is safe.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("format", "", "File format: csv or ofx (default: by extension)")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			format = "csv"
		case ".ofx", ".qfx":
			format = "ofx"
		default:
			return fmt.Errorf("cannot detect format of %q, use --format", path)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	var transactions []model.Transaction
	switch format {
	case "csv":
		transactions, err = ingest.ParseCSV(file, storage.DemoUserID)
	case "ofx":
		transactions, err = ingest.ParseOFX(file, storage.DemoUserID)
	default:
		return fmt.Errorf("unknown format %q, expected csv or ofx", format)
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if len(transactions) == 0 {
		fmt.Println(cli.FormatWarning("No transactions found in " + path))
		return nil
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	bar := progressbar.NewOptions(len(transactions),
		progressbar.OptionSetDescription("Importing"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	for _, txn := range transactions {
		if err := store.UpsertTransaction(ctx, txn); err != nil {
			return fmt.Errorf("failed to store transaction %s: %w", txn.ProviderID, err)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Imported %d transactions from %s", len(transactions), filepath.Base(path))))

	return nil
}
