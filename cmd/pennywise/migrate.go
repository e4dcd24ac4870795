package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pennywise-fi/pennywise/internal/cli"
	"github.com/pennywise-fi/pennywise/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"Database is at schema version %d", storage.ExpectedSchemaVersion)))
			return nil
		},
	}
}
