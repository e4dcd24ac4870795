package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/pennywise-fi/pennywise/internal/config"
	"github.com/pennywise-fi/pennywise/internal/llm"
	"github.com/pennywise-fi/pennywise/internal/plaid"
	"github.com/pennywise-fi/pennywise/internal/storage"
)

// openStorage opens the configured database and brings the schema current.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "~/.local/share/pennywise/pennywise.db"
	}

	store, err := storage.NewSQLiteStorage(config.ExpandPath(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// newLLMClient builds the configured LLM client, falling back to the
// provider's conventional environment variable for the API key.
func newLLMClient() (llm.Client, error) {
	cfg := llm.Config{
		Provider:    viper.GetString("llm.provider"),
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
	}

	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}

	if cfg.APIKey == "" {
		switch cfg.Provider {
		case "openai":
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	return llm.NewClient(cfg)
}

// newPlaidClient builds the configured Plaid client.
func newPlaidClient() (*plaid.Client, error) {
	cfg := plaid.Config{
		ClientID:    viper.GetString("plaid.client_id"),
		Secret:      viper.GetString("plaid.secret"),
		Environment: viper.GetString("plaid.environment"),
	}

	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("PLAID_CLIENT_ID")
	}
	if cfg.Secret == "" {
		cfg.Secret = os.Getenv("PLAID_SECRET")
	}
	if cfg.Environment == "" {
		cfg.Environment = "sandbox"
	}

	return plaid.NewClient(cfg)
}
