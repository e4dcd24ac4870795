package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pennywise-fi/pennywise/internal/agent"
	"github.com/pennywise-fi/pennywise/internal/cli"
	"github.com/pennywise-fi/pennywise/internal/common"
	"github.com/pennywise-fi/pennywise/internal/model"
	"github.com/pennywise-fi/pennywise/internal/storage"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with your transactions",
		Long: `Start an interactive chat session. Ask about specific transactions,
spending summaries, or anything else; the conversation is persisted per
thread so you can resume it later.`,
		RunE: runChat,
	}

	cmd.Flags().String("thread", "", "Thread id to resume (default: new thread)")
	_ = viper.BindPFlag("chat.thread", cmd.Flags().Lookup("thread"))

	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	llmClient, err := newLLMClient()
	if err != nil {
		return common.NewUserError("LLM is not configured", err)
	}

	pipeline := agent.NewPipeline(llmClient, store)

	threadID := viper.GetString("chat.thread")
	if threadID == "" {
		threadID = uuid.NewString()
	}

	history, err := loadHistory(ctx, store, threadID)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle("PennyWise"))
	fmt.Println(cli.SubtleStyle.Render("thread " + threadID + " (type 'exit' to quit)"))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(cli.FormatPrompt("you"))
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}

		response, err := pipeline.ProcessQuery(ctx, query, history)
		if err != nil {
			fmt.Println(cli.FormatError(err.Error()))
			continue
		}

		fmt.Println(cli.FormatAssistant(response))

		turn := []model.Message{
			{Role: model.RoleUser, Content: query},
			{Role: model.RoleAssistant, Content: response},
		}
		if err := store.AppendMessages(ctx, storage.DemoUserID, threadID, turn...); err != nil {
			fmt.Println(cli.FormatWarning("failed to save conversation: " + err.Error()))
		}
		history = append(history, turn...)
	}

	return scanner.Err()
}

func loadHistory(ctx context.Context, store *storage.SQLiteStorage, threadID string) ([]model.Message, error) {
	conversation, err := store.GetConversation(ctx, threadID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return conversation.Messages, nil
}
