package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennywise-fi/pennywise/internal/model"
)

// mockStore is a scripted Store for pipeline tests.
type mockStore struct {
	ExecuteQueryFn      func(ctx context.Context, query string) []model.Row
	SchemaDescriptionFn func(ctx context.Context) (string, error)

	ExecutedQueries []string
}

func (m *mockStore) ExecuteQuery(ctx context.Context, query string) []model.Row {
	m.ExecutedQueries = append(m.ExecutedQueries, query)
	if m.ExecuteQueryFn != nil {
		return m.ExecuteQueryFn(ctx, query)
	}
	return nil
}

func (m *mockStore) SchemaDescription(ctx context.Context) (string, error) {
	if m.SchemaDescriptionFn != nil {
		return m.SchemaDescriptionFn(ctx)
	}
	return "CREATE TABLE transactions (...)", nil
}

func TestPipeline_Classify(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  QueryType
	}{
		{name: "transaction label", reply: "transaction", want: QueryTypeTransaction},
		{name: "summary label", reply: "summary", want: QueryTypeSummary},
		{name: "general label", reply: "general", want: QueryTypeGeneral},
		{name: "uppercase is normalized", reply: "TRANSACTION", want: QueryTypeTransaction},
		{name: "surrounding whitespace is trimmed", reply: "  summary\n", want: QueryTypeSummary},
		{name: "unknown label coerces to general", reply: "financial", want: QueryTypeGeneral},
		{name: "empty reply coerces to general", reply: "", want: QueryTypeGeneral},
		{name: "chatty reply coerces to general", reply: "I think this is a transaction query", want: QueryTypeGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llmClient := NewMockLLM()
			llmClient.CompleteFn = func(_ context.Context, _ string) (string, error) {
				return tt.reply, nil
			}

			p := NewPipeline(llmClient, &mockStore{})
			got, err := p.classify(context.Background(), "how much did I spend?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPipeline_ClassifyError(t *testing.T) {
	llmClient := NewMockLLM()
	llmClient.CompleteFn = func(_ context.Context, _ string) (string, error) {
		return "", errors.New("connection refused")
	}

	p := NewPipeline(llmClient, &mockStore{})
	_, err := p.ProcessQuery(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classification failed")
}

func TestPipeline_GeneralChatPassthrough(t *testing.T) {
	llmClient := NewMockLLM()
	llmClient.CompleteFn = func(_ context.Context, _ string) (string, error) {
		return "general", nil
	}
	llmClient.ChatFn = func(_ context.Context, system string, messages []model.Message) (string, error) {
		assert.Contains(t, system, "PennyWise")
		require.NotEmpty(t, messages)
		assert.Equal(t, "hi there", messages[len(messages)-1].Content)
		return "Hello! How can I help with your finances today?", nil
	}

	store := &mockStore{}
	p := NewPipeline(llmClient, store)

	got, err := p.ProcessQuery(context.Background(), "hi there", nil)
	require.NoError(t, err)

	// The chat reply passes through formatting unchanged and no SQL runs.
	assert.Equal(t, "Hello! How can I help with your finances today?", got)
	assert.Empty(t, store.ExecutedQueries)
	assert.Equal(t, 1, llmClient.ChatCalls)
}

func TestPipeline_GeneralChatIncludesHistory(t *testing.T) {
	llmClient := NewMockLLM()
	llmClient.CompleteFn = func(_ context.Context, _ string) (string, error) {
		return "general", nil
	}

	var gotMessages []model.Message
	llmClient.ChatFn = func(_ context.Context, _ string, messages []model.Message) (string, error) {
		gotMessages = messages
		return "ok", nil
	}

	history := []model.Message{
		{Role: model.RoleUser, Content: "hello"},
		{Role: model.RoleAssistant, Content: "hi!"},
	}

	p := NewPipeline(llmClient, &mockStore{})
	_, err := p.ProcessQuery(context.Background(), "what can you do?", history)
	require.NoError(t, err)

	require.Len(t, gotMessages, 3)
	assert.Equal(t, "hello", gotMessages[0].Content)
	assert.Equal(t, "what can you do?", gotMessages[2].Content)

	// Caller's history slice is never mutated.
	assert.Len(t, history, 2)
}

func TestPipeline_TransactionFlow(t *testing.T) {
	llmClient := NewMockLLM()
	llmClient.CompleteFn = func(_ context.Context, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Classify this user query"):
			return "transaction", nil
		case strings.Contains(prompt, "Generate a SQL query"):
			return "```sql\nSELECT * FROM transactions\n```", nil
		default:
			return "You spent $12.50 at Starbucks.", nil
		}
	}

	store := &mockStore{
		ExecuteQueryFn: func(_ context.Context, _ string) []model.Row {
			return []model.Row{
				{"date": "2024-01-15 00:00:00", "name": "Starbucks", "amount": -12.5},
			}
		},
	}

	p := NewPipeline(llmClient, store)
	got, err := p.ProcessQuery(context.Background(), "how much at starbucks?", nil)
	require.NoError(t, err)

	// Code fences are stripped before execution.
	require.Len(t, store.ExecutedQueries, 1)
	assert.Equal(t, "SELECT * FROM transactions", store.ExecutedQueries[0])

	assert.Contains(t, got, "You spent $12.50 at Starbucks.")
	assert.Contains(t, got, "Here's the data I found:")
	assert.Contains(t, got, "- 2024-01-15: Starbucks - $12.50 spent")
}

func TestPipeline_ErrorMarkerFallsBackToApology(t *testing.T) {
	llmClient := NewMockLLM()
	llmClient.CompleteFn = func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "Classify this user query") {
			return "transaction", nil
		}
		return "SELECT nope FROM nowhere", nil
	}

	store := &mockStore{
		ExecuteQueryFn: func(_ context.Context, _ string) []model.Row {
			return []model.Row{model.ErrorRow(errors.New("no such table: nowhere"))}
		},
	}

	p := NewPipeline(llmClient, store)
	got, err := p.ProcessQuery(context.Background(), "show me everything", nil)
	require.NoError(t, err)

	assert.Equal(t, fallbackApology, got)

	// Only classification and SQL synthesis hit the model; the insight
	// stage short-circuits without a third call.
	assert.Len(t, llmClient.CompletePrompts, 2)
}

func TestPipeline_EmptyResultsFallBackToApology(t *testing.T) {
	llmClient := NewMockLLM()
	llmClient.CompleteFn = func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "Classify this user query") {
			return "summary", nil
		}
		return "SELECT * FROM transactions WHERE 1 = 0", nil
	}

	store := &mockStore{
		ExecuteQueryFn: func(_ context.Context, _ string) []model.Row { return nil },
	}

	p := NewPipeline(llmClient, store)
	got, err := p.ProcessQuery(context.Background(), "spending last decade", nil)
	require.NoError(t, err)
	assert.Equal(t, fallbackApology, got)
}

func TestPipeline_SchemaErrorPropagates(t *testing.T) {
	llmClient := NewMockLLM()
	llmClient.CompleteFn = func(_ context.Context, _ string) (string, error) {
		return "transaction", nil
	}

	store := &mockStore{
		SchemaDescriptionFn: func(_ context.Context) (string, error) {
			return "", errors.New("database is locked")
		},
	}

	p := NewPipeline(llmClient, store)
	_, err := p.ProcessQuery(context.Background(), "spending", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction analysis failed")
}

func TestFormatResponse_RowBoundary(t *testing.T) {
	makeRows := func(n int) []model.Row {
		rows := make([]model.Row, n)
		for i := range rows {
			rows[i] = model.Row{
				"date":   "2024-03-01 00:00:00",
				"name":   "Shop",
				"amount": -5.0,
			}
		}
		return rows
	}

	t.Run("five rows are itemized", func(t *testing.T) {
		p := NewPipeline(NewMockLLM(), &mockStore{})
		got := p.formatResponse(&runState{
			analysis:   "Steady spending.",
			results:    makeRows(5),
			resultsSet: true,
		})

		assert.Contains(t, got, "Here's the data I found:")
		assert.Equal(t, 5, strings.Count(got, "- 2024-03-01: Shop"))
		assert.NotContains(t, got, "Showing analysis")
	})

	t.Run("six rows show a count instead", func(t *testing.T) {
		p := NewPipeline(NewMockLLM(), &mockStore{})
		got := p.formatResponse(&runState{
			analysis:   "Steady spending.",
			results:    makeRows(6),
			resultsSet: true,
		})

		assert.Contains(t, got, "(Showing analysis of 6 transactions)")
		assert.NotContains(t, got, "Here's the data I found:")
	})
}

func TestFormatRow(t *testing.T) {
	tests := []struct {
		row    model.Row
		name   string
		want   string
		wantOK bool
	}{
		{
			name:   "expense renders as spent",
			row:    model.Row{"date": "2024-01-02 00:00:00", "name": "Coffee Bar", "amount": -4.75},
			want:   "- 2024-01-02: Coffee Bar - $4.75 spent",
			wantOK: true,
		},
		{
			name:   "income renders as received",
			row:    model.Row{"date": "2024-01-31", "name": "Payroll", "amount": 2500.0},
			want:   "- 2024-01-31: Payroll - $2500.00 received",
			wantOK: true,
		},
		{
			name:   "integer amount from the driver",
			row:    model.Row{"date": "2024-01-02", "name": "Fee", "amount": int64(-3)},
			want:   "- 2024-01-02: Fee - $3.00 spent",
			wantOK: true,
		},
		{
			name:   "missing name column is skipped",
			row:    model.Row{"date": "2024-01-02", "amount": -4.75},
			wantOK: false,
		},
		{
			name:   "missing amount column is skipped",
			row:    model.Row{"date": "2024-01-02", "name": "Coffee Bar"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := formatRow(tt.row)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{name: "sql fence", reply: "```sql\nSELECT 1\n```", want: "SELECT 1"},
		{name: "bare fence", reply: "```\nSELECT 1\n```", want: "SELECT 1"},
		{name: "no fence", reply: "SELECT 1", want: "SELECT 1"},
		{name: "surrounding whitespace", reply: "  SELECT 1\n\n", want: "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.reply))
		})
	}
}
