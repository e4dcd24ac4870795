// Package agent implements the query-answering pipeline: a five-stage flow
// that classifies a user query, conditionally generates and executes SQL,
// derives insights, and produces the final natural-language answer.
//
// The flow is plain sequential composition with a single branch decided
// after classification:
//
//	Classify -> Analyze -> Insights -> Format
//	         \-> GeneralChat ----------^
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pennywise-fi/pennywise/internal/llm"
	"github.com/pennywise-fi/pennywise/internal/model"
)

// QueryType is the classification label for a user query.
type QueryType string

// The three query classes. Anything the classifier emits outside this set
// is coerced to QueryTypeGeneral.
const (
	QueryTypeTransaction QueryType = "transaction"
	QueryTypeSummary     QueryType = "summary"
	QueryTypeGeneral     QueryType = "general"
)

// Store is the read-only slice of the persistence layer the agent consumes.
type Store interface {
	ExecuteQuery(ctx context.Context, query string) []model.Row
	SchemaDescription(ctx context.Context) (string, error)
}

// Pipeline runs the query-answering flow. All state is request-scoped;
// a Pipeline is safe for concurrent use.
type Pipeline struct {
	llm    llm.Client
	store  Store
	logger *slog.Logger
}

// NewPipeline creates a pipeline with explicit capability handles.
func NewPipeline(llmClient llm.Client, store Store) *Pipeline {
	return &Pipeline{
		llm:    llmClient,
		store:  store,
		logger: slog.Default().With("component", "agent"),
	}
}

// runState accumulates the per-stage results of one pipeline run. Each
// stage returns a value that is merged in here exactly once, so "not yet
// computed" is never conflated with "intentionally empty".
type runState struct {
	queryType     QueryType
	sqlQuery      string
	results       []model.Row
	analysis      string
	finalResponse string
	resultsSet    bool
}

// ProcessQuery answers a user query given the prior conversation history.
// History is supplied in full by the caller and never mutated; the return
// value is the complete response text, never partial state.
func (p *Pipeline) ProcessQuery(ctx context.Context, userQuery string, history []model.Message) (string, error) {
	messages := make([]model.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, model.Message{Role: model.RoleUser, Content: userQuery})

	state := &runState{}

	queryType, err := p.classify(ctx, userQuery)
	if err != nil {
		return "", fmt.Errorf("classification failed: %w", err)
	}
	state.queryType = queryType
	p.logger.Debug("Classified query", "query_type", queryType)

	switch queryType {
	case QueryTypeTransaction, QueryTypeSummary:
		sqlQuery, results, err := p.analyzeTransactions(ctx, userQuery)
		if err != nil {
			return "", fmt.Errorf("transaction analysis failed: %w", err)
		}
		state.sqlQuery = sqlQuery
		state.results = results
		state.resultsSet = true

		analysis, err := p.generateInsights(ctx, userQuery, results)
		if err != nil {
			return "", fmt.Errorf("insight generation failed: %w", err)
		}
		state.analysis = analysis

	case QueryTypeGeneral:
		response, err := p.generalChat(ctx, messages)
		if err != nil {
			return "", fmt.Errorf("general chat failed: %w", err)
		}
		state.finalResponse = response
	}

	return p.formatResponse(state), nil
}

// classify labels the most recent user message as transaction, summary, or
// general. Replies outside the label set are silently coerced to general;
// ambiguity is a fail-safe default, never an error.
func (p *Pipeline) classify(ctx context.Context, userQuery string) (QueryType, error) {
	reply, err := p.llm.Complete(ctx, classificationPrompt(userQuery))
	if err != nil {
		return "", err
	}

	switch QueryType(strings.ToLower(strings.TrimSpace(reply))) {
	case QueryTypeTransaction:
		return QueryTypeTransaction, nil
	case QueryTypeSummary:
		return QueryTypeSummary, nil
	default:
		return QueryTypeGeneral, nil
	}
}

// analyzeTransactions synthesizes SQL from the live schema description plus
// the user's query, then executes it. Execution fails closed: a malformed
// query produces an error-marker row, not an error return.
func (p *Pipeline) analyzeTransactions(ctx context.Context, userQuery string) (string, []model.Row, error) {
	schema, err := p.store.SchemaDescription(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to describe schema: %w", err)
	}

	reply, err := p.llm.Complete(ctx, sqlSynthesisPrompt(schema, userQuery))
	if err != nil {
		return "", nil, err
	}

	sqlQuery := stripCodeFence(reply)
	p.logger.Debug("Synthesized query", "sql", sqlQuery)

	return sqlQuery, p.store.ExecuteQuery(ctx, sqlQuery), nil
}

// fallbackApology is the fixed reply when the synthesized query failed or
// returned nothing usable.
const fallbackApology = "I couldn't retrieve the data. Let me try a different approach."

// generateInsights turns query results into a short analysis. It serializes
// at most the first 50 rows; no aggregation math happens here (see
// CategoryBreakdown and MonthlyTrend for the deterministic operations).
func (p *Pipeline) generateInsights(ctx context.Context, userQuery string, results []model.Row) (string, error) {
	if !model.HasUsableRows(results) {
		return fallbackApology, nil
	}

	prompt, err := insightPrompt(userQuery, results)
	if err != nil {
		return "", err
	}

	return p.llm.Complete(ctx, prompt)
}

// generalChat handles non-financial conversation. The raw model reply
// becomes the final response directly, bypassing result formatting.
func (p *Pipeline) generalChat(ctx context.Context, messages []model.Message) (string, error) {
	return p.llm.Chat(ctx, generalChatSystemPrompt, messages)
}

// formatResponse composes the externally visible answer. A response already
// set by the general-chat branch passes through unchanged.
func (p *Pipeline) formatResponse(state *runState) string {
	if state.finalResponse != "" {
		return state.finalResponse
	}

	if !state.resultsSet || !model.HasUsableRows(state.results) {
		return state.analysis
	}

	var b strings.Builder
	b.WriteString(state.analysis)
	b.WriteString("\n\n")

	if len(state.results) <= 5 {
		b.WriteString("Here's the data I found:\n")
		for _, row := range state.results {
			line, ok := formatRow(row)
			if ok {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	} else {
		fmt.Fprintf(&b, "\n(Showing analysis of %d transactions)", len(state.results))
	}

	return b.String()
}

// formatRow renders one result row as "- date: name - $amount spent".
// Rows lacking the expected columns are skipped.
func formatRow(row model.Row) (string, bool) {
	name, hasName := row["name"].(string)
	amount, hasAmount := toFloat(row["amount"])
	date, hasDate := formatDate(row["date"])
	if !hasName || !hasAmount || !hasDate {
		return "", false
	}

	direction := "received"
	if amount < 0 {
		direction = "spent"
	}

	return fmt.Sprintf("- %s: %s - $%.2f %s", date, name, abs(amount), direction), true
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
