package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pennywise-fi/pennywise/internal/model"
)

// generalChatSystemPrompt frames the general-conversation branch.
const generalChatSystemPrompt = `You are PennyWise, a friendly financial assistant.
While the user isn't asking about specific transactions right now,
you can still provide general financial advice and maintain a helpful conversation.
Keep responses concise and friendly.`

// classificationPrompt asks for a single-label classification of the query.
func classificationPrompt(userQuery string) string {
	return fmt.Sprintf(`Classify this user query into one of these categories:
- "transaction": Questions about specific transactions, spending, or financial data
- "summary": Questions asking for aggregations, trends, or analysis
- "general": General conversation, greetings, or non-financial questions

User query: %q

Respond with just the category name.`, userQuery)
}

// sqlSynthesisPrompt combines the live schema description, the literal user
// query, and fixed guidance covering the SQLite dialect, flexible matching,
// and the colloquial-category mapping.
func sqlSynthesisPrompt(schema, userQuery string) string {
	return fmt.Sprintf(`%s

User query: %q

Generate a SQL query to answer this question.
Important notes:
- Use user_id = 1 for the demo user
- date is in DATETIME format
- amount is signed: negative values are expenses, positive values are income
- category is stored as JSON array
- ensure all SQL is SQLite3 compatible

FLEXIBLE MATCHING GUIDELINES:
- For merchant/store names: Use LIKE with %% wildcards for partial matching
  Example: For "walmart", use "name LIKE '%%walmart%%' OR name LIKE '%%wal-mart%%'"
- Be case-insensitive: Use LOWER() function on both sides
- Consider common variations and abbreviations

FOR CATEGORY SEARCHES:
- WRONG: JSON_EXTRACT(category, '$[*]') - wildcards not supported
- RIGHT: Use simple LIKE on the category column: category LIKE '%%Food%%'
- OR use JSON_EACH: FROM transactions t, JSON_EACH(t.category) je WHERE je.value LIKE '%%Food%%'

%s
Return ONLY the SQL query, no explanation.`, schema, userQuery, categoryMappingGuidance())
}

// insightRowLimit bounds how many result rows are serialized into the
// analysis prompt.
const insightRowLimit = 50

// insightPrompt packages the results and the original question for the
// analysis call.
func insightPrompt(userQuery string, results []model.Row) (string, error) {
	sample := results
	if len(sample) > insightRowLimit {
		sample = sample[:insightRowLimit]
	}

	serialized, err := json.Marshal(sample)
	if err != nil {
		return "", fmt.Errorf("failed to serialize query results: %w", err)
	}

	return fmt.Sprintf(`User asked: %q

Query results: %s
Total results: %d rows

Provide a brief, insightful analysis of this data. Focus on:
- Direct answer to the user's question
- Key patterns or trends
- Actionable insights if applicable

Keep it conversational and helpful.`, userQuery, serialized, len(results)), nil
}

// stripCodeFence removes markdown code-fence markup the model may wrap the
// SQL in. No syntax validation happens here; a bad query fails closed at
// execution.
func stripCodeFence(reply string) string {
	reply = strings.ReplaceAll(reply, "```sql", "")
	reply = strings.ReplaceAll(reply, "```", "")
	return strings.TrimSpace(reply)
}
