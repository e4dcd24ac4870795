package agent

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pennywise-fi/pennywise/internal/model"
)

// Deterministic aggregation operations over already-fetched rows. These are
// pure functions with no model involvement; query synthesis or direct tool
// use invokes them on result sets.

// CategoryBreakdown flattens each row's category list into a multiset and
// counts label occurrences.
func CategoryBreakdown(rows []model.Row) map[string]int {
	counts := make(map[string]int)
	for _, row := range rows {
		for _, label := range rowCategories(row) {
			counts[label]++
		}
	}
	return counts
}

// MonthlyTrend sums signed amounts per calendar month, keyed "2006-01".
// Rows without a parseable date or amount are skipped.
func MonthlyTrend(rows []model.Row) map[string]float64 {
	sums := make(map[string]float64)
	for _, row := range rows {
		date, ok := rowDate(row)
		if !ok {
			continue
		}
		amount, ok := toFloat(row["amount"])
		if !ok {
			continue
		}
		sums[date.Format("2006-01")] += amount
	}
	return sums
}

// rowCategories extracts the category list from a row, handling both the
// raw JSON text the store returns and already-decoded slices.
func rowCategories(row model.Row) []string {
	switch v := row["category"].(type) {
	case string:
		var labels []string
		if err := json.Unmarshal([]byte(v), &labels); err != nil {
			return nil
		}
		return labels
	case []string:
		return v
	case []any:
		labels := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				labels = append(labels, s)
			}
		}
		return labels
	default:
		return nil
	}
}

// rowDate extracts a calendar date from a row's date column.
func rowDate(row model.Row) (time.Time, bool) {
	switch v := row["date"].(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// formatDate renders a row's date value as a plain calendar date.
func formatDate(value any) (string, bool) {
	if t, ok := rowDate(model.Row{"date": value}); ok {
		return t.Format("2006-01-02"), true
	}

	// Degraded path: unparseable strings keep their date prefix.
	if s, ok := value.(string); ok && s != "" {
		if idx := strings.IndexAny(s, "T "); idx > 0 {
			return s[:idx], true
		}
		return s, true
	}
	return "", false
}

// toFloat coerces the numeric types the SQLite driver may hand back.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
