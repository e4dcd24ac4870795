package storage

import (
	"context"
	"log/slog"

	"github.com/pennywise-fi/pennywise/internal/model"
)

// ExecuteQuery runs agent-generated SQL against the store and returns the
// rows as loosely typed mappings. It fails closed: any execution error
// becomes a single error-marker row instead of a returned error, which is
// the signal downstream pipeline stages inspect to short-circuit.
func (s *SQLiteStorage) ExecuteQuery(ctx context.Context, query string) []model.Row {
	if query == "" {
		return []model.Row{model.ErrorRow(errEmptyQuery)}
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		slog.Debug("Generated query failed", "error", err)
		return []model.Row{model.ErrorRow(err)}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return []model.Row{model.ErrorRow(err)}
	}

	var results []model.Row
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return []model.Row{model.ErrorRow(err)}
		}

		row := make(model.Row, len(columns))
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return []model.Row{model.ErrorRow(err)}
	}

	return results
}

type queryError string

func (e queryError) Error() string { return string(e) }

const errEmptyQuery = queryError("empty query")
