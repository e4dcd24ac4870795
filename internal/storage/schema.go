package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// schemaHints is appended to every schema description. It carries the fixed
// domain knowledge the query-synthesis prompt needs on top of the raw DDL.
const schemaHints = `
Additional Context:
- For demo purposes, use user_id = 1 or email = 'demo@example.com'
- In the transactions table:
  - amount is REAL and signed: negative values are expenses (money spent), positive values are income
  - date is stored as DATETIME
  - category is stored as JSON (array of category strings)
  - name contains the transaction description/merchant
`

// SchemaDescription renders the live table/column/foreign-key metadata as
// descriptive text for the query-synthesis prompt. It is recomputed from
// sqlite_master on every call and never cached, so it cannot drift from the
// actual store structure.
func (s *SQLiteStorage) SchemaDescription(ctx context.Context) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}

	tables, err := s.db.QueryContext(ctx, `
		SELECT name, sql
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return "", fmt.Errorf("failed to read schema metadata: %w", err)
	}
	defer func() { _ = tables.Close() }()

	var b strings.Builder
	b.WriteString("Database Schema (dynamically retrieved):\n\n")

	var names []string
	for tables.Next() {
		var name, createSQL string
		if err := tables.Scan(&name, &createSQL); err != nil {
			return "", fmt.Errorf("failed to scan table metadata: %w", err)
		}
		names = append(names, name)

		fmt.Fprintf(&b, "Table: %s\n", name)
		fmt.Fprintf(&b, "Create Statement: %s\n", createSQL)
	}
	if err := tables.Err(); err != nil {
		return "", fmt.Errorf("failed to read schema metadata: %w", err)
	}

	for _, name := range names {
		if err := s.describeColumns(ctx, &b, name); err != nil {
			return "", err
		}
	}

	b.WriteString(schemaHints)
	return b.String(), nil
}

func (s *SQLiteStorage) describeColumns(ctx context.Context, b *strings.Builder, table string) error {
	fmt.Fprintf(b, "\nColumns of %s:\n", table)

	// Table names come from sqlite_master, not user input; PRAGMA does not
	// support placeholders.
	cols, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("failed to read columns for %s: %w", table, err)
	}
	defer func() { _ = cols.Close() }()

	for cols.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt sql.NullString

		if err := cols.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("failed to scan column info for %s: %w", table, err)
		}

		nullable := "NULL"
		if notNull != 0 {
			nullable = "NOT NULL"
		}
		primary := ""
		if pk != 0 {
			primary = " PRIMARY KEY"
		}
		fmt.Fprintf(b, " - %s: %s %s%s\n", name, colType, nullable, primary)
	}
	if err := cols.Err(); err != nil {
		return fmt.Errorf("failed to read columns for %s: %w", table, err)
	}

	fks, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", table))
	if err != nil {
		return fmt.Errorf("failed to read foreign keys for %s: %w", table, err)
	}
	defer func() { _ = fks.Close() }()

	wroteHeader := false
	for fks.Next() {
		var id, seq int
		var refTable, from string
		var to sql.NullString
		var onUpdate, onDelete, match string

		if err := fks.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return fmt.Errorf("failed to scan foreign key for %s: %w", table, err)
		}

		if !wroteHeader {
			fmt.Fprintf(b, "Foreign Keys of %s:\n", table)
			wroteHeader = true
		}
		fmt.Fprintf(b, " - %s -> %s.%s\n", from, refTable, to.String)
	}
	return fks.Err()
}
