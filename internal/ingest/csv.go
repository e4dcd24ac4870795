// Package ingest implements batch transaction import from CSV and OFX
// files. Both formats feed the same storage upserts the sync service uses,
// normalized to the canonical sign convention (negative = expense), and use
// deterministic synthetic provider ids so reimporting a file is idempotent.
package ingest

import (
	"crypto/sha256"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pennywise-fi/pennywise/internal/model"
)

// csvDateLayouts are tried in order when parsing the Date column.
var csvDateLayouts = []string{"01/02/2006", "2006-01-02", "01/02/06"}

// ParseCSV reads transactions from a CSV export. The first row must be a
// header; recognized columns are Date, Name (or Description), Amount, and
// an optional Category holding labels separated by ":". Amounts are assumed
// to already follow the canonical convention (negative = expense).
func ParseCSV(reader io.Reader, userID int64) ([]model.Transaction, error) {
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	dateIdx, ok := cols["date"]
	if !ok {
		return nil, fmt.Errorf("CSV is missing a Date column")
	}
	nameIdx, ok := cols["name"]
	if !ok {
		nameIdx, ok = cols["description"]
	}
	if !ok {
		return nil, fmt.Errorf("CSV is missing a Name or Description column")
	}
	amountIdx, ok := cols["amount"]
	if !ok {
		return nil, fmt.Errorf("CSV is missing an Amount column")
	}
	categoryIdx, hasCategory := cols["category"]

	var transactions []model.Transaction
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		date, ok := parseCSVDate(record[dateIdx])
		if !ok {
			slog.Warn("Skipping CSV row with invalid date", "line", line, "date", record[dateIdx])
			continue
		}

		amount, err := strconv.ParseFloat(strings.TrimSpace(record[amountIdx]), 64)
		if err != nil {
			slog.Warn("Skipping CSV row with invalid amount", "line", line, "amount", record[amountIdx])
			continue
		}

		name := strings.TrimSpace(record[nameIdx])
		if name == "" {
			slog.Warn("Skipping CSV row with empty name", "line", line)
			continue
		}

		var categories []string
		if hasCategory && categoryIdx < len(record) {
			for _, label := range strings.Split(record[categoryIdx], ":") {
				if label = strings.TrimSpace(label); label != "" {
					categories = append(categories, label)
				}
			}
		}

		transactions = append(transactions, model.Transaction{
			Date:         date,
			ProviderID:   syntheticProviderID("csv", date, name, amount),
			UserID:       userID,
			Name:         name,
			MerchantName: name,
			Amount:       amount,
			Category:     categories,
		})
	}

	return transactions, nil
}

func parseCSVDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// syntheticProviderID builds a stable id for imported rows that have no
// provider-assigned transaction id.
func syntheticProviderID(source string, date time.Time, name string, amount float64) string {
	data := fmt.Sprintf("%s:%.2f:%s", date.Format("2006-01-02"), amount, name)
	return fmt.Sprintf("%s-%x", source, sha256.Sum256([]byte(data)))
}
