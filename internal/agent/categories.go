package agent

import (
	"fmt"
	"sort"
	"strings"
)

// colloquialCategories maps colloquial query terms to the literal Plaid
// category labels the store holds. This is the normalized taxonomy the
// query-synthesis prompt is built from; free-text LIKE matching remains the
// degraded path for terms not listed here.
var colloquialCategories = map[string][]string{
	"restaurants":   {"Food and Drink", "Restaurants", "Fast Food", "Coffee"},
	"dining":        {"Food and Drink", "Restaurants", "Fast Food", "Coffee"},
	"food":          {"Food and Drink", "Restaurants", "Fast Food", "Coffee"},
	"shopping":      {"Shops", "General Merchandise", "Clothing", "Department Stores"},
	"retail":        {"Shops", "General Merchandise", "Clothing", "Department Stores"},
	"gas":           {"Gas Stations", "Transportation"},
	"fuel":          {"Gas Stations", "Transportation"},
	"groceries":     {"Grocery", "Supermarkets"},
	"entertainment": {"Entertainment", "Recreation"},
}

// CategoryLabels maps a colloquial term to the store's literal category
// labels. Returns nil for unknown terms, signaling the caller to fall back
// to free-text matching.
func CategoryLabels(term string) []string {
	labels, ok := colloquialCategories[strings.ToLower(strings.TrimSpace(term))]
	if !ok {
		return nil
	}
	out := make([]string, len(labels))
	copy(out, labels)
	return out
}

// categoryMappingGuidance renders the taxonomy as the prompt's category
// mapping block. Terms sharing a label set are grouped on one line.
func categoryMappingGuidance() string {
	grouped := make(map[string][]string)
	for term, labels := range colloquialCategories {
		key := strings.Join(labels, "|")
		grouped[key] = append(grouped[key], term)
	}

	lines := make([]string, 0, len(grouped))
	for key, terms := range grouped {
		sort.Strings(terms)
		labels := strings.Split(key, "|")
		quoted := make([]string, len(labels))
		for i, l := range labels {
			quoted[i] = fmt.Sprintf("'%s'", l)
		}
		lines = append(lines, fmt.Sprintf("- %q -> check for: %s",
			strings.Join(terms, "/"), strings.Join(quoted, ", ")))
	}
	sort.Strings(lines)

	return "CATEGORY MAPPINGS (use these when user asks about broad categories):\n" +
		strings.Join(lines, "\n") + "\n"
}
