package model

// SyncPage is one bounded batch from the provider's change feed.
type SyncPage struct {
	NextCursor string
	Added      []Transaction
	Modified   []Transaction
	Removed    []string // provider transaction ids
	HasMore    bool
}

// SyncSummary reports the outcome of syncing one linked connection.
// Counts cover committed pages only; a page that failed mid-apply is
// rolled back and its error recorded.
type SyncSummary struct {
	Errors   []string
	Added    int
	Modified int
	Removed  int
}

// Merge folds another connection's summary into this one. Used by the
// orchestration boundary to aggregate across all of a user's connections.
func (s *SyncSummary) Merge(other SyncSummary) {
	s.Added += other.Added
	s.Modified += other.Modified
	s.Removed += other.Removed
	s.Errors = append(s.Errors, other.Errors...)
}
