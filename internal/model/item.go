package model

import "time"

// PlaidItem is one linked bank connection: a durable access token plus the
// sync cursor that makes transaction syncs incremental. The cursor is only
// persisted after a page of changes has been fully applied, so a crash
// between apply and persist reprocesses that page (at-least-once).
type PlaidItem struct {
	LastSync        time.Time
	CreatedAt       time.Time
	ItemID          string // Plaid's id for this connection, unique
	AccessToken     string
	InstitutionID   string
	InstitutionName string
	Cursor          string // opaque resume token, empty before the first sync
	UserID          int64
}
