package model

// Account represents one bank account under a linked connection.
// Accounts are overwritten wholesale on every sync pass; there is no
// incremental diffing of account attributes.
type Account struct {
	ProviderID       string // Plaid's account id, unique
	ItemID           string // owning connection's Plaid item id
	Name             string // display name, e.g. "Chase Checking"
	OfficialName     string // e.g. "CHASE TOTAL CHECKING"
	Type             string // depository, credit, loan, ...
	Subtype          string // checking, savings, ...
	Currency         string
	BalanceAvailable float64
	BalanceCurrent   float64
	BalanceLimit     float64 // credit limit, zero for non-credit accounts
}
