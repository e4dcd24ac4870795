package ingest

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/pennywise-fi/pennywise/internal/model"
)

// ParseOFX reads transactions from an OFX/QFX statement file. OFX already
// uses negative amounts for debits, so no sign normalization is needed.
func ParseOFX(reader io.Reader, userID int64) ([]model.Transaction, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var transactions []model.Transaction

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			accountID := string(stmt.BankAcctFrom.AcctID)
			for _, ofxTx := range stmt.BankTranList.Transactions {
				transactions = append(transactions, convertOFXTransaction(ofxTx, accountID, userID))
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			accountID := string(stmt.CCAcctFrom.AcctID)
			for _, ofxTx := range stmt.BankTranList.Transactions {
				transactions = append(transactions, convertOFXTransaction(ofxTx, accountID, userID))
			}
		}
	}

	return transactions, nil
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes common formatting issues in OFX files: mixed-case
// SEVERITY values and SGML-style tags missing their closing bracket.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

func convertOFXTransaction(ofxTx ofxgo.Transaction, accountID string, userID int64) model.Transaction {
	amount, _ := ofxTx.TrnAmt.Float64()

	name := string(ofxTx.Name)
	merchantName := name
	if ofxTx.Payee != nil && ofxTx.Payee.Name != "" {
		merchantName = string(ofxTx.Payee.Name)
	}

	providerID := string(ofxTx.FiTID)
	if providerID == "" {
		providerID = syntheticProviderID("ofx", ofxTx.DtPosted.Time, name, amount)
	} else {
		providerID = "ofx-" + providerID
	}

	var categories []string
	switch fmt.Sprintf("%v", ofxTx.TrnType) {
	case "INT":
		categories = []string{"Income", "Interest"}
	case "FEE":
		categories = []string{"Bank Fees"}
	case "ATM":
		categories = []string{"Cash & ATM"}
	}

	return model.Transaction{
		Date:         ofxTx.DtPosted.Time,
		ProviderID:   providerID,
		AccountID:    accountID,
		UserID:       userID,
		Name:         name,
		MerchantName: merchantName,
		Amount:       amount,
		Category:     categories,
	}
}
