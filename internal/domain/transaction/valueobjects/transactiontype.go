package valueobjects

import (
	"fmt"
	"strings"
)

type TransactionType string

const (
	TransactionTypeNew       TransactionType = "NEW"
	TransactionTypeRenewal   TransactionType = "RENEWAL"
	TransactionTypeUpgrade   TransactionType = "UPGRADE"
	TransactionTypeDowngrade TransactionType = "DOWNGRADE"
	TransactionTypeRefund    TransactionType = "REFUND"
)

func ParseTransactionType(value string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(value)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid transaction type: %q", value)
	}
	return t, nil
}

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeNew, TransactionTypeRenewal, TransactionTypeUpgrade, TransactionTypeDowngrade, TransactionTypeRefund:
		return true
	}
	return false
}

func (t TransactionType) String() string {
	return string(t)
}
