package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentStatus_ForwardOnly(t *testing.T) {
	all := []PaymentStatus{PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusRefunded}
	allowed := map[[2]PaymentStatus]bool{
		{PaymentStatusPending, PaymentStatusSuccess}:  true,
		{PaymentStatusPending, PaymentStatusFailed}:   true,
		{PaymentStatusSuccess, PaymentStatusRefunded}: true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]PaymentStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestParse(t *testing.T) {
	s, err := ParsePaymentStatus("success")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusSuccess, s)
	_, err = ParsePaymentStatus("paid")
	assert.Error(t, err)

	typ, err := ParseTransactionType(" renewal ")
	require.NoError(t, err)
	assert.Equal(t, TransactionTypeRenewal, typ)
	_, err = ParseTransactionType("chargeback")
	assert.Error(t, err)
}
