package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	txvo "msgdeck/internal/domain/transaction/valueobjects"
)

const (
	ConfirmationImmediate = "immediate"
	ConfirmationManual    = "manual"
)

type PaymentRequest struct {
	UserID        uint
	Reference     string
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
}

type PaymentConfirmation struct {
	Status txvo.PaymentStatus
}

// PaymentConfirmer decides the initial payment status of a new charge.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, req PaymentRequest) (PaymentConfirmation, error)
}

// ImmediateConfirmer treats every charge as collected.
type ImmediateConfirmer struct{}

func (ImmediateConfirmer) Confirm(_ context.Context, _ PaymentRequest) (PaymentConfirmation, error) {
	return PaymentConfirmation{Status: txvo.PaymentStatusSuccess}, nil
}

// ManualConfirmer leaves the charge PENDING until an admin moves it forward.
type ManualConfirmer struct{}

func (ManualConfirmer) Confirm(_ context.Context, _ PaymentRequest) (PaymentConfirmation, error) {
	return PaymentConfirmation{Status: txvo.PaymentStatusPending}, nil
}

// NewPaymentConfirmer picks the confirmer for billing.payment_confirmation. Empty means immediate.
func NewPaymentConfirmer(mode string) (PaymentConfirmer, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ConfirmationImmediate:
		return ImmediateConfirmer{}, nil
	case ConfirmationManual:
		return ManualConfirmer{}, nil
	}
	return nil, fmt.Errorf("unknown payment confirmation mode %q", mode)
}
