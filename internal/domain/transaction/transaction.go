// Package transaction is the append-only billing ledger.
package transaction

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	vo "msgdeck/internal/domain/shared/valueobjects"
	txvo "msgdeck/internal/domain/transaction/valueobjects"
	"msgdeck/internal/shared/biztime"
	"msgdeck/internal/shared/id"
)

// Transaction is a billing ledger row. After creation only the payment status may move
// forward and refund metadata may be attached.
type Transaction struct {
	id               uint
	reference        string
	subscriptionID   uint
	userID           uint
	txType           txvo.TransactionType
	billingCycle     vo.BillingCycle
	amount           decimal.Decimal
	discountAmount   decimal.Decimal
	currency         string
	paymentMethod    string
	paymentStatus    txvo.PaymentStatus
	gatewayReference string
	invoiceNumber    string
	description      string
	metadata         map[string]any
	refundedAt       *time.Time
	refundAmount     *decimal.Decimal
	refundReason     string
	refundedBy       *uint
	createdAt        time.Time
	updatedAt        time.Time
}

type CreateParams struct {
	Reference      string
	InvoiceNumber  string
	SubscriptionID uint
	UserID         uint
	Type           txvo.TransactionType
	BillingCycle   vo.BillingCycle
	Amount         decimal.Decimal
	DiscountAmount decimal.Decimal
	Currency       string
	PaymentMethod  string
	PaymentStatus  txvo.PaymentStatus
	Description    string
	Metadata       map[string]any
}

// NewTransaction validates and builds a ledger row. Amounts are rounded to 2dp.
// REFUND rows carry a negative amount; every other type is >= 0.
func NewTransaction(p CreateParams) (*Transaction, error) {
	if p.UserID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if !p.Type.IsValid() {
		return nil, fmt.Errorf("invalid transaction type: %q", p.Type)
	}
	if err := id.ValidatePrefix(p.Reference, id.PrefixTransaction); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if p.Type == txvo.TransactionTypeRefund {
		if p.Amount.IsPositive() {
			return nil, fmt.Errorf("refund amount must be negative")
		}
	} else if p.Amount.IsNegative() {
		return nil, fmt.Errorf("amount: %w", vo.ErrNegativeAmount)
	}
	if p.DiscountAmount.IsNegative() {
		return nil, fmt.Errorf("discount: %w", vo.ErrNegativeAmount)
	}
	if p.PaymentStatus == "" {
		p.PaymentStatus = txvo.PaymentStatusPending
	}
	if !p.PaymentStatus.IsValid() || p.PaymentStatus == txvo.PaymentStatusRefunded {
		return nil, fmt.Errorf("invalid initial payment status: %q", p.PaymentStatus)
	}
	if p.BillingCycle != "" && !p.BillingCycle.IsValid() {
		return nil, fmt.Errorf("%w: %q", vo.ErrInvalidBillingCycle, p.BillingCycle)
	}

	metadata := make(map[string]any, len(p.Metadata))
	maps.Copy(metadata, p.Metadata)

	now := biztime.NowUTC()
	return &Transaction{
		reference:      p.Reference,
		subscriptionID: p.SubscriptionID,
		userID:         p.UserID,
		txType:         p.Type,
		billingCycle:   p.BillingCycle,
		amount:         vo.RoundMoney(p.Amount),
		discountAmount: vo.RoundMoney(p.DiscountAmount),
		currency:       strings.ToUpper(p.Currency),
		paymentMethod:  p.PaymentMethod,
		paymentStatus:  p.PaymentStatus,
		invoiceNumber:  p.InvoiceNumber,
		description:    p.Description,
		metadata:       metadata,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

type ReconstructParams struct {
	ID               uint
	Reference        string
	SubscriptionID   uint
	UserID           uint
	Type             txvo.TransactionType
	BillingCycle     vo.BillingCycle
	Amount           decimal.Decimal
	DiscountAmount   decimal.Decimal
	Currency         string
	PaymentMethod    string
	PaymentStatus    txvo.PaymentStatus
	GatewayReference string
	InvoiceNumber    string
	Description      string
	Metadata         map[string]any
	RefundedAt       *time.Time
	RefundAmount     *decimal.Decimal
	RefundReason     string
	RefundedBy       *uint
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func ReconstructTransaction(p ReconstructParams) (*Transaction, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("transaction ID cannot be zero")
	}
	if !p.PaymentStatus.IsValid() {
		return nil, fmt.Errorf("invalid payment status: %q", p.PaymentStatus)
	}
	metadata := p.Metadata
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Transaction{
		id:               p.ID,
		reference:        p.Reference,
		subscriptionID:   p.SubscriptionID,
		userID:           p.UserID,
		txType:           p.Type,
		billingCycle:     p.BillingCycle,
		amount:           p.Amount,
		discountAmount:   p.DiscountAmount,
		currency:         p.Currency,
		paymentMethod:    p.PaymentMethod,
		paymentStatus:    p.PaymentStatus,
		gatewayReference: p.GatewayReference,
		invoiceNumber:    p.InvoiceNumber,
		description:      p.Description,
		metadata:         metadata,
		refundedAt:       p.RefundedAt,
		refundAmount:     p.RefundAmount,
		refundReason:     p.RefundReason,
		refundedBy:       p.RefundedBy,
		createdAt:        p.CreatedAt,
		updatedAt:        p.UpdatedAt,
	}, nil
}

func (t *Transaction) ID() uint                          { return t.id }
func (t *Transaction) Reference() string                 { return t.reference }
func (t *Transaction) SubscriptionID() uint              { return t.subscriptionID }
func (t *Transaction) UserID() uint                      { return t.userID }
func (t *Transaction) Type() txvo.TransactionType        { return t.txType }
func (t *Transaction) BillingCycle() vo.BillingCycle     { return t.billingCycle }
func (t *Transaction) Amount() decimal.Decimal           { return t.amount }
func (t *Transaction) DiscountAmount() decimal.Decimal   { return t.discountAmount }
func (t *Transaction) Currency() string                  { return t.currency }
func (t *Transaction) PaymentMethod() string             { return t.paymentMethod }
func (t *Transaction) PaymentStatus() txvo.PaymentStatus { return t.paymentStatus }
func (t *Transaction) GatewayReference() string          { return t.gatewayReference }
func (t *Transaction) InvoiceNumber() string             { return t.invoiceNumber }
func (t *Transaction) Description() string               { return t.description }
func (t *Transaction) Metadata() map[string]any          { return t.metadata }
func (t *Transaction) RefundedAt() *time.Time            { return t.refundedAt }
func (t *Transaction) RefundAmount() *decimal.Decimal    { return t.refundAmount }
func (t *Transaction) RefundReason() string              { return t.refundReason }
func (t *Transaction) RefundedBy() *uint                 { return t.refundedBy }
func (t *Transaction) CreatedAt() time.Time              { return t.createdAt }
func (t *Transaction) UpdatedAt() time.Time              { return t.updatedAt }

// SetID sets the transaction ID (only for persistence layer use)
func (t *Transaction) SetID(id uint) error {
	if t.id != 0 {
		return fmt.Errorf("transaction ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("transaction ID cannot be zero")
	}
	t.id = id
	return nil
}

// BelongsTo reports whether userID owns the transaction.
func (t *Transaction) BelongsTo(userID uint) bool {
	return t.userID == userID
}

// UpdatePaymentStatus moves the status forward. An empty gatewayRef keeps the existing one.
func (t *Transaction) UpdatePaymentStatus(status txvo.PaymentStatus, gatewayRef string, now time.Time) error {
	if !t.paymentStatus.CanTransitionTo(status) {
		return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, t.paymentStatus, status)
	}
	t.paymentStatus = status
	if gatewayRef != "" {
		t.gatewayReference = gatewayRef
	}
	t.updatedAt = now.UTC()
	return nil
}

// Refund stamps refund metadata on a SUCCESS row and moves it to REFUNDED.
func (t *Transaction) Refund(amount decimal.Decimal, reason string, by uint, now time.Time) error {
	if t.paymentStatus != txvo.PaymentStatusSuccess {
		return ErrNotRefundable
	}
	amount = vo.RoundMoney(amount)
	if !amount.IsPositive() {
		return ErrInvalidRefundAmount
	}
	if amount.GreaterThan(t.amount) {
		return ErrRefundExceedsAmount
	}

	at := now.UTC()
	t.paymentStatus = txvo.PaymentStatusRefunded
	t.refundedAt = &at
	t.refundAmount = &amount
	t.refundReason = strings.TrimSpace(reason)
	if by != 0 {
		t.refundedBy = &by
	}
	t.updatedAt = at
	return nil
}

// NetAmount is the amount kept after any refund.
func (t *Transaction) NetAmount() decimal.Decimal {
	if t.refundAmount == nil {
		return t.amount
	}
	return t.amount.Sub(*t.refundAmount)
}
