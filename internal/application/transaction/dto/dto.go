package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"msgdeck/internal/domain/transaction"
)

type TransactionDTO struct {
	ID               uint             `json:"id"`
	Reference        string           `json:"transaction_reference"`
	InvoiceNumber    string           `json:"invoice_number"`
	SubscriptionID   uint             `json:"subscription_id,omitempty"`
	UserID           uint             `json:"user_id"`
	Type             string           `json:"type"`
	BillingCycle     string           `json:"billing_cycle,omitempty"`
	Amount           decimal.Decimal  `json:"amount"`
	DiscountAmount   decimal.Decimal  `json:"discount_amount"`
	Currency         string           `json:"currency"`
	PaymentMethod    string           `json:"payment_method,omitempty"`
	PaymentStatus    string           `json:"payment_status"`
	GatewayReference string           `json:"gateway_reference,omitempty"`
	Description      string           `json:"description,omitempty"`
	Metadata         map[string]any   `json:"metadata,omitempty"`
	RefundedAt       *time.Time       `json:"refunded_at,omitempty"`
	RefundAmount     *decimal.Decimal `json:"refund_amount,omitempty"`
	RefundReason     string           `json:"refund_reason,omitempty"`
	RefundedBy       *uint            `json:"refunded_by,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

type RevenueBucketDTO struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
	Count  int64           `json:"count"`
}

// MonthlyRevenueDTO is one point of the by_month series.
type MonthlyRevenueDTO struct {
	Month    string          `json:"month"`
	Revenue  decimal.Decimal `json:"revenue"`
	Refunded decimal.Decimal `json:"refunded"`
	Net      decimal.Decimal `json:"net"`
	Count    int64           `json:"count"`
}

type RevenueStatsDTO struct {
	From             time.Time           `json:"from"`
	To               time.Time           `json:"to"`
	TotalRevenue     decimal.Decimal     `json:"total_revenue"`
	TotalRefunded    decimal.Decimal     `json:"total_refunded"`
	NetRevenue       decimal.Decimal     `json:"net_revenue"`
	TransactionCount int64               `json:"transaction_count"`
	ByType           []RevenueBucketDTO  `json:"by_type"`
	ByBillingCycle   []RevenueBucketDTO  `json:"by_billing_cycle"`
	ByMonth          []MonthlyRevenueDTO `json:"by_month"`
}

func ToTransactionDTO(t *transaction.Transaction) *TransactionDTO {
	if t == nil {
		return nil
	}
	return &TransactionDTO{
		ID:               t.ID(),
		Reference:        t.Reference(),
		InvoiceNumber:    t.InvoiceNumber(),
		SubscriptionID:   t.SubscriptionID(),
		UserID:           t.UserID(),
		Type:             t.Type().String(),
		BillingCycle:     t.BillingCycle().String(),
		Amount:           t.Amount(),
		DiscountAmount:   t.DiscountAmount(),
		Currency:         t.Currency(),
		PaymentMethod:    t.PaymentMethod(),
		PaymentStatus:    t.PaymentStatus().String(),
		GatewayReference: t.GatewayReference(),
		Description:      t.Description(),
		Metadata:         t.Metadata(),
		RefundedAt:       t.RefundedAt(),
		RefundAmount:     t.RefundAmount(),
		RefundReason:     t.RefundReason(),
		RefundedBy:       t.RefundedBy(),
		CreatedAt:        t.CreatedAt(),
		UpdatedAt:        t.UpdatedAt(),
	}
}

func ToTransactionDTOList(txs []*transaction.Transaction) []*TransactionDTO {
	out := make([]*TransactionDTO, 0, len(txs))
	for _, t := range txs {
		out = append(out, ToTransactionDTO(t))
	}
	return out
}

func ToRevenueBucketDTOs(buckets []transaction.RevenueBucket) []RevenueBucketDTO {
	out := make([]RevenueBucketDTO, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, RevenueBucketDTO{Key: b.Key, Amount: b.Amount, Count: b.Count})
	}
	return out
}
