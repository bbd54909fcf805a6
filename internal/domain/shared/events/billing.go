package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeSubscriptionCreated   = "subscription.created"
	TypeSubscriptionCancelled = "subscription.cancelled"
	TypeSubscriptionExpired   = "subscription.expired"
	TypeSubscriptionRenewed   = "subscription.renewed"
	TypePromoRedeemed         = "promo.redeemed"
	TypeTransactionUpdated    = "transaction.status_changed"
	TypeTransactionRefunded   = "transaction.refunded"
)

type SubscriptionCreated struct {
	BaseEvent
	UserID         uint            `json:"user_id"`
	PlanID         uint            `json:"plan_id"`
	BillingCycle   string          `json:"billing_cycle"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	Currency       string          `json:"currency"`
	TransactionRef string          `json:"transaction_reference"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
}

func NewSubscriptionCreated(subscriptionID, userID, planID uint, cycle string, amount decimal.Decimal, currency, txRef string, endDate *time.Time, at time.Time) SubscriptionCreated {
	return SubscriptionCreated{
		BaseEvent:      newBaseEvent(TypeSubscriptionCreated, subscriptionID, at),
		UserID:         userID,
		PlanID:         planID,
		BillingCycle:   cycle,
		AmountPaid:     amount,
		Currency:       currency,
		TransactionRef: txRef,
		EndDate:        endDate,
	}
}

// SubscriptionStatusChanged covers cancellation, expiry and renewal.
type SubscriptionStatusChanged struct {
	BaseEvent
	UserID  uint       `json:"user_id"`
	Status  string     `json:"status"`
	Reason  string     `json:"reason,omitempty"`
	EndDate *time.Time `json:"end_date,omitempty"`
}

func NewSubscriptionStatusChanged(eventType string, subscriptionID, userID uint, status, reason string, endDate *time.Time, at time.Time) SubscriptionStatusChanged {
	return SubscriptionStatusChanged{
		BaseEvent: newBaseEvent(eventType, subscriptionID, at),
		UserID:    userID,
		Status:    status,
		Reason:    reason,
		EndDate:   endDate,
	}
}

type PromoRedeemed struct {
	BaseEvent
	Code           string          `json:"code"`
	UserID         uint            `json:"user_id"`
	SubscriptionID uint            `json:"subscription_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

func NewPromoRedeemed(promoID uint, code string, userID, subscriptionID uint, discount decimal.Decimal, at time.Time) PromoRedeemed {
	return PromoRedeemed{
		BaseEvent:      newBaseEvent(TypePromoRedeemed, promoID, at),
		Code:           code,
		UserID:         userID,
		SubscriptionID: subscriptionID,
		DiscountAmount: discount,
	}
}

// TransactionChanged covers payment status moves and refunds.
type TransactionChanged struct {
	BaseEvent
	Reference     string           `json:"reference"`
	UserID        uint             `json:"user_id"`
	PaymentStatus string           `json:"payment_status"`
	RefundAmount  *decimal.Decimal `json:"refund_amount,omitempty"`
}

func NewTransactionChanged(eventType string, transactionID uint, reference string, userID uint, status string, refund *decimal.Decimal, at time.Time) TransactionChanged {
	return TransactionChanged{
		BaseEvent:     newBaseEvent(eventType, transactionID, at),
		Reference:     reference,
		UserID:        userID,
		PaymentStatus: status,
		RefundAmount:  refund,
	}
}
