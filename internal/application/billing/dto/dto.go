package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscribeResult is returned by a successful purchase.
type SubscribeResult struct {
	SubscriptionID       uint            `json:"subscription_id"`
	TransactionID        uint            `json:"transaction_id"`
	TransactionReference string          `json:"transaction_reference"`
	InvoiceNumber        string          `json:"invoice_number"`
	PlanName             string          `json:"plan_name"`
	BillingCycle         string          `json:"billing_cycle"`
	OriginalAmount       decimal.Decimal `json:"original_amount"`
	DiscountAmount       decimal.Decimal `json:"discount_amount"`
	FinalAmount          decimal.Decimal `json:"final_amount"`
	Currency             string          `json:"currency"`
	PromoCode            string          `json:"promo_code,omitempty"`
	StartDate            time.Time       `json:"start_date"`
	EndDate              *time.Time      `json:"end_date"`
	NextBillingDate      *time.Time      `json:"next_billing_date"`
	Status               string          `json:"status"`
	PaymentStatus        string          `json:"payment_status"`
}
