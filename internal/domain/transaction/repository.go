package transaction

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	vo "msgdeck/internal/domain/shared/valueobjects"
	txvo "msgdeck/internal/domain/transaction/valueobjects"
)

type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	// Update persists payment status, gateway reference and refund metadata only.
	Update(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id uint) (*Transaction, error)
	GetByReference(ctx context.Context, reference string) (*Transaction, error)
	List(ctx context.Context, filter Filter) ([]*Transaction, int64, error)

	// Revenue aggregates over rows created in [from, to). Collected rows are SUCCESS
	// and REFUNDED: a refunded payment was still collected before it was paid back.
	RevenueTotals(ctx context.Context, from, to time.Time) (RevenueTotals, error)
	RevenueByType(ctx context.Context, from, to time.Time) ([]RevenueBucket, error)
	RevenueByBillingCycle(ctx context.Context, from, to time.Time) ([]RevenueBucket, error)
	// CollectedPoints returns one point per collected row, for the monthly series.
	CollectedPoints(ctx context.Context, from, to time.Time) ([]RevenuePoint, error)
}

type Filter struct {
	UserID        *uint
	Type          *txvo.TransactionType
	PaymentStatus *txvo.PaymentStatus
	BillingCycle  *vo.BillingCycle
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
}

type RevenueTotals struct {
	Collected decimal.Decimal
	Refunded  decimal.Decimal
	Count     int64
}

type RevenueBucket struct {
	Key    string
	Amount decimal.Decimal
	Count  int64
}

type RevenuePoint struct {
	CreatedAt    time.Time
	Amount       decimal.Decimal
	RefundAmount decimal.Decimal
}
