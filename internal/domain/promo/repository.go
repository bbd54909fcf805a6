package promo

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, promo *PromoCode) error
	Update(ctx context.Context, promo *PromoCode) error
	GetByID(ctx context.Context, id uint) (*PromoCode, error)
	GetByCode(ctx context.Context, code string) (*PromoCode, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, filter Filter) ([]*PromoCode, int64, error)
	// ListBrowsable returns active, in-window codes that still have uses left.
	ListBrowsable(ctx context.Context, now time.Time) ([]*PromoCode, error)

	// IncrementUsesGuarded bumps current_uses only while under max_uses.
	// It reports false when the cap was already reached.
	IncrementUsesGuarded(ctx context.Context, id uint) (bool, error)
	CreateUsage(ctx context.Context, usage *PromoUsage) error
	CountUsagesByUser(ctx context.Context, promoCodeID, userID uint) (int64, error)
}

type Filter struct {
	IsActive *bool
	Code     string
	Page     int
	PageSize int
}
