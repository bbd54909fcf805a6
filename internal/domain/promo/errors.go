package promo

import "errors"

// Validation failures, in the order they are checked.
var (
	ErrPromoNotFound           = errors.New("promo code not found")
	ErrPromoInactive           = errors.New("promo code is inactive")
	ErrPromoNotYetValid        = errors.New("promo code is not yet valid")
	ErrPromoExpired            = errors.New("promo code has expired")
	ErrPromoExhausted          = errors.New("promo code usage limit reached")
	ErrPromoAlreadyUsed        = errors.New("promo code already used by this user")
	ErrPromoPlanNotApplicable  = errors.New("promo code is not applicable to this plan")
	ErrPromoCycleNotApplicable = errors.New("promo code is not applicable to this billing cycle")
)

var (
	ErrPromoCodeExists      = errors.New("promo code already exists")
	ErrInvalidPromoCode     = errors.New("promo code must be 3-32 letters, digits, dashes or underscores")
	ErrInvalidDiscountType  = errors.New("invalid discount type")
	ErrInvalidDiscountValue = errors.New("invalid discount value")
	ErrInvalidValidityRange = errors.New("valid_until must be after valid_from")
	ErrInvalidUsageCap      = errors.New("invalid usage cap")
)
