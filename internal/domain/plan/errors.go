package plan

import "errors"

var (
	ErrPlanNotFound      = errors.New("plan not found")
	ErrPlanInactive      = errors.New("plan is not active")
	ErrPlanCodeExists    = errors.New("plan code already exists")
	ErrInvalidPlanCode   = errors.New("plan code must be a lower-case slug")
	ErrPriceNotAvailable = errors.New("plan is not sold on this billing cycle")
	ErrNoPrices          = errors.New("plan needs at least one price")
)
