package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"msgdeck/internal/domain/promo"
	"msgdeck/internal/shared/services/markdown"
)

// PromoDTO is the admin view of a promo code.
type PromoDTO struct {
	ID                uint             `json:"id"`
	Code              string           `json:"code"`
	Description       string           `json:"description"`
	DiscountType      string           `json:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	ApplicablePlans   []uint           `json:"applicable_plans"`
	ApplicableCycles  []string         `json:"applicable_cycles"`
	ValidFrom         time.Time        `json:"valid_from"`
	ValidUntil        time.Time        `json:"valid_until"`
	MaxUses           *int             `json:"max_uses,omitempty"`
	MaxUsesPerUser    int              `json:"max_uses_per_user"`
	CurrentUses       int              `json:"current_uses"`
	IsActive          bool             `json:"is_active"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// PublicPromoDTO carries the display fields shown on the pricing page.
type PublicPromoDTO struct {
	Code              string           `json:"code"`
	Description       string           `json:"description"`
	DescriptionHTML   string           `json:"description_html,omitempty"`
	DiscountType      string           `json:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	ApplicablePlans   []uint           `json:"applicable_plans"`
	ApplicableCycles  []string         `json:"applicable_cycles"`
	ValidUntil        time.Time        `json:"valid_until"`
}

type ValidationResultDTO struct {
	Valid   bool            `json:"valid"`
	Message string          `json:"message"`
	Promo   *PublicPromoDTO `json:"promo,omitempty"`
}

type DiscountDTO struct {
	Code           string          `json:"code"`
	PlanID         uint            `json:"plan_id"`
	BillingCycle   string          `json:"billing_cycle"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	Currency       string          `json:"currency"`
}

func cycles(p *promo.PromoCode) []string {
	out := make([]string, 0, len(p.ApplicableCycles()))
	for _, c := range p.ApplicableCycles() {
		out = append(out, c.String())
	}
	return out
}

func plans(p *promo.PromoCode) []uint {
	if p.ApplicablePlans() == nil {
		return []uint{}
	}
	return p.ApplicablePlans()
}

func ToPromoDTO(p *promo.PromoCode) *PromoDTO {
	if p == nil {
		return nil
	}
	return &PromoDTO{
		ID:                p.ID(),
		Code:              p.Code(),
		Description:       p.Description(),
		DiscountType:      p.DiscountType().String(),
		DiscountValue:     p.DiscountValue(),
		MaxDiscountAmount: p.MaxDiscountAmount(),
		ApplicablePlans:   plans(p),
		ApplicableCycles:  cycles(p),
		ValidFrom:         p.ValidFrom(),
		ValidUntil:        p.ValidUntil(),
		MaxUses:           p.MaxUses(),
		MaxUsesPerUser:    p.MaxUsesPerUser(),
		CurrentUses:       p.CurrentUses(),
		IsActive:          p.IsActive(),
		CreatedAt:         p.CreatedAt(),
		UpdatedAt:         p.UpdatedAt(),
	}
}

func ToPromoDTOList(promos []*promo.PromoCode) []*PromoDTO {
	out := make([]*PromoDTO, 0, len(promos))
	for _, p := range promos {
		out = append(out, ToPromoDTO(p))
	}
	return out
}

func ToPublicPromoDTO(p *promo.PromoCode, md markdown.MarkdownService) *PublicPromoDTO {
	if p == nil {
		return nil
	}
	out := &PublicPromoDTO{
		Code:              p.Code(),
		Description:       p.Description(),
		DiscountType:      p.DiscountType().String(),
		DiscountValue:     p.DiscountValue(),
		MaxDiscountAmount: p.MaxDiscountAmount(),
		ApplicablePlans:   plans(p),
		ApplicableCycles:  cycles(p),
		ValidUntil:        p.ValidUntil(),
	}
	if md != nil {
		if html, err := md.ToHTMLSanitized(p.Description()); err == nil {
			out.DescriptionHTML = html
		}
	}
	return out
}

func ToPublicPromoDTOList(promos []*promo.PromoCode, md markdown.MarkdownService) []*PublicPromoDTO {
	out := make([]*PublicPromoDTO, 0, len(promos))
	for _, p := range promos {
		out = append(out, ToPublicPromoDTO(p, md))
	}
	return out
}
