package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"msgdeck/internal/domain/plan"
	"msgdeck/internal/shared/services/markdown"
)

type PlanDTO struct {
	ID              uint                       `json:"id"`
	Code            string                     `json:"code"`
	Name            string                     `json:"name"`
	Description     string                     `json:"description"`
	DescriptionHTML string                     `json:"description_html,omitempty"`
	Family          string                     `json:"family"`
	FamilyLabel     string                     `json:"family_label,omitempty"`
	Prices          map[string]decimal.Decimal `json:"prices"`
	// Limits uses -1 for unlimited.
	Limits        map[string]int64           `json:"limits"`
	Features      map[string]bool            `json:"features"`
	MessagePrices map[string]decimal.Decimal `json:"message_prices"`
	IsActive      bool                       `json:"is_active"`
	IsVisible     bool                       `json:"is_visible"`
	SortOrder     int                        `json:"sort_order"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

type PricingDTO struct {
	PlanID       uint            `json:"plan_id"`
	PlanName     string          `json:"plan_name"`
	BillingCycle string          `json:"billing_cycle"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
}

var titleCaser = cases.Title(language.English)

// FamilyLabel turns a family tag such as "growth-team" into "Growth Team".
func FamilyLabel(family string) string {
	if family == "" {
		return ""
	}
	words := make([]rune, 0, len(family))
	for _, r := range family {
		if r == '-' || r == '_' {
			r = ' '
		}
		words = append(words, r)
	}
	return titleCaser.String(string(words))
}

// ToPlanDTO converts a plan. md may be nil, in which case no HTML is rendered.
func ToPlanDTO(p *plan.Plan, md markdown.MarkdownService) *PlanDTO {
	if p == nil {
		return nil
	}

	messagePrices := make(map[string]decimal.Decimal, len(p.MessagePrices()))
	for category, price := range p.MessagePrices() {
		messagePrices[string(category)] = price
	}

	out := &PlanDTO{
		ID:            p.ID(),
		Code:          p.Code(),
		Name:          p.Name(),
		Description:   p.Description(),
		Family:        p.Family(),
		FamilyLabel:   FamilyLabel(p.Family()),
		Prices:        p.Prices().Wire(),
		Limits:        p.Limits().Wire(),
		Features:      p.Features(),
		MessagePrices: messagePrices,
		IsActive:      p.IsActive(),
		IsVisible:     p.IsVisible(),
		SortOrder:     p.SortOrder(),
		CreatedAt:     p.CreatedAt(),
		UpdatedAt:     p.UpdatedAt(),
	}
	if md != nil {
		if html, err := md.ToHTMLSanitized(p.Description()); err == nil {
			out.DescriptionHTML = html
		}
	}
	return out
}

func ToPlanDTOList(plans []*plan.Plan, md markdown.MarkdownService) []*PlanDTO {
	out := make([]*PlanDTO, 0, len(plans))
	for _, p := range plans {
		out = append(out, ToPlanDTO(p, md))
	}
	return out
}
