package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	promodto "msgdeck/internal/application/promo/dto"
	"msgdeck/internal/application/promo/usecases"
	"msgdeck/internal/domain/promo"
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/shared/errors"
	"msgdeck/internal/shared/logger"
	"msgdeck/internal/shared/services/markdown"
	"msgdeck/internal/shared/utils"
)

type promoEngine interface {
	Validate(ctx context.Context, code string, userID, planID uint, cycle vo.BillingCycle) (*usecases.ValidationResult, error)
	Quote(ctx context.Context, cmd usecases.QuoteCommand) (*promodto.DiscountDTO, error)
	ListActive(ctx context.Context) ([]*promo.PromoCode, error)
	CreatePromo(ctx context.Context, cmd usecases.CreatePromoCommand) (*promo.PromoCode, error)
	UpdatePromo(ctx context.Context, cmd usecases.UpdatePromoCommand) (*promo.PromoCode, error)
	DeletePromo(ctx context.Context, id uint) error
	GetPromo(ctx context.Context, id uint) (*promo.PromoCode, error)
	ListPromos(ctx context.Context, filter promo.Filter) ([]*promo.PromoCode, int64, error)
}

type PromoHandler struct {
	engine   promoEngine
	markdown markdown.MarkdownService
	logger   logger.Interface
}

func NewPromoHandler(engine promoEngine, md markdown.MarkdownService, logger logger.Interface) *PromoHandler {
	return &PromoHandler{engine: engine, markdown: md, logger: logger}
}

type ValidatePromoRequest struct {
	Code         string `json:"code" binding:"required,max=64"`
	PlanID       uint   `json:"plan_id" binding:"required"`
	BillingCycle string `json:"billing_cycle" binding:"required"`
}

type CreatePromoRequest struct {
	Code              string           `json:"code" binding:"required,max=64"`
	Description       string           `json:"description"`
	DiscountType      string           `json:"discount_type" binding:"required"`
	DiscountValue     decimal.Decimal  `json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount"`
	ApplicablePlans   []uint           `json:"applicable_plans"`
	ApplicableCycles  []string         `json:"applicable_cycles"`
	ValidFrom         time.Time        `json:"valid_from" binding:"required"`
	ValidUntil        time.Time        `json:"valid_until" binding:"required"`
	MaxUses           *int             `json:"max_uses" binding:"omitempty,min=1"`
	MaxUsesPerUser    int              `json:"max_uses_per_user" binding:"omitempty,min=0"`
	IsActive          *bool            `json:"is_active"`
}

// UpdatePromoRequest leaves absent fields unchanged. clear_max_discount and
// clear_max_uses remove the respective caps.
type UpdatePromoRequest struct {
	Description       *string          `json:"description"`
	DiscountType      *string          `json:"discount_type"`
	DiscountValue     *decimal.Decimal `json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount"`
	ClearMaxDiscount  bool             `json:"clear_max_discount"`
	ApplicablePlans   []uint           `json:"applicable_plans"`
	ApplicableCycles  []string         `json:"applicable_cycles"`
	ValidFrom         *time.Time       `json:"valid_from"`
	ValidUntil        *time.Time       `json:"valid_until"`
	MaxUses           *int             `json:"max_uses" binding:"omitempty,min=1"`
	ClearMaxUses      bool             `json:"clear_max_uses"`
	MaxUsesPerUser    *int             `json:"max_uses_per_user" binding:"omitempty,min=0"`
	IsActive          *bool            `json:"is_active"`
}

// ListActive handles GET /promo-codes/active
func (h *PromoHandler) ListActive(c *gin.Context) {
	promos, err := h.engine.ListActive(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", promodto.ToPublicPromoDTOList(promos, h.markdown))
}

// Validate handles POST /promo-codes/validate. An unusable code is a 200 with
// valid=false and the reason.
func (h *PromoHandler) Validate(c *gin.Context) {
	userID, err := getUserIDFromContext(c, h.logger)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req ValidatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindErrorResponse(c, err)
		return
	}
	cycle, err := vo.ParseBillingCycle(req.BillingCycle)
	if err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid billing cycle", "must be one of MONTHLY, YEARLY, LIFETIME"))
		return
	}

	result, err := h.engine.Validate(c.Request.Context(), req.Code, userID, req.PlanID, cycle)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	out := promodto.ValidationResultDTO{Valid: result.Valid, Message: result.Message}
	if result.Valid {
		out.Promo = promodto.ToPublicPromoDTO(result.Promo, h.markdown)
	}
	utils.SuccessResponse(c, http.StatusOK, "", out)
}

// CalculateDiscount handles POST /promo-codes/calculate-discount
func (h *PromoHandler) CalculateDiscount(c *gin.Context) {
	userID, err := getUserIDFromContext(c, h.logger)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req ValidatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindErrorResponse(c, err)
		return
	}

	discount, err := h.engine.Quote(c.Request.Context(), usecases.QuoteCommand{
		Code:         req.Code,
		UserID:       userID,
		PlanID:       req.PlanID,
		BillingCycle: req.BillingCycle,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", discount)
}

// ListPromos handles GET /promo-codes
func (h *PromoHandler) ListPromos(c *gin.Context) {
	p := utils.ParsePagination(c)
	filter := promo.Filter{Code: c.Query("code"), Page: p.Page, PageSize: p.PageSize}
	if v, ok := parseBoolQuery(c, "is_active"); ok {
		filter.IsActive = &v
	}

	promos, total, err := h.engine.ListPromos(c.Request.Context(), filter)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.ListSuccessResponse(c, promodto.ToPromoDTOList(promos), total, p.Page, p.PageSize)
}

// GetPromo handles GET /promo-codes/:id
func (h *PromoHandler) GetPromo(c *gin.Context) {
	promoID, err := utils.ParseUintParam(c, "id", "promo code")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	p, err := h.engine.GetPromo(c.Request.Context(), promoID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", promodto.ToPromoDTO(p))
}

// CreatePromo handles POST /promo-codes
func (h *PromoHandler) CreatePromo(c *gin.Context) {
	var req CreatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for create promo code", "error", err)
		utils.BindErrorResponse(c, err)
		return
	}

	p, err := h.engine.CreatePromo(c.Request.Context(), usecases.CreatePromoCommand{
		Code:              req.Code,
		Description:       req.Description,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		MaxDiscountAmount: req.MaxDiscountAmount,
		ApplicablePlans:   req.ApplicablePlans,
		ApplicableCycles:  req.ApplicableCycles,
		ValidFrom:         req.ValidFrom,
		ValidUntil:        req.ValidUntil,
		MaxUses:           req.MaxUses,
		MaxUsesPerUser:    req.MaxUsesPerUser,
		IsActive:          boolOr(req.IsActive, true),
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.CreatedResponse(c, promodto.ToPromoDTO(p), "Promo code created successfully")
}

// UpdatePromo handles PUT /promo-codes/:id
func (h *PromoHandler) UpdatePromo(c *gin.Context) {
	promoID, err := utils.ParseUintParam(c, "id", "promo code")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req UpdatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for update promo code", "promo_id", promoID, "error", err)
		utils.BindErrorResponse(c, err)
		return
	}

	p, err := h.engine.UpdatePromo(c.Request.Context(), usecases.UpdatePromoCommand{
		ID:                promoID,
		Description:       req.Description,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		MaxDiscountAmount: req.MaxDiscountAmount,
		ClearMaxDiscount:  req.ClearMaxDiscount,
		ApplicablePlans:   req.ApplicablePlans,
		ApplicableCycles:  req.ApplicableCycles,
		ValidFrom:         req.ValidFrom,
		ValidUntil:        req.ValidUntil,
		MaxUses:           req.MaxUses,
		ClearMaxUses:      req.ClearMaxUses,
		MaxUsesPerUser:    req.MaxUsesPerUser,
		IsActive:          req.IsActive,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Promo code updated successfully", promodto.ToPromoDTO(p))
}

// DeletePromo handles DELETE /promo-codes/:id. The code is deactivated, not removed.
func (h *PromoHandler) DeletePromo(c *gin.Context) {
	promoID, err := utils.ParseUintParam(c, "id", "promo code")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	if err := h.engine.DeletePromo(c.Request.Context(), promoID); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Promo code deactivated", nil)
}
