package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	plandto "msgdeck/internal/application/plan/dto"
	"msgdeck/internal/application/plan/usecases"
	"msgdeck/internal/domain/plan"
	"msgdeck/internal/shared/logger"
	"msgdeck/internal/shared/services/markdown"
	"msgdeck/internal/shared/utils"
)

type PlanHandler struct {
	catalog  planCatalog
	markdown markdown.MarkdownService
	logger   logger.Interface
}

func NewPlanHandler(catalog planCatalog, md markdown.MarkdownService, logger logger.Interface) *PlanHandler {
	return &PlanHandler{
		catalog:  catalog,
		markdown: md,
		logger:   logger,
	}
}

// CreatePlanRequest keys prices by billing cycle and limits by resource type; -1 is unlimited.
type CreatePlanRequest struct {
	Code          string                     `json:"code" binding:"required,max=64"`
	Name          string                     `json:"name" binding:"required,max=128"`
	Description   string                     `json:"description"`
	Family        string                     `json:"family" binding:"max=64"`
	Prices        map[string]decimal.Decimal `json:"prices" binding:"required,min=1"`
	Limits        map[string]int64           `json:"limits"`
	Features      map[string]bool            `json:"features"`
	MessagePrices map[string]decimal.Decimal `json:"message_prices"`
	IsActive      *bool                      `json:"is_active"`
	IsVisible     *bool                      `json:"is_visible"`
	SortOrder     int                        `json:"sort_order"`
}

type UpdatePlanRequest struct {
	Name          *string                    `json:"name" binding:"omitempty,min=1,max=128"`
	Description   *string                    `json:"description"`
	Family        *string                    `json:"family" binding:"omitempty,max=64"`
	Prices        map[string]decimal.Decimal `json:"prices"`
	Limits        map[string]int64           `json:"limits"`
	Features      map[string]bool            `json:"features"`
	MessagePrices map[string]decimal.Decimal `json:"message_prices"`
	IsActive      *bool                      `json:"is_active"`
	IsVisible     *bool                      `json:"is_visible"`
	SortOrder     *int                       `json:"sort_order"`
}

// ListPublicPlans handles GET /plans
func (h *PlanHandler) ListPublicPlans(c *gin.Context) {
	plans, err := h.catalog.ListActivePlans(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", plandto.ToPlanDTOList(plans, h.markdown))
}

// GetPlan handles GET /plans/:id
func (h *PlanHandler) GetPlan(c *gin.Context) {
	planID, err := utils.ParseUintParam(c, "id", "plan")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	p, err := h.catalog.FindByID(c.Request.Context(), planID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", plandto.ToPlanDTO(p, h.markdown))
}

// GetPlanByCode handles GET /plans/code/:code
func (h *PlanHandler) GetPlanByCode(c *gin.Context) {
	p, err := h.catalog.FindByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", plandto.ToPlanDTO(p, h.markdown))
}

// GetPricing handles GET /plans/:id/pricing?billingCycle=
func (h *PlanHandler) GetPricing(c *gin.Context) {
	planID, err := utils.ParseUintParam(c, "id", "plan")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	cycle := c.Query("billingCycle")
	if cycle == "" {
		cycle = c.Query("billing_cycle")
	}

	pricing, err := h.catalog.GetPricing(c.Request.Context(), planID, cycle)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", pricing)
}

// ListPlans handles GET /admin/plans, including inactive and hidden plans.
func (h *PlanHandler) ListPlans(c *gin.Context) {
	p := utils.ParsePagination(c)
	filter := plan.Filter{
		Family:   c.Query("family"),
		Page:     p.Page,
		PageSize: p.PageSize,
	}
	if v, ok := parseBoolQuery(c, "is_active"); ok {
		filter.IsActive = &v
	}
	if v, ok := parseBoolQuery(c, "is_visible"); ok {
		filter.IsVisible = &v
	}

	plans, total, err := h.catalog.ListPlans(c.Request.Context(), filter)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.ListSuccessResponse(c, plandto.ToPlanDTOList(plans, h.markdown), total, p.Page, p.PageSize)
}

// CreatePlan handles POST /plans
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for create plan", "error", err)
		utils.BindErrorResponse(c, err)
		return
	}

	p, err := h.catalog.CreatePlan(c.Request.Context(), usecases.CreatePlanCommand{
		Code:          req.Code,
		Name:          req.Name,
		Description:   req.Description,
		Family:        req.Family,
		Prices:        req.Prices,
		Limits:        req.Limits,
		Features:      req.Features,
		MessagePrices: req.MessagePrices,
		IsActive:      boolOr(req.IsActive, true),
		IsVisible:     boolOr(req.IsVisible, true),
		SortOrder:     req.SortOrder,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, plandto.ToPlanDTO(p, h.markdown), "Plan created successfully")
}

// UpdatePlan handles PUT /plans/:id
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	planID, err := utils.ParseUintParam(c, "id", "plan")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for update plan",
			"plan_id", planID,
			"error", err)
		utils.BindErrorResponse(c, err)
		return
	}

	p, err := h.catalog.UpdatePlan(c.Request.Context(), usecases.UpdatePlanCommand{
		ID:            planID,
		Name:          req.Name,
		Description:   req.Description,
		Family:        req.Family,
		Prices:        req.Prices,
		Limits:        req.Limits,
		Features:      req.Features,
		MessagePrices: req.MessagePrices,
		IsActive:      req.IsActive,
		IsVisible:     req.IsVisible,
		SortOrder:     req.SortOrder,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Plan updated successfully", plandto.ToPlanDTO(p, h.markdown))
}

func parseBoolQuery(c *gin.Context, key string) (bool, bool) {
	raw, ok := c.GetQuery(key)
	if !ok {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}
