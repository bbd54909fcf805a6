package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	usagedto "msgdeck/internal/application/usage/dto"
	"msgdeck/internal/application/usage/usecases"
	"msgdeck/internal/shared/errors"
	"msgdeck/internal/shared/logger"
	"msgdeck/internal/shared/utils"
)

type usageMeter interface {
	GetCurrentUsage(ctx context.Context, userID uint) (*usagedto.CurrentUsageDTO, error)
	CheckLimit(ctx context.Context, userID uint, resourceType string) (*usagedto.LimitCheckDTO, error)
	GetUsageHistory(ctx context.Context, userID uint, months int) ([]*usagedto.UsageDTO, error)
	IncrementUsage(ctx context.Context, cmd usecases.AdjustUsageCommand) (*usagedto.UsageDTO, error)
	DecrementUsage(ctx context.Context, cmd usecases.AdjustUsageCommand) (*usagedto.UsageDTO, error)
}

// UsageHandler serves the caller's metered usage. Internal services adjust counters on
// behalf of a user by naming user_id in the body.
type UsageHandler struct {
	meter  usageMeter
	logger logger.Interface
}

func NewUsageHandler(meter usageMeter, logger logger.Interface) *UsageHandler {
	return &UsageHandler{meter: meter, logger: logger}
}

type AdjustUsageRequest struct {
	UserID       uint   `json:"user_id"`
	ResourceType string `json:"resource_type" binding:"required"`
	Category     string `json:"category"`
	Count        int64  `json:"count" binding:"omitempty,min=1,max=1000000"`
}

// GetCurrent handles GET /usage/current
func (h *UsageHandler) GetCurrent(c *gin.Context) {
	userID, err := getUserIDFromContext(c, h.logger)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	current, err := h.meter.GetCurrentUsage(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", current)
}

// CheckLimit handles GET /usage/check-limit/:type
func (h *UsageHandler) CheckLimit(c *gin.Context) {
	userID, err := getUserIDFromContext(c, h.logger)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	check, err := h.meter.CheckLimit(c.Request.Context(), userID, c.Param("type"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", check)
}

// GetHistory handles GET /usage/history?months=
func (h *UsageHandler) GetHistory(c *gin.Context) {
	userID, err := getUserIDFromContext(c, h.logger)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	months := 0
	if raw := c.Query("months"); raw != "" {
		months, err = strconv.Atoi(raw)
		if err != nil {
			utils.ErrorResponseWithError(c, errors.NewValidationError("months must be a number"))
			return
		}
	}

	history, err := h.meter.GetUsageHistory(c.Request.Context(), userID, months)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", history)
}

// Increment handles POST /usage/increment
func (h *UsageHandler) Increment(c *gin.Context) {
	h.adjust(c, h.meter.IncrementUsage)
}

// Decrement handles POST /usage/decrement
func (h *UsageHandler) Decrement(c *gin.Context) {
	h.adjust(c, h.meter.DecrementUsage)
}

func (h *UsageHandler) adjust(c *gin.Context, apply func(context.Context, usecases.AdjustUsageCommand) (*usagedto.UsageDTO, error)) {
	callerID, err := getUserIDFromContext(c, h.logger)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req AdjustUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for usage adjustment", "user_id", callerID, "error", err)
		utils.BindErrorResponse(c, err)
		return
	}

	userID := callerID
	if req.UserID != 0 && req.UserID != callerID {
		if !actsForOthers(c) {
			utils.ErrorResponseWithError(c, errors.NewForbiddenError("cannot adjust usage of another user"))
			return
		}
		userID = req.UserID
	}

	result, err := apply(c.Request.Context(), usecases.AdjustUsageCommand{
		UserID:       userID,
		ResourceType: req.ResourceType,
		Category:     req.Category,
		Count:        req.Count,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", result)
}
