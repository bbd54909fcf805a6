package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	billingusecases "msgdeck/internal/application/billing/usecases"
	subdto "msgdeck/internal/application/subscription/dto"
	"msgdeck/internal/application/subscription/usecases"
	txdto "msgdeck/internal/application/transaction/dto"
	"msgdeck/internal/shared/logger"
	"msgdeck/internal/shared/utils"
)

// SubscriptionHandler handles purchases and the subscription lifecycle.
type SubscriptionHandler struct {
	subscribe subscribeUseCase
	current   currentSubscriptionUseCase
	ledger    subscriptionLedger
	logger    logger.Interface
}

func NewSubscriptionHandler(
	subscribe subscribeUseCase,
	current currentSubscriptionUseCase,
	ledger subscriptionLedger,
	logger logger.Interface,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscribe: subscribe,
		current:   current,
		ledger:    ledger,
		logger:    logger,
	}
}

type SubscribeRequest struct {
	PlanID        uint   `json:"plan_id" binding:"required"`
	BillingCycle  string `json:"billing_cycle" binding:"required"`
	PromoCode     string `json:"promo_code" binding:"omitempty,max=64"`
	PaymentMethod string `json:"payment_method" binding:"omitempty,max=64"`
}

type CancelSubscriptionRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type AutoRenewRequest struct {
	AutoRenew *bool `json:"auto_renew" binding:"required"`
}

type RenewSubscriptionRequest struct {
	EndDate         time.Time       `json:"end_date" binding:"required"`
	NextBillingDate *time.Time      `json:"next_billing_date"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	PaymentMethod   string          `json:"payment_method" binding:"omitempty,max=64"`
}

type RenewalResponse struct {
	Subscription *subdto.SubscriptionDTO `json:"subscription"`
	Transaction  *txdto.TransactionDTO   `json:"transaction"`
}

// Subscribe handles POST /subscriptions/subscribe
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	userID, err := getUserIDFromContext(c, h.logger)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for subscribe", "user_id", userID, "error", err)
		utils.BindErrorResponse(c, err)
		return
	}

	result, err := h.subscribe.Execute(c.Request.Context(), billingusecases.SubscribeCommand{
		UserID:        userID,
		PlanID:        req.PlanID,
		BillingCycle:  req.BillingCycle,
		PromoCode:     req.PromoCode,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "Subscription created successfully")
}

// GetCurrent handles GET /subscriptions/current
func (h *SubscriptionHandler) GetCurrent(c *gin.Context) {
	userID, err := getUserIDFromContext(c, h.logger)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	current, err := h.current.Execute(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	if current == nil {
		utils.SuccessResponse(c, http.StatusOK, "No active subscription", nil)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", current)
}

// ListHistory handles GET /subscriptions/history
func (h *SubscriptionHandler) ListHistory(c *gin.Context) {
	userID, err := getUserIDFromContext(c, h.logger)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	p := utils.ParsePagination(c)
	subs, total, err := h.ledger.ListHistory(c.Request.Context(), userID, p.Page, p.PageSize)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.ListSuccessResponse(c, subdto.ToSubscriptionDTOList(subs), total, p.Page, p.PageSize)
}

// Cancel handles POST /subscriptions/:id/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, err := getUserIDFromContext(c, h.logger)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	subscriptionID, err := utils.ParseUintParam(c, "id", "subscription")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req CancelSubscriptionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BindErrorResponse(c, err)
			return
		}
	}

	sub, err := h.ledger.Cancel(c.Request.Context(), usecases.CancelCommand{
		ID:      subscriptionID,
		Reason:  req.Reason,
		By:      userID,
		IsAdmin: isAdmin(c),
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Subscription cancelled", subdto.ToSubscriptionDTO(sub))
}

// SetAutoRenew handles PUT /subscriptions/:id/auto-renew
func (h *SubscriptionHandler) SetAutoRenew(c *gin.Context) {
	userID, err := getUserIDFromContext(c, h.logger)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	subscriptionID, err := utils.ParseUintParam(c, "id", "subscription")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req AutoRenewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindErrorResponse(c, err)
		return
	}

	sub, err := h.ledger.ToggleAutoRenew(c.Request.Context(), subscriptionID, userID, *req.AutoRenew)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Auto-renew updated", subdto.ToSubscriptionDTO(sub))
}

// Renew handles POST /subscriptions/:id/renew
func (h *SubscriptionHandler) Renew(c *gin.Context) {
	adminID, err := getUserIDFromContext(c, h.logger)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	subscriptionID, err := utils.ParseUintParam(c, "id", "subscription")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req RenewSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for renew", "subscription_id", subscriptionID, "error", err)
		utils.BindErrorResponse(c, err)
		return
	}

	sub, tx, err := h.ledger.Renew(c.Request.Context(), usecases.RenewCommand{
		ID:              subscriptionID,
		NewEndDate:      req.EndDate,
		NextBillingDate: req.NextBillingDate,
		AmountPaid:      req.AmountPaid,
		PaymentMethod:   req.PaymentMethod,
		By:              adminID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Subscription renewed", RenewalResponse{
		Subscription: subdto.ToSubscriptionDTO(sub),
		Transaction:  txdto.ToTransactionDTO(tx),
	})
}
