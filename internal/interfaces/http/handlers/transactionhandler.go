package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	txdto "msgdeck/internal/application/transaction/dto"
	"msgdeck/internal/application/transaction/usecases"
	"msgdeck/internal/domain/transaction"
	"msgdeck/internal/shared/biztime"
	"msgdeck/internal/shared/errors"
	"msgdeck/internal/shared/logger"
	"msgdeck/internal/shared/utils"
)

type transactionLog interface {
	List(ctx context.Context, q usecases.ListQuery) ([]*transaction.Transaction, int64, error)
	Get(ctx context.Context, txID, userID uint, isAdmin bool) (*transaction.Transaction, error)
	RevenueStats(ctx context.Context, from, to time.Time) (*txdto.RevenueStatsDTO, error)
	UpdatePaymentStatus(ctx context.Context, cmd usecases.UpdatePaymentStatusCommand) (*transaction.Transaction, error)
	Refund(ctx context.Context, cmd usecases.RefundCommand) (*transaction.Transaction, error)
}

// revenueWindowMonths is the default look-back of the revenue report when from is omitted.
const revenueWindowMonths = 12

type TransactionHandler struct {
	txLog  transactionLog
	logger logger.Interface
}

func NewTransactionHandler(txLog transactionLog, logger logger.Interface) *TransactionHandler {
	return &TransactionHandler{txLog: txLog, logger: logger}
}

type UpdatePaymentStatusRequest struct {
	Status           string `json:"status" binding:"required"`
	GatewayReference string `json:"gateway_reference" binding:"max=128"`
}

type RefundTransactionRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" binding:"required,max=500"`
}

// ListTransactions handles GET /transactions. Admins may pass user_id to look at
// one customer; everyone else only sees their own rows.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	userID, err := getUserIDFromContext(c, h.logger)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	p := utils.ParsePagination(c)
	q := usecases.ListQuery{
		RequesterID:  userID,
		IsAdmin:      isAdmin(c),
		Type:         c.Query("type"),
		Status:       c.Query("status"),
		BillingCycle: c.Query("billing_cycle"),
		Page:         p.Page,
		PageSize:     p.PageSize,
	}

	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			utils.ErrorResponseWithError(c, errors.NewValidationError("invalid user_id"))
			return
		}
		uid := uint(id)
		q.UserID = &uid
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	q.From, q.To = from, to

	txs, total, err := h.txLog.List(c.Request.Context(), q)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.ListSuccessResponse(c, txdto.ToTransactionDTOList(txs), total, p.Page, p.PageSize)
}

// GetTransaction handles GET /transactions/:id
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, err := getUserIDFromContext(c, h.logger)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	txID, err := utils.ParseUintParam(c, "id", "transaction")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	tx, err := h.txLog.Get(c.Request.Context(), txID, userID, isAdmin(c))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", txdto.ToTransactionDTO(tx))
}

// RevenueStats handles GET /transactions/stats/revenue?from=&to=
func (h *TransactionHandler) RevenueStats(c *gin.Context) {
	fromPtr, toPtr, err := parseDateRange(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	now := biztime.NowUTC()
	to := now
	if toPtr != nil {
		to = *toPtr
	}
	from := biztime.StartOfMonthUTC(now.Year(), now.Month()).AddDate(0, -(revenueWindowMonths - 1), 0)
	if fromPtr != nil {
		from = *fromPtr
	}

	stats, err := h.txLog.RevenueStats(c.Request.Context(), from, to)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", stats)
}

// UpdatePaymentStatus handles PUT /transactions/:id/status
func (h *TransactionHandler) UpdatePaymentStatus(c *gin.Context) {
	txID, err := utils.ParseUintParam(c, "id", "transaction")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for payment status update", "transaction_id", txID, "error", err)
		utils.BindErrorResponse(c, err)
		return
	}

	tx, err := h.txLog.UpdatePaymentStatus(c.Request.Context(), usecases.UpdatePaymentStatusCommand{
		ID:               txID,
		Status:           req.Status,
		GatewayReference: req.GatewayReference,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Payment status updated", txdto.ToTransactionDTO(tx))
}

// Refund handles POST /transactions/:id/refund. A zero amount refunds the full charge.
func (h *TransactionHandler) Refund(c *gin.Context) {
	adminID, err := getUserIDFromContext(c, h.logger)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	txID, err := utils.ParseUintParam(c, "id", "transaction")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req RefundTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for refund", "transaction_id", txID, "error", err)
		utils.BindErrorResponse(c, err)
		return
	}

	tx, err := h.txLog.Refund(c.Request.Context(), usecases.RefundCommand{
		ID:     txID,
		Amount: req.Amount,
		Reason: req.Reason,
		By:     adminID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	h.logger.Infow("transaction refunded", "transaction_id", txID, "admin_id", adminID)
	utils.SuccessResponse(c, http.StatusOK, "Transaction refunded", txdto.ToTransactionDTO(tx))
}

// parseDateRange reads from/to as YYYY-MM-DD in the business timezone. to is
// inclusive, so the returned bound is the start of the following day.
func parseDateRange(c *gin.Context) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := biztime.ParseDateInBizTimezone(raw)
		if err != nil {
			return nil, nil, errors.NewValidationError("invalid from date", "expected YYYY-MM-DD")
		}
		from = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := biztime.ParseDateInBizTimezone(raw)
		if err != nil {
			return nil, nil, errors.NewValidationError("invalid to date", "expected YYYY-MM-DD")
		}
		t = t.AddDate(0, 0, 1)
		to = &t
	}
	if from != nil && to != nil && !to.After(*from) {
		return nil, nil, errors.NewValidationError("invalid date range", "to must not be before from")
	}
	return from, to, nil
}
