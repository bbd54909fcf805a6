package transaction

import "errors"

var (
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrInvalidStatusTransition = errors.New("invalid payment status transition")
	ErrNotRefundable           = errors.New("only successful transactions can be refunded")
	ErrRefundExceedsAmount     = errors.New("refund amount exceeds the original amount")
	ErrInvalidRefundAmount     = errors.New("refund amount must be greater than zero")
	ErrInvalidReference        = errors.New("invalid transaction reference")
)
