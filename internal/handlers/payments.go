package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"launchpad/api/internal/middleware"
	"launchpad/api/internal/service"
)

type oneTimePaymentRequest struct {
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	PaymentMethod string  `json:"paymentMethod" binding:"required"`
}

func (h HandlerSet) OneTimePayment(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		writeError(c, h.log, service.ErrUnauthorized)
		return
	}

	var req oneTimePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.payments.OneTimePayment(c.Request.Context(), service.OneTimePaymentInput{
		UserID:        current.ID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Payment successful", gin.H{
		"paymentIntentId": result.PaymentIntentID,
		"status":          result.Status,
		"amount":          float64(result.AmountCents) / 100,
		"currency":        result.Currency,
	})
}

func (h HandlerSet) PaymentHistory(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		writeError(c, h.log, service.ErrUnauthorized)
		return
	}

	list, err := h.payments.History(c.Request.Context(), current.ID, queryInt(c, "page", 1), queryInt(c, "limit", 10))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	out := make([]paymentResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPaymentResponse(p))
	}
	respond(c, http.StatusOK, "Payments retrieved successfully", out)
}
