package handlers

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/heritagebox/chat-service/internal/api/dto"
	"github.com/heritagebox/chat-service/internal/api/middleware"
	domainerrors "github.com/heritagebox/chat-service/internal/domain/errors"
	"github.com/heritagebox/chat-service/internal/services/payments"
)

// PaymentsHandler handles checkout payments.
type PaymentsHandler struct {
	// client is nil when the payment processor is not configured.
	client payments.Client
	log    zerolog.Logger
}

// NewPaymentsHandler creates a new PaymentsHandler.
func NewPaymentsHandler(client payments.Client, log zerolog.Logger) *PaymentsHandler {
	return &PaymentsHandler{client: client, log: log}
}

// Create handles POST /payments.
// @Summary Charge a tokenized card
// @Description Charges the card token. Card declines are 400 with the processor's detail; misconfiguration is 500.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body dto.PaymentRequest true "Payment request"
// @Success 200 {object} dto.PaymentResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request or declined card"
// @Failure 500 {object} dto.ErrorResponse "Payment service not configured"
// @Router /payments [post]
func (h *PaymentsHandler) Create(c *gin.Context) {
	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("Missing required fields", err.Error()))
		return
	}

	if h.client == nil {
		middleware.HandleError(c, domainerrors.NewInternalError("Payment service not configured properly", nil))
		return
	}

	note := "Heritage Box Order"
	if req.OrderDetails != nil && req.OrderDetails.Package != "" {
		note = req.OrderDetails.Package + " Package"
	}
	amountCents := int64(math.Round(req.Amount * 100))

	payment, err := h.client.CreatePayment(c.Request.Context(), req.Token, amountCents, "USD", note)
	if err != nil {
		var cardErr *payments.CardError
		if errors.As(err, &cardErr) {
			h.log.Warn().Str("code", cardErr.Code).Msg("payment declined")
			middleware.HandleError(c, domainerrors.NewPaymentDeclinedError(cardErr.Detail))
			return
		}
		h.log.Error().Err(err).Msg("payment failed")
		middleware.HandleError(c, domainerrors.NewInternalError("Payment failed", err))
		return
	}

	if !payment.Completed() {
		h.log.Warn().Str("payment_id", payment.ID).Str("status", payment.Status).Msg("payment not completed")
		middleware.HandleError(c, domainerrors.NewPaymentDeclinedError("Payment was not completed: "+payment.Status))
		return
	}

	c.JSON(http.StatusOK, dto.PaymentResponse{
		Success:    true,
		PaymentID:  payment.ID,
		Status:     payment.Status,
		ReceiptURL: payment.ReceiptURL,
	})
}

// Status handles GET /payments/:paymentId.
// @Summary Poll a payment's status
// @Tags Payments
// @Produce json
// @Param paymentId path string true "Payment id"
// @Success 200 {object} dto.PaymentResponse
// @Failure 500 {object} dto.ErrorResponse "Payment service not configured"
// @Router /payments/{paymentId} [get]
func (h *PaymentsHandler) Status(c *gin.Context) {
	paymentID := c.Param("paymentId")
	if paymentID == "" {
		middleware.HandleError(c, domainerrors.NewValidationError("Missing paymentId", ""))
		return
	}

	if h.client == nil {
		middleware.HandleError(c, domainerrors.NewInternalError("Payment service not configured", nil))
		return
	}

	payment, err := h.client.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		middleware.HandleError(c, domainerrors.NewInternalError("Failed to get payment status", err))
		return
	}

	c.JSON(http.StatusOK, dto.PaymentResponse{
		Success:    true,
		PaymentID:  payment.ID,
		Status:     payment.Status,
		ReceiptURL: payment.ReceiptURL,
	})
}
