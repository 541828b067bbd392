// internal/handlers/payment/payment_handler.go
package payment

import (
	"net/http"
	"strconv"

	"malipo-service/internal/middleware"
	"malipo-service/internal/pkg/response"
	service "malipo-service/internal/service/payment"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// GetPayment retrieves a payment by ID
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	paymentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payment ID", err)
		return
	}

	result, err := h.paymentService.GetPayment(c.Request.Context(), orgID, paymentID)
	if err != nil {
		response.FromError(c, "payment not found", err)
		return
	}

	response.Success(c, http.StatusOK, "payment retrieved", result)
}

// ListPayments retrieves the organization's payment history
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	result, err := h.paymentService.ListPayments(c.Request.Context(), orgID)
	if err != nil {
		response.FromError(c, "failed to list payments", err)
		return
	}

	response.Success(c, http.StatusOK, "payments retrieved", result)
}
