// internal/handlers/paymentmethod/method_handler.go
package paymentmethod

import (
	"net/http"
	"strconv"

	"malipo-service/internal/domain/payment"
	"malipo-service/internal/middleware"
	"malipo-service/internal/pkg/response"
	service "malipo-service/internal/service/paymentmethod"

	"github.com/gin-gonic/gin"
)

type MethodHandler struct {
	methodService *service.MethodService
}

func NewMethodHandler(methodService *service.MethodService) *MethodHandler {
	return &MethodHandler{methodService: methodService}
}

// AddCard stores a tokenized card payment method
func (h *MethodHandler) AddCard(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	var req payment.AddCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.methodService.AddCard(c.Request.Context(), orgID, &req)
	if err != nil {
		response.FromError(c, "failed to add card", err)
		return
	}

	response.Success(c, http.StatusCreated, "card added successfully", result)
}

// AddBankAccount stores a tokenized bank account payment method
func (h *MethodHandler) AddBankAccount(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	var req payment.AddBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.methodService.AddBankAccount(c.Request.Context(), orgID, &req)
	if err != nil {
		response.FromError(c, "failed to add bank account", err)
		return
	}

	response.Success(c, http.StatusCreated, "bank account added successfully", result)
}

// AddMpesa registers an M-Pesa line as a payment method
func (h *MethodHandler) AddMpesa(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	var req payment.AddMpesaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.methodService.AddMpesa(c.Request.Context(), orgID, &req)
	if err != nil {
		response.FromError(c, "failed to add mpesa line", err)
		return
	}

	response.Success(c, http.StatusCreated, "mpesa line added successfully", result)
}

// ListMethods retrieves the organization's payment methods
func (h *MethodHandler) GetMethod(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	methodID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payment method ID", err)
		return
	}

	method, err := h.methodService.GetMethod(c.Request.Context(), orgID, methodID)
	if err != nil {
		response.FromError(c, "failed to get payment method", err)
		return
	}

	response.Success(c, http.StatusOK, "payment method retrieved", method)
}

func (h *MethodHandler) ListMethods(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	result, err := h.methodService.ListMethods(c.Request.Context(), orgID)
	if err != nil {
		response.FromError(c, "failed to list payment methods", err)
		return
	}

	response.Success(c, http.StatusOK, "payment methods retrieved", result)
}

// SetDefault marks a payment method as the organization's default
func (h *MethodHandler) SetDefault(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	methodID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payment method ID", err)
		return
	}

	if err := h.methodService.SetDefault(c.Request.Context(), orgID, methodID); err != nil {
		response.FromError(c, "failed to set default payment method", err)
		return
	}

	response.Success(c, http.StatusOK, "default payment method updated", nil)
}

// DeleteMethod removes a payment method
func (h *MethodHandler) DeleteMethod(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	methodID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payment method ID", err)
		return
	}

	if err := h.methodService.DeleteMethod(c.Request.Context(), orgID, methodID); err != nil {
		response.FromError(c, "failed to delete payment method", err)
		return
	}

	response.Success(c, http.StatusOK, "payment method deleted", nil)
}
