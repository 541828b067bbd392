// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"net/http"
	"strconv"

	"malipo-service/internal/domain/subscription"
	"malipo-service/internal/middleware"
	"malipo-service/internal/pkg/response"
	service "malipo-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// CreateSubscription starts a subscription on a plan
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	var req subscription.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.subscriptionService.CreateSubscription(c.Request.Context(), orgID, &req)
	if err != nil {
		response.FromError(c, "failed to create subscription", err)
		return
	}

	response.Success(c, http.StatusCreated, "subscription created successfully", result)
}

// ChangeSubscription moves the subscription to a different plan
func (h *SubscriptionHandler) ChangeSubscription(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	subID, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	var req subscription.ChangeSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.subscriptionService.ChangeSubscription(c.Request.Context(), orgID, subID, &req)
	if err != nil {
		response.FromError(c, "failed to change subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription plan changed", result)
}

// UpdateCancellation flags or unflags cancellation at period end
func (h *SubscriptionHandler) UpdateCancellation(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	subID, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	var req subscription.UpdateCancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.subscriptionService.UpdateCancellation(c.Request.Context(), orgID, subID, &req)
	if err != nil {
		response.FromError(c, "failed to update cancellation", err)
		return
	}

	response.Success(c, http.StatusOK, "cancellation updated", result)
}

// UpdatePaymentMethod swaps the payment method used for renewals
func (h *SubscriptionHandler) UpdatePaymentMethod(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	subID, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	var req subscription.UpdatePaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.subscriptionService.UpdatePaymentMethod(c.Request.Context(), orgID, subID, &req)
	if err != nil {
		response.FromError(c, "failed to update payment method", err)
		return
	}

	response.Success(c, http.StatusOK, "payment method updated", result)
}

// CancelSubscription cancels a subscription immediately
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	subID, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	result, err := h.subscriptionService.CancelSubscription(c.Request.Context(), orgID, subID)
	if err != nil {
		response.FromError(c, "failed to cancel subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription canceled", result)
}

// GetSubscription retrieves a subscription by ID
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	subID, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	result, err := h.subscriptionService.GetSubscription(c.Request.Context(), orgID, subID)
	if err != nil {
		response.FromError(c, "subscription not found", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription retrieved", result)
}

// ListSubscriptions retrieves the organization's subscriptions
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	var filters subscription.SubscriptionListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid filters", err)
		return
	}

	result, err := h.subscriptionService.ListSubscriptions(c.Request.Context(), orgID, &filters)
	if err != nil {
		response.FromError(c, "failed to list subscriptions", err)
		return
	}

	response.Success(c, http.StatusOK, "subscriptions retrieved", result)
}

func parseID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
