// internal/handlers/plan/plan_handler.go
package plan

import (
	"net/http"
	"strconv"

	"malipo-service/internal/domain/plan"
	"malipo-service/internal/pkg/response"
	service "malipo-service/internal/service/plan"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	planService *service.PlanService
}

func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// CreatePlan creates a new subscription plan (admin only)
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req plan.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.planService.CreatePlan(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "failed to create plan", err)
		return
	}

	response.Success(c, http.StatusCreated, "plan created successfully", result)
}

// GetPlan retrieves a plan by ID
func (h *PlanHandler) GetPlan(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid plan ID", err)
		return
	}

	result, err := h.planService.GetPlan(c.Request.Context(), planID)
	if err != nil {
		response.FromError(c, "plan not found", err)
		return
	}

	response.Success(c, http.StatusOK, "plan retrieved", result)
}

// ListPlans retrieves plans with filters
func (h *PlanHandler) ListPlans(c *gin.Context) {
	var filters plan.PlanListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid filters", err)
		return
	}

	result, err := h.planService.ListPlans(c.Request.Context(), &filters)
	if err != nil {
		response.FromError(c, "failed to list plans", err)
		return
	}

	response.Success(c, http.StatusOK, "plans retrieved", result)
}

// ArchivePlan retires a plan from new subscriptions (admin only)
func (h *PlanHandler) ArchivePlan(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid plan ID", err)
		return
	}

	if err := h.planService.ArchivePlan(c.Request.Context(), planID); err != nil {
		response.FromError(c, "failed to archive plan", err)
		return
	}

	response.Success(c, http.StatusOK, "plan archived", nil)
}
