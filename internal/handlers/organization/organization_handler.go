// internal/handlers/organization/organization_handler.go
package organization

import (
	"net/http"

	"malipo-service/internal/domain/organization"
	"malipo-service/internal/middleware"
	"malipo-service/internal/pkg/response"
	service "malipo-service/internal/service/organization"

	"github.com/gin-gonic/gin"
)

type OrganizationHandler struct {
	organizationService *service.OrganizationService
}

func NewOrganizationHandler(organizationService *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{organizationService: organizationService}
}

// CreateOrganization provisions a new billing tenant (admin only)
func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	var req organization.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.organizationService.CreateOrganization(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "failed to create organization", err)
		return
	}

	response.Success(c, http.StatusCreated, "organization created successfully", result)
}

// GetOrganization retrieves the authenticated organization
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	result, err := h.organizationService.GetOrganization(c.Request.Context(), orgID)
	if err != nil {
		response.FromError(c, "organization not found", err)
		return
	}

	response.Success(c, http.StatusOK, "organization retrieved", result)
}

// UpdateOrganization updates the authenticated organization's profile
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	var req organization.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.organizationService.UpdateOrganization(c.Request.Context(), orgID, &req)
	if err != nil {
		response.FromError(c, "failed to update organization", err)
		return
	}

	response.Success(c, http.StatusOK, "organization updated", result)
}
