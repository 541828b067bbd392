// internal/handlers/invoice/invoice_handler.go
package invoice

import (
	"fmt"
	"net/http"
	"strconv"

	"malipo-service/internal/middleware"
	"malipo-service/internal/pkg/response"
	service "malipo-service/internal/service/invoice"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService *service.InvoiceService
}

func NewInvoiceHandler(invoiceService *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// GetInvoice retrieves an invoice by ID
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	invoiceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid invoice ID", err)
		return
	}

	result, err := h.invoiceService.GetInvoice(c.Request.Context(), orgID, invoiceID)
	if err != nil {
		response.FromError(c, "invoice not found", err)
		return
	}

	response.Success(c, http.StatusOK, "invoice retrieved", result)
}

// ListInvoices retrieves the organization's invoices
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	result, err := h.invoiceService.ListInvoices(c.Request.Context(), orgID)
	if err != nil {
		response.FromError(c, "failed to list invoices", err)
		return
	}

	response.Success(c, http.StatusOK, "invoices retrieved", result)
}

type payInvoiceRequest struct {
	PaymentMethodID int64 `json:"payment_method_id" binding:"required"`
}

// PayInvoice charges a payment method for the invoice's open balance
func (h *InvoiceHandler) PayInvoice(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	invoiceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid invoice ID", err)
		return
	}

	var req payInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.invoiceService.PayInvoice(c.Request.Context(), orgID, invoiceID, req.PaymentMethodID)
	if err != nil {
		response.FromError(c, "failed to pay invoice", err)
		return
	}

	response.Success(c, http.StatusOK, "invoice paid", result)
}

// DownloadInvoicePDF renders the invoice as a PDF document
func (h *InvoiceHandler) DownloadInvoicePDF(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	invoiceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid invoice ID", err)
		return
	}

	inv, err := h.invoiceService.GetInvoice(c.Request.Context(), orgID, invoiceID)
	if err != nil {
		response.FromError(c, "invoice not found", err)
		return
	}

	pdf, err := h.invoiceService.RenderInvoicePDF(c.Request.Context(), orgID, invoiceID)
	if err != nil {
		response.FromError(c, "failed to render invoice", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", inv.Number))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
