package invoice

import (
	"bytes"
	"database/sql"
	"testing"
	"time"

	"malipo-service/internal/domain/invoice"
	"malipo-service/internal/domain/organization"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePDFInvoice() (*invoice.Invoice, *organization.Organization) {
	issued := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	inv := &invoice.Invoice{
		ID:             42,
		Number:         "INV-20250315-0007",
		OrganizationID: 1,
		SubscriptionID: 9,
		Status:         invoice.StatusOpen,
		Currency:       "KES",
		Description:    "Pro (month)",
		Subtotal:       decimal.NewFromInt(1000),
		Tax:            decimal.NewFromInt(160),
		Amount:         decimal.NewFromInt(1160),
		AmountDue:      decimal.NewFromInt(1160),
		AmountPaid:     decimal.Zero,
		DueDate:        issued.AddDate(0, 0, 7),
		CreatedAt:      issued,
	}
	org := &organization.Organization{
		ID:    1,
		Name:  "Acme Ltd",
		Email: "billing@acme.co.ke",
		Phone: "254712345678",
		City:  sql.NullString{String: "Nairobi", Valid: true},
	}
	return inv, org
}

func TestRenderPDF_Deterministic(t *testing.T) {
	inv, org := samplePDFInvoice()

	first, err := RenderPDF(inv, org, nil)
	require.NoError(t, err)
	second, err := RenderPDF(inv, org, nil)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "same invoice must render to identical bytes")
}

func TestRenderPDF_ProducesValidDocument(t *testing.T) {
	inv, org := samplePDFInvoice()

	out, err := RenderPDF(inv, org, nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "output must start with the PDF magic header")
	assert.Greater(t, len(out), 500)
}

func TestRenderPDF_PaidInvoiceDiffersFromOpen(t *testing.T) {
	inv, org := samplePDFInvoice()
	open, err := RenderPDF(inv, org, nil)
	require.NoError(t, err)

	inv.Status = invoice.StatusPaid
	inv.AmountPaid = inv.Amount
	inv.AmountDue = decimal.Zero
	inv.PaidAt = sql.NullTime{Time: inv.CreatedAt.AddDate(0, 0, 1), Valid: true}
	paid, err := RenderPDF(inv, org, nil)
	require.NoError(t, err)

	assert.False(t, bytes.Equal(open, paid), "settled invoices render a paid block instead of payment instructions")
}

func TestRenderPDF_ContactOverridesOrganization(t *testing.T) {
	inv, org := samplePDFInvoice()
	contact := &invoice.BillingContact{
		Name:        "Finance Dept",
		Email:       "finance@acme.co.ke",
		AddressLine: "PO Box 123",
		City:        "Mombasa",
		Country:     "KE",
	}

	withContact, err := RenderPDF(inv, org, contact)
	require.NoError(t, err)
	withoutContact, err := RenderPDF(inv, org, nil)
	require.NoError(t, err)

	assert.False(t, bytes.Equal(withContact, withoutContact))
}
