// internal/service/invoice/pdf.go
package invoice

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"malipo-service/internal/domain/invoice"
	"malipo-service/internal/domain/organization"

	"github.com/go-pdf/fpdf"
)

// RenderPDF renders an invoice as a single page A4 document. Rendering
// is deterministic: the same invoice, organization and contact always
// produce identical bytes, which keeps re-downloads byte-stable.
func RenderPDF(inv *invoice.Invoice, org *organization.Organization, contact *invoice.BillingContact) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	// Pin document metadata dates so output does not vary per render.
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.SetModificationDate(time.Unix(0, 0).UTC())
	pdf.SetTitle(fmt.Sprintf("Invoice %s", inv.Number), false)
	pdf.SetAuthor("Malipo Billing", false)
	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(0, 12, "INVOICE")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 10)
	writeKV(pdf, "Invoice number", inv.Number)
	writeKV(pdf, "Issue date", inv.CreatedAt.UTC().Format("2 Jan 2006"))
	writeKV(pdf, "Due date", inv.DueDate.UTC().Format("2 Jan 2006"))
	writeKV(pdf, "Status", strings.ToUpper(string(inv.Status)))
	pdf.Ln(6)

	// Billed-to block
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, "Billed to")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range billedToLines(org, contact) {
		pdf.Cell(0, 5, line)
		pdf.Ln(5)
	}
	pdf.Ln(6)

	// Line items
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(110, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(60, 8, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(110, 8, inv.Description, "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "1", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 8, money(inv.Currency, inv.Subtotal.StringFixed(2)), "1", 1, "R", false, 0, "")
	pdf.Ln(4)

	// Totals
	writeTotal(pdf, "Subtotal", money(inv.Currency, inv.Subtotal.StringFixed(2)), false)
	writeTotal(pdf, "VAT", money(inv.Currency, inv.Tax.StringFixed(2)), false)
	writeTotal(pdf, "Total", money(inv.Currency, inv.Amount.StringFixed(2)), true)
	pdf.Ln(8)

	// Payment block
	pdf.SetFont("Helvetica", "B", 11)
	if inv.Status == invoice.StatusPaid {
		pdf.Cell(0, 6, "Payment information")
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 10)
		if inv.PaidAt.Valid {
			pdf.Cell(0, 5, fmt.Sprintf("Paid on %s", inv.PaidAt.Time.UTC().Format("2 Jan 2006")))
			pdf.Ln(5)
		}
		if inv.ReceiptURL.Valid && inv.ReceiptURL.String != "" {
			pdf.Cell(0, 5, fmt.Sprintf("Receipt: %s", inv.ReceiptURL.String))
			pdf.Ln(5)
		}
	} else {
		pdf.Cell(0, 6, "Payment instructions")
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 10)
		pdf.Cell(0, 5, fmt.Sprintf("Amount due: %s", money(inv.Currency, inv.AmountDue.StringFixed(2))))
		pdf.Ln(5)
		pdf.Cell(0, 5, fmt.Sprintf("Please settle this invoice by %s.", inv.DueDate.UTC().Format("2 Jan 2006")))
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// billedToLines prefers an explicit billing contact and falls back to
// the organization's own address fields.
func billedToLines(org *organization.Organization, contact *invoice.BillingContact) []string {
	var lines []string
	if contact != nil {
		lines = append(lines, contact.Name)
		if contact.Email != "" {
			lines = append(lines, contact.Email)
		}
		if contact.AddressLine != "" {
			lines = append(lines, contact.AddressLine)
		}
		if contact.City != "" || contact.Country != "" {
			lines = append(lines, strings.TrimSpace(strings.Trim(contact.City+", "+contact.Country, ", ")))
		}
		return lines
	}

	lines = append(lines, org.Name)
	if org.Email != "" {
		lines = append(lines, org.Email)
	}
	if org.AddressLine.Valid {
		lines = append(lines, org.AddressLine.String)
	}
	locality := strings.TrimSpace(strings.Trim(org.City.String+", "+org.Country.String, ", "))
	if locality != "" {
		lines = append(lines, locality)
	}
	return lines
}

func writeKV(pdf *fpdf.Fpdf, key, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(40, 6, key)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, value)
	pdf.Ln(6)
}

func writeTotal(pdf *fpdf.Fpdf, label, value string, emphasized bool) {
	style := ""
	if emphasized {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, 10)
	pdf.CellFormat(130, 7, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, value, "", 1, "R", false, 0, "")
}

func money(currency, amount string) string {
	return currency + " " + amount
}
