// internal/domain/invoice/entity.go
package invoice

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	StatusOpen InvoiceStatus = "open"
	// StatusPaid is terminal; a paid invoice is immutable.
	StatusPaid InvoiceStatus = "paid"
)

// Invoice invariant: Amount = AmountDue + AmountPaid at all times.
type Invoice struct {
	ID     int64  `json:"id" db:"id"`
	Number string `json:"number" db:"number"`

	OrganizationID int64 `json:"organization_id" db:"organization_id"`
	SubscriptionID int64 `json:"subscription_id" db:"subscription_id"`

	Status   InvoiceStatus `json:"status" db:"status"`
	Currency string        `json:"currency" db:"currency"`

	// Description of the single line item, e.g. "Pro plan (month)".
	Description string `json:"description" db:"description"`

	Subtotal   decimal.Decimal `json:"subtotal" db:"subtotal"`
	Tax        decimal.Decimal `json:"tax" db:"tax"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	AmountDue  decimal.Decimal `json:"amount_due" db:"amount_due"`
	AmountPaid decimal.Decimal `json:"amount_paid" db:"amount_paid"`

	DueDate time.Time    `json:"due_date" db:"due_date"`
	PaidAt  sql.NullTime `json:"paid_at,omitempty" db:"paid_at"`

	PaymentID  sql.NullInt64  `json:"payment_id,omitempty" db:"payment_id"`
	ReceiptURL sql.NullString `json:"receipt_url,omitempty" db:"receipt_url"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// BillingContact is the billed-to block rendered on an invoice document.
// When nil, the organization's own address fields are used instead.
type BillingContact struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	Country     string `json:"country"`
}
