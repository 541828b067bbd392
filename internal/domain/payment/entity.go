// internal/domain/payment/entity.go
package payment

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type MethodType string

const (
	MethodTypeCard        MethodType = "card"
	MethodTypeBankAccount MethodType = "bank_account"
	MethodTypeMpesa       MethodType = "mpesa"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is one attempt to move money for one invoice. Rows are
// append-only: a payment transitions from pending to exactly one terminal
// state and is never reused; retries create new rows.
type Payment struct {
	ID        int64  `json:"id" db:"id"`
	Reference string `json:"reference" db:"reference"`

	OrganizationID  int64         `json:"organization_id" db:"organization_id"`
	InvoiceID       sql.NullInt64 `json:"invoice_id,omitempty" db:"invoice_id"`
	PaymentMethodID int64         `json:"payment_method_id" db:"payment_method_id"`

	MethodType MethodType `json:"method_type" db:"method_type"`
	Provider   string     `json:"provider" db:"provider"`

	Amount   decimal.Decimal `json:"amount" db:"amount"`
	Currency string          `json:"currency" db:"currency"`

	Status PaymentStatus `json:"status" db:"status"`

	ProviderTransactionID sql.NullString  `json:"provider_transaction_id,omitempty" db:"provider_transaction_id"`
	ProviderFee           decimal.Decimal `json:"provider_fee" db:"provider_fee"`
	ReceiptURL            sql.NullString  `json:"receipt_url,omitempty" db:"receipt_url"`
	FailureReason         sql.NullString  `json:"failure_reason,omitempty" db:"failure_reason"`

	Description sql.NullString `json:"description,omitempty" db:"description"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PaymentMethod is a stored, tokenized payment method. Sensitive values
// are masked before persistence: only the last four digits of card or
// account numbers are kept, and the CVV is never stored.
type PaymentMethod struct {
	ID        int64  `json:"id" db:"id"`
	Reference string `json:"reference" db:"reference"`

	OrganizationID int64 `json:"organization_id" db:"organization_id"`

	Type     MethodType `json:"type" db:"type"`
	Provider string     `json:"provider" db:"provider"`

	// At most one method per organization is the default.
	IsDefault bool `json:"is_default" db:"is_default"`

	// Masked display fields
	Brand       sql.NullString `json:"brand,omitempty" db:"brand"`
	LastFour    sql.NullString `json:"last_four,omitempty" db:"last_four"`
	ExpiryMonth sql.NullInt32  `json:"expiry_month,omitempty" db:"expiry_month"`
	ExpiryYear  sql.NullInt32  `json:"expiry_year,omitempty" db:"expiry_year"`
	AccountName sql.NullString `json:"account_name,omitempty" db:"account_name"`
	BankName    sql.NullString `json:"bank_name,omitempty" db:"bank_name"`
	PhoneNumber sql.NullString `json:"phone_number,omitempty" db:"phone_number"`

	// Provider-specific opaque data, never serialized to clients.
	ProviderData ProviderData `json:"-" db:"provider_data"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProviderData is a tagged per-provider variant: exactly one of the
// rail-specific members is set, keyed by Provider.
type ProviderData struct {
	Provider string      `json:"provider"`
	Card     *CardToken  `json:"card,omitempty"`
	Bank     *BankToken  `json:"bank,omitempty"`
	Mpesa    *MpesaAccount `json:"mpesa,omitempty"`
}

type CardToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type BankToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MpesaAccount charges are addressed directly to the subscriber's MSISDN;
// no provider token is involved.
type MpesaAccount struct {
	Msisdn string `json:"msisdn"`
}
