// internal/domain/organization/entity.go
package organization

import (
	"database/sql"
	"time"
)

// Organization is the billing tenant. Every subscription, invoice and
// payment method belongs to exactly one organization.
type Organization struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	Phone string `json:"phone" db:"phone"`

	// Billing address, used on invoices when no explicit billing
	// contact is supplied.
	AddressLine sql.NullString `json:"address_line,omitempty" db:"address_line"`
	City        sql.NullString `json:"city,omitempty" db:"city"`
	Country     sql.NullString `json:"country,omitempty" db:"country"`

	// Current plan link, maintained by the subscription lifecycle.
	PlanID sql.NullInt64 `json:"plan_id,omitempty" db:"plan_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
