// internal/domain/subscription/entity.go
package subscription

import (
	"database/sql"
	"time"
)

type SubscriptionStatus string

const (
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	// StatusIncomplete is reached when a trial ends with no payment
	// method attached; a charge against a newly attached method moves
	// the subscription back to active.
	StatusIncomplete SubscriptionStatus = "incomplete"
	// StatusCanceled is terminal.
	StatusCanceled SubscriptionStatus = "canceled"
)

type Subscription struct {
	ID        int64  `json:"id" db:"id"`
	Reference string `json:"reference" db:"reference"`

	OrganizationID int64 `json:"organization_id" db:"organization_id"`
	PlanID         int64 `json:"plan_id" db:"plan_id"`

	PaymentMethodID sql.NullInt64 `json:"payment_method_id,omitempty" db:"payment_method_id"`

	Status SubscriptionStatus `json:"status" db:"status"`

	StartDate    time.Time    `json:"start_date" db:"start_date"`
	TrialEndDate sql.NullTime `json:"trial_end_date,omitempty" db:"trial_end_date"`

	// Invariant: CurrentPeriodStart <= CurrentPeriodEnd, and
	// NextBillingDate equals TrialEndDate while trialing, else
	// CurrentPeriodEnd.
	CurrentPeriodStart time.Time `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end" db:"current_period_end"`
	NextBillingDate    time.Time `json:"next_billing_date" db:"next_billing_date"`

	LastPaymentDate sql.NullTime `json:"last_payment_date,omitempty" db:"last_payment_date"`
	FailedPayments  int          `json:"failed_payments" db:"failed_payments"`

	CancelAtPeriodEnd bool         `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	CanceledAt        sql.NullTime `json:"canceled_at,omitempty" db:"canceled_at"`
	EndDate           sql.NullTime `json:"end_date,omitempty" db:"end_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the subscription can no longer change state.
func (s *Subscription) IsTerminal() bool {
	return s.Status == StatusCanceled
}
