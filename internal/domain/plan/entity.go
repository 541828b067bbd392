// internal/domain/plan/entity.go
package plan

import (
	"database/sql"
	"time"

	"malipo-service/internal/pkg/period"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type PlanStatus string

const (
	StatusActive   PlanStatus = "active"
	StatusArchived PlanStatus = "archived"
)

// SubscriptionPlan is immutable once referenced by a subscription; pricing
// changes are made by creating a new plan and moving subscribers to it.
type SubscriptionPlan struct {
	ID          int64          `json:"id" db:"id"`
	PlanCode    string         `json:"plan_code" db:"plan_code"`
	Name        string         `json:"name" db:"name"`
	Description sql.NullString `json:"description,omitempty" db:"description"`

	// Pricing
	Price    decimal.Decimal `json:"price" db:"price"`
	Currency string          `json:"currency" db:"currency"`

	// Billing interval
	Interval      period.Unit `json:"interval" db:"interval"`
	IntervalCount int         `json:"interval_count" db:"interval_count"`

	// Trial
	TrialPeriodDays sql.NullInt32 `json:"trial_period_days,omitempty" db:"trial_period_days"`

	Features pq.StringArray `json:"features,omitempty" db:"features"`

	Status PlanStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasTrial reports whether subscriptions to this plan start with a trial window.
func (p *SubscriptionPlan) HasTrial() bool {
	return p.TrialPeriodDays.Valid && p.TrialPeriodDays.Int32 > 0
}
