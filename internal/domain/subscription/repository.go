// internal/domain/subscription/repository.go
package subscription

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	FindByID(ctx context.Context, id int64) (*Subscription, error)
	ListByOrganization(ctx context.Context, orgID int64, filters *SubscriptionListFilters) ([]Subscription, int64, error)
	Update(ctx context.Context, sub *Subscription) error

	UpdateStatus(ctx context.Context, id int64, status SubscriptionStatus) error
	SetPaymentMethod(ctx context.Context, id, methodID int64) error
	SetCancellation(ctx context.Context, id int64, cancelAtPeriodEnd bool, canceledAt sql.NullTime) error

	// Cancel performs an immediate hard cancel: terminal status plus
	// canceled/end timestamps.
	Cancel(ctx context.Context, id int64, at time.Time) error

	// AdvancePeriod moves the subscription into a new billing period:
	// status active, period [start, end], next billing date = end,
	// last payment date = start.
	AdvancePeriod(ctx context.Context, id int64, start, end time.Time) error

	IncrementFailedPayments(ctx context.Context, id int64) error

	// RecordPaymentRecovered resets the subscription to active with a
	// clean failed-payment counter after a successful charge.
	RecordPaymentRecovered(ctx context.Context, id int64, at time.Time) error

	// FindDueForRenewal selects subscriptions whose billing date has
	// arrived: next_billing_date <= now, status in (active, trialing),
	// cancel_at_period_end = false.
	FindDueForRenewal(ctx context.Context, now time.Time) ([]Subscription, error)

	// FindDueForCancellation selects active subscriptions flagged for
	// period-end cancellation whose period has elapsed.
	FindDueForCancellation(ctx context.Context, now time.Time) ([]Subscription, error)
}
