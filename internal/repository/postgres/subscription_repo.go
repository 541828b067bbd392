// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"malipo-service/internal/domain/subscription"
	xerrors "malipo-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `
	id, reference, organization_id, plan_id, payment_method_id,
	status, start_date, trial_end_date,
	current_period_start, current_period_end, next_billing_date,
	last_payment_date, failed_payments,
	cancel_at_period_end, canceled_at, end_date,
	created_at, updated_at
`

func (r *SubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			reference, organization_id, plan_id, payment_method_id,
			status, start_date, trial_end_date,
			current_period_start, current_period_end, next_billing_date,
			cancel_at_period_end
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		sub.Reference, sub.OrganizationID, sub.PlanID, sub.PaymentMethodID,
		sub.Status, sub.StartDate, sub.TrialEndDate,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.NextBillingDate,
		sub.CancelAtPeriodEnd,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id int64) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	var sub subscription.Subscription
	err := r.db.QueryRow(ctx, query, id).Scan(
		&sub.ID, &sub.Reference, &sub.OrganizationID, &sub.PlanID, &sub.PaymentMethodID,
		&sub.Status, &sub.StartDate, &sub.TrialEndDate,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.NextBillingDate,
		&sub.LastPaymentDate, &sub.FailedPayments,
		&sub.CancelAtPeriodEnd, &sub.CanceledAt, &sub.EndDate,
		&sub.CreatedAt, &sub.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}

	return &sub, nil
}

func (r *SubscriptionRepository) ListByOrganization(ctx context.Context, orgID int64, filters *subscription.SubscriptionListFilters) ([]subscription.Subscription, int64, error) {
	page := 1
	pageSize := 20
	var status subscription.SubscriptionStatus
	if filters != nil {
		if filters.Page > 0 {
			page = filters.Page
		}
		if filters.PageSize > 0 && filters.PageSize <= 100 {
			pageSize = filters.PageSize
		}
		status = filters.Status
	}

	where := `WHERE organization_id = $1`
	args := []interface{}{orgID}
	if status != "" {
		where += ` AND status = $2`
		args = append(args, status)
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM subscriptions %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		subscriptionColumns, where, pageSize, (page-1)*pageSize,
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	subs, err := scanSubscriptions(rows)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *SubscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		UPDATE subscriptions
		SET plan_id = $2, payment_method_id = $3, status = $4,
		    trial_end_date = $5,
		    current_period_start = $6, current_period_end = $7, next_billing_date = $8,
		    last_payment_date = $9, failed_payments = $10,
		    cancel_at_period_end = $11, canceled_at = $12, end_date = $13,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		sub.ID, sub.PlanID, sub.PaymentMethodID, sub.Status,
		sub.TrialEndDate,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.NextBillingDate,
		sub.LastPaymentDate, sub.FailedPayments,
		sub.CancelAtPeriodEnd, sub.CanceledAt, sub.EndDate,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, id int64, status subscription.SubscriptionStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) SetPaymentMethod(ctx context.Context, id, methodID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET payment_method_id = $2, updated_at = NOW() WHERE id = $1`,
		id, methodID,
	)
	if err != nil {
		return fmt.Errorf("failed to set payment method: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) SetCancellation(ctx context.Context, id int64, cancelAtPeriodEnd bool, canceledAt sql.NullTime) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET cancel_at_period_end = $2, canceled_at = $3, updated_at = NOW() WHERE id = $1`,
		id, cancelAtPeriodEnd, canceledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update cancellation flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) Cancel(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE subscriptions
		SET status = $2, canceled_at = $3, end_date = $3, updated_at = NOW()
		WHERE id = $1 AND status != $2
	`

	tag, err := r.db.Exec(ctx, query, id, subscription.StatusCanceled, at)
	if err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) AdvancePeriod(ctx context.Context, id int64, start, end time.Time) error {
	query := `
		UPDATE subscriptions
		SET status = $2,
		    current_period_start = $3, current_period_end = $4,
		    next_billing_date = $4, last_payment_date = $3,
		    trial_end_date = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, subscription.StatusActive, start, end)
	if err != nil {
		return fmt.Errorf("failed to advance subscription period: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) IncrementFailedPayments(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET failed_payments = failed_payments + 1, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to increment failed payments: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) RecordPaymentRecovered(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE subscriptions
		SET status = $2, failed_payments = 0, last_payment_date = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, subscription.StatusActive, at)
	if err != nil {
		return fmt.Errorf("failed to record payment recovery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) FindDueForRenewal(ctx context.Context, now time.Time) ([]subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE next_billing_date <= $1
		  AND status IN ($2, $3)
		  AND cancel_at_period_end = FALSE
		ORDER BY next_billing_date ASC`

	rows, err := r.db.Query(ctx, query, now, subscription.StatusActive, subscription.StatusTrialing)
	if err != nil {
		return nil, fmt.Errorf("failed to select subscriptions due for renewal: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

func (r *SubscriptionRepository) FindDueForCancellation(ctx context.Context, now time.Time) ([]subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE current_period_end <= $1
		  AND status = $2
		  AND cancel_at_period_end = TRUE
		ORDER BY current_period_end ASC`

	rows, err := r.db.Query(ctx, query, now, subscription.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to select subscriptions due for cancellation: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

func scanSubscriptions(rows pgx.Rows) ([]subscription.Subscription, error) {
	var subs []subscription.Subscription
	for rows.Next() {
		var sub subscription.Subscription
		if err := rows.Scan(
			&sub.ID, &sub.Reference, &sub.OrganizationID, &sub.PlanID, &sub.PaymentMethodID,
			&sub.Status, &sub.StartDate, &sub.TrialEndDate,
			&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.NextBillingDate,
			&sub.LastPaymentDate, &sub.FailedPayments,
			&sub.CancelAtPeriodEnd, &sub.CanceledAt, &sub.EndDate,
			&sub.CreatedAt, &sub.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
