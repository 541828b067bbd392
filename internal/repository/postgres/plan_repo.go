// internal/repository/postgres/plan_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"malipo-service/internal/domain/plan"
	xerrors "malipo-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlanRepository struct {
	db *pgxpool.Pool
}

func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `
	id, plan_code, name, description,
	price, currency, billing_interval, interval_count,
	trial_period_days, features, status,
	created_at, updated_at
`

func (r *PlanRepository) Create(ctx context.Context, p *plan.SubscriptionPlan) error {
	query := `
		INSERT INTO subscription_plans (
			plan_code, name, description,
			price, currency, billing_interval, interval_count,
			trial_period_days, features, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		p.PlanCode, p.Name, p.Description,
		p.Price, p.Currency, p.Interval, p.IntervalCount,
		p.TrialPeriodDays, p.Features, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}

	return nil
}

func (r *PlanRepository) FindByID(ctx context.Context, id int64) (*plan.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *PlanRepository) FindByCode(ctx context.Context, code string) (*plan.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE plan_code = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, code))
}

func (r *PlanRepository) List(ctx context.Context, filters *plan.PlanListFilters) ([]plan.SubscriptionPlan, int64, error) {
	status := filters.Status
	if status == "" {
		status = plan.StatusActive
	}
	page := filters.Page
	if page < 1 {
		page = 1
	}
	pageSize := filters.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM subscription_plans WHERE status = $1`, status,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count plans: %w", err)
	}

	query := `SELECT ` + planColumns + `
		FROM subscription_plans
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, status, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []plan.SubscriptionPlan
	for rows.Next() {
		var p plan.SubscriptionPlan
		if err := rows.Scan(
			&p.ID, &p.PlanCode, &p.Name, &p.Description,
			&p.Price, &p.Currency, &p.Interval, &p.IntervalCount,
			&p.TrialPeriodDays, &p.Features, &p.Status,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, p)
	}

	return plans, total, rows.Err()
}

func (r *PlanRepository) Archive(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscription_plans SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, plan.StatusArchived,
	)
	if err != nil {
		return fmt.Errorf("failed to archive plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *PlanRepository) scanOne(row pgx.Row) (*plan.SubscriptionPlan, error) {
	var p plan.SubscriptionPlan
	err := row.Scan(
		&p.ID, &p.PlanCode, &p.Name, &p.Description,
		&p.Price, &p.Currency, &p.Interval, &p.IntervalCount,
		&p.TrialPeriodDays, &p.Features, &p.Status,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}
	return &p, nil
}
