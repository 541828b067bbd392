// internal/domain/plan/repository.go
package plan

import "context"

type Repository interface {
	Create(ctx context.Context, p *SubscriptionPlan) error
	FindByID(ctx context.Context, id int64) (*SubscriptionPlan, error)
	FindByCode(ctx context.Context, code string) (*SubscriptionPlan, error)
	List(ctx context.Context, filters *PlanListFilters) ([]SubscriptionPlan, int64, error)
	Archive(ctx context.Context, id int64) error
}
