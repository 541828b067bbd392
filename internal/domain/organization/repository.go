// internal/domain/organization/repository.go
package organization

import "context"

type Repository interface {
	Create(ctx context.Context, org *Organization) error
	FindByID(ctx context.Context, id int64) (*Organization, error)
	Update(ctx context.Context, org *Organization) error
	AttachPlan(ctx context.Context, orgID, planID int64) error
	DetachPlan(ctx context.Context, orgID int64) error
}
