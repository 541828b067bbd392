// internal/repository/postgres/organization_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"malipo-service/internal/domain/organization"
	xerrors "malipo-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrganizationRepository struct {
	db *pgxpool.Pool
}

func NewOrganizationRepository(db *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) Create(ctx context.Context, org *organization.Organization) error {
	query := `
		INSERT INTO organizations (name, email, phone, address_line, city, country)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		org.Name, org.Email, org.Phone,
		org.AddressLine, org.City, org.Country,
	).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id int64) (*organization.Organization, error) {
	query := `
		SELECT id, name, email, phone, address_line, city, country, plan_id, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`

	var org organization.Organization
	err := r.db.QueryRow(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.Email, &org.Phone,
		&org.AddressLine, &org.City, &org.Country,
		&org.PlanID, &org.CreatedAt, &org.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}

	return &org, nil
}

func (r *OrganizationRepository) Update(ctx context.Context, org *organization.Organization) error {
	query := `
		UPDATE organizations
		SET name = $2, email = $3, phone = $4,
		    address_line = $5, city = $6, country = $7,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		org.ID, org.Name, org.Email, org.Phone,
		org.AddressLine, org.City, org.Country,
	)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

func (r *OrganizationRepository) AttachPlan(ctx context.Context, orgID, planID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE organizations SET plan_id = $2, updated_at = NOW() WHERE id = $1`,
		orgID, planID,
	)
	if err != nil {
		return fmt.Errorf("failed to attach plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *OrganizationRepository) DetachPlan(ctx context.Context, orgID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE organizations SET plan_id = NULL, updated_at = NOW() WHERE id = $1`,
		orgID,
	)
	if err != nil {
		return fmt.Errorf("failed to detach plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
