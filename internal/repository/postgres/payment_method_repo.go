// internal/repository/postgres/payment_method_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"malipo-service/internal/domain/payment"
	xerrors "malipo-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentMethodRepository struct {
	db *pgxpool.Pool
}

func NewPaymentMethodRepository(db *pgxpool.Pool) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

const methodColumns = `
	id, reference, organization_id, type, provider, is_default,
	brand, last_four, expiry_month, expiry_year,
	account_name, bank_name, phone_number,
	provider_data, created_at, updated_at
`

// Create persists the method. When the new method is the default, the
// flag on the organization's other methods is cleared in the same
// transaction so there is never a moment with zero or two defaults.
func (r *PaymentMethodRepository) Create(ctx context.Context, m *payment.PaymentMethod) error {
	providerData, err := json.Marshal(m.ProviderData)
	if err != nil {
		return fmt.Errorf("failed to marshal provider data: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if m.IsDefault {
		if _, err := tx.Exec(ctx,
			`UPDATE payment_methods SET is_default = FALSE, updated_at = NOW() WHERE organization_id = $1 AND is_default = TRUE`,
			m.OrganizationID,
		); err != nil {
			return fmt.Errorf("failed to clear previous default: %w", err)
		}
	}

	query := `
		INSERT INTO payment_methods (
			reference, organization_id, type, provider, is_default,
			brand, last_four, expiry_month, expiry_year,
			account_name, bank_name, phone_number, provider_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	if err := tx.QueryRow(
		ctx, query,
		m.Reference, m.OrganizationID, m.Type, m.Provider, m.IsDefault,
		m.Brand, m.LastFour, m.ExpiryMonth, m.ExpiryYear,
		m.AccountName, m.BankName, m.PhoneNumber, providerData,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create payment method: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *PaymentMethodRepository) FindByID(ctx context.Context, id int64) (*payment.PaymentMethod, error) {
	query := `SELECT ` + methodColumns + ` FROM payment_methods WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *PaymentMethodRepository) FindDefault(ctx context.Context, orgID int64) (*payment.PaymentMethod, error) {
	query := `SELECT ` + methodColumns + ` FROM payment_methods WHERE organization_id = $1 AND is_default = TRUE`
	return r.scanOne(r.db.QueryRow(ctx, query, orgID))
}

func (r *PaymentMethodRepository) ListByOrganization(ctx context.Context, orgID int64) ([]payment.PaymentMethod, error) {
	query := `SELECT ` + methodColumns + ` FROM payment_methods WHERE organization_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []payment.PaymentMethod
	for rows.Next() {
		m, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		methods = append(methods, *m)
	}

	return methods, rows.Err()
}

// SetDefault flips the default flag to the given method in one
// transaction, leaving exactly one default afterwards.
func (r *PaymentMethodRepository) SetDefault(ctx context.Context, orgID, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE payment_methods SET is_default = FALSE, updated_at = NOW() WHERE organization_id = $1 AND is_default = TRUE`,
		orgID,
	); err != nil {
		return fmt.Errorf("failed to clear previous default: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE payment_methods SET is_default = TRUE, updated_at = NOW() WHERE id = $1 AND organization_id = $2`,
		id, orgID,
	)
	if err != nil {
		return fmt.Errorf("failed to set default payment method: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *PaymentMethodRepository) SetProviderData(ctx context.Context, id int64, data payment.ProviderData) error {
	providerData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal provider data: %w", err)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE payment_methods SET provider_data = $2, updated_at = NOW() WHERE id = $1`,
		id, providerData,
	)
	if err != nil {
		return fmt.Errorf("failed to update provider data: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

func (r *PaymentMethodRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM payment_methods WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment method: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *PaymentMethodRepository) scanOne(row pgx.Row) (*payment.PaymentMethod, error) {
	m, err := r.scanRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *PaymentMethodRepository) scanRow(row pgx.Row) (*payment.PaymentMethod, error) {
	var m payment.PaymentMethod
	var providerData []byte

	err := row.Scan(
		&m.ID, &m.Reference, &m.OrganizationID, &m.Type, &m.Provider, &m.IsDefault,
		&m.Brand, &m.LastFour, &m.ExpiryMonth, &m.ExpiryYear,
		&m.AccountName, &m.BankName, &m.PhoneNumber,
		&providerData, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan payment method: %w", err)
	}

	if len(providerData) > 0 {
		if err := json.Unmarshal(providerData, &m.ProviderData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal provider data: %w", err)
		}
	}

	return &m, nil
}
