// internal/repository/postgres/payment_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"malipo-service/internal/domain/payment"
	xerrors "malipo-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `
	id, reference, organization_id, invoice_id, payment_method_id,
	method_type, provider, amount, currency, status,
	provider_transaction_id, provider_fee, receipt_url, failure_reason,
	description, created_at, updated_at
`

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO payments (
			reference, organization_id, invoice_id, payment_method_id,
			method_type, provider, amount, currency, status,
			provider_fee, description
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		p.Reference, p.OrganizationID, p.InvoiceID, p.PaymentMethodID,
		p.MethodType, p.Provider, p.Amount, p.Currency, p.Status,
		p.ProviderFee, p.Description,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id int64) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	var p payment.Payment
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Reference, &p.OrganizationID, &p.InvoiceID, &p.PaymentMethodID,
		&p.MethodType, &p.Provider, &p.Amount, &p.Currency, &p.Status,
		&p.ProviderTransactionID, &p.ProviderFee, &p.ReceiptURL, &p.FailureReason,
		&p.Description, &p.CreatedAt, &p.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}

	return &p, nil
}

func (r *PaymentRepository) ListByOrganization(ctx context.Context, orgID int64) ([]payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE organization_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []payment.Payment
	for rows.Next() {
		var p payment.Payment
		if err := rows.Scan(
			&p.ID, &p.Reference, &p.OrganizationID, &p.InvoiceID, &p.PaymentMethodID,
			&p.MethodType, &p.Provider, &p.Amount, &p.Currency, &p.Status,
			&p.ProviderTransactionID, &p.ProviderFee, &p.ReceiptURL, &p.FailureReason,
			&p.Description, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

func (r *PaymentRepository) MarkSucceeded(ctx context.Context, id int64, transactionID string, fee decimal.Decimal, receiptURL string) error {
	// Terminal transitions only apply to pending rows; a finalized
	// payment is immutable.
	query := `
		UPDATE payments
		SET status = $2, provider_transaction_id = $3, provider_fee = $4,
		    receipt_url = NULLIF($5, ''), updated_at = NOW()
		WHERE id = $1 AND status = $6
	`

	tag, err := r.db.Exec(ctx, query, id, payment.PaymentStatusSucceeded, transactionID, fee, receiptURL, payment.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark payment succeeded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	query := `
		UPDATE payments
		SET status = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`

	tag, err := r.db.Exec(ctx, query, id, payment.PaymentStatusFailed, reason, payment.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

func (r *PaymentRepository) AttachInvoice(ctx context.Context, id, invoiceID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE payments SET invoice_id = $2, updated_at = NOW() WHERE id = $1`,
		id, invoiceID,
	)
	if err != nil {
		return fmt.Errorf("failed to attach invoice to payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}
