// internal/repository/postgres/invoice_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"malipo-service/internal/domain/invoice"
	xerrors "malipo-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InvoiceRepository struct {
	db *pgxpool.Pool
}

func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `
	id, number, organization_id, subscription_id,
	status, currency, description,
	subtotal, tax, amount, amount_due, amount_paid,
	due_date, paid_at, payment_id, receipt_url,
	created_at, updated_at
`

func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		INSERT INTO invoices (
			number, organization_id, subscription_id,
			status, currency, description,
			subtotal, tax, amount, amount_due, amount_paid,
			due_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		inv.Number, inv.OrganizationID, inv.SubscriptionID,
		inv.Status, inv.Currency, inv.Description,
		inv.Subtotal, inv.Tax, inv.Amount, inv.AmountDue, inv.AmountPaid,
		inv.DueDate,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	return nil
}

func (r *InvoiceRepository) FindByID(ctx context.Context, id int64) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *InvoiceRepository) FindByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE number = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, number))
}

func (r *InvoiceRepository) ListByOrganization(ctx context.Context, orgID int64) ([]invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE organization_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	return scanInvoices(rows)
}

func (r *InvoiceRepository) ListBySubscription(ctx context.Context, subID int64) ([]invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE subscription_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, subID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	return scanInvoices(rows)
}

// NextSequence bumps the durable per-day counter and returns the new
// value. The upsert keeps concurrent invoice creation race-free without a
// count query.
func (r *InvoiceRepository) NextSequence(ctx context.Context, day time.Time) (int, error) {
	query := `
		INSERT INTO invoice_counters (day, value)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET value = invoice_counters.value + 1
		RETURNING value
	`

	var seq int
	if err := r.db.QueryRow(ctx, query, day.Format("2006-01-02")).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to advance invoice counter: %w", err)
	}

	return seq, nil
}

func (r *InvoiceRepository) MarkPaid(ctx context.Context, id, paymentID int64, receiptURL string, paidAt time.Time) error {
	// The status guard makes the transition atomic: a second payer loses
	// the race and sees ErrAlreadyPaid.
	query := `
		UPDATE invoices
		SET status = $2,
		    amount_paid = amount_due, amount_due = 0,
		    paid_at = $3, payment_id = $4, receipt_url = NULLIF($5, ''),
		    updated_at = NOW()
		WHERE id = $1 AND status = $6
	`

	tag, err := r.db.Exec(ctx, query, id, invoice.StatusPaid, paidAt, paymentID, receiptURL, invoice.StatusOpen)
	if err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrAlreadyPaid
	}

	return nil
}

func (r *InvoiceRepository) scanOne(row pgx.Row) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.OrganizationID, &inv.SubscriptionID,
		&inv.Status, &inv.Currency, &inv.Description,
		&inv.Subtotal, &inv.Tax, &inv.Amount, &inv.AmountDue, &inv.AmountPaid,
		&inv.DueDate, &inv.PaidAt, &inv.PaymentID, &inv.ReceiptURL,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	return &inv, nil
}

func scanInvoices(rows pgx.Rows) ([]invoice.Invoice, error) {
	var invoices []invoice.Invoice
	for rows.Next() {
		var inv invoice.Invoice
		if err := rows.Scan(
			&inv.ID, &inv.Number, &inv.OrganizationID, &inv.SubscriptionID,
			&inv.Status, &inv.Currency, &inv.Description,
			&inv.Subtotal, &inv.Tax, &inv.Amount, &inv.AmountDue, &inv.AmountPaid,
			&inv.DueDate, &inv.PaidAt, &inv.PaymentID, &inv.ReceiptURL,
			&inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
