// internal/domain/invoice/repository.go
package invoice

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	FindByID(ctx context.Context, id int64) (*Invoice, error)
	FindByNumber(ctx context.Context, number string) (*Invoice, error)
	ListByOrganization(ctx context.Context, orgID int64) ([]Invoice, error)
	ListBySubscription(ctx context.Context, subID int64) ([]Invoice, error)

	// NextSequence returns the next per-day invoice sequence number for
	// the calendar day of the given timestamp, starting at 1. Backed by
	// a durable counter so concurrent invoice creation cannot race.
	NextSequence(ctx context.Context, day time.Time) (int, error)

	// MarkPaid atomically transitions an open invoice to paid:
	// amount_paid = amount_due, amount_due = 0, paid_at, payment and
	// receipt references. Returns xerrors.ErrAlreadyPaid if the invoice
	// is not open.
	MarkPaid(ctx context.Context, id, paymentID int64, receiptURL string, paidAt time.Time) error
}
