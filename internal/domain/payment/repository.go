// internal/domain/payment/repository.go
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository is the append-only audit trail of money movement.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	FindByID(ctx context.Context, id int64) (*Payment, error)
	ListByOrganization(ctx context.Context, orgID int64) ([]Payment, error)

	MarkSucceeded(ctx context.Context, id int64, transactionID string, fee decimal.Decimal, receiptURL string) error
	MarkFailed(ctx context.Context, id int64, reason string) error

	// AttachInvoice links a payment to the invoice it settled. This is
	// the only mutation allowed on a terminal payment.
	AttachInvoice(ctx context.Context, id, invoiceID int64) error
}

type MethodRepository interface {
	// Create persists the method; when m.IsDefault is set, the default
	// flag on the organization's other methods is cleared in the same
	// transaction.
	Create(ctx context.Context, m *PaymentMethod) error
	FindByID(ctx context.Context, id int64) (*PaymentMethod, error)
	FindDefault(ctx context.Context, orgID int64) (*PaymentMethod, error)
	ListByOrganization(ctx context.Context, orgID int64) ([]PaymentMethod, error)

	// SetDefault flips the default flag to the given method within a
	// single transaction, leaving exactly one default afterwards.
	SetDefault(ctx context.Context, orgID, id int64) error

	SetProviderData(ctx context.Context, id int64, data ProviderData) error
	Delete(ctx context.Context, id int64) error
}
