// internal/testutil/invoice_store.go
package testutil

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"malipo-service/internal/domain/invoice"
	xerrors "malipo-service/internal/pkg/errors"

	"github.com/shopspring/decimal"
)

// InMemoryInvoiceStore implements invoice.Repository for tests, with a
// durable-counter analogue for per-day invoice sequences.
type InMemoryInvoiceStore struct {
	mu       sync.RWMutex
	invoices map[int64]*invoice.Invoice
	counters map[string]int
	nextID   int64

	// CreateErrFor injects a creation failure for a specific
	// subscription, simulating a store error mid-batch.
	CreateErrFor map[int64]error
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		invoices: make(map[int64]*invoice.Invoice),
		counters: make(map[string]int),
		nextID:   1,
	}
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.CreateErrFor[inv.SubscriptionID]; ok {
		return err
	}
	inv.ID = s.nextID
	s.nextID++
	inv.CreatedAt = time.Now().UTC()
	inv.UpdatedAt = inv.CreatedAt
	cp := *inv
	s.invoices[inv.ID] = &cp
	return nil
}

func (s *InMemoryInvoiceStore) FindByID(ctx context.Context, id int64) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "invoice not found")
	}
	cp := *inv
	return &cp, nil
}

func (s *InMemoryInvoiceStore) FindByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.invoices {
		if inv.Number == number {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, xerrors.Wrap(xerrors.ErrNotFound, "invoice not found")
}

func (s *InMemoryInvoiceStore) ListByOrganization(ctx context.Context, orgID int64) ([]invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []invoice.Invoice
	for _, inv := range s.invoices {
		if inv.OrganizationID == orgID {
			out = append(out, *inv)
		}
	}
	sortInvoicesByID(out)
	return out, nil
}

func (s *InMemoryInvoiceStore) ListBySubscription(ctx context.Context, subID int64) ([]invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []invoice.Invoice
	for _, inv := range s.invoices {
		if inv.SubscriptionID == subID {
			out = append(out, *inv)
		}
	}
	sortInvoicesByID(out)
	return out, nil
}

func (s *InMemoryInvoiceStore) NextSequence(ctx context.Context, day time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := day.UTC().Format("20060102")
	s.counters[key]++
	return s.counters[key], nil
}

func (s *InMemoryInvoiceStore) MarkPaid(ctx context.Context, id, paymentID int64, receiptURL string, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "invoice not found")
	}
	if inv.Status != invoice.StatusOpen {
		return xerrors.Wrap(xerrors.ErrAlreadyPaid, "invoice is already paid")
	}
	inv.Status = invoice.StatusPaid
	inv.AmountPaid = inv.AmountPaid.Add(inv.AmountDue)
	inv.AmountDue = decimal.Zero
	inv.PaidAt = sql.NullTime{Time: paidAt, Valid: true}
	inv.PaymentID = sql.NullInt64{Int64: paymentID, Valid: true}
	inv.ReceiptURL = sql.NullString{String: receiptURL, Valid: receiptURL != ""}
	return nil
}

func sortInvoicesByID(invoices []invoice.Invoice) {
	sort.Slice(invoices, func(i, j int) bool { return invoices[i].ID < invoices[j].ID })
}
