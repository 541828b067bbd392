// internal/testutil/payment_store.go
package testutil

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"malipo-service/internal/domain/payment"
	xerrors "malipo-service/internal/pkg/errors"

	"github.com/shopspring/decimal"
)

// InMemoryPaymentStore implements payment.Repository for tests.
type InMemoryPaymentStore struct {
	mu       sync.RWMutex
	payments map[int64]*payment.Payment
	nextID   int64
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{payments: make(map[int64]*payment.Payment), nextID: 1}
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID
	s.nextID++
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s *InMemoryPaymentStore) FindByID(ctx context.Context, id int64) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "payment not found")
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryPaymentStore) ListByOrganization(ctx context.Context, orgID int64) ([]payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []payment.Payment
	for _, p := range s.payments {
		if p.OrganizationID == orgID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryPaymentStore) MarkSucceeded(ctx context.Context, id int64, transactionID string, fee decimal.Decimal, receiptURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "payment not found")
	}
	if p.Status != payment.PaymentStatusPending {
		return xerrors.Wrap(xerrors.ErrConflict, "payment is not pending")
	}
	p.Status = payment.PaymentStatusSucceeded
	p.ProviderTransactionID = sql.NullString{String: transactionID, Valid: true}
	p.ProviderFee = fee
	p.ReceiptURL = sql.NullString{String: receiptURL, Valid: receiptURL != ""}
	return nil
}

func (s *InMemoryPaymentStore) MarkFailed(ctx context.Context, id int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "payment not found")
	}
	if p.Status != payment.PaymentStatusPending {
		return xerrors.Wrap(xerrors.ErrConflict, "payment is not pending")
	}
	p.Status = payment.PaymentStatusFailed
	p.FailureReason = sql.NullString{String: reason, Valid: true}
	return nil
}

func (s *InMemoryPaymentStore) AttachInvoice(ctx context.Context, id, invoiceID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "payment not found")
	}
	p.InvoiceID = sql.NullInt64{Int64: invoiceID, Valid: true}
	return nil
}

// InMemoryPaymentMethodStore implements payment.MethodRepository for tests.
type InMemoryPaymentMethodStore struct {
	mu      sync.RWMutex
	methods map[int64]*payment.PaymentMethod
	nextID  int64
}

func NewInMemoryPaymentMethodStore() *InMemoryPaymentMethodStore {
	return &InMemoryPaymentMethodStore{methods: make(map[int64]*payment.PaymentMethod), nextID: 1}
}

func (s *InMemoryPaymentMethodStore) Create(ctx context.Context, m *payment.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.IsDefault {
		for _, other := range s.methods {
			if other.OrganizationID == m.OrganizationID {
				other.IsDefault = false
			}
		}
	}
	m.ID = s.nextID
	s.nextID++
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	cp := *m
	s.methods[m.ID] = &cp
	return nil
}

func (s *InMemoryPaymentMethodStore) FindByID(ctx context.Context, id int64) (*payment.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.methods[id]
	if !ok {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "payment method not found")
	}
	cp := *m
	return &cp, nil
}

func (s *InMemoryPaymentMethodStore) FindDefault(ctx context.Context, orgID int64) (*payment.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.methods {
		if m.OrganizationID == orgID && m.IsDefault {
			cp := *m
			return &cp, nil
		}
	}
	return nil, xerrors.Wrap(xerrors.ErrNotFound, "no default payment method")
}

func (s *InMemoryPaymentMethodStore) ListByOrganization(ctx context.Context, orgID int64) ([]payment.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []payment.PaymentMethod
	for _, m := range s.methods {
		if m.OrganizationID == orgID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryPaymentMethodStore) SetDefault(ctx context.Context, orgID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.methods[id]
	if !ok || target.OrganizationID != orgID {
		return xerrors.Wrap(xerrors.ErrNotFound, "payment method not found")
	}
	for _, m := range s.methods {
		if m.OrganizationID == orgID {
			m.IsDefault = m.ID == id
		}
	}
	return nil
}

func (s *InMemoryPaymentMethodStore) SetProviderData(ctx context.Context, id int64, data payment.ProviderData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.methods[id]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "payment method not found")
	}
	m.ProviderData = data
	return nil
}

func (s *InMemoryPaymentMethodStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.methods[id]; !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "payment method not found")
	}
	delete(s.methods, id)
	return nil
}
