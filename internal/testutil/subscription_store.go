// internal/testutil/subscription_store.go
package testutil

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"malipo-service/internal/domain/subscription"
	xerrors "malipo-service/internal/pkg/errors"
)

// InMemorySubscriptionStore implements subscription.Repository for tests.
type InMemorySubscriptionStore struct {
	mu     sync.RWMutex
	subs   map[int64]*subscription.Subscription
	nextID int64

	// FindDueErr, when set, is returned by FindDueForRenewal to simulate
	// a failing selection query.
	FindDueErr error
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{subs: make(map[int64]*subscription.Subscription), nextID: 1}
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.ID = s.nextID
	s.nextID++
	sub.CreatedAt = time.Now().UTC()
	sub.UpdatedAt = sub.CreatedAt
	cp := *sub
	s.subs[sub.ID] = &cp
	return nil
}

func (s *InMemorySubscriptionStore) FindByID(ctx context.Context, id int64) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "subscription not found")
	}
	cp := *sub
	return &cp, nil
}

func (s *InMemorySubscriptionStore) ListByOrganization(ctx context.Context, orgID int64, filters *subscription.SubscriptionListFilters) ([]subscription.Subscription, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []subscription.Subscription
	for _, sub := range s.subs {
		if sub.OrganizationID != orgID {
			continue
		}
		if filters != nil && filters.Status != "" && sub.Status != filters.Status {
			continue
		}
		out = append(out, *sub)
	}
	sortSubscriptionsByID(out)
	total := int64(len(out))
	if filters != nil && filters.Page > 0 && filters.PageSize > 0 {
		offset := (filters.Page - 1) * filters.PageSize
		if offset >= len(out) {
			return nil, total, nil
		}
		end := offset + filters.PageSize
		if end > len(out) {
			end = len(out)
		}
		out = out[offset:end]
	}
	return out, total, nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.ID]; !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "subscription not found")
	}
	sub.UpdatedAt = time.Now().UTC()
	cp := *sub
	s.subs[sub.ID] = &cp
	return nil
}

func (s *InMemorySubscriptionStore) UpdateStatus(ctx context.Context, id int64, status subscription.SubscriptionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "subscription not found")
	}
	sub.Status = status
	return nil
}

func (s *InMemorySubscriptionStore) SetPaymentMethod(ctx context.Context, id, methodID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "subscription not found")
	}
	sub.PaymentMethodID = sql.NullInt64{Int64: methodID, Valid: true}
	return nil
}

func (s *InMemorySubscriptionStore) SetCancellation(ctx context.Context, id int64, cancelAtPeriodEnd bool, canceledAt sql.NullTime) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "subscription not found")
	}
	sub.CancelAtPeriodEnd = cancelAtPeriodEnd
	sub.CanceledAt = canceledAt
	return nil
}

func (s *InMemorySubscriptionStore) Cancel(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "subscription not found")
	}
	sub.Status = subscription.StatusCanceled
	sub.CanceledAt = sql.NullTime{Time: at, Valid: true}
	sub.EndDate = sql.NullTime{Time: at, Valid: true}
	return nil
}

func (s *InMemorySubscriptionStore) AdvancePeriod(ctx context.Context, id int64, start, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "subscription not found")
	}
	sub.Status = subscription.StatusActive
	sub.CurrentPeriodStart = start
	sub.CurrentPeriodEnd = end
	sub.NextBillingDate = end
	sub.LastPaymentDate = sql.NullTime{Time: start, Valid: true}
	sub.TrialEndDate = sql.NullTime{}
	return nil
}

func (s *InMemorySubscriptionStore) IncrementFailedPayments(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "subscription not found")
	}
	sub.FailedPayments++
	return nil
}

func (s *InMemorySubscriptionStore) RecordPaymentRecovered(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "subscription not found")
	}
	sub.Status = subscription.StatusActive
	sub.FailedPayments = 0
	sub.LastPaymentDate = sql.NullTime{Time: at, Valid: true}
	return nil
}

func (s *InMemorySubscriptionStore) FindDueForRenewal(ctx context.Context, now time.Time) ([]subscription.Subscription, error) {
	if s.FindDueErr != nil {
		return nil, s.FindDueErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []subscription.Subscription
	for _, sub := range s.subs {
		due := !sub.NextBillingDate.After(now)
		renewable := sub.Status == subscription.StatusActive || sub.Status == subscription.StatusTrialing
		if due && renewable && !sub.CancelAtPeriodEnd {
			out = append(out, *sub)
		}
	}
	sortSubscriptionsByID(out)
	return out, nil
}

func (s *InMemorySubscriptionStore) FindDueForCancellation(ctx context.Context, now time.Time) ([]subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []subscription.Subscription
	for _, sub := range s.subs {
		elapsed := !sub.CurrentPeriodEnd.After(now)
		if elapsed && sub.Status == subscription.StatusActive && sub.CancelAtPeriodEnd {
			out = append(out, *sub)
		}
	}
	sortSubscriptionsByID(out)
	return out, nil
}

// Deterministic order keeps batch outcome assertions stable.
func sortSubscriptionsByID(subs []subscription.Subscription) {
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
}
