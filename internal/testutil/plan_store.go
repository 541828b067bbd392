// internal/testutil/plan_store.go
package testutil

import (
	"context"
	"sort"
	"sync"

	"malipo-service/internal/domain/plan"
	xerrors "malipo-service/internal/pkg/errors"
)

// InMemoryPlanStore implements plan.Repository for tests.
type InMemoryPlanStore struct {
	mu     sync.RWMutex
	plans  map[int64]*plan.SubscriptionPlan
	nextID int64
}

func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{plans: make(map[int64]*plan.SubscriptionPlan), nextID: 1}
}

func (s *InMemoryPlanStore) Create(ctx context.Context, p *plan.SubscriptionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID
	s.nextID++
	cp := *p
	s.plans[p.ID] = &cp
	return nil
}

func (s *InMemoryPlanStore) FindByID(ctx context.Context, id int64) (*plan.SubscriptionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "plan not found")
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryPlanStore) FindByCode(ctx context.Context, code string) (*plan.SubscriptionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.plans {
		if p.PlanCode == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, xerrors.Wrap(xerrors.ErrNotFound, "plan not found")
}

func (s *InMemoryPlanStore) List(ctx context.Context, filters *plan.PlanListFilters) ([]plan.SubscriptionPlan, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []plan.SubscriptionPlan
	for _, p := range s.plans {
		if filters != nil && filters.Status != "" && p.Status != filters.Status {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
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

func (s *InMemoryPlanStore) Archive(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "plan not found")
	}
	p.Status = plan.StatusArchived
	return nil
}
