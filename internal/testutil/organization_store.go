// internal/testutil/organization_store.go
package testutil

import (
	"context"
	"database/sql"
	"sync"

	"malipo-service/internal/domain/organization"
	xerrors "malipo-service/internal/pkg/errors"
)

// InMemoryOrganizationStore implements organization.Repository for tests.
type InMemoryOrganizationStore struct {
	mu     sync.RWMutex
	orgs   map[int64]*organization.Organization
	nextID int64
}

func NewInMemoryOrganizationStore() *InMemoryOrganizationStore {
	return &InMemoryOrganizationStore{orgs: make(map[int64]*organization.Organization), nextID: 1}
}

func (s *InMemoryOrganizationStore) Create(ctx context.Context, org *organization.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org.ID = s.nextID
	s.nextID++
	cp := *org
	s.orgs[org.ID] = &cp
	return nil
}

func (s *InMemoryOrganizationStore) FindByID(ctx context.Context, id int64) (*organization.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "organization not found")
	}
	cp := *org
	return &cp, nil
}

func (s *InMemoryOrganizationStore) Update(ctx context.Context, org *organization.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[org.ID]; !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "organization not found")
	}
	cp := *org
	s.orgs[org.ID] = &cp
	return nil
}

func (s *InMemoryOrganizationStore) AttachPlan(ctx context.Context, orgID, planID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[orgID]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "organization not found")
	}
	org.PlanID = sql.NullInt64{Int64: planID, Valid: true}
	return nil
}

func (s *InMemoryOrganizationStore) DetachPlan(ctx context.Context, orgID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[orgID]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "organization not found")
	}
	org.PlanID = sql.NullInt64{}
	return nil
}
