// internal/service/organization/organization_service.go
package organization

import (
	"context"
	"database/sql"
	"fmt"

	"malipo-service/internal/config"
	"malipo-service/internal/domain/organization"
	xerrors "malipo-service/internal/pkg/errors"
	"malipo-service/internal/pkg/phone"

	"go.uber.org/zap"
)

type OrganizationService struct {
	orgRepo organization.Repository
	cfg     *config.AppConfig
	logger  *zap.Logger
}

func NewOrganizationService(orgRepo organization.Repository, cfg *config.AppConfig, logger *zap.Logger) *OrganizationService {
	return &OrganizationService{orgRepo: orgRepo, cfg: cfg, logger: logger}
}

func (s *OrganizationService) CreateOrganization(ctx context.Context, req *organization.CreateOrganizationRequest) (*organization.Organization, error) {
	msisdn, err := phone.Normalize(req.Phone, s.cfg.PhoneCountryCode)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, err.Error())
	}

	org := &organization.Organization{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       msisdn,
		AddressLine: sql.NullString{String: req.AddressLine, Valid: req.AddressLine != ""},
		City:        sql.NullString{String: req.City, Valid: req.City != ""},
		Country:     sql.NullString{String: req.Country, Valid: req.Country != ""},
	}
	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	s.logger.Info("organization created",
		zap.Int64("organization_id", org.ID),
		zap.String("name", org.Name),
	)
	return org, nil
}

func (s *OrganizationService) GetOrganization(ctx context.Context, id int64) (*organization.Organization, error) {
	return s.orgRepo.FindByID(ctx, id)
}

func (s *OrganizationService) UpdateOrganization(ctx context.Context, id int64, req *organization.UpdateOrganizationRequest) (*organization.Organization, error) {
	org, err := s.orgRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		org.Name = *req.Name
	}
	if req.Email != nil {
		org.Email = *req.Email
	}
	if req.Phone != nil {
		msisdn, err := phone.Normalize(*req.Phone, s.cfg.PhoneCountryCode)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.ErrInvalidInput, err.Error())
		}
		org.Phone = msisdn
	}
	if req.AddressLine != nil {
		org.AddressLine = sql.NullString{String: *req.AddressLine, Valid: *req.AddressLine != ""}
	}
	if req.City != nil {
		org.City = sql.NullString{String: *req.City, Valid: *req.City != ""}
	}
	if req.Country != nil {
		org.Country = sql.NullString{String: *req.Country, Valid: *req.Country != ""}
	}

	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	return org, nil
}
