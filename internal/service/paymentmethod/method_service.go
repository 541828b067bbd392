// internal/service/paymentmethod/method_service.go
package paymentmethod

import (
	"context"
	"database/sql"
	"fmt"

	"malipo-service/internal/config"
	"malipo-service/internal/domain/payment"
	xerrors "malipo-service/internal/pkg/errors"
	"malipo-service/internal/pkg/phone"
	"malipo-service/internal/pkg/ref"
	"malipo-service/internal/provider"

	"go.uber.org/zap"
)

type MethodService struct {
	methodRepo payment.MethodRepository
	registry   *provider.Registry
	cfg        *config.AppConfig
	logger     *zap.Logger
}

func NewMethodService(
	methodRepo payment.MethodRepository,
	registry *provider.Registry,
	cfg *config.AppConfig,
	logger *zap.Logger,
) *MethodService {
	return &MethodService{
		methodRepo: methodRepo,
		registry:   registry,
		cfg:        cfg,
		logger:     logger,
	}
}

// providerFor routes a method type to the provider configured for its rail.
func (s *MethodService) providerFor(methodType payment.MethodType) (provider.Provider, error) {
	var name string
	switch methodType {
	case payment.MethodTypeCard:
		name = s.cfg.CardProvider
	case payment.MethodTypeBankAccount:
		name = s.cfg.BankProvider
	case payment.MethodTypeMpesa:
		name = s.cfg.MobileProvider
	default:
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("unknown payment method type %q", methodType))
	}
	return s.registry.Get(name)
}

// AddCard tokenizes card details with the configured card provider and
// stores only the masked representation. The raw number and CVV are
// never persisted.
func (s *MethodService) AddCard(ctx context.Context, orgID int64, req *payment.AddCardRequest) (*payment.PaymentMethod, error) {
	if err := validateCard(req); err != nil {
		return nil, err
	}

	p, err := s.providerFor(payment.MethodTypeCard)
	if err != nil {
		return nil, err
	}

	method := &payment.PaymentMethod{
		Reference:      ref.New("PM"),
		OrganizationID: orgID,
		Type:           payment.MethodTypeCard,
		Provider:       p.Name(),
		Brand:          sql.NullString{String: string(payment.DetectCardBrand(req.Number)), Valid: true},
		LastFour:       sql.NullString{String: payment.MaskNumber(req.Number), Valid: true},
		ExpiryMonth:    sql.NullInt32{Int32: int32(req.ExpiryMonth), Valid: true},
		ExpiryYear:     sql.NullInt32{Int32: int32(req.ExpiryYear), Valid: true},
		AccountName:    sql.NullString{String: req.HolderName, Valid: true},
	}

	if err := s.methodRepo.Create(ctx, method); err != nil {
		return nil, fmt.Errorf("failed to create payment method: %w", err)
	}

	result, err := p.TokenizeCard(ctx, provider.CardDetails{
		Number:      req.Number,
		CVV:         req.CVV,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		HolderName:  req.HolderName,
	})
	if err != nil {
		// Compensate so a failed tokenization leaves no orphan record.
		if delErr := s.methodRepo.Delete(ctx, method.ID); delErr != nil {
			s.logger.Error("failed to remove payment method after tokenization failure",
				zap.Int64("method_id", method.ID), zap.Error(delErr))
		}
		return nil, xerrors.Wrap(xerrors.ErrProviderFailure, fmt.Sprintf("card tokenization failed: %v", err))
	}

	data := payment.ProviderData{
		Provider: p.Name(),
		Card:     &payment.CardToken{Token: result.Token, ExpiresAt: result.ExpiresAt},
	}
	if err := s.methodRepo.SetProviderData(ctx, method.ID, data); err != nil {
		return nil, fmt.Errorf("failed to store provider token: %w", err)
	}
	method.ProviderData = data

	if req.IsDefault {
		if err := s.promoteDefault(ctx, method); err != nil {
			return nil, err
		}
	}

	s.logger.Info("card payment method added",
		zap.Int64("organization_id", orgID),
		zap.Int64("method_id", method.ID),
		zap.String("brand", method.Brand.String),
	)
	return method, nil
}

// AddBankAccount tokenizes bank account details and stores the masked
// account number.
func (s *MethodService) AddBankAccount(ctx context.Context, orgID int64, req *payment.AddBankAccountRequest) (*payment.PaymentMethod, error) {
	if err := validateBankAccount(req); err != nil {
		return nil, err
	}

	p, err := s.providerFor(payment.MethodTypeBankAccount)
	if err != nil {
		return nil, err
	}

	method := &payment.PaymentMethod{
		Reference:      ref.New("PM"),
		OrganizationID: orgID,
		Type:           payment.MethodTypeBankAccount,
		Provider:       p.Name(),
		LastFour:       sql.NullString{String: payment.MaskNumber(req.AccountNumber), Valid: true},
		BankName:       sql.NullString{String: req.BankName, Valid: true},
		AccountName:    sql.NullString{String: req.AccountName, Valid: true},
	}

	if err := s.methodRepo.Create(ctx, method); err != nil {
		return nil, fmt.Errorf("failed to create payment method: %w", err)
	}

	result, err := p.TokenizeBankAccount(ctx, provider.BankAccountDetails{
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
		BankName:      req.BankName,
		BankCode:      req.BankCode,
	})
	if err != nil {
		if delErr := s.methodRepo.Delete(ctx, method.ID); delErr != nil {
			s.logger.Error("failed to remove payment method after tokenization failure",
				zap.Int64("method_id", method.ID), zap.Error(delErr))
		}
		return nil, xerrors.Wrap(xerrors.ErrProviderFailure, fmt.Sprintf("bank account tokenization failed: %v", err))
	}

	data := payment.ProviderData{
		Provider: p.Name(),
		Bank:     &payment.BankToken{Token: result.Token, ExpiresAt: result.ExpiresAt},
	}
	if err := s.methodRepo.SetProviderData(ctx, method.ID, data); err != nil {
		return nil, fmt.Errorf("failed to store provider token: %w", err)
	}
	method.ProviderData = data

	if req.IsDefault {
		if err := s.promoteDefault(ctx, method); err != nil {
			return nil, err
		}
	}

	s.logger.Info("bank account payment method added",
		zap.Int64("organization_id", orgID),
		zap.Int64("method_id", method.ID),
	)
	return method, nil
}

// AddMpesa registers an M-Pesa line as a payment method. There is no
// tokenization step; the normalized MSISDN is the charge handle.
func (s *MethodService) AddMpesa(ctx context.Context, orgID int64, req *payment.AddMpesaRequest) (*payment.PaymentMethod, error) {
	msisdn, err := phone.Normalize(req.PhoneNumber, s.cfg.PhoneCountryCode)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, err.Error())
	}

	p, err := s.providerFor(payment.MethodTypeMpesa)
	if err != nil {
		return nil, err
	}

	method := &payment.PaymentMethod{
		Reference:      ref.New("PM"),
		OrganizationID: orgID,
		Type:           payment.MethodTypeMpesa,
		Provider:       p.Name(),
		PhoneNumber:    sql.NullString{String: msisdn, Valid: true},
		AccountName:    sql.NullString{String: req.AccountName, Valid: req.AccountName != ""},
	}

	if err := s.methodRepo.Create(ctx, method); err != nil {
		return nil, fmt.Errorf("failed to create payment method: %w", err)
	}

	data := payment.ProviderData{
		Provider: p.Name(),
		Mpesa:    &payment.MpesaAccount{Msisdn: msisdn},
	}
	if err := s.methodRepo.SetProviderData(ctx, method.ID, data); err != nil {
		return nil, fmt.Errorf("failed to store provider data: %w", err)
	}
	method.ProviderData = data

	if req.IsDefault {
		if err := s.promoteDefault(ctx, method); err != nil {
			return nil, err
		}
	}

	s.logger.Info("mpesa payment method added",
		zap.Int64("organization_id", orgID),
		zap.Int64("method_id", method.ID),
	)
	return method, nil
}

func (s *MethodService) GetMethod(ctx context.Context, orgID, methodID int64) (*payment.PaymentMethod, error) {
	method, err := s.methodRepo.FindByID(ctx, methodID)
	if err != nil {
		return nil, err
	}
	if method.OrganizationID != orgID {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "payment method not found")
	}
	return method, nil
}

func (s *MethodService) ListMethods(ctx context.Context, orgID int64) ([]payment.PaymentMethod, error) {
	methods, err := s.methodRepo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	return methods, nil
}

// promoteDefault flips the default flag to a freshly added method. The
// flip happens only after the provider has accepted the details, so an
// add that fails tokenization never displaces the existing default.
func (s *MethodService) promoteDefault(ctx context.Context, method *payment.PaymentMethod) error {
	if err := s.methodRepo.SetDefault(ctx, method.OrganizationID, method.ID); err != nil {
		return fmt.Errorf("failed to set default payment method: %w", err)
	}
	method.IsDefault = true
	return nil
}

// SetDefault marks a method as the organization's default, clearing the
// flag from every other method in the same transaction.
func (s *MethodService) SetDefault(ctx context.Context, orgID, methodID int64) error {
	if _, err := s.GetMethod(ctx, orgID, methodID); err != nil {
		return err
	}
	if err := s.methodRepo.SetDefault(ctx, orgID, methodID); err != nil {
		return fmt.Errorf("failed to set default payment method: %w", err)
	}
	return nil
}

func (s *MethodService) DeleteMethod(ctx context.Context, orgID, methodID int64) error {
	if _, err := s.GetMethod(ctx, orgID, methodID); err != nil {
		return err
	}
	if err := s.methodRepo.Delete(ctx, methodID); err != nil {
		return fmt.Errorf("failed to delete payment method: %w", err)
	}
	return nil
}
