// internal/service/payment/payment_service.go
package payment

import (
	"context"
	"database/sql"
	"fmt"

	"malipo-service/internal/config"
	"malipo-service/internal/domain/payment"
	xerrors "malipo-service/internal/pkg/errors"
	"malipo-service/internal/pkg/ref"
	"malipo-service/internal/provider"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService orchestrates a single charge: it records a pending
// payment, dispatches to the provider for the method's rail and settles
// the row into exactly one terminal state.
type PaymentService struct {
	paymentRepo payment.Repository
	methodRepo  payment.MethodRepository
	registry    *provider.Registry
	cfg         *config.AppConfig
	logger      *zap.Logger
}

func NewPaymentService(
	paymentRepo payment.Repository,
	methodRepo payment.MethodRepository,
	registry *provider.Registry,
	cfg *config.AppConfig,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		methodRepo:  methodRepo,
		registry:    registry,
		cfg:         cfg,
		logger:      logger,
	}
}

type ChargeParams struct {
	Amount          decimal.Decimal
	Currency        string
	PaymentMethodID int64
	Description     string
}

// ProcessPayment executes one charge against a stored payment method.
// The returned payment row is terminal: succeeded with the provider's
// transaction details, or failed with the reason recorded. Retrying a
// failed charge creates a new payment row.
func (s *PaymentService) ProcessPayment(ctx context.Context, orgID int64, params ChargeParams) (*payment.Payment, error) {
	if !params.Amount.IsPositive() {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "payment amount must be positive")
	}

	method, err := s.methodRepo.FindByID(ctx, params.PaymentMethodID)
	if err != nil {
		return nil, err
	}
	if method.OrganizationID != orgID {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "payment method not found")
	}

	p, err := s.registry.Get(method.Provider)
	if err != nil {
		return nil, err
	}

	currency := params.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}

	pmt := &payment.Payment{
		Reference:       ref.New("PAY"),
		OrganizationID:  orgID,
		PaymentMethodID: method.ID,
		MethodType:      method.Type,
		Provider:        method.Provider,
		Amount:          params.Amount,
		Currency:        currency,
		Status:          payment.PaymentStatusPending,
		Description:     sql.NullString{String: params.Description, Valid: params.Description != ""},
	}
	if err := s.paymentRepo.Create(ctx, pmt); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	result, err := s.charge(ctx, p, method, pmt)
	if err != nil || !result.Success {
		reason := failureReason(result, err)
		if markErr := s.paymentRepo.MarkFailed(ctx, pmt.ID, reason); markErr != nil {
			s.logger.Error("failed to mark payment failed",
				zap.Int64("payment_id", pmt.ID), zap.Error(markErr))
		}
		pmt.Status = payment.PaymentStatusFailed
		pmt.FailureReason = sql.NullString{String: reason, Valid: true}

		s.logger.Warn("payment declined",
			zap.Int64("organization_id", orgID),
			zap.String("reference", pmt.Reference),
			zap.String("provider", method.Provider),
			zap.String("reason", reason),
		)
		return pmt, xerrors.Wrap(xerrors.ErrProviderFailure, reason)
	}

	if err := s.paymentRepo.MarkSucceeded(ctx, pmt.ID, result.TransactionID, result.ProviderFee, result.ReceiptURL); err != nil {
		return nil, fmt.Errorf("failed to mark payment succeeded: %w", err)
	}
	pmt.Status = payment.PaymentStatusSucceeded
	pmt.ProviderTransactionID = sql.NullString{String: result.TransactionID, Valid: true}
	pmt.ProviderFee = result.ProviderFee
	pmt.ReceiptURL = sql.NullString{String: result.ReceiptURL, Valid: result.ReceiptURL != ""}

	s.logger.Info("payment succeeded",
		zap.Int64("organization_id", orgID),
		zap.String("reference", pmt.Reference),
		zap.String("provider", method.Provider),
		zap.String("transaction_id", result.TransactionID),
	)
	return pmt, nil
}

// charge dispatches to the provider method matching the payment rail.
func (s *PaymentService) charge(ctx context.Context, p provider.Provider, method *payment.PaymentMethod, pmt *payment.Payment) (*provider.ChargeResult, error) {
	req := provider.ChargeRequest{
		Amount:      pmt.Amount,
		Currency:    pmt.Currency,
		Description: pmt.Description.String,
		Reference:   pmt.Reference,
	}

	switch method.Type {
	case payment.MethodTypeCard:
		if method.ProviderData.Card == nil {
			return nil, xerrors.Wrap(xerrors.ErrInternal, "payment method has no card token")
		}
		req.Token = method.ProviderData.Card.Token
		return p.ChargeCard(ctx, req)

	case payment.MethodTypeBankAccount:
		if method.ProviderData.Bank == nil {
			return nil, xerrors.Wrap(xerrors.ErrInternal, "payment method has no bank token")
		}
		req.Token = method.ProviderData.Bank.Token
		return p.ChargeBankAccount(ctx, req)

	case payment.MethodTypeMpesa:
		if method.ProviderData.Mpesa == nil {
			return nil, xerrors.Wrap(xerrors.ErrInternal, "payment method has no mpesa account")
		}
		req.Phone = method.ProviderData.Mpesa.Msisdn
		return p.ChargeMobileMoney(ctx, req)

	default:
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("unknown payment method type %q", method.Type))
	}
}

func (s *PaymentService) GetPayment(ctx context.Context, orgID, paymentID int64) (*payment.Payment, error) {
	pmt, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if pmt.OrganizationID != orgID {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "payment not found")
	}
	return pmt, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, orgID int64) ([]payment.Payment, error) {
	return s.paymentRepo.ListByOrganization(ctx, orgID)
}

// AttachInvoice links a settled payment to the invoice it paid.
func (s *PaymentService) AttachInvoice(ctx context.Context, paymentID, invoiceID int64) error {
	return s.paymentRepo.AttachInvoice(ctx, paymentID, invoiceID)
}

func failureReason(result *provider.ChargeResult, err error) string {
	if err != nil {
		return err.Error()
	}
	if result != nil && result.Status != "" {
		return fmt.Sprintf("charge declined with status %s", result.Status)
	}
	return "charge declined"
}
