// internal/service/invoice/invoice_service.go
package invoice

import (
	"context"
	"fmt"
	"time"

	"malipo-service/internal/config"
	"malipo-service/internal/domain/invoice"
	"malipo-service/internal/domain/organization"
	"malipo-service/internal/domain/plan"
	"malipo-service/internal/domain/subscription"
	"malipo-service/internal/events"
	xerrors "malipo-service/internal/pkg/errors"
	paymentsvc "malipo-service/internal/service/payment"

	"go.uber.org/zap"
)

type InvoiceService struct {
	invoiceRepo invoice.Repository
	subRepo     subscription.Repository
	planRepo    plan.Repository
	orgRepo     organization.Repository
	payments    *paymentsvc.PaymentService
	events      events.Publisher
	cfg         *config.AppConfig
	logger      *zap.Logger
}

func NewInvoiceService(
	invoiceRepo invoice.Repository,
	subRepo subscription.Repository,
	planRepo plan.Repository,
	orgRepo organization.Repository,
	payments *paymentsvc.PaymentService,
	publisher events.Publisher,
	cfg *config.AppConfig,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		subRepo:     subRepo,
		planRepo:    planRepo,
		orgRepo:     orgRepo,
		payments:    payments,
		events:      publisher,
		cfg:         cfg,
		logger:      logger,
	}
}

// CreateInvoice generates an invoice for the subscription's current
// period and, when the subscription carries a payment method, attempts
// to collect it immediately. A failed collection never fails invoice
// creation: the invoice stays open and the subscription is moved to
// past due.
func (s *InvoiceService) CreateInvoice(ctx context.Context, subscriptionID int64) (*invoice.Invoice, error) {
	sub, err := s.subRepo.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("subscription not found: %w", err)
	}
	pl, err := s.planRepo.FindByID(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("subscription plan not found: %w", err)
	}

	now := time.Now().UTC()
	number, err := s.nextNumber(ctx, now)
	if err != nil {
		return nil, err
	}

	subtotal := pl.Price.Round(2)
	tax := subtotal.Mul(s.cfg.TaxRate).Round(2)
	amount := subtotal.Add(tax)

	inv := &invoice.Invoice{
		Number:         number,
		OrganizationID: sub.OrganizationID,
		SubscriptionID: sub.ID,
		Status:         invoice.StatusOpen,
		Currency:       pl.Currency,
		Description:    fmt.Sprintf("%s (%s)", pl.Name, pl.Interval),
		Subtotal:       subtotal,
		Tax:            tax,
		Amount:         amount,
		AmountDue:      amount,
		DueDate:        now.AddDate(0, 0, s.cfg.InvoiceDueDays),
	}
	if err := s.invoiceRepo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.logger.Info("invoice created",
		zap.String("number", inv.Number),
		zap.Int64("organization_id", inv.OrganizationID),
		zap.Int64("subscription_id", inv.SubscriptionID),
		zap.String("amount", inv.Amount.String()),
	)
	s.publish(inv.OrganizationID, events.EventInvoiceCreated, inv)

	if sub.PaymentMethodID.Valid {
		paid, err := s.PayInvoice(ctx, inv.OrganizationID, inv.ID, sub.PaymentMethodID.Int64)
		if err != nil {
			s.handleChargeFailure(ctx, sub, inv, err)
			return inv, nil
		}
		return paid, nil
	}
	return inv, nil
}

// PayInvoice charges the given payment method for the invoice's open
// balance and settles the invoice on success.
func (s *InvoiceService) PayInvoice(ctx context.Context, orgID, invoiceID, methodID int64) (*invoice.Invoice, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.OrganizationID != orgID {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "invoice not found")
	}
	if inv.Status == invoice.StatusPaid {
		return nil, xerrors.Wrap(xerrors.ErrAlreadyPaid, fmt.Sprintf("invoice %s is already paid", inv.Number))
	}

	pmt, err := s.payments.ProcessPayment(ctx, orgID, paymentsvc.ChargeParams{
		Amount:          inv.AmountDue,
		Currency:        inv.Currency,
		PaymentMethodID: methodID,
		Description:     fmt.Sprintf("Invoice %s", inv.Number),
	})
	if err != nil {
		return nil, err
	}

	if err := s.payments.AttachInvoice(ctx, pmt.ID, inv.ID); err != nil {
		s.logger.Error("failed to attach payment to invoice",
			zap.Int64("payment_id", pmt.ID), zap.Int64("invoice_id", inv.ID), zap.Error(err))
	}

	paidAt := time.Now().UTC()
	if err := s.invoiceRepo.MarkPaid(ctx, inv.ID, pmt.ID, pmt.ReceiptURL.String, paidAt); err != nil {
		return nil, err
	}
	if err := s.subRepo.RecordPaymentRecovered(ctx, inv.SubscriptionID, paidAt); err != nil {
		s.logger.Error("failed to record payment recovery on subscription",
			zap.Int64("subscription_id", inv.SubscriptionID), zap.Error(err))
	}

	inv, err = s.invoiceRepo.FindByID(ctx, inv.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice paid",
		zap.String("number", inv.Number),
		zap.Int64("organization_id", inv.OrganizationID),
		zap.Int64("payment_id", pmt.ID),
	)
	s.publish(inv.OrganizationID, events.EventInvoicePaid, inv)
	return inv, nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, orgID, invoiceID int64) (*invoice.Invoice, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.OrganizationID != orgID {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "invoice not found")
	}
	return inv, nil
}

func (s *InvoiceService) ListInvoices(ctx context.Context, orgID int64) ([]invoice.Invoice, error) {
	return s.invoiceRepo.ListByOrganization(ctx, orgID)
}

// RenderInvoicePDF renders the invoice document, billing to the
// organization's own address fields.
func (s *InvoiceService) RenderInvoicePDF(ctx context.Context, orgID, invoiceID int64) ([]byte, error) {
	inv, err := s.GetInvoice(ctx, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return RenderPDF(inv, org, nil)
}

// nextNumber formats INV-YYYYMMDD-NNNN from the durable per-day counter.
func (s *InvoiceService) nextNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.invoiceRepo.NextSequence(ctx, now)
	if err != nil {
		return "", fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%s-%04d", now.Format("20060102"), seq), nil
}

// handleChargeFailure records a failed automatic collection: the
// failure counter is bumped and an active subscription drops to past
// due. The open invoice is left for a later manual or retried payment.
func (s *InvoiceService) handleChargeFailure(ctx context.Context, sub *subscription.Subscription, inv *invoice.Invoice, cause error) {
	s.logger.Warn("automatic invoice collection failed",
		zap.String("number", inv.Number),
		zap.Int64("subscription_id", sub.ID),
		zap.Error(cause),
	)

	if err := s.subRepo.IncrementFailedPayments(ctx, sub.ID); err != nil {
		s.logger.Error("failed to increment failed payment counter",
			zap.Int64("subscription_id", sub.ID), zap.Error(err))
	}
	if sub.Status == subscription.StatusActive {
		if err := s.subRepo.UpdateStatus(ctx, sub.ID, subscription.StatusPastDue); err != nil {
			s.logger.Error("failed to move subscription to past due",
				zap.Int64("subscription_id", sub.ID), zap.Error(err))
		} else {
			s.publish(sub.OrganizationID, events.EventSubscriptionPastDue, sub)
		}
	}
	s.publish(sub.OrganizationID, events.EventPaymentFailed, inv)
}

func (s *InvoiceService) publish(orgID int64, eventType events.EventType, data interface{}) {
	if s.events != nil {
		s.events.Publish(orgID, eventType, data)
	}
}
