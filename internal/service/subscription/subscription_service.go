// internal/service/subscription/subscription_service.go
package subscription

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"malipo-service/internal/domain/organization"
	"malipo-service/internal/domain/payment"
	"malipo-service/internal/domain/plan"
	"malipo-service/internal/domain/subscription"
	"malipo-service/internal/events"
	xerrors "malipo-service/internal/pkg/errors"
	"malipo-service/internal/pkg/period"
	"malipo-service/internal/pkg/ref"
	invoicesvc "malipo-service/internal/service/invoice"

	"go.uber.org/zap"
)

type SubscriptionService struct {
	subRepo    subscription.Repository
	planRepo   plan.Repository
	orgRepo    organization.Repository
	methodRepo payment.MethodRepository
	invoices   *invoicesvc.InvoiceService
	events     events.Publisher
	logger     *zap.Logger
}

func NewSubscriptionService(
	subRepo subscription.Repository,
	planRepo plan.Repository,
	orgRepo organization.Repository,
	methodRepo payment.MethodRepository,
	invoices *invoicesvc.InvoiceService,
	publisher events.Publisher,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subRepo:    subRepo,
		planRepo:   planRepo,
		orgRepo:    orgRepo,
		methodRepo: methodRepo,
		invoices:   invoices,
		events:     publisher,
		logger:     logger,
	}
}

// CreateSubscription starts a subscription on a plan. Plans with a
// trial window open in trialing with the first bill at trial end; plans
// without one open in active and, when a payment method was supplied,
// are invoiced immediately.
func (s *SubscriptionService) CreateSubscription(ctx context.Context, orgID int64, req *subscription.CreateSubscriptionRequest) (*subscription.Subscription, error) {
	pl, err := s.planRepo.FindByID(ctx, req.PlanID)
	if err != nil {
		return nil, fmt.Errorf("subscription plan not found: %w", err)
	}
	if pl.Status != plan.StatusActive {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "subscription plan is not active")
	}
	if _, err := s.orgRepo.FindByID(ctx, orgID); err != nil {
		return nil, fmt.Errorf("organization not found: %w", err)
	}

	var methodID sql.NullInt64
	if req.PaymentMethodID != nil {
		if err := s.checkMethodOwnership(ctx, orgID, *req.PaymentMethodID); err != nil {
			return nil, err
		}
		methodID = sql.NullInt64{Int64: *req.PaymentMethodID, Valid: true}
	}

	now := time.Now().UTC()
	periodEnd := period.NextEnd(now, pl.Interval, pl.IntervalCount)

	sub := &subscription.Subscription{
		Reference:          ref.New("SUB"),
		OrganizationID:     orgID,
		PlanID:             pl.ID,
		PaymentMethodID:    methodID,
		StartDate:          now,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd,
	}

	if pl.HasTrial() {
		trialEnd := period.TrialEnd(now, int(pl.TrialPeriodDays.Int32))
		sub.Status = subscription.StatusTrialing
		sub.TrialEndDate = sql.NullTime{Time: trialEnd, Valid: true}
		sub.NextBillingDate = trialEnd
	} else {
		sub.Status = subscription.StatusActive
		sub.NextBillingDate = periodEnd
	}

	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	if err := s.orgRepo.AttachPlan(ctx, orgID, pl.ID); err != nil {
		s.logger.Error("failed to attach plan to organization",
			zap.Int64("organization_id", orgID), zap.Error(err))
	}

	s.logger.Info("subscription created",
		zap.String("reference", sub.Reference),
		zap.Int64("organization_id", orgID),
		zap.String("plan_code", pl.PlanCode),
		zap.String("status", string(sub.Status)),
	)
	s.publish(orgID, events.EventSubscriptionCreated, sub)

	// No trial and a method attached means the first period is billed
	// up front. Collection failures surface through the invoice, not
	// here.
	if sub.Status == subscription.StatusActive && sub.PaymentMethodID.Valid {
		if _, err := s.invoices.CreateInvoice(ctx, sub.ID); err != nil {
			s.logger.Error("failed to create initial invoice",
				zap.Int64("subscription_id", sub.ID), zap.Error(err))
		}
		return s.subRepo.FindByID(ctx, sub.ID)
	}
	return sub, nil
}

// ChangeSubscription moves the subscription to a different plan.
// Upgrades to a pricier plan take effect immediately with a fresh
// period and invoice; downgrades are recorded now and priced from the
// next renewal.
func (s *SubscriptionService) ChangeSubscription(ctx context.Context, orgID, subID int64, req *subscription.ChangeSubscriptionRequest) (*subscription.Subscription, error) {
	sub, err := s.getOwned(ctx, orgID, subID)
	if err != nil {
		return nil, err
	}
	if sub.IsTerminal() {
		return nil, xerrors.Wrap(xerrors.ErrConflict, "subscription is canceled")
	}

	newPlan, err := s.planRepo.FindByID(ctx, req.PlanID)
	if err != nil {
		return nil, fmt.Errorf("subscription plan not found: %w", err)
	}
	if newPlan.Status != plan.StatusActive {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "subscription plan is not active")
	}
	oldPlan, err := s.planRepo.FindByID(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("current plan not found: %w", err)
	}

	if req.PaymentMethodID != nil {
		if err := s.checkMethodOwnership(ctx, orgID, *req.PaymentMethodID); err != nil {
			return nil, err
		}
		sub.PaymentMethodID = sql.NullInt64{Int64: *req.PaymentMethodID, Valid: true}
	}

	upgrade := newPlan.Price.GreaterThan(oldPlan.Price)
	// A plan change on an incomplete subscription with a method attached
	// also opens the first billable period.
	activate := sub.Status == subscription.StatusIncomplete && sub.PaymentMethodID.Valid
	sub.PlanID = newPlan.ID
	sub.CancelAtPeriodEnd = false
	sub.CanceledAt = sql.NullTime{}

	if upgrade || activate {
		now := time.Now().UTC()
		sub.CurrentPeriodStart = now
		sub.CurrentPeriodEnd = period.NextEnd(now, newPlan.Interval, newPlan.IntervalCount)
		sub.NextBillingDate = sub.CurrentPeriodEnd
		if sub.Status == subscription.StatusTrialing || sub.Status == subscription.StatusIncomplete {
			sub.Status = subscription.StatusActive
			sub.TrialEndDate = sql.NullTime{}
		}
	}

	if err := s.subRepo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}
	if err := s.orgRepo.AttachPlan(ctx, orgID, newPlan.ID); err != nil {
		s.logger.Error("failed to attach plan to organization",
			zap.Int64("organization_id", orgID), zap.Error(err))
	}

	s.logger.Info("subscription plan changed",
		zap.String("reference", sub.Reference),
		zap.String("from", oldPlan.PlanCode),
		zap.String("to", newPlan.PlanCode),
		zap.Bool("upgrade", upgrade),
	)

	if upgrade || activate {
		if _, err := s.invoices.CreateInvoice(ctx, sub.ID); err != nil {
			s.logger.Error("failed to create upgrade invoice",
				zap.Int64("subscription_id", sub.ID), zap.Error(err))
		}
	}
	return s.subRepo.FindByID(ctx, sub.ID)
}

// UpdatePaymentMethod swaps the payment method used for renewals. A
// subscription parked in incomplete is activated and billed for its
// first period as soon as a method is attached.
func (s *SubscriptionService) UpdatePaymentMethod(ctx context.Context, orgID, subID int64, req *subscription.UpdatePaymentMethodRequest) (*subscription.Subscription, error) {
	sub, err := s.getOwned(ctx, orgID, subID)
	if err != nil {
		return nil, err
	}
	if sub.IsTerminal() {
		return nil, xerrors.Wrap(xerrors.ErrConflict, "subscription is canceled")
	}
	if err := s.checkMethodOwnership(ctx, orgID, req.PaymentMethodID); err != nil {
		return nil, err
	}
	if err := s.subRepo.SetPaymentMethod(ctx, sub.ID, req.PaymentMethodID); err != nil {
		return nil, fmt.Errorf("failed to set payment method: %w", err)
	}
	if sub.Status == subscription.StatusIncomplete {
		if err := s.activateIncomplete(ctx, sub); err != nil {
			return nil, err
		}
	}
	return s.subRepo.FindByID(ctx, sub.ID)
}

// activateIncomplete opens the first billable period for a subscription
// whose trial ended without a payment method and collects it. Collection
// failures surface through the invoice, not here.
func (s *SubscriptionService) activateIncomplete(ctx context.Context, sub *subscription.Subscription) error {
	pl, err := s.planRepo.FindByID(ctx, sub.PlanID)
	if err != nil {
		return fmt.Errorf("subscription plan not found: %w", err)
	}

	now := time.Now().UTC()
	end := period.NextEnd(now, pl.Interval, pl.IntervalCount)
	if err := s.subRepo.AdvancePeriod(ctx, sub.ID, now, end); err != nil {
		return fmt.Errorf("failed to open billing period: %w", err)
	}
	if _, err := s.invoices.CreateInvoice(ctx, sub.ID); err != nil {
		s.logger.Error("failed to create activation invoice",
			zap.Int64("subscription_id", sub.ID), zap.Error(err))
	}

	s.logger.Info("incomplete subscription activated",
		zap.String("reference", sub.Reference),
		zap.Int64("subscription_id", sub.ID),
	)
	return nil
}

// UpdateCancellation flags or unflags cancellation at period end. The
// subscription stays in its current status until the period elapses.
func (s *SubscriptionService) UpdateCancellation(ctx context.Context, orgID, subID int64, req *subscription.UpdateCancellationRequest) (*subscription.Subscription, error) {
	sub, err := s.getOwned(ctx, orgID, subID)
	if err != nil {
		return nil, err
	}
	if sub.IsTerminal() {
		return nil, xerrors.Wrap(xerrors.ErrConflict, "subscription is canceled")
	}

	cancel := req.CancelAtPeriodEnd != nil && *req.CancelAtPeriodEnd
	var canceledAt sql.NullTime
	if cancel {
		canceledAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}
	if err := s.subRepo.SetCancellation(ctx, sub.ID, cancel, canceledAt); err != nil {
		return nil, fmt.Errorf("failed to update cancellation: %w", err)
	}
	return s.subRepo.FindByID(ctx, sub.ID)
}

// CancelSubscription cancels immediately. The organization's plan link
// is dropped and the status becomes terminal.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, orgID, subID int64) (*subscription.Subscription, error) {
	sub, err := s.getOwned(ctx, orgID, subID)
	if err != nil {
		return nil, err
	}
	if sub.IsTerminal() {
		return nil, xerrors.Wrap(xerrors.ErrConflict, "subscription is already canceled")
	}

	now := time.Now().UTC()
	if err := s.subRepo.Cancel(ctx, sub.ID, now); err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}
	if err := s.orgRepo.DetachPlan(ctx, orgID); err != nil {
		s.logger.Error("failed to detach plan from organization",
			zap.Int64("organization_id", orgID), zap.Error(err))
	}

	s.logger.Info("subscription canceled",
		zap.String("reference", sub.Reference),
		zap.Int64("organization_id", orgID),
	)
	sub, err = s.subRepo.FindByID(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	s.publish(orgID, events.EventSubscriptionCanceled, sub)
	return sub, nil
}

func (s *SubscriptionService) GetSubscription(ctx context.Context, orgID, subID int64) (*subscription.Subscription, error) {
	return s.getOwned(ctx, orgID, subID)
}

func (s *SubscriptionService) ListSubscriptions(ctx context.Context, orgID int64, filters *subscription.SubscriptionListFilters) (*subscription.SubscriptionListResponse, error) {
	if filters == nil {
		filters = &subscription.SubscriptionListFilters{}
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	subs, total, err := s.subRepo.ListByOrganization(ctx, orgID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return &subscription.SubscriptionListResponse{
		Subscriptions: subs,
		Total:         total,
		Page:          filters.Page,
		PageSize:      filters.PageSize,
	}, nil
}

func (s *SubscriptionService) getOwned(ctx context.Context, orgID, subID int64) (*subscription.Subscription, error) {
	sub, err := s.subRepo.FindByID(ctx, subID)
	if err != nil {
		return nil, err
	}
	if sub.OrganizationID != orgID {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "subscription not found")
	}
	return sub, nil
}

func (s *SubscriptionService) checkMethodOwnership(ctx context.Context, orgID, methodID int64) error {
	method, err := s.methodRepo.FindByID(ctx, methodID)
	if err != nil {
		return err
	}
	if method.OrganizationID != orgID {
		return xerrors.Wrap(xerrors.ErrNotFound, "payment method not found")
	}
	return nil
}

func (s *SubscriptionService) publish(orgID int64, eventType events.EventType, data interface{}) {
	if s.events != nil {
		s.events.Publish(orgID, eventType, data)
	}
}
