// internal/service/renewal/renewal_service.go
package renewal

import (
	"context"
	"fmt"
	"time"

	"malipo-service/internal/domain/plan"
	"malipo-service/internal/domain/subscription"
	"malipo-service/internal/events"
	"malipo-service/internal/pkg/lock"
	"malipo-service/internal/pkg/period"
	invoicesvc "malipo-service/internal/service/invoice"

	"go.uber.org/zap"
)

type OutcomeKind string

const (
	OutcomeRenewed    OutcomeKind = "RENEWED"
	OutcomeIncomplete OutcomeKind = "INCOMPLETE"
	OutcomeCanceled   OutcomeKind = "CANCELED"
	OutcomeError      OutcomeKind = "ERROR"
)

// Outcome is the per-subscription result of one renewal sweep.
type Outcome struct {
	SubscriptionID int64       `json:"subscription_id"`
	Reference      string      `json:"reference"`
	Kind           OutcomeKind `json:"kind"`
	Message        string      `json:"message,omitempty"`
	InvoiceNumber  string      `json:"invoice_number,omitempty"`
}

// RenewalService drives the periodic renewal sweep: subscriptions whose
// billing date has arrived are advanced and invoiced, trials without a
// payment method go incomplete, and period-end cancellations are
// executed. One subscription failing never aborts the batch.
type RenewalService struct {
	subRepo  subscription.Repository
	planRepo plan.Repository
	orgRepo  organizationDetacher
	invoices *invoicesvc.InvoiceService
	locker   lock.Locker
	events   events.Publisher
	logger   *zap.Logger
}

// organizationDetacher is the slice of the organization repository the
// sweep needs.
type organizationDetacher interface {
	DetachPlan(ctx context.Context, orgID int64) error
}

func NewRenewalService(
	subRepo subscription.Repository,
	planRepo plan.Repository,
	orgRepo organizationDetacher,
	invoices *invoicesvc.InvoiceService,
	locker lock.Locker,
	publisher events.Publisher,
	logger *zap.Logger,
) *RenewalService {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	return &RenewalService{
		subRepo:  subRepo,
		planRepo: planRepo,
		orgRepo:  orgRepo,
		invoices: invoices,
		locker:   locker,
		events:   publisher,
		logger:   logger,
	}
}

// ProcessRenewals runs one sweep as of now. It returns an outcome per
// touched subscription; an error is returned only when the due
// selection itself fails.
func (s *RenewalService) ProcessRenewals(ctx context.Context) ([]Outcome, error) {
	now := time.Now().UTC()

	due, err := s.subRepo.FindDueForRenewal(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to select subscriptions due for renewal: %w", err)
	}

	outcomes := make([]Outcome, 0, len(due))
	for i := range due {
		outcomes = append(outcomes, s.renewOne(ctx, &due[i], now))
	}

	cancelable, err := s.subRepo.FindDueForCancellation(ctx, now)
	if err != nil {
		return outcomes, fmt.Errorf("failed to select subscriptions due for cancellation: %w", err)
	}
	for i := range cancelable {
		outcomes = append(outcomes, s.cancelOne(ctx, &cancelable[i], now))
	}

	s.logger.Info("renewal sweep completed",
		zap.Int("renewals", len(due)),
		zap.Int("cancellations", len(cancelable)),
	)
	return outcomes, nil
}

func (s *RenewalService) renewOne(ctx context.Context, sub *subscription.Subscription, now time.Time) Outcome {
	key := fmt.Sprintf("sub:%d", sub.ID)
	acquired, err := s.locker.TryLock(ctx, key)
	if err != nil {
		return s.errorOutcome(sub, fmt.Errorf("failed to acquire renewal lock: %w", err))
	}
	if !acquired {
		return s.errorOutcome(sub, fmt.Errorf("renewal already in progress"))
	}
	defer func() {
		if err := s.locker.Unlock(ctx, key); err != nil {
			s.logger.Warn("failed to release renewal lock", zap.String("key", key), zap.Error(err))
		}
	}()

	// A trial ending without a payment method cannot be billed; the
	// subscription parks in incomplete until a method is attached.
	if sub.Status == subscription.StatusTrialing && !sub.PaymentMethodID.Valid {
		if err := s.subRepo.UpdateStatus(ctx, sub.ID, subscription.StatusIncomplete); err != nil {
			return s.errorOutcome(sub, fmt.Errorf("failed to mark subscription incomplete: %w", err))
		}
		s.logger.Info("trial ended without payment method",
			zap.String("reference", sub.Reference), zap.Int64("subscription_id", sub.ID))
		return Outcome{
			SubscriptionID: sub.ID,
			Reference:      sub.Reference,
			Kind:           OutcomeIncomplete,
			Message:        "trial ended without a payment method",
		}
	}

	pl, err := s.planRepo.FindByID(ctx, sub.PlanID)
	if err != nil {
		return s.errorOutcome(sub, fmt.Errorf("failed to load plan: %w", err))
	}

	start := now
	end := period.NextEnd(start, pl.Interval, pl.IntervalCount)
	if err := s.subRepo.AdvancePeriod(ctx, sub.ID, start, end); err != nil {
		return s.errorOutcome(sub, fmt.Errorf("failed to advance billing period: %w", err))
	}

	inv, err := s.invoices.CreateInvoice(ctx, sub.ID)
	if err != nil {
		return s.errorOutcome(sub, fmt.Errorf("failed to create renewal invoice: %w", err))
	}

	s.logger.Info("subscription renewed",
		zap.String("reference", sub.Reference),
		zap.Int64("subscription_id", sub.ID),
		zap.String("invoice", inv.Number),
		zap.Time("period_end", end),
	)
	s.publish(sub.OrganizationID, events.EventSubscriptionRenewed, map[string]interface{}{
		"subscription_id": sub.ID,
		"reference":       sub.Reference,
		"invoice_number":  inv.Number,
		"period_start":    start,
		"period_end":      end,
	})

	return Outcome{
		SubscriptionID: sub.ID,
		Reference:      sub.Reference,
		Kind:           OutcomeRenewed,
		InvoiceNumber:  inv.Number,
	}
}

func (s *RenewalService) cancelOne(ctx context.Context, sub *subscription.Subscription, now time.Time) Outcome {
	if err := s.subRepo.Cancel(ctx, sub.ID, now); err != nil {
		return s.errorOutcome(sub, fmt.Errorf("failed to cancel subscription: %w", err))
	}
	if err := s.orgRepo.DetachPlan(ctx, sub.OrganizationID); err != nil {
		s.logger.Error("failed to detach plan from organization",
			zap.Int64("organization_id", sub.OrganizationID), zap.Error(err))
	}

	s.logger.Info("subscription canceled at period end",
		zap.String("reference", sub.Reference), zap.Int64("subscription_id", sub.ID))
	s.publish(sub.OrganizationID, events.EventSubscriptionCanceled, sub)

	return Outcome{
		SubscriptionID: sub.ID,
		Reference:      sub.Reference,
		Kind:           OutcomeCanceled,
		Message:        "canceled at period end",
	}
}

func (s *RenewalService) errorOutcome(sub *subscription.Subscription, err error) Outcome {
	s.logger.Error("renewal failed",
		zap.String("reference", sub.Reference),
		zap.Int64("subscription_id", sub.ID),
		zap.Error(err),
	)
	return Outcome{
		SubscriptionID: sub.ID,
		Reference:      sub.Reference,
		Kind:           OutcomeError,
		Message:        err.Error(),
	}
}

func (s *RenewalService) publish(orgID int64, eventType events.EventType, data interface{}) {
	if s.events != nil {
		s.events.Publish(orgID, eventType, data)
	}
}
