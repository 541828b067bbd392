package subscription

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"malipo-service/internal/config"
	"malipo-service/internal/domain/organization"
	"malipo-service/internal/domain/payment"
	"malipo-service/internal/domain/plan"
	"malipo-service/internal/domain/subscription"
	xerrors "malipo-service/internal/pkg/errors"
	"malipo-service/internal/pkg/period"
	"malipo-service/internal/provider"
	"malipo-service/internal/provider/sandbox"
	invoicesvc "malipo-service/internal/service/invoice"
	paymentsvc "malipo-service/internal/service/payment"
	"malipo-service/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc      *SubscriptionService
	subs     *testutil.InMemorySubscriptionStore
	plans    *testutil.InMemoryPlanStore
	orgs     *testutil.InMemoryOrganizationStore
	methods  *testutil.InMemoryPaymentMethodStore
	invoices *testutil.InMemoryInvoiceStore
	payments *testutil.InMemoryPaymentStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.AppConfig{
		Currency:       "KES",
		TaxRate:        decimal.NewFromFloat(0.16),
		InvoiceDueDays: 7,
		CardProvider:   sandbox.Name,
		BankProvider:   sandbox.Name,
		MobileProvider: sandbox.Name,
		Fees:           provider.DefaultFeeSchedule(),
	}
	registry := provider.NewRegistry()
	registry.Register(sandbox.New(cfg.Fees))

	f := &fixture{
		subs:     testutil.NewInMemorySubscriptionStore(),
		plans:    testutil.NewInMemoryPlanStore(),
		orgs:     testutil.NewInMemoryOrganizationStore(),
		methods:  testutil.NewInMemoryPaymentMethodStore(),
		invoices: testutil.NewInMemoryInvoiceStore(),
		payments: testutil.NewInMemoryPaymentStore(),
	}
	paymentService := paymentsvc.NewPaymentService(f.payments, f.methods, registry, cfg, zap.NewNop())
	invoiceService := invoicesvc.NewInvoiceService(f.invoices, f.subs, f.plans, f.orgs, paymentService, nil, cfg, zap.NewNop())
	f.svc = NewSubscriptionService(f.subs, f.plans, f.orgs, f.methods, invoiceService, nil, zap.NewNop())
	return f
}

func (f *fixture) seedOrg(t *testing.T) *organization.Organization {
	t.Helper()
	org := &organization.Organization{Name: "Acme Ltd", Email: "billing@acme.co.ke", Phone: "254712345678"}
	require.NoError(t, f.orgs.Create(context.Background(), org))
	return org
}

func (f *fixture) seedPlan(t *testing.T, code string, price int64, trialDays int32) *plan.SubscriptionPlan {
	t.Helper()
	p := &plan.SubscriptionPlan{
		PlanCode:      code,
		Name:          "Plan " + code,
		Price:         decimal.NewFromInt(price),
		Currency:      "KES",
		Interval:      period.UnitMonth,
		IntervalCount: 1,
		Status:        plan.StatusActive,
	}
	if trialDays > 0 {
		p.TrialPeriodDays = sql.NullInt32{Int32: trialDays, Valid: true}
	}
	require.NoError(t, f.plans.Create(context.Background(), p))
	return p
}

func (f *fixture) seedCardMethod(t *testing.T, orgID int64, token string) *payment.PaymentMethod {
	t.Helper()
	ctx := context.Background()
	m := &payment.PaymentMethod{
		Reference:      fmt.Sprintf("PM-%s", token),
		OrganizationID: orgID,
		Type:           payment.MethodTypeCard,
		Provider:       sandbox.Name,
	}
	require.NoError(t, f.methods.Create(ctx, m))
	require.NoError(t, f.methods.SetProviderData(ctx, m.ID, payment.ProviderData{
		Provider: sandbox.Name,
		Card:     &payment.CardToken{Token: token},
	}))
	return m
}

func TestCreateSubscription_TrialPlanOpensTrialing(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, "trial-14", 1000, 14)

	sub, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{PlanID: pl.ID})
	require.NoError(t, err)

	assert.Equal(t, subscription.StatusTrialing, sub.Status)
	require.True(t, sub.TrialEndDate.Valid)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 14), sub.TrialEndDate.Time, time.Minute)
	assert.True(t, sub.NextBillingDate.Equal(sub.TrialEndDate.Time), "first bill falls at trial end")

	invoices, err := f.invoices.ListBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Empty(t, invoices, "trial subscriptions are not invoiced up front")
}

func TestCreateSubscription_NoTrialInvoicesImmediately(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, "pro", 1000, 0)
	method := f.seedCardMethod(t, org.ID, "tok_sandbox_card_0366")
	methodID := method.ID

	sub, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{
		PlanID:          pl.ID,
		PaymentMethodID: &methodID,
	})
	require.NoError(t, err)

	assert.Equal(t, subscription.StatusActive, sub.Status)
	assert.False(t, sub.TrialEndDate.Valid)
	assert.True(t, sub.NextBillingDate.Equal(sub.CurrentPeriodEnd))

	invoices, err := f.invoices.ListBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.True(t, invoices[0].AmountDue.IsZero(), "initial invoice is collected with the attached method")

	after, err := f.orgs.FindByID(context.Background(), org.ID)
	require.NoError(t, err)
	require.True(t, after.PlanID.Valid)
	assert.Equal(t, pl.ID, after.PlanID.Int64)
}

func TestCreateSubscription_NoMethodDefersBilling(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, "pro", 1000, 0)

	sub, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{PlanID: pl.ID})
	require.NoError(t, err)

	assert.Equal(t, subscription.StatusActive, sub.Status)
	invoices, err := f.invoices.ListBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Empty(t, invoices, "billing waits for a payment method")
}

func TestCreateSubscription_ForeignPaymentMethod(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	other := f.seedOrg(t)
	pl := f.seedPlan(t, "pro", 1000, 0)
	method := f.seedCardMethod(t, other.ID, "tok_sandbox_card_0366")
	methodID := method.ID

	_, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{
		PlanID:          pl.ID,
		PaymentMethodID: &methodID,
	})
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestCreateSubscription_ArchivedPlanRejected(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, "legacy", 1000, 0)
	require.NoError(t, f.plans.Archive(context.Background(), pl.ID))

	_, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{PlanID: pl.ID})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestChangeSubscription_UpgradeResetsPeriod(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	basic := f.seedPlan(t, "basic", 500, 0)
	pro := f.seedPlan(t, "pro", 1500, 0)

	sub, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{PlanID: basic.ID})
	require.NoError(t, err)

	changed, err := f.svc.ChangeSubscription(context.Background(), org.ID, sub.ID, &subscription.ChangeSubscriptionRequest{PlanID: pro.ID})
	require.NoError(t, err)

	assert.Equal(t, pro.ID, changed.PlanID)
	assert.WithinDuration(t, time.Now().UTC(), changed.CurrentPeriodStart, time.Minute)
	assert.True(t, changed.NextBillingDate.Equal(changed.CurrentPeriodEnd))

	invoices, err := f.invoices.ListBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Len(t, invoices, 1, "upgrade bills the new plan immediately")
}

func TestChangeSubscription_DowngradeKeepsPeriod(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pro := f.seedPlan(t, "pro", 1500, 0)
	basic := f.seedPlan(t, "basic", 500, 0)

	sub, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{PlanID: pro.ID})
	require.NoError(t, err)
	periodEnd := sub.CurrentPeriodEnd

	changed, err := f.svc.ChangeSubscription(context.Background(), org.ID, sub.ID, &subscription.ChangeSubscriptionRequest{PlanID: basic.ID})
	require.NoError(t, err)

	assert.Equal(t, basic.ID, changed.PlanID)
	assert.True(t, changed.CurrentPeriodEnd.Equal(periodEnd), "downgrade waits for the paid period to run out")

	invoices, err := f.invoices.ListBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Empty(t, invoices, "downgrade is not billed until renewal")
}

func TestChangeSubscription_UpgradeEndsTrial(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	trial := f.seedPlan(t, "trial-7", 500, 7)
	pro := f.seedPlan(t, "pro", 1500, 0)

	sub, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{PlanID: trial.ID})
	require.NoError(t, err)
	require.Equal(t, subscription.StatusTrialing, sub.Status)

	changed, err := f.svc.ChangeSubscription(context.Background(), org.ID, sub.ID, &subscription.ChangeSubscriptionRequest{PlanID: pro.ID})
	require.NoError(t, err)

	assert.Equal(t, subscription.StatusActive, changed.Status)
	assert.False(t, changed.TrialEndDate.Valid)
}

func TestUpdateCancellation_FlagsWithoutStatusChange(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, "pro", 1000, 0)

	sub, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{PlanID: pl.ID})
	require.NoError(t, err)

	flag := true
	updated, err := f.svc.UpdateCancellation(context.Background(), org.ID, sub.ID, &subscription.UpdateCancellationRequest{CancelAtPeriodEnd: &flag})
	require.NoError(t, err)

	assert.True(t, updated.CancelAtPeriodEnd)
	assert.True(t, updated.CanceledAt.Valid)
	assert.Equal(t, subscription.StatusActive, updated.Status, "service continues until the period ends")

	flag = false
	updated, err = f.svc.UpdateCancellation(context.Background(), org.ID, sub.ID, &subscription.UpdateCancellationRequest{CancelAtPeriodEnd: &flag})
	require.NoError(t, err)
	assert.False(t, updated.CancelAtPeriodEnd)
	assert.False(t, updated.CanceledAt.Valid)
}

func TestCancelSubscription_Immediate(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, "pro", 1000, 0)

	sub, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{PlanID: pl.ID})
	require.NoError(t, err)

	canceled, err := f.svc.CancelSubscription(context.Background(), org.ID, sub.ID)
	require.NoError(t, err)

	assert.Equal(t, subscription.StatusCanceled, canceled.Status)
	assert.True(t, canceled.CanceledAt.Valid)

	after, err := f.orgs.FindByID(context.Background(), org.ID)
	require.NoError(t, err)
	assert.False(t, after.PlanID.Valid, "plan link is dropped on cancellation")

	_, err = f.svc.CancelSubscription(context.Background(), org.ID, sub.ID)
	assert.ErrorIs(t, err, xerrors.ErrConflict)
}

func TestUpdatePaymentMethod(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, "pro", 1000, 14)
	method := f.seedCardMethod(t, org.ID, "tok_sandbox_card_0366")

	sub, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{PlanID: pl.ID})
	require.NoError(t, err)
	require.False(t, sub.PaymentMethodID.Valid)

	updated, err := f.svc.UpdatePaymentMethod(context.Background(), org.ID, sub.ID, &subscription.UpdatePaymentMethodRequest{PaymentMethodID: method.ID})
	require.NoError(t, err)
	require.True(t, updated.PaymentMethodID.Valid)
	assert.Equal(t, method.ID, updated.PaymentMethodID.Int64)
}

// parkIncomplete puts a subscription in the state a renewal sweep leaves
// behind when a trial ends with no payment method attached.
func (f *fixture) parkIncomplete(t *testing.T, sub *subscription.Subscription) {
	t.Helper()
	past := time.Now().UTC().Add(-time.Hour)
	sub.Status = subscription.StatusIncomplete
	sub.TrialEndDate = sql.NullTime{Time: past, Valid: true}
	sub.NextBillingDate = past
	require.NoError(t, f.subs.Update(context.Background(), sub))
}

func TestUpdatePaymentMethod_ActivatesIncomplete(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, "trial-14", 1000, 14)
	method := f.seedCardMethod(t, org.ID, "tok_sandbox_card_0366")

	sub, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{PlanID: pl.ID})
	require.NoError(t, err)
	f.parkIncomplete(t, sub)

	updated, err := f.svc.UpdatePaymentMethod(context.Background(), org.ID, sub.ID, &subscription.UpdatePaymentMethodRequest{PaymentMethodID: method.ID})
	require.NoError(t, err)

	assert.Equal(t, subscription.StatusActive, updated.Status, "attaching a method revives an incomplete subscription")
	assert.False(t, updated.TrialEndDate.Valid)
	assert.WithinDuration(t, time.Now().UTC(), updated.CurrentPeriodStart, time.Minute)
	assert.True(t, updated.NextBillingDate.Equal(updated.CurrentPeriodEnd))
	assert.True(t, updated.LastPaymentDate.Valid)

	invoices, err := f.invoices.ListBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, invoices, 1, "the deferred first period is billed on attach")
	assert.True(t, invoices[0].AmountDue.IsZero(), "the new method is charged immediately")
}

func TestUpdatePaymentMethod_IncompleteDeclineGoesPastDue(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, "trial-14", 1000, 14)
	method := f.seedCardMethod(t, org.ID, "tok_sandbox_card_0002")

	sub, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{PlanID: pl.ID})
	require.NoError(t, err)
	f.parkIncomplete(t, sub)

	updated, err := f.svc.UpdatePaymentMethod(context.Background(), org.ID, sub.ID, &subscription.UpdatePaymentMethodRequest{PaymentMethodID: method.ID})
	require.NoError(t, err)

	assert.Equal(t, subscription.StatusPastDue, updated.Status)
	assert.Equal(t, 1, updated.FailedPayments)

	invoices, err := f.invoices.ListBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.False(t, invoices[0].AmountDue.IsZero(), "the declined charge leaves the invoice open")
}

func TestChangeSubscription_ActivatesIncompleteWithMethod(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	trial := f.seedPlan(t, "trial-14", 1000, 14)
	basic := f.seedPlan(t, "basic", 500, 0)
	method := f.seedCardMethod(t, org.ID, "tok_sandbox_card_0366")
	methodID := method.ID

	sub, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{
		PlanID:          trial.ID,
		PaymentMethodID: &methodID,
	})
	require.NoError(t, err)
	f.parkIncomplete(t, sub)

	changed, err := f.svc.ChangeSubscription(context.Background(), org.ID, sub.ID, &subscription.ChangeSubscriptionRequest{PlanID: basic.ID})
	require.NoError(t, err)

	assert.Equal(t, subscription.StatusActive, changed.Status)
	assert.Equal(t, basic.ID, changed.PlanID)
	assert.WithinDuration(t, time.Now().UTC(), changed.CurrentPeriodStart, time.Minute)

	invoices, err := f.invoices.ListBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Len(t, invoices, 1, "the first billable period opens with the plan change")
}

func TestGetSubscription_Ownership(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, "pro", 1000, 14)

	sub, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{PlanID: pl.ID})
	require.NoError(t, err)

	_, err = f.svc.GetSubscription(context.Background(), org.ID+1, sub.ID)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestListSubscriptions_Pagination(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, "pro", 1000, 14)

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateSubscription(context.Background(), org.ID, &subscription.CreateSubscriptionRequest{PlanID: pl.ID})
		require.NoError(t, err)
	}

	resp, err := f.svc.ListSubscriptions(context.Background(), org.ID, &subscription.SubscriptionListFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Total)
	assert.Len(t, resp.Subscriptions, 2)

	resp, err = f.svc.ListSubscriptions(context.Background(), org.ID, &subscription.SubscriptionListFilters{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Subscriptions, 1)
}
