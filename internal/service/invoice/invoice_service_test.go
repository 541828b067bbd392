package invoice

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"malipo-service/internal/config"
	"malipo-service/internal/domain/invoice"
	"malipo-service/internal/domain/organization"
	"malipo-service/internal/domain/payment"
	"malipo-service/internal/domain/plan"
	"malipo-service/internal/domain/subscription"
	xerrors "malipo-service/internal/pkg/errors"
	"malipo-service/internal/pkg/period"
	"malipo-service/internal/provider"
	"malipo-service/internal/provider/sandbox"
	paymentsvc "malipo-service/internal/service/payment"
	"malipo-service/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc      *InvoiceService
	invoices *testutil.InMemoryInvoiceStore
	subs     *testutil.InMemorySubscriptionStore
	plans    *testutil.InMemoryPlanStore
	orgs     *testutil.InMemoryOrganizationStore
	methods  *testutil.InMemoryPaymentMethodStore
	payments *testutil.InMemoryPaymentStore
	cfg      *config.AppConfig
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
		invoices: testutil.NewInMemoryInvoiceStore(),
		subs:     testutil.NewInMemorySubscriptionStore(),
		plans:    testutil.NewInMemoryPlanStore(),
		orgs:     testutil.NewInMemoryOrganizationStore(),
		methods:  testutil.NewInMemoryPaymentMethodStore(),
		payments: testutil.NewInMemoryPaymentStore(),
		cfg:      cfg,
	}
	paymentService := paymentsvc.NewPaymentService(f.payments, f.methods, registry, cfg, zap.NewNop())
	f.svc = NewInvoiceService(f.invoices, f.subs, f.plans, f.orgs, paymentService, nil, cfg, zap.NewNop())
	return f
}

func (f *fixture) seedOrg(t *testing.T) *organization.Organization {
	t.Helper()
	org := &organization.Organization{Name: "Acme Ltd", Email: "billing@acme.co.ke", Phone: "254712345678"}
	require.NoError(t, f.orgs.Create(context.Background(), org))
	return org
}

func (f *fixture) seedPlan(t *testing.T, price int64) *plan.SubscriptionPlan {
	t.Helper()
	p := &plan.SubscriptionPlan{
		PlanCode:      fmt.Sprintf("pro-%d", price),
		Name:          "Pro",
		Price:         decimal.NewFromInt(price),
		Currency:      "KES",
		Interval:      period.UnitMonth,
		IntervalCount: 1,
		Status:        plan.StatusActive,
	}
	require.NoError(t, f.plans.Create(context.Background(), p))
	return p
}

func (f *fixture) seedSubscription(t *testing.T, orgID, planID int64, methodID sql.NullInt64, status subscription.SubscriptionStatus) *subscription.Subscription {
	t.Helper()
	now := time.Now().UTC()
	sub := &subscription.Subscription{
		Reference:          fmt.Sprintf("SUB-%d", planID),
		OrganizationID:     orgID,
		PlanID:             planID,
		PaymentMethodID:    methodID,
		Status:             status,
		StartDate:          now,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		NextBillingDate:    now.AddDate(0, 1, 0),
	}
	require.NoError(t, f.subs.Create(context.Background(), sub))
	return sub
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

func TestCreateInvoice_NumberingAndTax(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, 1000)
	sub := f.seedSubscription(t, org.ID, pl.ID, sql.NullInt64{}, subscription.StatusActive)

	inv, err := f.svc.CreateInvoice(context.Background(), sub.ID)
	require.NoError(t, err)

	expectedNumber := fmt.Sprintf("INV-%s-0001", time.Now().UTC().Format("20060102"))
	assert.Equal(t, expectedNumber, inv.Number)
	assert.Equal(t, invoice.StatusOpen, inv.Status)
	assert.Equal(t, "Pro (month)", inv.Description)

	// 16% VAT on 1000.00
	assert.True(t, inv.Subtotal.Equal(decimal.NewFromInt(1000)))
	assert.True(t, inv.Tax.Equal(decimal.NewFromInt(160)))
	assert.True(t, inv.Amount.Equal(decimal.NewFromInt(1160)))
	assert.True(t, inv.AmountDue.Equal(inv.Amount))
	assert.True(t, inv.AmountPaid.IsZero())
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 7), inv.DueDate, time.Minute)
}

func TestCreateInvoice_SequencePadsToFourDigits(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, 100)
	sub := f.seedSubscription(t, org.ID, pl.ID, sql.NullInt64{}, subscription.StatusActive)

	var last *invoice.Invoice
	for i := 0; i < 5; i++ {
		var err error
		last, err = f.svc.CreateInvoice(context.Background(), sub.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, fmt.Sprintf("INV-%s-0005", time.Now().UTC().Format("20060102")), last.Number)
}

func TestCreateInvoice_AutoChargeSettles(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, 500)
	method := f.seedCardMethod(t, org.ID, "tok_sandbox_card_0366")
	sub := f.seedSubscription(t, org.ID, pl.ID, sql.NullInt64{Int64: method.ID, Valid: true}, subscription.StatusActive)

	inv, err := f.svc.CreateInvoice(context.Background(), sub.ID)
	require.NoError(t, err)

	assert.Equal(t, invoice.StatusPaid, inv.Status)
	assert.True(t, inv.AmountDue.IsZero())
	assert.True(t, inv.AmountPaid.Equal(inv.Amount))
	assert.True(t, inv.PaidAt.Valid)
	assert.True(t, inv.PaymentID.Valid)

	// Amount invariant holds after settlement.
	assert.True(t, inv.Amount.Equal(inv.AmountDue.Add(inv.AmountPaid)))
}

func TestCreateInvoice_ChargeFailureLeavesInvoiceOpen(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, 500)
	declined := f.seedCardMethod(t, org.ID, "tok_sandbox_card_0002")
	sub := f.seedSubscription(t, org.ID, pl.ID, sql.NullInt64{Int64: declined.ID, Valid: true}, subscription.StatusActive)

	inv, err := f.svc.CreateInvoice(context.Background(), sub.ID)
	require.NoError(t, err, "a failed collection must not fail invoice creation")

	assert.Equal(t, invoice.StatusOpen, inv.Status)
	assert.True(t, inv.AmountDue.Equal(inv.Amount))

	after, err := f.subs.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPastDue, after.Status)
	assert.Equal(t, 1, after.FailedPayments)
}

func TestPayInvoice_RecoversPastDue(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, 500)
	declined := f.seedCardMethod(t, org.ID, "tok_sandbox_card_0002")
	sub := f.seedSubscription(t, org.ID, pl.ID, sql.NullInt64{Int64: declined.ID, Valid: true}, subscription.StatusActive)

	inv, err := f.svc.CreateInvoice(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Equal(t, invoice.StatusOpen, inv.Status)

	good := f.seedCardMethod(t, org.ID, "tok_sandbox_card_0366")
	paid, err := f.svc.PayInvoice(context.Background(), org.ID, inv.ID, good.ID)
	require.NoError(t, err)

	assert.Equal(t, invoice.StatusPaid, paid.Status)
	assert.True(t, paid.AmountDue.IsZero())

	after, err := f.subs.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, after.Status)
	assert.Equal(t, 0, after.FailedPayments)
}

func TestPayInvoice_AlreadyPaid(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, 500)
	method := f.seedCardMethod(t, org.ID, "tok_sandbox_card_0366")
	sub := f.seedSubscription(t, org.ID, pl.ID, sql.NullInt64{Int64: method.ID, Valid: true}, subscription.StatusActive)

	inv, err := f.svc.CreateInvoice(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Equal(t, invoice.StatusPaid, inv.Status)

	_, err = f.svc.PayInvoice(context.Background(), org.ID, inv.ID, method.ID)
	assert.ErrorIs(t, err, xerrors.ErrAlreadyPaid)
}

func TestPayInvoice_Ownership(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t)
	pl := f.seedPlan(t, 500)
	sub := f.seedSubscription(t, org.ID, pl.ID, sql.NullInt64{}, subscription.StatusActive)

	inv, err := f.svc.CreateInvoice(context.Background(), sub.ID)
	require.NoError(t, err)

	method := f.seedCardMethod(t, org.ID, "tok_sandbox_card_0366")
	_, err = f.svc.PayInvoice(context.Background(), org.ID+1, inv.ID, method.ID)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}
