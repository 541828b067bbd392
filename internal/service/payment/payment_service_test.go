package payment

import (
	"context"
	"database/sql"
	"testing"

	"malipo-service/internal/config"
	"malipo-service/internal/domain/payment"
	xerrors "malipo-service/internal/pkg/errors"
	"malipo-service/internal/provider"
	"malipo-service/internal/provider/sandbox"
	"malipo-service/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc         *PaymentService
	payments    *testutil.InMemoryPaymentStore
	methods     *testutil.InMemoryPaymentMethodStore
	cardMethod  *payment.PaymentMethod
	mpesaMethod *payment.PaymentMethod
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.AppConfig{
		Currency:       "KES",
		CardProvider:   sandbox.Name,
		BankProvider:   sandbox.Name,
		MobileProvider: sandbox.Name,
		Fees:           provider.DefaultFeeSchedule(),
	}
	registry := provider.NewRegistry()
	registry.Register(sandbox.New(cfg.Fees))

	payments := testutil.NewInMemoryPaymentStore()
	methods := testutil.NewInMemoryPaymentMethodStore()
	svc := NewPaymentService(payments, methods, registry, cfg, zap.NewNop())

	ctx := context.Background()
	card := &payment.PaymentMethod{
		Reference:      "PM-card",
		OrganizationID: 1,
		Type:           payment.MethodTypeCard,
		Provider:       sandbox.Name,
		LastFour:       sql.NullString{String: "0366", Valid: true},
	}
	require.NoError(t, methods.Create(ctx, card))
	require.NoError(t, methods.SetProviderData(ctx, card.ID, payment.ProviderData{
		Provider: sandbox.Name,
		Card:     &payment.CardToken{Token: "tok_sandbox_card_0366"},
	}))

	mpesa := &payment.PaymentMethod{
		Reference:      "PM-mpesa",
		OrganizationID: 1,
		Type:           payment.MethodTypeMpesa,
		Provider:       sandbox.Name,
		PhoneNumber:    sql.NullString{String: "254712345678", Valid: true},
	}
	require.NoError(t, methods.Create(ctx, mpesa))
	require.NoError(t, methods.SetProviderData(ctx, mpesa.ID, payment.ProviderData{
		Provider: sandbox.Name,
		Mpesa:    &payment.MpesaAccount{Msisdn: "254712345678"},
	}))

	return &fixture{svc: svc, payments: payments, methods: methods, cardMethod: card, mpesaMethod: mpesa}
}

func TestProcessPayment_CardSuccess(t *testing.T) {
	f := newFixture(t)

	pmt, err := f.svc.ProcessPayment(context.Background(), 1, ChargeParams{
		Amount:          decimal.NewFromInt(100),
		PaymentMethodID: f.cardMethod.ID,
		Description:     "Invoice INV-20250115-0001",
	})
	require.NoError(t, err)

	assert.Equal(t, payment.PaymentStatusSucceeded, pmt.Status)
	assert.Equal(t, "KES", pmt.Currency)
	assert.True(t, pmt.ProviderTransactionID.Valid)
	assert.True(t, pmt.ProviderFee.Equal(decimal.NewFromFloat(3.20)))
	assert.True(t, pmt.ReceiptURL.Valid)
}

func TestProcessPayment_DeclineRecordsFailedRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	declined := &payment.PaymentMethod{
		Reference:      "PM-declined",
		OrganizationID: 1,
		Type:           payment.MethodTypeCard,
		Provider:       sandbox.Name,
	}
	require.NoError(t, f.methods.Create(ctx, declined))
	require.NoError(t, f.methods.SetProviderData(ctx, declined.ID, payment.ProviderData{
		Provider: sandbox.Name,
		Card:     &payment.CardToken{Token: "tok_sandbox_card_0002"},
	}))

	_, err := f.svc.ProcessPayment(ctx, 1, ChargeParams{
		Amount:          decimal.NewFromInt(100),
		PaymentMethodID: declined.ID,
	})
	assert.ErrorIs(t, err, xerrors.ErrProviderFailure)

	// The failed attempt is a terminal audit row, not a deleted one.
	rows, listErr := f.payments.ListByOrganization(ctx, 1)
	require.NoError(t, listErr)
	require.Len(t, rows, 1)
	assert.Equal(t, payment.PaymentStatusFailed, rows[0].Status)
	assert.True(t, rows[0].FailureReason.Valid)
}

func TestProcessPayment_RetryCreatesNewRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	params := ChargeParams{Amount: decimal.NewFromInt(50), PaymentMethodID: f.cardMethod.ID}
	_, err := f.svc.ProcessPayment(ctx, 1, params)
	require.NoError(t, err)
	_, err = f.svc.ProcessPayment(ctx, 1, params)
	require.NoError(t, err)

	rows, err := f.payments.ListByOrganization(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.NotEqual(t, rows[0].Reference, rows[1].Reference)
}

func TestProcessPayment_MobileMoney(t *testing.T) {
	f := newFixture(t)

	pmt, err := f.svc.ProcessPayment(context.Background(), 1, ChargeParams{
		Amount:          decimal.NewFromInt(200),
		PaymentMethodID: f.mpesaMethod.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, payment.PaymentStatusSucceeded, pmt.Status)
	assert.Equal(t, payment.MethodTypeMpesa, pmt.MethodType)
}

func TestProcessPayment_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ProcessPayment(ctx, 1, ChargeParams{
		Amount:          decimal.Zero,
		PaymentMethodID: f.cardMethod.ID,
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	// Another organization's method is invisible.
	_, err = f.svc.ProcessPayment(ctx, 2, ChargeParams{
		Amount:          decimal.NewFromInt(10),
		PaymentMethodID: f.cardMethod.ID,
	})
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}
