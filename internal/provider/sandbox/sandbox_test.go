package sandbox

import (
	"context"
	"testing"

	xerrors "malipo-service/internal/pkg/errors"
	"malipo-service/internal/provider"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider() *Provider {
	return New(provider.DefaultFeeSchedule())
}

func TestTokenizeCard_EmbedsLastFour(t *testing.T) {
	p := newProvider()
	result, err := p.TokenizeCard(context.Background(), provider.CardDetails{Number: "4532015112830366"})
	require.NoError(t, err)
	assert.Equal(t, "tok_sandbox_card_0366", result.Token)
}

func TestChargeCard_Approves(t *testing.T) {
	p := newProvider()
	result, err := p.ChargeCard(context.Background(), provider.ChargeRequest{
		Token:    "tok_sandbox_card_0366",
		Amount:   decimal.NewFromInt(100),
		Currency: "KES",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "approved", result.Status)
	assert.NotEmpty(t, result.TransactionID)
	assert.NotEmpty(t, result.ReceiptURL)
	assert.True(t, result.ProviderFee.Equal(decimal.NewFromFloat(3.20)))
}

func TestChargeCard_DeclineSuffix(t *testing.T) {
	p := newProvider()
	_, err := p.ChargeCard(context.Background(), provider.ChargeRequest{
		Token:  "tok_sandbox_card_0002",
		Amount: decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, xerrors.ErrProviderFailure)
}

func TestChargeBankAccount_DeclineSuffix(t *testing.T) {
	p := newProvider()
	_, err := p.ChargeBankAccount(context.Background(), provider.ChargeRequest{
		Token:  "tok_sandbox_bank_0002",
		Amount: decimal.NewFromInt(50),
	})
	assert.ErrorIs(t, err, xerrors.ErrProviderFailure)
}

func TestChargeMobileMoney(t *testing.T) {
	p := newProvider()

	result, err := p.ChargeMobileMoney(context.Background(), provider.ChargeRequest{
		Phone:  "254712345678",
		Amount: decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	_, err = p.ChargeMobileMoney(context.Background(), provider.ChargeRequest{
		Phone:  "254712345999",
		Amount: decimal.NewFromInt(200),
	})
	assert.ErrorIs(t, err, xerrors.ErrProviderFailure)
}
