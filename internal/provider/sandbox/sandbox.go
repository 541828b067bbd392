// internal/provider/sandbox/sandbox.go
package sandbox

import (
	"context"
	"fmt"
	"strings"

	xerrors "malipo-service/internal/pkg/errors"
	"malipo-service/internal/pkg/ref"
	"malipo-service/internal/provider"

	"github.com/shopspring/decimal"
)

const Name = "sandbox"

// Magic values that make the sandbox decline a charge, mirroring the test
// numbers real processors publish.
const (
	DeclinedCardSuffix  = "0002"
	DeclinedPhoneSuffix = "999"
)

// Provider is a deterministic in-process rail for development and tests.
// Tokens embed the instrument's identifying suffix so charge outcomes are
// reproducible from the stored token alone.
type Provider struct {
	fees provider.FeeSchedule
}

func New(fees provider.FeeSchedule) *Provider {
	return &Provider{fees: fees}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) TokenizeCard(ctx context.Context, details provider.CardDetails) (*provider.TokenizeResult, error) {
	if details.Number == "" {
		return nil, xerrors.Wrap(xerrors.ErrProviderFailure, "sandbox: card number is required")
	}
	last4 := details.Number
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	return &provider.TokenizeResult{Token: fmt.Sprintf("tok_sandbox_card_%s", last4)}, nil
}

func (p *Provider) TokenizeBankAccount(ctx context.Context, details provider.BankAccountDetails) (*provider.TokenizeResult, error) {
	if details.AccountNumber == "" {
		return nil, xerrors.Wrap(xerrors.ErrProviderFailure, "sandbox: account number is required")
	}
	last4 := details.AccountNumber
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	return &provider.TokenizeResult{Token: fmt.Sprintf("tok_sandbox_bank_%s", last4)}, nil
}

func (p *Provider) ChargeCard(ctx context.Context, req provider.ChargeRequest) (*provider.ChargeResult, error) {
	if strings.HasSuffix(req.Token, DeclinedCardSuffix) {
		return nil, xerrors.Wrap(xerrors.ErrProviderFailure, "sandbox: card declined")
	}
	return p.approve(req, p.fees.CardFee(req.Amount)), nil
}

func (p *Provider) ChargeBankAccount(ctx context.Context, req provider.ChargeRequest) (*provider.ChargeResult, error) {
	if strings.HasSuffix(req.Token, DeclinedCardSuffix) {
		return nil, xerrors.Wrap(xerrors.ErrProviderFailure, "sandbox: bank transfer rejected")
	}
	return p.approve(req, p.fees.BankFee(req.Amount)), nil
}

func (p *Provider) ChargeMobileMoney(ctx context.Context, req provider.ChargeRequest) (*provider.ChargeResult, error) {
	if strings.HasSuffix(req.Phone, DeclinedPhoneSuffix) {
		return nil, xerrors.Wrap(xerrors.ErrProviderFailure, "sandbox: mobile money request rejected")
	}
	return p.approve(req, p.fees.MobileFee(req.Amount)), nil
}

func (p *Provider) approve(req provider.ChargeRequest, fee decimal.Decimal) *provider.ChargeResult {
	txn := ref.New("sbx")
	return &provider.ChargeResult{
		Success:       true,
		TransactionID: txn,
		Status:        "approved",
		Amount:        req.Amount,
		Currency:      req.Currency,
		ProviderFee:   fee,
		ReceiptURL:    fmt.Sprintf("https://sandbox.malipo.local/receipts/%s", txn),
	}
}
