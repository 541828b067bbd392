// internal/provider/pesapal/pesapal.go
package pesapal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	xerrors "malipo-service/internal/pkg/errors"
	"malipo-service/internal/provider"

	"go.uber.org/zap"
)

const Name = "pesapal"

type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
}

// Provider operates the card and bank-transfer rails through Pesapal.
// Mobile money goes through Daraja, not here.
type Provider struct {
	cfg        Config
	fees       provider.FeeSchedule
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.Mutex
	bearerToken string
	tokenExpiry time.Time
}

func New(cfg Config, fees provider.FeeSchedule, logger *zap.Logger) *Provider {
	return &Provider{
		cfg:    cfg,
		fees:   fees,
		logger: logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *Provider) Name() string { return Name }

type tokenizeCardRequest struct {
	CardNumber  string `json:"card_number"`
	CVV         string `json:"cvv"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	HolderName  string `json:"holder_name"`
}

type tokenizeBankRequest struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	BankName      string `json:"bank_name"`
	BankCode      string `json:"bank_code"`
}

type tokenizeResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Error     string    `json:"error"`
}

func (p *Provider) TokenizeCard(ctx context.Context, details provider.CardDetails) (*provider.TokenizeResult, error) {
	body := tokenizeCardRequest{
		CardNumber:  details.Number,
		CVV:         details.CVV,
		ExpiryMonth: details.ExpiryMonth,
		ExpiryYear:  details.ExpiryYear,
		HolderName:  details.HolderName,
	}

	var resp tokenizeResponse
	if err := p.post(ctx, "/api/v1/tokens/card", body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, xerrors.Wrap(xerrors.ErrProviderFailure, fmt.Sprintf("pesapal card tokenization rejected: %s", resp.Error))
	}

	return &provider.TokenizeResult{Token: resp.Token, ExpiresAt: resp.ExpiresAt}, nil
}

func (p *Provider) TokenizeBankAccount(ctx context.Context, details provider.BankAccountDetails) (*provider.TokenizeResult, error) {
	body := tokenizeBankRequest{
		AccountNumber: details.AccountNumber,
		AccountName:   details.AccountName,
		BankName:      details.BankName,
		BankCode:      details.BankCode,
	}

	var resp tokenizeResponse
	if err := p.post(ctx, "/api/v1/tokens/bank", body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, xerrors.Wrap(xerrors.ErrProviderFailure, fmt.Sprintf("pesapal bank tokenization rejected: %s", resp.Error))
	}

	return &provider.TokenizeResult{Token: resp.Token, ExpiresAt: resp.ExpiresAt}, nil
}

type chargeRequest struct {
	Token       string `json:"token"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Reference   string `json:"reference"`
}

type chargeResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	ReceiptURL    string `json:"receipt_url"`
	Error         string `json:"error"`
}

func (p *Provider) ChargeCard(ctx context.Context, req provider.ChargeRequest) (*provider.ChargeResult, error) {
	res, err := p.charge(ctx, "/api/v1/charges/card", req)
	if err != nil {
		return nil, err
	}
	res.ProviderFee = p.fees.CardFee(req.Amount)
	return res, nil
}

func (p *Provider) ChargeBankAccount(ctx context.Context, req provider.ChargeRequest) (*provider.ChargeResult, error) {
	res, err := p.charge(ctx, "/api/v1/charges/bank", req)
	if err != nil {
		return nil, err
	}
	res.ProviderFee = p.fees.BankFee(req.Amount)
	return res, nil
}

func (p *Provider) ChargeMobileMoney(ctx context.Context, req provider.ChargeRequest) (*provider.ChargeResult, error) {
	return nil, provider.ErrUnsupportedRail(Name, "mobile money")
}

func (p *Provider) charge(ctx context.Context, path string, req provider.ChargeRequest) (*provider.ChargeResult, error) {
	body := chargeRequest{
		Token:       req.Token,
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		Description: req.Description,
		Reference:   req.Reference,
	}

	var resp chargeResponse
	if err := p.post(ctx, path, body, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "COMPLETED" {
		reason := resp.Error
		if reason == "" {
			reason = resp.Status
		}
		p.logger.Warn("pesapal charge rejected",
			zap.String("reference", req.Reference),
			zap.String("status", resp.Status),
		)
		return nil, xerrors.Wrap(xerrors.ErrProviderFailure, fmt.Sprintf("pesapal: charge %s", reason))
	}

	return &provider.ChargeResult{
		Success:       true,
		TransactionID: resp.TransactionID,
		Status:        resp.Status,
		Amount:        req.Amount,
		Currency:      req.Currency,
		ReceiptURL:    resp.ReceiptURL,
	}, nil
}

type authResponse struct {
	Token      string    `json:"token"`
	ExpiryDate time.Time `json:"expiryDate"`
	Error      string    `json:"error"`
}

func (p *Provider) auth(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bearerToken != "" && time.Now().Before(p.tokenExpiry.Add(-time.Minute)) {
		return p.bearerToken, nil
	}

	payload, _ := json.Marshal(map[string]string{
		"consumer_key":    p.cfg.ConsumerKey,
		"consumer_secret": p.cfg.ConsumerSecret,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/Auth/RequestToken", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build auth request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", xerrors.Wrap(xerrors.ErrProviderFailure, fmt.Sprintf("pesapal auth request failed: %v", err))
	}
	defer httpResp.Body.Close()

	var ar authResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&ar); err != nil {
		return "", xerrors.Wrap(xerrors.ErrProviderFailure, "pesapal auth response malformed")
	}
	if ar.Token == "" {
		return "", xerrors.Wrap(xerrors.ErrProviderFailure, fmt.Sprintf("pesapal auth rejected: %s", ar.Error))
	}

	p.bearerToken = ar.Token
	p.tokenExpiry = ar.ExpiryDate
	if p.tokenExpiry.IsZero() {
		p.tokenExpiry = time.Now().Add(5 * time.Minute)
	}

	return p.bearerToken, nil
}

func (p *Provider) post(ctx context.Context, path string, body, out interface{}) error {
	token, err := p.auth(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrProviderFailure, fmt.Sprintf("pesapal request failed: %v", err))
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrProviderFailure, "failed to read pesapal response")
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return xerrors.Wrap(xerrors.ErrProviderFailure, fmt.Sprintf("pesapal response malformed (status %d)", httpResp.StatusCode))
	}

	return nil
}
