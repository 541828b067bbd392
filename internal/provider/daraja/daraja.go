// internal/provider/daraja/daraja.go
package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
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

const Name = "daraja"

// Config holds Safaricom Daraja credentials. All values come from the
// environment; the sandbox and production APIs differ only by BaseURL.
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
}

// Provider executes M-Pesa STK push charges. Card and bank rails are not
// operated by Daraja and return an error.
type Provider struct {
	cfg        Config
	fees       provider.FeeSchedule
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.Mutex
	accessToken string
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

func (p *Provider) TokenizeCard(ctx context.Context, details provider.CardDetails) (*provider.TokenizeResult, error) {
	return nil, provider.ErrUnsupportedRail(Name, "card")
}

func (p *Provider) TokenizeBankAccount(ctx context.Context, details provider.BankAccountDetails) (*provider.TokenizeResult, error) {
	return nil, provider.ErrUnsupportedRail(Name, "bank account")
}

func (p *Provider) ChargeCard(ctx context.Context, req provider.ChargeRequest) (*provider.ChargeResult, error) {
	return nil, provider.ErrUnsupportedRail(Name, "card")
}

func (p *Provider) ChargeBankAccount(ctx context.Context, req provider.ChargeRequest) (*provider.ChargeResult, error) {
	return nil, provider.ErrUnsupportedRail(Name, "bank account")
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorMessage        string `json:"errorMessage"`
}

// ChargeMobileMoney initiates an STK push to the subscriber's phone.
func (p *Provider) ChargeMobileMoney(ctx context.Context, req provider.ChargeRequest) (*provider.ChargeResult, error) {
	if req.Phone == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "daraja: phone number is required")
	}

	token, err := p.auth(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(p.cfg.ShortCode + p.cfg.Passkey + timestamp))

	body := stkPushRequest{
		BusinessShortCode: p.cfg.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		// Daraja takes whole shillings.
		Amount:           req.Amount.Round(0).String(),
		PartyA:           req.Phone,
		PartyB:           p.cfg.ShortCode,
		PhoneNumber:      req.Phone,
		CallBackURL:      p.cfg.CallbackURL,
		AccountReference: req.Reference,
		TransactionDesc:  req.Description,
	}

	var resp stkPushResponse
	if err := p.post(ctx, "/mpesa/stkpush/v1/processrequest", token, body, &resp); err != nil {
		return nil, err
	}

	if resp.ResponseCode != "0" {
		reason := resp.ResponseDescription
		if reason == "" {
			reason = resp.ErrorMessage
		}
		p.logger.Warn("daraja stk push rejected",
			zap.String("reference", req.Reference),
			zap.String("response_code", resp.ResponseCode),
			zap.String("description", reason),
		)
		return nil, xerrors.Wrap(xerrors.ErrProviderFailure, fmt.Sprintf("daraja: %s", reason))
	}

	return &provider.ChargeResult{
		Success:       true,
		TransactionID: resp.CheckoutRequestID,
		Status:        "accepted",
		Amount:        req.Amount,
		Currency:      req.Currency,
		ProviderFee:   p.fees.MobileFee(req.Amount),
	}, nil
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// auth fetches and caches an OAuth access token. Daraja tokens live for an
// hour; a one minute margin avoids using a token about to expire.
func (p *Provider) auth(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && time.Now().Before(p.tokenExpiry.Add(-time.Minute)) {
		return p.accessToken, nil
	}

	url := p.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build auth request: %w", err)
	}
	httpReq.SetBasicAuth(p.cfg.ConsumerKey, p.cfg.ConsumerSecret)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", xerrors.Wrap(xerrors.ErrProviderFailure, fmt.Sprintf("daraja auth request failed: %v", err))
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return "", xerrors.Wrap(xerrors.ErrProviderFailure, fmt.Sprintf("daraja auth returned status %d", httpResp.StatusCode))
	}

	var ar authResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&ar); err != nil {
		return "", xerrors.Wrap(xerrors.ErrProviderFailure, "daraja auth response malformed")
	}

	p.accessToken = ar.AccessToken
	p.tokenExpiry = time.Now().Add(time.Hour)

	return p.accessToken, nil
}

func (p *Provider) post(ctx context.Context, path, token string, body, out interface{}) error {
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
		return xerrors.Wrap(xerrors.ErrProviderFailure, fmt.Sprintf("daraja request failed: %v", err))
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrProviderFailure, "failed to read daraja response")
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return xerrors.Wrap(xerrors.ErrProviderFailure, fmt.Sprintf("daraja response malformed (status %d)", httpResp.StatusCode))
	}

	return nil
}
