// internal/provider/provider.go
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	xerrors "malipo-service/internal/pkg/errors"

	"github.com/shopspring/decimal"
)

// CardDetails carries raw card data into tokenization. It is never
// persisted; only the resulting token and masked fields are stored.
type CardDetails struct {
	Number      string
	CVV         string
	ExpiryMonth int
	ExpiryYear  int
	HolderName  string
}

type BankAccountDetails struct {
	AccountNumber string
	AccountName   string
	BankName      string
	BankCode      string
}

type TokenizeResult struct {
	Token     string
	ExpiresAt time.Time
}

type ChargeRequest struct {
	// Token addresses a tokenized card or bank account; Phone addresses
	// a mobile-money subscriber. Exactly one is set per charge.
	Token       string
	Phone       string
	Amount      decimal.Decimal
	Currency    string
	Description string
	Reference   string
}

type ChargeResult struct {
	Success       bool
	TransactionID string
	Status        string
	Amount        decimal.Decimal
	Currency      string
	ProviderFee   decimal.Decimal
	ReceiptURL    string
}

// Provider is the capability set of one payment rail. Implementations
// encapsulate tokenization and charge execution with a specific external
// processor; rails a processor does not support return an error.
type Provider interface {
	Name() string
	TokenizeCard(ctx context.Context, details CardDetails) (*TokenizeResult, error)
	TokenizeBankAccount(ctx context.Context, details BankAccountDetails) (*TokenizeResult, error)
	ChargeCard(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	ChargeBankAccount(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	ChargeMobileMoney(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// Registry maps provider names to registered implementations. Adding a
// payment rail is adding one implementation and one Register call.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, fmt.Sprintf("payment provider %q not registered", name))
	}
	return p, nil
}

// ErrUnsupportedRail builds the error returned by a provider for a rail it
// does not operate.
func ErrUnsupportedRail(provider, rail string) error {
	return xerrors.Wrap(xerrors.ErrProviderFailure, fmt.Sprintf("%s does not support %s charges", provider, rail))
}
