// internal/service/paymentmethod/validate.go
package paymentmethod

import (
	"time"

	"malipo-service/internal/domain/payment"
	xerrors "malipo-service/internal/pkg/errors"
)

func validateCard(req *payment.AddCardRequest) error {
	if req.Number == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "card number is required")
	}
	if len(req.Number) < 12 || len(req.Number) > 19 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "card number length is invalid")
	}
	for _, r := range req.Number {
		if r < '0' || r > '9' {
			return xerrors.Wrap(xerrors.ErrInvalidInput, "card number must contain only digits")
		}
	}
	if req.CVV == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "cvv is required")
	}
	if len(req.CVV) < 3 || len(req.CVV) > 4 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "cvv length is invalid")
	}
	if req.ExpiryMonth < 1 || req.ExpiryMonth > 12 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "expiry month is invalid")
	}
	now := time.Now()
	if req.ExpiryYear < now.Year() ||
		(req.ExpiryYear == now.Year() && time.Month(req.ExpiryMonth) < now.Month()) {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "card has expired")
	}
	if req.HolderName == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "holder name is required")
	}
	return nil
}

func validateBankAccount(req *payment.AddBankAccountRequest) error {
	if req.AccountNumber == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "account number is required")
	}
	if req.AccountName == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "account name is required")
	}
	if req.BankName == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "bank name is required")
	}
	return nil
}
