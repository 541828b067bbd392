// internal/pkg/phone/phone.go
package phone

import (
	"strings"

	xerrors "malipo-service/internal/pkg/errors"
)

// DefaultCountryCode is used when no country code is configured (Kenya).
const DefaultCountryCode = "254"

// Normalize converts a raw phone number to canonical international form
// without a leading plus: a leading 0 is replaced by the country code, and
// the code is prepended when absent entirely. Already-normalized numbers
// are returned unchanged.
func Normalize(raw, countryCode string) (string, error) {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	cleaned = strings.TrimPrefix(cleaned, "+")

	if cleaned == "" {
		return "", xerrors.Wrap(xerrors.ErrInvalidInput, "phone number is required")
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", xerrors.Wrap(xerrors.ErrInvalidInput, "phone number must contain digits only")
		}
	}

	switch {
	case strings.HasPrefix(cleaned, countryCode):
		return cleaned, nil
	case strings.HasPrefix(cleaned, "0"):
		return countryCode + cleaned[1:], nil
	default:
		return countryCode + cleaned, nil
	}
}
