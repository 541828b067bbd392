// internal/domain/payment/card.go
package payment

import "strings"

type CardBrand string

const (
	BrandVisa       CardBrand = "Visa"
	BrandMastercard CardBrand = "Mastercard"
	BrandAmex       CardBrand = "American Express"
	BrandDiscover   CardBrand = "Discover"
	BrandUnknown    CardBrand = "Unknown"
)

// DetectCardBrand derives the card brand from the number prefix:
// Visa 4, Mastercard 51-55, Amex 34/37, Discover 6011/65.
func DetectCardBrand(number string) CardBrand {
	switch {
	case strings.HasPrefix(number, "4"):
		return BrandVisa
	case len(number) >= 2 && number[0] == '5' && number[1] >= '1' && number[1] <= '5':
		return BrandMastercard
	case strings.HasPrefix(number, "34"), strings.HasPrefix(number, "37"):
		return BrandAmex
	case strings.HasPrefix(number, "6011"), strings.HasPrefix(number, "65"):
		return BrandDiscover
	default:
		return BrandUnknown
	}
}

// MaskNumber keeps only the last four digits of a card or account number.
func MaskNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return number[len(number)-4:]
}
