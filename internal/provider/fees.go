// internal/provider/fees.go
package provider

import "github.com/shopspring/decimal"

// FeeSchedule holds a provider's fee rates. Rates come from configuration,
// not code: real schedules are versioned provider policy.
type FeeSchedule struct {
	CardPercent   decimal.Decimal
	CardFlat      decimal.Decimal
	BankPercent   decimal.Decimal
	MobilePercent decimal.Decimal
}

// DefaultFeeSchedule mirrors common card-network pricing and is used when
// no schedule is configured.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		CardPercent:   decimal.NewFromFloat(0.029),
		CardFlat:      decimal.NewFromFloat(0.30),
		BankPercent:   decimal.NewFromFloat(0.01),
		MobilePercent: decimal.NewFromFloat(0.01),
	}
}

func (f FeeSchedule) CardFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(f.CardPercent).Add(f.CardFlat).Round(2)
}

func (f FeeSchedule) BankFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(f.BankPercent).Round(2)
}

func (f FeeSchedule) MobileFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(f.MobilePercent).Round(2)
}
