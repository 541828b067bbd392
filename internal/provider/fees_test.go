package provider

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFeeSchedule(t *testing.T) {
	fees := DefaultFeeSchedule()
	amount := decimal.NewFromInt(100)

	// 100 * 0.029 + 0.30 = 3.20
	assert.True(t, fees.CardFee(amount).Equal(decimal.NewFromFloat(3.20)))
	// 100 * 0.01 = 1.00
	assert.True(t, fees.BankFee(amount).Equal(decimal.NewFromInt(1)))
	assert.True(t, fees.MobileFee(amount).Equal(decimal.NewFromInt(1)))
}

func TestFeeSchedule_RoundsToCents(t *testing.T) {
	fees := DefaultFeeSchedule()
	// 33.33 * 0.029 + 0.30 = 1.26657 -> 1.27
	assert.True(t, fees.CardFee(decimal.NewFromFloat(33.33)).Equal(decimal.NewFromFloat(1.27)))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("sandbox")
	assert.Error(t, err)
}
