package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCardBrand(t *testing.T) {
	tests := []struct {
		number   string
		expected CardBrand
	}{
		{"4532015112830366", BrandVisa},
		{"5500005555555559", BrandMastercard},
		{"5100000000000000", BrandMastercard},
		{"5599999999999999", BrandMastercard},
		{"340000000000009", BrandAmex},
		{"370000000000002", BrandAmex},
		{"6011000990139424", BrandDiscover},
		{"6500000000000002", BrandDiscover},
		{"9999999999999999", BrandUnknown},
		{"5600000000000000", BrandUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectCardBrand(tt.number), "number=%s", tt.number)
	}
}

func TestMaskNumber(t *testing.T) {
	assert.Equal(t, "0366", MaskNumber("4532015112830366"))
	assert.Equal(t, "1234", MaskNumber("1234"))
	assert.Equal(t, "12", MaskNumber("12"))
}
