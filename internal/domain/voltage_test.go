package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyProfile(t *testing.T) {
	tests := []struct {
		name     string
		category VoltageCategory
		value    float64
		want     VoltageProfile
	}{
		// Phase-to-neutral
		{"RN nominal", CategoryRN, 210, ProfileNormal},
		{"RN low", CategoryRN, 199.9, ProfileLow},
		{"RN lower band edge", CategoryRN, 200, ProfileNormal},
		{"RN upper band edge", CategoryRN, 240, ProfileNormal},
		{"RN high", CategoryRN, 240.1, ProfileHigh},
		{"SN nominal", CategorySN, 230, ProfileNormal},

		// Phase-to-phase
		{"RT high", CategoryRT, 450, ProfileHigh},
		{"RT nominal", CategoryRT, 400, ProfileNormal},
		{"ST low", CategoryST, 370, ProfileLow},

		// Ground-to-neutral has no low band
		{"GN normal", CategoryGN, 0.5, ProfileNormal},
		{"GN zero", CategoryGN, 0, ProfileNormal},
		{"GN band edge", CategoryGN, 1, ProfileNormal},
		{"GN high", CategoryGN, 2, ProfileHigh},

		// Current
		{"N low", CategoryN, 5, ProfileLow},
		{"R nominal", CategoryR, 35, ProfileNormal},
		{"T high", CategoryT, 61, ProfileHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyProfile(tt.category, tt.value))
		})
	}
}

func TestClassifyValidity(t *testing.T) {
	tests := []struct {
		name        string
		input       float64
		detected    float64
		detectionOK bool
		want        VoltageValidity
	}{
		{"exact match", 100, 100, true, ValidityValid},
		{"within tolerance", 100, 104, true, ValidityValid},
		{"tolerance edge", 100, 105, true, ValidityValid},
		{"outside tolerance", 100, 120, true, ValidityInvalid},
		{"zero input zero detected", 0, 0, true, ValidityValid},
		{"zero input nonzero detected", 0, 5, true, ValidityInvalid},
		{"detection failed", 100, 0, false, ValidityInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyValidity(tt.input, tt.detected, tt.detectionOK))
		})
	}
}

func TestVoltageCategory_Unit(t *testing.T) {
	// Single-letter categories are current readings.
	assert.Equal(t, "A", CategoryN.Unit())
	assert.Equal(t, "A", CategoryR.Unit())
	assert.Equal(t, "V", CategoryRN.Unit())
	assert.Equal(t, "V", CategoryGN.Unit())
}

func TestParseVoltageCategory(t *testing.T) {
	got, err := ParseVoltageCategory("RN")
	assert.NoError(t, err)
	assert.Equal(t, CategoryRN, got)

	_, err = ParseVoltageCategory("XY")
	assert.Error(t, err)
}

func TestVoltageResult_Finalize(t *testing.T) {
	t.Run("detection succeeded", func(t *testing.T) {
		v := NewVoltageResult(CategoryRN, 215)
		v.Finalize(218, true)

		assert.True(t, v.Detected)
		assert.Equal(t, 218.0, v.DetectedValue)
		assert.Equal(t, ValidityValid, v.Validity)
		assert.Equal(t, ProfileNormal, v.Profile)
		assert.Equal(t, "V", v.Unit)
	})

	t.Run("detection failed falls back to input for profile", func(t *testing.T) {
		v := NewVoltageResult(CategoryRT, 450)
		v.Finalize(0, false)

		assert.False(t, v.Detected)
		assert.Equal(t, 0.0, v.DetectedValue)
		assert.Equal(t, ValidityInvalid, v.Validity)
		assert.Equal(t, ProfileHigh, v.Profile)
	})
}
