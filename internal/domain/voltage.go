package domain

import (
	"fmt"
	"math"
)

// =============================================================================
// Voltage Categories
// =============================================================================

// VoltageCategory identifies which panel measurement a voltage record
// covers. Two-letter categories are voltage measurements between phases or
// phase and neutral/ground; single-letter categories are current readings
// per phase.
type VoltageCategory string

const (
	// Phase-to-neutral voltage
	CategoryRN VoltageCategory = "RN"
	CategorySN VoltageCategory = "SN"
	CategoryTN VoltageCategory = "TN"

	// Phase-to-phase voltage
	CategoryRT VoltageCategory = "RT"
	CategoryST VoltageCategory = "ST"
	CategoryRS VoltageCategory = "RS"

	// Ground-to-neutral voltage
	CategoryGN VoltageCategory = "GN"

	// Phase/neutral current
	CategoryN VoltageCategory = "N"
	CategoryR VoltageCategory = "R"
	CategoryS VoltageCategory = "S"
	CategoryT VoltageCategory = "T"
)

// IsValid returns true if the category is a recognized value.
func (c VoltageCategory) IsValid() bool {
	switch c {
	case CategoryRN, CategorySN, CategoryTN,
		CategoryRT, CategoryST, CategoryRS,
		CategoryGN,
		CategoryN, CategoryR, CategoryS, CategoryT:
		return true
	}
	return false
}

// ParseVoltageCategory parses a category from its string form.
func ParseVoltageCategory(s string) (VoltageCategory, error) {
	c := VoltageCategory(s)
	if !c.IsValid() {
		return "", fmt.Errorf("unknown voltage category %q", s)
	}
	return c, nil
}

// IsCurrent reports whether the category is a current reading. Single-letter
// categories measure current, all others voltage.
func (c VoltageCategory) IsCurrent() bool {
	return len(c) == 1
}

// Unit returns the measurement unit for the category: "A" for current
// categories, "V" for voltage categories.
func (c VoltageCategory) Unit() string {
	if c.IsCurrent() {
		return "A"
	}
	return "V"
}

// =============================================================================
// Profile and Validity Classification
// =============================================================================

// VoltageProfile classifies a measured value against the category's nominal
// operating band.
type VoltageProfile string

const (
	ProfileLow    VoltageProfile = "LOW"
	ProfileNormal VoltageProfile = "NORMAL"
	ProfileHigh   VoltageProfile = "HIGH"
)

// VoltageValidity records whether the detected value agreed with the
// technician's manual reading.
type VoltageValidity string

const (
	ValidityValid   VoltageValidity = "VALID"
	ValidityInvalid VoltageValidity = "INVALID"
)

// VoltageTolerance is the relative tolerance used when comparing the
// technician's manual reading against the detected value.
const VoltageTolerance = 0.05

// ClassifyProfile maps a measured value onto LOW/NORMAL/HIGH for the given
// category.
//
// Bands per category group:
// - RN/SN/TN: <200V low, 200-240V normal, >240V high
// - RT/ST/RS: <380V low, 380-415V normal, >415V high
// - GN: <=1V normal, >1V high (no low band)
// - N/R/S/T: <10A low, 10-60A normal, >60A high
func ClassifyProfile(category VoltageCategory, value float64) VoltageProfile {
	switch category {
	case CategoryRN, CategorySN, CategoryTN:
		return bandProfile(value, 200, 240)
	case CategoryRT, CategoryST, CategoryRS:
		return bandProfile(value, 380, 415)
	case CategoryGN:
		if value <= 1 {
			return ProfileNormal
		}
		return ProfileHigh
	default:
		return bandProfile(value, 10, 60)
	}
}

func bandProfile(value, low, high float64) VoltageProfile {
	switch {
	case value < low:
		return ProfileLow
	case value <= high:
		return ProfileNormal
	default:
		return ProfileHigh
	}
}

// ClassifyValidity compares the technician's input against the detected
// value. Zero input is special-cased: it is valid only when the detected
// value is exactly zero. A failed detection is always INVALID.
func ClassifyValidity(input, detected float64, detectionOK bool) VoltageValidity {
	if !detectionOK {
		return ValidityInvalid
	}
	if input == 0 {
		if detected == 0 {
			return ValidityValid
		}
		return ValidityInvalid
	}
	if math.Abs(detected-input)/math.Abs(input) <= VoltageTolerance {
		return ValidityValid
	}
	return ValidityInvalid
}

// =============================================================================
// Voltage Result
// =============================================================================

// VoltageResult holds the derived fields of a voltage/current record.
type VoltageResult struct {
	Category      VoltageCategory
	InputValue    float64 // technician's manual reading
	DetectedValue float64 // value read from the panel photo; 0 when not detected
	Detected      bool    // false when the analysis value was absent or unparseable
	Validity      VoltageValidity
	Profile       VoltageProfile
	Unit          string
}

// NewVoltageResult returns the placeholder result a record carries until
// analysis completes. Validity and profile are meaningless until then.
func NewVoltageResult(category VoltageCategory, input float64) *VoltageResult {
	return &VoltageResult{
		Category:   category,
		InputValue: input,
		Validity:   ValidityInvalid,
		Profile:    ClassifyProfile(category, input),
		Unit:       category.Unit(),
	}
}

// Finalize fills the classification fields from a detection outcome. The
// profile is computed from the detected value, falling back to the
// technician's input when detection failed.
func (v *VoltageResult) Finalize(detected float64, detectionOK bool) {
	v.Detected = detectionOK
	if detectionOK {
		v.DetectedValue = detected
	} else {
		v.DetectedValue = 0
	}
	v.Validity = ClassifyValidity(v.InputValue, detected, detectionOK)
	profileSource := v.InputValue
	if detectionOK {
		profileSource = detected
	}
	v.Profile = ClassifyProfile(v.Category, profileSource)
	v.Unit = v.Category.Unit()
}
