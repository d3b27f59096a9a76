package donation

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Presets are the one-click donation amounts.
var Presets = []float64{10, 25, 50, 100, 250}

// DefaultAmount is preselected on a fresh form.
const DefaultAmount = 10

// ErrInvalidAmount is returned for amounts that are not positive numbers.
var ErrInvalidAmount = errors.New("amount must be a positive number")

// ParseAmount reads the donation form. A non-empty custom amount wins over
// the preset.
func ParseAmount(preset, custom string) (float64, error) {
	raw := strings.TrimSpace(custom)
	if raw == "" {
		raw = strings.TrimSpace(preset)
	}
	if raw == "" {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if err := ValidateAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

// ValidateAmount rejects zero, negative and non-finite amounts.
func ValidateAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
