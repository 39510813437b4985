package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParsePercent normalizes a user supplied percentage to a fraction.
//
// Values carrying a percent sign are divided by 100 ("5%" -> 0.05). Bare
// numbers are taken as fractions already ("0.05" -> 0.05, "5" -> 5); range
// checks belong to the record validation, not to this function. Empty and
// falsy input yields 0. Anything that does not parse is rejected with
// ErrInvalidPercent rather than turned into NaN.
func ParsePercent(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if isFalsy(s) {
		return 0, nil
	}
	if strings.Contains(s, "%") {
		v, err := parseDecimal(strings.TrimSpace(strings.Replace(s, "%", "", 1)))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPercent, raw)
		}
		return v / 100, nil
	}
	v, err := parseDecimal(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPercent, raw)
	}
	return v, nil
}

// ParseAmount parses a currency amount. Empty input is 0.
func ParseAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if isFalsy(s) {
		return 0, nil
	}
	v, err := parseDecimal(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return v, nil
}

func isFalsy(s string) bool {
	return s == "" || s == "false" || s == "null"
}

func parseDecimal(s string) (float64, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}
