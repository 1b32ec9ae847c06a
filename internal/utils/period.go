package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidatePeriod checks that a (month, year) pair names a plausible reporting
// period.
func ValidatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("month %d out of range 1-12", month)
	}
	if year < 2000 || year > 2100 {
		return fmt.Errorf("year %d out of range 2000-2100", year)
	}
	return nil
}

// ParsePeriod parses a "YYYY-MM" period label into its month and year.
func ParsePeriod(value string) (month, year int, err error) {
	parts := strings.SplitN(value, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("period %q not in YYYY-MM form", value)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parse period year: %w", err)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse period month: %w", err)
	}
	if err := ValidatePeriod(month, year); err != nil {
		return 0, 0, err
	}
	return month, year, nil
}
