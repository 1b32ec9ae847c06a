package utils

import "testing"

func TestParsePeriod(t *testing.T) {
	month, year, err := ParsePeriod("2025-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if month != 3 || year != 2025 {
		t.Fatalf("got month=%d year=%d", month, year)
	}
}

func TestParsePeriodRejectsMalformed(t *testing.T) {
	for _, value := range []string{"", "2025", "03-2025", "2025-13", "1999-01", "abcd-ef"} {
		if _, _, err := ParsePeriod(value); err == nil {
			t.Errorf("ParsePeriod(%q) expected error", value)
		}
	}
}

func TestValidatePeriod(t *testing.T) {
	if err := ValidatePeriod(12, 2100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidatePeriod(0, 2025); err == nil {
		t.Fatalf("expected month error")
	}
	if err := ValidatePeriod(6, 1995); err == nil {
		t.Fatalf("expected year error")
	}
}
