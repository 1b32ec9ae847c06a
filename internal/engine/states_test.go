package engine

import "testing"

func TestNormalizeStateValue(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"California", "CA"},
		{"texas", "TX"},
		{"NEW YORK", "NY"},
		{"District of Columbia", "DC"},
		{"FL", "FL"},
		{"ca", "ca"},
		{"Nowhereland", "Nowhereland"},
		{" Washington ", "WA"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeStateValue(tc.in); got != tc.want {
			t.Errorf("NormalizeStateValue(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
