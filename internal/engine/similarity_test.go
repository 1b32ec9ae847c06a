package engine

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSimilarityIdentical(t *testing.T) {
	if got := similarity("amisys", "amisys"); got != 1.0 {
		t.Fatalf("identical strings scored %v, want 1.0", got)
	}
}

func TestSimilarityEmpty(t *testing.T) {
	if got := similarity("", "amisys"); got != 0 {
		t.Fatalf("empty input scored %v, want 0", got)
	}
}

func TestSimilarityTransposition(t *testing.T) {
	// A swapped character pair keeps the full character bag, so the score
	// stays just under 1.0 rather than collapsing with the ordered ratio.
	got := similarity("amysis", "amisys")
	if !almostEqual(got, 0.95) {
		t.Fatalf("amysis/amisys scored %v, want 0.95", got)
	}
}

func TestSimilarityMissingCharacter(t *testing.T) {
	got := similarity("medcaid", "medicaid")
	want := (14.0 / 15.0) * (7.0 / 8.0)
	if !almostEqual(got, want) {
		t.Fatalf("medcaid/medicaid scored %v, want %v", got, want)
	}
}

func TestSimilarityPrefersCloserOption(t *testing.T) {
	medicaid := similarity("medcaid", "medicaid")
	medicare := similarity("medcaid", "medicare")
	if medicaid <= medicare {
		t.Fatalf("medicaid (%v) should outrank medicare (%v) for medcaid", medicaid, medicare)
	}
}

func TestSimilarityNoOverlap(t *testing.T) {
	if got := similarity("zz", "amisys"); got != 0 {
		t.Fatalf("disjoint strings scored %v, want 0", got)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"amysis", "amisys"},
		{"medcaid", "medicaid"},
		{"facets", "xcelys"},
	}
	for _, pair := range pairs {
		ab := similarity(pair[0], pair[1])
		ba := similarity(pair[1], pair[0])
		if !almostEqual(ab, ba) {
			t.Fatalf("similarity(%q,%q)=%v but reversed=%v", pair[0], pair[1], ab, ba)
		}
	}
}

func TestSimilarityBounded(t *testing.T) {
	pairs := [][2]string{
		{"a", "abcdefgh"},
		{"inpatient", "outpatient"},
		{"tx", "texas"},
	}
	for _, pair := range pairs {
		got := similarity(pair[0], pair[1])
		if got < 0 || got > 1 {
			t.Fatalf("similarity(%q,%q)=%v out of [0,1]", pair[0], pair[1], got)
		}
	}
}

func TestLongestCommonRunDeterministic(t *testing.T) {
	ai, bi, size := longestCommonRun([]rune("ysis"), []rune("isys"))
	if size != 2 || ai != 0 || bi != 2 {
		t.Fatalf("got (ai=%d, bi=%d, size=%d), want earliest-in-a run (0, 2, 2)", ai, bi, size)
	}
}
