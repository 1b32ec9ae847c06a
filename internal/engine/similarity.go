package engine

// Thresholds carries the empirically tuned matching constants. The 0.60
// floor and 0.90 high-confidence boundary were calibrated against the
// domain's short, capitalized proper-noun vocabulary and may need retuning
// per deployment, so they live in configuration rather than as literals.
type Thresholds struct {
	HighConfidence float64
	MinConfidence  float64
	MaxSuggestions int
	PreviewLimit   int
}

// DefaultThresholds returns the calibrated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighConfidence: 0.90,
		MinConfidence:  0.60,
		MaxSuggestions: 3,
		PreviewLimit:   3,
	}
}

// bagRatioDiscount keeps the order-insensitive branch from outranking a
// perfect ordered alignment: an anagram must not score a clean 1.0.
const bagRatioDiscount = 0.95

// similarity scores two already-lowercased strings in [0,1]. The base metric
// is the Ratcliff-Obershelp ordered-run ratio; because transposition typos
// are common in this vocabulary (Amysis for Amisys), it is augmented with an
// order-insensitive character-bag ratio. Both branches are scaled by a
// length-agreement factor so insertions and deletions read as real distance.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	ra, rb := []rune(a), []rune(b)
	ordered := orderedRunRatio(ra, rb)
	bag := bagRatio(ra, rb) * bagRatioDiscount

	score := ordered
	if bag > score {
		score = bag
	}
	return score * lengthAgreement(len(ra), len(rb))
}

// orderedRunRatio is the Ratcliff-Obershelp ratio: twice the total length of
// recursively matched character runs over the combined string length.
func orderedRunRatio(a, b []rune) float64 {
	matched := matchingRuns(a, b)
	return 2 * float64(matched) / float64(len(a)+len(b))
}

func matchingRuns(a, b []rune) int {
	ai, bi, size := longestCommonRun(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingRuns(a[:ai], b[:bi])
	total += matchingRuns(a[ai+size:], b[bi+size:])
	return total
}

// longestCommonRun finds the longest common substring, preferring the
// earliest position in a, then in b, so recursion is deterministic.
func longestCommonRun(a, b []rune) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	// runLengths[j] is the length of the common run ending at a[i], b[j].
	runLengths := make([]int, len(b))
	for i := range a {
		prev := 0
		for j := range b {
			current := runLengths[j]
			if a[i] == b[j] {
				runLengths[j] = prev + 1
				if runLengths[j] > size {
					size = runLengths[j]
					ai = i - size + 1
					bi = j - size + 1
				}
			} else {
				runLengths[j] = 0
			}
			prev = current
		}
	}
	return ai, bi, size
}

// bagRatio is twice the character multiset intersection over the combined
// length; it ignores ordering entirely.
func bagRatio(a, b []rune) float64 {
	counts := make(map[rune]int, len(a))
	for _, r := range a {
		counts[r]++
	}
	intersection := 0
	for _, r := range b {
		if counts[r] > 0 {
			counts[r]--
			intersection++
		}
	}
	return 2 * float64(intersection) / float64(len(a)+len(b))
}

func lengthAgreement(la, lb int) float64 {
	if la == 0 || lb == 0 {
		return 0
	}
	if la > lb {
		la, lb = lb, la
	}
	return float64(la) / float64(lb)
}
