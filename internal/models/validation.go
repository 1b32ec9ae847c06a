package models

// ConfidenceLevel classifies a similarity score into the tier consumed by the
// caller's accept/confirm/reject branch.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// LevelFromScore maps a similarity score onto a tier. Boundaries are
// inclusive on the lower bound of each tier.
func LevelFromScore(score, highThreshold, minThreshold float64) ConfidenceLevel {
	switch {
	case score >= highThreshold:
		return ConfidenceHigh
	case score >= minThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ValidationResult is the verdict for one (field, submitted value) pair.
// CorrectedValue is set iff a candidate scored above zero; IsValid is true
// iff the top score reached the medium threshold.
type ValidationResult struct {
	IsValid        bool            `json:"isValid"`
	FieldName      FilterField     `json:"fieldName"`
	OriginalValue  string          `json:"originalValue"`
	CorrectedValue string          `json:"correctedValue,omitempty"`
	Confidence     float64         `json:"confidence"`
	Level          ConfidenceLevel `json:"confidenceLevel"`
	Suggestions    []string        `json:"suggestions,omitempty"`
}

// FilterOptions is the per-period snapshot of all legal values for each
// filterable field. Immutable once fetched; replaced wholesale on refresh.
type FilterOptions struct {
	Month  int                      `json:"month"`
	Year   int                      `json:"year"`
	Values map[FilterField][]string `json:"values"`
}

// ValuesFor returns the legal values for a field, nil when the field is
// unknown to this period.
func (o FilterOptions) ValuesFor(field FilterField) []string {
	if o.Values == nil {
		return nil
	}
	return o.Values[field]
}
