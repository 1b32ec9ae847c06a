package models

import "time"

// DiagnosticResult explains why a validated query returned zero rows.
// IsDataIssue and IsCombinationIssue are mutually exclusive;
// ProblematicFilters is non-empty iff IsCombinationIssue is set.
type DiagnosticResult struct {
	ID                    string                   `json:"id"`
	IsDataIssue           bool                     `json:"isDataIssue"`
	IsCombinationIssue    bool                     `json:"isCombinationIssue"`
	ProblematicFilters    []FilterField            `json:"problematicFilters,omitempty"`
	WorkingCombinations   map[FilterField][]string `json:"workingCombinations,omitempty"`
	TotalRecordsAvailable int                      `json:"totalRecordsAvailable"`
	DiagnosisMessage      string                   `json:"diagnosisMessage"`
	Hints                 []string                 `json:"hints,omitempty"`
	CreatedAt             time.Time                `json:"createdAt"`
}
