package models

// FilterField names a multi-valued query dimension.
type FilterField string

const (
	FieldPlatform FilterField = "platform"
	FieldMarket   FilterField = "market"
	FieldState    FilterField = "state"
	FieldCaseType FilterField = "caseType"
)

// FilterFieldOrder is the canonical iteration order for filter fields. It
// doubles as the isolation order during diagnosis, so it must stay stable.
var FilterFieldOrder = []FilterField{FieldPlatform, FieldMarket, FieldState, FieldCaseType}

// QueryParameters is the filter set under validation: the scalar reporting
// period plus zero-or-more values per filterable field.
type QueryParameters struct {
	Month     int      `json:"month" binding:"required,min=1,max=12"`
	Year      int      `json:"year" binding:"required,min=2000,max=2100"`
	Platforms []string `json:"platforms,omitempty"`
	Markets   []string `json:"markets,omitempty"`
	States    []string `json:"states,omitempty"`
	CaseTypes []string `json:"caseTypes,omitempty"`
}

// ValuesFor returns the submitted values for a field, nil when absent.
func (p QueryParameters) ValuesFor(field FilterField) []string {
	switch field {
	case FieldPlatform:
		return p.Platforms
	case FieldMarket:
		return p.Markets
	case FieldState:
		return p.States
	case FieldCaseType:
		return p.CaseTypes
	default:
		return nil
	}
}

// SetValues replaces the submitted values for a field.
func (p *QueryParameters) SetValues(field FilterField, values []string) {
	switch field {
	case FieldPlatform:
		p.Platforms = values
	case FieldMarket:
		p.Markets = values
	case FieldState:
		p.States = values
	case FieldCaseType:
		p.CaseTypes = values
	}
}

// AppliedFields lists the fields carrying at least one value, in canonical
// order.
func (p QueryParameters) AppliedFields() []FilterField {
	fields := make([]FilterField, 0, len(FilterFieldOrder))
	for _, field := range FilterFieldOrder {
		if len(p.ValuesFor(field)) > 0 {
			fields = append(fields, field)
		}
	}
	return fields
}

// WithoutField returns a copy of the parameters with one filter removed and
// all others held constant.
func (p QueryParameters) WithoutField(field FilterField) QueryParameters {
	clone := p
	clone.SetValues(field, nil)
	return clone
}

// WithoutFilters returns a copy carrying only the reporting period.
func (p QueryParameters) WithoutFilters() QueryParameters {
	return QueryParameters{Month: p.Month, Year: p.Year}
}

// ForecastRecord is a single forecast row returned by the core service.
type ForecastRecord struct {
	Platform      string  `json:"platform"`
	Market        string  `json:"market"`
	State         string  `json:"state"`
	CaseType      string  `json:"caseType"`
	ForecastValue float64 `json:"forecastValue"`
}

// FieldValue extracts the record's value for a filter field.
func (r ForecastRecord) FieldValue(field FilterField) string {
	switch field {
	case FieldPlatform:
		return r.Platform
	case FieldMarket:
		return r.Market
	case FieldState:
		return r.State
	case FieldCaseType:
		return r.CaseType
	default:
		return ""
	}
}

// QueryResult is the outcome of executing a filter set against the core
// service. TotalCount covers the full result set even when Records is capped.
type QueryResult struct {
	TotalCount int              `json:"totalCount"`
	Records    []ForecastRecord `json:"records"`
}
