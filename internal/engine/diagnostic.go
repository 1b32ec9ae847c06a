package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forecastgrid/forecast-guard/internal/models"
)

// QueryExecutor runs a filter set against the forecast core, typically the
// forecast core client.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, params models.QueryParameters) (models.QueryResult, error)
}

// CombinationDiagnostic explains empty query results. Given a filter set that
// the caller already executed and observed zero rows for, it distinguishes
// "no data exists for this period" from "these filters jointly exclude
// everything", and in the latter case isolates the responsible filter by
// removing one field at a time.
//
// The isolation is a greedy single-fault-first heuristic, not an exhaustive
// combinatorial search: worst case 1 options fetch + 1 baseline query +
// one query per applied field.
type CombinationDiagnostic struct {
	logger     *slog.Logger
	executor   QueryExecutor
	validator  *FieldValidator
	hints      *HintEngine
	thresholds Thresholds
}

// NewCombinationDiagnostic wires the diagnosis engine. The hint engine is
// optional and may be nil.
func NewCombinationDiagnostic(logger *slog.Logger, executor QueryExecutor, validator *FieldValidator, hints *HintEngine, thresholds Thresholds) *CombinationDiagnostic {
	if logger == nil {
		logger = slog.Default()
	}
	return &CombinationDiagnostic{
		logger:     logger,
		executor:   executor,
		validator:  validator,
		hints:      hints,
		thresholds: thresholds,
	}
}

// Diagnose analyses why params returned zero rows. It never returns an error
// for upstream failures: a failed step is treated as "no result" and the
// diagnosis degrades to whatever could still be established.
func (d *CombinationDiagnostic) Diagnose(ctx context.Context, params models.QueryParameters) models.DiagnosticResult {
	result := models.DiagnosticResult{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}

	// Data-existence check. A transport failure here is not conclusive
	// either way, so diagnosis falls through to the baseline query.
	if d.validator != nil {
		_, hasData, err := d.validator.GetFilterOptions(ctx, params.Month, params.Year, false)
		if err != nil {
			d.logger.Warn("options fetch failed during diagnosis, continuing with baseline",
				"month", params.Month, "year", params.Year, "error", err)
		} else if !hasData {
			result.IsDataIssue = true
			result.DiagnosisMessage = fmt.Sprintf(
				"No forecast data exists for %s. The filters were not the problem; try a different reporting period.",
				periodLabel(params))
			d.applyHints(&result)
			return result
		}
	}

	// Baseline: the same period with every filter removed.
	baseline, err := d.executor.ExecuteQuery(ctx, params.WithoutFilters())
	if err != nil {
		d.logger.Warn("baseline query failed, diagnosis inconclusive",
			"month", params.Month, "year", params.Year, "error", err)
		result.DiagnosisMessage = fmt.Sprintf(
			"Could not reach the forecast service to diagnose the empty result for %s. Try again shortly.",
			periodLabel(params))
		return result
	}
	if baseline.TotalCount == 0 {
		result.IsDataIssue = true
		result.DiagnosisMessage = fmt.Sprintf(
			"No forecast data exists for %s. The filters were not the problem; try a different reporting period.",
			periodLabel(params))
		d.applyHints(&result)
		return result
	}
	result.TotalRecordsAvailable = baseline.TotalCount

	applied := params.AppliedFields()
	if len(applied) == 0 {
		// The caller saw zero rows on an unfiltered query but the baseline
		// now has data; most likely the upload landed in between.
		result.DiagnosisMessage = fmt.Sprintf(
			"%d records exist for %s and no filters were applied. Re-run the query.",
			baseline.TotalCount, periodLabel(params))
		return result
	}

	// Incremental isolation: remove one filter at a time, all others held
	// constant. The first removal that restores results names the guilty
	// field and stops the search.
	for _, field := range applied {
		relaxed, err := d.executor.ExecuteQuery(ctx, params.WithoutField(field))
		if err != nil {
			d.logger.Warn("isolation query failed, treating as no result",
				"field", field, "error", err)
			continue
		}
		if relaxed.TotalCount > 0 {
			result.IsCombinationIssue = true
			result.ProblematicFilters = []models.FilterField{field}
			result.WorkingCombinations = map[models.FilterField][]string{
				field: distinctFieldValues(relaxed.Records, field),
			}
			result.DiagnosisMessage = d.singleFieldMessage(params, field, baseline.TotalCount, result.WorkingCombinations[field])
			d.applyHints(&result)
			return result
		}
	}

	// No single removal restored results: the combination as a whole is
	// over-constrained across multiple fields.
	result.IsCombinationIssue = true
	result.ProblematicFilters = applied
	result.WorkingCombinations = make(map[models.FilterField][]string, len(applied))
	for _, field := range applied {
		result.WorkingCombinations[field] = nil
	}
	result.DiagnosisMessage = d.multiFieldMessage(params, applied, baseline.TotalCount)
	d.applyHints(&result)
	return result
}

func (d *CombinationDiagnostic) applyHints(result *models.DiagnosticResult) {
	result.Hints = d.hints.HintsFor(*result)
}

func (d *CombinationDiagnostic) singleFieldMessage(params models.QueryParameters, field models.FilterField, total int, working []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d records exist for %s, but the %s filter %s excludes all of them.",
		total, periodLabel(params), field, quoteValues(params.ValuesFor(field)))
	if len(working) > 0 {
		preview := working
		if limit := d.thresholds.PreviewLimit; limit > 0 && len(preview) > limit {
			preview = preview[:limit]
		}
		fmt.Fprintf(&b, " With the other filters unchanged, %s values that return data include: %s.",
			field, strings.Join(preview, ", "))
	}
	return b.String()
}

func (d *CombinationDiagnostic) multiFieldMessage(params models.QueryParameters, fields []models.FilterField, total int) string {
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = string(field)
	}
	return fmt.Sprintf(
		"%d records exist for %s, but no single filter is responsible: the combination of %s is jointly too restrictive. Relax two or more filters.",
		total, periodLabel(params), strings.Join(names, ", "))
}

// distinctFieldValues extracts the sorted distinct values a field takes in
// the given records. Reusing the isolation query's rows costs no extra call.
func distinctFieldValues(records []models.ForecastRecord, field models.FilterField) []string {
	seen := make(map[string]struct{}, len(records))
	values := make([]string, 0, len(records))
	for _, record := range records {
		value := record.FieldValue(field)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}

func quoteValues(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}

func periodLabel(params models.QueryParameters) string {
	return fmt.Sprintf("%s %d", time.Month(params.Month), params.Year)
}
