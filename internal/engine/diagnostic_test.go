package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/forecastgrid/forecast-guard/internal/models"
	"github.com/forecastgrid/forecast-guard/internal/repo"
)

type fakeExecutor struct {
	respond func(params models.QueryParameters) (models.QueryResult, error)
	calls   []models.QueryParameters
}

func (f *fakeExecutor) ExecuteQuery(_ context.Context, params models.QueryParameters) (models.QueryResult, error) {
	f.calls = append(f.calls, params)
	return f.respond(params)
}

func newTestDiagnostic(executor QueryExecutor, validator *FieldValidator) *CombinationDiagnostic {
	return NewCombinationDiagnostic(quietLogger(), executor, validator, nil, DefaultThresholds())
}

func badStateParams() models.QueryParameters {
	return models.QueryParameters{
		Month:     3,
		Year:      2025,
		Platforms: []string{"Amisys"},
		Markets:   []string{"Medicaid"},
		States:    []string{"ZZ"},
	}
}

func TestDiagnoseIsolatesBadState(t *testing.T) {
	executor := &fakeExecutor{respond: func(params models.QueryParameters) (models.QueryResult, error) {
		switch {
		case len(params.AppliedFields()) == 0:
			return models.QueryResult{TotalCount: 1250}, nil
		case len(params.States) == 0:
			return models.QueryResult{
				TotalCount: 85,
				Records: []models.ForecastRecord{
					{Platform: "Amisys", Market: "Medicaid", State: "TX", CaseType: "Inpatient", ForecastValue: 40},
					{Platform: "Amisys", Market: "Medicaid", State: "CA", CaseType: "Inpatient", ForecastValue: 30},
					{Platform: "Amisys", Market: "Medicaid", State: "CA", CaseType: "Outpatient", ForecastValue: 15},
				},
			}, nil
		default:
			return models.QueryResult{}, nil
		}
	}}
	source := &fakeOptionsSource{options: marchOptions()}
	validator := newTestValidator(source, nil)

	result := newTestDiagnostic(executor, validator).Diagnose(context.Background(), badStateParams())

	if result.IsDataIssue || !result.IsCombinationIssue {
		t.Fatalf("expected combination issue, got %+v", result)
	}
	if result.TotalRecordsAvailable != 1250 {
		t.Fatalf("total records = %d, want 1250", result.TotalRecordsAvailable)
	}
	if len(result.ProblematicFilters) != 1 || result.ProblematicFilters[0] != models.FieldState {
		t.Fatalf("problematic filters = %v, want [state]", result.ProblematicFilters)
	}
	working := result.WorkingCombinations[models.FieldState]
	if len(working) != 2 || working[0] != "CA" || working[1] != "TX" {
		t.Fatalf("working state values = %v, want [CA TX]", working)
	}
	if result.ID == "" || result.CreatedAt.IsZero() {
		t.Fatalf("result must carry an id and timestamp: %+v", result)
	}
	if !strings.Contains(result.DiagnosisMessage, "1250") || !strings.Contains(result.DiagnosisMessage, "state") {
		t.Fatalf("message lacks totals or field name: %q", result.DiagnosisMessage)
	}

	// 1 baseline + platform + market + state isolation queries.
	if len(executor.calls) != 4 {
		t.Fatalf("expected 4 queries, got %d", len(executor.calls))
	}
}

func TestDiagnoseStopsAfterFirstCulprit(t *testing.T) {
	executor := &fakeExecutor{respond: func(params models.QueryParameters) (models.QueryResult, error) {
		switch {
		case len(params.AppliedFields()) == 0:
			return models.QueryResult{TotalCount: 400}, nil
		case len(params.Platforms) == 0:
			return models.QueryResult{
				TotalCount: 12,
				Records:    []models.ForecastRecord{{Platform: "Facets", Market: "Medicaid", State: "CA"}},
			}, nil
		default:
			return models.QueryResult{}, nil
		}
	}}

	result := newTestDiagnostic(executor, nil).Diagnose(context.Background(), badStateParams())

	if len(result.ProblematicFilters) != 1 || result.ProblematicFilters[0] != models.FieldPlatform {
		t.Fatalf("problematic filters = %v, want [platform]", result.ProblematicFilters)
	}
	// Baseline plus the first isolation query only: market and state are
	// never tested once platform is implicated.
	if len(executor.calls) != 2 {
		t.Fatalf("expected early termination after 2 queries, got %d", len(executor.calls))
	}
}

func TestDiagnoseNoDataForPeriod(t *testing.T) {
	executor := &fakeExecutor{respond: func(models.QueryParameters) (models.QueryResult, error) {
		t.Fatalf("no query may run when the period has no data")
		return models.QueryResult{}, nil
	}}
	source := &fakeOptionsSource{err: repo.ErrNoDataForPeriod}
	validator := newTestValidator(source, nil)

	result := newTestDiagnostic(executor, validator).Diagnose(context.Background(), badStateParams())

	if !result.IsDataIssue || result.IsCombinationIssue {
		t.Fatalf("expected data issue, got %+v", result)
	}
	if result.TotalRecordsAvailable != 0 || len(result.ProblematicFilters) != 0 {
		t.Fatalf("data issue must carry no filter blame: %+v", result)
	}
	if len(executor.calls) != 0 {
		t.Fatalf("expected zero queries, got %d", len(executor.calls))
	}
}

func TestDiagnoseEmptyBaselineIsDataIssue(t *testing.T) {
	executor := &fakeExecutor{respond: func(models.QueryParameters) (models.QueryResult, error) {
		return models.QueryResult{}, nil
	}}
	source := &fakeOptionsSource{options: marchOptions()}
	validator := newTestValidator(source, nil)

	result := newTestDiagnostic(executor, validator).Diagnose(context.Background(), badStateParams())

	if !result.IsDataIssue || result.IsCombinationIssue {
		t.Fatalf("zero baseline must read as a data issue, got %+v", result)
	}
	if len(executor.calls) != 1 {
		t.Fatalf("expected only the baseline query, got %d", len(executor.calls))
	}
}

func TestDiagnoseMultiFieldCombination(t *testing.T) {
	executor := &fakeExecutor{respond: func(params models.QueryParameters) (models.QueryResult, error) {
		if len(params.AppliedFields()) == 0 {
			return models.QueryResult{TotalCount: 900}, nil
		}
		return models.QueryResult{}, nil
	}}

	result := newTestDiagnostic(executor, nil).Diagnose(context.Background(), badStateParams())

	if !result.IsCombinationIssue {
		t.Fatalf("expected combination issue, got %+v", result)
	}
	want := []models.FilterField{models.FieldPlatform, models.FieldMarket, models.FieldState}
	if len(result.ProblematicFilters) != len(want) {
		t.Fatalf("problematic filters = %v, want all applied fields", result.ProblematicFilters)
	}
	for i, field := range want {
		if result.ProblematicFilters[i] != field {
			t.Fatalf("problematic filters = %v, want %v", result.ProblematicFilters, want)
		}
	}
	if !strings.Contains(result.DiagnosisMessage, "no single filter") {
		t.Fatalf("message must explain the joint restriction: %q", result.DiagnosisMessage)
	}
}

func TestDiagnoseBaselineTransportFailure(t *testing.T) {
	executor := &fakeExecutor{respond: func(models.QueryParameters) (models.QueryResult, error) {
		return models.QueryResult{}, errors.New("connection refused")
	}}

	result := newTestDiagnostic(executor, nil).Diagnose(context.Background(), badStateParams())

	if result.IsDataIssue || result.IsCombinationIssue {
		t.Fatalf("inconclusive diagnosis must set neither flag: %+v", result)
	}
	if result.DiagnosisMessage == "" {
		t.Fatalf("inconclusive diagnosis still needs a message")
	}
	if len(executor.calls) != 1 {
		t.Fatalf("expected diagnosis to stop after the failed baseline, got %d calls", len(executor.calls))
	}
}

func TestDiagnoseIsolationFailureSkipsField(t *testing.T) {
	executor := &fakeExecutor{respond: func(params models.QueryParameters) (models.QueryResult, error) {
		switch {
		case len(params.AppliedFields()) == 0:
			return models.QueryResult{TotalCount: 100}, nil
		case len(params.Platforms) == 0:
			return models.QueryResult{}, errors.New("timeout")
		case len(params.States) == 0:
			return models.QueryResult{
				TotalCount: 5,
				Records:    []models.ForecastRecord{{State: "CA"}},
			}, nil
		default:
			return models.QueryResult{}, nil
		}
	}}

	result := newTestDiagnostic(executor, nil).Diagnose(context.Background(), badStateParams())

	if !result.IsCombinationIssue {
		t.Fatalf("expected combination issue despite one failed isolation step: %+v", result)
	}
	if len(result.ProblematicFilters) != 1 || result.ProblematicFilters[0] != models.FieldState {
		t.Fatalf("problematic filters = %v, want [state]", result.ProblematicFilters)
	}
}
