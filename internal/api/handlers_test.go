package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/forecastgrid/forecast-guard/internal/cache"
	"github.com/forecastgrid/forecast-guard/internal/engine"
	"github.com/forecastgrid/forecast-guard/internal/insights"
	"github.com/forecastgrid/forecast-guard/internal/models"
	"github.com/forecastgrid/forecast-guard/internal/services"
)

type stubSource struct {
	options models.FilterOptions
}

func (s *stubSource) FetchFilterOptions(_ context.Context, month, year int) (models.FilterOptions, error) {
	options := s.options
	options.Month = month
	options.Year = year
	return options, nil
}

type stubExecutor struct {
	respond func(params models.QueryParameters) (models.QueryResult, error)
}

func (s *stubExecutor) ExecuteQuery(_ context.Context, params models.QueryParameters) (models.QueryResult, error) {
	return s.respond(params)
}

func newTestRouter(t *testing.T, executor engine.QueryExecutor) *gin.Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := &stubSource{options: models.FilterOptions{
		Values: map[models.FilterField][]string{
			models.FieldPlatform: {"Amisys", "Facets", "Xcelys"},
			models.FieldState:    {"CA", "TX", "FL"},
		},
	}}
	optionsCache := cache.NewOptionsCache(time.Minute)
	validator := engine.NewFieldValidator(logger, source, optionsCache, engine.DefaultThresholds())
	diagnostic := engine.NewCombinationDiagnostic(logger, executor, validator, nil, engine.DefaultThresholds())
	service := services.NewGuardService(logger, nil, validator, diagnostic, optionsCache, nil, insights.NewTracker(logger))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandlers(logger, service).RegisterRoutes(router)
	return router
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)
	recorder := performJSON(t, router, http.MethodGet, "/health", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)
	recorder := performJSON(t, router, http.MethodPost, "/api/v1/queries/validate", map[string]any{
		"month":     3,
		"year":      2025,
		"platforms": []string{"Amysis"},
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", recorder.Code, recorder.Body.String())
	}

	var outcome services.ValidationOutcome
	if err := json.Unmarshal(recorder.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got := outcome.CorrectedParams.Platforms; len(got) != 1 || got[0] != "Amisys" {
		t.Fatalf("expected corrected platform, got %v", got)
	}
}

func TestValidateEndpointRejectsMissingPeriod(t *testing.T) {
	router := newTestRouter(t, nil)
	recorder := performJSON(t, router, http.MethodPost, "/api/v1/queries/validate", map[string]any{
		"platforms": []string{"Amisys"},
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing month/year, got %d", recorder.Code)
	}
}

func TestDiagnoseEndpoint(t *testing.T) {
	executor := &stubExecutor{respond: func(params models.QueryParameters) (models.QueryResult, error) {
		if len(params.AppliedFields()) == 0 {
			return models.QueryResult{TotalCount: 500}, nil
		}
		if len(params.States) == 0 {
			return models.QueryResult{TotalCount: 7, Records: []models.ForecastRecord{{State: "CA"}}}, nil
		}
		return models.QueryResult{}, nil
	}}
	router := newTestRouter(t, executor)

	recorder := performJSON(t, router, http.MethodPost, "/api/v1/queries/diagnose", map[string]any{
		"month":     3,
		"year":      2025,
		"platforms": []string{"Amisys"},
		"states":    []string{"ZZ"},
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", recorder.Code, recorder.Body.String())
	}

	var result models.DiagnosticResult
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.IsCombinationIssue || result.TotalRecordsAvailable != 500 {
		t.Fatalf("unexpected diagnosis: %+v", result)
	}
}

func TestFilterOptionsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)
	recorder := performJSON(t, router, http.MethodGet, "/api/v1/filters/options?month=3&year=2025", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", recorder.Code, recorder.Body.String())
	}

	var payload struct {
		HasData bool                 `json:"hasData"`
		Options models.FilterOptions `json:"options"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.HasData || len(payload.Options.ValuesFor(models.FieldPlatform)) != 3 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestFilterOptionsEndpointAcceptsPeriodLabel(t *testing.T) {
	router := newTestRouter(t, nil)
	recorder := performJSON(t, router, http.MethodGet, "/api/v1/filters/options?period=2025-03", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", recorder.Code, recorder.Body.String())
	}
}

func TestFilterOptionsEndpointRejectsBadPeriod(t *testing.T) {
	router := newTestRouter(t, nil)
	recorder := performJSON(t, router, http.MethodGet, "/api/v1/filters/options?month=13&year=2025", nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestIngestCompleteEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	// Warm the cache, clear it through the event, and confirm via stats.
	performJSON(t, router, http.MethodGet, "/api/v1/filters/options?month=3&year=2025", nil)

	recorder := performJSON(t, router, http.MethodPost, "/api/v1/events/ingest-complete", nil)
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}

	statsRecorder := performJSON(t, router, http.MethodGet, "/api/v1/cache/stats", nil)
	var stats cache.OptionsCacheStats
	if err := json.Unmarshal(statsRecorder.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.EntryCount != 0 {
		t.Fatalf("cache not cleared: %+v", stats)
	}
}

func TestInsightsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)
	recorder := performJSON(t, router, http.MethodGet, "/api/v1/diagnostics/insights", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	var summary insights.Summary
	if err := json.Unmarshal(recorder.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalDiagnoses != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}
