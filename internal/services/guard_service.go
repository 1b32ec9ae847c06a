package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/forecastgrid/forecast-guard/internal/cache"
	"github.com/forecastgrid/forecast-guard/internal/engine"
	"github.com/forecastgrid/forecast-guard/internal/insights"
	"github.com/forecastgrid/forecast-guard/internal/metrics"
	"github.com/forecastgrid/forecast-guard/internal/models"
	"github.com/forecastgrid/forecast-guard/internal/repo"
	"github.com/forecastgrid/forecast-guard/internal/utils"
)

// ValidationOutcome is the service-level verdict for one query's filters: the
// raw per-field results plus the three-way routing the caller acts on.
// HIGH-confidence corrections are already applied in CorrectedParams;
// MEDIUM ones need user confirmation; LOW ones are rejected with suggestions.
type ValidationOutcome struct {
	Results           map[models.FilterField][]models.ValidationResult `json:"results"`
	CorrectedParams   models.QueryParameters                           `json:"correctedParams"`
	NeedsConfirmation []models.ValidationResult                        `json:"needsConfirmation,omitempty"`
	Rejected          []models.ValidationResult                        `json:"rejected,omitempty"`
}

// GuardService is the facade the transport layer calls into. It owns the
// validator, the diagnosis engine, both cache tiers, and the insight tracker.
type GuardService struct {
	logger       *slog.Logger
	coreClient   *repo.ForecastCoreClient
	validator    *engine.FieldValidator
	diagnostic   *engine.CombinationDiagnostic
	optionsCache *cache.OptionsCache
	sharedCache  cache.Provider
	insights     *insights.Tracker
	latencies    *utils.LatencyTracker
}

// NewGuardService constructs the service facade.
func NewGuardService(
	logger *slog.Logger,
	coreClient *repo.ForecastCoreClient,
	validator *engine.FieldValidator,
	diagnostic *engine.CombinationDiagnostic,
	optionsCache *cache.OptionsCache,
	sharedCache cache.Provider,
	tracker *insights.Tracker,
) *GuardService {
	if logger == nil {
		logger = slog.Default()
	}
	if sharedCache == nil {
		sharedCache = cache.NoopProvider{}
	}
	return &GuardService{
		logger:       logger,
		coreClient:   coreClient,
		validator:    validator,
		diagnostic:   diagnostic,
		optionsCache: optionsCache,
		sharedCache:  sharedCache,
		insights:     tracker,
		latencies:    utils.NewLatencyTracker(1024),
	}
}

// Validate runs fuzzy validation over every submitted filter value and routes
// each verdict: high-confidence corrections are applied to CorrectedParams,
// medium ones are queued for confirmation, low ones are rejected. Validation
// never blocks the query: on upstream failure the outcome simply carries the
// parameters as typed.
func (s *GuardService) Validate(ctx context.Context, params models.QueryParameters) ValidationOutcome {
	start := time.Now()
	results := s.validator.ValidateAll(ctx, params)
	metrics.ObserveValidation(time.Since(start), metrics.OutcomeSuccess)

	outcome := ValidationOutcome{
		Results:         results,
		CorrectedParams: params,
	}

	for _, field := range models.FilterFieldOrder {
		verdicts, ok := results[field]
		if !ok {
			continue
		}
		corrected := make([]string, 0, len(verdicts))
		for _, verdict := range verdicts {
			switch verdict.Level {
			case models.ConfidenceHigh:
				corrected = append(corrected, verdict.CorrectedValue)
			case models.ConfidenceMedium:
				outcome.NeedsConfirmation = append(outcome.NeedsConfirmation, verdict)
				corrected = append(corrected, verdict.OriginalValue)
			case models.ConfidenceLow:
				outcome.Rejected = append(outcome.Rejected, verdict)
				corrected = append(corrected, verdict.OriginalValue)
			}
		}
		outcome.CorrectedParams.SetValues(field, corrected)
	}
	return outcome
}

// Diagnose explains an empty query result and feeds the outcome into the
// insight tracker.
func (s *GuardService) Diagnose(ctx context.Context, params models.QueryParameters) models.DiagnosticResult {
	start := time.Now()
	result := s.diagnostic.Diagnose(ctx, params)
	duration := time.Since(start)

	verdict := "inconclusive"
	switch {
	case result.IsDataIssue:
		verdict = "data"
	case result.IsCombinationIssue:
		verdict = "combination"
	}
	metrics.ObserveDiagnosis(duration, verdict)
	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("diagnosis latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}

	if s.insights != nil {
		s.insights.Record(result)
	}
	return result
}

// FilterOptions exposes the per-period valid values. The second return is
// false when the period holds no data.
func (s *GuardService) FilterOptions(ctx context.Context, month, year int, forceRefresh bool) (models.FilterOptions, bool, error) {
	options, hasData, err := s.validator.GetFilterOptions(ctx, month, year, forceRefresh)
	if err == nil && s.optionsCache != nil {
		metrics.SetOptionsCacheEntries(s.optionsCache.Stats().EntryCount)
	}
	return options, hasData, err
}

// CacheStats reports the in-process options cache contents.
func (s *GuardService) CacheStats() cache.OptionsCacheStats {
	if s.optionsCache == nil {
		return cache.OptionsCacheStats{}
	}
	return s.optionsCache.Stats()
}

// Insights reports the accumulated diagnosis aggregates.
func (s *GuardService) Insights() insights.Summary {
	if s.insights == nil {
		return insights.Summary{}
	}
	return s.insights.Snapshot()
}

// LatencyP95 returns the current p95 diagnosis latency.
func (s *GuardService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

// HandleIngestComplete reacts to an upstream data upload: every cached option
// set may now be stale, so both cache tiers are dropped wholesale.
func (s *GuardService) HandleIngestComplete(ctx context.Context) {
	if s.optionsCache != nil {
		s.optionsCache.ClearAll()
		metrics.SetOptionsCacheEntries(0)
	}
	if err := s.sharedCache.FlushDB(ctx); err != nil {
		s.logger.Warn("shared cache flush failed", slog.Any("error", err))
	}
	s.logger.Info("filter option caches cleared after ingest-complete event")
}
