package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/forecastgrid/forecast-guard/internal/cache"
	"github.com/forecastgrid/forecast-guard/internal/models"
	"github.com/forecastgrid/forecast-guard/internal/repo"
)

// OptionsSource supplies the per-period valid filter values, typically the
// forecast core client.
type OptionsSource interface {
	FetchFilterOptions(ctx context.Context, month, year int) (models.FilterOptions, error)
}

// FieldValidator checks submitted filter values against the period's valid
// option sets and proposes corrections for near-misses.
type FieldValidator struct {
	logger     *slog.Logger
	source     OptionsSource
	cache      *cache.OptionsCache
	thresholds Thresholds
}

// NewFieldValidator wires a validator over an options source and a local
// options cache. A nil cache disables local caching.
func NewFieldValidator(logger *slog.Logger, source OptionsSource, optionsCache *cache.OptionsCache, thresholds Thresholds) *FieldValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FieldValidator{
		logger:     logger,
		source:     source,
		cache:      optionsCache,
		thresholds: thresholds,
	}
}

// GetFilterOptions returns the valid filter values for a reporting period.
// The second return reports whether the period holds any data at all: a
// clean "no data" answer from the source is (zero, false, nil), not an
// error. forceRefresh bypasses the local cache.
func (v *FieldValidator) GetFilterOptions(ctx context.Context, month, year int, forceRefresh bool) (models.FilterOptions, bool, error) {
	if v.cache != nil && !forceRefresh {
		if options, ok := v.cache.Get(month, year); ok {
			return options, true, nil
		}
	}

	options, err := v.source.FetchFilterOptions(ctx, month, year)
	if err != nil {
		if errors.Is(err, repo.ErrNoDataForPeriod) {
			v.logger.Info("no forecast data for period", "month", month, "year", year)
			return models.FilterOptions{}, false, nil
		}
		return models.FilterOptions{}, false, err
	}

	if v.cache != nil {
		v.cache.Set(month, year, options)
	}
	return options, true, nil
}

// FuzzyMatch scores a submitted value against the valid options for one
// field. An exact case-insensitive match returns the canonical casing at
// full confidence; otherwise every option is scored and the best match
// drives the verdict. Ties keep the option-list order.
func (v *FieldValidator) FuzzyMatch(field models.FilterField, value string, options []string) models.ValidationResult {
	result := models.ValidationResult{
		FieldName:     field,
		OriginalValue: value,
		Level:         models.ConfidenceLow,
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" || len(options) == 0 {
		result.Suggestions = capSuggestions(options, v.thresholds.MaxSuggestions)
		return result
	}

	lowered := strings.ToLower(trimmed)
	for _, option := range options {
		if strings.ToLower(option) == lowered {
			result.IsValid = true
			result.CorrectedValue = option
			result.Confidence = 1.0
			result.Level = models.ConfidenceHigh
			return result
		}
	}

	type scored struct {
		option string
		score  float64
	}
	candidates := make([]scored, 0, len(options))
	for _, option := range options {
		candidates = append(candidates, scored{
			option: option,
			score:  similarity(lowered, strings.ToLower(option)),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	top := candidates[0]
	result.Confidence = top.score
	result.Level = models.LevelFromScore(top.score, v.thresholds.HighConfidence, v.thresholds.MinConfidence)
	result.IsValid = top.score >= v.thresholds.MinConfidence
	if top.score > 0 {
		result.CorrectedValue = top.option
	}

	for _, candidate := range candidates {
		if candidate.score < v.thresholds.MinConfidence {
			break
		}
		result.Suggestions = append(result.Suggestions, candidate.option)
		if len(result.Suggestions) == v.thresholds.MaxSuggestions {
			break
		}
	}
	if len(result.Suggestions) == 0 {
		// Nothing plausible: hand back the first few valid values so the
		// caller can still show what a legal value looks like.
		result.Suggestions = capSuggestions(options, v.thresholds.MaxSuggestions)
	}
	return result
}

// ValidateAll validates every submitted filter value against one option
// fetch for the period. State names are normalized to 2-letter codes before
// matching, with the submitted spelling preserved in the result. A fetch
// failure or an empty period yields an empty map: validation degrades to a
// no-op rather than blocking the query.
func (v *FieldValidator) ValidateAll(ctx context.Context, params models.QueryParameters) map[models.FilterField][]models.ValidationResult {
	results := make(map[models.FilterField][]models.ValidationResult)

	options, hasData, err := v.GetFilterOptions(ctx, params.Month, params.Year, false)
	if err != nil {
		v.logger.Warn("filter options unavailable, skipping validation",
			"month", params.Month, "year", params.Year, "error", err)
		return results
	}
	if !hasData {
		return results
	}

	for _, field := range models.FilterFieldOrder {
		values := params.ValuesFor(field)
		if len(values) == 0 {
			continue
		}
		valid := options.ValuesFor(field)
		for _, value := range values {
			candidate := value
			if field == models.FieldState {
				candidate = NormalizeStateValue(value)
			}
			verdict := v.FuzzyMatch(field, candidate, valid)
			verdict.OriginalValue = value
			results[field] = append(results[field], verdict)
		}
	}
	return results
}

func capSuggestions(options []string, limit int) []string {
	if len(options) == 0 || limit <= 0 {
		return nil
	}
	if len(options) > limit {
		options = options[:limit]
	}
	return append([]string(nil), options...)
}
