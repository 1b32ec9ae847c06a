package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/forecastgrid/forecast-guard/internal/cache"
	"github.com/forecastgrid/forecast-guard/internal/models"
	"github.com/forecastgrid/forecast-guard/internal/utils"
)

// ErrNoDataForPeriod reports that the core service holds no forecast data for
// the requested reporting period. A legitimate, expected outcome, distinct
// from a transport failure.
var ErrNoDataForPeriod = errors.New("no forecast data for period")

// ForecastCoreClient wraps the forecast core service APIs: the filter-options
// source and query execution.
type ForecastCoreClient struct {
	baseURL     string
	optionsPath string
	queryPath   string
	httpClient  *http.Client
	cache       cache.Provider
	optionsTTL  time.Duration
}

// NewForecastCoreClient constructs a client targeting the configured core
// instance. Fetched option sets are mirrored into the shared cache provider
// for optionsTTL so replicas warm from each other.
func NewForecastCoreClient(baseURL, optionsPath, queryPath string, timeout time.Duration, cacheProvider cache.Provider, optionsTTL time.Duration) *ForecastCoreClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ForecastCoreClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		optionsPath: optionsPath,
		queryPath:   queryPath,
		httpClient:  &http.Client{Timeout: timeout},
		cache:       cacheProvider,
		optionsTTL:  optionsTTL,
	}
}

// FetchFilterOptions returns the per-field valid values for a reporting
// period, or ErrNoDataForPeriod when the core reports the period empty.
func (c *ForecastCoreClient) FetchFilterOptions(ctx context.Context, month, year int) (models.FilterOptions, error) {
	if c == nil {
		return models.FilterOptions{}, fmt.Errorf("forecast core client not initialised")
	}
	if c.baseURL == "" {
		return models.FilterOptions{}, fmt.Errorf("forecast core base URL not configured")
	}

	cacheKey := ""
	if c.optionsTTL > 0 {
		cacheKey = optionsCacheKey(month, year)
		if data, err := c.cache.Get(ctx, cacheKey); err == nil {
			var cached models.FilterOptions
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	endpoint := c.resolvePath(c.optionsPath)
	query := url.Values{}
	query.Set("month", strconv.Itoa(month))
	query.Set("year", strconv.Itoa(year))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return models.FilterOptions{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.FilterOptions{}, utils.NewAppError("forecast_core.options", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.FilterOptions{}, ErrNoDataForPeriod
	}
	if resp.StatusCode != http.StatusOK {
		return models.FilterOptions{}, utils.NewAppError("forecast_core.options", "unexpected status "+resp.Status, nil)
	}

	var response struct {
		HasData bool                `json:"hasData"`
		Filters map[string][]string `json:"filters"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return models.FilterOptions{}, fmt.Errorf("decode options response: %w", err)
	}
	if !response.HasData {
		return models.FilterOptions{}, ErrNoDataForPeriod
	}

	options := models.FilterOptions{
		Month:  month,
		Year:   year,
		Values: make(map[models.FilterField][]string, len(response.Filters)),
	}
	for field, values := range response.Filters {
		options.Values[models.FilterField(field)] = values
	}

	if cacheKey != "" && len(options.Values) > 0 {
		if payload, err := json.Marshal(options); err == nil {
			_ = c.cache.Set(ctx, cacheKey, payload, c.optionsTTL)
		}
	}

	return options, nil
}

// ExecuteQuery runs a full or partial filter set against the core service and
// returns the matching records with their total count. Results are never
// cached: diagnosis depends on observing the live row counts.
func (c *ForecastCoreClient) ExecuteQuery(ctx context.Context, params models.QueryParameters) (models.QueryResult, error) {
	if c == nil {
		return models.QueryResult{}, fmt.Errorf("forecast core client not initialised")
	}
	if c.baseURL == "" {
		return models.QueryResult{}, fmt.Errorf("forecast core base URL not configured")
	}

	body, err := json.Marshal(params)
	if err != nil {
		return models.QueryResult{}, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolvePath(c.queryPath), bytes.NewReader(body))
	if err != nil {
		return models.QueryResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.QueryResult{}, utils.NewAppError("forecast_core.query", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.QueryResult{}, utils.NewAppError("forecast_core.query", "unexpected status "+resp.Status, nil)
	}

	var result models.QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.QueryResult{}, fmt.Errorf("decode query response: %w", err)
	}
	return result, nil
}

// InvalidateOptions drops the mirrored option set for a single period.
func (c *ForecastCoreClient) InvalidateOptions(ctx context.Context, month, year int) {
	_ = c.cache.Del(ctx, optionsCacheKey(month, year))
}

func optionsCacheKey(month, year int) string {
	return fmt.Sprintf("forecast:options:%04d-%02d", year, month)
}

func (c *ForecastCoreClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}
