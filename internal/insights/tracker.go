package insights

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/forecastgrid/forecast-guard/internal/models"
)

// Tracker aggregates diagnosis outcomes into simple frequency-based insights:
// which filter fields keep breaking queries and which values tend to work.
// In-memory only; a restart resets the counters.
type Tracker struct {
	mu     sync.Mutex
	logger *slog.Logger

	totalDiagnoses    int
	dataIssues        int
	combinationIssues int
	fields            map[models.FilterField]*fieldAggregate
}

// FieldInsight is the per-field aggregate exposed by Snapshot.
type FieldInsight struct {
	Field            models.FilterField `json:"field"`
	ProblemCount     int                `json:"problemCount"`
	TopWorkingValues []string           `json:"topWorkingValues,omitempty"`
	LastSeen         time.Time          `json:"lastSeen"`
}

// Summary is the full insight snapshot.
type Summary struct {
	TotalDiagnoses    int            `json:"totalDiagnoses"`
	DataIssues        int            `json:"dataIssues"`
	CombinationIssues int            `json:"combinationIssues"`
	Fields            []FieldInsight `json:"fields"`
}

type fieldAggregate struct {
	count       int
	lastSeen    time.Time
	valueCounts map[string]int
}

// NewTracker constructs an empty tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		logger: logger,
		fields: make(map[models.FilterField]*fieldAggregate),
	}
}

// Record folds one diagnosis outcome into the aggregates.
func (t *Tracker) Record(result models.DiagnosticResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalDiagnoses++
	switch {
	case result.IsDataIssue:
		t.dataIssues++
	case result.IsCombinationIssue:
		t.combinationIssues++
	}

	for _, field := range result.ProblematicFilters {
		agg := t.ensureAggregate(field)
		agg.count++
		if result.CreatedAt.After(agg.lastSeen) {
			agg.lastSeen = result.CreatedAt
		}
		for _, value := range result.WorkingCombinations[field] {
			if value == "" {
				continue
			}
			agg.valueCounts[value]++
		}
	}
}

// Snapshot returns the current aggregates, fields ordered by problem count
// descending with field name as the tie-break.
func (t *Tracker) Snapshot() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	fields := make([]FieldInsight, 0, len(t.fields))
	for field, agg := range t.fields {
		fields = append(fields, FieldInsight{
			Field:            field,
			ProblemCount:     agg.count,
			TopWorkingValues: agg.topValues(3),
			LastSeen:         agg.lastSeen,
		})
	}
	sort.Slice(fields, func(i, j int) bool {
		if fields[i].ProblemCount != fields[j].ProblemCount {
			return fields[i].ProblemCount > fields[j].ProblemCount
		}
		return fields[i].Field < fields[j].Field
	})

	return Summary{
		TotalDiagnoses:    t.totalDiagnoses,
		DataIssues:        t.dataIssues,
		CombinationIssues: t.combinationIssues,
		Fields:            fields,
	}
}

func (t *Tracker) ensureAggregate(field models.FilterField) *fieldAggregate {
	agg, ok := t.fields[field]
	if !ok {
		agg = &fieldAggregate{valueCounts: make(map[string]int)}
		t.fields[field] = agg
	}
	return agg
}

func (agg *fieldAggregate) topValues(limit int) []string {
	values := make([]string, 0, len(agg.valueCounts))
	for value := range agg.valueCounts {
		values = append(values, value)
	}
	sort.Slice(values, func(i, j int) bool {
		if agg.valueCounts[values[i]] != agg.valueCounts[values[j]] {
			return agg.valueCounts[values[i]] > agg.valueCounts[values[j]]
		}
		return values[i] < values[j]
	})
	if len(values) > limit {
		values = values[:limit]
	}
	return values
}
