package engine

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forecastgrid/forecast-guard/internal/models"
)

// HintEngine enriches diagnosis outcomes with operator-authored remediation
// hints loaded from a YAML pack.
type HintEngine struct {
	rules  []HintRule
	logger *slog.Logger
}

// HintRule maps a diagnosis shape onto remediation hints.
type HintRule struct {
	ID    string    `yaml:"id"`
	Match HintMatch `yaml:"match"`
	Hints []string  `yaml:"hints"`
}

// HintMatch defines optional attributes for rule matching. Empty attributes
// match anything.
type HintMatch struct {
	Issue string `yaml:"issue"`
	Field string `yaml:"field"`
}

// HintConfigFile is the YAML root structure.
type HintConfigFile struct {
	Rules []HintRule `yaml:"rules"`
}

const (
	hintIssueData        = "data"
	hintIssueCombination = "combination"
)

// NewHintEngine loads hint rules from the provided path. If path is empty or
// the file does not exist, returns a nil engine: hints are strictly optional.
func NewHintEngine(path string, logger *slog.Logger) (*HintEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg HintConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HintEngine{rules: cfg.Rules, logger: logger}, nil
}

// HintsFor returns the deduplicated hints whose rules match the diagnosis.
func (e *HintEngine) HintsFor(result models.DiagnosticResult) []string {
	if e == nil {
		return nil
	}

	matched := make([]string, 0)
	for _, rule := range e.rules {
		if rule.Match.Issue != "" && !issueMatches(rule.Match.Issue, result) {
			continue
		}
		if rule.Match.Field != "" && !fieldMatches(rule.Match.Field, result.ProblematicFilters) {
			continue
		}
		matched = appendUnique(matched, rule.Hints...)
	}
	return matched
}

func issueMatches(issue string, result models.DiagnosticResult) bool {
	switch strings.ToLower(issue) {
	case hintIssueData:
		return result.IsDataIssue
	case hintIssueCombination:
		return result.IsCombinationIssue
	default:
		return false
	}
}

func fieldMatches(field string, problematic []models.FilterField) bool {
	for _, f := range problematic {
		if strings.EqualFold(field, string(f)) {
			return true
		}
	}
	return false
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, hint := range existing {
		seen[hint] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
