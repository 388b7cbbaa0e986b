package repair

import (
	"errors"
	"strings"
)

const (
	ruleSetMissingMessageConstant = "rule set not configured"
)

// ErrRuleSetNotConfigured indicates the engine was constructed without a rule set.
var ErrRuleSetNotConfigured = errors.New(ruleSetMissingMessageConstant)

// Engine applies an ordered rule set to file content as a pure transformation.
type Engine struct {
	ruleSet *RuleSet
}

// NewEngine constructs an Engine from the provided rule set.
func NewEngine(ruleSet *RuleSet) (*Engine, error) {
	if ruleSet == nil {
		return nil, ErrRuleSetNotConfigured
	}
	return &Engine{ruleSet: ruleSet}, nil
}

// Apply rewrites every rule globally and in list order. The transform is the
// identity on clean input and idempotent on repaired input.
func (engine *Engine) Apply(content string) string {
	transformed := content
	for _, rule := range engine.ruleSet.rules {
		transformed = rule.expression.ReplaceAllLiteralString(transformed, rule.replacement)
	}
	return transformed
}

// ResidualMarkers returns the corruption markers still present in the content.
func (engine *Engine) ResidualMarkers(content string) []string {
	var foundMarkers []string
	for _, residualMarker := range engine.ruleSet.residualMarkers {
		if strings.Contains(content, residualMarker) {
			foundMarkers = append(foundMarkers, residualMarker)
		}
	}
	return foundMarkers
}

// HasResidualCorruption reports whether any corruption marker remains in the content.
func (engine *Engine) HasResidualCorruption(content string) bool {
	return len(engine.ResidualMarkers(content)) > 0
}
