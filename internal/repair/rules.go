package repair

import (
	"errors"
	"fmt"
	"io"
	"regexp"

	"gopkg.in/yaml.v3"
)

const (
	ruleFileDecodeErrorTemplateConstant     = "failed to parse rules file: %w"
	ruleFileEmptyMessageConstant            = "rules file must define at least one rule"
	rulePatternEmptyTemplateConstant        = "rule %d: pattern must be provided"
	rulePatternCompileErrorTemplateConstant = "rule %d: invalid pattern %q: %w"
)

// ErrNoRulesDefined indicates a rules file contained no usable rules.
var ErrNoRulesDefined = errors.New(ruleFileEmptyMessageConstant)

// RewriteRule pairs a regular-expression pattern with its literal replacement.
type RewriteRule struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

type compiledRule struct {
	expression  *regexp.Regexp
	replacement string
}

// RuleSet holds ordered rewrite rules and the markers identifying residual corruption.
type RuleSet struct {
	rules           []compiledRule
	residualMarkers []string
}

// Rules declaring an explicit keyword win over the generic fragment rules, so
// they must stay ahead of them in the list.
var builtinRewriteRules = []RewriteRule{
	{Pattern: `\bfunc\s+cpublic\s+reate`, Replacement: "public func create"},
	{Pattern: `\bfunc\s+epublic\s+dit`, Replacement: "public func edit"},
	{Pattern: `\bfunc\s+spublic\s+ave`, Replacement: "public func save"},
	{Pattern: `\bfunc\s+dpublic\s+elete`, Replacement: "public func delete"},
	{Pattern: `\bfunc\s+spublic\s+et`, Replacement: "public func set"},
	{Pattern: `\bfunc\s+dpublic\s+uplicate`, Replacement: "public func duplicate"},
	{Pattern: `\bfunc\s+opublic\s+pen`, Replacement: "public func open"},
	{Pattern: `\bfunc\s+tpublic\s+est`, Replacement: "public func test"},
	{Pattern: `\bfunc\s+cpublic\s+onnect`, Replacement: "public func connect"},
	{Pattern: `\bfunc\s+dpublic\s+isconnect`, Replacement: "public func disconnect"},
	{Pattern: `\bfunc\s+apublic\s+dd`, Replacement: "public func add"},
	{Pattern: `\bfunc\s+rpublic\s+emove`, Replacement: "public func remove"},
	{Pattern: `\bfunc\s+spublic\s+earch`, Replacement: "public func search"},
	{Pattern: `\bfunc\s+cpublic\s+lear`, Replacement: "public func clear"},
	{Pattern: `\bvar\s+cpublic\s+ategorized`, Replacement: "public var categorized"},
	{Pattern: `\bvar\s+fpublic\s+iltered`, Replacement: "public var filtered"},
	{Pattern: `\bvar\s+hpublic\s+as`, Replacement: "public var has"},
	{Pattern: `\bvar\s+cpublic\s+an`, Replacement: "public var can"},
	{Pattern: `\blet\s+ppublic\s+roject\b`, Replacement: "let project"},
	{Pattern: `\blet\s+cpublic\s+onfig\b`, Replacement: "let config"},
	{Pattern: `\blet\s+spublic\s+uccess\b`, Replacement: "let success"},
	{Pattern: `\blet\s+dpublic\s+uplicated\b`, Replacement: "let duplicated"},
	{Pattern: `\blet\s+ipublic\s+mpact`, Replacement: "let impact"},
	{Pattern: `cpublic\s+reate`, Replacement: "create"},
	{Pattern: `epublic\s+dit`, Replacement: "edit"},
	{Pattern: `spublic\s+ave`, Replacement: "save"},
	{Pattern: `dpublic\s+elete`, Replacement: "delete"},
	{Pattern: `spublic\s+et`, Replacement: "set"},
	{Pattern: `dpublic\s+uplicate`, Replacement: "duplicate"},
	{Pattern: `opublic\s+pen`, Replacement: "open"},
	{Pattern: `tpublic\s+est`, Replacement: "test"},
	{Pattern: `cpublic\s+onnect`, Replacement: "connect"},
	{Pattern: `dpublic\s+isconnect`, Replacement: "disconnect"},
	{Pattern: `apublic\s+dd`, Replacement: "add"},
	{Pattern: `rpublic\s+emove`, Replacement: "remove"},
	{Pattern: `spublic\s+earch`, Replacement: "search"},
	{Pattern: `cpublic\s+lear`, Replacement: "clear"},
	{Pattern: `cpublic\s+ategorized`, Replacement: "categorized"},
	{Pattern: `fpublic\s+iltered`, Replacement: "filtered"},
	{Pattern: `hpublic\s+as`, Replacement: "has"},
	{Pattern: `cpublic\s+an`, Replacement: "can"},
	{Pattern: `ppublic\s+roject`, Replacement: "project"},
	{Pattern: `cpublic\s+onfig`, Replacement: "config"},
	{Pattern: `spublic\s+uccess`, Replacement: "success"},
	{Pattern: `dpublic\s+uplicated`, Replacement: "duplicated"},
	{Pattern: `ipublic\s+mpact`, Replacement: "impact"},
}

var builtinResidualMarkers = []string{
	"cpublic ",
	"fpublic ",
	"hpublic ",
	"ppublic ",
	"dpublic ",
	"epublic ",
	"spublic ",
	"opublic ",
	"tpublic ",
	"apublic ",
	"rpublic ",
	"ipublic ",
}

// DefaultRuleSet returns the built-in ordered rule table and residual markers.
func DefaultRuleSet() *RuleSet {
	ruleSet, compileError := NewRuleSet(builtinRewriteRules)
	if compileError != nil {
		panic(compileError)
	}
	return ruleSet
}

// NewRuleSet compiles the provided rules into an ordered RuleSet.
func NewRuleSet(rewriteRules []RewriteRule) (*RuleSet, error) {
	compiledRules, compileError := compileRewriteRules(rewriteRules)
	if compileError != nil {
		return nil, compileError
	}

	residualMarkers := make([]string, len(builtinResidualMarkers))
	copy(residualMarkers, builtinResidualMarkers)

	return &RuleSet{rules: compiledRules, residualMarkers: residualMarkers}, nil
}

// Extend appends additional rules after the existing ones, preserving order.
func (ruleSet *RuleSet) Extend(rewriteRules []RewriteRule) error {
	compiledRules, compileError := compileRewriteRules(rewriteRules)
	if compileError != nil {
		return compileError
	}
	ruleSet.rules = append(ruleSet.rules, compiledRules...)
	return nil
}

// RuleCount reports the number of compiled rules in the set.
func (ruleSet *RuleSet) RuleCount() int {
	return len(ruleSet.rules)
}

// LoadRewriteRules decodes rewrite rules from YAML content supplied by the reader.
func LoadRewriteRules(ruleReader io.Reader) ([]RewriteRule, error) {
	var decodedRules []RewriteRule
	decoder := yaml.NewDecoder(ruleReader)
	if decodeError := decoder.Decode(&decodedRules); decodeError != nil {
		return nil, fmt.Errorf(ruleFileDecodeErrorTemplateConstant, decodeError)
	}

	if len(decodedRules) == 0 {
		return nil, ErrNoRulesDefined
	}

	if _, compileError := compileRewriteRules(decodedRules); compileError != nil {
		return nil, compileError
	}

	return decodedRules, nil
}

func compileRewriteRules(rewriteRules []RewriteRule) ([]compiledRule, error) {
	compiledRules := make([]compiledRule, 0, len(rewriteRules))
	for ruleIndex, rewriteRule := range rewriteRules {
		if len(rewriteRule.Pattern) == 0 {
			return nil, fmt.Errorf(rulePatternEmptyTemplateConstant, ruleIndex)
		}

		expression, expressionError := regexp.Compile(rewriteRule.Pattern)
		if expressionError != nil {
			return nil, fmt.Errorf(rulePatternCompileErrorTemplateConstant, ruleIndex, rewriteRule.Pattern, expressionError)
		}

		compiledRules = append(compiledRules, compiledRule{expression: expression, replacement: rewriteRule.Replacement})
	}
	return compiledRules, nil
}
