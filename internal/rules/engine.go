// Package rules provides the CEL-Go based escalation rule engine.
//
// Escalation rules let operators extend the built-in risk cascade without
// a deploy: a rule is a boolean CEL expression over the activity being
// assessed; when it evaluates true the scorer appends the rule's factor
// tag and floors the level at the rule's minimum.
package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/ukallavi/Secura-sub000/internal/domain"
)

// Engine holds the compiled escalation rules.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.EscalationRule
	Program cel.Program
}

// Match records a triggered rule.
type Match struct {
	RuleID   string
	Factor   domain.RiskFactor
	MinLevel domain.RiskLevel
}

// NewEngine creates a new escalation rule engine.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("ip", cel.StringType),
		cel.Variable("browser", cel.StringType),
		cel.Variable("os", cel.StringType),
		cel.Variable("device_class", cel.StringType),
		cel.Variable("country", cel.StringType),
		cel.Variable("region", cel.StringType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("weekday", cel.IntType),
		cel.Variable("activity_type", cel.StringType),
		cel.Variable("factors", cel.ListType(cel.StringType)),
		cel.Variable("failed_logins", cel.IntType),
		cel.Variable("baseline_age_days", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
	}, nil
}

// Input holds the assessment state exposed to rule expressions.
type Input struct {
	Context         *domain.ActivityContext
	ActivityType    domain.ActivityType
	Factors         []domain.RiskFactor
	FailedLogins    int64
	BaselineAgeDays int64
}

// ValidateRule compiles a rule without loading it into the engine.
func (e *Engine) ValidateRule(cfg *domain.EscalationRule) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg *domain.EscalationRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled
	return nil
}

// LoadRules compiles and loads multiple rules.
func (e *Engine) LoadRules(configs []*domain.EscalationRule) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules clears all existing rules and loads new ones.
// This enables hot-reloading of rules from the database.
func (e *Engine) ReloadRules(configs []*domain.EscalationRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules
	return nil
}

// EvaluateAll evaluates every loaded rule against the input and returns
// the matches. A rule that errors at evaluation time is skipped: a broken
// custom rule must not block scoring.
func (e *Engine) EvaluateAll(input *Input) []Match {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil
	}

	factors := make([]string, len(input.Factors))
	for i, f := range input.Factors {
		factors[i] = string(f)
	}

	activation := map[string]any{
		"ip":                input.Context.IP,
		"browser":           input.Context.UserAgent.Browser,
		"os":                input.Context.UserAgent.OS,
		"device_class":      input.Context.UserAgent.DeviceClass,
		"country":           input.Context.Location.Country,
		"region":            input.Context.Location.Region,
		"hour":              int64(input.Context.Timestamp.Hour()),
		"weekday":           int64(input.Context.Timestamp.Weekday()),
		"activity_type":     string(input.ActivityType),
		"factors":           factors,
		"failed_logins":     input.FailedLogins,
		"baseline_age_days": input.BaselineAgeDays,
	}

	var matches []Match
	for _, rule := range rules {
		out, _, err := rule.Program.Eval(activation)
		if err != nil {
			continue
		}
		if triggered, ok := out.(types.Bool); ok && bool(triggered) {
			matches = append(matches, Match{
				RuleID:   rule.Config.ID,
				Factor:   rule.Config.Factor,
				MinLevel: rule.Config.MinLevel,
			})
		}
	}

	return matches
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *Engine) GetLoadedRules() []*domain.EscalationRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.EscalationRule, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	return rules
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.EscalationRule) (*CompiledRule, error) {
	if cfg.Factor == "" {
		return nil, fmt.Errorf("rule %s: factor tag is required", cfg.ID)
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
