// Package rules provides the CEL-Go based loyalty classification engine.
package rules

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/loyalty/internal/domain"
)

// GuardUnmatched is reported when no loaded guard matches.
const GuardUnmatched = "unmatched"

// ReasonNoMatchingGuard is the reason attached to unmatched classifications.
const ReasonNoMatchingGuard = "No Matching Rule"

// Engine classifies customers by evaluating an ordered list of guards.
// The first guard whose expression is true decides the status and reason.
// An Engine is safe for concurrent use; thresholds are supplied per call.
type Engine struct {
	mu     sync.RWMutex
	env    *cel.Env
	guards []*CompiledGuard
}

// CompiledGuard holds a pre-compiled CEL program.
type CompiledGuard struct {
	Guard   domain.Guard
	Program cel.Program
}

// NewEngine creates an engine loaded with the built-in loyalty guards.
func NewEngine() (*Engine, error) {
	// Metric and threshold variables visible to guard expressions
	env, err := cel.NewEnv(
		cel.Variable("has_tenure", cel.BoolType),
		cel.Variable("tenure_years", cel.IntType),
		cel.Variable("years_active", cel.IntType),
		cel.Variable("consistency_rate", cel.DoubleType),
		cel.Variable("revenue_in_window", cel.DoubleType),
		cel.Variable("min_tenure_years", cel.IntType),
		cel.Variable("min_consistency_rate", cel.DoubleType),
		cel.Variable("min_revenue_window", cel.DoubleType),
		cel.Variable("min_revenue_per_active_year", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &Engine{env: env}
	if err := e.LoadGuards(BuiltinGuards()); err != nil {
		return nil, err
	}
	return e, nil
}

// LoadGuards replaces the loaded guards. Order is preserved. On error the
// previously loaded guards stay in place.
func (e *Engine) LoadGuards(guards []domain.Guard) error {
	compiled := make([]*CompiledGuard, 0, len(guards))
	for _, g := range guards {
		if !g.Status.Valid() {
			return fmt.Errorf("guard %s: unknown status %q", g.ID, g.Status)
		}
		if g.Status != domain.StatusLoyal && g.Reason == "" {
			return fmt.Errorf("guard %s: reason is required for status %q", g.ID, g.Status)
		}
		cg, err := e.compileGuard(g)
		if err != nil {
			return err
		}
		compiled = append(compiled, cg)
	}

	e.mu.Lock()
	e.guards = compiled
	e.mu.Unlock()

	return nil
}

// Classify assigns a status and reason to one customer's metrics.
func (e *Engine) Classify(m domain.Metrics, cfg domain.LoyaltyConfig) domain.ClassificationResult {
	e.mu.RLock()
	guards := e.guards
	e.mu.RUnlock()

	activation := Activation(m, cfg)

	for _, g := range guards {
		matched, err := evaluateGuard(g, activation)
		if err != nil {
			slog.Warn("guard evaluation failed",
				"guard_id", g.Guard.ID,
				"error", err,
			)
			continue
		}
		if matched {
			result := domain.ClassificationResult{
				Status:  g.Guard.Status,
				GuardID: g.Guard.ID,
			}
			if g.Guard.Status != domain.StatusLoyal {
				result.Reason = g.Guard.Reason
			}
			return result
		}
	}

	return domain.ClassificationResult{
		Status:  domain.StatusNotQualified,
		Reason:  ReasonNoMatchingGuard,
		GuardID: GuardUnmatched,
	}
}

// Activation builds the CEL variables for one evaluation.
func Activation(m domain.Metrics, cfg domain.LoyaltyConfig) map[string]any {
	return map[string]any{
		"has_tenure":                  m.TenureYears.Valid,
		"tenure_years":                int64(m.TenureYears.Value),
		"years_active":                int64(m.YearsActive),
		"consistency_rate":            m.ConsistencyRate,
		"revenue_in_window":           m.RevenueInWindow,
		"min_tenure_years":            int64(cfg.MinTenureYears),
		"min_consistency_rate":        cfg.MinConsistencyRate,
		"min_revenue_window":          cfg.MinRevenueWindow,
		"min_revenue_per_active_year": cfg.MinRevenuePerActiveYear,
	}
}

func evaluateGuard(g *CompiledGuard, activation map[string]any) (bool, error) {
	out, _, err := g.Program.Eval(activation)
	if err != nil {
		return false, err
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("guard %s returned %s, want bool", g.Guard.ID, out.Type())
	}
	return bool(b), nil
}

// GuardsCount returns the number of loaded guards.
func (e *Engine) GuardsCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.guards)
}

// GetLoadedGuards returns the loaded guards in evaluation order.
func (e *Engine) GetLoadedGuards() []domain.Guard {
	e.mu.RLock()
	defer e.mu.RUnlock()

	guards := make([]domain.Guard, 0, len(e.guards))
	for _, g := range e.guards {
		guards = append(guards, g.Guard)
	}
	return guards
}

func (e *Engine) compileGuard(g domain.Guard) (*CompiledGuard, error) {
	ast, issues := e.env.Compile(g.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile guard %s: %w", g.ID, issues.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("guard %s: expression must return bool, got %s", g.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for guard %s: %w", g.ID, err)
	}

	return &CompiledGuard{
		Guard:   g,
		Program: program,
	}, nil
}
