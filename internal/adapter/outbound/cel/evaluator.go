// Package cel compiles CEL expressions into capture record filters.
package cel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
	"github.com/Sentinel-Gate/httpdissect/internal/port/outbound"
)

const (
	maxExpressionLength = 1024
	maxCostBudget       = 100_000
	maxNestingDepth     = 50
	evalTimeout         = 5 * time.Second
	interruptCheckFreq  = 100
)

// Evaluator compiles and evaluates filter expressions.
type Evaluator struct {
	env    *cel.Env
	logger *slog.Logger
}

// NewEvaluator creates an evaluator. Evaluation failures are logged at debug.
func NewEvaluator(logger *slog.Logger) (*Evaluator, error) {
	env, err := NewCaptureEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create capture environment: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{env: env, logger: logger}, nil
}

// Program validates expr and returns a compiled program.
func (e *Evaluator) Program(expr string) (cel.Program, error) {
	if expr == "" {
		return nil, errors.New("expression is empty")
	}
	if len(expr) > maxExpressionLength {
		return nil, fmt.Errorf("expression too long: %d characters (max %d)", len(expr), maxExpressionLength)
	}
	if err := validateNesting(expr); err != nil {
		return nil, err
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation failed: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}

	prg, err := e.env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
		cel.InterruptCheckFrequency(interruptCheckFreq),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation failed: %w", err)
	}
	return prg, nil
}

// Evaluate runs prg against r.
func (e *Evaluator) Evaluate(ctx context.Context, prg cel.Program, r capture.Record) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	out, _, err := prg.ContextEval(ctx, BuildActivation(r))
	if err != nil {
		return false, fmt.Errorf("evaluation failed: %w", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression did not return a boolean, got %T", out.Value())
	}
	return b, nil
}

// Compile implements outbound.FilterCompiler. A record for which the
// expression fails to evaluate does not match.
func (e *Evaluator) Compile(expr string) (func(capture.Record) bool, error) {
	prg, err := e.Program(expr)
	if err != nil {
		return nil, err
	}
	return func(r capture.Record) bool {
		ok, err := e.Evaluate(context.Background(), prg, r)
		if err != nil {
			e.logger.Debug("filter evaluation failed", "id", r.ID, "error", err)
			return false
		}
		return ok
	}, nil
}

func validateNesting(expr string) error {
	var depth, deepest int
	for _, ch := range expr {
		switch ch {
		case '(', '[', '{':
			depth++
			deepest = max(deepest, depth)
		case ')', ']', '}':
			depth--
		}
	}
	if deepest > maxNestingDepth {
		return fmt.Errorf("expression nesting too deep: %d levels (max %d)", deepest, maxNestingDepth)
	}
	return nil
}

var _ outbound.FilterCompiler = (*Evaluator)(nil)
