package evo

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/PaesslerAG/gval"
	"github.com/go-logr/logr"
)

// Evaluator scores one individual. It may fail; a failure marks the
// individual invalid and never aborts a generation.
type Evaluator interface {
	Evaluate(ind Individual) (float64, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ind Individual) (float64, error)

func (f EvaluatorFunc) Evaluate(ind Individual) (float64, error) { return f(ind) }

// EvaluationStats counts what the last evaluation phase did.
type EvaluationStats struct {
	Evaluated int
	Failed    int
	Completed int
	Elapsed   time.Duration
}

// Evaluation runs the evaluator over every unevaluated member.
type Evaluation struct {
	ev      Evaluator
	timeout time.Duration
	log     logr.Logger
}

// NewEvaluation wraps ev. timeout is advisory: evaluations that exceed it
// are logged but not interrupted.
func NewEvaluation(ev Evaluator, timeout time.Duration, log logr.Logger) *Evaluation {
	return &Evaluation{ev: ev, timeout: timeout, log: log.WithName("evaluation")}
}

// Apply completes the population if configured, then evaluates every
// member that has no evaluation yet and re-sorts.
func (e *Evaluation) Apply(pop *Population) EvaluationStats {
	start := time.Now()
	stats := EvaluationStats{Completed: pop.InitEvaluation()}
	for _, ind := range pop.members {
		if ind.Base().IsEvaluated() {
			continue
		}
		e.evaluate(ind)
		stats.Evaluated++
		if ind.Base().Status == Invalid {
			stats.Failed++
		}
	}
	if stats.Evaluated > 0 {
		pop.MarkUnsorted()
		pop.Sort()
	}
	stats.Elapsed = time.Since(start)
	e.log.V(2).Info("evaluation done", "evaluated", stats.Evaluated, "failed", stats.Failed)
	return stats
}

func (e *Evaluation) evaluate(ind Individual) {
	id := ind.Base().ID
	start := time.Now()
	fitness, err := e.call(ind)
	elapsed := time.Since(start)
	if err == nil && math.IsNaN(fitness) {
		err = fmt.Errorf("fitness is NaN")
	}
	if err != nil {
		err = &EvaluationError{ID: id, Err: err}
		e.log.V(4).Info("evaluation failed", "id", id, "err", err)
	}
	if e.timeout > 0 && elapsed > e.timeout {
		e.log.Info("warning: evaluation exceeded its timeout", "id", id, "elapsed", elapsed, "timeout", e.timeout)
	}
	ind.Base().RegisterEvaluation(fitness, elapsed, err)
}

// call isolates panics raised by the user evaluator.
func (e *Evaluation) call(ind Individual) (fitness float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluator panic: %v", r)
		}
	}()
	return e.ev.Evaluate(ind)
}

// TourLength scores a permutation as the length of the closed tour it
// describes over a distance matrix.
func TourLength(distances [][]float64) Evaluator {
	return EvaluatorFunc(func(ind Individual) (float64, error) {
		p, ok := ind.(*Permutation)
		if !ok {
			return 0, fmt.Errorf("tour length needs a permutation, got %T", ind)
		}
		n := len(p.Order)
		if n != len(distances) {
			return 0, fmt.Errorf("tour of %d cities over a %d-city matrix", n, len(distances))
		}
		total := 0.0
		for i := 0; i < n; i++ {
			total += distances[p.Order[i]][p.Order[(i+1)%n]]
		}
		return total, nil
	})
}

var expressionLanguage = gval.Full(
	gval.Function("sqrt", math.Sqrt),
	gval.Function("abs", math.Abs),
	gval.Function("sin", math.Sin),
	gval.Function("cos", math.Cos),
	gval.Function("exp", math.Exp),
	gval.Function("log", math.Log),
	gval.Function("pow", math.Pow),
)

// ExpressionEvaluator scores a chain with an arithmetic expression over
// the variables x0..xN-1, for instance "pow(x0 - 3, 2) + abs(x1)".
func ExpressionEvaluator(expr string) (Evaluator, error) {
	eval, err := expressionLanguage.NewEvaluable(expr)
	if err != nil {
		return nil, fmt.Errorf("parse fitness expression %q: %w", expr, err)
	}
	return EvaluatorFunc(func(ind Individual) (float64, error) {
		c, ok := ind.(*Chain)
		if !ok {
			return 0, fmt.Errorf("expression evaluator needs a chain, got %T", ind)
		}
		vars := make(map[string]any, len(c.Values))
		for i, v := range c.Values {
			vars["x"+strconv.Itoa(i)] = v
		}
		return eval.EvalFloat64(context.Background(), vars)
	}), nil
}
