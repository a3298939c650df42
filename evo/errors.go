package evo

import (
	"errors"
	"fmt"
)

// ErrNoValidIndividual is returned by population accessors when every
// candidate is unevaluated or invalid and invalid individuals are not allowed.
var ErrNoValidIndividual = errors.New("no valid individual")

// ErrSelectionExhausted marks a selection that ran out of retries. It is
// reported through logs and selector statistics, never returned to callers.
var ErrSelectionExhausted = errors.New("selection retry budget exhausted")

// EvaluationError wraps a failure of the user evaluator for one individual.
type EvaluationError struct {
	ID  int
	Err error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation of individual %d failed: %v", e.ID, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// InvariantViolation reports a broken structural guarantee: a permutation
// that is not a bijection, a cyclic feed-forward graph, an elite regression.
// It always indicates a programming defect.
type InvariantViolation struct {
	Component string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation in %s: %s", e.Component, e.Detail)
}

// ConfigError reports a missing or invalid option detected at construction.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
