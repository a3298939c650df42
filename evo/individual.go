package evo

import (
	"encoding/gob"
	"fmt"
	"time"
)

// Status is the evaluation state of an individual.
type Status int

const (
	Unevaluated Status = iota
	Valid
	Invalid
)

func (s Status) String() string {
	switch s {
	case Unevaluated:
		return "unevaluated"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Meta carries the bookkeeping shared by every genome kind. Genome types
// embed it so that Base is promoted onto them.
type Meta struct {
	ID int
	// Origin holds provenance tags, oldest first.
	Origin []string
	Status Status
	// Fitness is meaningful only when Status == Valid.
	Fitness  float64
	EvalTime time.Duration
	// Err keeps the evaluator error text of an invalid individual.
	Err      string
	Born     int
	Survived int
}

// NewMeta returns metadata for a freshly created individual.
func NewMeta(id int, origin ...string) Meta {
	return Meta{ID: id, Origin: append([]string(nil), origin...)}
}

// Base returns the metadata itself.
func (m *Meta) Base() *Meta { return m }

// IsValid reports whether the individual has a usable fitness.
func (m *Meta) IsValid() bool { return m.Status == Valid }

// IsEvaluated reports whether the evaluator has run on the individual.
func (m *Meta) IsEvaluated() bool { return m.Status != Unevaluated }

// RegisterEvaluation records the outcome of one evaluator call. A non-nil
// err marks the individual invalid and keeps the error text.
func (m *Meta) RegisterEvaluation(fitness float64, elapsed time.Duration, err error) {
	m.EvalTime = elapsed
	if err != nil {
		m.Status = Invalid
		m.Fitness = 0
		m.Err = err.Error()
		return
	}
	m.Status = Valid
	m.Fitness = fitness
	m.Err = ""
}

// HasMutated gives the individual a new identity after its data changed:
// a fresh id, a provenance tag naming the previous id and a reset
// evaluation state.
func (m *Meta) HasMutated(ids *IDCounter) {
	m.Origin = append(m.Origin, fmt.Sprintf("mutation %d", m.ID))
	m.ID = ids.Next()
	m.Status = Unevaluated
	m.Fitness = 0
	m.EvalTime = 0
	m.Err = ""
}

// NewGeneration is called on every individual that survives a selection.
func (m *Meta) NewGeneration() { m.Survived++ }

// Clone returns a deep copy of the metadata.
func (m Meta) Clone() Meta {
	m.Origin = append([]string(nil), m.Origin...)
	return m
}

// Data is an immutable genome snapshot used by crossover offspring and
// resume records. Concrete types are registered with encoding/gob.
type Data interface {
	Kind() string
}

// Individual is one candidate solution. Implementations own their
// invariants: Validate must fail with an *InvariantViolation or an error
// describing the broken constraint.
type Individual interface {
	Base() *Meta
	// Len is the genome length: chain size, permutation size or number of
	// connection genes.
	Len() int
	Data() Data
	Clone() Individual
	Validate() error
}

// Factory creates individuals of one genome kind.
type Factory interface {
	// New creates a random individual with a fresh id.
	New(origin string) Individual
	// FromData rebuilds an individual from a snapshot and validates it.
	FromData(data Data, origin []string) (Individual, error)
}

// Describe returns a one-line summary of an individual for logs.
func Describe(ind Individual) string {
	m := ind.Base()
	switch m.Status {
	case Valid:
		return fmt.Sprintf("#%d(%s, fitness=%g)", m.ID, m.Status, m.Fitness)
	case Invalid:
		return fmt.Sprintf("#%d(%s: %s)", m.ID, m.Status, m.Err)
	default:
		return fmt.Sprintf("#%d(%s)", m.ID, m.Status)
	}
}

func init() {
	gob.Register(ChainData{})
	gob.Register(PermutationData{})
}
