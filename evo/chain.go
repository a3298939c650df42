package evo

import (
	"fmt"
	"math"
)

// ElementType is the numeric type of chain elements.
type ElementType int

const (
	IntegerElement ElementType = iota
	RealElement
)

func parseElementType(s string) (ElementType, error) {
	switch s {
	case "integer", "int":
		return IntegerElement, nil
	case "real", "float":
		return RealElement, nil
	}
	return 0, configErrorf("individual.element_type", "unknown element type '%s'", s)
}

// ChainSpec fixes the shape of every chain in a run.
type ChainSpec struct {
	Size int
	Type ElementType
	Min  float64
	Max  float64
}

// Random draws one in-bounds element.
func (s ChainSpec) Random(rng *RNG) float64 {
	if s.Type == IntegerElement {
		lo, hi := int(math.Ceil(s.Min)), int(math.Floor(s.Max))
		return float64(lo + rng.IntN(hi-lo+1))
	}
	return s.Min + rng.Float64()*(s.Max-s.Min)
}

// Check validates values against the spec.
func (s ChainSpec) Check(values []float64) error {
	if len(values) != s.Size {
		return &InvariantViolation{Component: "chain", Detail: fmt.Sprintf("length %d, want %d", len(values), s.Size)}
	}
	for i, v := range values {
		if v < s.Min || v > s.Max || math.IsNaN(v) {
			return &InvariantViolation{Component: "chain", Detail: fmt.Sprintf("element %d = %g outside [%g, %g]", i, v, s.Min, s.Max)}
		}
		if s.Type == IntegerElement && v != math.Trunc(v) {
			return &InvariantViolation{Component: "chain", Detail: fmt.Sprintf("element %d = %g is not an integer", i, v)}
		}
	}
	return nil
}

// ChainData is the snapshot of a chain genome.
type ChainData struct {
	Values []float64
}

func (ChainData) Kind() string { return "chain" }

// Chain is a fixed-length numeric vector.
type Chain struct {
	Meta
	Values []float64
	Spec   ChainSpec
}

func (c *Chain) Len() int { return len(c.Values) }

func (c *Chain) Data() Data {
	return ChainData{Values: append([]float64(nil), c.Values...)}
}

func (c *Chain) Clone() Individual {
	return &Chain{
		Meta:   c.Meta.Clone(),
		Values: append([]float64(nil), c.Values...),
		Spec:   c.Spec,
	}
}

func (c *Chain) Validate() error { return c.Spec.Check(c.Values) }

func (c *Chain) String() string {
	return fmt.Sprintf("Chain%s%v", Describe(c), c.Values)
}

// ChainFactory builds chains of one spec.
type ChainFactory struct {
	Spec ChainSpec
	rng  *RNG
	ids  *IDCounter
}

// NewChainFactory validates spec and returns a factory for it.
func NewChainFactory(spec ChainSpec, rng *RNG, ids *IDCounter) (*ChainFactory, error) {
	if spec.Size <= 0 {
		return nil, configErrorf("individual.size", "must be positive")
	}
	if spec.Max < spec.Min {
		return nil, configErrorf("individual.max", "cannot be less than individual.min")
	}
	if spec.Type == IntegerElement && math.Floor(spec.Max) < math.Ceil(spec.Min) {
		return nil, configErrorf("individual.min", "no integer lies in [%g, %g]", spec.Min, spec.Max)
	}
	return &ChainFactory{Spec: spec, rng: rng, ids: ids}, nil
}

func (f *ChainFactory) New(origin string) Individual {
	values := make([]float64, f.Spec.Size)
	for i := range values {
		values[i] = f.Spec.Random(f.rng)
	}
	return &Chain{Meta: NewMeta(f.ids.Next(), origin), Values: values, Spec: f.Spec}
}

func (f *ChainFactory) FromData(data Data, origin []string) (Individual, error) {
	d, ok := data.(ChainData)
	if !ok {
		return nil, fmt.Errorf("chain factory: unexpected data kind %q", data.Kind())
	}
	c := &Chain{Meta: NewMeta(f.ids.Next(), origin...), Values: append([]float64(nil), d.Values...), Spec: f.Spec}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
