package evo

import "fmt"

// CheckPermutation reports whether order is a bijection onto {0..len-1}.
func CheckPermutation(order []int) error {
	seen := make([]bool, len(order))
	for i, v := range order {
		if v < 0 || v >= len(order) {
			return &InvariantViolation{Component: "permutation", Detail: fmt.Sprintf("value %d at %d out of range", v, i)}
		}
		if seen[v] {
			return &InvariantViolation{Component: "permutation", Detail: fmt.Sprintf("value %d repeated at %d", v, i)}
		}
		seen[v] = true
	}
	return nil
}

// PermutationData is the snapshot of a permutation genome.
type PermutationData struct {
	Order []int
}

func (PermutationData) Kind() string { return "permutation" }

// Permutation is an ordering of {0..N-1}.
type Permutation struct {
	Meta
	Order []int
}

func (p *Permutation) Len() int { return len(p.Order) }

func (p *Permutation) Data() Data {
	return PermutationData{Order: append([]int(nil), p.Order...)}
}

func (p *Permutation) Clone() Individual {
	return &Permutation{Meta: p.Meta.Clone(), Order: append([]int(nil), p.Order...)}
}

func (p *Permutation) Validate() error { return CheckPermutation(p.Order) }

func (p *Permutation) String() string {
	return fmt.Sprintf("Permutation%s%v", Describe(p), p.Order)
}

// PermutationFactory builds permutations of a fixed size.
type PermutationFactory struct {
	Size int
	rng  *RNG
	ids  *IDCounter
}

// NewPermutationFactory returns a factory for permutations of size n.
func NewPermutationFactory(n int, rng *RNG, ids *IDCounter) (*PermutationFactory, error) {
	if n <= 0 {
		return nil, configErrorf("individual.size", "must be positive")
	}
	return &PermutationFactory{Size: n, rng: rng, ids: ids}, nil
}

func (f *PermutationFactory) New(origin string) Individual {
	return &Permutation{Meta: NewMeta(f.ids.Next(), origin), Order: f.rng.Perm(f.Size)}
}

func (f *PermutationFactory) FromData(data Data, origin []string) (Individual, error) {
	d, ok := data.(PermutationData)
	if !ok {
		return nil, fmt.Errorf("permutation factory: unexpected data kind %q", data.Kind())
	}
	if len(d.Order) != f.Size {
		return nil, &InvariantViolation{Component: "permutation", Detail: fmt.Sprintf("length %d, want %d", len(d.Order), f.Size)}
	}
	p := &Permutation{Meta: NewMeta(f.ids.Next(), origin...), Order: append([]int(nil), d.Order...)}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
