package evo

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-logr/logr"
)

// Crossover computes offspring data from two parents.
type Crossover interface {
	Cross(p1, p2 Individual) (Data, error)
}

// Crosser runs one crossover phase over a population.
type Crosser struct {
	cfg *CrosserConfig
	op  Crossover
	rng *RNG
	log logr.Logger
}

func NewCrosser(cfg *CrosserConfig, op Crossover, rng *RNG, log logr.Logger) *Crosser {
	return &Crosser{cfg: cfg, op: op, rng: rng, log: log.WithName("crosser")}
}

// Apply pairs every individual present at the start of the phase, with
// probability cross_prob, with a uniformly random partner and appends the
// offspring. It returns the number of offspring added.
func (c *Crosser) Apply(pop *Population) (int, error) {
	parents := append([]Individual(nil), pop.members...)
	if len(parents) == 0 {
		return 0, nil
	}
	crossed := 0
	for _, p1 := range parents {
		if !c.rng.Chance(c.cfg.Prob) {
			continue
		}
		p2 := parents[c.rng.IntN(len(parents))]
		data, err := c.op.Cross(p1, p2)
		if err != nil {
			return crossed, fmt.Errorf("cross %d with %d: %w", p1.Base().ID, p2.Base().ID, err)
		}
		origin := fmt.Sprintf("crossover(%d, %d)", p1.Base().ID, p2.Base().ID)
		child, err := pop.AddFromData(data, []string{origin})
		if err != nil {
			return crossed, fmt.Errorf("offspring of %d and %d: %w", p1.Base().ID, p2.Base().ID, err)
		}
		c.log.V(4).Info("offspring", "id", child.Base().ID, "origin", origin)
		crossed++
	}
	c.log.V(2).Info("crossover done", "offspring", crossed)
	return crossed, nil
}

// cutPoints draws count sorted cut indices in [0, n-1).
func cutPoints(rng *RNG, n, count int) []int {
	if n < 2 {
		return nil
	}
	cuts := make([]int, count)
	for i := range cuts {
		cuts[i] = rng.IntN(n - 1)
	}
	sort.Ints(cuts)
	return cuts
}

// spans turns sorted cuts into [start, end) pairs, one group of numPoints
// cuts per crossing segment. An odd trailing cut runs to the end.
func spans(cuts []int, numPoints, n int) [][2]int {
	var out [][2]int
	for g := 0; g+numPoints <= len(cuts); g += numPoints {
		group := cuts[g : g+numPoints]
		for j := 0; j < len(group); j += 2 {
			end := n
			if j+1 < len(group) {
				end = group[j+1]
			}
			out = append(out, [2]int{group[j], end})
		}
	}
	return out
}

// MultiPoint copies parent2 spans into a copy of parent1's chain.
type MultiPoint struct {
	cfg *CrosserConfig
	rng *RNG
}

func NewMultiPoint(cfg *CrosserConfig, rng *RNG) *MultiPoint {
	return &MultiPoint{cfg: cfg, rng: rng}
}

func (m *MultiPoint) Cross(p1, p2 Individual) (Data, error) {
	a, b, err := chainParents(p1, p2)
	if err != nil {
		return nil, err
	}
	child := append([]float64(nil), a...)
	cuts := cutPoints(m.rng, len(child), m.cfg.NumPoints*m.cfg.NumCross)
	for _, s := range spans(cuts, m.cfg.NumPoints, len(child)) {
		copy(child[s[0]:s[1]], b[s[0]:s[1]])
	}
	return ChainData{Values: child}, nil
}

// MeanCrossover averages two chains element-wise. Integer chains round half to
// even so that the child stays integral and within bounds.
type MeanCrossover struct{}

func (MeanCrossover) Cross(p1, p2 Individual) (Data, error) {
	a, b, err := chainParents(p1, p2)
	if err != nil {
		return nil, err
	}
	integer := p1.(*Chain).Spec.Type == IntegerElement
	child := make([]float64, len(a))
	for i := range child {
		v := (a[i] + b[i]) / 2
		if integer {
			v = math.RoundToEven(v)
		}
		child[i] = v
	}
	return ChainData{Values: child}, nil
}

func chainParents(p1, p2 Individual) ([]float64, []float64, error) {
	c1, ok1 := p1.(*Chain)
	c2, ok2 := p2.(*Chain)
	if !ok1 || !ok2 {
		return nil, nil, fmt.Errorf("chain crossover needs chain parents, got %T and %T", p1, p2)
	}
	if len(c1.Values) != len(c2.Values) {
		return nil, nil, &InvariantViolation{Component: "crosser", Detail: "chain parents differ in length"}
	}
	return c1.Values, c2.Values, nil
}

// PMX is partially-mapped crossover. Within each span the child takes
// parent2's values; conflicting values are relocated by swapping through
// a position index so the child stays a permutation.
type PMX struct {
	cfg *CrosserConfig
	rng *RNG
}

func NewPMX(cfg *CrosserConfig, rng *RNG) *PMX {
	return &PMX{cfg: cfg, rng: rng}
}

func (x *PMX) Cross(p1, p2 Individual) (Data, error) {
	a, ok1 := p1.(*Permutation)
	b, ok2 := p2.(*Permutation)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("pmx needs permutation parents, got %T and %T", p1, p2)
	}
	n := len(a.Order)
	if len(b.Order) != n {
		return nil, &InvariantViolation{Component: "crosser", Detail: "permutation parents differ in length"}
	}
	child := append([]int(nil), a.Order...)
	cuts := cutPoints(x.rng, n, x.cfg.NumPoints*x.cfg.NumCross)
	for _, s := range spans(cuts, x.cfg.NumPoints, n) {
		PartiallyMap(child, b.Order, s[0], min(s[1], n-1))
	}
	if err := CheckPermutation(child); err != nil {
		return nil, err
	}
	return PermutationData{Order: child}, nil
}

// PartiallyMap makes child[i] == donor[i] for the |i2-i1|+1 positions
// starting at i1, both ends included and wrapping modulo len(child), by
// swapping values inside child.
func PartiallyMap(child, donor []int, i1, i2 int) {
	n := len(child)
	pos := make([]int, n)
	for i, v := range child {
		pos[v] = i
	}
	length := i2 - i1
	if length < 0 {
		length = -length
	}
	for k := 0; k <= length; k++ {
		i := (i1 + k) % n
		v := donor[i]
		if child[i] == v {
			continue
		}
		j := pos[v]
		child[i], child[j] = child[j], child[i]
		pos[child[i]] = i
		pos[child[j]] = j
	}
}
