package evo

import (
	"fmt"
	"slices"

	"github.com/go-logr/logr"
)

// Mutation perturbs one individual in place and reports whether its data
// changed.
type Mutation interface {
	Mutate(ind Individual) (bool, error)
}

// MutationStats counts what the last mutation phase did.
type MutationStats struct {
	Individuals int
	Mutations   int
}

// Mutator runs one mutation phase over a population.
type Mutator struct {
	cfg   *MutatorConfig
	op    Mutation
	ids   *IDCounter
	rng   *RNG
	log   logr.Logger
	stats MutationStats
}

func NewMutator(cfg *MutatorConfig, op Mutation, ids *IDCounter, rng *RNG, log logr.Logger) *Mutator {
	return &Mutator{cfg: cfg, op: op, ids: ids, rng: rng, log: log.WithName("mutator")}
}

func (m *Mutator) Stats() MutationStats { return m.stats }

// next returns the continuation probability after a successful mutation.
func (m *Mutator) next(p float64) float64 {
	switch m.cfg.MultiMode {
	case "squared":
		return p * p
	case "linear":
		return p
	default:
		return p * m.cfg.Prob
	}
}

// Apply draws mutations for every member except the one kept by the last
// selection. A mutated individual gets a new identity through HasMutated
// and the population is marked unsorted.
func (m *Mutator) Apply(pop *Population) (MutationStats, error) {
	m.stats = MutationStats{}
	for _, ind := range pop.members {
		if pop.Kept(ind) {
			continue
		}
		p := m.cfg.Prob
		count := 0
		for count < m.cfg.MaxMutations && m.rng.Chance(p) {
			changed, err := m.op.Mutate(ind)
			if err != nil {
				return m.stats, fmt.Errorf("mutate %d: %w", ind.Base().ID, err)
			}
			if changed {
				count++
			}
			if !m.cfg.MultiMutation {
				break
			}
			p = m.next(p)
		}
		if count > 0 {
			old := ind.Base().ID
			ind.Base().HasMutated(m.ids)
			pop.MarkUnsorted()
			m.stats.Individuals++
			m.stats.Mutations += count
			m.log.V(4).Info("mutated", "from", old, "to", ind.Base().ID, "mutations", count)
		}
	}
	m.log.V(2).Info("mutation done", "individuals", m.stats.Individuals, "mutations", m.stats.Mutations)
	return m.stats, nil
}

// ChainMutation replaces one random element with a fresh in-bounds value.
type ChainMutation struct {
	rng *RNG
}

func NewChainMutation(rng *RNG) *ChainMutation { return &ChainMutation{rng: rng} }

func (c *ChainMutation) Mutate(ind Individual) (bool, error) {
	ch, ok := ind.(*Chain)
	if !ok {
		return false, fmt.Errorf("chain mutation on %T", ind)
	}
	if len(ch.Values) == 0 {
		return false, nil
	}
	i := c.rng.IntN(len(ch.Values))
	ch.Values[i] = ch.Spec.Random(c.rng)
	return true, nil
}

// BitFlip flips one random element of a binary chain.
type BitFlip struct {
	rng *RNG
}

func NewBitFlip(rng *RNG) *BitFlip { return &BitFlip{rng: rng} }

func (b *BitFlip) Mutate(ind Individual) (bool, error) {
	ch, ok := ind.(*Chain)
	if !ok {
		return false, fmt.Errorf("bit flip on %T", ind)
	}
	if len(ch.Values) == 0 {
		return false, nil
	}
	i := b.rng.IntN(len(ch.Values))
	ch.Values[i] = 1 - ch.Values[i]
	return true, nil
}

var permutationOps = []string{"swap", "move", "move_segment", "reverse", "shuffle"}

// PermutationMutation applies one operator drawn uniformly from the
// enabled set and re-checks the bijection afterwards.
type PermutationMutation struct {
	cfg *MutatorConfig
	rng *RNG
}

func NewPermutationMutation(cfg *MutatorConfig, rng *RNG) *PermutationMutation {
	return &PermutationMutation{cfg: cfg, rng: rng}
}

func (pm *PermutationMutation) Mutate(ind Individual) (bool, error) {
	p, ok := ind.(*Permutation)
	if !ok {
		return false, fmt.Errorf("permutation mutation on %T", ind)
	}
	if len(p.Order) < 2 {
		return false, nil
	}
	ops := pm.cfg.PermutationOps
	if len(ops) == 0 {
		ops = permutationOps
	}
	op := ops[pm.rng.IntN(len(ops))]
	switch op {
	case "swap":
		pm.swap(p.Order)
	case "move":
		p.Order = pm.move(p.Order)
	case "move_segment":
		p.Order = pm.moveSegment(p.Order)
	case "reverse":
		i, j := pm.segment(len(p.Order))
		slices.Reverse(p.Order[i:j])
	case "shuffle":
		i, j := pm.segment(len(p.Order))
		seg := p.Order[i:j]
		pm.rng.Shuffle(len(seg), func(a, b int) { seg[a], seg[b] = seg[b], seg[a] })
	default:
		return false, configErrorf("mutator.permutation_ops", "unknown operator '%s'", op)
	}
	if err := CheckPermutation(p.Order); err != nil {
		return false, err
	}
	return true, nil
}

// segment draws a [i, j) window of at least two elements, capped by
// max_segment when set.
func (pm *PermutationMutation) segment(n int) (int, int) {
	maxLen := n
	if pm.cfg.MaxSegment >= 2 && pm.cfg.MaxSegment < n {
		maxLen = pm.cfg.MaxSegment
	}
	length := 2 + pm.rng.IntN(maxLen-1)
	i := pm.rng.IntN(n - length + 1)
	return i, i + length
}

func (pm *PermutationMutation) swap(order []int) {
	i := pm.rng.IntN(len(order))
	j := pm.rng.IntN(len(order) - 1)
	if j >= i {
		j++
	}
	order[i], order[j] = order[j], order[i]
}

// move takes one element out and reinserts it elsewhere.
func (pm *PermutationMutation) move(order []int) []int {
	i := pm.rng.IntN(len(order))
	v := order[i]
	rest := slices.Delete(slices.Clone(order), i, i+1)
	j := pm.rng.IntN(len(rest) + 1)
	return slices.Insert(rest, j, v)
}

// moveSegment takes a segment out, optionally reverses it and reinserts
// it at a random position of the remainder.
func (pm *PermutationMutation) moveSegment(order []int) []int {
	i, j := pm.segment(len(order))
	seg := slices.Clone(order[i:j])
	if pm.rng.IntN(2) == 1 {
		slices.Reverse(seg)
	}
	rest := slices.Delete(slices.Clone(order), i, j)
	k := pm.rng.IntN(len(rest) + 1)
	return slices.Insert(rest, k, seg...)
}
