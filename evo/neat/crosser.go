package neat

import (
	"fmt"
	"maps"
	"slices"

	"github.com/VinCheetah/Evolution/evo"
)

// Crossover aligns the connection genes of two genomes by innovation number.
type Crossover struct {
	cfg   *evo.CrosserConfig
	order evo.Order
	rng   *evo.RNG
}

func NewCrossover(cfg *evo.CrosserConfig, order evo.Order, rng *evo.RNG) *Crossover {
	return &Crossover{cfg: cfg, order: order, rng: rng}
}

// parents returns the fitter and the weaker parent and whether their
// scores are equal. Ties are broken at random.
func (c *Crossover) parents(a, b *Genome) (fitter, weaker *Genome, equal bool) {
	sa, sb := c.order.Score(a), c.order.Score(b)
	switch {
	case c.order.Better(sa, sb):
		return a, b, false
	case c.order.Better(sb, sa):
		return b, a, false
	}
	if c.rng.Chance(0.5) {
		return a, b, true
	}
	return b, a, true
}

// Cross builds the offspring data. Nodes are the union of both parents.
// Matching connections come from a random parent and are disabled with
// probability disable_inheritance_prob when either copy is disabled.
// Disjoint and excess connections come from the fitter parent only, unless
// both fitnesses are equal. An enabled gene that would close a cycle is
// inherited disabled.
func (c *Crossover) Cross(p1, p2 evo.Individual) (evo.Data, error) {
	a, ok1 := p1.(*Genome)
	b, ok2 := p2.(*Genome)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("neat crossover of %T and %T", p1, p2)
	}
	fitter, weaker, equal := c.parents(a, b)

	child := NewGenome(evo.Meta{})
	for _, id := range fitter.NodeIDs() {
		if other, ok := weaker.Nodes[id]; ok {
			child.Nodes[id] = fitter.Nodes[id].Crossover(other, c.rng)
		} else {
			child.Nodes[id] = fitter.Nodes[id].Copy()
		}
	}
	for _, id := range weaker.NodeIDs() {
		if _, ok := child.Nodes[id]; !ok {
			child.Nodes[id] = weaker.Nodes[id].Copy()
		}
	}

	ids := slices.Sorted(maps.Keys(fitter.Connections))
	for id := range weaker.Connections {
		if _, ok := fitter.Connections[id]; !ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	for _, id := range ids {
		cf, inFitter := fitter.Connections[id]
		cw, inWeaker := weaker.Connections[id]
		var gene *ConnectionGene
		switch {
		case inFitter && inWeaker:
			if c.rng.Chance(0.5) {
				gene = cf.Copy()
			} else {
				gene = cw.Copy()
			}
			if (!cf.Enabled || !cw.Enabled) && c.rng.Chance(c.cfg.DisableInheritanceProb) {
				gene.Enabled = false
			}
		case inFitter:
			gene = cf.Copy()
		case equal:
			gene = cw.Copy()
		default:
			continue
		}
		if gene.Enabled && child.CreatesCycle(gene.In, gene.Out) {
			gene.Enabled = false
		}
		child.Connections[id] = gene
	}
	return child.Data(), nil
}
