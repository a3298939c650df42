package evo

import (
	"math"
	"slices"
	"sort"

	"github.com/go-logr/logr"
)

// Order is the fitness direction of a run.
type Order int

const (
	// Ascending ranks lower fitness first.
	Ascending Order = iota
	// Descending ranks higher fitness first.
	Descending
)

func (o Order) String() string {
	if o == Descending {
		return "descending"
	}
	return "ascending"
}

// Better reports whether fitness a is strictly better than b.
func (o Order) Better(a, b float64) bool {
	if o == Descending {
		return a > b
	}
	return a < b
}

// Worst is the sentinel score of invalid and unevaluated individuals.
func (o Order) Worst() float64 {
	if o == Descending {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

// Score returns the fitness of a valid individual and the worst sentinel
// otherwise.
func (o Order) Score(ind Individual) float64 {
	m := ind.Base()
	if m.Status != Valid {
		return o.Worst()
	}
	return m.Fitness
}

// Less ranks a before b: valid before everything else, then by fitness.
func (o Order) Less(a, b Individual) bool {
	va, vb := a.Base().IsValid(), b.Base().IsValid()
	if va != vb {
		return va
	}
	if !va {
		return false
	}
	return o.Better(a.Base().Fitness, b.Base().Fitness)
}

// Population is the ordered working set of a generation.
type Population struct {
	cfg        *PopulationConfig
	order      Order
	factory    Factory
	rng        *RNG
	log        logr.Logger
	members    []Individual
	sorted     bool
	generation int
	kept       Individual
}

// NewPopulation returns an empty population. Call Populate to fill it.
func NewPopulation(cfg *PopulationConfig, order Order, factory Factory, rng *RNG, log logr.Logger) *Population {
	return &Population{
		cfg:     cfg,
		order:   order,
		factory: factory,
		rng:     rng,
		log:     log.WithName("population"),
		sorted:  true,
	}
}

func (p *Population) Len() int                     { return len(p.members) }
func (p *Population) Order() Order                 { return p.order }
func (p *Population) Factory() Factory             { return p.factory }
func (p *Population) InitSize() int                { return p.cfg.InitSize }
func (p *Population) IsSorted() bool               { return p.sorted }
func (p *Population) Generation() int              { return p.generation }
func (p *Population) SetGeneration(gen int)        { p.generation = gen }
func (p *Population) At(i int) Individual          { return p.members[i] }
func (p *Population) MarkUnsorted()                { p.sorted = false }
func (p *Population) Score(ind Individual) float64 { return p.order.Score(ind) }

// Keep exempts ind from mutation until the next selection. Nil clears it.
func (p *Population) Keep(ind Individual) { p.kept = ind }

// Kept reports whether ind is the member preserved by keep-best.
func (p *Population) Kept(ind Individual) bool { return p.kept != nil && p.kept == ind }

// Members returns the individuals in their current order. When the
// population keeps itself sorted the slice is sorted first.
func (p *Population) Members() []Individual {
	if p.cfg.KeepSorted && !p.sorted {
		p.Sort()
	}
	return p.members
}

// Sort orders the members best first. Invalid and unevaluated individuals
// rank strictly last; ties keep their relative order.
func (p *Population) Sort() {
	sort.SliceStable(p.members, func(i, j int) bool {
		return p.order.Less(p.members[i], p.members[j])
	})
	p.sorted = true
}

func (p *Population) spawn(origin string) Individual {
	ind := p.factory.New(origin)
	ind.Base().Born = p.generation
	return ind
}

// Populate fills the population up to its initial size with random
// individuals.
func (p *Population) Populate() {
	for len(p.members) < p.cfg.InitSize {
		p.Add(p.spawn("init"))
	}
}

// InitEvaluation tops the population up to its initial size before an
// evaluation when complete_population is set, then re-sorts if configured.
func (p *Population) InitEvaluation() int {
	added := 0
	if p.cfg.CompletePopulation {
		for len(p.members) < p.cfg.InitSize {
			p.Add(p.spawn("completion"))
			added++
		}
	}
	if p.cfg.KeepSorted && !p.sorted {
		p.Sort()
	}
	return added
}

// Migrate replaces floor(size*immigration_rate) of the worst-ranked
// members with fresh random individuals and returns how many arrived.
func (p *Population) Migrate() int {
	n := int(float64(len(p.members)) * p.cfg.ImmigrationRate)
	if n == 0 {
		return 0
	}
	if !p.sorted {
		p.Sort()
	}
	p.members = p.members[:len(p.members)-n]
	for i := 0; i < n; i++ {
		p.Add(p.spawn("immigration"))
	}
	p.log.V(4).Info("immigration", "count", n)
	return n
}

// insertRank returns the position of fitness in the sorted members:
// before equal scores in ascending order, after them in descending order.
func (p *Population) insertRank(fitness float64) int {
	return sort.Search(len(p.members), func(i int) bool {
		m := p.members[i].Base()
		if !m.IsValid() {
			return true
		}
		if p.order == Descending {
			return m.Fitness < fitness
		}
		return m.Fitness >= fitness
	})
}

// Add inserts an individual. A valid individual goes to its rank when the
// population keeps itself sorted; anything else is appended and the
// population marked unsorted.
func (p *Population) Add(ind Individual) {
	if p.cfg.KeepSorted && ind.Base().IsValid() {
		if p.sorted {
			i := p.insertRank(ind.Base().Fitness)
			p.members = slices.Insert(p.members, i, ind)
			return
		}
		p.members = append(p.members, ind)
		p.Sort()
		return
	}
	p.members = append(p.members, ind)
	p.sorted = false
}

// AddFromData rebuilds an individual from a snapshot and adds it.
func (p *Population) AddFromData(data Data, origin []string) (Individual, error) {
	ind, err := p.factory.FromData(data, origin)
	if err != nil {
		return nil, err
	}
	ind.Base().Born = p.generation
	p.Add(ind)
	return ind, nil
}

// Best returns the best individual of sample, or of the whole population
// when sample is nil. Without allowInvalid it fails with
// ErrNoValidIndividual when no candidate is valid.
func (p *Population) Best(sample []Individual, allowInvalid bool) (Individual, error) {
	return p.extreme(sample, allowInvalid, false)
}

// Worst mirrors Best.
func (p *Population) Worst(sample []Individual, allowInvalid bool) (Individual, error) {
	return p.extreme(sample, allowInvalid, true)
}

func (p *Population) extreme(sample []Individual, allowInvalid, worst bool) (Individual, error) {
	if sample == nil {
		sample = p.members
	}
	var pick, fallback Individual
	for _, ind := range sample {
		m := ind.Base()
		if !m.IsValid() {
			if fallback == nil {
				fallback = ind
			}
			continue
		}
		switch {
		case pick == nil:
			pick = ind
		case worst && p.order.Better(pick.Base().Fitness, m.Fitness):
			pick = ind
		case !worst && p.order.Better(m.Fitness, pick.Base().Fitness):
			pick = ind
		}
	}
	if allowInvalid && fallback != nil && (worst || pick == nil) {
		return fallback, nil
	}
	if pick == nil {
		return nil, ErrNoValidIndividual
	}
	return pick, nil
}

// BestN returns the n best members, or every member if n exceeds the size.
func (p *Population) BestN(n int) []Individual {
	if !p.sorted {
		p.Sort()
	}
	n = min(n, len(p.members))
	return append([]Individual(nil), p.members[:n]...)
}

// Random draws n members uniformly with replacement.
func (p *Population) Random(n int) []Individual {
	if len(p.members) == 0 {
		return nil
	}
	out := make([]Individual, n)
	for i := range out {
		out[i] = p.members[p.rng.IntN(len(p.members))]
	}
	return out
}

// Update replaces the members with a selection, counts a survived
// generation for each and re-sorts.
func (p *Population) Update(selection []Individual) {
	p.members = selection
	for _, ind := range p.members {
		ind.Base().NewGeneration()
	}
	p.Sort()
}

// Remove drops every member whose id is in ids and returns how many left.
func (p *Population) Remove(ids map[int]bool) int {
	before := len(p.members)
	p.members = slices.DeleteFunc(p.members, func(ind Individual) bool {
		return ids[ind.Base().ID]
	})
	return before - len(p.members)
}

// Scores returns the valid fitness values in member order.
func (p *Population) Scores() []float64 {
	scores := make([]float64, 0, len(p.members))
	for _, ind := range p.members {
		if ind.Base().IsValid() {
			scores = append(scores, ind.Base().Fitness)
		}
	}
	return scores
}

// Mean returns the mean fitness of the valid members.
func (p *Population) Mean() float64 { return Mean(p.Scores()) }

// Stdev returns the standard deviation of the valid members' fitness.
func (p *Population) Stdev() float64 { return Stdev(p.Scores()) }

// ExistValid reports whether any member is valid.
func (p *Population) ExistValid() bool {
	return slices.ContainsFunc(p.members, func(ind Individual) bool { return ind.Base().IsValid() })
}

// ExistInvalid reports whether any member failed its evaluation.
func (p *Population) ExistInvalid() bool {
	return slices.ContainsFunc(p.members, func(ind Individual) bool { return ind.Base().Status == Invalid })
}

// Restore replaces the members wholesale. Used when resuming.
func (p *Population) Restore(members []Individual) {
	p.members = members
	p.kept = nil
	p.Sort()
}
