package neat

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"slices"
	"sort"

	"github.com/go-logr/logr"

	"github.com/VinCheetah/Evolution/evo"
)

// Species is a group of genetically similar genomes.
type Species struct {
	Key            int
	Created        int // generation the species appeared
	LastImproved   int
	Age            int
	Representative *Genome
	Members        []*Genome
	Best           float64 // best member fitness ever seen
	Fitness        float64 // species_fitness_func over valid members
	Adjusted       float64 // shared fitness
	History        []float64
}

func newSpecies(key, generation int, rep *Genome, order evo.Order) *Species {
	return &Species{
		Key:            key,
		Created:        generation,
		LastImproved:   generation,
		Representative: rep.Clone().(*Genome),
		Best:           order.Worst(),
	}
}

func (s *Species) validFitnesses() []float64 {
	var out []float64
	for _, m := range s.Members {
		if m.IsValid() {
			out = append(out, m.Fitness)
		}
	}
	return out
}

// SpeciesSet partitions the population into species each generation. It
// adapts the compatibility threshold toward target_species and removes
// small stagnant species together with their members.
type SpeciesSet struct {
	cfg   *evo.SpeciationConfig
	order evo.Order
	rng   *evo.RNG
	cache *DistanceCache
	log   logr.Logger

	species    []*Species
	nextKey    int
	threshold  float64
	configured float64 // last compatibility_threshold adopted from the config
	generation int
}

func NewSpeciesSet(cfg *evo.SpeciationConfig, order evo.Order, rng *evo.RNG, log logr.Logger) (*SpeciesSet, error) {
	cache, err := NewDistanceCache(cfg.DistanceCacheSize, cfg)
	if err != nil {
		return nil, err
	}
	return &SpeciesSet{
		cfg:        cfg,
		order:      order,
		rng:        rng,
		cache:      cache,
		log:        log.WithName("species"),
		threshold:  cfg.Threshold,
		configured: cfg.Threshold,
	}, nil
}

func (s *SpeciesSet) Threshold() float64 { return s.threshold }

// Species returns the current species, oldest first.
func (s *SpeciesSet) Species() []*Species { return s.species }

// Cache exposes the distance cache.
func (s *SpeciesSet) Cache() *DistanceCache { return s.cache }

func (s *SpeciesSet) Summary() []evo.SpeciesSummary {
	out := make([]evo.SpeciesSummary, len(s.species))
	for i, sp := range s.species {
		out[i] = evo.SpeciesSummary{
			Key:        sp.Key,
			Size:       len(sp.Members),
			Age:        sp.Age,
			Stagnation: s.generation - sp.LastImproved,
			Best:       sp.Best,
			Fitness:    sp.Fitness,
			Adjusted:   sp.Adjusted,
		}
	}
	return out
}

// Speciate assigns every member to the first species whose representative
// lies within the threshold, founding new species for the rest.
func (s *SpeciesSet) Speciate(pop *evo.Population, generation int) error {
	s.generation = generation
	if s.cfg.Threshold != s.configured {
		s.threshold, s.configured = s.cfg.Threshold, s.cfg.Threshold
	}

	members := make([]*Genome, pop.Len())
	present := make(map[int]bool, pop.Len())
	for i, ind := range pop.Members() {
		g, ok := ind.(*Genome)
		if !ok {
			return fmt.Errorf("speciate %T: not a neat genome", ind)
		}
		members[i] = g
		present[g.ID] = true
	}

	kept := s.species[:0]
	for _, sp := range s.species {
		if present[sp.Representative.ID] {
			sp.Members = sp.Members[:0]
			kept = append(kept, sp)
		}
	}
	s.species = kept

	for _, g := range members {
		if sp := s.find(g); sp != nil {
			sp.Members = append(sp.Members, g)
			continue
		}
		sp := newSpecies(s.nextKey, generation, g, s.order)
		s.nextKey++
		sp.Members = []*Genome{g}
		s.species = append(s.species, sp)
	}

	kept = s.species[:0]
	for _, sp := range s.species {
		if len(sp.Members) > 0 {
			kept = append(kept, sp)
		}
	}
	s.species = kept

	fitness := evo.StatFunctions[s.cfg.SpeciesFitnessFunc]
	for _, sp := range s.species {
		sp.Age++
		s.score(sp, fitness, generation)
	}
	s.adjustThreshold()
	removed := s.removeStagnant(pop, generation)

	for _, sp := range s.species {
		sp.Representative = sp.Members[s.rng.IntN(len(sp.Members))].Clone().(*Genome)
	}
	s.log.V(2).Info("speciation done", "generation", generation, "species", len(s.species),
		"threshold", s.threshold, "removed", removed, "cacheHits", s.cache.Hits)
	return nil
}

func (s *SpeciesSet) find(g *Genome) *Species {
	for _, sp := range s.species {
		if s.cache.Distance(g, sp.Representative) < s.threshold {
			return sp
		}
	}
	return nil
}

// score computes the species fitness, its shared fitness and records an
// improvement of the best member.
func (s *SpeciesSet) score(sp *Species, fitness func([]float64) float64, generation int) {
	valid := sp.validFitnesses()
	if len(valid) == 0 {
		sp.Fitness, sp.Adjusted = 0, 0
		return
	}
	sp.Fitness = fitness(valid)
	size := float64(len(sp.Members))
	sp.Adjusted = evo.Sum(valid) / size / size
	sp.History = append(sp.History, sp.Fitness)
	if limit := s.cfg.MaxStagnation; len(sp.History) > limit {
		sp.History = sp.History[len(sp.History)-limit:]
	}
	best := valid[0]
	for _, f := range valid[1:] {
		if s.order.Better(f, best) {
			best = f
		}
	}
	if s.order.Better(best, sp.Best) {
		sp.Best = best
		sp.LastImproved = generation
	}
}

// adjustThreshold moves the threshold by compatibility_modifier toward the
// target species count.
func (s *SpeciesSet) adjustThreshold() {
	switch n := len(s.species); {
	case n < s.cfg.TargetSpecies:
		s.threshold -= s.cfg.Modifier
	case n > s.cfg.TargetSpecies:
		s.threshold += s.cfg.Modifier
	}
	s.threshold = clamp(s.threshold, s.cfg.MinThreshold, s.cfg.MaxThreshold)
}

// removeStagnant drops the species that have not improved for
// max_stagnation generations and have fewer than min_species_size members.
// The species_elitism best species are protected and at least one species
// always survives. Members of dropped species leave the population.
func (s *SpeciesSet) removeStagnant(pop *evo.Population, generation int) int {
	ranked := slices.Clone(s.species)
	sort.SliceStable(ranked, func(i, j int) bool { return s.order.Better(ranked[i].Best, ranked[j].Best) })
	protected := make(map[int]bool)
	for i := 0; i < len(ranked) && i < max(s.cfg.SpeciesElitism, 1); i++ {
		protected[ranked[i].Key] = true
	}

	drop := make(map[int]bool)
	kept := make([]*Species, 0, len(s.species))
	for _, sp := range s.species {
		stagnant := generation-sp.LastImproved >= s.cfg.MaxStagnation
		if stagnant && len(sp.Members) < s.cfg.MinSpeciesSize && !protected[sp.Key] {
			for _, m := range sp.Members {
				drop[m.ID] = true
			}
			s.log.V(2).Info("species removed", "key", sp.Key, "stagnation", generation-sp.LastImproved, "size", len(sp.Members))
			continue
		}
		kept = append(kept, sp)
	}
	removed := len(s.species) - len(kept)
	s.species = kept
	if len(drop) > 0 {
		pop.Remove(drop)
	}
	return removed
}

type speciesRecord struct {
	Key, Created, LastImproved, Age int
	Best, Fitness, Adjusted         float64
	History                         []float64
	Meta                            evo.Meta
	Representative                  GenomeData
}

type speciesSetState struct {
	Species    []speciesRecord
	NextKey    int
	Threshold  float64
	Configured float64
	Generation int
}

func (s *SpeciesSet) StateKey() string { return "species" }

// MarshalState saves species bookkeeping and representatives. Members are
// rebuilt by the next Speciate call.
func (s *SpeciesSet) MarshalState() ([]byte, error) {
	st := speciesSetState{NextKey: s.nextKey, Threshold: s.threshold, Configured: s.configured, Generation: s.generation}
	for _, sp := range s.species {
		st.Species = append(st.Species, speciesRecord{
			Key:            sp.Key,
			Created:        sp.Created,
			LastImproved:   sp.LastImproved,
			Age:            sp.Age,
			Best:           sp.Best,
			Fitness:        sp.Fitness,
			Adjusted:       sp.Adjusted,
			History:        sp.History,
			Meta:           sp.Representative.Meta.Clone(),
			Representative: sp.Representative.Data().(GenomeData),
		})
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, fmt.Errorf("encode species: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *SpeciesSet) RestoreState(data []byte) error {
	var st speciesSetState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("decode species: %w", err)
	}
	s.nextKey, s.threshold, s.configured, s.generation = st.NextKey, st.Threshold, st.Configured, st.Generation
	s.species = s.species[:0]
	for _, r := range st.Species {
		s.species = append(s.species, &Species{
			Key:            r.Key,
			Created:        r.Created,
			LastImproved:   r.LastImproved,
			Age:            r.Age,
			Best:           r.Best,
			Fitness:        r.Fitness,
			Adjusted:       r.Adjusted,
			History:        r.History,
			Representative: genomeFromData(r.Meta, r.Representative),
		})
	}
	s.cache.Purge()
	return nil
}
