package evo

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
)

// Runtime is what a genome kind gets to build its components: the live
// configuration, the run's random source and id counter.
type Runtime struct {
	Config *Config
	RNG    *RNG
	IDs    *IDCounter
	Log    logr.Logger
}

// Order returns the configured fitness direction.
func (rt *Runtime) Order() Order { return rt.Config.SortOrder() }

// Speciator groups a population into species once per generation.
type Speciator interface {
	Speciate(pop *Population, generation int) error
	Summary() []SpeciesSummary
	Threshold() float64
}

// Components are the genome-specific parts of an Environment.
type Components struct {
	Factory   Factory
	Crossover Crossover
	Mutation  Mutation
	// Speciator is optional.
	Speciator Speciator
	// State lists the components whose state travels with a Record.
	State []Stateful
}

// Assembler builds the components of one genome kind, rejecting
// configurations whose operators do not fit the genome.
type Assembler func(rt *Runtime) (*Components, error)

var (
	genomesMu sync.RWMutex
	genomes   = make(map[string]Assembler)
)

// RegisterGenome makes a genome kind available under the given name. It
// panics if the name is registered twice or the assembler is nil.
func RegisterGenome(kind string, assemble Assembler) {
	genomesMu.Lock()
	defer genomesMu.Unlock()
	if assemble == nil {
		panic("evo: RegisterGenome assembler is nil")
	}
	if _, dup := genomes[kind]; dup {
		panic("evo: RegisterGenome called twice for genome " + kind)
	}
	genomes[kind] = assemble
}

func registeredKinds() []string {
	genomesMu.RLock()
	defer genomesMu.RUnlock()
	kinds := make([]string, 0, len(genomes))
	for k := range genomes {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func assemble(rt *Runtime) (*Components, error) {
	kind := rt.Config.Evolution.Genome
	genomesMu.RLock()
	a, ok := genomes[kind]
	genomesMu.RUnlock()
	if !ok {
		return nil, configErrorf("evolution.genome", "unknown genome '%s' (forgotten import?)", kind)
	}
	comps, err := a(rt)
	if err != nil {
		return nil, fmt.Errorf("assemble %s genome: %w", kind, err)
	}
	if comps.Factory == nil || comps.Crossover == nil || comps.Mutation == nil {
		return nil, fmt.Errorf("assemble %s genome: incomplete components", kind)
	}
	return comps, nil
}

func wrongCrosser(rt *Runtime) error {
	return configErrorf("crosser.kind", "'%s' cannot cross %s genomes", rt.Config.Crosser.Kind, rt.Config.Evolution.Genome)
}

func chainCrossover(rt *Runtime) (Crossover, error) {
	switch rt.Config.Crosser.Kind {
	case "multipoint":
		return NewMultiPoint(&rt.Config.Crosser, rt.RNG), nil
	case "mean":
		return MeanCrossover{}, nil
	}
	return nil, wrongCrosser(rt)
}

func assembleChain(rt *Runtime) (*Components, error) {
	ic := rt.Config.Individual
	typ, err := parseElementType(ic.ElementType)
	if err != nil {
		return nil, err
	}
	factory, err := NewChainFactory(ChainSpec{Size: ic.Size, Type: typ, Min: ic.Min, Max: ic.Max}, rt.RNG, rt.IDs)
	if err != nil {
		return nil, err
	}
	cross, err := chainCrossover(rt)
	if err != nil {
		return nil, err
	}
	return &Components{Factory: factory, Crossover: cross, Mutation: NewChainMutation(rt.RNG)}, nil
}

func assembleBinary(rt *Runtime) (*Components, error) {
	spec := ChainSpec{Size: rt.Config.Individual.Size, Type: IntegerElement, Min: 0, Max: 1}
	factory, err := NewChainFactory(spec, rt.RNG, rt.IDs)
	if err != nil {
		return nil, err
	}
	cross, err := chainCrossover(rt)
	if err != nil {
		return nil, err
	}
	return &Components{Factory: factory, Crossover: cross, Mutation: NewBitFlip(rt.RNG)}, nil
}

func assemblePermutation(rt *Runtime) (*Components, error) {
	factory, err := NewPermutationFactory(rt.Config.Individual.Size, rt.RNG, rt.IDs)
	if err != nil {
		return nil, err
	}
	if rt.Config.Crosser.Kind != "pmx" {
		return nil, wrongCrosser(rt)
	}
	return &Components{
		Factory:   factory,
		Crossover: NewPMX(&rt.Config.Crosser, rt.RNG),
		Mutation:  NewPermutationMutation(&rt.Config.Mutator, rt.RNG),
	}, nil
}

func init() {
	RegisterGenome("chain", assembleChain)
	RegisterGenome("binary", assembleBinary)
	RegisterGenome("permutation", assemblePermutation)
}
