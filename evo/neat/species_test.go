package neat

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinCheetah/Evolution/evo"
)

func newSpeciesSet(t *testing.T, cfg *evo.Config, order evo.Order) *SpeciesSet {
	t.Helper()
	s, err := NewSpeciesSet(&cfg.Speciation, order, evo.NewRNG(23), logr.Discard())
	require.NoError(t, err)
	return s
}

func populationOf(fx *fixture, members ...*Genome) *evo.Population {
	pop := evo.NewPopulation(&fx.cfg.Population, evo.Ascending, fx.factory, fx.rng, logr.Discard())
	for _, g := range members {
		pop.Add(g)
	}
	return pop
}

func TestSpeciatePartitionsPopulation(t *testing.T) {
	fx := newFixture(t, testConfig())
	var members []*Genome
	for i := 0; i < 8; i++ {
		g := fx.genome()
		if i%2 == 0 {
			require.True(t, fx.mutation().addNode(g))
		}
		g.RegisterEvaluation(float64(i), 0, nil)
		members = append(members, g)
	}
	pop := populationOf(fx, members...)
	s := newSpeciesSet(t, fx.cfg, evo.Ascending)
	require.NoError(t, s.Speciate(pop, 1))

	seen := make(map[int]int)
	for _, sp := range s.Species() {
		assert.NotEmpty(t, sp.Members)
		for _, m := range sp.Members {
			seen[m.ID]++
		}
	}
	assert.Len(t, seen, 8)
	for id, n := range seen {
		assert.Equal(t, 1, n, "genome %d", id)
	}
	// Fewer species than targeted lowers the threshold.
	assert.InDelta(t, 2.7, s.Threshold(), 1e-12)

	fx.cfg.Speciation.Threshold = 5
	require.NoError(t, s.Speciate(pop, 2))
	assert.InDelta(t, 4.7, s.Threshold(), 1e-12)
}

func TestSpeciateAdjustedFitness(t *testing.T) {
	fx := newFixture(t, testConfig())
	a := fx.genome()
	b := a.Clone().(*Genome)
	b.ID = fx.ids.Next()
	a.RegisterEvaluation(2, 0, nil)
	b.RegisterEvaluation(4, 0, nil)

	s := newSpeciesSet(t, fx.cfg, evo.Ascending)
	require.NoError(t, s.Speciate(populationOf(fx, a, b), 0))
	require.Len(t, s.Species(), 1)
	sp := s.Species()[0]
	assert.InDelta(t, 3, sp.Fitness, 1e-12)
	assert.InDelta(t, 6.0/4, sp.Adjusted, 1e-12)
	assert.Equal(t, 2.0, sp.Best)
}

func TestRemoveStagnantSpecies(t *testing.T) {
	cfg := testConfig()
	cfg.Speciation.Threshold = 0.5
	cfg.Speciation.Modifier = 0
	cfg.Speciation.MaxStagnation = 1
	cfg.Speciation.MinSpeciesSize = 2
	fx := newFixture(t, cfg)

	a := fx.genome()
	a.RegisterEvaluation(1, 0, nil)
	group := []*Genome{a}
	for i := 0; i < 2; i++ {
		c := a.Clone().(*Genome)
		c.ID = fx.ids.Next()
		group = append(group, c)
	}
	lone := fx.genome()
	clear(lone.Connections)
	lone.RegisterEvaluation(5, 0, nil)

	pop := populationOf(fx, append(group, lone)...)
	s := newSpeciesSet(t, cfg, evo.Ascending)
	require.NoError(t, s.Speciate(pop, 1))
	require.Len(t, s.Species(), 2)
	assert.Equal(t, 4, pop.Len())

	require.NoError(t, s.Speciate(pop, 2))
	require.Len(t, s.Species(), 1)
	assert.Equal(t, 3, pop.Len())
	for _, ind := range pop.Members() {
		assert.NotEqual(t, lone.ID, ind.Base().ID)
	}
	summary := s.Summary()
	assert.Equal(t, 3, summary[0].Size)
	assert.Equal(t, 1, summary[0].Stagnation)
}

func TestSpeciesKeepBestSpeciesWhenAllStagnate(t *testing.T) {
	cfg := testConfig()
	cfg.Speciation.Threshold = 0.5
	cfg.Speciation.Modifier = 0
	cfg.Speciation.MaxStagnation = 1
	cfg.Speciation.MinSpeciesSize = 5
	cfg.Speciation.SpeciesElitism = 0
	fx := newFixture(t, cfg)

	a, b := fx.genome(), fx.genome()
	clear(b.Connections)
	a.RegisterEvaluation(3, 0, nil)
	b.RegisterEvaluation(1, 0, nil)
	pop := populationOf(fx, a, b)
	s := newSpeciesSet(t, cfg, evo.Ascending)
	for gen := 1; gen <= 3; gen++ {
		require.NoError(t, s.Speciate(pop, gen))
	}
	require.Len(t, s.Species(), 1)
	assert.Equal(t, b.ID, s.Species()[0].Members[0].ID)
	assert.Equal(t, 1, pop.Len())
}

func TestSpeciesStateRoundTrip(t *testing.T) {
	fx := newFixture(t, testConfig())
	var members []*Genome
	for i := 0; i < 5; i++ {
		g := fx.genome()
		g.RegisterEvaluation(float64(i), 0, nil)
		members = append(members, g)
	}
	pop := populationOf(fx, members...)
	s := newSpeciesSet(t, fx.cfg, evo.Ascending)
	require.NoError(t, s.Speciate(pop, 3))

	data, err := s.MarshalState()
	require.NoError(t, err)
	restored := newSpeciesSet(t, fx.cfg, evo.Ascending)
	require.NoError(t, restored.RestoreState(data))

	assert.Equal(t, s.Threshold(), restored.Threshold())
	require.Len(t, restored.Species(), len(s.Species()))
	for i, sp := range s.Species() {
		other := restored.Species()[i]
		assert.Equal(t, sp.Key, other.Key)
		assert.Equal(t, sp.Representative.ID, other.Representative.ID)
		assert.Equal(t, sp.Representative.Data(), other.Representative.Data())
		assert.Equal(t, sp.History, other.History)
	}

	require.NoError(t, restored.Speciate(pop, 4))
	require.NoError(t, s.Speciate(pop, 4))
	assert.Equal(t, s.Threshold(), restored.Threshold())
	assert.Equal(t, len(s.Species()), len(restored.Species()))

	assert.Error(t, restored.RestoreState([]byte("garbage")))
}
