package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinCheetah/Evolution/evo"
)

// pair builds two genomes sharing connection 0 and each holding one
// private connection: 1 in a, 2 in b.
func pair() (a, b *Genome) {
	a, b = NewGenome(evo.NewMeta(1)), NewGenome(evo.NewMeta(2))
	for _, g := range []*Genome{a, b} {
		node(g, 0, Input)
		node(g, 1, Input)
		node(g, 2, Output)
		node(g, 3, Hidden)
		connect(g, 0, 0, 2, 1)
	}
	connect(a, 1, 1, 2, 1)
	connect(b, 2, 0, 3, 1)
	return a, b
}

func crossIDs(t *testing.T, c *Crossover, a, b *Genome) []int {
	t.Helper()
	data, err := c.Cross(a, b)
	require.NoError(t, err)
	child := genomeFromData(evo.NewMeta(9), data.(GenomeData))
	require.NoError(t, child.Validate())
	return child.ConnectionIDs()
}

func TestCrossoverTakesDisjointGenesFromFitter(t *testing.T) {
	cfg := &evo.CrosserConfig{DisableInheritanceProb: 0.75}
	a, b := pair()
	a.RegisterEvaluation(1, 0, nil)
	b.RegisterEvaluation(2, 0, nil)

	asc := NewCrossover(cfg, evo.Ascending, evo.NewRNG(1))
	desc := NewCrossover(cfg, evo.Descending, evo.NewRNG(1))
	for i := 0; i < 20; i++ {
		assert.Equal(t, []int{0, 1}, crossIDs(t, asc, a, b))
		assert.Equal(t, []int{0, 1}, crossIDs(t, asc, b, a))
		assert.Equal(t, []int{0, 2}, crossIDs(t, desc, a, b))
	}
}

func TestCrossoverEqualFitnessTakesUnion(t *testing.T) {
	a, b := pair()
	a.RegisterEvaluation(4, 0, nil)
	b.RegisterEvaluation(4, 0, nil)
	c := NewCrossover(&evo.CrosserConfig{}, evo.Ascending, evo.NewRNG(3))
	assert.Equal(t, []int{0, 1, 2}, crossIDs(t, c, a, b))

	data, err := c.Cross(a, b)
	require.NoError(t, err)
	assert.Len(t, data.(GenomeData).Nodes, 4)
}

func TestCrossoverDisableInheritance(t *testing.T) {
	a, b := pair()
	a.RegisterEvaluation(1, 0, nil)
	b.RegisterEvaluation(2, 0, nil)
	b.Connections[0].Enabled = false

	always := NewCrossover(&evo.CrosserConfig{DisableInheritanceProb: 1}, evo.Ascending, evo.NewRNG(5))
	for i := 0; i < 20; i++ {
		data, err := always.Cross(a, b)
		require.NoError(t, err)
		assert.False(t, data.(GenomeData).Connections[0].Enabled)
	}

	enabled := 0
	never := NewCrossover(&evo.CrosserConfig{DisableInheritanceProb: 0}, evo.Ascending, evo.NewRNG(5))
	for i := 0; i < 200; i++ {
		data, err := never.Cross(a, b)
		require.NoError(t, err)
		if data.(GenomeData).Connections[0].Enabled {
			enabled++
		}
	}
	// The matching gene comes from either parent with equal odds.
	assert.InDelta(t, 100, enabled, 30)
}

func TestCrossoverDisablesCyclicGene(t *testing.T) {
	a, b := NewGenome(evo.NewMeta(1)), NewGenome(evo.NewMeta(2))
	for _, g := range []*Genome{a, b} {
		node(g, 0, Input)
		node(g, 1, Output)
		node(g, 2, Hidden)
		node(g, 3, Hidden)
	}
	connect(a, 4, 2, 3, 1)
	connect(b, 5, 3, 2, 1)
	a.RegisterEvaluation(1, 0, nil)
	b.RegisterEvaluation(1, 0, nil)

	data, err := NewCrossover(&evo.CrosserConfig{}, evo.Ascending, evo.NewRNG(1)).Cross(a, b)
	require.NoError(t, err)
	child := genomeFromData(evo.NewMeta(3), data.(GenomeData))
	require.Len(t, child.Connections, 2)
	assert.True(t, child.Connections[4].Enabled)
	assert.False(t, child.Connections[5].Enabled)
	assert.NoError(t, child.Validate())
}

func TestCrossoverRejectsOtherGenomes(t *testing.T) {
	a, _ := pair()
	_, err := NewCrossover(&evo.CrosserConfig{}, evo.Ascending, evo.NewRNG(1)).Cross(a, &evo.Permutation{})
	assert.Error(t, err)
}
