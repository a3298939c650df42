package evo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulationAddAscendingInsertsBeforeEqualScores(t *testing.T) {
	pop := newTestPopulation(t, Ascending, 10)
	a := scored(pop, 3)
	b := scored(pop, 1)
	c := scored(pop, 2)
	d := scored(pop, 2)

	assert.True(t, pop.IsSorted())
	assert.Equal(t, ids([]Individual{b, d, c, a}), ids(pop.Members()))
}

func TestPopulationAddDescendingInsertsAfterEqualScores(t *testing.T) {
	pop := newTestPopulation(t, Descending, 10)
	a := scored(pop, 3)
	b := scored(pop, 1)
	c := scored(pop, 2)
	d := scored(pop, 2)

	assert.Equal(t, ids([]Individual{a, c, d, b}), ids(pop.Members()))
}

func TestPopulationInvalidRanksLast(t *testing.T) {
	pop := newTestPopulation(t, Ascending, 10)
	bad := failed(pop)
	scored(pop, 5)
	unevaluated := pop.Factory().New("test")
	pop.Add(unevaluated)
	scored(pop, 1)

	members := pop.Members()
	require.Len(t, members, 4)
	assert.Equal(t, []float64{1, 5}, fitnesses(members[:2]))
	assert.ElementsMatch(t, []int{bad.Base().ID, unevaluated.Base().ID}, ids(members[2:]))
	assert.Equal(t, math.Inf(1), pop.Score(bad))
	assert.Equal(t, math.Inf(-1), Descending.Score(bad))
}

func TestPopulationBestAndWorst(t *testing.T) {
	pop := newTestPopulation(t, Ascending, 10)
	bad := failed(pop)
	scored(pop, 4)
	best := scored(pop, 2)
	worst := scored(pop, 8)

	got, err := pop.Best(nil, false)
	require.NoError(t, err)
	assert.Equal(t, best.Base().ID, got.Base().ID)

	got, err = pop.Worst(nil, false)
	require.NoError(t, err)
	assert.Equal(t, worst.Base().ID, got.Base().ID)

	got, err = pop.Worst(nil, true)
	require.NoError(t, err)
	assert.Equal(t, bad.Base().ID, got.Base().ID)
}

func TestPopulationBestWithoutValidIndividual(t *testing.T) {
	pop := newTestPopulation(t, Ascending, 10)
	bad := failed(pop)

	_, err := pop.Best(nil, false)
	assert.ErrorIs(t, err, ErrNoValidIndividual)

	got, err := pop.Best(nil, true)
	require.NoError(t, err)
	assert.Equal(t, bad.Base().ID, got.Base().ID)
}

func TestPopulationMigrateReplacesWorst(t *testing.T) {
	pop := newTestPopulation(t, Ascending, 10)
	var all []Individual
	for i := 0; i < 10; i++ {
		all = append(all, scored(pop, float64(i)))
	}

	n := pop.Migrate()
	require.Equal(t, 2, n)
	require.Equal(t, 10, pop.Len())

	kept := ids(pop.Members()[:8])
	assert.Equal(t, ids(all[:8]), kept)
	for _, ind := range pop.Members()[8:] {
		assert.False(t, ind.Base().IsEvaluated())
		assert.Equal(t, []string{"immigration"}, ind.Base().Origin)
	}
}

func TestPopulationInitEvaluationCompletes(t *testing.T) {
	pop := newTestPopulation(t, Ascending, 5)
	scored(pop, 1)
	scored(pop, 2)

	assert.Equal(t, 3, pop.InitEvaluation())
	assert.Equal(t, 5, pop.Len())
	assert.Equal(t, 0, pop.InitEvaluation())
}

func TestPopulationStatistics(t *testing.T) {
	pop := newTestPopulation(t, Ascending, 5)
	scored(pop, 1)
	scored(pop, 3)
	failed(pop)

	assert.Equal(t, []float64{1, 3}, pop.Scores())
	assert.InDelta(t, 2, pop.Mean(), 1e-12)
	assert.True(t, pop.ExistValid())
	assert.True(t, pop.ExistInvalid())
	assert.Len(t, pop.BestN(10), 3)
}

func TestPopulationUpdateCountsSurvivals(t *testing.T) {
	pop := newTestPopulation(t, Ascending, 5)
	a := scored(pop, 2)
	b := scored(pop, 1)

	pop.Update([]Individual{a, b})
	assert.Equal(t, 1, a.Base().Survived)
	assert.Equal(t, ids([]Individual{b, a}), ids(pop.Members()))

	removed := pop.Remove(map[int]bool{a.Base().ID: true})
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, pop.Len())
}
