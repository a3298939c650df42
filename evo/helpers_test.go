package evo

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/require"
)

// logSink collects formatted log lines.
type logSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *logSink) logger(verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.lines = append(s.lines, prefix+" "+args)
	}, funcr.Options{Verbosity: verbosity})
}

func (s *logSink) contains(substr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func newChainFactory(t *testing.T, rng *RNG, ids *IDCounter) *ChainFactory {
	t.Helper()
	f, err := NewChainFactory(ChainSpec{Size: 4, Type: IntegerElement, Min: 0, Max: 9}, rng, ids)
	require.NoError(t, err)
	return f
}

func newTestPopulation(t *testing.T, order Order, initSize int) *Population {
	t.Helper()
	rng := NewRNG(7)
	cfg := &PopulationConfig{InitSize: initSize, ImmigrationRate: 0.2, CompletePopulation: true, KeepSorted: true}
	return NewPopulation(cfg, order, newChainFactory(t, rng, NewIDCounter(0)), rng, logr.Discard())
}

// scored creates an individual with the given fitness and adds it.
func scored(pop *Population, fitness float64) Individual {
	ind := pop.Factory().New("test")
	ind.Base().RegisterEvaluation(fitness, 0, nil)
	pop.Add(ind)
	return ind
}

// failed creates an invalid individual and adds it.
func failed(pop *Population) Individual {
	ind := pop.Factory().New("test")
	ind.Base().RegisterEvaluation(0, 0, fmt.Errorf("boom"))
	pop.Add(ind)
	return ind
}

func ids(inds []Individual) []int {
	out := make([]int, len(inds))
	for i, ind := range inds {
		out[i] = ind.Base().ID
	}
	return out
}

func fitnesses(inds []Individual) []float64 {
	out := make([]float64, len(inds))
	for i, ind := range inds {
		out[i] = ind.Base().Fitness
	}
	return out
}
