package neat

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru"

	"github.com/VinCheetah/Evolution/evo"
)

// Distance is the compatibility distance between two genomes:
//
//	δ = c1·E/N + c2·D/N + c3·W̄
//
// computed over connection innovation numbers. E counts excess genes (ids
// beyond the other genome's largest id), D disjoint genes, W̄ is the mean
// weight difference of matching genes and N the connection count of the
// larger genome, at least 1.
func Distance(a, b *Genome, cfg *evo.SpeciationConfig) float64 {
	if len(a.Connections) == 0 && len(b.Connections) == 0 {
		return 0
	}
	maxID := func(g *Genome) int {
		m := -1
		for id := range g.Connections {
			m = max(m, id)
		}
		return m
	}
	limit := min(maxID(a), maxID(b))

	var excess, disjoint, matching int
	var weightDiff float64
	count := func(id int) {
		if id > limit {
			excess++
		} else {
			disjoint++
		}
	}
	for _, id := range a.ConnectionIDs() {
		ca := a.Connections[id]
		if cb, ok := b.Connections[id]; ok {
			matching++
			weightDiff += math.Abs(ca.Weight - cb.Weight)
		} else {
			count(id)
		}
	}
	for id := range b.Connections {
		if _, ok := a.Connections[id]; !ok {
			count(id)
		}
	}

	n := float64(max(len(a.Connections), len(b.Connections), 1))
	d := cfg.ExcessCoefficient*float64(excess)/n + cfg.DisjointCoefficient*float64(disjoint)/n
	if matching > 0 {
		d += cfg.WeightCoefficient * weightDiff / float64(matching)
	}
	return d
}

// DistanceCache memoizes distances between genome pairs, keyed by their ids.
// A genome's data never changes under the same id, so entries stay valid.
type DistanceCache struct {
	cfg    *evo.SpeciationConfig
	cache  *lru.Cache
	Hits   int
	Misses int
}

// NewDistanceCache returns a cache holding at most size pairs.
func NewDistanceCache(size int, cfg *evo.SpeciationConfig) (*DistanceCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create distance cache: %w", err)
	}
	return &DistanceCache{cfg: cfg, cache: c}, nil
}

// Distance returns the cached distance of the pair, computing it on a miss.
func (dc *DistanceCache) Distance(a, b *Genome) float64 {
	key := [2]int{min(a.ID, b.ID), max(a.ID, b.ID)}
	if v, ok := dc.cache.Get(key); ok {
		dc.Hits++
		return v.(float64)
	}
	dc.Misses++
	d := Distance(a, b, dc.cfg)
	dc.cache.Add(key, d)
	return d
}

// Purge drops every cached distance.
func (dc *DistanceCache) Purge() { dc.cache.Purge() }
