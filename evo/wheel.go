package evo

import (
	"math"
	"sort"
)

// Wheel is fitness-proportionate selection. Scores are oriented so that
// larger is better, transformed by the configured mode and accumulated
// into a normalised wheel that is sampled by binary search.
type Wheel struct {
	cfg        *SelectorConfig
	rng        *RNG
	cumulative []float64
	members    []Individual
}

func NewWheel(cfg *SelectorConfig, rng *RNG) *Wheel {
	return &Wheel{cfg: cfg, rng: rng}
}

// Weights returns the unnormalised wheel weight of every member. Invalid
// members weigh nothing; a degenerate wheel falls back to uniform weights
// over the valid members, or over everyone if none is valid.
func (w *Wheel) Weights(pop *Population) []float64 {
	members := pop.members
	weights := make([]float64, len(members))
	oriented := make([]float64, 0, len(members))
	for _, ind := range members {
		if ind.Base().IsValid() {
			f := ind.Base().Fitness
			if pop.Order() == Ascending {
				f = -f
			}
			oriented = append(oriented, f)
		}
	}
	if len(oriented) == 0 {
		for i := range weights {
			weights[i] = 1
		}
		return weights
	}
	lo, hi := MinFloat(oriented), MaxFloat(oriented)

	total := 0.0
	for i, ind := range members {
		if !ind.Base().IsValid() {
			continue
		}
		f := ind.Base().Fitness
		if pop.Order() == Ascending {
			f = -f
		}
		switch w.cfg.WheelMode {
		case "softmax":
			weights[i] = math.Exp(f - hi)
		case "linear", "power":
			if hi > lo {
				weights[i] = (f - lo) / (hi - lo)
			}
			if w.cfg.WheelMode == "power" {
				weights[i] = math.Pow(weights[i], w.cfg.WheelPower)
			}
		}
		total += weights[i]
	}
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		for i, ind := range members {
			if ind.Base().IsValid() {
				weights[i] = 1
			}
		}
	}
	return weights
}

// Prepare builds the cumulative wheel for the current population.
func (w *Wheel) Prepare(pop *Population) {
	weights := w.Weights(pop)
	total := Sum(weights)
	w.members = pop.members
	w.cumulative = make([]float64, len(weights))
	acc := 0.0
	for i, v := range weights {
		acc += v
		w.cumulative[i] = acc / total
	}
}

func (w *Wheel) SelectOne(pop *Population) Individual {
	if len(w.cumulative) != pop.Len() {
		w.Prepare(pop)
	}
	if len(w.cumulative) == 0 {
		return nil
	}
	i := sort.SearchFloat64s(w.cumulative, w.rng.Float64())
	if i >= len(w.members) {
		i = len(w.members) - 1
	}
	return w.members[i]
}

func (w *Wheel) String() string { return "wheel(" + w.cfg.WheelMode + ")" }
