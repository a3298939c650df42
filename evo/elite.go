package evo

import (
	"fmt"
	"sort"

	"github.com/go-logr/logr"
)

// EliteEntry is one archived individual with the score it was archived at.
type EliteEntry struct {
	Individual Individual
	Score      float64
}

// Elite is a bounded best-first archive of the best individuals ever seen.
type Elite struct {
	cfg     *EliteConfig
	order   Order
	check   bool
	log     logr.Logger
	entries []EliteEntry
}

// NewElite returns an empty archive. With check set, Update fails with an
// *InvariantViolation when the best score regresses.
func NewElite(cfg *EliteConfig, order Order, check bool, log logr.Logger) *Elite {
	return &Elite{cfg: cfg, order: order, check: check, log: log.WithName("elite")}
}

func (e *Elite) Len() int { return len(e.entries) }

func (e *Elite) Cap() int { return e.cfg.Size }

// Entries returns the archive, best first.
func (e *Elite) Entries() []EliteEntry { return e.entries }

// Best returns the best archived entry.
func (e *Elite) Best() (EliteEntry, bool) {
	if len(e.entries) == 0 {
		return EliteEntry{}, false
	}
	return e.entries[0], true
}

// Scores returns the archived scores, best first.
func (e *Elite) Scores() []float64 {
	out := make([]float64, len(e.entries))
	for i, en := range e.entries {
		out[i] = en.Score
	}
	return out
}

// Update merges the archive with the valid members of pop and keeps the
// best K. Carried-over entries are reused and win ties; fresh entries are
// copied so later phases cannot alter them.
func (e *Elite) Update(pop *Population) error {
	if e.cfg.Size == 0 {
		return nil
	}
	prev, hadPrev := e.Best()

	type candidate struct {
		entry EliteEntry
		fresh bool
	}
	archived := make(map[int]bool, len(e.entries))
	cands := make([]candidate, 0, len(e.entries)+pop.Len())
	for _, en := range e.entries {
		archived[en.Individual.Base().ID] = true
		cands = append(cands, candidate{entry: en})
	}
	for _, ind := range pop.members {
		m := ind.Base()
		if !m.IsValid() || archived[m.ID] {
			continue
		}
		archived[m.ID] = true
		cands = append(cands, candidate{entry: EliteEntry{Individual: ind, Score: m.Fitness}, fresh: true})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return e.order.Better(cands[i].entry.Score, cands[j].entry.Score)
	})
	if len(cands) > e.cfg.Size {
		cands = cands[:e.cfg.Size]
	}

	entries := make([]EliteEntry, len(cands))
	for i, c := range cands {
		if c.fresh {
			c.entry.Individual = c.entry.Individual.Clone()
		}
		entries[i] = c.entry
	}
	e.entries = entries

	if e.check && hadPrev {
		best, _ := e.Best()
		if e.order.Better(prev.Score, best.Score) {
			return &InvariantViolation{
				Component: "elite",
				Detail:    fmt.Sprintf("best score regressed from %g to %g", prev.Score, best.Score),
			}
		}
	}
	e.log.V(2).Info("elite updated", "size", len(e.entries))
	return nil
}

// Restore replaces the archive with clones of the given individuals.
func (e *Elite) Restore(inds []Individual) {
	e.entries = e.entries[:0]
	for _, ind := range inds {
		if ind.Base().IsValid() {
			e.entries = append(e.entries, EliteEntry{Individual: ind.Clone(), Score: ind.Base().Fitness})
		}
	}
	sort.SliceStable(e.entries, func(i, j int) bool {
		return e.order.Better(e.entries[i].Score, e.entries[j].Score)
	})
	if len(e.entries) > e.cfg.Size {
		e.entries = e.entries[:e.cfg.Size]
	}
}
