package evo

import (
	"fmt"
	"math"

	"github.com/go-logr/logr"
)

// SingleSelector picks one candidate per call.
type SingleSelector interface {
	SelectOne(pop *Population) Individual
}

// GroupSelector picks a whole candidate set per call.
type GroupSelector interface {
	SelectGroup(pop *Population, n int) []Individual
}

// preparer is implemented by strategies that precompute state once per
// selection, such as the cumulative wheel.
type preparer interface {
	Prepare(pop *Population)
}

// SelectionStats counts what the last selection did.
type SelectionStats struct {
	Requested int
	Selected  int
	Failures  int
	Exhausted bool
}

// Selector produces the next candidate set from a population using one
// strategy, which must be exactly one of SingleSelector or GroupSelector.
type Selector struct {
	cfg      *SelectorConfig
	strategy any
	single   SingleSelector
	group    GroupSelector
	log      logr.Logger
	stats    SelectionStats
}

// NewSelector validates the strategy and returns a selector.
func NewSelector(cfg *SelectorConfig, strategy any, log logr.Logger) (*Selector, error) {
	single, isSingle := strategy.(SingleSelector)
	group, isGroup := strategy.(GroupSelector)
	if isSingle == isGroup {
		return nil, configErrorf("selector.kind", "strategy %T must declare exactly one of single or group selection", strategy)
	}
	s := &Selector{cfg: cfg, strategy: strategy, single: single, group: group, log: log.WithName("selector")}
	if isSingle && cfg.MaxSingleSelectFail == -1 {
		s.log.Info("warning: unlimited single selection retries may never terminate")
	}
	if isGroup && cfg.MaxGroupSelectFail == -1 {
		s.log.Info("warning: unlimited group selection retries may never terminate")
	}
	return s, nil
}

// NewSelectorFromConfig builds the strategy named by cfg.Kind.
func NewSelectorFromConfig(cfg *SelectorConfig, rng *RNG, log logr.Logger) (*Selector, error) {
	var strategy any
	switch cfg.Kind {
	case "tournament":
		strategy = NewTournament(cfg, rng)
	case "wheel":
		strategy = NewWheel(cfg, rng)
	case "elite":
		strategy = EliteSelection{}
	default:
		return nil, configErrorf("selector.kind", "unknown selector '%s'", cfg.Kind)
	}
	return NewSelector(cfg, strategy, log)
}

// Stats returns the counters of the last call to Select.
func (s *Selector) Stats() SelectionStats { return s.stats }

// Target returns how many individuals a selection over pop should return.
func (s *Selector) Target(pop *Population) int {
	base := pop.Len()
	if s.cfg.LimitSize {
		base = pop.InitSize()
	}
	return int(math.Ceil(s.cfg.Ratio * float64(base)))
}

// Select returns the next candidate set. A short result is possible when
// the retry budget runs out; it is logged, never returned as an error.
func (s *Selector) Select(pop *Population) []Individual {
	n := s.Target(pop)
	s.stats = SelectionStats{Requested: n}
	pop.Keep(nil)
	if pop.Len() == 0 || n == 0 {
		return nil
	}
	if p, ok := s.strategy.(preparer); ok {
		p.Prepare(pop)
	}

	var selected []Individual
	if s.single != nil {
		selected = s.singleSelection(pop, n)
	} else {
		selected = s.groupSelection(pop, n)
	}
	if s.cfg.KeepBest {
		selected = s.keepBest(pop, selected, n)
	}
	s.stats.Selected = len(selected)
	if s.stats.Exhausted {
		s.log.Info("warning: selection returned fewer individuals than requested",
			"reason", ErrSelectionExhausted, "requested", n, "selected", len(selected), "failures", s.stats.Failures)
	}
	s.log.V(2).Info("selection done", "requested", n, "selected", len(selected))
	return selected
}

func (s *Selector) eligible(ind Individual, used map[int]bool) bool {
	if !s.cfg.AllowInvalid && !ind.Base().IsValid() {
		return false
	}
	return s.cfg.AllowCopies || !used[ind.Base().ID]
}

func (s *Selector) anyEligible(pop *Population, used map[int]bool) bool {
	for _, ind := range pop.members {
		if s.eligible(ind, used) {
			return true
		}
	}
	return false
}

// singleSelection fills n slots one at a time. A slot whose retry budget
// runs out stays empty and the next slot is tried.
func (s *Selector) singleSelection(pop *Population, n int) []Individual {
	limit := s.cfg.MaxSingleSelectFail
	selected := make([]Individual, 0, n)
	used := make(map[int]bool, n)
	for slot := 0; slot < n; slot++ {
		if limit == -1 && !s.anyEligible(pop, used) {
			s.stats.Exhausted = true
			break
		}
		picked := false
		for tries := 0; limit == -1 || tries < limit; tries++ {
			cand := s.single.SelectOne(pop)
			if cand != nil && s.eligible(cand, used) {
				used[cand.Base().ID] = true
				if s.cfg.AllowCopies {
					cand = cand.Clone()
				}
				selected = append(selected, cand)
				picked = true
				break
			}
			s.stats.Failures++
		}
		if !picked {
			s.stats.Exhausted = true
			s.log.V(4).Info("slot left empty", "slot", slot, "tries", limit)
		}
	}
	return selected
}

func (s *Selector) validGroup(group []Individual) bool {
	seen := make(map[int]bool, len(group))
	for _, ind := range group {
		if !s.cfg.AllowInvalid && !ind.Base().IsValid() {
			return false
		}
		if !s.cfg.AllowCopies && seen[ind.Base().ID] {
			return false
		}
		seen[ind.Base().ID] = true
	}
	return true
}

func (s *Selector) groupSelection(pop *Population, n int) []Individual {
	limit := s.cfg.MaxGroupSelectFail
	var group []Individual
	for tries := 0; limit == -1 || tries < limit; tries++ {
		group = s.group.SelectGroup(pop, n)
		if s.validGroup(group) {
			return s.own(group)
		}
		s.stats.Failures++
	}
	s.stats.Exhausted = true
	used := make(map[int]bool, len(group))
	kept := group[:0:0]
	for _, ind := range group {
		if s.eligible(ind, used) {
			used[ind.Base().ID] = true
			kept = append(kept, ind)
		}
	}
	return s.own(kept)
}

// own clones group members that occur more than once so that later
// phases never mutate two slots through one pointer.
func (s *Selector) own(group []Individual) []Individual {
	seen := make(map[Individual]bool, len(group))
	for i, ind := range group {
		if seen[ind] {
			group[i] = ind.Clone()
			continue
		}
		seen[ind] = true
	}
	return group
}

// keepBest force-includes the population best and marks it kept so the
// mutation phase leaves it alone. An entry with the same id is kept as is;
// when the target size is already met and limit_size is set the last slot
// is replaced.
func (s *Selector) keepBest(pop *Population, selected []Individual, n int) []Individual {
	best, err := pop.Best(nil, false)
	if err != nil {
		return selected
	}
	for _, ind := range selected {
		if ind.Base().ID == best.Base().ID {
			pop.Keep(ind)
			return selected
		}
	}
	pop.Keep(best)
	if len(selected) >= n && s.cfg.LimitSize {
		selected[len(selected)-1] = best
		return selected
	}
	return append(selected, best)
}

// EliteSelection is the truncation strategy: the best n individuals.
type EliteSelection struct{}

func (EliteSelection) SelectGroup(pop *Population, n int) []Individual { return pop.BestN(n) }

func (EliteSelection) String() string { return "elite" }

// Tournament draws k competitors with replacement and keeps the best valid
// one, or a random competitor when none is valid.
type Tournament struct {
	cfg *SelectorConfig
	rng *RNG
}

func NewTournament(cfg *SelectorConfig, rng *RNG) *Tournament {
	return &Tournament{cfg: cfg, rng: rng}
}

// Size returns the number of competitors for a population of n members.
func (t *Tournament) Size(n int) int {
	k := t.cfg.TournamentSize
	if t.cfg.TournamentSizeRatio > 0 {
		k = int(t.cfg.TournamentSizeRatio * float64(n))
	}
	return max(k, 1)
}

func (t *Tournament) SelectOne(pop *Population) Individual {
	if pop.Len() == 0 {
		return nil
	}
	competitors := pop.Random(t.Size(pop.Len()))
	if winner, err := pop.Best(competitors, false); err == nil {
		return winner
	}
	return competitors[t.rng.IntN(len(competitors))]
}

func (t *Tournament) String() string {
	if t.cfg.TournamentSizeRatio > 0 {
		return fmt.Sprintf("tournament(ratio=%g)", t.cfg.TournamentSizeRatio)
	}
	return fmt.Sprintf("tournament(k=%d)", t.cfg.TournamentSize)
}
