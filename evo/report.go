package evo

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"
)

// SpeciesSummary is the read-only view of one species.
type SpeciesSummary struct {
	Key        int
	Size       int
	Age        int
	Stagnation int
	Best       float64
	Fitness    float64
	Adjusted   float64
}

// Report is the snapshot handed to reporters after each generation. It is
// the only channel through which collaborators observe a run.
type Report struct {
	Generation int
	Elapsed    time.Duration
	EliteBest  float64
	HasElite   bool
	PopBest    float64
	PopMean    float64
	PopStdev   float64
	Size       int
	Immigrated int
	Crossed    int
	Mutated    int
	Mutations  int
	Evaluated  int
	Failed     int
	Selected   int
	Phases     map[string]time.Duration
	Species    []SpeciesSummary
	Threshold  float64
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gen %s (%s)", humanize.Comma(int64(r.Generation)), r.Elapsed.Round(time.Millisecond))
	if r.HasElite {
		fmt.Fprintf(&b, " top=%s", humanize.FtoaWithDigits(r.EliteBest, 6))
	}
	fmt.Fprintf(&b, " best=%s mean=%s size=%s",
		humanize.FtoaWithDigits(r.PopBest, 6), humanize.FtoaWithDigits(r.PopMean, 6), humanize.Comma(int64(r.Size)))
	fmt.Fprintf(&b, " immi=%d cros=%d mut=%d eval=%d", r.Immigrated, r.Crossed, r.Mutated, r.Evaluated)
	if len(r.Species) > 0 {
		fmt.Fprintf(&b, " species=%d", len(r.Species))
	}
	return b.String()
}

// Reporter observes a run.
type Reporter interface {
	StartEvolution(cfg *Config)
	EndGeneration(r Report)
	EndEvolution(r Report)
}

// ReporterSet fans events out to several reporters.
type ReporterSet struct {
	reporters []Reporter
}

func (rs *ReporterSet) Add(r Reporter) { rs.reporters = append(rs.reporters, r) }

func (rs *ReporterSet) Len() int { return len(rs.reporters) }

func (rs *ReporterSet) StartEvolution(cfg *Config) {
	for _, r := range rs.reporters {
		r.StartEvolution(cfg)
	}
}

func (rs *ReporterSet) EndGeneration(rep Report) {
	for _, r := range rs.reporters {
		r.EndGeneration(rep)
	}
}

func (rs *ReporterSet) EndEvolution(rep Report) {
	for _, r := range rs.reporters {
		r.EndEvolution(rep)
	}
}

// LogReporter writes one line per generation through a logr.Logger.
type LogReporter struct {
	log   logr.Logger
	every int
}

// NewLogReporter reports every n-th generation; n <= 1 reports all of them.
func NewLogReporter(log logr.Logger, every int) *LogReporter {
	return &LogReporter{log: log.WithName("report"), every: max(every, 1)}
}

func (l *LogReporter) StartEvolution(cfg *Config) {
	l.log.Info("evolution started", "genome", cfg.Evolution.Genome, "maxGen", cfg.Evolution.MaxGen,
		"population", cfg.Population.InitSize, "order", cfg.Evolution.Order)
}

func (l *LogReporter) EndGeneration(r Report) {
	if r.Generation%l.every != 0 {
		return
	}
	l.log.Info(r.String())
	for _, s := range r.Species {
		l.log.V(3).Info("species", "key", s.Key, "size", s.Size, "age", s.Age, "stagnation", s.Stagnation, "best", s.Best)
	}
	for name, d := range r.Phases {
		l.log.V(3).Info("phase", "name", name, "duration", d)
	}
}

func (l *LogReporter) EndEvolution(r Report) {
	l.log.Info("evolution finished", "generations", r.Generation, "elapsed", r.Elapsed.String(), "top", r.EliteBest)
}
