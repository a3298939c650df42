// Package metrics exports generation reports as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VinCheetah/Evolution/evo"
)

// Reporter is an evo.Reporter that keeps one gauge per report field on its
// own registry.
type Reporter struct {
	registry *prometheus.Registry

	runs       prometheus.Counter
	finished   prometheus.Counter
	generation prometheus.Gauge
	eliteBest  prometheus.Gauge
	popBest    prometheus.Gauge
	popMean    prometheus.Gauge
	popStdev   prometheus.Gauge
	size       prometheus.Gauge
	species    prometheus.Gauge
	threshold  prometheus.Gauge
	phase      *prometheus.GaugeVec
	events     *prometheus.CounterVec
}

// NewReporter creates the metrics under namespace and registers them.
func NewReporter(namespace string) *Reporter {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	r := &Reporter{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_started_total", Help: "Evolutions started.",
		}),
		finished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_finished_total", Help: "Evolutions finished.",
		}),
		generation: gauge("generation", "Last completed generation."),
		eliteBest:  gauge("elite_best_fitness", "Best fitness in the elite archive."),
		popBest:    gauge("population_best_fitness", "Best valid fitness in the population."),
		popMean:    gauge("population_mean_fitness", "Mean valid fitness of the population."),
		popStdev:   gauge("population_fitness_stdev", "Standard deviation of the valid fitness values."),
		size:       gauge("population_size", "Population size at the end of the generation."),
		species:    gauge("species", "Number of species."),
		threshold:  gauge("compatibility_threshold", "Current speciation threshold."),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "phase_seconds", Help: "Duration of each phase in the last generation.",
		}, []string{"phase"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "individuals_total", Help: "Individuals handled by each phase.",
		}, []string{"event"}),
	}
	r.registry.MustRegister(r.runs, r.finished, r.generation, r.eliteBest, r.popBest, r.popMean,
		r.popStdev, r.size, r.species, r.threshold, r.phase, r.events)
	return r
}

// Registry returns the registry holding the metrics.
func (r *Reporter) Registry() *prometheus.Registry { return r.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (r *Reporter) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Reporter) StartEvolution(*evo.Config) { r.runs.Inc() }

func (r *Reporter) EndGeneration(rep evo.Report) {
	r.generation.Set(float64(rep.Generation))
	if rep.HasElite {
		r.eliteBest.Set(rep.EliteBest)
	}
	r.popBest.Set(rep.PopBest)
	r.popMean.Set(rep.PopMean)
	r.popStdev.Set(rep.PopStdev)
	r.size.Set(float64(rep.Size))
	r.species.Set(float64(len(rep.Species)))
	r.threshold.Set(rep.Threshold)
	for name, d := range rep.Phases {
		r.phase.WithLabelValues(name).Set(d.Seconds())
	}
	for event, n := range map[string]int{
		"immigrated": rep.Immigrated,
		"crossed":    rep.Crossed,
		"mutated":    rep.Mutated,
		"evaluated":  rep.Evaluated,
		"failed":     rep.Failed,
		"selected":   rep.Selected,
	} {
		r.events.WithLabelValues(event).Add(float64(n))
	}
}

func (r *Reporter) EndEvolution(evo.Report) { r.finished.Inc() }
