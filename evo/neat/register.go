package neat

import (
	"github.com/VinCheetah/Evolution/evo"
)

func init() {
	evo.RegisterGenome("neat", Assemble)
}

// Assemble builds the NEAT components of a run: factory, alignment
// crossover, successive mutator and species set sharing one tracker.
func Assemble(rt *evo.Runtime) (*evo.Components, error) {
	cfg := rt.Config
	if cfg.Crosser.Kind != "neat" {
		return nil, &evo.ConfigError{Field: "crosser.kind", Reason: "neat genomes need the 'neat' crosser, got '" + cfg.Crosser.Kind + "'"}
	}
	for _, name := range cfg.Neat.ActivationOptions {
		if _, err := GetActivation(name); err != nil {
			return nil, &evo.ConfigError{Field: "neat.activation_options", Reason: err.Error()}
		}
	}
	for _, name := range cfg.Neat.AggregationOptions {
		if _, err := GetAggregation(name); err != nil {
			return nil, &evo.ConfigError{Field: "neat.aggregation_options", Reason: err.Error()}
		}
	}

	tracker := NewTracker()
	factory, err := NewFactory(&cfg.Neat, tracker, rt.RNG, rt.IDs)
	if err != nil {
		return nil, err
	}
	species, err := NewSpeciesSet(&cfg.Speciation, rt.Order(), rt.RNG, rt.Log)
	if err != nil {
		return nil, err
	}
	return &evo.Components{
		Factory:   factory,
		Crossover: NewCrossover(&cfg.Crosser, rt.Order(), rt.RNG),
		Mutation:  NewMutation(&cfg.Neat, tracker, rt.RNG, rt.Log),
		Speciator: species,
		State:     []evo.Stateful{tracker, species},
	}, nil
}
