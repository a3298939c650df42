package evo

import (
	"fmt"
	"sort"
	"strconv"
)

type paramSetter func(cfg *Config, value string) error

func floatParam(field func(*Config) *float64) paramSetter {
	return func(cfg *Config, value string) error {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		*field(cfg) = v
		return nil
	}
}

func intParam(field func(*Config) *int) paramSetter {
	return func(cfg *Config, value string) error {
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*field(cfg) = v
		return nil
	}
}

func boolParam(field func(*Config) *bool) paramSetter {
	return func(cfg *Config, value string) error {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		*field(cfg) = v
		return nil
	}
}

// parameters lists the options that may change while a run is going.
var parameters = map[string]paramSetter{
	"max_gen":                 intParam(func(c *Config) *int { return &c.Evolution.MaxGen }),
	"timeout":                 floatParam(func(c *Config) *float64 { return &c.Evolution.Timeout }),
	"immigration_rate":        floatParam(func(c *Config) *float64 { return &c.Population.ImmigrationRate }),
	"selection_ratio":         floatParam(func(c *Config) *float64 { return &c.Selector.Ratio }),
	"keep_best":               boolParam(func(c *Config) *bool { return &c.Selector.KeepBest }),
	"tournament_size":         intParam(func(c *Config) *int { return &c.Selector.TournamentSize }),
	"wheel_power":             floatParam(func(c *Config) *float64 { return &c.Selector.WheelPower }),
	"mutation_prob":           floatParam(func(c *Config) *float64 { return &c.Mutator.Prob }),
	"multi_mutation":          boolParam(func(c *Config) *bool { return &c.Mutator.MultiMutation }),
	"cross_prob":              floatParam(func(c *Config) *float64 { return &c.Crosser.Prob }),
	"compatibility_threshold": floatParam(func(c *Config) *float64 { return &c.Speciation.Threshold }),
	"weight_mutation_power":   floatParam(func(c *Config) *float64 { return &c.Neat.WeightMutationPower }),
	"selection":               boolParam(func(c *Config) *bool { return &c.Phases.Selection }),
	"migration":               boolParam(func(c *Config) *bool { return &c.Phases.Migration }),
	"crossover":               boolParam(func(c *Config) *bool { return &c.Phases.Crossover }),
	"mutation":                boolParam(func(c *Config) *bool { return &c.Phases.Mutation }),
}

// Parameters returns the names accepted by Environment.UpdateParameter.
func Parameters() []string {
	names := make([]string, 0, len(parameters))
	for name := range parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// applyParameter sets one option on a copy of cfg, validates the copy and
// only then commits the change.
func applyParameter(cfg *Config, name, value string) error {
	set, ok := parameters[name]
	if !ok {
		return configErrorf(name, "is not an updatable parameter")
	}
	trial := cfg.Clone()
	if err := set(trial, value); err != nil {
		return configErrorf(name, "invalid value %q: %v", value, err)
	}
	if err := trial.Validate(); err != nil {
		return err
	}
	if err := set(cfg, value); err != nil {
		return fmt.Errorf("apply %s: %w", name, err)
	}
	return nil
}
