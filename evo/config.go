package evo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"sigs.k8s.io/yaml"
)

// Config stores every option of an evolution run, one struct per section.
type Config struct {
	Evolution  EvolutionConfig  `json:"evolution"`
	Phases     PhasesConfig     `json:"phases"`
	Population PopulationConfig `json:"population"`
	Selector   SelectorConfig   `json:"selector"`
	Individual IndividualConfig `json:"individual"`
	Mutator    MutatorConfig    `json:"mutator"`
	Crosser    CrosserConfig    `json:"crosser"`
	Elite      EliteConfig      `json:"elite"`
	Neat       NeatConfig       `json:"neat"`
	Speciation SpeciationConfig `json:"speciation"`
}

// EvolutionConfig holds loop-level parameters.
type EvolutionConfig struct {
	Genome          string  `ini:"genome" json:"genome"` // chain, binary, permutation or neat
	MaxGen          int     `ini:"max_gen" json:"max_gen"`
	Timeout         float64 `ini:"timeout" json:"timeout"` // seconds, <= 0 disables
	Seed            uint64  `ini:"seed" json:"seed"`
	Order           string  `ini:"order" json:"order"` // ascending: lower fitness is better
	CheckInvariants bool    `ini:"check_invariants" json:"check_invariants"`
	EvalTimeout     float64 `ini:"eval_timeout" json:"eval_timeout"` // advisory, seconds
	RecordEvery     int     `ini:"record_every" json:"record_every"`
}

// PhasesConfig toggles each generation phase.
type PhasesConfig struct {
	Selection  bool `ini:"selection" json:"selection"`
	Migration  bool `ini:"migration" json:"migration"`
	Crossover  bool `ini:"crossover" json:"crossover"`
	Mutation   bool `ini:"mutation" json:"mutation"`
	Evaluation bool `ini:"evaluation" json:"evaluation"`
	Elite      bool `ini:"elite" json:"elite"`
}

// PopulationConfig holds population sizing and ordering options.
type PopulationConfig struct {
	InitSize           int     `ini:"init_size" json:"init_size"`
	ImmigrationRate    float64 `ini:"immigration_rate" json:"immigration_rate"`
	CompletePopulation bool    `ini:"complete_population" json:"complete_population"`
	KeepSorted         bool    `ini:"keep_sorted" json:"keep_sorted"`
}

// SelectorConfig holds selection options shared by every strategy plus the
// strategy-specific knobs.
type SelectorConfig struct {
	Kind                string  `ini:"kind" json:"kind"` // tournament, wheel or elite
	Ratio               float64 `ini:"ratio" json:"ratio"`
	LimitSize           bool    `ini:"limit_size" json:"limit_size"`
	KeepBest            bool    `ini:"keep_best" json:"keep_best"`
	AllowCopies         bool    `ini:"allow_copies" json:"allow_copies"`
	AllowInvalid        bool    `ini:"allow_invalid" json:"allow_invalid"`
	MaxSingleSelectFail int     `ini:"max_single_select_fail" json:"max_single_select_fail"` // -1 is unlimited
	MaxGroupSelectFail  int     `ini:"max_group_select_fail" json:"max_group_select_fail"`   // -1 is unlimited
	TournamentSize      int     `ini:"tournament_size" json:"tournament_size"`
	TournamentSizeRatio float64 `ini:"tournament_size_ratio" json:"tournament_size_ratio"` // used when > 0
	WheelMode           string  `ini:"wheel_mode" json:"wheel_mode"`                       // softmax, linear or power
	WheelPower          float64 `ini:"wheel_power" json:"wheel_power"`
}

// IndividualConfig describes chain and permutation genomes.
type IndividualConfig struct {
	Size        int     `ini:"size" json:"size"`
	ElementType string  `ini:"element_type" json:"element_type"` // integer or real
	Min         float64 `ini:"min" json:"min"`
	Max         float64 `ini:"max" json:"max"`
}

// MutatorConfig holds mutation probabilities.
type MutatorConfig struct {
	Prob           float64  `ini:"prob" json:"prob"`
	MultiMutation  bool     `ini:"multi_mutation" json:"multi_mutation"`
	MultiMode      string   `ini:"multi_mode" json:"multi_mode"` // times, squared or linear
	MaxMutations   int      `ini:"max_mutations" json:"max_mutations"`
	PermutationOps []string `ini:"permutation_ops" delim:" " json:"permutation_ops"`
	MaxSegment     int      `ini:"max_segment" json:"max_segment"` // 0 means up to the genome size
}

// CrosserConfig holds crossover options.
type CrosserConfig struct {
	Kind                   string  `ini:"kind" json:"kind"` // multipoint, pmx, mean or neat
	Prob                   float64 `ini:"prob" json:"prob"`
	NumPoints              int     `ini:"num_points" json:"num_points"`
	NumCross               int     `ini:"num_cross" json:"num_cross"`
	DisableInheritanceProb float64 `ini:"disable_inheritance_prob" json:"disable_inheritance_prob"`
}

// EliteConfig holds the archive capacity.
type EliteConfig struct {
	Size int `ini:"size" json:"size"`
}

// NeatConfig describes NEAT genomes and their structural mutation rates.
type NeatConfig struct {
	NumInputs          int     `ini:"num_inputs" json:"num_inputs"`
	NumOutputs         int     `ini:"num_outputs" json:"num_outputs"`
	NumHidden          int     `ini:"num_hidden" json:"num_hidden"`
	InitialConnection  string  `ini:"initial_connection" json:"initial_connection"` // unconnected, full, full_direct, partial
	ConnectionFraction float64 `ini:"connection_fraction" json:"connection_fraction"`

	WeightInitMean      float64 `ini:"weight_init_mean" json:"weight_init_mean"`
	WeightInitStdev     float64 `ini:"weight_init_stdev" json:"weight_init_stdev"`
	WeightMinValue      float64 `ini:"weight_min_value" json:"weight_min_value"`
	WeightMaxValue      float64 `ini:"weight_max_value" json:"weight_max_value"`
	WeightMutationPower float64 `ini:"weight_mutation_power" json:"weight_mutation_power"`
	ResetWeightProb     float64 `ini:"reset_weight_prob" json:"reset_weight_prob"`

	BiasInitMean      float64 `ini:"bias_init_mean" json:"bias_init_mean"`
	BiasInitStdev     float64 `ini:"bias_init_stdev" json:"bias_init_stdev"`
	BiasMinValue      float64 `ini:"bias_min_value" json:"bias_min_value"`
	BiasMaxValue      float64 `ini:"bias_max_value" json:"bias_max_value"`
	BiasMutationPower float64 `ini:"bias_mutation_power" json:"bias_mutation_power"`

	ResponseInit          float64 `ini:"response_init" json:"response_init"`
	ResponseMutationPower float64 `ini:"response_mutation_power" json:"response_mutation_power"`

	ActivationDefault     string   `ini:"activation_default" json:"activation_default"`
	ActivationOptions     []string `ini:"activation_options" delim:" " json:"activation_options"`
	ActivationMutateRate  float64  `ini:"activation_mutate_rate" json:"activation_mutate_rate"`
	AggregationDefault    string   `ini:"aggregation_default" json:"aggregation_default"`
	AggregationOptions    []string `ini:"aggregation_options" delim:" " json:"aggregation_options"`
	AggregationMutateRate float64  `ini:"aggregation_mutate_rate" json:"aggregation_mutate_rate"`

	AddConnectionProb     float64 `ini:"add_connection_prob" json:"add_connection_prob"`
	DeleteConnectionProb  float64 `ini:"delete_connection_prob" json:"delete_connection_prob"`
	AddNodeProb           float64 `ini:"add_node_prob" json:"add_node_prob"`
	DeleteNodeProb        float64 `ini:"delete_node_prob" json:"delete_node_prob"`
	MutateWeightsProb     float64 `ini:"mutate_weights_prob" json:"mutate_weights_prob"`
	ToggleConnectionProb  float64 `ini:"toggle_connection_prob" json:"toggle_connection_prob"`
	MutateNodesProb       float64 `ini:"mutate_nodes_prob" json:"mutate_nodes_prob"`
	AddConnectionAttempts int     `ini:"add_connection_attempts" json:"add_connection_attempts"`
}

// SpeciationConfig holds the compatibility-distance and stagnation options.
type SpeciationConfig struct {
	Enabled             bool    `ini:"enabled" json:"enabled"`
	ExcessCoefficient   float64 `ini:"excess_coefficient" json:"excess_coefficient"`
	DisjointCoefficient float64 `ini:"disjoint_coefficient" json:"disjoint_coefficient"`
	WeightCoefficient   float64 `ini:"weight_coefficient" json:"weight_coefficient"`
	Threshold           float64 `ini:"compatibility_threshold" json:"compatibility_threshold"`
	Modifier            float64 `ini:"compatibility_modifier" json:"compatibility_modifier"`
	MinThreshold        float64 `ini:"min_threshold" json:"min_threshold"`
	MaxThreshold        float64 `ini:"max_threshold" json:"max_threshold"`
	TargetSpecies       int     `ini:"target_species" json:"target_species"`
	MaxStagnation       int     `ini:"max_stagnation" json:"max_stagnation"`
	MinSpeciesSize      int     `ini:"min_species_size" json:"min_species_size"`
	SpeciesElitism      int     `ini:"species_elitism" json:"species_elitism"`
	SpeciesFitnessFunc  string  `ini:"species_fitness_func" json:"species_fitness_func"`
	DistanceCacheSize   int     `ini:"distance_cache_size" json:"distance_cache_size"`
}

// DefaultConfig returns a configuration with every option set to its
// default. Loaders overlay file values on top of it.
func DefaultConfig() *Config {
	return &Config{
		Evolution: EvolutionConfig{
			Genome:          "chain",
			MaxGen:          100,
			Seed:            1,
			Order:           "ascending",
			CheckInvariants: true,
			EvalTimeout:     10,
		},
		Phases: PhasesConfig{
			Selection:  true,
			Migration:  true,
			Crossover:  true,
			Mutation:   true,
			Evaluation: true,
			Elite:      true,
		},
		Population: PopulationConfig{
			InitSize:           100,
			ImmigrationRate:    0.05,
			CompletePopulation: true,
			KeepSorted:         true,
		},
		Selector: SelectorConfig{
			Kind:                "tournament",
			Ratio:               0.5,
			LimitSize:           true,
			KeepBest:            true,
			AllowCopies:         true,
			MaxSingleSelectFail: 30,
			MaxGroupSelectFail:  5,
			TournamentSize:      3,
			WheelMode:           "softmax",
			WheelPower:          2,
		},
		Individual: IndividualConfig{
			Size:        10,
			ElementType: "integer",
			Min:         0,
			Max:         10,
		},
		Mutator: MutatorConfig{
			Prob:           0.3,
			MultiMode:      "times",
			MaxMutations:   64,
			PermutationOps: []string{"swap", "move", "move_segment", "reverse", "shuffle"},
		},
		Crosser: CrosserConfig{
			Kind:                   "multipoint",
			Prob:                   0.3,
			NumPoints:              2,
			NumCross:               1,
			DisableInheritanceProb: 0.75,
		},
		Elite: EliteConfig{Size: 5},
		Neat: NeatConfig{
			NumInputs:             2,
			NumOutputs:            1,
			InitialConnection:     "full",
			ConnectionFraction:    0.5,
			WeightInitStdev:       1,
			WeightMinValue:        -30,
			WeightMaxValue:        30,
			WeightMutationPower:   0.5,
			ResetWeightProb:       0.1,
			BiasInitStdev:         1,
			BiasMinValue:          -30,
			BiasMaxValue:          30,
			BiasMutationPower:     0.5,
			ResponseInit:          1,
			ActivationDefault:     "sigmoid",
			ActivationOptions:     []string{"sigmoid"},
			AggregationDefault:    "sum",
			AggregationOptions:    []string{"sum"},
			AddConnectionProb:     0.2,
			DeleteConnectionProb:  0.1,
			AddNodeProb:           0.1,
			DeleteNodeProb:        0.05,
			MutateWeightsProb:     0.3,
			ToggleConnectionProb:  0.05,
			MutateNodesProb:       0.1,
			AddConnectionAttempts: 20,
		},
		Speciation: SpeciationConfig{
			Enabled:             true,
			ExcessCoefficient:   1,
			DisjointCoefficient: 1,
			WeightCoefficient:   0.4,
			Threshold:           3,
			Modifier:            0.3,
			MinThreshold:        0.1,
			MaxThreshold:        10,
			TargetSpecies:       10,
			MaxStagnation:       15,
			MinSpeciesSize:      2,
			SpeciesElitism:      1,
			SpeciesFitnessFunc:  "mean",
			DistanceCacheSize:   4096,
		},
	}
}

var iniSections = []string{
	"Evolution", "Phases", "Population", "Selector", "Individual",
	"Mutator", "Crosser", "Elite", "Neat", "Speciation",
}

// LoadConfig reads an INI or YAML file over DefaultConfig and validates
// the result. The format is chosen from the file extension.
func LoadConfig(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		cfg, err = loadYAML(path)
	default:
		cfg, err = loadINI(path)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config '%s': %w", path, err)
	}
	return cfg, nil
}

func loadINI(path string) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", path, err)
	}

	cfg := DefaultConfig()
	targets := []any{
		&cfg.Evolution, &cfg.Phases, &cfg.Population, &cfg.Selector, &cfg.Individual,
		&cfg.Mutator, &cfg.Crosser, &cfg.Elite, &cfg.Neat, &cfg.Speciation,
	}
	for i, name := range iniSections {
		if !file.HasSection(name) {
			continue
		}
		if err := file.Section(name).MapTo(targets[i]); err != nil {
			return nil, fmt.Errorf("failed to map [%s] section: %w", name, err)
		}
	}
	cfg.clean()
	return cfg, nil
}

func loadYAML(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.UnmarshalStrict(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file '%s': %w", path, err)
	}
	cfg.clean()
	return cfg, nil
}

// clean lowercases enumerations and trims list options.
func (c *Config) clean() {
	lower := func(s *string) { *s = strings.ToLower(strings.TrimSpace(*s)) }
	lower(&c.Evolution.Genome)
	lower(&c.Evolution.Order)
	lower(&c.Selector.Kind)
	lower(&c.Selector.WheelMode)
	lower(&c.Individual.ElementType)
	lower(&c.Mutator.MultiMode)
	lower(&c.Crosser.Kind)
	lower(&c.Neat.InitialConnection)
	lower(&c.Speciation.SpeciesFitnessFunc)
	for _, list := range [][]string{c.Mutator.PermutationOps, c.Neat.ActivationOptions, c.Neat.AggregationOptions} {
		for i := range list {
			list[i] = strings.TrimSpace(list[i])
		}
	}
}

func oneOf(field, value string, options ...string) error {
	for _, o := range options {
		if value == o {
			return nil
		}
	}
	return configErrorf(field, "must be one of %v, got '%s'", options, value)
}

func probability(field string, p float64) error {
	if p < 0 || p > 1 {
		return configErrorf(field, "must be between 0 and 1")
	}
	return nil
}

// Validate checks every option and returns the first problem as a
// *ConfigError.
func (c *Config) Validate() error {
	checks := []func() error{
		func() error {
			return oneOf("evolution.genome", c.Evolution.Genome, registeredKinds()...)
		},
		func() error { return oneOf("evolution.order", c.Evolution.Order, "ascending", "descending") },
		func() error {
			if c.Evolution.MaxGen < 0 {
				return configErrorf("evolution.max_gen", "cannot be negative")
			}
			return nil
		},
		func() error {
			if c.Population.InitSize <= 0 {
				return configErrorf("population.init_size", "must be positive")
			}
			return nil
		},
		func() error { return probability("population.immigration_rate", c.Population.ImmigrationRate) },
		func() error { return oneOf("selector.kind", c.Selector.Kind, "tournament", "wheel", "elite") },
		func() error {
			if c.Selector.Ratio <= 0 {
				return configErrorf("selector.ratio", "must be positive")
			}
			return nil
		},
		func() error {
			if c.Selector.MaxSingleSelectFail < -1 || c.Selector.MaxSingleSelectFail == 0 {
				return configErrorf("selector.max_single_select_fail", "must be positive or -1")
			}
			if c.Selector.MaxGroupSelectFail < -1 || c.Selector.MaxGroupSelectFail == 0 {
				return configErrorf("selector.max_group_select_fail", "must be positive or -1")
			}
			return nil
		},
		func() error {
			if c.Selector.TournamentSize <= 0 && c.Selector.TournamentSizeRatio <= 0 {
				return configErrorf("selector.tournament_size", "must be positive")
			}
			return nil
		},
		func() error { return oneOf("selector.wheel_mode", c.Selector.WheelMode, "softmax", "linear", "power") },
		func() error {
			if c.Individual.Size <= 0 {
				return configErrorf("individual.size", "must be positive")
			}
			if c.Individual.Max < c.Individual.Min {
				return configErrorf("individual.max", "cannot be less than individual.min")
			}
			return oneOf("individual.element_type", c.Individual.ElementType, "integer", "real")
		},
		func() error { return probability("mutator.prob", c.Mutator.Prob) },
		func() error { return oneOf("mutator.multi_mode", c.Mutator.MultiMode, "times", "squared", "linear") },
		func() error {
			if c.Mutator.MaxMutations <= 0 {
				return configErrorf("mutator.max_mutations", "must be positive")
			}
			for _, op := range c.Mutator.PermutationOps {
				if err := oneOf("mutator.permutation_ops", op, permutationOps...); err != nil {
					return err
				}
			}
			return nil
		},
		func() error { return oneOf("crosser.kind", c.Crosser.Kind, "multipoint", "pmx", "mean", "neat") },
		func() error { return probability("crosser.prob", c.Crosser.Prob) },
		func() error {
			if c.Crosser.NumPoints <= 0 || c.Crosser.NumCross <= 0 {
				return configErrorf("crosser.num_points", "and num_cross must be positive")
			}
			return probability("crosser.disable_inheritance_prob", c.Crosser.DisableInheritanceProb)
		},
		func() error {
			if c.Elite.Size < 0 {
				return configErrorf("elite.size", "cannot be negative")
			}
			return nil
		},
		c.validateNeat,
		c.validateSpeciation,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateNeat() error {
	n := c.Neat
	if n.NumInputs <= 0 {
		return configErrorf("neat.num_inputs", "must be positive")
	}
	if n.NumOutputs <= 0 {
		return configErrorf("neat.num_outputs", "must be positive")
	}
	if n.NumHidden < 0 {
		return configErrorf("neat.num_hidden", "cannot be negative")
	}
	if err := oneOf("neat.initial_connection", n.InitialConnection, "unconnected", "full", "full_direct", "partial"); err != nil {
		return err
	}
	if n.WeightMaxValue < n.WeightMinValue {
		return configErrorf("neat.weight_max_value", "cannot be less than weight_min_value")
	}
	if n.BiasMaxValue < n.BiasMinValue {
		return configErrorf("neat.bias_max_value", "cannot be less than bias_min_value")
	}
	if len(n.ActivationOptions) == 0 {
		return configErrorf("neat.activation_options", "must be specified")
	}
	if len(n.AggregationOptions) == 0 {
		return configErrorf("neat.aggregation_options", "must be specified")
	}
	probs := map[string]float64{
		"neat.connection_fraction":     n.ConnectionFraction,
		"neat.reset_weight_prob":       n.ResetWeightProb,
		"neat.add_connection_prob":     n.AddConnectionProb,
		"neat.delete_connection_prob":  n.DeleteConnectionProb,
		"neat.add_node_prob":           n.AddNodeProb,
		"neat.delete_node_prob":        n.DeleteNodeProb,
		"neat.mutate_weights_prob":     n.MutateWeightsProb,
		"neat.toggle_connection_prob":  n.ToggleConnectionProb,
		"neat.mutate_nodes_prob":       n.MutateNodesProb,
		"neat.activation_mutate_rate":  n.ActivationMutateRate,
		"neat.aggregation_mutate_rate": n.AggregationMutateRate,
	}
	for field, p := range probs {
		if err := probability(field, p); err != nil {
			return err
		}
	}
	if n.AddConnectionAttempts <= 0 {
		return configErrorf("neat.add_connection_attempts", "must be positive")
	}
	return nil
}

func (c *Config) validateSpeciation() error {
	s := c.Speciation
	if s.ExcessCoefficient < 0 || s.DisjointCoefficient < 0 || s.WeightCoefficient < 0 {
		return configErrorf("speciation.coefficients", "cannot be negative")
	}
	if s.MinThreshold <= 0 || s.MaxThreshold < s.MinThreshold {
		return configErrorf("speciation.min_threshold", "must be positive and not above max_threshold")
	}
	if s.Threshold < s.MinThreshold || s.Threshold > s.MaxThreshold {
		return configErrorf("speciation.compatibility_threshold", "must lie in [%g, %g]", s.MinThreshold, s.MaxThreshold)
	}
	if s.MaxStagnation <= 0 {
		return configErrorf("speciation.max_stagnation", "must be positive")
	}
	if s.TargetSpecies <= 0 {
		return configErrorf("speciation.target_species", "must be positive")
	}
	if s.DistanceCacheSize <= 0 {
		return configErrorf("speciation.distance_cache_size", "must be positive")
	}
	if _, ok := StatFunctions[s.SpeciesFitnessFunc]; !ok {
		return configErrorf("speciation.species_fitness_func", "unknown function '%s'", s.SpeciesFitnessFunc)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Mutator.PermutationOps = append([]string(nil), c.Mutator.PermutationOps...)
	out.Neat.ActivationOptions = append([]string(nil), c.Neat.ActivationOptions...)
	out.Neat.AggregationOptions = append([]string(nil), c.Neat.AggregationOptions...)
	return &out
}

// SortOrder returns the configured fitness direction.
func (c *Config) SortOrder() Order {
	if c.Evolution.Order == "descending" {
		return Descending
	}
	return Ascending
}
