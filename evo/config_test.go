package evo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigINI(t *testing.T) {
	path := writeFile(t, "tsp.ini", `
[Evolution]
genome = Permutation
max_gen = 42
order = descending

[Crosser]
kind = pmx
prob = 0.6

[Mutator]
permutation_ops = swap reverse

[Individual]
size = 7
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "permutation", cfg.Evolution.Genome)
	assert.Equal(t, 42, cfg.Evolution.MaxGen)
	assert.Equal(t, Descending, cfg.SortOrder())
	assert.Equal(t, "pmx", cfg.Crosser.Kind)
	assert.Equal(t, 0.6, cfg.Crosser.Prob)
	assert.Equal(t, []string{"swap", "reverse"}, cfg.Mutator.PermutationOps)
	assert.Equal(t, 7, cfg.Individual.Size)
	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultConfig().Selector, cfg.Selector)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "binary.yaml", `
evolution:
  genome: binary
  max_gen: 5
selector:
  kind: wheel
  wheel_mode: power
population:
  init_size: 12
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "binary", cfg.Evolution.Genome)
	assert.Equal(t, 5, cfg.Evolution.MaxGen)
	assert.Equal(t, "wheel", cfg.Selector.Kind)
	assert.Equal(t, "power", cfg.Selector.WheelMode)
	assert.Equal(t, 12, cfg.Population.InitSize)
	assert.Equal(t, DefaultConfig().Elite, cfg.Elite)
}

func TestLoadConfigYAMLRejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "bad.yaml", "evolution:\n  generations: 5\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}

func TestValidateReportsField(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*Config)
	}{
		{"evolution.genome", func(c *Config) { c.Evolution.Genome = "tree" }},
		{"selector.kind", func(c *Config) { c.Selector.Kind = "lottery" }},
		{"population.init_size", func(c *Config) { c.Population.InitSize = 0 }},
		{"mutator.prob", func(c *Config) { c.Mutator.Prob = 1.5 }},
		{"selector.max_single_select_fail", func(c *Config) { c.Selector.MaxSingleSelectFail = 0 }},
		{"mutator.permutation_ops", func(c *Config) { c.Mutator.PermutationOps = []string{"rotate"} }},
		{"speciation.compatibility_threshold", func(c *Config) { c.Speciation.Threshold = 50 }},
		{"speciation.species_fitness_func", func(c *Config) { c.Speciation.SpeciesFitnessFunc = "mode" }},
		{"neat.add_node_prob", func(c *Config) { c.Neat.AddNodeProb = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfigCloneIsDeep(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Mutator.PermutationOps[0] = "changed"
	clone.Evolution.MaxGen = 1
	assert.Equal(t, "swap", cfg.Mutator.PermutationOps[0])
	assert.Equal(t, 100, cfg.Evolution.MaxGen)
}

func TestParameters(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, applyParameter(cfg, "mutation_prob", "0.9"))
	assert.Equal(t, 0.9, cfg.Mutator.Prob)

	err := applyParameter(cfg, "mutation_prob", "1.9")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 0.9, cfg.Mutator.Prob)

	err = applyParameter(cfg, "seed", "3")
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "seed", cfgErr.Field)

	assert.Contains(t, Parameters(), "max_gen")
}
