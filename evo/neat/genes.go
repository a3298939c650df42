package neat

import (
	"fmt"
	"math"

	"github.com/VinCheetah/Evolution/evo"
)

// NodeType is the role of a node in the network.
type NodeType int

const (
	Input NodeType = iota
	Hidden
	Output
)

func (t NodeType) String() string {
	switch t {
	case Input:
		return "input"
	case Hidden:
		return "hidden"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// NodeGene represents a node (neuron) of the genome.
type NodeGene struct {
	ID          int
	Type        NodeType
	Bias        float64
	Response    float64
	Activation  string // name in ActivationFunctions
	Aggregation string // name in AggregationFunctions
}

// newNodeGene creates a node with attributes drawn from the configuration.
func newNodeGene(id int, typ NodeType, cfg *evo.NeatConfig, rng *evo.RNG) *NodeGene {
	return &NodeGene{
		ID:          id,
		Type:        typ,
		Bias:        initFloatAttribute(cfg.BiasInitMean, cfg.BiasInitStdev, cfg.BiasMinValue, cfg.BiasMaxValue, rng),
		Response:    cfg.ResponseInit,
		Activation:  initStringAttribute(cfg.ActivationDefault, cfg.ActivationOptions, rng),
		Aggregation: initStringAttribute(cfg.AggregationDefault, cfg.AggregationOptions, rng),
	}
}

func (ng *NodeGene) String() string {
	return fmt.Sprintf("NodeGene(%d %s, bias=%.3f, response=%.3f, %s/%s)",
		ng.ID, ng.Type, ng.Bias, ng.Response, ng.Activation, ng.Aggregation)
}

// Copy creates a copy of the NodeGene.
func (ng *NodeGene) Copy() *NodeGene {
	c := *ng
	return &c
}

// Mutate perturbs the node attributes. Input nodes carry no attributes that
// matter and are left alone. It reports whether anything changed.
func (ng *NodeGene) Mutate(cfg *evo.NeatConfig, rng *evo.RNG) bool {
	if ng.Type == Input {
		return false
	}
	before := *ng
	ng.Bias = mutateFloatAttribute(ng.Bias, cfg.BiasMutationPower, cfg.BiasMinValue, cfg.BiasMaxValue, rng)
	if cfg.ResponseMutationPower > 0 {
		ng.Response += rng.NormFloat64() * cfg.ResponseMutationPower
	}
	ng.Activation = mutateStringAttribute(ng.Activation, cfg.ActivationMutateRate, cfg.ActivationOptions, rng)
	ng.Aggregation = mutateStringAttribute(ng.Aggregation, cfg.AggregationMutateRate, cfg.AggregationOptions, rng)
	return *ng != before
}

// Crossover returns a child node taking each attribute from either parent
// with equal probability. The receiver gives the id and type.
func (ng *NodeGene) Crossover(other *NodeGene, rng *evo.RNG) *NodeGene {
	child := ng.Copy()
	if rng.Chance(0.5) {
		child.Bias = other.Bias
	}
	if rng.Chance(0.5) {
		child.Response = other.Response
	}
	if rng.Chance(0.5) {
		child.Activation = other.Activation
	}
	if rng.Chance(0.5) {
		child.Aggregation = other.Aggregation
	}
	return child
}

// ConnectionGene links two nodes. ID is the innovation number of the
// (In, Out) pair.
type ConnectionGene struct {
	ID      int
	In      int
	Out     int
	Weight  float64
	Enabled bool
}

func (cg *ConnectionGene) String() string {
	return fmt.Sprintf("ConnGene(#%d %d->%d, weight=%.3f, enabled=%t)", cg.ID, cg.In, cg.Out, cg.Weight, cg.Enabled)
}

// Copy creates a copy of the ConnectionGene.
func (cg *ConnectionGene) Copy() *ConnectionGene {
	c := *cg
	return &c
}

// newWeight draws an initial connection weight.
func newWeight(cfg *evo.NeatConfig, rng *evo.RNG) float64 {
	return initFloatAttribute(cfg.WeightInitMean, cfg.WeightInitStdev, cfg.WeightMinValue, cfg.WeightMaxValue, rng)
}

func clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(value, hi))
}

// initFloatAttribute draws from a gaussian and clamps into [lo, hi].
func initFloatAttribute(mean, stdev, lo, hi float64, rng *evo.RNG) float64 {
	return clamp(mean+rng.NormFloat64()*stdev, lo, hi)
}

// mutateFloatAttribute adds gaussian noise scaled by power and clamps into
// [lo, hi].
func mutateFloatAttribute(value, power, lo, hi float64, rng *evo.RNG) float64 {
	if power <= 0 {
		return value
	}
	return clamp(value+rng.NormFloat64()*power, lo, hi)
}

// initStringAttribute returns the default when it is one of the options, a
// random option otherwise.
func initStringAttribute(def string, options []string, rng *evo.RNG) string {
	if len(options) == 0 {
		return def
	}
	for _, opt := range options {
		if opt == def {
			return def
		}
	}
	return options[rng.IntN(len(options))]
}

// mutateStringAttribute switches to a different option with probability rate.
func mutateStringAttribute(value string, rate float64, options []string, rng *evo.RNG) string {
	if len(options) <= 1 || !rng.Chance(rate) {
		return value
	}
	others := make([]string, 0, len(options))
	for _, opt := range options {
		if opt != value {
			others = append(others, opt)
		}
	}
	if len(others) == 0 {
		return value
	}
	return others[rng.IntN(len(others))]
}
