// Package nn builds runnable phenotypes from NEAT genomes.
package nn

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/VinCheetah/Evolution/evo/neat"
)

type input struct {
	from   int
	weight float64
}

// neuron is a non-input node with its functions resolved.
type neuron struct {
	id          int
	bias        float64
	response    float64
	activation  neat.ActivationFunc
	aggregation neat.AggregationFunc
	inputs      []input
}

// FeedForwardNetwork evaluates the enabled connections of a genome in
// topological order.
type FeedForwardNetwork struct {
	InputKeys  []int
	OutputKeys []int
	// EvalOrder lists the non-input node ids in activation order.
	EvalOrder []int
	neurons   []neuron
}

func byID(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}

// New builds the network of g. Ties in the topological order are broken by
// node id so that the same genome always activates the same way.
func New(g *neat.Genome) (*FeedForwardNetwork, error) {
	dg, err := g.Graph()
	if err != nil {
		return nil, err
	}
	sorted, err := topo.SortStabilized(dg, byID)
	if err != nil {
		return nil, fmt.Errorf("failed topological sort of genome %d: %w", g.ID, err)
	}

	incoming := make(map[int][]input)
	for _, id := range g.ConnectionIDs() {
		c := g.Connections[id]
		if c.Enabled {
			incoming[c.Out] = append(incoming[c.Out], input{from: c.In, weight: c.Weight})
		}
	}

	net := &FeedForwardNetwork{
		InputKeys:  g.NodesOf(neat.Input),
		OutputKeys: g.NodesOf(neat.Output),
	}
	for _, n := range sorted {
		gene := g.Nodes[int(n.ID())]
		if gene.Type == neat.Input {
			continue
		}
		act, err := neat.GetActivation(gene.Activation)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", gene.ID, err)
		}
		agg, err := neat.GetAggregation(gene.Aggregation)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", gene.ID, err)
		}
		net.EvalOrder = append(net.EvalOrder, gene.ID)
		net.neurons = append(net.neurons, neuron{
			id:          gene.ID,
			bias:        gene.Bias,
			response:    gene.Response,
			activation:  act,
			aggregation: agg,
			inputs:      incoming[gene.ID],
		})
	}
	return net, nil
}

// Activate computes the outputs for one input vector. A node's value is
// activation(bias + response * aggregation(weighted inputs)).
func (net *FeedForwardNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(net.InputKeys) {
		return nil, fmt.Errorf("expected %d inputs, got %d", len(net.InputKeys), len(inputs))
	}
	values := make(map[int]float64, len(net.InputKeys)+len(net.neurons))
	for i, k := range net.InputKeys {
		values[k] = inputs[i]
	}
	var buf []float64
	for _, n := range net.neurons {
		buf = buf[:0]
		for _, in := range n.inputs {
			buf = append(buf, values[in.from]*in.weight)
		}
		values[n.id] = n.activation(n.bias + n.response*n.aggregation(buf))
	}
	outputs := make([]float64, len(net.OutputKeys))
	for i, k := range net.OutputKeys {
		outputs[i] = values[k]
	}
	return outputs, nil
}
