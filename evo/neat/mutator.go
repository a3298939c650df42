package neat

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/VinCheetah/Evolution/evo"
)

type structuralOp struct {
	name  string
	prob  func(*evo.NeatConfig) float64
	apply func(*Mutation, *Genome) bool
}

// successive lists the operators in the order they are tried.
var successive = []structuralOp{
	{"add_connection", func(c *evo.NeatConfig) float64 { return c.AddConnectionProb }, (*Mutation).addConnection},
	{"delete_connection", func(c *evo.NeatConfig) float64 { return c.DeleteConnectionProb }, (*Mutation).deleteConnection},
	{"add_node", func(c *evo.NeatConfig) float64 { return c.AddNodeProb }, (*Mutation).addNode},
	{"delete_node", func(c *evo.NeatConfig) float64 { return c.DeleteNodeProb }, (*Mutation).deleteNode},
	{"mutate_weights", func(c *evo.NeatConfig) float64 { return c.MutateWeightsProb }, (*Mutation).mutateWeights},
	{"toggle_connection", func(c *evo.NeatConfig) float64 { return c.ToggleConnectionProb }, (*Mutation).toggleConnection},
	{"mutate_nodes", func(c *evo.NeatConfig) float64 { return c.MutateNodesProb }, (*Mutation).mutateNodes},
}

// Mutation is the successive NEAT mutator: every operator is tried once,
// each with its own probability.
type Mutation struct {
	cfg     *evo.NeatConfig
	tracker *Tracker
	rng     *evo.RNG
	log     logr.Logger
}

func NewMutation(cfg *evo.NeatConfig, tracker *Tracker, rng *evo.RNG, log logr.Logger) *Mutation {
	return &Mutation{cfg: cfg, tracker: tracker, rng: rng, log: log.WithName("neat")}
}

func (m *Mutation) Mutate(ind evo.Individual) (bool, error) {
	g, ok := ind.(*Genome)
	if !ok {
		return false, fmt.Errorf("neat mutation on %T", ind)
	}
	changed := false
	for _, op := range successive {
		if !m.rng.Chance(op.prob(m.cfg)) {
			continue
		}
		if op.apply(m, g) {
			changed = true
			m.log.V(4).Info("structural mutation", "genome", g.ID, "op", op.name)
		}
	}
	if changed {
		if err := g.Validate(); err != nil {
			return true, err
		}
	}
	return changed, nil
}

func (m *Mutation) pick(ids []int) int { return ids[m.rng.IntN(len(ids))] }

// addConnection links two unconnected nodes. The target may not be an input
// and the link may not close a cycle. It gives up after
// add_connection_attempts draws.
func (m *Mutation) addConnection(g *Genome) bool {
	sources := g.NodeIDs()
	var targets []int
	for _, id := range sources {
		if g.Nodes[id].Type != Input {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		return false
	}
	for i := 0; i < m.cfg.AddConnectionAttempts; i++ {
		in, out := m.pick(sources), m.pick(targets)
		if in == out || g.Link(in, out) != nil || g.CreatesCycle(in, out) {
			continue
		}
		id := m.tracker.ConnectionID(in, out)
		g.Connections[id] = &ConnectionGene{ID: id, In: in, Out: out, Weight: newWeight(m.cfg, m.rng), Enabled: true}
		return true
	}
	return false
}

func (m *Mutation) deleteConnection(g *Genome) bool {
	if len(g.Connections) == 0 {
		return false
	}
	delete(g.Connections, m.pick(g.ConnectionIDs()))
	return true
}

// addNode splits a random enabled connection in two: in->new with weight
// 1.0 and new->out with the original weight. The original is disabled.
func (m *Mutation) addNode(g *Genome) bool {
	var enabled []int
	for _, id := range g.ConnectionIDs() {
		if g.Connections[id].Enabled {
			enabled = append(enabled, id)
		}
	}
	if len(enabled) == 0 {
		return false
	}
	split := g.Connections[m.pick(enabled)]
	node := m.tracker.SplitNodeID(split.In, split.Out)
	if _, exists := g.Nodes[node]; exists {
		// Already split once in this lineage.
		return false
	}
	split.Enabled = false
	g.Nodes[node] = newNodeGene(node, Hidden, m.cfg, m.rng)
	first := m.tracker.ConnectionID(split.In, node)
	second := m.tracker.ConnectionID(node, split.Out)
	g.Connections[first] = &ConnectionGene{ID: first, In: split.In, Out: node, Weight: 1.0, Enabled: true}
	g.Connections[second] = &ConnectionGene{ID: second, In: node, Out: split.Out, Weight: split.Weight, Enabled: true}
	return true
}

// deleteNode removes a random hidden node with its incident connections.
func (m *Mutation) deleteNode(g *Genome) bool {
	hidden := g.NodesOf(Hidden)
	if len(hidden) == 0 {
		return false
	}
	node := m.pick(hidden)
	delete(g.Nodes, node)
	for id, c := range g.Connections {
		if c.In == node || c.Out == node {
			delete(g.Connections, id)
		}
	}
	return true
}

// mutateWeights perturbs every weight, or sets it to 0 with probability
// reset_weight_prob.
func (m *Mutation) mutateWeights(g *Genome) bool {
	if len(g.Connections) == 0 {
		return false
	}
	for _, id := range g.ConnectionIDs() {
		c := g.Connections[id]
		if m.rng.Chance(m.cfg.ResetWeightProb) {
			c.Weight = 0
		} else {
			c.Weight = mutateFloatAttribute(c.Weight, m.cfg.WeightMutationPower, m.cfg.WeightMinValue, m.cfg.WeightMaxValue, m.rng)
		}
	}
	return true
}

// toggleConnection flips a random connection. Re-enabling is refused when
// it would close a cycle.
func (m *Mutation) toggleConnection(g *Genome) bool {
	if len(g.Connections) == 0 {
		return false
	}
	c := g.Connections[m.pick(g.ConnectionIDs())]
	if c.Enabled {
		c.Enabled = false
		return true
	}
	if g.CreatesCycle(c.In, c.Out) {
		return false
	}
	c.Enabled = true
	return true
}

func (m *Mutation) mutateNodes(g *Genome) bool {
	changed := false
	for _, id := range g.NodeIDs() {
		if g.Nodes[id].Mutate(m.cfg, m.rng) {
			changed = true
		}
	}
	return changed
}
