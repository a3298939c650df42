package neat

import (
	"fmt"

	"github.com/VinCheetah/Evolution/evo"
)

// Factory creates NEAT genomes. Input, output and initial hidden node ids
// are allocated from the tracker once, so every genome of a run shares them.
type Factory struct {
	cfg     *evo.NeatConfig
	tracker *Tracker
	rng     *evo.RNG
	ids     *evo.IDCounter

	inputs  []int
	outputs []int
	hidden  []int
}

// NewFactory allocates the fixed node ids and returns a factory.
func NewFactory(cfg *evo.NeatConfig, tracker *Tracker, rng *evo.RNG, ids *evo.IDCounter) (*Factory, error) {
	if cfg.NumInputs <= 0 || cfg.NumOutputs <= 0 {
		return nil, &evo.ConfigError{Field: "neat.num_inputs", Reason: "and num_outputs must be positive"}
	}
	f := &Factory{cfg: cfg, tracker: tracker, rng: rng, ids: ids}
	alloc := func(n int) []int {
		keys := make([]int, n)
		for i := range keys {
			keys[i] = tracker.NodeID()
		}
		return keys
	}
	f.inputs = alloc(cfg.NumInputs)
	f.outputs = alloc(cfg.NumOutputs)
	f.hidden = alloc(cfg.NumHidden)
	return f, nil
}

// Inputs returns the input node ids in order.
func (f *Factory) Inputs() []int { return append([]int(nil), f.inputs...) }

// Outputs returns the output node ids in order.
func (f *Factory) Outputs() []int { return append([]int(nil), f.outputs...) }

func (f *Factory) New(origin string) evo.Individual {
	g := NewGenome(evo.NewMeta(f.ids.Next(), origin))
	for _, id := range f.inputs {
		g.Nodes[id] = newNodeGene(id, Input, f.cfg, f.rng)
	}
	for _, id := range f.outputs {
		g.Nodes[id] = newNodeGene(id, Output, f.cfg, f.rng)
	}
	for _, id := range f.hidden {
		g.Nodes[id] = newNodeGene(id, Hidden, f.cfg, f.rng)
	}
	for _, l := range f.initialLinks() {
		id := f.tracker.ConnectionID(l.In, l.Out)
		g.Connections[id] = &ConnectionGene{ID: id, In: l.In, Out: l.Out, Weight: newWeight(f.cfg, f.rng), Enabled: true}
	}
	return g
}

// initialLinks lists the connections of a fresh genome for the configured
// initial_connection mode.
func (f *Factory) initialLinks() []link {
	var links []link
	connect := func(from, to []int, fraction float64) {
		for _, in := range from {
			for _, out := range to {
				if fraction >= 1 || f.rng.Chance(fraction) {
					links = append(links, link{in, out})
				}
			}
		}
	}
	switch f.cfg.InitialConnection {
	case "full":
		if len(f.hidden) == 0 {
			connect(f.inputs, f.outputs, 1)
			break
		}
		connect(f.inputs, f.hidden, 1)
		connect(f.hidden, f.outputs, 1)
	case "full_direct":
		connect(f.inputs, f.hidden, 1)
		connect(f.hidden, f.outputs, 1)
		connect(f.inputs, f.outputs, 1)
	case "partial":
		p := f.cfg.ConnectionFraction
		connect(f.inputs, f.hidden, p)
		connect(f.hidden, f.outputs, p)
		connect(f.inputs, f.outputs, p)
	}
	return links
}

// FromData rebuilds a genome from a snapshot, checks that it carries the
// run's input and output nodes and validates it. Tracker counters are moved
// past every id the snapshot uses.
func (f *Factory) FromData(data evo.Data, origin []string) (evo.Individual, error) {
	d, ok := data.(GenomeData)
	if !ok {
		return nil, fmt.Errorf("neat factory: unexpected data kind %q", data.Kind())
	}
	g := genomeFromData(evo.NewMeta(f.ids.Next(), origin...), d)
	for _, want := range []struct {
		ids []int
		typ NodeType
	}{{f.inputs, Input}, {f.outputs, Output}} {
		for _, id := range want.ids {
			if n, ok := g.Nodes[id]; !ok || n.Type != want.typ {
				return nil, g.violation("node %d must be an %s node", id, want.typ)
			}
		}
	}
	if got := len(g.NodesOf(Input)); got != len(f.inputs) {
		return nil, g.violation("%d input nodes, want %d", got, len(f.inputs))
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	for id := range g.Nodes {
		f.tracker.SyncNodeCounter(id + 1)
	}
	for id := range g.Connections {
		f.tracker.SyncConnectionCounter(id + 1)
	}
	return g, nil
}
