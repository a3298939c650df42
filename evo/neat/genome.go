package neat

import (
	"encoding/gob"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/VinCheetah/Evolution/evo"
)

// GenomeData is the snapshot of a NEAT genome, genes sorted by id.
type GenomeData struct {
	Nodes       []NodeGene
	Connections []ConnectionGene
}

func (GenomeData) Kind() string { return "neat" }

// Genome is a NEAT individual: node genes and connection genes keyed by id.
// The enabled connections always form an acyclic graph.
type Genome struct {
	evo.Meta
	Nodes       map[int]*NodeGene
	Connections map[int]*ConnectionGene
}

// NewGenome returns an empty genome carrying meta.
func NewGenome(meta evo.Meta) *Genome {
	return &Genome{
		Meta:        meta,
		Nodes:       make(map[int]*NodeGene),
		Connections: make(map[int]*ConnectionGene),
	}
}

func genomeFromData(meta evo.Meta, d GenomeData) *Genome {
	g := NewGenome(meta)
	for _, n := range d.Nodes {
		g.Nodes[n.ID] = n.Copy()
	}
	for _, c := range d.Connections {
		g.Connections[c.ID] = c.Copy()
	}
	return g
}

// Len is the number of connection genes.
func (g *Genome) Len() int { return len(g.Connections) }

func (g *Genome) Data() evo.Data {
	d := GenomeData{
		Nodes:       make([]NodeGene, 0, len(g.Nodes)),
		Connections: make([]ConnectionGene, 0, len(g.Connections)),
	}
	for _, id := range g.NodeIDs() {
		d.Nodes = append(d.Nodes, *g.Nodes[id])
	}
	for _, id := range g.ConnectionIDs() {
		d.Connections = append(d.Connections, *g.Connections[id])
	}
	return d
}

func (g *Genome) Clone() evo.Individual {
	c := NewGenome(g.Meta.Clone())
	for id, n := range g.Nodes {
		c.Nodes[id] = n.Copy()
	}
	for id, cg := range g.Connections {
		c.Connections[id] = cg.Copy()
	}
	return c
}

// NodeIDs returns the node ids in ascending order.
func (g *Genome) NodeIDs() []int { return slices.Sorted(maps.Keys(g.Nodes)) }

// ConnectionIDs returns the connection ids in ascending order.
func (g *Genome) ConnectionIDs() []int { return slices.Sorted(maps.Keys(g.Connections)) }

// NodesOf returns the ids of the nodes of one type in ascending order.
func (g *Genome) NodesOf(typ NodeType) []int {
	var ids []int
	for _, id := range g.NodeIDs() {
		if g.Nodes[id].Type == typ {
			ids = append(ids, id)
		}
	}
	return ids
}

// Link returns the connection gene from in to out, or nil.
func (g *Genome) Link(in, out int) *ConnectionGene {
	for _, c := range g.Connections {
		if c.In == in && c.Out == out {
			return c
		}
	}
	return nil
}

// CreatesCycle reports whether enabling a connection from in to out would
// close a cycle among the enabled connections.
func (g *Genome) CreatesCycle(in, out int) bool {
	if in == out {
		return true
	}
	next := make(map[int][]int)
	for _, c := range g.Connections {
		if c.Enabled {
			next[c.In] = append(next[c.In], c.Out)
		}
	}
	visited := map[int]bool{out: true}
	queue := []int{out}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, n := range next[current] {
			if n == in {
				return true
			}
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}
	return false
}

// Graph returns the nodes and enabled connections as a gonum directed graph.
// It fails on an enabled self-loop, which gonum graphs cannot hold.
func (g *Genome) Graph() (*simple.DirectedGraph, error) {
	dg := simple.NewDirectedGraph()
	for _, id := range g.NodeIDs() {
		dg.AddNode(simple.Node(id))
	}
	for _, id := range g.ConnectionIDs() {
		c := g.Connections[id]
		if !c.Enabled {
			continue
		}
		if c.In == c.Out {
			return nil, g.violation("connection %d is a self-loop on node %d", c.ID, c.In)
		}
		dg.SetEdge(dg.NewEdge(simple.Node(c.In), simple.Node(c.Out)))
	}
	return dg, nil
}

func (g *Genome) violation(format string, args ...any) error {
	return &evo.InvariantViolation{
		Component: "neat genome",
		Detail:    fmt.Sprintf("genome %d: ", g.ID) + fmt.Sprintf(format, args...),
	}
}

// Validate checks the structural invariants: connections join existing
// nodes, never end on an input, each node pair is linked at most once and
// the enabled connections are acyclic.
func (g *Genome) Validate() error {
	if len(g.NodesOf(Input)) == 0 || len(g.NodesOf(Output)) == 0 {
		return g.violation("missing input or output nodes")
	}
	for id, n := range g.Nodes {
		if n.ID != id {
			return g.violation("node gene %d stored under id %d", n.ID, id)
		}
	}
	pairs := make(map[link]int, len(g.Connections))
	for _, id := range g.ConnectionIDs() {
		c := g.Connections[id]
		if c.ID != id {
			return g.violation("connection gene %d stored under id %d", c.ID, id)
		}
		in, okIn := g.Nodes[c.In]
		out, okOut := g.Nodes[c.Out]
		if !okIn || !okOut {
			return g.violation("connection %d references a missing node (%d->%d)", c.ID, c.In, c.Out)
		}
		if out.Type == Input {
			return g.violation("connection %d ends on input node %d", c.ID, out.ID)
		}
		if in.ID == out.ID {
			return g.violation("connection %d is a self-loop on node %d", c.ID, c.In)
		}
		if prev, dup := pairs[link{c.In, c.Out}]; dup {
			return g.violation("connections %d and %d both link %d->%d", prev, c.ID, c.In, c.Out)
		}
		pairs[link{c.In, c.Out}] = c.ID
	}
	dg, err := g.Graph()
	if err != nil {
		return err
	}
	if _, err := topo.Sort(dg); err != nil {
		return g.violation("enabled connections are cyclic: %v", err)
	}
	return nil
}

func (g *Genome) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Genome%s[%d nodes", evo.Describe(g), len(g.Nodes))
	enabled := 0
	for _, c := range g.Connections {
		if c.Enabled {
			enabled++
		}
	}
	fmt.Fprintf(&b, ", %d/%d connections enabled]", enabled, len(g.Connections))
	return b.String()
}

func init() {
	gob.Register(GenomeData{})
}
