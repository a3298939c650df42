package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinCheetah/Evolution/evo"
)

func TestFactorySharesNodeAndConnectionIDs(t *testing.T) {
	fx := newFixture(t, testConfig())
	assert.Equal(t, []int{0, 1}, fx.factory.Inputs())
	assert.Equal(t, []int{2}, fx.factory.Outputs())

	a, b := fx.genome(), fx.genome()
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, []int{0, 1}, a.ConnectionIDs())
	assert.Equal(t, a.ConnectionIDs(), b.ConnectionIDs())
	assert.Equal(t, 2, a.Len())
	require.NoError(t, a.Validate())
	assert.Equal(t, []int{0, 1}, a.NodesOf(Input))
	assert.Equal(t, []int{2}, a.NodesOf(Output))
}

func TestFactoryInitialConnectionModes(t *testing.T) {
	tests := []struct {
		mode  string
		links int
	}{
		{"unconnected", 0},
		{"full", 3},        // 2 inputs -> hidden, hidden -> output
		{"full_direct", 5}, // plus 2 inputs -> output
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := testConfig()
			cfg.Neat.NumHidden = 1
			cfg.Neat.InitialConnection = tt.mode
			g := newFixture(t, cfg).genome()
			assert.Len(t, g.Connections, tt.links)
			assert.Equal(t, []int{3}, g.NodesOf(Hidden))
			require.NoError(t, g.Validate())
		})
	}
}

func TestFromDataRejectsForeignGenomes(t *testing.T) {
	fx := newFixture(t, testConfig())
	g := fx.genome()

	d := g.Data().(GenomeData)
	d.Nodes = d.Nodes[1:] // drop input 0
	_, err := fx.factory.FromData(d, nil)
	var violation *evo.InvariantViolation
	assert.ErrorAs(t, err, &violation)

	_, err = fx.factory.FromData(evo.PermutationData{Order: []int{0}}, nil)
	assert.Error(t, err)

	rebuilt, err := fx.factory.FromData(g.Data(), []string{"copy"})
	require.NoError(t, err)
	assert.Equal(t, g.Data(), rebuilt.Data())
	assert.Equal(t, []string{"copy"}, rebuilt.Base().Origin)
}

func TestValidateDetectsBrokenStructure(t *testing.T) {
	base := func() *Genome {
		g := NewGenome(evo.NewMeta(1))
		node(g, 0, Input)
		node(g, 1, Output)
		node(g, 2, Hidden)
		node(g, 3, Hidden)
		connect(g, 0, 0, 2, 1)
		connect(g, 1, 2, 3, 1)
		connect(g, 2, 3, 1, 1)
		return g
	}
	require.NoError(t, base().Validate())

	tests := map[string]func(g *Genome){
		"cycle":        func(g *Genome) { connect(g, 3, 3, 2, 1) },
		"self-loop":    func(g *Genome) { connect(g, 3, 2, 2, 1) },
		"into input":   func(g *Genome) { connect(g, 3, 2, 0, 1) },
		"missing node": func(g *Genome) { connect(g, 3, 0, 9, 1) },
		"duplicate":    func(g *Genome) { connect(g, 3, 0, 2, 1) },
	}
	for name, breakIt := range tests {
		t.Run(name, func(t *testing.T) {
			g := base()
			breakIt(g)
			var violation *evo.InvariantViolation
			assert.ErrorAs(t, g.Validate(), &violation)
		})
	}

	// A disabled back edge is allowed.
	g := base()
	connect(g, 3, 3, 2, 1).Enabled = false
	assert.NoError(t, g.Validate())
	assert.True(t, g.CreatesCycle(3, 2))
	assert.False(t, g.CreatesCycle(0, 3))
}

func TestCloneIsDeep(t *testing.T) {
	fx := newFixture(t, testConfig())
	g := fx.genome()
	c := g.Clone().(*Genome)
	c.Connections[0].Weight = 99
	c.Nodes[2].Bias = 99
	assert.NotEqual(t, 99.0, g.Connections[0].Weight)
	assert.NotEqual(t, 99.0, g.Nodes[2].Bias)
	assert.Equal(t, g.ID, c.ID)
}
