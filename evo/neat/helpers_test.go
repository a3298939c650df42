package neat

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/VinCheetah/Evolution/evo"
)

func testConfig() *evo.Config {
	cfg := evo.DefaultConfig()
	cfg.Evolution.Genome = "neat"
	cfg.Crosser.Kind = "neat"
	cfg.Neat.ActivationOptions = []string{"sigmoid", "tanh", "relu"}
	cfg.Neat.ActivationMutateRate = 0.2
	return cfg
}

type fixture struct {
	cfg     *evo.Config
	rng     *evo.RNG
	ids     *evo.IDCounter
	tracker *Tracker
	factory *Factory
}

func newFixture(t *testing.T, cfg *evo.Config) *fixture {
	t.Helper()
	fx := &fixture{cfg: cfg, rng: evo.NewRNG(17), ids: evo.NewIDCounter(0), tracker: NewTracker()}
	var err error
	fx.factory, err = NewFactory(&cfg.Neat, fx.tracker, fx.rng, fx.ids)
	require.NoError(t, err)
	return fx
}

func (fx *fixture) genome() *Genome { return fx.factory.New("test").(*Genome) }

func (fx *fixture) mutation() *Mutation {
	return NewMutation(&fx.cfg.Neat, fx.tracker, fx.rng, logr.Discard())
}

// node adds a node gene with neutral attributes.
func node(g *Genome, id int, typ NodeType) {
	g.Nodes[id] = &NodeGene{ID: id, Type: typ, Response: 1, Activation: "identity", Aggregation: "sum"}
}

// connect adds an enabled connection gene.
func connect(g *Genome, id, in, out int, weight float64) *ConnectionGene {
	c := &ConnectionGene{ID: id, In: in, Out: out, Weight: weight, Enabled: true}
	g.Connections[id] = c
	return c
}
