package evo

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pentagon returns the distance matrix of five cities on a unit circle.
func pentagon() ([][]float64, float64) {
	const n = 5
	xs, ys := make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / n
		xs[i], ys[i] = math.Cos(a), math.Sin(a)
	}
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
		for j := range d[i] {
			d[i][j] = math.Hypot(xs[i]-xs[j], ys[i]-ys[j])
		}
	}
	return d, n * d[0][1]
}

func tspConfig() *Config {
	cfg := DefaultConfig()
	cfg.Evolution.Genome = "permutation"
	cfg.Evolution.MaxGen = 40
	cfg.Evolution.Seed = 3
	cfg.Population.InitSize = 60
	cfg.Individual.Size = 5
	cfg.Crosser.Kind = "pmx"
	cfg.Crosser.NumCross = 1
	cfg.Mutator.Prob = 0.4
	cfg.Elite.Size = 3
	return cfg
}

// recorder keeps every report it is handed.
type recorder struct {
	started  int
	finished int
	reports  []Report
}

func (r *recorder) StartEvolution(*Config)   { r.started++ }
func (r *recorder) EndGeneration(rep Report) { r.reports = append(r.reports, rep) }
func (r *recorder) EndEvolution(Report)      { r.finished++ }

func TestEnvironmentSolvesFiveCityTour(t *testing.T) {
	d, optimum := pentagon()
	rec := &recorder{}
	env, err := NewEnvironment(tspConfig(), TourLength(d), WithLogger(logr.Discard()), WithReporter(rec))
	require.NoError(t, err)
	assert.Equal(t, NotStarted, env.State())

	require.NoError(t, env.Run(context.Background()))
	assert.Equal(t, Finished, env.State())
	assert.Equal(t, 40, env.Generation())

	assert.Equal(t, 1, rec.started)
	assert.Equal(t, 1, rec.finished)
	require.Len(t, rec.reports, 41)
	for i := 1; i < len(rec.reports); i++ {
		assert.LessOrEqual(t, rec.reports[i].EliteBest, rec.reports[i-1].EliteBest, "generation %d", i)
	}

	best, ok := env.Elite().Best()
	require.True(t, ok)
	assert.InDelta(t, optimum, best.Score, 1e-9)
	require.NoError(t, CheckPermutation(best.Individual.(*Permutation).Order))
	for _, ind := range env.Population().Members() {
		require.NoError(t, ind.Validate())
	}
}

func TestKeepBestPopulationBestIsMonotone(t *testing.T) {
	d, _ := pentagon()
	cfg := tspConfig()
	cfg.Mutator.Prob = 0.9
	cfg.Population.ImmigrationRate = 0.05
	require.True(t, cfg.Phases.Mutation)
	rec := &recorder{}
	env, err := NewEnvironment(cfg, TourLength(d), WithLogger(logr.Discard()), WithReporter(rec))
	require.NoError(t, err)
	require.NoError(t, env.Run(context.Background()))

	for i := 1; i < len(rec.reports); i++ {
		assert.LessOrEqual(t, rec.reports[i].PopBest, rec.reports[i-1].PopBest, "generation %d", i)
	}
}

func TestFiveCityTourWithSwapMutation(t *testing.T) {
	d, optimum := pentagon()
	cfg := tspConfig()
	cfg.Evolution.MaxGen = 100
	cfg.Selector.Kind = "tournament"
	cfg.Selector.TournamentSize = 3
	cfg.Mutator.PermutationOps = []string{"swap"}
	cfg.Mutator.Prob = 0.3
	rec := &recorder{}
	env, err := NewEnvironment(cfg, TourLength(d), WithLogger(logr.Discard()), WithReporter(rec))
	require.NoError(t, err)
	require.NoError(t, env.Run(context.Background()))

	require.Len(t, rec.reports, 101)
	for i := 1; i < len(rec.reports); i++ {
		assert.LessOrEqual(t, rec.reports[i].PopBest, rec.reports[i-1].PopBest, "population best, generation %d", i)
		assert.LessOrEqual(t, rec.reports[i].EliteBest, rec.reports[i-1].EliteBest, "elite best, generation %d", i)
	}
	last := rec.reports[len(rec.reports)-1]
	assert.InDelta(t, optimum, last.PopBest, 1e-9)
	assert.InDelta(t, optimum, last.EliteBest, 1e-9)
}

func TestEnvironmentRejectsIncompatibleCrosser(t *testing.T) {
	cfg := tspConfig()
	cfg.Crosser.Kind = "multipoint"
	_, err := NewEnvironment(cfg, TourLength(nil), WithLogger(logr.Discard()))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "crosser.kind", cfgErr.Field)
}

func TestEnvironmentStopsOnCancelledContext(t *testing.T) {
	d, _ := pentagon()
	rec := &recorder{}
	env, err := NewEnvironment(tspConfig(), TourLength(d), WithLogger(logr.Discard()), WithReporter(rec))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = env.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Finished, env.State())
	assert.Equal(t, 0, env.Generation())
	assert.Equal(t, 1, rec.finished)
	assert.Error(t, env.Run(context.Background()))
}

func TestEnvironmentDisabledPhases(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Evolution.MaxGen = 3
	cfg.Population.InitSize = 10
	cfg.Phases = PhasesConfig{Evaluation: true}
	ev, err := ExpressionEvaluator("x0 + x1")
	require.NoError(t, err)
	env, err := NewEnvironment(cfg, ev, WithLogger(logr.Discard()))
	require.NoError(t, err)

	require.NoError(t, env.Step(context.Background()))
	before := ids(env.Population().Members())
	require.NoError(t, env.Run(context.Background()))
	assert.Equal(t, before, ids(env.Population().Members()))
	rep := env.Report()
	assert.NotContains(t, rep.Phases, "selection")
	assert.Contains(t, rep.Phases, "evaluation")
	assert.False(t, rep.HasElite)
}

func TestEvaluatorFailuresNeverAbortRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Evolution.MaxGen = 5
	cfg.Population.InitSize = 20
	ev := EvaluatorFunc(func(ind Individual) (float64, error) {
		if ind.Base().ID%3 == 0 {
			return 0, errors.New("odd genome")
		}
		return Sum(ind.(*Chain).Values), nil
	})
	env, err := NewEnvironment(cfg, ev, WithLogger(logr.Discard()))
	require.NoError(t, err)
	require.NoError(t, env.Run(context.Background()))
	assert.Equal(t, 5, env.Generation())
}

func TestUpdateParameterAppliesNextGeneration(t *testing.T) {
	d, _ := pentagon()
	env, err := NewEnvironment(tspConfig(), TourLength(d), WithLogger(logr.Discard()))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, env.Step(ctx))

	require.NoError(t, env.UpdateParameter("mutation_prob", "0.9"))
	assert.Equal(t, 0.4, env.Config().Mutator.Prob)
	assert.Len(t, env.Pending(), 1)

	require.NoError(t, env.Step(ctx))
	assert.Equal(t, 0.9, env.Config().Mutator.Prob)
	assert.Empty(t, env.Pending())
	assert.Equal(t, []ParamChange{{Generation: 2, Name: "mutation_prob", Value: "0.9"}}, env.Timeline())

	var cfgErr *ConfigError
	assert.ErrorAs(t, env.UpdateParameter("mutation_prob", "7"), &cfgErr)
	assert.ErrorAs(t, env.UpdateParameter("genome", "chain"), &cfgErr)
}

type snapshot struct {
	ID      int
	Order   []int
	Fitness float64
	Status  Status
}

func snapshotOf(inds []Individual) []snapshot {
	out := make([]snapshot, len(inds))
	for i, ind := range inds {
		m := ind.Base()
		out[i] = snapshot{ID: m.ID, Order: ind.(*Permutation).Order, Fitness: m.Fitness, Status: m.Status}
	}
	return out
}

func TestResumeContinuesIdentically(t *testing.T) {
	d, _ := pentagon()
	ctx := context.Background()
	cfg := tspConfig()
	cfg.Evolution.MaxGen = 12

	env, err := NewEnvironment(cfg, TourLength(d), WithLogger(logr.Discard()))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, env.Step(ctx))
	}
	require.NoError(t, env.UpdateParameter("cross_prob", "0.8"))
	rec, err := env.Record()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeRecord(&buf, rec))
	decoded, err := DecodeRecord(&buf)
	require.NoError(t, err)

	require.NoError(t, env.Run(ctx))
	resumed, err := Resume(decoded, TourLength(d), false, WithLogger(logr.Discard()))
	require.NoError(t, err)
	assert.Equal(t, 5, resumed.Generation())
	assert.Equal(t, env.RunID(), resumed.RunID())
	require.NoError(t, resumed.Run(ctx))

	if diff := cmp.Diff(snapshotOf(env.Population().Members()), snapshotOf(resumed.Population().Members())); diff != "" {
		t.Errorf("resumed population mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, env.Elite().Scores(), resumed.Elite().Scores())
	assert.Equal(t, env.Timeline(), resumed.Timeline())
}

func TestResumeFromBeginningReplaysTimeline(t *testing.T) {
	d, _ := pentagon()
	ctx := context.Background()
	cfg := tspConfig()
	cfg.Evolution.MaxGen = 8

	env, err := NewEnvironment(cfg, TourLength(d), WithLogger(logr.Discard()))
	require.NoError(t, err)
	require.NoError(t, env.Step(ctx))
	require.NoError(t, env.Step(ctx))
	require.NoError(t, env.UpdateParameter("mutation_prob", "0.7"))
	require.NoError(t, env.Run(ctx))
	rec, err := env.Record()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "run.ckpt")
	require.NoError(t, SaveCheckpoint(path, rec))
	loaded, err := LoadCheckpoint(path)
	require.NoError(t, err)

	replay, err := Resume(loaded, TourLength(d), true, WithLogger(logr.Discard()))
	require.NoError(t, err)
	assert.Equal(t, NotStarted, replay.State())
	require.NoError(t, replay.Run(ctx))

	if diff := cmp.Diff(snapshotOf(env.Population().Members()), snapshotOf(replay.Population().Members())); diff != "" {
		t.Errorf("replayed population mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, env.Timeline(), replay.Timeline())
	assert.Equal(t, 0.4, loaded.Config.Mutator.Prob)
}

// memorySink keeps records in a map.
type memorySink struct {
	records map[string]*Record
	saves   int
}

func (m *memorySink) SaveRecord(_ context.Context, rec *Record) error {
	m.records[rec.RunID] = rec
	m.saves++
	return nil
}

func (m *memorySink) LoadRecord(_ context.Context, runID string) (*Record, error) {
	rec, ok := m.records[runID]
	if !ok {
		return nil, errors.New("not found")
	}
	return rec, nil
}

func TestRecordSinkReceivesPeriodicRecords(t *testing.T) {
	d, _ := pentagon()
	cfg := tspConfig()
	cfg.Evolution.MaxGen = 6
	cfg.Evolution.RecordEvery = 2
	sink := &memorySink{records: map[string]*Record{}}
	env, err := NewEnvironment(cfg, TourLength(d), WithLogger(logr.Discard()), WithRecordSink(sink))
	require.NoError(t, err)
	require.NoError(t, env.Run(context.Background()))

	// Generations 0, 2, 4 and 6, then the final record.
	assert.Equal(t, 5, sink.saves)
	rec, err := sink.LoadRecord(context.Background(), env.RunID())
	require.NoError(t, err)
	assert.Equal(t, 6, rec.Generation)
	assert.Len(t, rec.Population, env.Population().Len())
}
