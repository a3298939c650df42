package evo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// State is the lifecycle stage of an Environment.
type State int

const (
	NotStarted State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures an Environment.
type Option func(*Environment)

// WithLogger sets the logger of the environment and every component. The
// default is klog.Background().
func WithLogger(log logr.Logger) Option {
	return func(e *Environment) { e.log = log }
}

// WithReporter adds a reporter.
func WithReporter(r Reporter) Option {
	return func(e *Environment) { e.reporters.Add(r) }
}

// WithRecordSink saves a record every evolution.record_every generations
// and once more when the run finishes.
func WithRecordSink(sink RecordSink) Option {
	return func(e *Environment) { e.sink = sink }
}

// Environment owns a run: the population, the phase components and the
// loop that drives them.
type Environment struct {
	cfg     *Config
	initial *Config
	rt      *Runtime
	comps   *Components

	pop        *Population
	selector   *Selector
	crosser    *Crosser
	mutator    *Mutator
	evaluation *Evaluation
	elite      *Elite

	reporters ReporterSet
	sink      RecordSink
	log       logr.Logger

	runID      string
	state      State
	generation int
	started    time.Time
	elapsed    time.Duration
	pending    []ParamChange
	timeline   []ParamChange
	last       Report
}

// NewEnvironment validates cfg, assembles the components of the configured
// genome kind and returns an environment ready to Run. cfg is copied.
func NewEnvironment(cfg *Config, ev Evaluator, opts ...Option) (*Environment, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if ev == nil {
		return nil, errors.New("evo: nil evaluator")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Environment{
		cfg:     cfg.Clone(),
		initial: cfg.Clone(),
		log:     klog.Background(),
		runID:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithName("evo")

	e.rt = &Runtime{
		Config: e.cfg,
		RNG:    NewRNG(e.cfg.Evolution.Seed),
		IDs:    NewIDCounter(0),
		Log:    e.log,
	}
	comps, err := assemble(e.rt)
	if err != nil {
		return nil, err
	}
	e.comps = comps

	order := e.cfg.SortOrder()
	e.selector, err = NewSelectorFromConfig(&e.cfg.Selector, e.rt.RNG, e.log)
	if err != nil {
		return nil, err
	}
	e.pop = NewPopulation(&e.cfg.Population, order, comps.Factory, e.rt.RNG, e.log)
	e.crosser = NewCrosser(&e.cfg.Crosser, comps.Crossover, e.rt.RNG, e.log)
	e.mutator = NewMutator(&e.cfg.Mutator, comps.Mutation, e.rt.IDs, e.rt.RNG, e.log)
	e.evaluation = NewEvaluation(ev, seconds(e.cfg.Evolution.EvalTimeout), e.log)
	e.elite = NewElite(&e.cfg.Elite, order, e.cfg.Evolution.CheckInvariants, e.log)
	return e, nil
}

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

func (e *Environment) RunID() string                  { return e.runID }
func (e *Environment) State() State                   { return e.state }
func (e *Environment) Generation() int                { return e.generation }
func (e *Environment) Population() *Population        { return e.pop }
func (e *Environment) Elite() *Elite                  { return e.elite }
func (e *Environment) Components() *Components        { return e.comps }
func (e *Environment) Report() Report                 { return e.last }
func (e *Environment) Config() *Config                { return e.cfg.Clone() }
func (e *Environment) Timeline() []ParamChange        { return append([]ParamChange(nil), e.timeline...) }
func (e *Environment) Pending() []ParamChange         { return append([]ParamChange(nil), e.pending...) }
func (e *Environment) SelectionStats() SelectionStats { return e.selector.Stats() }

// Elapsed returns the run time, including time spent before a resume.
func (e *Environment) Elapsed() time.Duration {
	if e.state == Running {
		return e.elapsed + time.Since(e.started)
	}
	return e.elapsed
}

// Run evolves until max_gen generations are done, the timeout elapses or
// ctx is cancelled. ctx is checked between generations only; a cancelled
// run finishes normally and Run returns ctx.Err().
func (e *Environment) Run(ctx context.Context) error {
	if e.state == Finished {
		return errors.New("evo: environment already finished")
	}
	if e.state == NotStarted {
		if err := e.start(ctx); err != nil {
			return err
		}
	}
	var stopErr error
	for !e.done() {
		if err := ctx.Err(); err != nil {
			e.log.Info("evolution interrupted", "generation", e.generation, "reason", err)
			stopErr = err
			break
		}
		if err := e.step(ctx); err != nil {
			e.finish(ctx)
			return err
		}
	}
	e.finish(ctx)
	return stopErr
}

// Step runs a single generation, starting the run first if needed.
func (e *Environment) Step(ctx context.Context) error {
	switch e.state {
	case Finished:
		return errors.New("evo: environment already finished")
	case NotStarted:
		if err := e.start(ctx); err != nil {
			return err
		}
	}
	return e.step(ctx)
}

func (e *Environment) done() bool {
	if e.generation >= e.cfg.Evolution.MaxGen {
		return true
	}
	timeout := e.cfg.Evolution.Timeout
	return timeout > 0 && e.Elapsed() > seconds(timeout)
}

// start creates and evaluates the first population.
func (e *Environment) start(ctx context.Context) error {
	e.state = Running
	e.started = time.Now()
	e.reporters.StartEvolution(e.cfg)
	e.log.V(2).Info("starting evolution", "runID", e.runID, "genome", e.cfg.Evolution.Genome)

	rep := Report{Generation: 0, Phases: make(map[string]time.Duration)}
	err := e.phase(&rep, "init", true, func() error {
		e.pop.Populate()
		return nil
	})
	if err == nil {
		err = e.phase(&rep, "evaluation", e.cfg.Phases.Evaluation, func() error {
			stats := e.evaluation.Apply(e.pop)
			rep.Evaluated, rep.Failed = stats.Evaluated, stats.Failed
			return nil
		})
	}
	if err == nil {
		err = e.phase(&rep, "elite", e.cfg.Phases.Elite, func() error { return e.elite.Update(e.pop) })
	}
	if err != nil {
		e.state = Finished
		return err
	}
	e.endGeneration(ctx, &rep)
	return nil
}

// step runs one generation: select, speciate, migrate, cross, mutate,
// evaluate and update the elite.
func (e *Environment) step(ctx context.Context) error {
	e.generation++
	e.pop.SetGeneration(e.generation)
	if err := e.applyPending(); err != nil {
		return err
	}
	ph := e.cfg.Phases
	rep := Report{Generation: e.generation, Phases: make(map[string]time.Duration)}
	phases := []struct {
		name    string
		enabled bool
		run     func() error
	}{
		{"selection", ph.Selection, func() error {
			selected := e.selector.Select(e.pop)
			e.pop.Update(selected)
			rep.Selected = len(selected)
			return nil
		}},
		{"speciation", e.comps.Speciator != nil && e.cfg.Speciation.Enabled, func() error {
			return e.comps.Speciator.Speciate(e.pop, e.generation)
		}},
		{"migration", ph.Migration, func() error {
			rep.Immigrated = e.pop.Migrate()
			return nil
		}},
		{"crossover", ph.Crossover, func() (err error) {
			rep.Crossed, err = e.crosser.Apply(e.pop)
			return err
		}},
		{"mutation", ph.Mutation, func() error {
			stats, err := e.mutator.Apply(e.pop)
			rep.Mutated, rep.Mutations = stats.Individuals, stats.Mutations
			return err
		}},
		{"evaluation", ph.Evaluation, func() error {
			stats := e.evaluation.Apply(e.pop)
			rep.Evaluated, rep.Failed = stats.Evaluated, stats.Failed
			return nil
		}},
		{"elite", ph.Elite, func() error { return e.elite.Update(e.pop) }},
		{"invariants", e.cfg.Evolution.CheckInvariants, e.checkInvariants},
	}
	for _, p := range phases {
		if err := e.phase(&rep, p.name, p.enabled, p.run); err != nil {
			return err
		}
	}
	e.endGeneration(ctx, &rep)
	return nil
}

func (e *Environment) phase(rep *Report, name string, enabled bool, run func() error) error {
	if !enabled {
		return nil
	}
	start := time.Now()
	err := run()
	rep.Phases[name] += time.Since(start)
	if err != nil {
		return fmt.Errorf("%s phase of generation %d: %w", name, e.generation, err)
	}
	return nil
}

// checkInvariants validates every member. Selected copies share their
// source's id, so ids are not required to be unique.
func (e *Environment) checkInvariants() error {
	for _, ind := range e.pop.members {
		if err := ind.Validate(); err != nil {
			return fmt.Errorf("individual %d: %w", ind.Base().ID, err)
		}
	}
	return nil
}

// endGeneration fills the statistics of rep, hands it to the reporters and
// saves a record when one is due.
func (e *Environment) endGeneration(ctx context.Context, rep *Report) {
	rep.Elapsed = e.Elapsed()
	rep.Size = e.pop.Len()
	rep.PopMean = e.pop.Mean()
	rep.PopStdev = e.pop.Stdev()
	rep.PopBest = e.pop.order.Worst()
	if best, err := e.pop.Best(nil, false); err == nil {
		rep.PopBest = best.Base().Fitness
	}
	if best, ok := e.elite.Best(); ok {
		rep.EliteBest, rep.HasElite = best.Score, true
	}
	if e.comps.Speciator != nil && e.cfg.Speciation.Enabled {
		rep.Species = e.comps.Speciator.Summary()
		rep.Threshold = e.comps.Speciator.Threshold()
	}
	e.last = *rep
	e.reporters.EndGeneration(*rep)

	every := e.cfg.Evolution.RecordEvery
	if e.sink != nil && every > 0 && e.generation%every == 0 {
		e.save(ctx)
	}
}

func (e *Environment) finish(ctx context.Context) {
	if e.state != Running {
		return
	}
	e.elapsed += time.Since(e.started)
	e.state = Finished
	e.last.Elapsed = e.elapsed
	if e.sink != nil {
		e.save(ctx)
	}
	e.reporters.EndEvolution(e.last)
}

func (e *Environment) save(ctx context.Context) {
	rec, err := e.Record()
	if err == nil {
		err = e.sink.SaveRecord(ctx, rec)
	}
	if err != nil {
		e.log.Error(err, "failed to save record", "generation", e.generation)
	}
}

// UpdateParameter queues a parameter change for the start of the next
// generation. The value is validated immediately; see Parameters for the
// accepted names.
func (e *Environment) UpdateParameter(name, value string) error {
	if err := applyParameter(e.cfg.Clone(), name, value); err != nil {
		return err
	}
	e.pending = append(e.pending, ParamChange{Generation: e.generation + 1, Name: name, Value: value})
	return nil
}

// applyPending applies the queued changes due at the current generation.
func (e *Environment) applyPending() error {
	rest := e.pending[:0]
	for _, ch := range e.pending {
		if ch.Generation > e.generation {
			rest = append(rest, ch)
			continue
		}
		if err := applyParameter(e.cfg, ch.Name, ch.Value); err != nil {
			return fmt.Errorf("parameter change at generation %d: %w", ch.Generation, err)
		}
		ch.Generation = e.generation
		e.timeline = append(e.timeline, ch)
		e.log.V(2).Info("parameter updated", "name", ch.Name, "value", ch.Value, "generation", e.generation)
	}
	e.pending = rest
	return nil
}

// Record captures everything needed to continue the run later: the
// initial configuration, the parameter timeline, the random state and
// the individuals.
func (e *Environment) Record() (*Record, error) {
	state, err := e.rt.RNG.State()
	if err != nil {
		return nil, err
	}
	rec := &Record{
		RunID:          e.runID,
		SavedAt:        time.Now(),
		Config:         *e.initial.Clone(),
		Seed:           e.rt.RNG.Seed(),
		RNGState:       state,
		Generation:     e.generation,
		Elapsed:        e.Elapsed(),
		NextID:         e.rt.IDs.Peek(),
		Timeline:       append(e.Timeline(), e.pending...),
		ComponentState: make(map[string][]byte, len(e.comps.State)),
	}
	for _, ind := range e.pop.members {
		rec.Population = append(rec.Population, recordOf(ind))
	}
	for _, en := range e.elite.Entries() {
		rec.Elite = append(rec.Elite, recordOf(en.Individual))
	}
	for _, s := range e.comps.State {
		b, err := s.MarshalState()
		if err != nil {
			return nil, fmt.Errorf("record %s state: %w", s.StateKey(), err)
		}
		rec.ComponentState[s.StateKey()] = b
	}
	return rec, nil
}

// Resume rebuilds an environment from a record. With fromBeginning the
// run restarts from generation 0 with the recorded seed and replays the
// parameter timeline; otherwise it continues from the recorded generation
// with the exact random state.
func Resume(rec *Record, ev Evaluator, fromBeginning bool, opts ...Option) (*Environment, error) {
	if rec == nil {
		return nil, errors.New("evo: nil record")
	}
	cfg := rec.Config.Clone()
	cfg.Evolution.Seed = rec.Seed
	e, err := NewEnvironment(cfg, ev, opts...)
	if err != nil {
		return nil, fmt.Errorf("resume run %s: %w", rec.RunID, err)
	}
	e.runID = rec.RunID
	if fromBeginning {
		e.pending = append([]ParamChange(nil), rec.Timeline...)
		return e, nil
	}

	for _, ch := range rec.Timeline {
		if ch.Generation > rec.Generation {
			e.pending = append(e.pending, ch)
			continue
		}
		if err := applyParameter(e.cfg, ch.Name, ch.Value); err != nil {
			return nil, fmt.Errorf("resume run %s: %w", rec.RunID, err)
		}
		e.timeline = append(e.timeline, ch)
	}

	rebuild := func(records []IndividualRecord) ([]Individual, error) {
		out := make([]Individual, 0, len(records))
		for _, r := range records {
			ind, err := e.comps.Factory.FromData(r.Data, r.Meta.Origin)
			if err != nil {
				return nil, fmt.Errorf("rebuild individual %d: %w", r.Meta.ID, err)
			}
			*ind.Base() = r.Meta.Clone()
			out = append(out, ind)
		}
		return out, nil
	}
	members, err := rebuild(rec.Population)
	if err != nil {
		return nil, fmt.Errorf("resume run %s: %w", rec.RunID, err)
	}
	archived, err := rebuild(rec.Elite)
	if err != nil {
		return nil, fmt.Errorf("resume run %s: %w", rec.RunID, err)
	}
	for _, s := range e.comps.State {
		data, ok := rec.ComponentState[s.StateKey()]
		if !ok {
			continue
		}
		if err := s.RestoreState(data); err != nil {
			return nil, fmt.Errorf("resume run %s: restore %s: %w", rec.RunID, s.StateKey(), err)
		}
	}
	e.rt.IDs.Restore(rec.NextID)
	if err := e.rt.RNG.Restore(rec.RNGState); err != nil {
		return nil, fmt.Errorf("resume run %s: %w", rec.RunID, err)
	}

	e.pop.Restore(members)
	e.pop.SetGeneration(rec.Generation)
	e.elite.Restore(archived)
	e.generation = rec.Generation
	e.elapsed = rec.Elapsed
	e.state = Running
	e.started = time.Now()
	e.reporters.StartEvolution(e.cfg)
	e.log.V(2).Info("resumed evolution", "runID", e.runID, "generation", e.generation)
	return e, nil
}
