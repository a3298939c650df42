// Package evolution is the root of a configurable evolutionary-computation
// engine with a NEAT neuroevolution mode.
//
// The engine lives in package evo: configuration, individuals, population,
// the selection, crossover, mutation and elite phases, and the Environment
// that drives them. Package evo/neat registers the "neat" genome kind with
// its innovation tracker, structural mutator, alignment crossover and
// species set, and evo/neat/nn turns a genome into a runnable
// feed-forward network. Records of a run can be kept in evo/store and
// generation reports exported through evo/metrics.
//
// Basic usage:
//
//	// Load configuration
//	cfg, err := evo.LoadConfig("examples/xor/xor.ini")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	// Create an environment with your fitness function
//	env, err := evo.NewEnvironment(cfg, evo.EvaluatorFunc(evalGenome))
//	if err != nil {
//		log.Fatalf("Error creating environment: %v", err)
//	}
//
//	// Run until max_gen generations are done
//	if err := env.Run(context.Background()); err != nil {
//		log.Fatalf("Error running evolution: %v", err)
//	}
//
//	best, _ := env.Elite().Best()
//	net, _ := nn.New(best.Individual.(*neat.Genome))
//	outputs, _ := net.Activate([]float64{1, 0})
//
// See examples/xor and examples/tsp for complete programs.
package evolution
