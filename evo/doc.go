// Package evo provides a configurable evolutionary-computation engine.
//
// An Environment evolves a Population of individuals generation by
// generation. Each generation runs the enabled phases in order: selection,
// speciation (NEAT only), migration, crossover, mutation, evaluation and
// the update of the Elite archive. Three genome kinds are built in (chain,
// binary and permutation); package neat registers a fourth.
//
// Fitness is minimised by default. Set order = descending in the
// [Evolution] section to maximise it.
//
// Basic usage:
//
//	cfg, err := evo.LoadConfig("path/to/config.ini")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	env, err := evo.NewEnvironment(cfg, evo.TourLength(distances))
//	if err != nil {
//		log.Fatalf("Error creating environment: %v", err)
//	}
//
//	if err := env.Run(ctx); err != nil {
//		log.Fatalf("Error running evolution: %v", err)
//	}
//	best, _ := env.Elite().Best()
//	fmt.Println(best.Individual)
//
// A run can be captured with Environment.Record and continued later with
// Resume, either from the recorded generation or replayed from the start.
package evo
