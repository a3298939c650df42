package neat

import (
	"fmt"
	"math"
	"sort"

	"github.com/VinCheetah/Evolution/evo"
)

// AggregationFunc combines the weighted inputs of a node.
type AggregationFunc func(inputs []float64) float64

// AggregationFunctions maps the names accepted in aggregation_options to
// functions. Every function returns 0 for no inputs.
var AggregationFunctions = map[string]AggregationFunc{
	"sum":     evo.Sum,
	"product": Product,
	"min":     nonEmpty(evo.MinFloat),
	"max":     nonEmpty(evo.MaxFloat),
	"mean":    evo.Mean,
	"median":  nonEmpty(evo.Median),
	"maxabs":  MaxAbs,
}

// GetAggregation retrieves an aggregation function by name.
func GetAggregation(name string) (AggregationFunc, error) {
	if fn, ok := AggregationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown aggregation function: %s", name)
}

// Aggregations lists the registered aggregation names.
func Aggregations() []string {
	names := make([]string, 0, len(AggregationFunctions))
	for name := range AggregationFunctions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func nonEmpty(fn AggregationFunc) AggregationFunc {
	return func(inputs []float64) float64 {
		if len(inputs) == 0 {
			return 0
		}
		return fn(inputs)
	}
}

// Product multiplies the inputs.
func Product(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0
	}
	p := 1.0
	for _, v := range inputs {
		p *= v
	}
	return p
}

// MaxAbs returns the input with the largest magnitude.
func MaxAbs(inputs []float64) float64 {
	best := 0.0
	for _, v := range inputs {
		if math.Abs(v) > math.Abs(best) {
			best = v
		}
	}
	return best
}
