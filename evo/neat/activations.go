package neat

import (
	"fmt"
	"math"
	"sort"
)

// ActivationFunc is a node activation function.
type ActivationFunc func(x float64) float64

// ActivationFunctions maps the names accepted in activation_options to
// functions.
var ActivationFunctions = map[string]ActivationFunc{
	"sigmoid":  Sigmoid,
	"tanh":     math.Tanh,
	"relu":     ReLU,
	"identity": Identity,
	"clamped":  Clamped,
	"gaussian": Gaussian,
	"abs":      math.Abs,
	"sin":      math.Sin,
	"inv":      Inv,
	"log":      Log,
	"exp":      Exp,
	"hat":      Hat,
	"square":   Square,
	"cube":     Cube,
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationFunc, error) {
	if fn, ok := ActivationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function: %s", name)
}

// Activations lists the registered activation names.
func Activations() []string {
	names := make([]string, 0, len(ActivationFunctions))
	for name := range ActivationFunctions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sigmoid is the logistic function with steepness 4.9.
func Sigmoid(x float64) float64 {
	x = clamp(4.9*x, -60, 60)
	return 1.0 / (1.0 + math.Exp(-x))
}

func ReLU(x float64) float64 { return math.Max(0, x) }

func Identity(x float64) float64 { return x }

// Clamped clamps x into [-1, 1].
func Clamped(x float64) float64 { return clamp(x, -1.0, 1.0) }

func Gaussian(x float64) float64 {
	x = clamp(x, -3.4, 3.4)
	return math.Exp(-5.0 * x * x)
}

// Inv returns 1/x, or 0 for x == 0.
func Inv(x float64) float64 {
	if x == 0 {
		return 0
	}
	return 1.0 / x
}

// Log is the natural logarithm of max(x, 1e-7).
func Log(x float64) float64 { return math.Log(math.Max(1e-7, x)) }

func Exp(x float64) float64 { return math.Exp(clamp(x, -60.0, 60.0)) }

// Hat is a triangular pulse centred on zero.
func Hat(x float64) float64 { return math.Max(0.0, 1.0-math.Abs(x)) }

func Square(x float64) float64 { return x * x }

func Cube(x float64) float64 { return x * x * x }
