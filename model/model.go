package model

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LogDensityFunc evaluates the (unnormalized) log-density at x
type LogDensityFunc func(x []float64) float64

// GradientFunc evaluates the gradient of the log-density at x
type GradientFunc func(x []float64) []float64

// TensorFunc evaluates a position-specific metric tensor at x
type TensorFunc func(x []float64) *mat.SymDense

// TensorDerivFunc evaluates the partial derivatives of the metric tensor at
// x: element k is the derivative of the tensor with respect to x[k].
type TensorDerivFunc func(x []float64) []*mat.SymDense

// Model wraps a log-density target with its optional derivative evaluators
// and a starting parameter vector. The evaluators are read-only during a run
// and may be shared between chains. Capability flags are always derived from
// which evaluators are present - they are never stored.
type Model struct {
	Name        string          // Model name used in errors and reports
	LogDensity  LogDensityFunc  // Required log-density evaluator
	Gradient    GradientFunc    // Optional gradient evaluator
	Tensor      TensorFunc      // Optional metric tensor evaluator
	TensorDeriv TensorDerivFunc // Optional tensor derivative evaluator
	Init        []float64       // Starting parameter vector - fixes the dimension
}

// Dim returns the parameter dimension of the model
func (m *Model) Dim() int {
	return len(m.Init)
}

// Capabilities returns the set of optional evaluators this model provides
func (m *Model) Capabilities() CapabilitySet {
	var cs CapabilitySet
	if m.Gradient != nil {
		cs |= CapabilitySet(Gradient)
	}
	if m.Tensor != nil {
		cs |= CapabilitySet(Tensor)
	}
	if m.TensorDeriv != nil {
		cs |= CapabilitySet(TensorDerivative)
	}
	return cs
}

// Check returns an error if there is a problem with the model. Each
// derivative level requires the one below it: a tensor derivative without a
// tensor (or a tensor without a gradient) is invalid.
func (m *Model) Check() error {
	if m.LogDensity == nil {
		return errors.Errorf("Model %s has no log-density", m.Name)
	}
	if len(m.Init) < 1 {
		return errors.Errorf("Model %s has an empty initial parameter vector", m.Name)
	}

	if m.Tensor != nil && m.Gradient == nil {
		return errors.Errorf("Model %s has a tensor but no gradient", m.Name)
	}
	if m.TensorDeriv != nil && m.Tensor == nil {
		return errors.Errorf("Model %s has a tensor derivative but no tensor", m.Name)
	}

	return nil
}
