package model

import (
	"github.com/pkg/errors"
)

// LogProber is the evaluation contract satisfied by probability distribution
// objects (e.g. gonum's distmv types).
type LogProber interface {
	LogProb(x []float64) float64
}

// Option configures a model under construction
type Option func(*Model)

// WithName sets the model name
func WithName(name string) Option {
	return func(m *Model) { m.Name = name }
}

// WithGradient attaches a gradient evaluator
func WithGradient(g GradientFunc) Option {
	return func(m *Model) { m.Gradient = g }
}

// WithTensor attaches a metric tensor evaluator
func WithTensor(t TensorFunc) Option {
	return func(m *Model) { m.Tensor = t }
}

// WithTensorDeriv attaches a tensor derivative evaluator
func WithTensorDeriv(d TensorDerivFunc) Option {
	return func(m *Model) { m.TensorDeriv = d }
}

// FromFunc builds a model from a log-density closure and a starting
// parameter vector. Whatever form a target arrives in (closure, distribution
// object, generated code), it is always normalized to a Model here so the
// engine never has to branch on the original form.
func FromFunc(f LogDensityFunc, init []float64, opts ...Option) (*Model, error) {
	m := &Model{
		Name:       "model",
		LogDensity: f,
		Init:       append([]float64(nil), init...),
	}

	for _, opt := range opts {
		opt(m)
	}

	if err := m.Check(); err != nil {
		return nil, errors.Wrap(err, "Could not build model")
	}

	return m, nil
}

// FromDistribution builds a model from any distribution object exposing
// LogProb. Derivative evaluators may still be attached via options.
func FromDistribution(d LogProber, init []float64, opts ...Option) (*Model, error) {
	if d == nil {
		return nil, errors.Errorf("No distribution supplied")
	}
	return FromFunc(d.LogProb, init, opts...)
}
