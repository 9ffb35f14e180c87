package sampler

import (
	"github.com/probgo/chamber/model"
	"github.com/probgo/chamber/rand"
)

// State is the algorithm-specific adaptive data a sampler carries between
// steps (step sizes, acceptance windows, cached evaluations). It is opaque
// to the runner: produced by Init, threaded through Propose, and stored on
// the chain across suspensions. The runner never inspects it.
type State interface{}

// StepDiag is the per-step diagnostic record, index-aligned with the kept
// samples. Weight is 1 except for sequential Monte Carlo runs.
type StepDiag struct {
	Accepted   bool
	LogDensity float64
	Weight     float64
}

// A Sampler produces one parameter proposal per step. Propose must be a
// deterministic function of its inputs - all randomness comes from the
// passed Generator - and may share storage between the input and returned
// state. Adaptive state changes happen only inside Propose.
type Sampler interface {
	Name() string
	Requires() model.CapabilitySet
	Init(m *model.Model) (State, error)
	Propose(cur []float64, st State, m *model.Model, gen *rand.Generator) ([]float64, State, StepDiag, error)
}
