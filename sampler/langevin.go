package sampler

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/probgo/chamber/model"
	"github.com/probgo/chamber/rand"
)

// Langevin is a Metropolis-adjusted Langevin sampler (MALA): the proposal
// drifts along the gradient of the log-density before adding noise, and the
// acceptance ratio corrects for the asymmetric proposal.
type Langevin struct {
	StepSize float64
}

// NewLangevin creates a MALA sampler with the given step size
func NewLangevin(stepSize float64) (*Langevin, error) {
	if stepSize <= 0.0 {
		return nil, errors.Errorf("Invalid step size %v", stepSize)
	}
	return &Langevin{StepSize: stepSize}, nil
}

// Name implements Sampler
func (s *Langevin) Name() string {
	return "langevin"
}

// Requires implements Sampler
func (s *Langevin) Requires() model.CapabilitySet {
	return model.NewCapabilitySet(model.Gradient)
}

type malaState struct {
	haveLP bool
	lastLP float64
}

// Init implements Sampler
func (s *Langevin) Init(m *model.Model) (State, error) {
	return &malaState{}, nil
}

// Propose implements Sampler
func (s *Langevin) Propose(cur []float64, st State, m *model.Model, gen *rand.Generator) ([]float64, State, StepDiag, error) {
	ms, ok := st.(*malaState)
	if !ok {
		return nil, st, StepDiag{}, errors.Errorf("Foreign state %T passed to %s", st, s.Name())
	}

	if !ms.haveLP {
		lp := m.LogDensity(cur)
		if err := checkLogDensity(lp, cur); err != nil {
			return nil, ms, StepDiag{}, err
		}
		ms.lastLP = lp
		ms.haveLP = true
	}

	eps := s.StepSize
	eps2 := eps * eps

	g, err := evalGradient(m, cur)
	if err != nil {
		return nil, ms, StepDiag{}, err
	}

	meanFwd := make([]float64, len(cur))
	floats.AddScaledTo(meanFwd, cur, 0.5*eps2, g)

	prop := make([]float64, len(cur))
	for i, mu := range meanFwd {
		prop[i] = mu + eps*gen.NormFloat64()
	}

	propLP := m.LogDensity(prop)
	if err := checkLogDensity(propLP, prop); err != nil {
		return nil, ms, StepDiag{}, err
	}

	accepted := false
	if !math.IsInf(propLP, -1) {
		gp, err := evalGradient(m, prop)
		if err != nil {
			return nil, ms, StepDiag{}, err
		}

		meanBack := make([]float64, len(prop))
		floats.AddScaledTo(meanBack, prop, 0.5*eps2, gp)

		dFwd := floats.Distance(prop, meanFwd, 2)
		dBack := floats.Distance(cur, meanBack, 2)
		logqFwd := -dFwd * dFwd / (2.0 * eps2)
		logqBack := -dBack * dBack / (2.0 * eps2)

		if lr := propLP + logqBack - ms.lastLP - logqFwd; lr >= 0.0 || gen.Float64() < math.Exp(lr) {
			accepted = true
		}
	}

	next := cur
	if accepted {
		next = prop
		ms.lastLP = propLP
	}

	diag := StepDiag{Accepted: accepted, LogDensity: ms.lastLP, Weight: 1.0}
	return next, ms, diag, nil
}
