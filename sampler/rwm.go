package sampler

import (
	"math"

	"github.com/pkg/errors"

	"github.com/probgo/chamber/buffer"
	"github.com/probgo/chamber/model"
	"github.com/probgo/chamber/rand"
)

// checkLogDensity flags an unusable log-density value. NaN and +Inf abort
// the run; -Inf is a legitimate zero-density value (bounded support) and is
// handled by the caller as a rejection.
func checkLogDensity(lp float64, x []float64) error {
	if math.IsNaN(lp) || math.IsInf(lp, 1) {
		return &NumericalError{Step: -1, What: "log-density", Params: append([]float64(nil), x...)}
	}
	return nil
}

// evalGradient evaluates the model gradient at x with dimension and
// finiteness checks.
func evalGradient(m *model.Model, x []float64) ([]float64, error) {
	g := m.Gradient(x)
	if len(g) != len(x) {
		return nil, &DimensionError{What: "gradient", Want: len(x), Got: len(g)}
	}
	for _, v := range g {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &NumericalError{Step: -1, What: "gradient", Params: append([]float64(nil), x...)}
		}
	}
	return g, nil
}

// RandomWalk is an adaptive random-walk Metropolis sampler. It requires no
// model capabilities: an isotropic normal proposal around the current point,
// accepted on the plain Metropolis ratio. The proposal scale is tuned toward
// TargetRate from the acceptance rate over a recent window.
type RandomWalk struct {
	TargetRate  float64 // Desired acceptance rate
	AdaptWindow int     // Acceptance window size (and adaptation interval)
	InitScale   float64 // Starting proposal scale
}

// NewRandomWalk creates a random-walk sampler with the usual defaults
func NewRandomWalk() (*RandomWalk, error) {
	return &RandomWalk{
		TargetRate:  0.234,
		AdaptWindow: 50,
		InitScale:   1.0,
	}, nil
}

// Name implements Sampler
func (s *RandomWalk) Name() string {
	return "random-walk"
}

// Requires implements Sampler - a random walk only needs the log-density
func (s *RandomWalk) Requires() model.CapabilitySet {
	return model.NewCapabilitySet()
}

type rwState struct {
	scale  float64
	window *buffer.Window
	haveLP bool
	lastLP float64
}

// Init implements Sampler
func (s *RandomWalk) Init(m *model.Model) (State, error) {
	if s.InitScale <= 0.0 {
		return nil, errors.Errorf("Invalid proposal scale %v", s.InitScale)
	}
	if s.AdaptWindow < 1 {
		return nil, errors.Errorf("Invalid adaptation window %d", s.AdaptWindow)
	}

	return &rwState{
		scale:  s.InitScale,
		window: buffer.NewWindow(s.AdaptWindow),
	}, nil
}

// Propose implements Sampler
func (s *RandomWalk) Propose(cur []float64, st State, m *model.Model, gen *rand.Generator) ([]float64, State, StepDiag, error) {
	rs, ok := st.(*rwState)
	if !ok {
		return nil, st, StepDiag{}, errors.Errorf("Foreign state %T passed to %s", st, s.Name())
	}

	if !rs.haveLP {
		lp := m.LogDensity(cur)
		if err := checkLogDensity(lp, cur); err != nil {
			return nil, rs, StepDiag{}, err
		}
		rs.lastLP = lp
		rs.haveLP = true
	}

	prop := make([]float64, len(cur))
	for i, x := range cur {
		prop[i] = x + rs.scale*gen.NormFloat64()
	}

	propLP := m.LogDensity(prop)
	if err := checkLogDensity(propLP, prop); err != nil {
		return nil, rs, StepDiag{}, err
	}

	accepted := false
	if !math.IsInf(propLP, -1) {
		if lr := propLP - rs.lastLP; lr >= 0.0 || gen.Float64() < math.Exp(lr) {
			accepted = true
		}
	}

	next := cur
	if accepted {
		next = prop
		rs.lastLP = propLP
	}

	rs.window.Add(b2f(accepted))
	if rs.window.Full() && rs.window.TotalSeen%int64(s.AdaptWindow) == 0 {
		if rs.window.Mean() < s.TargetRate {
			rs.scale *= 0.9
		} else {
			rs.scale *= 1.1
		}
	}

	diag := StepDiag{Accepted: accepted, LogDensity: rs.lastLP, Weight: 1.0}
	return next, rs, diag, nil
}

func b2f(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
