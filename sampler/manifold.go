package sampler

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/probgo/chamber/model"
	"github.com/probgo/chamber/rand"
)

// ManifoldLangevin is a simplified manifold-adjusted Langevin sampler in the
// Girolami-Calderhead style. The model's metric tensor preconditions both
// the gradient drift and the proposal noise, and the tensor derivatives add
// the curvature drift terms, so this sampler requires the full capability
// ladder.
type ManifoldLangevin struct {
	StepSize float64
}

// NewManifoldLangevin creates a manifold Langevin sampler with the given
// step size.
func NewManifoldLangevin(stepSize float64) (*ManifoldLangevin, error) {
	if stepSize <= 0.0 {
		return nil, errors.Errorf("Invalid step size %v", stepSize)
	}
	return &ManifoldLangevin{StepSize: stepSize}, nil
}

// Name implements Sampler
func (s *ManifoldLangevin) Name() string {
	return "manifold-langevin"
}

// Requires implements Sampler
func (s *ManifoldLangevin) Requires() model.CapabilitySet {
	return model.NewCapabilitySet(model.Gradient, model.Tensor, model.TensorDerivative)
}

type manifoldState struct {
	haveLP bool
	lastLP float64
}

// Init implements Sampler
func (s *ManifoldLangevin) Init(m *model.Model) (State, error) {
	return &manifoldState{}, nil
}

// localGeometry bundles everything the proposal needs at one point: the
// metric tensor, a lower factor of its inverse for correlated noise, the
// drift-adjusted proposal mean, and the tensor log-determinant.
type localGeometry struct {
	ten    *mat.SymDense
	noise  *mat.TriDense
	mean   []float64
	logDet float64
}

func (s *ManifoldLangevin) geometryAt(m *model.Model, x []float64) (*localGeometry, error) {
	d := len(x)

	g, err := evalGradient(m, x)
	if err != nil {
		return nil, err
	}

	ten := m.Tensor(x)
	if r, _ := ten.Dims(); r != d {
		return nil, &DimensionError{What: "tensor", Want: d, Got: r}
	}

	var chol mat.Cholesky
	if !chol.Factorize(ten) {
		// Not positive definite - unusable as a metric
		return nil, &NumericalError{Step: -1, What: "tensor", Params: append([]float64(nil), x...)}
	}

	sigma := mat.NewSymDense(d, nil)
	if err := chol.InverseTo(sigma); err != nil {
		return nil, &NumericalError{Step: -1, What: "tensor", Params: append([]float64(nil), x...)}
	}

	dG := m.TensorDeriv(x)
	if len(dG) != d {
		return nil, &DimensionError{What: "tensor derivative", Want: d, Got: len(dG)}
	}

	eps2 := s.StepSize * s.StepSize

	mean := make([]float64, d)
	for i := 0; i < d; i++ {
		mean[i] = x[i]
		for j := 0; j < d; j++ {
			mean[i] += 0.5 * eps2 * sigma.At(i, j) * g[j]
		}
	}

	// Curvature drift from the tensor derivatives
	var sd, sds mat.Dense
	for k := 0; k < d; k++ {
		if r, _ := dG[k].Dims(); r != d {
			return nil, &DimensionError{What: "tensor derivative", Want: d, Got: r}
		}

		sd.Mul(sigma, dG[k])
		sds.Mul(&sd, sigma)

		tr := 0.0
		for i := 0; i < d; i++ {
			tr += sd.At(i, i)
		}

		for j := 0; j < d; j++ {
			mean[j] += -eps2*sds.At(j, k) + 0.5*eps2*sigma.At(j, k)*tr
		}
	}

	var cholS mat.Cholesky
	if !cholS.Factorize(sigma) {
		return nil, &NumericalError{Step: -1, What: "tensor", Params: append([]float64(nil), x...)}
	}
	noise := &mat.TriDense{}
	cholS.LTo(noise)

	return &localGeometry{
		ten:    ten,
		noise:  noise,
		mean:   mean,
		logDet: chol.LogDet(),
	}, nil
}

// logQ is the proposal log-density of y under the geometry at the source
// point. Terms constant across the acceptance ratio are dropped.
func (geo *localGeometry) logQ(y []float64, eps2 float64) float64 {
	quad := 0.0
	for i := range y {
		ri := y[i] - geo.mean[i]
		for j := range y {
			quad += ri * geo.ten.At(i, j) * (y[j] - geo.mean[j])
		}
	}
	return -0.5*quad/eps2 + 0.5*geo.logDet
}

// Propose implements Sampler
func (s *ManifoldLangevin) Propose(cur []float64, st State, m *model.Model, gen *rand.Generator) ([]float64, State, StepDiag, error) {
	ms, ok := st.(*manifoldState)
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

	d := len(cur)
	eps := s.StepSize
	eps2 := eps * eps

	geoX, err := s.geometryAt(m, cur)
	if err != nil {
		return nil, ms, StepDiag{}, err
	}

	u := mat.NewVecDense(d, nil)
	for i := 0; i < d; i++ {
		u.SetVec(i, gen.NormFloat64())
	}
	var w mat.VecDense
	w.MulVec(geoX.noise, u)

	prop := make([]float64, d)
	for i := 0; i < d; i++ {
		prop[i] = geoX.mean[i] + eps*w.AtVec(i)
	}

	propLP := m.LogDensity(prop)
	if err := checkLogDensity(propLP, prop); err != nil {
		return nil, ms, StepDiag{}, err
	}

	accepted := false
	if !math.IsInf(propLP, -1) {
		geoY, err := s.geometryAt(m, prop)
		if err != nil {
			return nil, ms, StepDiag{}, err
		}

		lr := propLP + geoY.logQ(cur, eps2) - ms.lastLP - geoX.logQ(prop, eps2)
		if lr >= 0.0 || gen.Float64() < math.Exp(lr) {
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
