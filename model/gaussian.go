package model

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// NewGaussian returns a multivariate normal target with mean mu and
// covariance sigma, carrying the full derivative stack: exact gradient, a
// constant metric tensor (the precision matrix), and the (zero) tensor
// derivative. It starts at the mean. Handy as a demo/benchmark target that
// can exercise every sampler kind.
func NewGaussian(mu []float64, sigma *mat.SymDense) (*Model, error) {
	dim := len(mu)
	if dim < 1 {
		return nil, errors.Errorf("Gaussian requires at least 1 dimension")
	}
	if r, _ := sigma.Dims(); r != dim {
		return nil, errors.Errorf("Gaussian mean dim %d != covariance dim %d", dim, r)
	}

	dist, ok := distmv.NewNormal(mu, sigma, nil)
	if !ok {
		return nil, errors.Errorf("Gaussian covariance is not positive definite")
	}

	var chol mat.Cholesky
	if !chol.Factorize(sigma) {
		return nil, errors.Errorf("Could not factorize Gaussian covariance")
	}

	prec := mat.NewSymDense(dim, nil)
	if err := chol.InverseTo(prec); err != nil {
		return nil, errors.Wrap(err, "Could not invert Gaussian covariance")
	}

	grad := func(x []float64) []float64 {
		g := make([]float64, dim)
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				g[i] -= prec.At(i, j) * (x[j] - mu[j])
			}
		}
		return g
	}

	tensor := func(x []float64) *mat.SymDense {
		cp := mat.NewSymDense(dim, nil)
		cp.CopySym(prec)
		return cp
	}

	// Constant metric, so every partial derivative is zero
	deriv := func(x []float64) []*mat.SymDense {
		ds := make([]*mat.SymDense, dim)
		for k := range ds {
			ds[k] = mat.NewSymDense(dim, nil)
		}
		return ds
	}

	return FromDistribution(dist, mu,
		WithName(fmt.Sprintf("gaussian-%dd", dim)),
		WithGradient(grad),
		WithTensor(tensor),
		WithTensorDeriv(deriv),
	)
}

// Tempered returns a copy of the target with its log-density (and any
// derivative evaluators) scaled by beta. For 0 < beta < 1 this flattens the
// target, which is how SMC bridge sequences are usually built.
func Tempered(target *Model, beta float64) (*Model, error) {
	if err := target.Check(); err != nil {
		return nil, errors.Wrap(err, "Cannot temper invalid model")
	}
	if beta <= 0.0 {
		return nil, errors.Errorf("Invalid temperature %v for model %s", beta, target.Name)
	}

	logDensity := target.LogDensity
	f := func(x []float64) float64 {
		return beta * logDensity(x)
	}

	opts := []Option{WithName(fmt.Sprintf("%s@%.4g", target.Name, beta))}

	if g := target.Gradient; g != nil {
		opts = append(opts, WithGradient(func(x []float64) []float64 {
			grad := g(x)
			for i := range grad {
				grad[i] *= beta
			}
			return grad
		}))
	}

	if tf := target.Tensor; tf != nil {
		// Positive scaling preserves positive definiteness. Scale into a
		// fresh matrix in case the wrapped evaluator returns shared storage.
		opts = append(opts, WithTensor(func(x []float64) *mat.SymDense {
			ten := tf(x)
			n, _ := ten.Dims()
			scaled := mat.NewSymDense(n, nil)
			scaled.ScaleSym(beta, ten)
			return scaled
		}))
	}

	if df := target.TensorDeriv; df != nil {
		opts = append(opts, WithTensorDeriv(func(x []float64) []*mat.SymDense {
			ds := df(x)
			scaled := make([]*mat.SymDense, len(ds))
			for k, d := range ds {
				n, _ := d.Dims()
				scaled[k] = mat.NewSymDense(n, nil)
				scaled[k].ScaleSym(beta, d)
			}
			return scaled
		}))
	}

	return FromFunc(f, target.Init, opts...)
}

// TemperedLadder builds one bridge model per temperature. Temperatures are
// expected to increase toward 1 so that each bridge is closer to the target
// than the last.
func TemperedLadder(target *Model, betas []float64) ([]*Model, error) {
	if len(betas) < 1 {
		return nil, errors.Errorf("At least one temperature is required")
	}

	bridges := make([]*Model, len(betas))
	for i, beta := range betas {
		b, err := Tempered(target, beta)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not build bridge %d", i)
		}
		bridges[i] = b
	}

	return bridges, nil
}
