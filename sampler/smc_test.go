package sampler

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/probgo/chamber/model"
)

func bridgeLadder(betas []float64) []*model.Model {
	bridges, err := model.TemperedLadder(stdNormal(2), betas)
	if err != nil {
		panic(fmt.Sprintf("%v", err))
	}
	return bridges
}

func TestSMCValidation(t *testing.T) {
	assert := assert.New(t)

	rwm, err := NewRandomWalk()
	assert.NoError(err)
	ctx := context.Background()
	bridges := bridgeLadder([]float64{0.5, 1.0})

	_, err = RunSMC(ctx, nil, rwm, SMCConfig{Population: 4, InnerSteps: 2, Seed: 1})
	assert.Error(err)

	_, err = RunSMC(ctx, bridges, rwm, SMCConfig{Population: 0, InnerSteps: 2, Seed: 1})
	assert.Error(err)

	var se *ScheduleError
	_, err = RunSMC(ctx, bridges, rwm, SMCConfig{Population: 4, InnerSteps: 0, Seed: 1})
	assert.True(errors.As(err, &se))

	// Capability gating happens before any particle moves
	flat, err := model.FromFunc(func(x []float64) float64 { return 0.0 }, []float64{0.0})
	assert.NoError(err)
	flatBridges, err := model.TemperedLadder(flat, []float64{0.5, 1.0})
	assert.NoError(err)

	mala, err := NewLangevin(0.5)
	assert.NoError(err)
	var ce *CapabilityError
	_, err = RunSMC(ctx, flatBridges, mala, SMCConfig{Population: 4, InnerSteps: 2, Seed: 1})
	assert.True(errors.As(err, &ce))
	assert.Equal([]model.Capability{model.Gradient}, ce.Missing)
}

func TestSMCWeightBookkeeping(t *testing.T) {
	assert := assert.New(t)

	rwm, err := NewRandomWalk()
	assert.NoError(err)

	const pop = 8
	bridges := bridgeLadder([]float64{0.5, 1.0})

	agg, err := RunSMC(context.Background(), bridges, rwm, SMCConfig{
		Population: pop,
		InnerSteps: 5,
		Seed:       42,
	})
	assert.NoError(err)

	// Exactly generations x population rows, diagnostics aligned
	assert.Len(agg.Samples, 2*pop)
	assert.Len(agg.Diags, 2*pop)
	assert.Equal(int64(2*pop), agg.StepCount)

	// Generation 0 carries untouched unit weights
	for i := 0; i < pop; i++ {
		assert.Equal(1.0, agg.Diags[i].Weight)
	}

	// Later weights are finite and non-negative; need not sum to 1
	for i := pop; i < 2*pop; i++ {
		w := agg.Diags[i].Weight
		assert.False(math.IsNaN(w) || math.IsInf(w, 0))
		assert.True(w >= 0.0)
	}

	for _, row := range agg.Samples {
		assert.Len(row, 2)
	}
}

func TestSMCDeterminism(t *testing.T) {
	assert := assert.New(t)

	rwm, err := NewRandomWalk()
	assert.NoError(err)

	cfg := SMCConfig{Population: 6, InnerSteps: 4, Seed: 9}

	a, err := RunSMC(context.Background(), bridgeLadder([]float64{0.25, 0.5, 1.0}), rwm, cfg)
	assert.NoError(err)
	b, err := RunSMC(context.Background(), bridgeLadder([]float64{0.25, 0.5, 1.0}), rwm, cfg)
	assert.NoError(err)

	assert.Equal(a.Samples, b.Samples)
	assert.Equal(a.Diags, b.Diags)
}

func TestSMCZeroDensityBridge(t *testing.T) {
	assert := assert.New(t)

	rwm, err := NewRandomWalk()
	assert.NoError(err)

	b0, err := model.FromFunc(func(x []float64) float64 {
		return -0.5 * x[0] * x[0]
	}, []float64{0.0}, model.WithName("wide"))
	assert.NoError(err)

	b1, err := model.FromFunc(func(x []float64) float64 {
		return math.Inf(-1)
	}, []float64{0.0}, model.WithName("impossible"))
	assert.NoError(err)

	const pop = 4
	agg, err := RunSMC(context.Background(), []*model.Model{b0, b1}, rwm, SMCConfig{
		Population: pop,
		InnerSteps: 3,
		Seed:       5,
	})

	// A vanishing density ratio is a zero weight, not an error
	assert.NoError(err)
	assert.Len(agg.Samples, 2*pop)
	for i := pop; i < 2*pop; i++ {
		assert.Equal(0.0, agg.Diags[i].Weight)
	}
}

func TestSMCWithResampling(t *testing.T) {
	assert := assert.New(t)

	rwm, err := NewRandomWalk()
	assert.NoError(err)

	const pop = 6
	agg, err := RunSMC(context.Background(), bridgeLadder([]float64{0.1, 0.5, 1.0}), rwm, SMCConfig{
		Population:        pop,
		InnerSteps:        4,
		Seed:              11,
		ResampleThreshold: 2.0, // ESS <= pop, so this forces a resample every boundary
	})
	assert.NoError(err)
	assert.Len(agg.Samples, 3*pop)
	assert.Len(agg.Diags, 3*pop)
}

func TestESS(t *testing.T) {
	assert := assert.New(t)

	uniform := []float64{1.0, 1.0, 1.0, 1.0}
	assert.InDelta(4.0, ESS(uniform), 1e-12)

	// Degenerate population is a valid outcome, ESS 1
	oneHot := []float64{0.0, 0.0, 5.0, 0.0}
	assert.InDelta(1.0, ESS(oneHot), 1e-12)

	assert.Equal(0.0, ESS([]float64{0.0, 0.0}))
	assert.Equal(0.0, ESS(nil))
}

func TestResample(t *testing.T) {
	assert := assert.New(t)

	gen := newTestGen(17)

	particles := [][]float64{{0.0}, {1.0}}
	weights := []float64{0.0, 3.0}
	resample(particles, weights, gen)

	for _, p := range particles {
		assert.Equal(1.0, p[0], "All mass was on the second particle")
	}
	assert.Equal([]float64{1.0, 1.0}, weights)

	// All-zero weights: nothing to favor, population unchanged
	particles = [][]float64{{0.0}, {1.0}}
	weights = []float64{0.0, 0.0}
	resample(particles, weights, gen)
	assert.Equal(0.0, particles[0][0])
	assert.Equal(1.0, particles[1][0])
	assert.Equal([]float64{1.0, 1.0}, weights)
}
