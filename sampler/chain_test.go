package sampler

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/probgo/chamber/model"
)

func stdNormal(dim int) *model.Model {
	sigma := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		sigma.SetSym(i, i, 1.0)
	}

	m, err := model.NewGaussian(make([]float64, dim), sigma)
	if err != nil {
		panic(fmt.Sprintf("%v", err))
	}
	return m
}

// nanAfter returns a 1-D model whose log-density goes NaN after the given
// number of evaluations.
func nanAfter(evalBudget int) *model.Model {
	evals := 0
	m, err := model.FromFunc(func(x []float64) float64 {
		evals++
		if evals > evalBudget {
			return math.NaN()
		}
		return -0.5 * x[0] * x[0]
	}, []float64{0.0}, model.WithName("nan-after"))
	if err != nil {
		panic(fmt.Sprintf("%v", err))
	}
	return m
}

func TestScheduleCheck(t *testing.T) {
	assert := assert.New(t)

	var se *ScheduleError

	err := Schedule{BurnIn: 0, Thinning: 1}.Check(0)
	assert.True(errors.As(err, &se), "Zero budget must be a schedule error")

	err = Schedule{BurnIn: -1, Thinning: 1}.Check(10)
	assert.True(errors.As(err, &se))

	err = Schedule{BurnIn: 0, Thinning: 0}.Check(10)
	assert.True(errors.As(err, &se))

	err = Schedule{BurnIn: 10, Thinning: 1}.Check(10)
	assert.True(errors.As(err, &se), "Burn-in consuming the budget must fail")

	assert.NoError(Schedule{BurnIn: 9, Thinning: 3}.Check(10))
}

func TestScheduleKeepPolicy(t *testing.T) {
	assert := assert.New(t)

	s := Schedule{BurnIn: 100, Thinning: 5}
	kept := []int64{}
	for step := int64(1); step <= 1000; step++ {
		if s.Keep(step) {
			kept = append(kept, step)
		}
	}

	assert.Len(kept, 180)
	assert.Equal(int64(105), kept[0])
	assert.Equal(int64(110), kept[1])
	assert.Equal(int64(1000), kept[len(kept)-1])

	s = Schedule{BurnIn: 100, Thinning: 1}
	count := 0
	for step := int64(1); step <= 1000; step++ {
		if s.Keep(step) {
			count++
		}
	}
	assert.Equal(900, count)
}

func TestRunKeepPolicy(t *testing.T) {
	assert := assert.New(t)

	samp, err := NewRandomWalk()
	assert.NoError(err)

	task, err := Bind(stdNormal(1), samp)
	assert.NoError(err)
	task.Schedule = Schedule{BurnIn: 100, Thinning: 5}
	task.Seed = 42

	ch, err := task.Run(context.Background(), 1000)
	assert.NoError(err)
	assert.Len(ch.Samples, 180)
	assert.Len(ch.Diags, 180)
	assert.Equal(int64(1000), ch.StepCount)
}

func TestResumeTransparency(t *testing.T) {
	assert := assert.New(t)

	samp, err := NewRandomWalk()
	assert.NoError(err)

	ctx := context.Background()

	task, err := Bind(stdNormal(2), samp)
	assert.NoError(err)
	task.Seed = 1701

	split, err := task.Run(ctx, 20)
	assert.NoError(err)
	assert.Len(split.Samples, 20)
	assert.NoError(split.Advance(ctx, 30))
	assert.Len(split.Samples, 50)
	assert.Equal(int64(50), split.StepCount)

	whole, err := task.Run(ctx, 50)
	assert.NoError(err)

	// Bit-for-bit identical: continuation is observationally transparent
	assert.Equal(whole.Samples, split.Samples)
	assert.Equal(whole.Diags, split.Diags)
}

func TestResumeTransparencyWithSchedule(t *testing.T) {
	assert := assert.New(t)

	samp, err := NewLangevin(0.5)
	assert.NoError(err)

	ctx := context.Background()

	task, err := Bind(stdNormal(2), samp)
	assert.NoError(err)
	task.Schedule = Schedule{BurnIn: 10, Thinning: 3}
	task.Seed = 99

	split, err := task.Run(ctx, 15)
	assert.NoError(err)
	assert.NoError(split.Advance(ctx, 15))

	whole, err := task.Run(ctx, 30)
	assert.NoError(err)

	assert.Equal(whole.Samples, split.Samples)
	assert.Equal(whole.Diags, split.Diags)
}

func TestNumericalFailureSuspends(t *testing.T) {
	assert := assert.New(t)

	samp, err := NewRandomWalk()
	assert.NoError(err)

	task, err := Bind(nanAfter(7), samp)
	assert.NoError(err)
	task.Seed = 7

	ch, err := task.Run(context.Background(), 100)
	assert.Error(err)
	assert.NotNil(ch, "Partial results must be returned with the error")

	var ne *NumericalError
	assert.True(errors.As(err, &ne))
	assert.Equal(int64(7), ne.Step)
	assert.Equal("log-density", ne.What)
	assert.Len(ne.Params, 1)

	// Every step before the failure is retained
	assert.Equal(int64(6), ch.StepCount)
	assert.Len(ch.Samples, 6)
}

func TestCancellationSuspends(t *testing.T) {
	assert := assert.New(t)

	samp, err := NewRandomWalk()
	assert.NoError(err)

	task, err := Bind(stdNormal(1), samp)
	assert.NoError(err)
	task.Seed = 3

	ch, err := task.Run(context.Background(), 10)
	assert.NoError(err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err = ch.Advance(cancelled, 10)
	assert.Error(err)
	assert.True(errors.Is(err, context.Canceled))
	assert.Equal(int64(10), ch.StepCount, "No steps taken after cancellation")

	// A cancelled chain resumes exactly like a budget-exhausted one
	assert.NoError(ch.Advance(context.Background(), 10))
	assert.Equal(int64(20), ch.StepCount)
	assert.Len(ch.Samples, 20)
}

func TestAdvanceValidation(t *testing.T) {
	assert := assert.New(t)

	samp, err := NewRandomWalk()
	assert.NoError(err)

	task, err := Bind(stdNormal(1), samp)
	assert.NoError(err)

	ch, err := task.Run(context.Background(), 5)
	assert.NoError(err)

	var se *ScheduleError
	err = ch.Advance(context.Background(), 0)
	assert.True(errors.As(err, &se))

	assert.Nil((&Chain{}).Last())
	assert.Equal(0.0, (&Chain{}).AcceptRate())
	assert.NotNil(ch.Last())
}
