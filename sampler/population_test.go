package sampler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPopulationIndependence(t *testing.T) {
	assert := assert.New(t)

	rwm, err := NewRandomWalk()
	assert.NoError(err)

	m := stdNormal(2)
	ctx := context.Background()

	const n = 8
	tasks := make([]*Task, n)
	for i := range tasks {
		task, err := Bind(m, rwm)
		assert.NoError(err)
		task.Seed = int64(100 + i)
		tasks[i] = task
	}

	// One at a time
	solo := make([]*Chain, n)
	for i, task := range tasks {
		solo[i], err = task.Run(ctx, 200)
		assert.NoError(err)
	}

	// Concurrently
	chains, errs := RunAll(ctx, tasks, 200)
	assert.Len(chains, n)
	for i := 0; i < n; i++ {
		assert.NoError(errs[i])
		assert.Equal(solo[i].Samples, chains[i].Samples, "Chain %d differs under concurrency", i)
	}
}

func TestPopulationFailureIsolation(t *testing.T) {
	assert := assert.New(t)

	rwm, err := NewRandomWalk()
	assert.NoError(err)

	bad, err := Bind(nanAfter(7), rwm)
	assert.NoError(err)
	bad.Seed = 7

	good, err := Bind(stdNormal(1), rwm)
	assert.NoError(err)
	good.Seed = 8

	chains, errs := RunAll(context.Background(), []*Task{bad, good}, 100)

	assert.Error(errs[0])
	assert.NotNil(chains[0])
	assert.Equal(int64(6), chains[0].StepCount)

	// The sibling chain completes unaffected
	assert.NoError(errs[1])
	assert.Equal(int64(100), chains[1].StepCount)
	assert.Len(chains[1].Samples, 100)
}

func TestPopulationEmpty(t *testing.T) {
	assert := assert.New(t)

	chains, errs := RunAll(context.Background(), nil, 10)
	assert.Len(chains, 0)
	assert.Len(errs, 0)
}
