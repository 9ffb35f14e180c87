package sampler

import (
	"context"

	"github.com/pkg/errors"

	"github.com/probgo/chamber/model"
	"github.com/probgo/chamber/rand"
)

// Task is a model bound to a sampler, capability-checked and ready to run.
// Schedule and Seed may be adjusted freely before the first Run.
type Task struct {
	Model    *model.Model
	Sampler  Sampler
	Schedule Schedule
	Seed     int64
}

// Bind pairs a model with a sampler after checking that every capability
// the sampler requires is present. The check happens here, before any step
// executes, so a doomed pairing fails immediately with the missing
// capability named.
func Bind(m *model.Model, s Sampler) (*Task, error) {
	if err := m.Check(); err != nil {
		return nil, errors.Wrap(err, "Cannot bind invalid model")
	}

	req := s.Requires()
	if have := m.Capabilities(); !have.Contains(req) {
		return nil, &CapabilityError{
			Sampler: s.Name(),
			Model:   m.Name,
			Missing: have.Missing(req),
		}
	}

	return &Task{
		Model:    m,
		Sampler:  s,
		Schedule: DefaultSchedule(),
		Seed:     1,
	}, nil
}

// Run executes the task from scratch for a total budget of steps and
// returns the resulting chain. The chain is returned even when the run
// fails partway so that partial results are never discarded.
func (t *Task) Run(ctx context.Context, steps int64) (*Chain, error) {
	if err := t.Schedule.Check(steps); err != nil {
		return nil, err
	}

	gen, err := rand.NewGenerator(t.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "Could not create generator")
	}

	st, err := t.Sampler.Init(t.Model)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not init sampler %s", t.Sampler.Name())
	}

	ch := &Chain{
		Model:    t.Model,
		Sampler:  t.Sampler,
		Schedule: t.Schedule,
		Cur:      append([]float64(nil), t.Model.Init...),
		State:    st,
		Gen:      gen,
	}

	if err := ch.Advance(ctx, steps); err != nil {
		return ch, err
	}
	return ch, nil
}

// Compose is the model x sampler x steps pipeline in one call: bind, then
// run with the task defaults.
func Compose(ctx context.Context, m *model.Model, s Sampler, steps int64) (*Chain, error) {
	t, err := Bind(m, s)
	if err != nil {
		return nil, err
	}
	return t.Run(ctx, steps)
}
