package sampler

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/probgo/chamber/model"
	"github.com/probgo/chamber/rand"
)

// Schedule controls which step indices are recorded: a 1-based step t is
// kept iff t > BurnIn and (t-BurnIn) is on the thinning stride.
type Schedule struct {
	BurnIn   int64
	Thinning int64
}

// DefaultSchedule keeps every step
func DefaultSchedule() Schedule {
	return Schedule{BurnIn: 0, Thinning: 1}
}

// Check validates the schedule against a total step budget. It runs before
// any step executes.
func (s Schedule) Check(total int64) error {
	if total < 1 {
		return &ScheduleError{Reason: fmt.Sprintf("step budget %d < 1", total)}
	}
	if s.BurnIn < 0 {
		return &ScheduleError{Reason: fmt.Sprintf("negative burn-in %d", s.BurnIn)}
	}
	if s.Thinning < 1 {
		return &ScheduleError{Reason: fmt.Sprintf("non-positive thinning %d", s.Thinning)}
	}
	if s.BurnIn >= total {
		return &ScheduleError{Reason: fmt.Sprintf("burn-in %d consumes the entire budget %d", s.BurnIn, total)}
	}
	return nil
}

// Keep returns true if the 1-based step index t should be recorded
func (s Schedule) Keep(t int64) bool {
	return t > s.BurnIn && (t-s.BurnIn)%s.Thinning == 0
}

// Chain is the durable record of one sampling run: the accumulated samples
// and diagnostics plus the suspended execution state (current parameters,
// sampler state, draw stream, step counter). A chain is mutated only by the
// runner that owns it during a run; between runs it is simply suspended and
// may be resumed with a further step budget.
type Chain struct {
	Model    *model.Model
	Sampler  Sampler
	Schedule Schedule

	Samples [][]float64
	Diags   []StepDiag

	Cur       []float64
	State     State
	Gen       *rand.Generator
	StepCount int64

	running bool
}

// Advance resumes the chain for n additional steps. Samples are only ever
// appended: resuming with the same seed reproduces exactly the run that a
// single larger budget would have produced. On cancellation or a numerical
// failure the chain keeps every step completed so far and stays resumable.
func (c *Chain) Advance(ctx context.Context, n int64) error {
	if n < 1 {
		return &ScheduleError{Reason: fmt.Sprintf("step budget %d < 1", n)}
	}
	if c.running {
		return errors.Errorf("Chain is already running")
	}
	c.running = true
	defer func() { c.running = false }()

	target := c.StepCount + n
	for c.StepCount < target {
		// Cancellation only lands between steps, never mid-proposal
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "Run cancelled after step %d", c.StepCount)
		default:
		}

		next, st, diag, err := c.Sampler.Propose(c.Cur, c.State, c.Model, c.Gen)
		if err != nil {
			var ne *NumericalError
			if errors.As(err, &ne) && ne.Step < 0 {
				ne.Step = c.StepCount + 1
			}
			return errors.Wrapf(err, "Chain suspended at step %d", c.StepCount)
		}
		if len(next) != len(c.Cur) {
			return &DimensionError{What: "proposal", Want: len(c.Cur), Got: len(next)}
		}

		c.Cur = next
		c.State = st
		c.StepCount++

		if c.Schedule.Keep(c.StepCount) {
			row := append([]float64(nil), next...)
			c.Samples = append(c.Samples, row)
			c.Diags = append(c.Diags, diag)
		}
	}

	return nil
}

// Last returns the most recently recorded sample, or nil if nothing has
// been kept yet.
func (c *Chain) Last() []float64 {
	if len(c.Samples) < 1 {
		return nil
	}
	return c.Samples[len(c.Samples)-1]
}

// AcceptRate returns the acceptance fraction over the recorded diagnostics
func (c *Chain) AcceptRate() float64 {
	if len(c.Diags) < 1 {
		return 0.0
	}

	accepts := 0
	for _, d := range c.Diags {
		if d.Accepted {
			accepts++
		}
	}
	return float64(accepts) / float64(len(c.Diags))
}
