package sampler

import (
	"fmt"

	"github.com/probgo/chamber/model"
)

// CapabilityError reports a bind-time mismatch: the model does not provide a
// capability the sampler statically requires. It is always raised before any
// sampling step executes.
type CapabilityError struct {
	Sampler string
	Model   string
	Missing []model.Capability
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("model %s lacks %v, sampler %s requires it", e.Model, e.Missing, e.Sampler)
}

// NumericalError reports a non-finite density/gradient/tensor evaluation
// during a step. The run aborts but the chain keeps every prior valid step.
// Step is 1-based; samplers that cannot know the step index leave it at -1
// and the runner fills it in.
type NumericalError struct {
	Step   int64
	What   string
	Params []float64
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("non-finite %s at step %d (params %v)", e.What, e.Step, e.Params)
}

// ScheduleError reports an invalid burn-in/thinning/step-budget
// configuration. It is raised at run time, before any step executes.
type ScheduleError struct {
	Reason string
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule: %s", e.Reason)
}

// DimensionError reports a parameter vector or particle collection that
// changed length unexpectedly. This is a contract violation by a plugged-in
// sampler or model and is fatal to the run.
type DimensionError struct {
	What string
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s dimension changed: want %d, got %d", e.What, e.Want, e.Got)
}
