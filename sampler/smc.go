package sampler

import (
	"context"
	"math"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/probgo/chamber/model"
	"github.com/probgo/chamber/rand"
)

// SMCConfig configures a sequential Monte Carlo run over a bridge sequence.
type SMCConfig struct {
	Population        int     // Particle count, fixed for the whole run
	InnerSteps        int64   // Sampler steps per particle per generation
	Seed              int64   // Base seed; every particle derives its own stream
	ResampleThreshold float64 // ESS fraction of Population that triggers resampling; <= 0 disables it
}

// RunSMC drives a population of particles through the bridge models in
// order, producing a single aggregated chain. Every generation moves each
// particle independently (in parallel) under the current bridge for
// InnerSteps, updates its importance weight from the ratio of consecutive
// bridge densities at its new position, and appends all positions and
// weights to the result - so the aggregated chain holds exactly
// generations x population rows. Generations are strictly sequential:
// generation i+1 starts only after every particle finished generation i.
//
// The aggregated chain is a result container; resuming it is not defined.
func RunSMC(ctx context.Context, bridges []*model.Model, s Sampler, cfg SMCConfig) (*Chain, error) {
	if len(bridges) < 1 {
		return nil, errors.Errorf("At least one bridge model is required")
	}
	if cfg.Population < 1 {
		return nil, errors.Errorf("Invalid population size %d", cfg.Population)
	}
	if cfg.InnerSteps < 1 {
		return nil, &ScheduleError{Reason: "inner step count < 1"}
	}

	dim := bridges[0].Dim()
	req := s.Requires()
	for i, b := range bridges {
		if err := b.Check(); err != nil {
			return nil, errors.Wrapf(err, "Bridge %d is invalid", i)
		}
		if b.Dim() != dim {
			return nil, &DimensionError{What: "bridge model", Want: dim, Got: b.Dim()}
		}
		if have := b.Capabilities(); !have.Contains(req) {
			return nil, &CapabilityError{Sampler: s.Name(), Model: b.Name, Missing: have.Missing(req)}
		}
	}

	p := cfg.Population
	particles := make([][]float64, p)
	weights := make([]float64, p)
	gens := make([]*rand.Generator, p)
	lastDiags := make([]StepDiag, p)

	masterGen, err := rand.NewGenerator(cfg.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "Could not create generator")
	}

	for i := 0; i < p; i++ {
		particles[i] = append([]float64(nil), bridges[0].Init...)
		weights[i] = 1.0
		gens[i], err = rand.NewGenerator(cfg.Seed + 1 + int64(i))
		if err != nil {
			return nil, errors.Wrap(err, "Could not create generator")
		}
	}

	agg := &Chain{
		Model:    bridges[len(bridges)-1],
		Sampler:  s,
		Schedule: DefaultSchedule(),
		Cur:      append([]float64(nil), bridges[0].Init...),
		Gen:      masterGen,
	}

	// The inner chains only need each particle's final position, so the
	// schedule records nothing but the last inner step.
	inner := Schedule{BurnIn: cfg.InnerSteps - 1, Thinning: 1}

	for gi, bridge := range bridges {
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))

		for pi := range particles {
			pi := pi
			g.Go(func() error {
				st, err := s.Init(bridge)
				if err != nil {
					return errors.Wrapf(err, "Particle %d init failed in generation %d", pi, gi)
				}

				ch := &Chain{
					Model:    bridge,
					Sampler:  s,
					Schedule: inner,
					Cur:      particles[pi],
					State:    st,
					Gen:      gens[pi],
				}

				if err := ch.Advance(ctx, cfg.InnerSteps); err != nil {
					return errors.Wrapf(err, "Particle %d failed in generation %d", pi, gi)
				}

				particles[pi] = ch.Cur
				lastDiags[pi] = ch.Diags[len(ch.Diags)-1]
				return nil
			})
		}

		// Synchronization barrier: the next generation may not start until
		// every particle has finished this one.
		if err := g.Wait(); err != nil {
			return agg, err
		}

		for _, x := range particles {
			if len(x) != dim {
				return agg, &DimensionError{What: "particle", Want: dim, Got: len(x)}
			}
		}

		// Importance weight update from the ratio of consecutive bridge
		// densities at each particle's new position. A non-finite ratio is
		// a zero weight, not an error: the particle persists but becomes
		// negligible after normalization.
		if gi > 0 {
			prev := bridges[gi-1]
			for pi, x := range particles {
				ratio := math.Exp(bridge.LogDensity(x) - prev.LogDensity(x))
				w := weights[pi] * ratio
				if math.IsNaN(w) || math.IsInf(w, 0) || w < 0.0 {
					w = 0.0
				}
				weights[pi] = w
			}
		}

		for pi, x := range particles {
			agg.Samples = append(agg.Samples, append([]float64(nil), x...))
			agg.Diags = append(agg.Diags, StepDiag{
				Accepted:   lastDiags[pi].Accepted,
				LogDensity: lastDiags[pi].LogDensity,
				Weight:     weights[pi],
			})
			agg.StepCount++
		}
		agg.Cur = append(agg.Cur[:0], particles[p-1]...)

		if cfg.ResampleThreshold > 0.0 && gi < len(bridges)-1 {
			if ESS(weights) < cfg.ResampleThreshold*float64(p) {
				resample(particles, weights, masterGen)
			}
		}
	}

	return agg, nil
}

// ESS returns the effective sample size of a weight vector: (sum w)^2 over
// sum w^2. A fully degenerate population (all mass on one particle) scores
// 1; uniform weights score the population size.
func ESS(weights []float64) float64 {
	sum := floats.Sum(weights)
	sumSq := 0.0
	for _, w := range weights {
		sumSq += w * w
	}
	if sumSq <= 0.0 {
		return 0.0
	}
	return sum * sum / sumSq
}

// resample draws a new population with replacement proportional to weight
// and resets the weights to uniform.
func resample(particles [][]float64, weights []float64, gen *rand.Generator) {
	total := floats.Sum(weights)
	if total <= 0.0 {
		// Nothing to favor - keep the population as is
		for i := range weights {
			weights[i] = 1.0
		}
		return
	}

	cum := make([]float64, len(weights))
	floats.CumSum(cum, weights)

	picked := make([][]float64, len(particles))
	for i := range picked {
		u := gen.Float64() * total
		j := 0
		for j < len(cum)-1 && cum[j] <= u {
			j++
		}
		picked[i] = append([]float64(nil), particles[j]...)
	}

	copy(particles, picked)
	for i := range weights {
		weights[i] = 1.0
	}
}
