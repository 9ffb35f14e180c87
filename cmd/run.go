package cmd

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/probgo/chamber/model"
	"github.com/probgo/chamber/sampler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one or more independent chains against the demo target",
	RunE: func(cmd *cobra.Command, args []string) error {
		sp.setupLoggers()
		return RunChains(sp)
	},
}

// demoTarget builds the demo Gaussian target: unit variances with mild
// correlation between adjacent dimensions, full derivative stack attached.
func demoTarget(sp *startupParams) (*model.Model, error) {
	if sp.dims < 1 {
		return nil, errors.Errorf("Invalid dimension %d", sp.dims)
	}

	sigma := mat.NewSymDense(sp.dims, nil)
	for i := 0; i < sp.dims; i++ {
		sigma.SetSym(i, i, 1.0)
		if i+1 < sp.dims {
			sigma.SetSym(i, i+1, 0.25)
		}
	}

	return model.NewGaussian(make([]float64, sp.dims), sigma)
}

// newSampler selects a sampler kind by name
func newSampler(sp *startupParams) (sampler.Sampler, error) {
	switch sp.samplerName {
	case "random-walk":
		return sampler.NewRandomWalk()
	case "langevin":
		return sampler.NewLangevin(sp.stepSize)
	case "manifold-langevin":
		return sampler.NewManifoldLangevin(sp.stepSize)
	}
	return nil, errors.Errorf("Unknown sampler %s", sp.samplerName)
}

// RunChains runs an independent chain population and reports per-chain
// results.
func RunChains(sp *startupParams) error {
	target, err := demoTarget(sp)
	if err != nil {
		return err
	}

	samp, err := newSampler(sp)
	if err != nil {
		return err
	}

	sp.out.Printf("Target:  %s\n", target.Name)
	sp.out.Printf("Sampler: %s (requires %v)\n", samp.Name(), samp.Requires())
	sp.out.Printf("Budget:  %d steps, burn-in %d, thinning %d, %d chains\n",
		sp.steps, sp.burnIn, sp.thinning, sp.chainCount)

	var mon *monitor
	if len(sp.monitorAddr) > 0 {
		mon = &monitor{}
		if err := mon.Start(sp.monitorAddr); err != nil {
			return err
		}
		defer mon.Stop()
		mon.ChainCount.Set(int64(sp.chainCount))
		mon.MaxSteps.Set(sp.steps * int64(sp.chainCount))
	}

	tasks := make([]*sampler.Task, sp.chainCount)
	for i := range tasks {
		task, err := sampler.Bind(target, samp)
		if err != nil {
			return err
		}
		task.Schedule = sampler.Schedule{BurnIn: sp.burnIn, Thinning: sp.thinning}
		task.Seed = sp.randomSeed + int64(i)
		tasks[i] = task
	}

	startTime := time.Now()
	chains, errs := sampler.RunAll(context.Background(), tasks, sp.steps)
	runTime := time.Since(startTime)

	failed := 0
	totalSteps, totalKept := int64(0), 0
	for i, ch := range chains {
		if errs[i] != nil {
			failed++
			sp.out.Printf("Chain %d FAILED after step %d: %v\n", i, ch.StepCount, errs[i])
			continue
		}

		totalSteps += ch.StepCount
		totalKept += len(ch.Samples)
		sp.out.Printf("Chain %d: %d kept samples, accept rate %.3f\n",
			i, len(ch.Samples), ch.AcceptRate())
		if len(ch.Diags) > 0 {
			sp.trace.Printf("Chain %d last log-density %.4f at %v\n",
				i, ch.Diags[len(ch.Diags)-1].LogDensity, ch.Last())
		}
	}

	sp.out.Printf("Done: %d steps, %d kept samples in %v\n", totalSteps, totalKept, runTime)

	if mon != nil {
		mon.Steps.Set(totalSteps)
		mon.KeptSamples.Set(int64(totalKept))
		mon.RunTime.Set(runTime.Seconds())
	}

	if failed > 0 {
		return errors.Errorf("%d of %d chains failed", failed, len(chains))
	}
	return nil
}
